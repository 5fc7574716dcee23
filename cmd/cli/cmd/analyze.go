package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/keurnel/sigforge/internal/debugcontext"
	"github.com/keurnel/sigforge/internal/sigasm"
	"github.com/keurnel/sigforge/internal/sigasm/listing"
)

var analyzeCmd = &cobra.Command{
	Use:     "analyze <file|->",
	GroupID: "pipeline",
	Short:   "Parse a listing and recommend signature targets",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAnalyze(cmd, args[0])
	},
}

// recommendedTargets mirrors analyze_disassembly's recommendation pass:
// every labeled instruction's label, or — if nothing is labeled — up to
// 10 synthesized "category@address" names for jumps and calls, in
// instruction order.
func recommendedTargets(instructions []sigasm.Instruction) []string {
	var recommended []string

	for _, inst := range instructions {
		if inst.HasLabel() {
			recommended = append(recommended, inst.Label)
		}
	}

	if len(recommended) == 0 {
		for _, inst := range instructions {
			switch inst.Category {
			case sigasm.CategoryConditionalJump, sigasm.CategoryUnconditionalJump, sigasm.CategoryCall:
				recommended = append(recommended, fmt.Sprintf("%s@%s", inst.Category, inst.Address))
			}
			if len(recommended) >= 10 {
				break
			}
		}
	}

	return recommended
}

func runAnalyze(cmd *cobra.Command, path string) error {
	input, err := readInput(path)
	if err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	ctx := debugcontext.NewDebugContext(path)
	ctx.SetPhase("parse")
	defer printDiagnostics(cmd, ctx)

	result, err := listing.Parse(input, listing.Format(formatHint))
	if err != nil {
		ctx.Error(ctx.LocSource(), err.Error())
		return err
	}

	if len(result.Instructions) == 0 {
		ctx.Error(ctx.LocSource(), "no valid instructions found in input")
	}
	if ctx.HasErrors() {
		return fmt.Errorf("no valid instructions found in input")
	}

	cmd.Printf("instructions: %d  labeled: %d  bytes: %d\n",
		result.Stats.Total, result.Stats.Labeled, result.Stats.TotalBytes)

	recommended := recommendedTargets(result.Instructions)
	if len(recommended) == 0 {
		ctx.Warning(ctx.LocSource(), "no labels, jumps, or calls to recommend as targets")
	}

	cmd.Println("recommended targets:")
	for _, name := range recommended {
		cmd.Printf("  %s\n", name)
	}

	return nil
}
