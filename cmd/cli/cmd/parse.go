package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/keurnel/sigforge/internal/debugcontext"
	"github.com/keurnel/sigforge/internal/sigasm/listing"
)

var parseCmd = &cobra.Command{
	Use:     "parse <file|->",
	GroupID: "pipeline",
	Short:   "Parse a disassembly listing and print its instructions",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runParse(cmd, args[0])
	},
}

func runParse(cmd *cobra.Command, path string) error {
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

	cmd.Printf("format: %s\n", result.Format)
	if result.Module != "" {
		cmd.Printf("module: %s\n", result.Module)
	}
	cmd.Printf("instructions: %d  labeled: %d  bytes: %d\n",
		result.Stats.Total, result.Stats.Labeled, result.Stats.TotalBytes)

	for i, inst := range result.Instructions {
		label := ""
		if inst.HasLabel() {
			label = "  ; " + inst.Label
		}
		cmd.Printf("%4d  %s  %-8s %s%s\n", i, inst.Address, inst.Mnemonic, inst.Operands, label)
	}

	return nil
}
