package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/keurnel/sigforge/internal/debugcontext"
	"github.com/keurnel/sigforge/internal/sigasm"
	"github.com/keurnel/sigforge/internal/sigasm/listing"
	"github.com/keurnel/sigforge/internal/sigasm/signature"
	"github.com/keurnel/sigforge/internal/sigasm/smart"
)

// smartGenerateMinScore is smart-generate's score floor: targets below
// this are skipped even if they made the top-N cut.
const smartGenerateMinScore = 45

var (
	smartTopN       int
	smartGenerate   bool
	smartMaxTargets int
)

var smartCmd = &cobra.Command{
	Use:     "smart <file|->",
	GroupID: "pipeline",
	Short:   "Score every instruction as a signature anchor and find stable regions",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSmart(cmd, args[0])
	},
}

func init() {
	smartCmd.Flags().IntVar(&smartMaxTargets, "max-targets", 10, "maximum number of scored targets to keep")
	smartCmd.Flags().BoolVar(&smartGenerate, "generate", false, "also generate signatures for the top-N scored targets")
	smartCmd.Flags().IntVar(&smartTopN, "top-n", 3, "number of top-scored targets to generate signatures for, with --generate")
}

func runSmart(cmd *cobra.Command, path string) error {
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

	ctx.SetPhase("smart-analyze")
	analysis := smart.Analyze(result.Instructions, smartMaxTargets)

	cmd.Println(analysis.AnalysisSummary)
	cmd.Printf("total instructions: %d  avg stability: %.1f\n", analysis.TotalInstructions, analysis.AvgStability)

	for i, t := range analysis.TopTargets {
		cmd.Printf("%2d. %s %s  score=%.1f (stability=%.1f uniqueness=%.1f context=%.1f)\n",
			i+1, t.Address, t.Mnemonic, t.Score, t.StabilityScore, t.UniquenessScore, t.ContextScore)
	}
	for _, r := range analysis.StableRegions {
		cmd.Printf("stable region: %s - %s  (%d bytes, avg score %.1f)\n", r.StartAddress, r.EndAddress, r.ByteCount, r.AvgScore)
	}

	if !smartGenerate {
		return nil
	}

	return runSmartGenerate(cmd, ctx, result.Instructions)
}

// runSmartGenerate mirrors smart-generate's automatic workflow:
// re-analyze with max_targets = 2*top_n so there is headroom past the
// requested count, then walk the first top_n scored targets, skipping
// anything below smartGenerateMinScore, naming each "mnemonic@address"
// (or "smart@address" when the analyzer didn't attach a mnemonic).
func runSmartGenerate(cmd *cobra.Command, ctx *debugcontext.DebugContext, instructions []sigasm.Instruction) error {
	ctx.SetPhase("generate")

	analysis := smart.Analyze(instructions, smartTopN*2)
	if len(analysis.TopTargets) == 0 {
		ctx.Error(ctx.LocSource(), "no suitable signature targets found in input")
		return fmt.Errorf("no suitable signature targets found in input")
	}

	top := analysis.TopTargets
	if len(top) > smartTopN {
		top = top[:smartTopN]
	}

	options := loadedConfig.SignatureOptions().Clamp()
	generatedAny := false

	for _, t := range top {
		if t.Score < smartGenerateMinScore {
			continue
		}

		name := fmt.Sprintf("smart@%s", t.Address)
		if t.Mnemonic != "" {
			name = fmt.Sprintf("%s@%s", t.Mnemonic, t.Address)
		}

		variants := signature.Generate(instructions, t.InstructionIndex, options)
		if len(variants) == 0 {
			ctx.Warning(ctx.Loc(t.InstructionIndex, t.Address), fmt.Sprintf("no signature variants generated for target %q", name))
			continue
		}
		generatedAny = true

		cmd.Printf("=== %s ===\n", name)
		for i, v := range variants {
			cmd.Printf("  variant %d: %s  (%.0f%% unique, %s stability)\n", i+1, v.Pattern, v.UniquenessScore*100, v.Stability)
		}
	}

	if !generatedAny {
		ctx.Error(ctx.LocSource(), "could not generate signatures for any smart targets")
		return fmt.Errorf("could not generate signatures for any smart targets")
	}

	return nil
}
