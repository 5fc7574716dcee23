package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/keurnel/sigforge/internal/debugcontext"
	"github.com/keurnel/sigforge/internal/sigasm/listing"
	"github.com/keurnel/sigforge/internal/sigasm/signature"
)

var generateTargetedCmd = &cobra.Command{
	Use:     "generate-targeted <file|->",
	GroupID: "pipeline",
	Short:   "Generate signatures anchored at the first instruction",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runGenerateTargeted(cmd, args[0])
	},
}

func init() {
	generateTargetedCmd.Flags().IntVar(&genMinLength, "min-length", 0, "minimum signature length in bytes (default: config/built-in)")
	generateTargetedCmd.Flags().IntVar(&genMaxLength, "max-length", 0, "maximum signature length in bytes (default: config/built-in)")
	generateTargetedCmd.Flags().IntVar(&genVariants, "variants", 0, "number of signature variants to keep (default: config/built-in)")
	generateTargetedCmd.Flags().IntVar(&genContextBefore, "context-before", -1, "instructions of context before the target (default: config/built-in)")
	generateTargetedCmd.Flags().IntVar(&genContextAfter, "context-after", -1, "bytes of context after the target, pass-through only (default: config/built-in)")

	generateTargetedCmd.Flags().BoolVar(&genWildcardRelativeJumps, "wildcard-relative-jumps", false, "wildcard relative jump offsets")
	generateTargetedCmd.Flags().BoolVar(&genWildcardRelativeCalls, "wildcard-relative-calls", false, "wildcard relative call offsets")
	generateTargetedCmd.Flags().BoolVar(&genWildcardStackOffsets, "wildcard-stack-offsets", false, "wildcard stack frame displacements")
	generateTargetedCmd.Flags().BoolVar(&genWildcardGlobalAddresses, "wildcard-global-addresses", false, "wildcard global/absolute addresses")
	generateTargetedCmd.Flags().BoolVar(&genWildcardImmediates, "wildcard-immediates", false, "wildcard best-effort immediates")
	generateTargetedCmd.Flags().BoolVar(&genWildcardStructOffsets, "wildcard-struct-offsets", false, "wildcard struct-member offsets")
	generateTargetedCmd.Flags().BoolVar(&genWildcardMemoryDisps, "wildcard-memory-displacements", false, "memory-displacement rule flag; carried in the rule set, no generation rule reads it")
}

// runGenerateTargeted always anchors on the first instruction ("Target
// Mode"): useful when the input is a single pasted snippet and the
// signature should start from its very first line.
func runGenerateTargeted(cmd *cobra.Command, path string) error {
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

	ctx.SetPhase("generate")
	targetIdx := 0
	first := result.Instructions[targetIdx]
	targetName := first.Label
	if targetName == "" {
		targetName = fmt.Sprintf("target@%s", first.Address)
	}

	options := resolveSignatureOptions(cmd)
	variants := signature.Generate(result.Instructions, targetIdx, options)
	if len(variants) == 0 {
		ctx.Warning(ctx.Loc(targetIdx, first.Address), fmt.Sprintf("no signature variants generated for target %q", targetName))
		return nil
	}

	cmd.Printf("=== %s ===\n", targetName)
	for i, v := range variants {
		cmd.Printf("  variant %d: %s  (%.0f%% unique, %s stability, %s)\n",
			i+1, v.Pattern, v.UniquenessScore*100, v.Stability, v.Strategy)
	}

	return nil
}
