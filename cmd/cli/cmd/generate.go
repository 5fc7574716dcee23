package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/keurnel/sigforge/internal/debugcontext"
	"github.com/keurnel/sigforge/internal/sigasm"
	"github.com/keurnel/sigforge/internal/sigasm/listing"
	"github.com/keurnel/sigforge/internal/sigasm/signature"
	"github.com/keurnel/sigforge/internal/sigasm/target"
)

var generateTargets []string

var (
	genMinLength     int
	genMaxLength     int
	genVariants      int
	genContextBefore int
	genContextAfter  int

	genWildcardRelativeJumps   bool
	genWildcardRelativeCalls   bool
	genWildcardStackOffsets    bool
	genWildcardGlobalAddresses bool
	genWildcardImmediates      bool
	genWildcardStructOffsets   bool
	genWildcardMemoryDisps     bool

	genJSONOut string
)

var generateCmd = &cobra.Command{
	Use:     "generate <file|->",
	GroupID: "pipeline",
	Short:   "Parse a listing and generate signatures for one or more targets",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runGenerate(cmd, args[0])
	},
}

func init() {
	generateCmd.Flags().StringArrayVar(&generateTargets, "target", nil, "explicit target selector (label, address, jump@ADDR, call@ADDR); repeatable")
	generateCmd.Flags().Bool("all-jumps", false, "select every jump instruction")
	generateCmd.Flags().Bool("all-calls", false, "select every call instruction")
	generateCmd.Flags().Bool("all-labeled", true, "select every labeled instruction")
	generateCmd.Flags().Bool("all", false, "select every instruction")

	generateCmd.Flags().IntVar(&genMinLength, "min-length", 0, "minimum signature length in bytes (default: config/built-in)")
	generateCmd.Flags().IntVar(&genMaxLength, "max-length", 0, "maximum signature length in bytes (default: config/built-in)")
	generateCmd.Flags().IntVar(&genVariants, "variants", 0, "number of signature variants to keep (default: config/built-in)")
	generateCmd.Flags().IntVar(&genContextBefore, "context-before", -1, "instructions of context before the target (default: config/built-in)")
	generateCmd.Flags().IntVar(&genContextAfter, "context-after", -1, "bytes of context after the target, pass-through only (default: config/built-in)")

	generateCmd.Flags().BoolVar(&genWildcardRelativeJumps, "wildcard-relative-jumps", false, "wildcard relative jump offsets")
	generateCmd.Flags().BoolVar(&genWildcardRelativeCalls, "wildcard-relative-calls", false, "wildcard relative call offsets")
	generateCmd.Flags().BoolVar(&genWildcardStackOffsets, "wildcard-stack-offsets", false, "wildcard stack frame displacements")
	generateCmd.Flags().BoolVar(&genWildcardGlobalAddresses, "wildcard-global-addresses", false, "wildcard global/absolute addresses")
	generateCmd.Flags().BoolVar(&genWildcardImmediates, "wildcard-immediates", false, "wildcard best-effort immediates")
	generateCmd.Flags().BoolVar(&genWildcardStructOffsets, "wildcard-struct-offsets", false, "wildcard struct-member offsets")
	generateCmd.Flags().BoolVar(&genWildcardMemoryDisps, "wildcard-memory-displacements", false, "memory-displacement rule flag; carried in the rule set, no generation rule reads it")

	generateCmd.Flags().StringVar(&genJSONOut, "json-out", "", "write the generated signature set as JSON to this path, for later `sigforge export`")
}

// resolveTargetSelection reads the --target/--all-* flags into a
// sigasm.TargetSelection. Only generate exposes these flags;
// generate-targeted always anchors on the first instruction.
func resolveTargetSelection(cmd *cobra.Command) sigasm.TargetSelection {
	if len(generateTargets) > 0 {
		return sigasm.Targets(generateTargets...)
	}
	switch {
	case flagTrue(cmd, "all"):
		return sigasm.BulkTargets(sigasm.BulkAll)
	case flagTrue(cmd, "all-jumps"):
		return sigasm.BulkTargets(sigasm.BulkAllJumps)
	case flagTrue(cmd, "all-calls"):
		return sigasm.BulkTargets(sigasm.BulkAllCalls)
	default:
		return sigasm.BulkTargets(sigasm.BulkAllLabeled)
	}
}

func flagTrue(cmd *cobra.Command, name string) bool {
	v, err := cmd.Flags().GetBool(name)
	return err == nil && v
}

// resolveSignatureOptions overlays the loaded config with any flags the
// caller explicitly set, per spec's defaults -> config -> flags order.
func resolveSignatureOptions(cmd *cobra.Command) sigasm.SignatureOptions {
	opts := loadedConfig.SignatureOptions()

	if cmd.Flags().Changed("min-length") {
		opts.MinLength = genMinLength
	}
	if cmd.Flags().Changed("max-length") {
		opts.MaxLength = genMaxLength
	}
	if cmd.Flags().Changed("variants") {
		opts.Variants = genVariants
	}
	if cmd.Flags().Changed("context-before") {
		opts.ContextBefore = genContextBefore
	}
	if cmd.Flags().Changed("context-after") {
		opts.ContextAfter = genContextAfter
	}

	rules := opts.WildcardRules
	if cmd.Flags().Changed("wildcard-relative-jumps") {
		rules.RelativeJumps = genWildcardRelativeJumps
	}
	if cmd.Flags().Changed("wildcard-relative-calls") {
		rules.RelativeCalls = genWildcardRelativeCalls
	}
	if cmd.Flags().Changed("wildcard-stack-offsets") {
		rules.StackOffsets = genWildcardStackOffsets
	}
	if cmd.Flags().Changed("wildcard-global-addresses") {
		rules.GlobalAddresses = genWildcardGlobalAddresses
	}
	if cmd.Flags().Changed("wildcard-immediates") {
		rules.Immediates = genWildcardImmediates
	}
	if cmd.Flags().Changed("wildcard-struct-offsets") {
		rules.StructOffsets = genWildcardStructOffsets
	}
	if cmd.Flags().Changed("wildcard-memory-displacements") {
		rules.MemoryDisplacements = genWildcardMemoryDisps
	}
	opts.WildcardRules = rules

	return opts.Clamp()
}

func runGenerate(cmd *cobra.Command, path string) error {
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
	matches := target.Resolve(result.Instructions, resolveTargetSelection(cmd))
	if len(matches) == 0 {
		// batch's documented fallback: prefer every labeled instruction,
		// else every jump, before giving up entirely.
		if hasAnyLabel(result.Instructions) {
			matches = target.Resolve(result.Instructions, sigasm.BulkTargets(sigasm.BulkAllLabeled))
		} else {
			matches = target.Resolve(result.Instructions, sigasm.BulkTargets(sigasm.BulkAllJumps))
		}
	}
	if len(matches) == 0 {
		ctx.Error(ctx.LocSource(), "no targets found: ensure input contains labels, jumps, or calls")
	}
	if ctx.HasErrors() {
		return fmt.Errorf("no targets found: ensure input contains labels, jumps, or calls")
	}

	options := resolveSignatureOptions(cmd)
	generated := make(map[string][]sigasm.GeneratedSignature, len(matches))

	for _, m := range matches {
		variants := signature.Generate(result.Instructions, m.Index, options)
		if len(variants) == 0 {
			ctx.Warning(debugcontext.Loc(path, m.Index, result.Instructions[m.Index].Address),
				fmt.Sprintf("no signature variants generated for target %q", m.Name))
			continue
		}
		generated[m.Name] = variants

		cmd.Printf("=== %s ===\n", m.Name)
		for i, v := range variants {
			cmd.Printf("  variant %d: %s  (%.0f%% unique, %s stability, %s)\n",
				i+1, v.Pattern, v.UniquenessScore*100, v.Stability, v.Strategy)
		}
	}

	if genJSONOut != "" {
		data, err := json.MarshalIndent(generated, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding signature set: %w", err)
		}
		if err := os.WriteFile(genJSONOut, data, 0o644); err != nil {
			return fmt.Errorf("writing signature set: %w", err)
		}
	}

	return nil
}

func hasAnyLabel(instructions []sigasm.Instruction) bool {
	for _, inst := range instructions {
		if inst.HasLabel() {
			return true
		}
	}
	return false
}
