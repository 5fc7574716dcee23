// Package signature generates multi-strategy byte-pattern signatures for
// a target instruction: nine named wildcard-rule presets, eleven context
// window variations and eight anchor shifts, deduplicated by pattern
// similarity and sorted by uniqueness (spec §4.4).
package signature

import (
	"fmt"
	"sort"
	"strings"

	"github.com/keurnel/sigforge/internal/sigasm"
	"github.com/keurnel/sigforge/internal/sigasm/encoding"
)

type contextVariation struct {
	before int
	after  int
}

// contextVariations is the fixed ordered set of (context_before,
// context_after) pairs spec §4.4 mandates.
var contextVariations = []contextVariation{
	{0, 10}, {0, 15}, {0, 20}, {0, 30}, {0, 40},
	{2, 12}, {3, 18}, {5, 25},
	{5, 10}, {8, 15}, {10, 20},
}

// anchorShifts is the fixed ordered set of index offsets tried when
// shifting the anchor to a neighboring stable instruction.
var anchorShifts = []int{-4, -3, -2, -1, 1, 2, 3, 4}

// stableAnchorCategories are the categories an anchor-shift candidate
// must belong to in order to be tried.
var stableAnchorCategories = map[sigasm.Category]bool{
	sigasm.CategoryMov:        true,
	sigasm.CategoryCompare:    true,
	sigasm.CategoryLogic:      true,
	sigasm.CategoryArithmetic: true,
	sigasm.CategoryStack:      true,
}

func namedRulePreset(name string) sigasm.WildcardRules {
	switch name {
	case "Minimal":
		return sigasm.WildcardRules{RelativeJumps: true, RelativeCalls: true}
	case "Balanced":
		return sigasm.WildcardRules{
			RelativeJumps: true, RelativeCalls: true,
			StackOffsets: true, GlobalAddresses: true, StructOffsets: true,
		}
	case "Aggressive", "Max Stability":
		return sigasm.WildcardRules{
			RelativeJumps: true, RelativeCalls: true,
			StackOffsets: true, GlobalAddresses: true,
			Immediates: true, StructOffsets: true, MemoryDisplacements: true,
		}
	case "Stack Focus":
		return sigasm.WildcardRules{RelativeJumps: true, RelativeCalls: true, StackOffsets: true}
	case "Global Focus":
		return sigasm.WildcardRules{RelativeJumps: true, RelativeCalls: true, GlobalAddresses: true}
	case "Memory Heavy":
		return sigasm.WildcardRules{
			RelativeJumps: true, RelativeCalls: true,
			StackOffsets: true, GlobalAddresses: true,
			StructOffsets: true, MemoryDisplacements: true,
		}
	case "Immediates Only":
		return sigasm.WildcardRules{RelativeJumps: true, RelativeCalls: true, Immediates: true}
	default:
		panic("signature: unknown rule preset " + name)
	}
}

// Generate produces up to options.Variants distinct signatures anchored
// at target_idx: nine rule-preset candidates, eleven context-window
// candidates and up to eight anchor-shift candidates, deduplicated by
// pattern similarity and sorted by uniqueness descending.
func Generate(instructions []sigasm.Instruction, targetIdx int, options sigasm.SignatureOptions) []sigasm.GeneratedSignature {
	if targetIdx < 0 || targetIdx >= len(instructions) {
		return nil
	}

	var variants []sigasm.GeneratedSignature

	for _, name := range []string{
		"Minimal", "Conservative", "Balanced", "Aggressive",
		"Stack Focus", "Global Focus", "Memory Heavy",
		"Max Stability", "Immediates Only",
	} {
		rules := options.WildcardRules
		if name != "Conservative" {
			rules = namedRulePreset(name)
		}
		if v := generateWithRules(instructions, targetIdx, rules, options, name); v != nil {
			variants = append(variants, *v)
		}
	}

	for _, cv := range contextVariations {
		modified := options
		modified.ContextBefore = cv.before
		modified.ContextAfter = cv.after
		label := fmt.Sprintf("Context %d/%d", cv.before, cv.after)
		if v := generateWithRules(instructions, targetIdx, options.WildcardRules, modified, label); v != nil {
			variants = append(variants, *v)
		}
	}

	for _, shift := range anchorShifts {
		shiftedIdx := targetIdx + shift
		if shiftedIdx < 0 || shiftedIdx >= len(instructions) {
			continue
		}
		if !stableAnchorCategories[instructions[shiftedIdx].Category] {
			continue
		}
		label := fmt.Sprintf("Anchor %+d", shift)
		if v := generateWithRules(instructions, shiftedIdx, options.WildcardRules, options, label); v != nil {
			variants = append(variants, *v)
		}
	}

	unique := similarityDeduplicate(variants, 0.25)
	sort.SliceStable(unique, func(i, j int) bool {
		return unique[i].UniquenessScore > unique[j].UniquenessScore
	})

	if len(unique) > options.Variants {
		unique = unique[:options.Variants]
	}
	return unique
}

type windowByte struct {
	value     byte
	posInInst int
	inst      sigasm.Instruction
}

// generateWithRules builds one candidate signature by the window
// construction algorithm of spec §4.4 steps 1-6, returning nil if the
// window is empty or shorter than options.MinLength.
func generateWithRules(
	instructions []sigasm.Instruction,
	targetIdx int,
	rules sigasm.WildcardRules,
	options sigasm.SignatureOptions,
	strategy string,
) *sigasm.GeneratedSignature {
	if targetIdx < 0 || targetIdx >= len(instructions) {
		return nil
	}

	startIdx := targetIdx - options.ContextBefore
	if startIdx < 0 {
		startIdx = 0
	}

	var window []windowByte
	for idx := startIdx; idx < len(instructions) && len(window) < options.MaxLength; idx++ {
		inst := instructions[idx]
		for pos, b := range inst.Bytes {
			if len(window) >= options.MaxLength {
				break
			}
			window = append(window, windowByte{value: b, posInInst: pos, inst: inst})
		}
	}

	if len(window) < options.MinLength {
		return nil
	}

	capped := len(window)
	if options.MaxLength < capped {
		capped = options.MaxLength
	}
	targetLength := options.MinLength
	if capped > targetLength {
		targetLength = capped
	}
	window = window[:targetLength]

	patternBytes := make([]*byte, len(window))
	var wildcardPositions []int
	var wildcardReasons []sigasm.WildcardReason

	for i, wb := range window {
		reasonType, reasonDetail, wildcard := classifyWildcard(wb, rules)
		if wildcard {
			patternBytes[i] = nil
			wildcardPositions = append(wildcardPositions, i)
			wildcardReasons = append(wildcardReasons, sigasm.WildcardReason{
				Position:           i,
				Reason:             reasonType,
				Detail:             reasonDetail,
				InstructionAddress: wb.inst.Address,
			})
		} else {
			value := wb.value
			patternBytes[i] = &value
		}
	}

	pattern, mask := renderPatternAndMask(patternBytes)

	wildcardCount := len(wildcardPositions)
	totalBytes := len(patternBytes)

	uniqueness := calculateUniqueness(patternBytes)
	stability := calculateStability(wildcardCount, totalBytes, instructions[targetIdx])

	var startAddress, endAddress string
	if len(window) > 0 {
		startAddress = window[0].inst.Address
		endAddress = window[len(window)-1].inst.Address
	}

	description := generateDescription(strategy, rules, wildcardCount, totalBytes)
	summary := generateWildcardSummary(wildcardReasons, strategy)

	return &sigasm.GeneratedSignature{
		Pattern:           pattern,
		Mask:              mask,
		Bytes:             patternBytes,
		Description:       description,
		Length:            totalBytes,
		WildcardCount:     wildcardCount,
		WildcardPositions: wildcardPositions,
		WildcardReasons:   wildcardReasons,
		UniquenessScore:   uniqueness,
		Stability:         stability,
		StartAddress:      startAddress,
		EndAddress:        endAddress,
		Strategy:          strategy,
		Summary:           summary,
	}
}

// classifyWildcard applies the first-match wildcard rules of spec
// §4.4 step 5 to a single window byte.
func classifyWildcard(wb windowByte, rules sigasm.WildcardRules) (reasonType, reasonDetail string, wildcard bool) {
	inWildcardSet := false
	for _, p := range wb.inst.WildcardPositions {
		if p == wb.posInInst {
			inWildcardSet = true
			break
		}
	}

	if inWildcardSet {
		switch wb.inst.Category {
		case sigasm.CategoryConditionalJump, sigasm.CategoryUnconditionalJump:
			if rules.RelativeJumps {
				return "relative_jump", "Relative jump offset - changes when code moves", true
			}
		case sigasm.CategoryCall:
			if rules.RelativeCalls {
				return "relative_call", "Relative call offset - target address changes between builds", true
			}
		}
	}

	if rules.StackOffsets {
		if containsPos(encoding.StackDisplacementPositions(wb.inst.Bytes, wb.inst.Operands), wb.posInInst) {
			return "stack_offset", "Stack frame offset [ebp/esp+X] - varies with local variables", true
		}
	}

	if rules.GlobalAddresses {
		if containsPos(encoding.GlobalAddressPositions(wb.inst.Bytes, wb.inst.Operands), wb.posInInst) {
			return "global_address", "Global/absolute address - changes due to ASLR or relocation", true
		}
	}

	if rules.Immediates {
		if containsPos(encoding.ImmediatePositions(wb.inst.Mnemonic, wb.inst.Bytes, wb.inst.Operands), wb.posInInst) {
			return "immediate", "Immediate value - may change between versions", true
		}
	}

	if rules.StructOffsets {
		if containsPos(encoding.StructOffsetPositions(wb.inst.Bytes, wb.inst.Operands), wb.posInInst) {
			return "struct_offset", "Structure offset [reg+X] - changes if struct layout changes", true
		}
	}

	return "", "", false
}

func containsPos(positions []int, p int) bool {
	for _, q := range positions {
		if q == p {
			return true
		}
	}
	return false
}

func renderPatternAndMask(patternBytes []*byte) (string, string) {
	tokens := make([]string, len(patternBytes))
	mask := make([]byte, len(patternBytes))
	for i, b := range patternBytes {
		if b == nil {
			tokens[i] = "??"
			mask[i] = '?'
		} else {
			tokens[i] = fmt.Sprintf("%02X", *b)
			mask[i] = 'x'
		}
	}
	return strings.Join(tokens, " "), string(mask)
}

// calculateUniqueness implements spec §4.4's uniqueness formula.
func calculateUniqueness(patternBytes []*byte) float64 {
	total := len(patternBytes)
	if total == 0 {
		return 0.0
	}

	wildcards := 0
	for _, b := range patternBytes {
		if b == nil {
			wildcards++
		}
	}
	concrete := total - wildcards

	baseUniqueness := float64(concrete) / float64(total)
	lengthBonus := float64(total) / 50
	if lengthBonus > 0.2 {
		lengthBonus = 0.2
	}

	maxConsecutive := maxConsecutiveWildcards(patternBytes)
	consecutivePenalty := float64(maxConsecutive) / 10
	if consecutivePenalty > 0.3 {
		consecutivePenalty = 0.3
	}

	score := baseUniqueness + lengthBonus - consecutivePenalty
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return roundTo2(score)
}

func maxConsecutiveWildcards(patternBytes []*byte) int {
	max, current := 0, 0
	for _, b := range patternBytes {
		if b == nil {
			current++
			if current > max {
				max = current
			}
		} else {
			current = 0
		}
	}
	return max
}

func roundTo2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}

// calculateStability implements spec §4.4's stability rule.
func calculateStability(wildcardCount, totalBytes int, target sigasm.Instruction) string {
	var ratio float64
	if totalBytes > 0 {
		ratio = float64(wildcardCount) / float64(totalBytes)
	}

	high := target.Volatility.Operand == sigasm.LevelHigh

	switch {
	case ratio >= 0.3 && high:
		return "high"
	case ratio >= 0.15 || high:
		return "medium"
	default:
		return "low"
	}
}

// similarityDeduplicate keeps only candidates at least `threshold`
// different from every already-kept candidate (spec §4.4).
func similarityDeduplicate(variants []sigasm.GeneratedSignature, threshold float64) []sigasm.GeneratedSignature {
	if len(variants) == 0 {
		return nil
	}

	unique := []sigasm.GeneratedSignature{variants[0]}
	for _, candidate := range variants[1:] {
		keep := true
		for _, existing := range unique {
			if PatternSimilarity(candidate.Pattern, existing.Pattern) > 1-threshold {
				keep = false
				break
			}
		}
		if keep {
			unique = append(unique, candidate)
		}
	}
	return unique
}

// PatternSimilarity scores two space-separated token patterns on
// [0,1]: equal tokens score 1, either token "??" scores 0.5, else 0;
// divided by the longer token count (shorter pattern padded with "??").
func PatternSimilarity(pattern1, pattern2 string) float64 {
	tokens1 := strings.Fields(pattern1)
	tokens2 := strings.Fields(pattern2)

	maxLen := len(tokens1)
	if len(tokens2) > maxLen {
		maxLen = len(tokens2)
	}
	if maxLen == 0 {
		return 1.0
	}

	for len(tokens1) < maxLen {
		tokens1 = append(tokens1, "??")
	}
	for len(tokens2) < maxLen {
		tokens2 = append(tokens2, "??")
	}

	matches := 0.0
	for i := 0; i < maxLen; i++ {
		switch {
		case tokens1[i] == tokens2[i]:
			matches += 1
		case tokens1[i] == "??" || tokens2[i] == "??":
			matches += 0.5
		}
	}
	return matches / float64(maxLen)
}

// generateDescription builds the human-readable strategy description
// ported from the reference implementation's generate_description.
func generateDescription(strategy string, rules sigasm.WildcardRules, wildcardCount, totalBytes int) string {
	parts := []string{strategy}

	var wildcarded []string
	if rules.RelativeJumps {
		wildcarded = append(wildcarded, "jumps")
	}
	if rules.RelativeCalls {
		wildcarded = append(wildcarded, "calls")
	}
	if rules.StackOffsets {
		wildcarded = append(wildcarded, "stack")
	}
	if rules.GlobalAddresses {
		wildcarded = append(wildcarded, "globals")
	}
	if rules.Immediates {
		wildcarded = append(wildcarded, "immediates")
	}
	if rules.StructOffsets {
		wildcarded = append(wildcarded, "structs")
	}

	if len(wildcarded) > 0 {
		parts = append(parts, fmt.Sprintf("wildcards: %s", strings.Join(wildcarded, ", ")))
	}
	parts = append(parts, fmt.Sprintf("%d/%d bytes wildcarded", wildcardCount, totalBytes))

	return strings.Join(parts, " - ")
}

var strategyDescriptions = map[string]string{
	"Minimal":      "Uses minimal wildcarding for maximum uniqueness.",
	"Conservative": "Balances stability with uniqueness.",
	"Aggressive":   "Wildcards aggressively for maximum stability across updates.",
}

// generateWildcardSummary ports generate_wildcard_summary.
func generateWildcardSummary(reasons []sigasm.WildcardReason, strategy string) string {
	if len(reasons) == 0 {
		return "No wildcards needed - all bytes are stable across builds."
	}

	counts := map[string]int{}
	for _, r := range reasons {
		counts[r.Reason]++
	}

	var parts []string
	switch {
	case strategyDescriptions[strategy] != "":
		parts = append(parts, strategyDescriptions[strategy])
	case strings.HasPrefix(strategy, "Context"):
		parts = append(parts, "Adjusted context window for better anchoring.")
	case strings.HasPrefix(strategy, "Anchor"):
		parts = append(parts, "Shifted anchor point to a more stable instruction.")
	}

	var explanations []string
	addExplanation := func(reason, noun string) {
		n, ok := counts[reason]
		if !ok {
			return
		}
		plural := ""
		if n > 1 {
			plural = "s"
		}
		explanations = append(explanations, fmt.Sprintf("%d byte%s for %s", n, plural, noun))
	}
	addExplanation("relative_jump", "relative jump offsets (change when code is relocated)")
	addExplanation("relative_call", "relative call targets (function addresses vary)")
	addExplanation("stack_offset", "stack offsets (local variable positions may change)")
	addExplanation("global_address", "global addresses (affected by ASLR/relocation)")
	addExplanation("immediate", "immediate values (constants that may change)")
	addExplanation("struct_offset", "struct offsets (structure layouts may differ)")

	if len(explanations) > 0 {
		parts = append(parts, "Wildcarded: "+strings.Join(explanations, "; ")+".")
	}

	return strings.Join(parts, " ")
}
