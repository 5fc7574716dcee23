// Package smart implements the smart analyzer: per-instruction anchor
// scoring across three weighted axes (stability, uniqueness, context)
// and contiguous stable-region detection (spec §4.5).
package smart

import (
	"fmt"
	"sort"
	"strings"

	"github.com/keurnel/sigforge/internal/sigasm"
)

// stableCategories are categories generally unchanged across binary
// versions.
var stableCategories = map[sigasm.Category]bool{
	sigasm.CategoryMov:        true,
	sigasm.CategoryCompare:    true,
	sigasm.CategoryLogic:      true,
	sigasm.CategoryArithmetic: true,
	sigasm.CategoryStack:      true,
}

// volatileCategories are categories whose offsets change across builds.
var volatileCategories = map[sigasm.Category]bool{
	sigasm.CategoryConditionalJump:   true,
	sigasm.CategoryUnconditionalJump: true,
	sigasm.CategoryCall:              true,
}

// rareMnemonics are mnemonics distinctive enough to be good anchors.
var rareMnemonics = map[string]bool{
	"xchg": true, "bswap": true, "rol": true, "ror": true, "shld": true, "shrd": true,
	"bt": true, "bts": true, "btr": true, "btc": true,
	"cpuid": true, "rdtsc": true, "prefetch": true, "lfence": true, "mfence": true, "sfence": true,
	"cvtsi2ss": true, "cvtsi2sd": true, "cvtss2sd": true, "cvtsd2ss": true, "cvttss2si": true, "cvttsd2si": true,
	"comiss": true, "comisd": true, "ucomiss": true, "ucomisd": true,
	"pxor": true, "por": true, "pand": true, "pandn": true, "pcmpeqb": true, "pcmpeqd": true,
	"pcmpgtb": true, "pcmpgtd": true,
	"movdqa": true, "movdqu": true, "movaps": true, "movups": true, "movss": true, "movsd": true,
	"shufps": true, "shufpd": true, "unpcklps": true, "unpckhps": true,
}

// commonMnemonics are mnemonics so frequent they make poor anchors.
var commonMnemonics = map[string]bool{
	"mov": true, "push": true, "pop": true, "add": true, "sub": true, "xor": true,
	"cmp": true, "test": true, "jmp": true, "je": true, "jne": true,
	"call": true, "ret": true, "lea": true, "nop": true,
}

func clamp0to100(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// scoreInstruction scores a single instruction across the three axes of
// spec §4.5 and returns the weighted total alongside each axis and
// collected reasons/warnings.
func scoreInstruction(
	inst sigasm.Instruction,
	contextBefore, contextAfter []sigasm.Instruction,
	allInstructions []sigasm.Instruction,
) (total, stability, uniqueness, context float64, reasons, warnings []string) {
	stability = 50.0
	uniqueness = 50.0
	context = 50.0

	// Stability axis.
	switch {
	case stableCategories[inst.Category]:
		stability += 20
		reasons = append(reasons, fmt.Sprintf("%s instructions are version-stable", inst.Category))
	case volatileCategories[inst.Category]:
		stability -= 25
		warnings = append(warnings, fmt.Sprintf("%s has volatile offsets", inst.Category))
	}

	switch inst.Volatility.Operand {
	case sigasm.LevelLow:
		stability += 15
		reasons = append(reasons, "Operands are stable (registers/small immediates)")
	case sigasm.LevelHigh:
		stability -= 20
		warnings = append(warnings, "Operands contain volatile addresses")
	case sigasm.LevelMedium:
		stability -= 5
	}

	switch inst.Volatility.Opcode {
	case sigasm.LevelLow:
		stability += 10
	case sigasm.LevelHigh:
		stability -= 15
		warnings = append(warnings, "Opcode encoding may vary")
	}

	wildcardCount := len(inst.WildcardPositions)
	switch {
	case wildcardCount == 0:
		stability += 15
		reasons = append(reasons, "No wildcards needed in this instruction")
	case wildcardCount <= 2:
		stability += 5
	default:
		stability -= float64(wildcardCount) * 3
		warnings = append(warnings, fmt.Sprintf("Needs %d wildcards", wildcardCount))
	}

	// Uniqueness axis.
	mnemonic := strings.ToLower(inst.Mnemonic)
	switch {
	case rareMnemonics[mnemonic]:
		uniqueness += 25
		reasons = append(reasons, fmt.Sprintf("%s is a rare/distinctive instruction", inst.Mnemonic))
	case commonMnemonics[mnemonic]:
		uniqueness -= 10
	}

	switch {
	case inst.Size() >= 6:
		uniqueness += 15
		reasons = append(reasons, fmt.Sprintf("Long instruction (%d bytes) provides unique pattern", inst.Size()))
	case inst.Size() >= 4:
		uniqueness += 8
	case inst.Size() <= 2:
		uniqueness -= 10
	}

	sameMnemonicCount := 0
	for _, other := range allInstructions {
		if strings.ToLower(other.Mnemonic) == mnemonic {
			sameMnemonicCount++
		}
	}
	switch {
	case sameMnemonicCount == 1:
		uniqueness += 20
		reasons = append(reasons, "Only occurrence of this instruction type")
	case sameMnemonicCount <= 3:
		uniqueness += 10
	case sameMnemonicCount > 10:
		uniqueness -= 15
		warnings = append(warnings, fmt.Sprintf("Common pattern (%d similar instructions)", sameMnemonicCount))
	}

	// Context axis.
	stableBefore, stableAfter, volatileAfter := 0, 0, 0
	for _, i := range contextBefore {
		if stableCategories[i.Category] {
			stableBefore++
		}
	}
	for _, i := range contextAfter {
		if stableCategories[i.Category] {
			stableAfter++
		}
		if volatileCategories[i.Category] {
			volatileAfter++
		}
	}

	if stableBefore >= 2 {
		context += 10
		reasons = append(reasons, "Good stable context before")
	}
	if stableAfter >= 3 {
		context += 15
		reasons = append(reasons, "Strong stable context after")
	}
	if volatileAfter >= 3 {
		context -= 15
		warnings = append(warnings, "Many volatile instructions follow")
	}

	nextFive := contextAfter
	if len(nextFive) > 5 {
		nextFive = nextFive[:5]
	}
	totalContextBytes := 0
	for _, i := range nextFive {
		totalContextBytes += i.Size()
	}
	if totalContextBytes >= 15 {
		context += 10
		reasons = append(reasons, fmt.Sprintf("Good byte density (%d bytes in next 5 instructions)", totalContextBytes))
	}

	if len(contextBefore) < 2 {
		context -= 10
		warnings = append(warnings, "Limited context before")
	}
	if len(contextAfter) < 3 {
		context -= 15
		warnings = append(warnings, "Limited context after")
	}

	stability = clamp0to100(stability)
	uniqueness = clamp0to100(uniqueness)
	context = clamp0to100(context)

	total = stability*0.45 + uniqueness*0.30 + context*0.25
	return total, stability, uniqueness, context, reasons, warnings
}

// findStableRegions locates contiguous runs of stable, low-wildcard
// instructions at least minRegionSize long whose synthetic average
// score meets stabilityThreshold (spec §4.5 "Stable regions").
func findStableRegions(instructions []sigasm.Instruction, minRegionSize int, stabilityThreshold float64) []sigasm.StableRegion {
	var regions []sigasm.StableRegion
	regionStart := -1
	var scores []float64

	flush := func() {
		if regionStart < 0 || len(scores) < minRegionSize {
			return
		}
		sum := 0.0
		for _, s := range scores {
			sum += s
		}
		avg := sum / float64(len(scores))
		if avg < stabilityThreshold {
			return
		}
		endIdx := regionStart + len(scores) - 1
		byteCount := 0
		for j := regionStart; j <= endIdx; j++ {
			byteCount += instructions[j].Size()
		}
		regions = append(regions, sigasm.StableRegion{
			StartIndex:   regionStart,
			EndIndex:     endIdx,
			StartAddress: instructions[regionStart].Address,
			EndAddress:   instructions[endIdx].Address,
			AvgScore:     avg,
			ByteCount:    byteCount,
		})
	}

	for i, inst := range instructions {
		isStable := stableCategories[inst.Category] &&
			inst.Volatility.Operand != sigasm.LevelHigh &&
			len(inst.WildcardPositions) <= 2

		if isStable {
			if regionStart < 0 {
				regionStart = i
				scores = []float64{70.0}
			} else {
				scores = append(scores, 70.0)
			}
			continue
		}

		flush()
		regionStart = -1
		scores = nil
	}
	flush()

	return regions
}

// Analyze scores every instruction, keeps the top max_targets candidates
// scoring at least 40, detects stable regions and builds a textual
// summary (spec §4.5).
func Analyze(instructions []sigasm.Instruction, maxTargets int) sigasm.SmartAnalysisResult {
	if len(instructions) == 0 {
		return sigasm.SmartAnalysisResult{
			AnalysisSummary: "No instructions to analyze",
		}
	}

	var targets []sigasm.SmartTarget
	var allStabilityScores []float64

	for i, inst := range instructions {
		beforeStart := i - 5
		if beforeStart < 0 {
			beforeStart = 0
		}
		contextBefore := instructions[beforeStart:i]

		afterEnd := i + 10
		if afterEnd > len(instructions) {
			afterEnd = len(instructions)
		}
		afterStart := i + 1
		if afterStart > afterEnd {
			afterStart = afterEnd
		}
		contextAfter := instructions[afterStart:afterEnd]

		total, stability, uniqueness, context, reasons, warnings := scoreInstruction(inst, contextBefore, contextAfter, instructions)
		allStabilityScores = append(allStabilityScores, stability)

		if total < 40 {
			continue
		}

		targets = append(targets, sigasm.SmartTarget{
			InstructionIndex: i,
			Address:          inst.Address,
			Mnemonic:         inst.Mnemonic,
			Operands:         inst.Operands,
			Score:            roundTo1(total),
			StabilityScore:   roundTo1(stability),
			UniquenessScore:  roundTo1(uniqueness),
			ContextScore:     roundTo1(context),
			Reasons:          reasons,
			Warnings:         warnings,
		})
	}

	sort.SliceStable(targets, func(i, j int) bool { return targets[i].Score > targets[j].Score })
	if len(targets) > maxTargets {
		targets = targets[:maxTargets]
	}

	stableRegions := findStableRegions(instructions, 3, 60.0)

	avgStability := 0.0
	if len(allStabilityScores) > 0 {
		sum := 0.0
		for _, s := range allStabilityScores {
			sum += s
		}
		avgStability = sum / float64(len(allStabilityScores))
	}

	summary := buildSummary(targets, stableRegions, avgStability)

	return sigasm.SmartAnalysisResult{
		TopTargets:        targets,
		StableRegions:     stableRegions,
		AnalysisSummary:   summary,
		TotalInstructions: len(instructions),
		AvgStability:      roundTo1(avgStability),
	}
}

func buildSummary(targets []sigasm.SmartTarget, regions []sigasm.StableRegion, avgStability float64) string {
	var parts []string

	if len(targets) > 0 {
		best := targets[0]
		parts = append(parts, fmt.Sprintf("Best anchor: %s at %s (score: %.0f/100)", best.Mnemonic, best.Address, best.Score))
	}

	if len(regions) > 0 {
		parts = append(parts, fmt.Sprintf("Found %d stable region(s)", len(regions)))
		largest := regions[0]
		for _, r := range regions[1:] {
			if r.ByteCount > largest.ByteCount {
				largest = r
			}
		}
		parts = append(parts, fmt.Sprintf("Largest stable region: %d bytes (%s to %s)", largest.ByteCount, largest.StartAddress, largest.EndAddress))
	}

	highScoreCount := 0
	for _, t := range targets {
		if t.Score >= 70 {
			highScoreCount++
		}
	}
	switch {
	case highScoreCount >= 3:
		parts = append(parts, fmt.Sprintf("%d excellent anchor candidates found", highScoreCount))
	case highScoreCount == 0:
		parts = append(parts, "Warning: No high-confidence anchors found. Consider providing more context.")
	}

	switch {
	case avgStability < 50:
		parts = append(parts, "Overall code stability is low - signatures may need frequent updates")
	case avgStability >= 70:
		parts = append(parts, "Code appears stable - signatures should be resilient")
	}

	return strings.Join(parts, ". ")
}

func roundTo1(v float64) float64 {
	return float64(int(v*10+0.5)) / 10
}
