package smart_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keurnel/sigforge/internal/sigasm"
	"github.com/keurnel/sigforge/internal/sigasm/listing"
	"github.com/keurnel/sigforge/internal/sigasm/smart"
)

const sampleListing = `00B27AB0 | 0F84 79050000 | je apr24.2020.B2802F | Lawnmower_A
00B27AB6 | 8B8D 2CFEFFFF | mov ecx,dword ptr ss:[ebp-1D4] |
00B27ABC | 81C1 CC060000 | add ecx,6CC |
00B27AC2 | 898D 34FCFFFF | mov dword ptr ss:[ebp-3CC],ecx |
00B27AC8 | 8B95 34FCFFFF | mov edx,dword ptr ss:[ebp-3CC] |
00B27ACE | 81C2 D6660000 | add edx,66D6 |
00B27AD4 | 8B85 34FCFFFF | mov eax,dword ptr ss:[ebp-3CC] |
00B27ADA | 8B08 | mov ecx,dword ptr ds:[eax] |
00B27ADC | 2BCA | sub ecx,edx |
00B27ADE | 8339 01 | cmp dword ptr ds:[ecx],1 |
00B27AE1 | 0F85 48050000 | jne apr24.2020.B2802F | Lawnmower_B`

func parseFixture(t *testing.T) []sigasm.Instruction {
	t.Helper()
	result, err := listing.Parse(sampleListing, listing.FormatAuto)
	require.NoError(t, err)
	return result.Instructions
}

func TestAnalyze_EmptyInput(t *testing.T) {
	result := smart.Analyze(nil, 10)
	assert.Equal(t, "No instructions to analyze", result.AnalysisSummary)
	assert.Empty(t, result.TopTargets)
	assert.Equal(t, 0, result.TotalInstructions)
}

func TestAnalyze_ScoresAndRanksTargets(t *testing.T) {
	instructions := parseFixture(t)
	result := smart.Analyze(instructions, 5)

	assert.Equal(t, len(instructions), result.TotalInstructions)
	assert.LessOrEqual(t, len(result.TopTargets), 5)

	for i := 1; i < len(result.TopTargets); i++ {
		assert.GreaterOrEqual(t, result.TopTargets[i-1].Score, result.TopTargets[i].Score)
	}
	for _, target := range result.TopTargets {
		assert.GreaterOrEqual(t, target.Score, 40.0)
		assert.GreaterOrEqual(t, target.StabilityScore, 0.0)
		assert.LessOrEqual(t, target.StabilityScore, 100.0)
	}
}

func TestAnalyze_JumpInstructionIsVolatile(t *testing.T) {
	instructions := parseFixture(t)
	result := smart.Analyze(instructions, 25)

	for _, target := range result.TopTargets {
		if target.Mnemonic == "je" || target.Mnemonic == "jne" {
			assert.Contains(t, target.Warnings, "conditional_jump has volatile offsets")
		}
	}
}

func TestAnalyze_SummaryMentionsBestAnchor(t *testing.T) {
	instructions := parseFixture(t)
	result := smart.Analyze(instructions, 10)

	if len(result.TopTargets) > 0 {
		assert.Contains(t, result.AnalysisSummary, "Best anchor:")
	}
}
