package listing_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keurnel/sigforge/internal/sigasm"
	"github.com/keurnel/sigforge/internal/sigasm/listing"
)

const x64dbgSample = `00B27AB0 | 0F84 79050000 | je apr24.2020.B2802F | Lawnmower_A
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

const ceSample = `Apr24.2020.exe+46751D - 0F84 6D010000 - je Apr24.2020.exe+467690
Apr24.2020.exe+467523 - 83 65 F0 00 - and dword ptr [ebp-10],00
Apr24.2020.exe+467527 - 33 C0 - xor eax,eax`

const hexSample = "0F 84 79 05 00 00 8B 8D 2C FE FF FF 81 C1 CC 06 00 00"

func TestDetectFormat(t *testing.T) {
	assert.Equal(t, listing.FormatPipe, listing.DetectFormat(x64dbgSample))
	assert.Equal(t, listing.FormatDash, listing.DetectFormat(ceSample))
	assert.Equal(t, listing.FormatHex, listing.DetectFormat(hexSample))
}

func TestParse_PipeFormat(t *testing.T) {
	result, err := listing.Parse(x64dbgSample, listing.FormatAuto)
	require.NoError(t, err)

	assert.Equal(t, listing.FormatPipe, result.Format)
	require.Len(t, result.Instructions, 11)
	assert.Equal(t, []string{"Lawnmower_A", "Lawnmower_B"}, result.Labels)

	first := result.Instructions[0]
	assert.Equal(t, "00B27AB0", first.Address)
	assert.Equal(t, "je", first.Mnemonic)
	assert.Equal(t, "apr24.2020.B2802F", first.Operands)
	assert.Equal(t, "Lawnmower_A", first.Label)
	assert.Equal(t, []byte{0x0F, 0x84, 0x79, 0x05, 0x00, 0x00}, first.Bytes)
	assert.Equal(t, sigasm.CategoryConditionalJump, first.Category)
	assert.Equal(t, sigasm.LevelHigh, first.Volatility.Operand)
	assert.Equal(t, []int{2, 3, 4, 5}, first.WildcardPositions)

	last := result.Instructions[10]
	assert.Equal(t, "jne", last.Mnemonic)
	assert.Equal(t, "Lawnmower_B", last.Label)
}

func TestParse_DashFormat(t *testing.T) {
	result, err := listing.Parse(ceSample, listing.FormatAuto)
	require.NoError(t, err)

	assert.Equal(t, listing.FormatDash, result.Format)
	assert.Equal(t, "Apr24.2020.exe", result.Module)
	require.Len(t, result.Instructions, 3)

	first := result.Instructions[0]
	assert.Equal(t, "0046751D", first.Address)
	assert.Equal(t, "Apr24.2020.exe+46751D", first.RawAddress)
	assert.Equal(t, "je", first.Mnemonic)
	assert.Equal(t, "Apr24.2020.exe+467690", first.Operands)
}

func TestParse_HexFormat(t *testing.T) {
	result, err := listing.Parse(hexSample, listing.FormatAuto)
	require.NoError(t, err)

	assert.Equal(t, listing.FormatHex, result.Format)
	require.NotEmpty(t, result.Instructions)

	first := result.Instructions[0]
	assert.Equal(t, "00000000", first.Address)
	assert.Equal(t, "je", first.Mnemonic)
	assert.Equal(t, sigasm.CategoryConditionalJump, first.Category)
}

func TestParse_UnknownFormatHint(t *testing.T) {
	_, err := listing.Parse(x64dbgSample, listing.Format("bogus"))
	assert.Error(t, err)
}

func TestParse_SkipsCommentsAndBlankLines(t *testing.T) {
	input := "// a comment\n\n" + x64dbgSample
	result, err := listing.Parse(input, listing.FormatPipe)
	require.NoError(t, err)
	assert.Len(t, result.Instructions, 11)
}

func TestParse_Stats(t *testing.T) {
	result, err := listing.Parse(x64dbgSample, listing.FormatAuto)
	require.NoError(t, err)

	assert.Equal(t, 11, result.Stats.Total)
	assert.Equal(t, 2, result.Stats.Labeled)
	assert.Greater(t, result.Stats.TotalBytes, 0)
}
