package encoding_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/keurnel/sigforge/internal/sigasm/encoding"
)

func TestPrimary_NearConditionalJump(t *testing.T) {
	// je apr24.2020.B2802F -> 0F 84 79 05 00 00
	bytes := []byte{0x0F, 0x84, 0x79, 0x05, 0x00, 0x00}
	got := encoding.Primary(bytes, "apr24.2020.B2802F")
	assert.Equal(t, []int{2, 3, 4, 5}, got)
}

func TestPrimary_NearCallAndJump(t *testing.T) {
	call := []byte{0xE8, 0x01, 0x02, 0x03, 0x04}
	assert.Equal(t, []int{1, 2, 3, 4}, encoding.Primary(call, "target"))

	jmp := []byte{0xE9, 0x01, 0x02, 0x03, 0x04}
	assert.Equal(t, []int{1, 2, 3, 4}, encoding.Primary(jmp, "target"))
}

func TestPrimary_ShortJump(t *testing.T) {
	bytes := []byte{0xEB, 0x10}
	assert.Equal(t, []int{1}, encoding.Primary(bytes, "target"))
}

func TestPrimary_Moffs32(t *testing.T) {
	bytes := []byte{0xA1, 0x01, 0x02, 0x03, 0x04}
	assert.Equal(t, []int{1, 2, 3, 4}, encoding.Primary(bytes, "dword ptr ds:[401000]"))
}

func TestPrimary_StackDisplacementFoldedIn(t *testing.T) {
	// mov ecx,dword ptr ss:[ebp-1D4] -> 8B 8D 2C FE FF FF
	bytes := []byte{0x8B, 0x8D, 0x2C, 0xFE, 0xFF, 0xFF}
	got := encoding.Primary(bytes, "ecx,dword ptr ss:[ebp-1D4]")
	assert.Equal(t, []int{2, 3, 4, 5}, got)
}

func TestPrimary_NoStackNoControlFlow(t *testing.T) {
	// sub ecx,edx -> 2B CA, register-to-register
	bytes := []byte{0x2B, 0xCA}
	assert.Empty(t, encoding.Primary(bytes, "ecx,edx"))
}

func TestStackDisplacementPositions(t *testing.T) {
	bytes := []byte{0x89, 0x8D, 0x34, 0xFC, 0xFF, 0xFF} // mov [ebp-3CC],ecx
	got := encoding.StackDisplacementPositions(bytes, "dword ptr ss:[ebp-3CC],ecx")
	assert.Equal(t, []int{2, 3, 4, 5}, got)

	assert.Nil(t, encoding.StackDisplacementPositions(bytes, "eax,ecx"))
}

func TestGlobalAddressPositions(t *testing.T) {
	moffs := []byte{0xA3, 0x01, 0x02, 0x03, 0x04}
	assert.Equal(t, []int{1, 2, 3, 4}, encoding.GlobalAddressPositions(moffs, "dword ptr ds:[401000],eax"))

	modrm := []byte{0x8B, 0x0D, 0x01, 0x02, 0x03, 0x04} // mov ecx,dword ptr ds:[402010]
	got := encoding.GlobalAddressPositions(modrm, "ecx,dword ptr ds:[402010]")
	assert.Equal(t, []int{2, 3, 4, 5}, got)

	assert.Nil(t, encoding.GlobalAddressPositions([]byte{0x2B, 0xCA}, "eax,ecx"))
}

func TestStructOffsetPositions(t *testing.T) {
	// mov eax,dword ptr [esi+8] would be a stack-excluded struct access
	bytes := []byte{0x8B, 0x46, 0x08}
	got := encoding.StructOffsetPositions(bytes, "eax,dword ptr [esi+8]")
	assert.Equal(t, []int{2}, got)

	// ebp-relative is excluded: it is a stack displacement, not a struct offset
	assert.Nil(t, encoding.StructOffsetPositions(bytes, "eax,dword ptr [ebp+8]"))
}

func TestImmediatePositions(t *testing.T) {
	// add ecx,6CC -> 81 C1 CC 06 00 00
	bytes := []byte{0x81, 0xC1, 0xCC, 0x06, 0x00, 0x00}
	got := encoding.ImmediatePositions("add", bytes, "ecx,6CC")
	assert.Equal(t, []int{2, 3, 4, 5}, got)
}

func TestImmediatePositions_ShortForm(t *testing.T) {
	// cmp dword ptr ds:[ecx],1 -> 83 39 01
	bytes := []byte{0x83, 0x39, 0x01}
	got := encoding.ImmediatePositions("cmp", bytes, "dword ptr ds:[ecx],1")
	assert.Equal(t, []int{2}, got)
}

func TestImmediatePositions_NonImmediateMnemonic(t *testing.T) {
	bytes := []byte{0x8B, 0xC1}
	assert.Nil(t, encoding.ImmediatePositions("mov", bytes, "eax,ecx"))
}

func TestImmediatePositions_RegisterOperandNotTreatedAsImmediate(t *testing.T) {
	bytes := []byte{0x2B, 0xCA}
	assert.Nil(t, encoding.ImmediatePositions("sub", bytes, "ecx,edx"))
}
