// Package encoding locates the byte offsets inside an instruction's raw
// bytes that encode a volatile field: relative jump/call displacements,
// ModR/M-addressed memory displacements, global moffs32 operands,
// best-effort immediates and struct offsets. It never reads or writes
// sigasm.Instruction.WildcardPositions itself; callers assemble the
// primary set from the functions below.
package encoding

import "strings"

// shortJumpOpcodes are the one-byte opcodes with an 8-bit relative
// displacement: EB, 70..7F, E0..E3.
func isShortJumpOpcode(b byte) bool {
	if b == 0xEB {
		return true
	}
	if b >= 0x70 && b <= 0x7F {
		return true
	}
	return b >= 0xE0 && b <= 0xE3
}

// Primary computes the always-on wildcard set for an instruction: short
// and near relative control-transfer offsets plus global moffs32 operands.
// Memory displacements are folded in only when the operand text indicates
// a stack reference (ebp/esp) or a normalized ds:[ form, matching spec
// §4.2's "Memory displacements via ModR/M" gate.
func Primary(bytes []byte, operands string) []int {
	set := map[int]bool{}
	size := len(bytes)

	switch {
	case size == 2 && isShortJumpOpcode(bytes[0]):
		set[1] = true

	case size == 5 && (bytes[0] == 0xE8 || bytes[0] == 0xE9):
		for _, p := range []int{1, 2, 3, 4} {
			set[p] = true
		}

	case size == 6 && bytes[0] == 0x0F && bytes[1] >= 0x80 && bytes[1] <= 0x8F:
		for _, p := range []int{2, 3, 4, 5} {
			set[p] = true
		}

	case size == 5 && (bytes[0] == 0xA1 || bytes[0] == 0xA3):
		for _, p := range []int{1, 2, 3, 4} {
			set[p] = true
		}
	}

	if isStackOperand(operands) {
		for _, p := range modrmDisplacementPositions(bytes) {
			set[p] = true
		}
	}

	return sortedKeys(set)
}

// isStackOperand reports whether the operand text references the stack
// frame or a previously normalized global data reference.
func isStackOperand(operands string) bool {
	return strings.Contains(operands, "ebp") ||
		strings.Contains(operands, "esp") ||
		strings.Contains(operands, "ds:[")
}

// StackDisplacementPositions returns the ModR/M displacement byte
// offsets for instructions whose operand text references ebp/esp.
func StackDisplacementPositions(bytes []byte, operands string) []int {
	if !strings.Contains(operands, "ebp") && !strings.Contains(operands, "esp") {
		return nil
	}
	return modrmDisplacementPositions(bytes)
}

// GlobalAddressPositions returns the wildcard positions for a global
// data reference: either the moffs32 form (A1/A3) or a ds:[ ModR/M form.
func GlobalAddressPositions(bytes []byte, operands string) []int {
	size := len(bytes)
	if size == 5 && (bytes[0] == 0xA1 || bytes[0] == 0xA3) {
		return []int{1, 2, 3, 4}
	}
	if strings.Contains(operands, "ds:[") {
		return modrmDisplacementPositions(bytes)
	}
	return nil
}

// structOffsetMnemonics is not needed: struct-offset detection is purely
// operand-text driven (spec §4.2).

// StructOffsetPositions returns the ModR/M displacement positions for an
// instruction whose operand text looks like a struct-member access:
// contains '[' and '+' but neither 'ebp' nor 'esp'.
func StructOffsetPositions(bytes []byte, operands string) []int {
	if !strings.Contains(operands, "[") || !strings.Contains(operands, "+") {
		return nil
	}
	if strings.Contains(operands, "ebp") || strings.Contains(operands, "esp") {
		return nil
	}
	return modrmDisplacementPositions(bytes)
}

// immediateMnemonics are the arithmetic/logic mnemonics spec §4.2 allows
// best-effort immediate detection for.
var immediateMnemonics = map[string]bool{
	"add": true, "sub": true, "cmp": true, "and": true,
	"or": true, "xor": true, "test": true,
}

// ImmediatePositions applies the best-effort immediate heuristic: for an
// arithmetic/logic mnemonic whose operand text has a comma whose
// right-hand side begins with a digit, "0x", or "-", treat the trailing
// bytes of the instruction as an immediate.
func ImmediatePositions(mnemonic string, bytes []byte, operands string) []int {
	if !immediateMnemonics[mnemonic] {
		return nil
	}
	idx := strings.LastIndex(operands, ",")
	if idx < 0 {
		return nil
	}
	rhs := strings.TrimSpace(operands[idx+1:])
	if rhs == "" {
		return nil
	}
	first := rhs[0]
	isImmediateStart := (first >= '0' && first <= '9') ||
		strings.HasPrefix(rhs, "0x") || strings.HasPrefix(rhs, "0X") ||
		first == '-'
	if !isImmediateStart {
		return nil
	}

	size := len(bytes)
	switch {
	case size >= 6:
		return []int{size - 4, size - 3, size - 2, size - 1}
	case size >= 3:
		return []int{size - 1}
	}
	return nil
}

// modrmDisplacementPositions decodes the ModR/M (and, if present, SIB)
// bytes of an instruction and returns the byte offsets of its
// displacement field, per spec §4.2's decoding rules. Returns nil if the
// instruction is too short to contain a ModR/M byte at the computed
// offset.
func modrmDisplacementPositions(bytes []byte) []int {
	offset := 1
	if len(bytes) == 0 {
		return nil
	}

	switch {
	case bytes[0] == 0x0F:
		offset = 2
	case bytes[0] == 0xF2 || bytes[0] == 0xF3 || bytes[0] == 0x66:
		offset = 2
		if len(bytes) > 1 && bytes[1] == 0x0F {
			offset = 3
		}
	}

	if offset >= len(bytes) {
		return nil
	}
	modrm := bytes[offset]
	mod := (modrm >> 6) & 3
	rm := modrm & 7

	dispStart := offset + 1
	if mod != 3 && rm == 4 {
		// SIB byte follows ModR/M; displacement begins one byte later.
		dispStart++
	}

	var size int
	switch {
	case mod == 1:
		size = 1
	case mod == 2:
		size = 4
	case mod == 0 && rm == 5:
		size = 4
	default:
		size = 0
	}
	if size == 0 {
		return nil
	}

	end := dispStart + size
	if end > len(bytes) {
		end = len(bytes)
	}
	if dispStart >= end {
		return nil
	}

	positions := make([]int, 0, end-dispStart)
	for p := dispStart; p < end; p++ {
		positions = append(positions, p)
	}
	return positions
}

func sortedKeys(set map[int]bool) []int {
	out := make([]int, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}
