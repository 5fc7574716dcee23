package classify_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/keurnel/sigforge/internal/sigasm"
	"github.com/keurnel/sigforge/internal/sigasm/classify"
)

func TestCategory_KnownMnemonics(t *testing.T) {
	tests := []struct {
		mnemonic string
		want     sigasm.Category
	}{
		{"je", sigasm.CategoryConditionalJump},
		{"JNE", sigasm.CategoryConditionalJump},
		{"jmp", sigasm.CategoryUnconditionalJump},
		{"call", sigasm.CategoryCall},
		{"retn", sigasm.CategoryReturn},
		{"mov", sigasm.CategoryMov},
		{"lea", sigasm.CategoryMov},
		{"add", sigasm.CategoryArithmetic},
		{"xor", sigasm.CategoryLogic},
		{"cmp", sigasm.CategoryCompare},
		{"push", sigasm.CategoryStack},
		{"fld", sigasm.CategoryFloat},
		{"scasb", sigasm.CategoryString},
		{"nop", sigasm.CategoryOther},
	}

	for _, tt := range tests {
		t.Run(tt.mnemonic, func(t *testing.T) {
			assert.Equal(t, tt.want, classify.Category(tt.mnemonic))
		})
	}
}

func TestCategory_OverlappingMnemonicKeepsFirstListed(t *testing.T) {
	// movsd appears in both the mov and string tables; mov is listed
	// first so it must win.
	assert.Equal(t, sigasm.CategoryMov, classify.Category("movsd"))

	// addss/subss/mulss/divss appear in both arithmetic and float;
	// arithmetic is listed first.
	assert.Equal(t, sigasm.CategoryArithmetic, classify.Category("addss"))
}

func TestCategory_CaseInsensitive(t *testing.T) {
	assert.Equal(t, classify.Category("mov"), classify.Category("MOV"))
	assert.Equal(t, classify.Category("mov"), classify.Category("Mov"))
}

func TestVolatility_ControlFlowIsAlwaysHighOperand(t *testing.T) {
	for _, cat := range []sigasm.Category{
		sigasm.CategoryConditionalJump,
		sigasm.CategoryUnconditionalJump,
		sigasm.CategoryCall,
	} {
		v := classify.Volatility(cat, "apr24.2020.B2802F")
		assert.Equal(t, sigasm.LevelLow, v.Opcode)
		assert.Equal(t, sigasm.LevelHigh, v.Operand)
	}
}

func TestVolatility_Mov(t *testing.T) {
	tests := []struct {
		name     string
		operands string
		want     sigasm.Level
	}{
		{"ebp relative", "dword ptr ss:[ebp-1D4]", sigasm.LevelHigh},
		{"esp relative", "dword ptr ss:[esp+8]", sigasm.LevelHigh},
		{"global memory with displacement", "dword ptr ds:[eax+4]", sigasm.LevelMedium},
		{"plain bracketed memory", "dword ptr ds:[eax]", sigasm.LevelHigh},
		{"register to register", "ecx,edx", sigasm.LevelLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := classify.Volatility(sigasm.CategoryMov, tt.operands)
			assert.Equal(t, tt.want, v.Operand)
		})
	}
}

func TestVolatility_Arithmetic(t *testing.T) {
	withDigit := classify.Volatility(sigasm.CategoryArithmetic, "ecx,6CC")
	assert.Equal(t, sigasm.LevelMedium, withDigit.Operand)

	noDigit := classify.Volatility(sigasm.CategoryArithmetic, "eax,ecx")
	assert.Equal(t, sigasm.LevelLow, noDigit.Operand)
}

func TestVolatility_OpcodeNeverRaised(t *testing.T) {
	v := classify.Volatility(sigasm.CategoryCall, "apr24.2020.B2802F")
	assert.Equal(t, sigasm.LevelLow, v.Opcode)
}
