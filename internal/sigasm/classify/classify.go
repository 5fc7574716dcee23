// Package classify maps x86 mnemonics to the instruction categories used
// throughout the signature pipeline, and derives the coarse volatility
// rating of an instruction from its category and operand text.
//
// The category table is an authoritative enumeration ported from the
// reference implementation's INSTRUCTION_CATEGORIES table. Several
// mnemonics (scalar SSE arithmetic, movsd/movsw/movsb) appear in more
// than one category; the table below preserves insertion order and
// Category returns the first match, exactly as the reference does by
// iterating a Python dict in definition order.
package classify

import (
	"strings"

	"github.com/keurnel/sigforge/internal/sigasm"
)

type categoryEntry struct {
	category  sigasm.Category
	mnemonics []string
}

// table is deliberately a slice, not a map: lookup order must match
// definition order so that overlapping mnemonics resolve to the
// earlier-listed category.
var table = []categoryEntry{
	{sigasm.CategoryConditionalJump, []string{
		"je", "jne", "jz", "jnz", "ja", "jae", "jb", "jbe",
		"jg", "jge", "jl", "jle", "jo", "jno", "js", "jns",
		"jp", "jnp", "jpe", "jpo", "jecxz", "jcxz", "loop",
		"loope", "loopne", "loopz", "loopnz",
	}},
	{sigasm.CategoryUnconditionalJump, []string{"jmp"}},
	{sigasm.CategoryCall, []string{"call"}},
	{sigasm.CategoryReturn, []string{"ret", "retn", "retf", "iret", "iretd"}},
	{sigasm.CategoryMov, []string{
		"mov", "movzx", "movsx", "movss", "movsd", "movaps",
		"movups", "movdqa", "movdqu", "lea", "xchg", "cmove",
		"cmovne", "cmovz", "cmovnz", "cmova", "cmovae", "cmovb",
		"cmovbe", "cmovg", "cmovge", "cmovl", "cmovle", "cmovo",
		"cmovno", "cmovs", "cmovns", "cmovp", "cmovnp", "movsb",
		"movsw", "movsd", "movsq",
	}},
	{sigasm.CategoryArithmetic, []string{
		"add", "sub", "mul", "imul", "div", "idiv", "inc",
		"dec", "neg", "adc", "sbb", "addss", "subss", "mulss",
		"divss", "addsd", "subsd", "mulsd", "divsd",
	}},
	{sigasm.CategoryLogic, []string{
		"and", "or", "xor", "not", "shl", "shr", "sal",
		"sar", "rol", "ror", "rcl", "rcr", "bt", "bts",
		"btr", "btc", "bsf", "bsr",
	}},
	{sigasm.CategoryCompare, []string{"cmp", "test", "comiss", "comisd", "ucomiss", "ucomisd"}},
	{sigasm.CategoryStack, []string{
		"push", "pop", "pusha", "pushad", "popa", "popad",
		"pushf", "pushfd", "popf", "popfd", "enter", "leave",
	}},
	{sigasm.CategoryFloat, []string{
		"fld", "fst", "fstp", "fadd", "fsub", "fmul", "fdiv",
		"fcom", "fcomp", "fcompp", "fcomi", "fcomip", "fucomi",
		"fucomip", "fxch", "fild", "fist", "fistp", "finit",
		"fninit", "fstsw", "fnstsw", "fstcw", "fnstcw", "fldcw",
		"addss", "subss", "mulss", "divss", "addsd", "subsd",
		"mulsd", "divsd", "cvtsi2ss", "cvtsi2sd", "cvtss2si",
		"cvtsd2si", "cvtss2sd", "cvtsd2ss",
	}},
	{sigasm.CategoryString, []string{
		"movs", "cmps", "scas", "lods", "stos", "rep", "repe",
		"repz", "repne", "repnz", "movsb", "movsw", "movsd",
		"cmpsb", "cmpsw", "cmpsd", "scasb", "scasw", "scasd",
		"lodsb", "lodsw", "lodsd", "stosb", "stosw", "stosd",
	}},
}

var lookup map[string]sigasm.Category

func init() {
	lookup = make(map[string]sigasm.Category)
	// Walk in definition order and never overwrite an earlier mapping,
	// so that a mnemonic appearing in two categories keeps the first.
	for _, entry := range table {
		for _, mnemonic := range entry.mnemonics {
			if _, exists := lookup[mnemonic]; !exists {
				lookup[mnemonic] = entry.category
			}
		}
	}
}

// Category classifies a mnemonic. It depends only on strings.ToLower(m)
// (testable property 3) and falls back to sigasm.CategoryOther for
// anything not in the table.
func Category(mnemonic string) sigasm.Category {
	if category, ok := lookup[strings.ToLower(mnemonic)]; ok {
		return category
	}
	return sigasm.CategoryOther
}

// controlFlowCategories are the categories whose operand encodes a
// relative or absolute jump/call target, hence "high" operand volatility
// regardless of the literal text.
var controlFlowCategories = map[sigasm.Category]bool{
	sigasm.CategoryConditionalJump:   true,
	sigasm.CategoryUnconditionalJump: true,
	sigasm.CategoryCall:              true,
}

// Volatility derives the opcode/operand volatility rating for an
// instruction from its category and raw operand text (spec §4.1).
// Opcode volatility always starts "low"; this package defines no path
// that raises it, matching the reference implementation.
func Volatility(category sigasm.Category, operands string) sigasm.Volatility {
	v := sigasm.Volatility{Opcode: sigasm.LevelLow, Operand: sigasm.LevelLow}

	switch {
	case controlFlowCategories[category]:
		v.Operand = sigasm.LevelHigh

	case category == sigasm.CategoryMov:
		switch {
		case strings.Contains(operands, "ebp") || strings.Contains(operands, "esp"):
			v.Operand = sigasm.LevelHigh
		case strings.Contains(operands, "ds:") || strings.Contains(operands, "["):
			if strings.Contains(operands, "+") && !strings.Contains(operands, "ebp") && !strings.Contains(operands, "esp") {
				v.Operand = sigasm.LevelMedium
			} else {
				v.Operand = sigasm.LevelHigh
			}
		}

	case category == sigasm.CategoryArithmetic:
		if containsDigit(operands) {
			v.Operand = sigasm.LevelMedium
		}
	}

	return v
}

func containsDigit(s string) bool {
	for _, r := range s {
		if r >= '0' && r <= '9' {
			return true
		}
	}
	return false
}
