// Package listing implements the three-format disassembly parser: pipe
// format (x64dbg/OllyDbg), dash format (Cheat Engine, Module+Offset) and
// raw hex (delegated to golang.org/x/arch/x86/x86asm). It classifies and
// encodes every parsed instruction before returning it, so callers never
// need to invoke classify/encoding themselves.
package listing

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/arch/x86/x86asm"

	"github.com/keurnel/sigforge/internal/sigasm"
	"github.com/keurnel/sigforge/internal/sigasm/classify"
	"github.com/keurnel/sigforge/internal/sigasm/encoding"
)

// Format identifies one of the three accepted listing formats.
type Format string

const (
	FormatAuto Format = "auto"
	FormatPipe Format = "pipe"
	FormatDash Format = "dash"
	FormatHex  Format = "hex"
)

// Result is the full output of a parse, mirroring the reference
// implementation's parse_input return tuple.
type Result struct {
	Instructions []sigasm.Instruction
	Labels       []string
	Format       Format
	Module       string
	Stats        sigasm.ParseStats
}

var (
	pipePattern = regexp.MustCompile(
		`^([0-9A-Fa-f]+)\s*\|\s*` +
			`([0-9A-Fa-f\s]+?)\s*\|\s*` +
			`([a-zA-Z0-9]+)\s*` +
			`([^|]*?)\s*` +
			`(?:\|\s*(.*))?$`)

	dashPattern = regexp.MustCompile(
		`^([\w.]+\+[0-9A-Fa-f]+)\s*-\s*` +
			`([0-9A-Fa-f\s]+?)\s*-\s*` +
			`([a-zA-Z]+)\s*` +
			`(.*)$`)

	dashDetectPattern = regexp.MustCompile(`^[\w.]+\+[0-9A-Fa-f]+\s+-\s+`)
	hexOnlyPattern    = regexp.MustCompile(`^[0-9A-Fa-f]+$`)
	labelPattern      = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// DetectFormat inspects the first non-blank, non-comment line of input
// and returns the format it implies, defaulting to pipe when nothing
// matches (spec §4.3).
func DetectFormat(input string) Format {
	for _, raw := range strings.Split(strings.TrimSpace(input), "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "//") || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.Contains(line, " | ") || strings.Contains(line, "\t|\t") {
			return FormatPipe
		}
		if dashDetectPattern.MatchString(line) {
			return FormatDash
		}
		hexClean := strings.NewReplacer(" ", "", "\t", "").Replace(line)
		if hexOnlyPattern.MatchString(hexClean) {
			return FormatHex
		}
		break
	}
	return FormatPipe
}

// Parse runs format auto-detection (or honors hint) and dispatches to the
// matching per-format parser. An unrecognized hint is a caller-visible
// error; everything else follows spec §7's silent-skip policy.
func Parse(input string, hint Format) (Result, error) {
	format := hint
	if format == FormatAuto || format == "" {
		format = DetectFormat(input)
	}

	var (
		instructions []sigasm.Instruction
		labels       []string
		module       string
		err          error
	)

	switch format {
	case FormatPipe:
		instructions, labels = parsePipe(input)
	case FormatDash:
		instructions, labels, module = parseDash(input)
	case FormatHex:
		instructions, err = parseHex(input)
	default:
		return Result{}, fmt.Errorf("unknown format: %s", format)
	}
	if err != nil {
		return Result{}, err
	}

	return Result{
		Instructions: instructions,
		Labels:       labels,
		Format:       format,
		Module:       module,
		Stats:        calculateStats(instructions, labels),
	}, nil
}

func parseBytesString(s string) []byte {
	clean := strings.ToUpper(strings.NewReplacer(" ", "", "\t", "").Replace(s))
	out := make([]byte, 0, len(clean)/2)
	for i := 0; i+1 < len(clean); i += 2 {
		v, err := strconv.ParseUint(clean[i:i+2], 16, 8)
		if err != nil {
			continue
		}
		out = append(out, byte(v))
	}
	return out
}

func classifyAndEncode(bytes []byte, mnemonic, operands string) (sigasm.Category, sigasm.Volatility, []int) {
	category := classify.Category(mnemonic)
	volatility := classify.Volatility(category, operands)
	wildcards := encoding.Primary(bytes, operands)
	return category, volatility, wildcards
}

func parsePipe(input string) ([]sigasm.Instruction, []string) {
	var instructions []sigasm.Instruction
	var labels []string

	for _, raw := range strings.Split(strings.TrimSpace(input), "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "//") || strings.HasPrefix(line, "#") {
			continue
		}
		m := pipePattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}

		address := strings.ToUpper(zfill(m[1], 8))
		bytes := parseBytesString(m[2])
		mnemonic := strings.ToLower(m[3])
		operands := strings.TrimSpace(m[4])
		comment := strings.TrimSpace(m[5])

		var label string
		if comment != "" && labelPattern.MatchString(comment) {
			label = comment
			labels = append(labels, label)
		}

		category, volatility, wildcards := classifyAndEncode(bytes, mnemonic, operands)

		instructions = append(instructions, sigasm.Instruction{
			Address:           address,
			Bytes:             bytes,
			Mnemonic:          mnemonic,
			Operands:          operands,
			Label:             label,
			Comment:           comment,
			Category:          category,
			Volatility:        volatility,
			WildcardPositions: wildcards,
		})
	}

	return instructions, labels
}

// parseCEAddress splits "Module+OFFSET" into a zero-padded 8-digit offset
// and the module name; an address without '+' is returned unchanged with
// an empty module.
func parseCEAddress(raw string) (address, module string) {
	idx := strings.Index(raw, "+")
	if idx < 0 {
		return raw, ""
	}
	module = raw[:idx]
	offset := raw[idx+1:]
	return strings.ToUpper(zfill(offset, 8)), module
}

func normalizeMemoryRef(operands, module string) string {
	if module == "" || !strings.Contains(operands, "["+module+"+") {
		return operands
	}
	pattern := regexp.MustCompile(`\[` + regexp.QuoteMeta(module) + `\+([0-9A-Fa-f]+)\]`)
	return pattern.ReplaceAllString(operands, "ds:[$1]")
}

func parseDash(input string) ([]sigasm.Instruction, []string, string) {
	var instructions []sigasm.Instruction
	var module string

	for _, raw := range strings.Split(strings.TrimSpace(input), "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "//") || strings.HasPrefix(line, "#") {
			continue
		}
		m := dashPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}

		rawAddress := m[1]
		address, detectedModule := parseCEAddress(rawAddress)
		if detectedModule != "" && module == "" {
			module = detectedModule
		}

		bytes := parseBytesString(m[2])
		mnemonic := strings.ToLower(m[3])
		operands := strings.TrimSpace(m[4])
		operandsNormalized := normalizeMemoryRef(operands, module)

		category, volatility, wildcards := classifyAndEncode(bytes, mnemonic, operandsNormalized)

		instructions = append(instructions, sigasm.Instruction{
			Address:            address,
			RawAddress:         rawAddress,
			Bytes:              bytes,
			Mnemonic:           mnemonic,
			Operands:           operands,
			OperandsNormalized: operandsNormalized,
			Category:           category,
			Volatility:         volatility,
			WildcardPositions:  wildcards,
		})
	}

	return instructions, nil, module
}

// parseHex decodes a whitespace-separated hex blob as x86-32 code
// starting at address 0, stopping without error at the first byte range
// it cannot decode (spec §4.3, §7).
func parseHex(input string) ([]sigasm.Instruction, error) {
	cleaner := strings.NewReplacer(" ", "", "\n", "", "\t", "", "\r", "")
	hexClean := cleaner.Replace(input)

	if len(hexClean)%2 != 0 {
		return nil, nil
	}
	code := make([]byte, len(hexClean)/2)
	for i := 0; i+1 < len(hexClean); i += 2 {
		v, err := strconv.ParseUint(hexClean[i:i+2], 16, 8)
		if err != nil {
			return nil, nil
		}
		code[i/2] = byte(v)
	}

	var instructions []sigasm.Instruction
	addr := 0
	for addr < len(code) {
		inst, err := x86asm.Decode(code[addr:], 32)
		if err != nil {
			break
		}

		bytes := code[addr : addr+inst.Len]
		mnemonic, operands := splitIntelSyntax(inst, addr)

		category, volatility, wildcards := classifyAndEncode(bytes, mnemonic, operands)

		instructions = append(instructions, sigasm.Instruction{
			Address:           fmt.Sprintf("%08X", addr),
			Bytes:             append([]byte(nil), bytes...),
			Mnemonic:          mnemonic,
			Operands:          operands,
			Category:          category,
			Volatility:        volatility,
			WildcardPositions: wildcards,
		})

		addr += inst.Len
	}

	return instructions, nil
}

// splitIntelSyntax renders an x86asm.Inst in Intel syntax and splits it
// into a lowercase mnemonic and the remaining operand text, matching the
// (mnemonic, op_str) shape the Python original gets from Capstone.
func splitIntelSyntax(inst x86asm.Inst, addr int) (string, string) {
	text := x86asm.IntelSyntax(inst, uint64(addr), nil)
	fields := strings.SplitN(text, " ", 2)
	mnemonic := strings.ToLower(fields[0])
	operands := ""
	if len(fields) > 1 {
		operands = strings.TrimSpace(fields[1])
	}
	return mnemonic, operands
}

func zfill(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat("0", width-len(s)) + s
}

func calculateStats(instructions []sigasm.Instruction, labels []string) sigasm.ParseStats {
	byCategory := make(map[sigasm.Category]int)
	totalBytes := 0
	for _, inst := range instructions {
		byCategory[inst.Category]++
		totalBytes += inst.Size()
	}
	return sigasm.ParseStats{
		Total:      len(instructions),
		ByCategory: byCategory,
		Labeled:    len(labels),
		TotalBytes: totalBytes,
	}
}
