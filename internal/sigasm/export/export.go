// Package export renders a generated signature set as plain text in one
// of six downstream-tool formats (spec §6 "export"). Each emitter is a
// pure function of the signature set and a generation timestamp: none
// of them read the system clock, so callers decide what "Generated:"
// reads as.
package export

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/keurnel/sigforge/internal/sigasm"
)

// Format names accepted by Render.
const (
	FormatAOB         = "aob"
	FormatMask        = "mask"
	FormatIDA         = "ida"
	FormatCheatEngine = "cheatengine"
	FormatCPP         = "cpp"
	FormatX64dbg      = "x64dbg"
)

// SignatureSet maps a target name to its generated variants, in the
// order targets were produced.
type SignatureSet struct {
	Order  []string
	Values map[string][]sigasm.GeneratedSignature
}

// FormatInfo describes one export format for catalog listings (the
// sigforge export --list / GET /export/formats equivalent).
type FormatInfo struct {
	ID          string
	Name        string
	Description string
	Extension   string
}

// Formats returns the catalog of supported export formats, in display
// order.
func Formats() []FormatInfo {
	return []FormatInfo{
		{ID: FormatAOB, Name: "Standard AOB", Description: "Array of Bytes format (0F 84 ?? ?? ?? ??)", Extension: ".txt"},
		{ID: FormatMask, Name: "Mask Format", Description: "Pattern + mask string (xx????xx)", Extension: ".txt"},
		{ID: FormatIDA, Name: "IDA Python", Description: "Ready-to-use IDA Pro script", Extension: ".py"},
		{ID: FormatCheatEngine, Name: "Cheat Engine", Description: "Cheat Engine AOB script", Extension: ".CT"},
		{ID: FormatCPP, Name: "C/C++ Header", Description: "C/C++ header file with pattern arrays", Extension: ".h"},
		{ID: FormatX64dbg, Name: "x64dbg", Description: "x64dbg pattern format (no spaces)", Extension: ".txt"},
	}
}

// Render dispatches to the matching emitter. An unknown format is a
// caller-visible error, mirroring export_signatures' ValueError.
func Render(signatures SignatureSet, format, moduleName string, generatedAt time.Time) (string, error) {
	switch format {
	case FormatAOB:
		return renderAOB(signatures, generatedAt), nil
	case FormatMask:
		return renderMask(signatures, generatedAt), nil
	case FormatIDA:
		return renderIDA(signatures, generatedAt), nil
	case FormatCheatEngine:
		return renderCheatEngine(signatures, moduleName, generatedAt), nil
	case FormatCPP:
		return renderCPP(signatures, generatedAt), nil
	case FormatX64dbg:
		return renderX64dbg(signatures, generatedAt), nil
	default:
		return "", fmt.Errorf("unknown export format: %s", format)
	}
}

func safeName(targetName string) string {
	return strings.ReplaceAll(strings.ReplaceAll(targetName, " ", "_"), "-", "_")
}

func stamp(generatedAt time.Time) string {
	return generatedAt.Format(time.RFC3339)
}

func renderAOB(signatures SignatureSet, generatedAt time.Time) string {
	lines := []string{"// SignatureForge - AOB Export", "// Generated: " + stamp(generatedAt), ""}

	for _, name := range signatures.Order {
		lines = append(lines, fmt.Sprintf("// === %s ===", name))
		for i, sig := range signatures.Values[name] {
			lines = append(lines, fmt.Sprintf("// Variant %d (%.0f%% unique, %s stability)", i+1, sig.UniquenessScore*100, sig.Stability))
			lines = append(lines, sig.Pattern)
			lines = append(lines, "")
		}
	}

	return strings.Join(lines, "\n")
}

func renderMask(signatures SignatureSet, generatedAt time.Time) string {
	lines := []string{"// SignatureForge - Mask Format Export", "// Generated: " + stamp(generatedAt), ""}

	for _, name := range signatures.Order {
		lines = append(lines, fmt.Sprintf("// === %s ===", name))
		for i, sig := range signatures.Values[name] {
			patternBytes := strings.ReplaceAll(strings.ReplaceAll(sig.Pattern, " ", ""), "??", "00")
			lines = append(lines, fmt.Sprintf("// Variant %d (%.0f%% unique)", i+1, sig.UniquenessScore*100))
			lines = append(lines, "Pattern: "+patternBytes)
			lines = append(lines, "Mask:    "+sig.Mask)
			lines = append(lines, "")
		}
	}

	return strings.Join(lines, "\n")
}

func renderIDA(signatures SignatureSet, generatedAt time.Time) string {
	lines := []string{
		`"""`,
		"SignatureForge Generated IDA Python Script",
		"Generated: " + stamp(generatedAt),
		"",
		"Usage: Run in IDA with File -> Script File",
		`"""`,
		"",
		"import idc",
		"import idaapi",
		"",
		"",
		"def find_pattern(pattern):",
		`    """`,
		"    Search for byte pattern in IDA.",
		`    Pattern format: "0F 84 ? ? ? ? 8B"`,
		`    """`,
		`    # Convert pattern to IDA format (? instead of ??)`,
		`    ida_pattern = pattern.replace("??", "?")`,
		"    ",
		"    addr = idc.find_binary(0, idc.SEARCH_DOWN, ida_pattern)",
		"    results = []",
		"    ",
		"    while addr != idc.BADADDR:",
		"        results.append(addr)",
		"        addr = idc.find_binary(addr + 1, idc.SEARCH_DOWN, ida_pattern)",
		"    ",
		"    return results",
		"",
		"",
		"# ========== PATTERNS ==========",
		"",
	}

	for _, name := range signatures.Order {
		variants := signatures.Values[name]
		if len(variants) == 0 {
			continue
		}
		sig := variants[0]
		safe := safeName(name)

		lines = append(lines,
			fmt.Sprintf("# %s", name),
			fmt.Sprintf("# Uniqueness: %.0f%%, Stability: %s", sig.UniquenessScore*100, sig.Stability),
			fmt.Sprintf(`%s_PATTERN = "%s"`, strings.ToUpper(safe), sig.Pattern),
			"",
			fmt.Sprintf("def find_%s():", strings.ToLower(safe)),
			fmt.Sprintf(`    """Find %s in the binary."""`, name),
			fmt.Sprintf("    return find_pattern(%s_PATTERN)", strings.ToUpper(safe)),
			"",
			"",
		)
	}

	lines = append(lines,
		"# ========== MAIN ==========",
		"",
		`if __name__ == "__main__":`,
		`    print("SignatureForge Pattern Scanner")`,
		`    print("=" * 40)`,
	)

	for _, name := range signatures.Order {
		variants := signatures.Values[name]
		if len(variants) == 0 {
			continue
		}
		safe := safeName(name)
		lines = append(lines,
			"    ",
			fmt.Sprintf("    matches = find_%s()", strings.ToLower(safe)),
			fmt.Sprintf(`    print(f"%s: {len(matches)} match(es)")`, name),
			"    for addr in matches:",
			`        print(f"  0x{addr:08X}")`,
		)
	}

	return strings.Join(lines, "\n")
}

func renderCheatEngine(signatures SignatureSet, moduleName string, generatedAt time.Time) string {
	lines := []string{
		"[ENABLE]",
		"// SignatureForge Generated Cheat Engine Script",
		"// Generated: " + stamp(generatedAt),
		"",
	}

	for _, name := range signatures.Order {
		variants := signatures.Values[name]
		if len(variants) == 0 {
			continue
		}
		sig := variants[0]
		safe := safeName(name)

		lines = append(lines,
			fmt.Sprintf("// %s (%.0f%% unique)", name, sig.UniquenessScore*100),
			fmt.Sprintf("aobscanmodule(%s,%s,%s)", safe, moduleName, strings.ReplaceAll(sig.Pattern, " ", "")),
			fmt.Sprintf("registersymbol(%s)", safe),
			"",
		)
	}

	lines = append(lines, "// ========== CODE CHANGES ==========", "")

	for _, name := range signatures.Order {
		if len(signatures.Values[name]) == 0 {
			continue
		}
		safe := safeName(name)
		lines = append(lines,
			safe+":",
			"  // Add your code modifications here",
			"  // db 90 90 90 90 90 90  // NOP",
			"",
		)
	}

	lines = append(lines, "", "[DISABLE]", "")

	for _, name := range signatures.Order {
		variants := signatures.Values[name]
		if len(variants) == 0 {
			continue
		}
		sig := variants[0]
		safe := safeName(name)
		originalBytes := strings.ReplaceAll(sig.Pattern, "??", "XX")
		preview := originalBytes
		if len(preview) > 23 {
			preview = preview[:23]
		}

		lines = append(lines,
			safe+":",
			"  // Restore original bytes",
			fmt.Sprintf("  // db %s...", preview),
			"",
			fmt.Sprintf("unregistersymbol(%s)", safe),
			"",
		)
	}

	return strings.Join(lines, "\n")
}

func renderCPP(signatures SignatureSet, generatedAt time.Time) string {
	lines := []string{
		"/*",
		" * SignatureForge Generated C/C++ Header",
		" * Generated: " + stamp(generatedAt),
		" *",
		" * Usage:",
		" *   void* addr = FindPattern(module, Pattern_Name, Mask_Name, Size_Name);",
		" */",
		"",
		"#ifndef SIGNATUREFORGE_PATTERNS_H",
		"#define SIGNATUREFORGE_PATTERNS_H",
		"",
		"#include <stdint.h>",
		"",
	}

	for _, name := range signatures.Order {
		variants := signatures.Values[name]
		if len(variants) == 0 {
			continue
		}
		sig := variants[0]
		safe := strings.ToUpper(safeName(name))

		var byteParts []string
		for _, token := range strings.Fields(sig.Pattern) {
			if token == "??" {
				byteParts = append(byteParts, "0x00")
			} else {
				byteParts = append(byteParts, "0x"+token)
			}
		}

		var byteLines []string
		for i := 0; i < len(byteParts); i += 8 {
			end := i + 8
			if end > len(byteParts) {
				end = len(byteParts)
			}
			byteLines = append(byteLines, "    "+strings.Join(byteParts[i:end], ", "))
		}

		lines = append(lines,
			fmt.Sprintf("// %s", name),
			fmt.Sprintf("// Uniqueness: %.0f%%, Stability: %s", sig.UniquenessScore*100, sig.Stability),
			fmt.Sprintf("static const unsigned char %s_PATTERN[] = {", safe),
			strings.Join(byteLines, ",\n"),
			"};",
			"",
			fmt.Sprintf(`static const char %s_MASK[] = "%s";`, safe, sig.Mask),
			"",
			fmt.Sprintf("#define %s_SIZE %d", safe, sig.Length),
			"",
			"",
		)
	}

	lines = append(lines,
		"/*",
		" * Example pattern scanner function:",
		" *",
		" * void* FindPattern(HMODULE module, const unsigned char* pattern,",
		" *                   const char* mask, size_t size) {",
		" *     MODULEINFO info;",
		" *     GetModuleInformation(GetCurrentProcess(), module, &info, sizeof(info));",
		" *     ",
		" *     unsigned char* base = (unsigned char*)info.lpBaseOfDll;",
		" *     size_t moduleSize = info.SizeOfImage;",
		" *     ",
		" *     for (size_t i = 0; i < moduleSize - size; i++) {",
		" *         bool found = true;",
		" *         for (size_t j = 0; j < size; j++) {",
		` *             if (mask[j] == 'x' && base[i + j] != pattern[j]) {`,
		" *                 found = false;",
		" *                 break;",
		" *             }",
		" *         }",
		" *         if (found) return base + i;",
		" *     }",
		" *     return nullptr;",
		" * }",
		" */",
		"",
		"#endif // SIGNATUREFORGE_PATTERNS_H",
	)

	return strings.Join(lines, "\n")
}

func renderX64dbg(signatures SignatureSet, generatedAt time.Time) string {
	lines := []string{
		"// SignatureForge - x64dbg Pattern Export",
		"// Generated: " + stamp(generatedAt),
		"//",
		"// Usage: Ctrl+B (Search for Pattern) in x64dbg",
		"// Paste the pattern without spaces",
		"",
	}

	for _, name := range signatures.Order {
		lines = append(lines, fmt.Sprintf("// === %s ===", name))
		for i, sig := range signatures.Values[name] {
			pattern := strings.ReplaceAll(sig.Pattern, " ", "")
			lines = append(lines, fmt.Sprintf("// Variant %d (%.0f%% unique)", i+1, sig.UniquenessScore*100))
			lines = append(lines, pattern)
			lines = append(lines, "")
		}
	}

	return strings.Join(lines, "\n")
}

// NewSignatureSet builds a SignatureSet from an unordered map, sorting
// target names for deterministic output when the caller has no natural
// insertion order to preserve.
func NewSignatureSet(values map[string][]sigasm.GeneratedSignature) SignatureSet {
	order := make([]string, 0, len(values))
	for name := range values {
		order = append(order, name)
	}
	sort.Strings(order)
	return SignatureSet{Order: order, Values: values}
}
