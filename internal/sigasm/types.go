// Package sigasm holds the data model shared by every stage of the
// signature-synthesis pipeline: the parser, the encoding analyzer, the
// signature generator, the smart analyzer and the target selector all
// operate on these types without owning them.
package sigasm

// Level is a three-point volatility rating used for both opcode and
// operand volatility.
type Level string

const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

// Category classifies an instruction by what it does to control flow or
// data. Category is uniquely determined by Mnemonic via the classifier
// table (classify.Category).
type Category string

const (
	CategoryConditionalJump   Category = "conditional_jump"
	CategoryUnconditionalJump Category = "unconditional_jump"
	CategoryCall              Category = "call"
	CategoryReturn            Category = "return"
	CategoryMov               Category = "mov"
	CategoryArithmetic        Category = "arithmetic"
	CategoryLogic             Category = "logic"
	CategoryCompare           Category = "compare"
	CategoryStack             Category = "stack"
	CategoryFloat             Category = "float"
	CategoryString            Category = "string"
	CategoryOther             Category = "other"
)

// Volatility records how likely the opcode bytes and the operand bytes
// are to differ between builds of the same binary.
type Volatility struct {
	Opcode  Level
	Operand Level
}

// Instruction is an immutable record produced by the parser. Invariants
// (spec §3, testable property 1-2): Size == len(Bytes); every position in
// WildcardPositions satisfies 0 <= p < Size; Category is determined only
// by Mnemonic.
type Instruction struct {
	Address             string // 8 hex digit uppercase, zero padded
	RawAddress          string // original textual form, e.g. "Module+4A12"; empty if not applicable
	Bytes               []byte
	Mnemonic            string // lowercased opcode name
	Operands            string // raw operand text
	OperandsNormalized  string // module-relative forms rewritten to ds:[HEX]; empty if not applicable
	Label               string // empty if unlabeled
	Comment             string // empty if absent
	Category           Category
	Volatility         Volatility
	WildcardPositions  []int // byte offsets into Bytes that encode volatile fields
}

// Size returns len(Bytes), which the parser guarantees equals the
// instruction's encoded length.
func (i Instruction) Size() int { return len(i.Bytes) }

// HasLabel reports whether the instruction carries a label.
func (i Instruction) HasLabel() bool { return i.Label != "" }

// ParseStats summarizes a parsed instruction sequence.
type ParseStats struct {
	Total      int
	ByCategory map[Category]int
	Labeled    int
	TotalBytes int
}

// WildcardRules selects which classes of volatile byte positions a
// signature generation pass should mask out. The first four default to
// true; the rest default to false (spec §3).
type WildcardRules struct {
	RelativeJumps       bool
	RelativeCalls       bool
	StackOffsets        bool
	GlobalAddresses     bool
	Immediates          bool
	StructOffsets       bool
	MemoryDisplacements bool
}

// DefaultWildcardRules returns the spec-mandated defaults: relative
// control-transfer offsets, stack displacements and global addresses are
// wildcarded; immediates, struct offsets and blanket memory displacements
// are not.
func DefaultWildcardRules() WildcardRules {
	return WildcardRules{
		RelativeJumps:   true,
		RelativeCalls:   true,
		StackOffsets:    true,
		GlobalAddresses: true,
	}
}

// SignatureOptions bounds and configures a single generation request. The
// bounds below are invariants on any value this package accepts:
//
//	MinLength        in [8, 100]
//	MaxLength        in [20, 200]
//	Variants         in [1, 50]
//	ContextBefore    in [0, 20]   (instructions)
//	ContextAfter     in [0, 50]   (bytes; pass-through only, see SPEC_FULL.md §5)
type SignatureOptions struct {
	MinLength     int
	MaxLength     int
	Variants      int
	ContextBefore int
	ContextAfter  int
	WildcardRules WildcardRules
}

// DefaultSignatureOptions mirrors the reference implementation's request
// defaults.
func DefaultSignatureOptions() SignatureOptions {
	return SignatureOptions{
		MinLength:     20,
		MaxLength:     50,
		Variants:      25,
		ContextBefore: 0,
		ContextAfter:  10,
		WildcardRules: DefaultWildcardRules(),
	}
}

// Clamp pins every bounded field of o to the range spec.md §3 mandates,
// returning the corrected value. Used by the CLI and config layers after
// reading user-controlled integers.
func (o SignatureOptions) Clamp() SignatureOptions {
	clamp := func(v, lo, hi int) int {
		if v < lo {
			return lo
		}
		if v > hi {
			return hi
		}
		return v
	}
	o.MinLength = clamp(o.MinLength, 8, 100)
	o.MaxLength = clamp(o.MaxLength, 20, 200)
	o.Variants = clamp(o.Variants, 1, 50)
	o.ContextBefore = clamp(o.ContextBefore, 0, 20)
	o.ContextAfter = clamp(o.ContextAfter, 0, 50)
	return o
}

// WildcardReason explains why one byte position in a generated pattern
// was wildcarded.
type WildcardReason struct {
	Position            int    // index into the final pattern
	Reason              string // e.g. "relative_jump", "stack_offset"
	Detail              string // human-readable explanation
	InstructionAddress  string // address of the originating instruction
}

// GeneratedSignature is one candidate pattern produced by the signature
// generator.
type GeneratedSignature struct {
	Pattern           string // space separated hex byte pairs, "??" for wildcards
	Mask              string // "x"/"?" string, same token count as Pattern
	Bytes             []*byte // nil entry <=> corresponding token is "??"
	Description       string
	Length            int
	WildcardCount     int
	WildcardPositions []int
	WildcardReasons   []WildcardReason
	UniquenessScore   float64 // in [0,1], rounded to 2 decimals
	Stability         string  // "high" | "medium" | "low"
	StartAddress      string
	EndAddress        string
	Strategy          string
	Summary           string
}

// SmartTarget is one scored anchor candidate from the smart analyzer.
type SmartTarget struct {
	InstructionIndex int
	Address          string
	Mnemonic         string
	Operands         string
	Score            float64
	StabilityScore   float64
	UniquenessScore  float64
	ContextScore     float64
	Reasons          []string
	Warnings         []string
}

// StableRegion is a contiguous run of instructions expected not to change
// across builds.
type StableRegion struct {
	StartIndex   int
	EndIndex     int
	StartAddress string
	EndAddress   string
	AvgScore     float64
	ByteCount    int
}

// SmartAnalysisResult is the full output of a smart-analysis pass.
type SmartAnalysisResult struct {
	TopTargets        []SmartTarget
	StableRegions     []StableRegion
	AnalysisSummary   string
	TotalInstructions int
	AvgStability      float64
}

// TargetSelection is the tagged-variant input to the target selector
// (spec §9 "dynamic typed selectors"): either an explicit list of
// labels/addresses/"jump@ADDR"/"call@ADDR" selectors, or one of the bulk
// keywords below.
type TargetSelection struct {
	Explicit []string // non-nil for an explicit list; Bulk is "" in that case
	Bulk     string   // one of BulkAllJumps, BulkAllCalls, BulkAllLabeled, BulkAll; "" if Explicit is set
}

const (
	BulkAllJumps   = "all_jumps"
	BulkAllCalls   = "all_calls"
	BulkAllLabeled = "all_labeled"
	BulkAll        = "all"
)

// Targets builds an explicit TargetSelection from selector strings.
func Targets(selectors ...string) TargetSelection {
	return TargetSelection{Explicit: selectors}
}

// BulkTargets builds a bulk-keyword TargetSelection.
func BulkTargets(keyword string) TargetSelection {
	return TargetSelection{Bulk: keyword}
}

// IsBulk reports whether the selection is one of the bulk keywords
// rather than an explicit list.
func (t TargetSelection) IsBulk() bool { return t.Bulk != "" }
