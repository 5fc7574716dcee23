package debugcontext

import "fmt"

// Location identifies a position in the input listing an entry refers
// to: the source description (a file path, "-" for stdin) and the
// originating instruction index, or -1 when the entry is not tied to
// one instruction.
type Location struct {
	source           string
	instructionIndex int
	address          string
}

// Loc creates a Location for a specific instruction.
func Loc(source string, instructionIndex int, address string) Location {
	return Location{source: source, instructionIndex: instructionIndex, address: address}
}

// LocSource creates a Location with no instruction attached, used for
// whole-input diagnostics (format detection, empty results).
func LocSource(source string) Location {
	return Location{source: source, instructionIndex: -1}
}

// Source returns the input description the location refers to.
func (l Location) Source() string { return l.source }

// InstructionIndex returns the 0-based instruction index, or -1.
func (l Location) InstructionIndex() int { return l.instructionIndex }

// Address returns the instruction's address string, or "" when absent.
func (l Location) Address() string { return l.address }

// String returns a human-readable representation of the location.
func (l Location) String() string {
	if l.instructionIndex < 0 {
		return l.source
	}
	if l.address != "" {
		return fmt.Sprintf("%s:#%d@%s", l.source, l.instructionIndex, l.address)
	}
	return fmt.Sprintf("%s:#%d", l.source, l.instructionIndex)
}
