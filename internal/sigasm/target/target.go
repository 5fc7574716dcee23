// Package target resolves a sigasm.TargetSelection against a parsed
// instruction sequence into concrete (index, name) pairs (spec §4.6).
package target

import (
	"fmt"
	"strings"

	"github.com/keurnel/sigforge/internal/sigasm"
)

// Match is one resolved target: the instruction index and its
// synthesized or carried-through display name.
type Match struct {
	Index int
	Name  string
}

// Resolve resolves a TargetSelection against instructions. Explicit
// selectors use first-match, first-occurrence semantics; unresolved
// selectors are silently skipped (spec §7). Bulk selectors emit every
// matching index.
func Resolve(instructions []sigasm.Instruction, selection sigasm.TargetSelection) []Match {
	if selection.IsBulk() {
		return resolveBulk(instructions, selection.Bulk)
	}
	return resolveExplicit(instructions, selection.Explicit)
}

func resolveExplicit(instructions []sigasm.Instruction, selectors []string) []Match {
	var matches []Match

	for _, selector := range selectors {
		switch {
		case strings.HasPrefix(selector, "jump@"), strings.HasPrefix(selector, "call@"):
			addr := strings.SplitN(selector, "@", 2)[1]
			for i, inst := range instructions {
				if inst.Address == addr {
					matches = append(matches, Match{Index: i, Name: selector})
					break
				}
			}
		default:
			for i, inst := range instructions {
				if inst.Label == selector || inst.Address == selector {
					name := inst.Label
					if name == "" {
						name = inst.Address
					}
					matches = append(matches, Match{Index: i, Name: name})
					break
				}
			}
		}
	}

	return matches
}

func resolveBulk(instructions []sigasm.Instruction, keyword string) []Match {
	var matches []Match

	switch keyword {
	case sigasm.BulkAllJumps:
		for i, inst := range instructions {
			if inst.Category == sigasm.CategoryConditionalJump || inst.Category == sigasm.CategoryUnconditionalJump {
				matches = append(matches, Match{Index: i, Name: nameOr(inst, fmt.Sprintf("jump_%s", inst.Address))})
			}
		}
	case sigasm.BulkAllCalls:
		for i, inst := range instructions {
			if inst.Category == sigasm.CategoryCall {
				matches = append(matches, Match{Index: i, Name: nameOr(inst, fmt.Sprintf("call_%s", inst.Address))})
			}
		}
	case sigasm.BulkAllLabeled:
		for i, inst := range instructions {
			if inst.HasLabel() {
				matches = append(matches, Match{Index: i, Name: inst.Label})
			}
		}
	case sigasm.BulkAll:
		for i, inst := range instructions {
			matches = append(matches, Match{Index: i, Name: nameOr(inst, fmt.Sprintf("inst_%s", inst.Address))})
		}
	}

	return matches
}

func nameOr(inst sigasm.Instruction, fallback string) string {
	if inst.Label != "" {
		return inst.Label
	}
	return fallback
}
