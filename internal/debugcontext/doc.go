// Package debugcontext provides a passive, append-only data structure
// that accumulates diagnostic entries (errors, warnings, info, traces)
// as the signature pipeline progresses. It does not perform I/O; it
// renders entries only as single-line strings (Entry.String), which the
// CLI layer prints for --verbose output.
package debugcontext
