package debugcontext

import "sync"

// DebugContext is a passive, append-only data structure that
// accumulates diagnostic entries as the signature pipeline progresses.
// It is thread-safe for concurrent writes.
//
// Create a DebugContext exclusively through NewDebugContext(). It is
// passed through the pipeline by reference — every stage records
// entries into the same context. Core packages (classify, encoding,
// listing, signature, smart, target) never import this package; only
// the CLI layer threads a *DebugContext through and decides what to
// print.
type DebugContext struct {
	source  string
	phase   string
	entries []*Entry
	mu      sync.Mutex
}

// NewDebugContext is the sole constructor. It returns a *DebugContext
// initialised with the input source description, an empty entry list,
// and the phase set to "" (no phase).
func NewDebugContext(source string) *DebugContext {
	return &DebugContext{
		source:  source,
		entries: make([]*Entry, 0),
	}
}

// SetPhase sets the current pipeline phase. Subsequent entries are
// tagged with this phase until it is changed again. Pipeline phases are
// "parse", "classify", "encode", "generate", "smart-analyze".
func (c *DebugContext) SetPhase(name string) {
	c.mu.Lock()
	c.phase = name
	c.mu.Unlock()
}

// Phase returns the current pipeline phase name.
func (c *DebugContext) Phase() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Loc creates a Location for an instruction using the context's source.
func (c *DebugContext) Loc(instructionIndex int, address string) Location {
	return Loc(c.source, instructionIndex, address)
}

// LocSource creates a whole-input Location using the context's source.
func (c *DebugContext) LocSource() Location {
	return LocSource(c.source)
}

func (c *DebugContext) record(severity string, location Location, message string) *Entry {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry := &Entry{
		severity: severity,
		phase:    c.phase,
		message:  message,
		location: location,
	}
	c.entries = append(c.entries, entry)
	return entry
}

// Error records an entry with severity "error" and returns the *Entry
// for optional chaining (WithSnippet, WithHint).
func (c *DebugContext) Error(location Location, message string) *Entry {
	return c.record(SeverityError, location, message)
}

// Warning records an entry with severity "warning" and returns the *Entry
// for optional chaining.
func (c *DebugContext) Warning(location Location, message string) *Entry {
	return c.record(SeverityWarning, location, message)
}

// Info records an entry with severity "info" and returns the *Entry
// for optional chaining.
func (c *DebugContext) Info(location Location, message string) *Entry {
	return c.record(SeverityInfo, location, message)
}

// Trace records an entry with severity "trace" and returns the *Entry
// for optional chaining.
func (c *DebugContext) Trace(location Location, message string) *Entry {
	return c.record(SeverityTrace, location, message)
}

// Entries returns all recorded entries in insertion order.
func (c *DebugContext) Entries() []*Entry {
	c.mu.Lock()
	defer c.mu.Unlock()

	result := make([]*Entry, len(c.entries))
	copy(result, c.entries)
	return result
}

// Errors returns only entries with severity "error".
func (c *DebugContext) Errors() []*Entry {
	return c.filter(SeverityError)
}

// Warnings returns only entries with severity "warning".
func (c *DebugContext) Warnings() []*Entry {
	return c.filter(SeverityWarning)
}

// HasErrors returns true if at least one "error" entry exists.
func (c *DebugContext) HasErrors() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, e := range c.entries {
		if e.severity == SeverityError {
			return true
		}
	}
	return false
}

// Count returns the total number of entries.
func (c *DebugContext) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Source returns the input source description.
func (c *DebugContext) Source() string {
	return c.source
}

func (c *DebugContext) filter(severity string) []*Entry {
	c.mu.Lock()
	defer c.mu.Unlock()

	var result []*Entry
	for _, e := range c.entries {
		if e.severity == severity {
			result = append(result, e)
		}
	}
	return result
}
