package diag

import (
	"fmt"
	"sync"
)

// Kind classifies a non-fatal problem detected while rendering.
type Kind uint8

const (
	Unknown Kind = iota
	NullOperand
	TypeMismatch
	DivisionByZero
	BufferOverflow
)

func (k Kind) String() string {
	switch k {
	case NullOperand:
		return "NullOperand"
	case TypeMismatch:
		return "TypeMismatch"
	case DivisionByZero:
		return "DivisionByZero"
	case BufferOverflow:
		return "BufferOverflow"
	default:
		return "Unknown"
	}
}

// Side identifies the operand of a binary operation a diagnostic refers to.
type Side uint8

const (
	NoSide Side = iota
	Left
	Right
)

func (s Side) String() string {
	switch s {
	case Left:
		return "Left"
	case Right:
		return "Right"
	default:
		return ""
	}
}

// Diagnostic is a structured report of a recoverable rendering problem.
// Line and Column are 1-based; zero means the location is unknown.
type Diagnostic struct {
	Kind         Kind
	Side         Side
	Message      string
	TemplateName string
	Line         int
	Column       int
}

func (d Diagnostic) String() string {
	if d.Line == 0 {
		return fmt.Sprintf("%s %s", d.Message, d.TemplateName)
	}
	return fmt.Sprintf("%s %s [line %d, column %d]", d.Message, d.TemplateName, d.Line, d.Column)
}

// Reporter receives diagnostics. Implementations must not panic and must not
// retain the caller's goroutine for long: reporting happens inline with rendering.
type Reporter interface {
	Report(d Diagnostic)
}

// ReporterFunc adapts a function to the Reporter interface.
type ReporterFunc func(d Diagnostic)

func (f ReporterFunc) Report(d Diagnostic) {
	f(d)
}

type discard struct{}

func (discard) Report(Diagnostic) {}

// Discard drops every diagnostic.
var Discard Reporter = discard{}

type tee []Reporter

func (t tee) Report(d Diagnostic) {
	for _, r := range t {
		r.Report(d)
	}
}

// Tee returns a Reporter that forwards every diagnostic to all given reporters in order.
// Nil reporters are skipped.
func Tee(reporters ...Reporter) Reporter {
	out := make(tee, 0, len(reporters))
	for _, r := range reporters {
		if r != nil {
			out = append(out, r)
		}
	}
	if len(out) == 1 {
		return out[0]
	}
	return out
}

// Collector keeps every reported diagnostic in memory.
// It is safe for concurrent use so one collector may be shared between renders.
type Collector struct {
	mu          sync.Mutex
	diagnostics []Diagnostic
}

func NewCollector() *Collector {
	return &Collector{}
}

func (c *Collector) Report(d Diagnostic) {
	c.mu.Lock()
	c.diagnostics = append(c.diagnostics, d)
	c.mu.Unlock()
}

// Diagnostics returns a copy of the collected diagnostics in reporting order.
func (c *Collector) Diagnostics() []Diagnostic {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Diagnostic, len(c.diagnostics))
	copy(out, c.diagnostics)
	return out
}

func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.diagnostics)
}

// Reset drops collected diagnostics.
func (c *Collector) Reset() {
	c.mu.Lock()
	c.diagnostics = c.diagnostics[:0]
	c.mu.Unlock()
}
