// Package diag defines WorkPipe's diagnostic model: stable WPxxxx codes,
// severities, and a Collector that accumulates problems across every
// compiler pass so the CLI can report them all at once instead of stopping
// at the first error.
package diag

import (
	"sort"

	"github.com/workpipe/workpipe/pkg/source"
)

// Severity classifies a Diagnostic.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
	SeverityHint
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityHint:
		return "hint"
	default:
		return "unknown"
	}
}

// Diagnostic is one problem found in a source file, tagged with a stable
// code so tooling can filter or suppress by identity rather than message
// text.
type Diagnostic struct {
	Code     string
	Severity Severity
	Message  string
	Path     string
	Span     source.Span
	Hint     string // "" if there is no actionable suggestion
}

// Collector accumulates diagnostics across passes. It is not safe for
// concurrent writes from multiple goroutines; callers running passes in
// parallel (pkg/resolve) collect per-file and merge afterwards.
type Collector struct {
	items []Diagnostic
}

func NewCollector() *Collector { return &Collector{} }

func (c *Collector) Add(d Diagnostic) { c.items = append(c.items, d) }

func (c *Collector) Errorf(code, path string, span source.Span, msg string) {
	c.Add(Diagnostic{Code: code, Severity: SeverityError, Message: msg, Path: path, Span: span})
}

func (c *Collector) Warnf(code, path string, span source.Span, msg string) {
	c.Add(Diagnostic{Code: code, Severity: SeverityWarning, Message: msg, Path: path, Span: span})
}

// Merge appends another Collector's items, preserving relative order.
func (c *Collector) Merge(other *Collector) {
	if other == nil {
		return
	}
	c.items = append(c.items, other.items...)
}

// HasErrors reports whether any accumulated diagnostic is an error.
func (c *Collector) HasErrors() bool {
	for _, d := range c.items {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

// All returns every diagnostic, sorted by path then span start, stable
// with respect to insertion order for equal keys.
func (c *Collector) All() []Diagnostic {
	out := make([]Diagnostic, len(c.items))
	copy(out, c.items)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Path != out[j].Path {
			return out[i].Path < out[j].Path
		}
		return out[i].Span.Start < out[j].Span.Start
	})
	return out
}

func (c *Collector) Len() int { return len(c.items) }
