// Package diagnosticsfake provides a hand-written fake of
// diagnostics.Sink that records every printed line for assertions.
package diagnosticsfake

import "github.com/uber/fsdriver/src/fsdriver/internal/diagnostics"

// Line is one recorded Print call.
type Line struct {
	Text     string
	Emphasis bool
}

// Sink is a fake diagnostics.Sink.
type Sink struct {
	Lines []Line
}

var _ diagnostics.Sink = (*Sink)(nil)

// New returns an empty fake Sink.
func New() *Sink {
	return &Sink{}
}

// Print implements diagnostics.Sink. WithEmphasis is the only
// PrintOption fsdriver issues, so any option present means emphasis.
func (s *Sink) Print(line string, opts ...diagnostics.PrintOption) {
	s.Lines = append(s.Lines, Line{Text: line, Emphasis: len(opts) > 0})
}
