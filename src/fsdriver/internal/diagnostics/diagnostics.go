// Package diagnostics routes lines from the compiler subprocess's stderr
// and non-result stdout output to an output writer, with optional
// terminal emphasis.
package diagnostics

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module provides a module to inject using fx.
var Module = fx.Options(
	fx.Provide(fx.Annotate(New, fx.As(new(Sink)))),
)

// Sink accepts diagnostic lines plus optional emphasis.
type Sink interface {
	// Print writes line, applying any PrintOptions.
	Print(line string, opts ...PrintOption)
}

// PrintOption customizes how a single line is rendered.
type PrintOption func(*printOptions)

type printOptions struct {
	emphasis bool
}

// WithEmphasis renders the line in bold through fatih/color. That library
// leaves the line plain when os.Stdout is not a terminal or color is
// disabled through the environment; the sink's own writer (os.Stderr) is
// not consulted.
func WithEmphasis() PrintOption {
	return func(o *printOptions) {
		o.emphasis = true
	}
}

// Params is the set of dependencies required to construct a Sink.
type Params struct {
	fx.In

	Logger *zap.SugaredLogger
}

type sink struct {
	logger *zap.SugaredLogger
	writer io.Writer
	bold   *color.Color
}

// New constructs the default Sink, writing to os.Stderr.
func New(p Params) Sink {
	return &sink{
		logger: p.Logger,
		writer: os.Stderr,
		bold:   color.New(color.Bold),
	}
}

// Print implements Sink.
func (s *sink) Print(line string, opts ...PrintOption) {
	o := printOptions{}
	for _, opt := range opts {
		opt(&o)
	}

	if o.emphasis {
		s.bold.Fprintln(s.writer, line)
	} else {
		fmt.Fprintln(s.writer, line)
	}

	s.logger.Debugw("compiler diagnostic", "line", line)
}
