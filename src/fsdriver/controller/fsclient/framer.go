package fsclient

import (
	"strconv"
	"strings"

	"github.com/uber/fsdriver/src/fsdriver/entity"
	"github.com/uber/fsdriver/src/fsdriver/internal/diagnostics"
)

const resultPrefix = "result "
const diagnosticHeader = "Compiler message:"

// pendingResult is the one-shot completion for a frame's result.
type pendingResult struct {
	done chan entity.CompilerOutput
}

func newPendingResult() *pendingResult {
	return &pendingResult{done: make(chan entity.CompilerOutput, 1)}
}

func (p *pendingResult) complete(out entity.CompilerOutput) {
	select {
	case p.done <- out:
	default:
		// already completed; completion must happen exactly once and
		// callers are expected to honor that, but a defensive no-op here
		// avoids a panic if they don't.
	}
}

// stdoutFramer consumes lines from the child's stdout and produces one
// CompilerOutput per result frame, routing non-result lines to the
// diagnostic sink.
type stdoutFramer struct {
	sink diagnostics.Sink

	boundaryKey   string
	seenDiagnostic bool
	suppress      bool
	pending       *pendingResult
}

func newStdoutFramer(sink diagnostics.Sink) *stdoutFramer {
	f := &stdoutFramer{sink: sink}
	f.reset(false)
	return f
}

// reset must be called before every command the session issues. It
// clears the boundary key, the seen-diagnostic flag, and allocates a
// fresh pending result.
func (f *stdoutFramer) reset(suppress bool) *pendingResult {
	f.boundaryKey = ""
	f.seenDiagnostic = false
	f.suppress = suppress
	f.pending = newPendingResult()
	return f.pending
}

// line classifies and processes one line of the child's stdout.
func (f *stdoutFramer) line(l string) {
	switch {
	case f.boundaryKey == "" && strings.HasPrefix(l, resultPrefix):
		f.boundaryKey = strings.TrimPrefix(l, resultPrefix)

	case f.boundaryKey != "" && strings.HasPrefix(l, f.boundaryKey):
		f.terminator(l)

	default:
		f.diagnostic(l)
	}
}

func (f *stdoutFramer) terminator(l string) {
	pending := f.pending

	if l == f.boundaryKey {
		pending.complete(entity.CompilerOutput{})
		return
	}

	suffix := strings.TrimPrefix(l, f.boundaryKey+" ")
	idx := strings.LastIndex(suffix, " ")
	if idx < 0 {
		f.protocolViolation(l)
		pending.complete(entity.CompilerOutput{})
		return
	}

	outputPath := suffix[:idx]
	count, err := strconv.Atoi(suffix[idx+1:])
	if err != nil {
		f.protocolViolation(l)
		pending.complete(entity.CompilerOutput{})
		return
	}

	pending.complete(entity.CompilerOutput{OutputFilePath: outputPath, ErrorCount: count})
}

// protocolViolation logs an unparsable result line verbatim; the caller
// still completes the pending result as absent.
func (f *stdoutFramer) protocolViolation(l string) {
	f.sink.Print(l, diagnostics.WithEmphasis())
}

func (f *stdoutFramer) diagnostic(l string) {
	if f.suppress {
		return
	}
	if !f.seenDiagnostic {
		f.sink.Print(diagnosticHeader)
		f.seenDiagnostic = true
	}
	f.sink.Print(l)
}

// closed completes any pending result as "absent", used when the
// child's stdout closes (EOF) while a result is still unresolved.
func (f *stdoutFramer) closed() {
	if f.pending != nil {
		f.pending.complete(entity.CompilerOutput{})
	}
}
