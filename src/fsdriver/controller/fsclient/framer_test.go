package fsclient

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uber/fsdriver/src/fsdriver/internal/diagnostics/diagnosticsfake"
)

func TestFramerSuccessResult(t *testing.T) {
	sink := diagnosticsfake.New()
	f := newStdoutFramer(sink)
	pending := f.reset(false)

	f.line("result AAA")
	f.line("AAA /out.dill 3")

	select {
	case out := <-pending.done:
		assert.Equal(t, "/out.dill", out.OutputFilePath)
		assert.Equal(t, 3, out.ErrorCount)
	default:
		t.Fatal("expected a completed result")
	}
}

func TestFramerAbsentTerminator(t *testing.T) {
	sink := diagnosticsfake.New()
	f := newStdoutFramer(sink)
	pending := f.reset(false)

	f.line("result AAA")
	f.line("AAA")

	out := <-pending.done
	assert.True(t, out.Absent())
}

func TestFramerLastSpaceSplit(t *testing.T) {
	sink := diagnosticsfake.New()
	f := newStdoutFramer(sink)
	pending := f.reset(false)

	f.line("result K")
	f.line("K /out with spaces.dill 0")

	out := <-pending.done
	require.False(t, out.Absent())
	assert.Equal(t, "/out with spaces.dill", out.OutputFilePath)
	assert.Equal(t, 0, out.ErrorCount)
}

func TestFramerDiagnosticHeaderOncePerFrame(t *testing.T) {
	sink := diagnosticsfake.New()
	f := newStdoutFramer(sink)
	pending := f.reset(false)

	f.line("result K")
	f.line("some diagnostic")
	f.line("another diagnostic")
	f.line("K /out.dill 2")

	<-pending.done

	headers := 0
	for _, l := range sink.Lines {
		if l.Text == diagnosticHeader {
			headers++
		}
	}
	assert.Equal(t, 1, headers)
}

func TestFramerSuppressesDiagnosticsInExpressionMode(t *testing.T) {
	sink := diagnosticsfake.New()
	f := newStdoutFramer(sink)
	pending := f.reset(true)

	f.line("result K")
	f.line("some diagnostic")
	f.line("K /out.dill 0")

	<-pending.done
	assert.Empty(t, sink.Lines)
}

func TestFramerClosedCompletesAbsent(t *testing.T) {
	sink := diagnosticsfake.New()
	f := newStdoutFramer(sink)
	pending := f.reset(false)

	f.line("result K")
	f.closed()

	out := <-pending.done
	assert.True(t, out.Absent())
}

func TestFramerProtocolViolation(t *testing.T) {
	sink := diagnosticsfake.New()
	f := newStdoutFramer(sink)
	pending := f.reset(false)

	f.line("result K")
	f.line("K /out.dill notanumber")

	out := <-pending.done
	assert.True(t, out.Absent())
	require.NotEmpty(t, sink.Lines)
	assert.Equal(t, "K /out.dill notanumber", sink.Lines[len(sink.Lines)-1].Text)
}
