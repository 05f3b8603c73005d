// Package executorfake provides a hand-written fake of executor.Executor,
// following the same no-mockgen precedent as fsfake.
package executorfake

import (
	"errors"
	"io"
	"os/exec"

	"github.com/uber/fsdriver/src/fsdriver/internal/executor"
)

// Executor is a fake executor.Executor that never actually spawns a process.
type Executor struct {
	StartFunc func(cmd *exec.Cmd, env []string) (executor.Process, error)
}

var _ executor.Executor = (*Executor)(nil)

// New returns a fake Executor whose Start always fails unless StartFunc is set.
func New() *Executor {
	return &Executor{}
}

// Start implements executor.Executor.
func (e *Executor) Start(cmd *exec.Cmd, env []string) (executor.Process, error) {
	if e.StartFunc != nil {
		return e.StartFunc(cmd, env)
	}
	return nil, errors.New("executorfake: StartFunc is not set")
}

// Process is a fake executor.Process backed by in-memory pipes, for
// tests that play the role of the compiler subprocess without spawning
// a real one.
type Process struct {
	stdinR  *io.PipeReader
	stdinW  *io.PipeWriter
	stdoutR *io.PipeReader
	stdoutW *io.PipeWriter
	stderrR *io.PipeReader
	stderrW *io.PipeWriter

	exit chan error
}

var _ executor.Process = (*Process)(nil)

// NewProcess returns a fake Process. StdinReader/StdoutWriter/
// StderrWriter let the test play the role of the child.
func NewProcess() *Process {
	inR, inW := io.Pipe()
	outR, outW := io.Pipe()
	errR, errW := io.Pipe()
	return &Process{
		stdinR: inR, stdinW: inW,
		stdoutR: outR, stdoutW: outW,
		stderrR: errR, stderrW: errW,
		exit: make(chan error, 1),
	}
}

// StdinReader is the end of stdin the fake child reads from.
func (p *Process) StdinReader() io.Reader { return p.stdinR }

// StdoutWriter is the end of stdout the fake child writes to.
func (p *Process) StdoutWriter() io.WriteCloser { return p.stdoutW }

// StderrWriter is the end of stderr the fake child writes to.
func (p *Process) StderrWriter() io.WriteCloser { return p.stderrW }

// Exit causes a pending Wait to return err, simulating process exit.
func (p *Process) Exit(err error) {
	p.exit <- err
}

func (p *Process) Stdin() io.WriteCloser { return p.stdinW }
func (p *Process) Stdout() io.ReadCloser { return p.stdoutR }
func (p *Process) Stderr() io.ReadCloser { return p.stderrR }

func (p *Process) Wait() error {
	return <-p.exit
}

func (p *Process) Kill() error {
	p.Exit(nil)
	return nil
}
