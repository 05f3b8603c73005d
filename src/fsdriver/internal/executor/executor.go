// Package executor wraps process spawning so fsdriver's compiler driver
// never touches os/exec directly: every child it spawns goes through this
// one injectable seam, the role the teacher's executor package plays for
// one-shot commands, generalized here to streaming subprocess I/O.
package executor

import (
	"io"
	"os/exec"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module provides a module to inject using fx.
var Module = fx.Options(
	fx.Supply(fx.Annotate(New(), fx.As(new(Executor)))),
)

// Executor spawns child processes on behalf of BatchDriver and
// ResidentSession, logging each invocation.
type Executor interface {
	// Start spawns cmd with the given environment, wiring its stdin/stdout/
	// stderr to pipes, and returns a handle to the running Process.
	Start(cmd *exec.Cmd, env []string) (Process, error)
}

// Process is a spawned child process: its byte streams, plus an
// exit-code future that resolves once the process has been waited on.
type Process interface {
	// Stdin is the child's standard input.
	Stdin() io.WriteCloser
	// Stdout is the child's standard output.
	Stdout() io.ReadCloser
	// Stderr is the child's standard error.
	Stderr() io.ReadCloser
	// Wait blocks until the process exits, then returns its exit error
	// (nil for a zero exit code). Calling Wait more than once returns the
	// same result every time.
	Wait() error
	// Kill terminates the process immediately.
	Kill() error
}

// executorImp implements Executor.
type executorImp struct {
	logger *zap.SugaredLogger
}

// Option customizes executorImp's behavior.
type Option func(*executorImp)

// WithLogger overrides the default noop logger.
func WithLogger(logger *zap.SugaredLogger) Option {
	return func(e *executorImp) {
		e.logger = logger
	}
}

// New creates a new Executor.
func New(opts ...Option) Executor {
	e := &executorImp{logger: zap.NewNop().Sugar()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start implements Executor.
func (e *executorImp) Start(cmd *exec.Cmd, env []string) (Process, error) {
	e.logger.Infow("Exec", "Path", cmd.Path, "Dir", cmd.Dir, "Args", cmd.Args[1:])

	cmd.Env = env

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, err
	}

	if err := cmd.Start(); err != nil {
		return nil, err
	}

	return &process{cmd: cmd, stdin: stdin, stdout: stdout, stderr: stderr}, nil
}

type process struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser
	stderr io.ReadCloser

	waited bool
	result error
}

func (p *process) Stdin() io.WriteCloser { return p.stdin }
func (p *process) Stdout() io.ReadCloser { return p.stdout }
func (p *process) Stderr() io.ReadCloser { return p.stderr }

// Wait is not safe for concurrent use; its callers (BatchDriver.Compile
// and Session.Shutdown) each call it from a single goroutine. The result
// is memoized so a second call (e.g. from a
// deferred cleanup after an explicit Wait) does not panic on a second
// os.Process.Wait.
func (p *process) Wait() error {
	if !p.waited {
		p.result = p.cmd.Wait()
		p.waited = true
	}
	return p.result
}

func (p *process) Kill() error {
	if p.cmd.Process == nil {
		return nil
	}
	return p.cmd.Process.Kill()
}
