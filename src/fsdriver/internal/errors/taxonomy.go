package errors

import "fmt"

// ToolMissingError indicates that the compiler runtime binary could not be
// located or is not runnable.
type ToolMissingError struct {
	BinaryPath string
}

// Error is an implementation of the error interface.
func (e *ToolMissingError) Error() string {
	return fmt.Sprintf("compiler binary %q is missing or not runnable", e.BinaryPath)
}

// SpawnFailedError indicates that the child process failed to start.
type SpawnFailedError struct {
	Cause error
}

// Error is an implementation of the error interface.
func (e *SpawnFailedError) Error() string {
	return fmt.Sprintf("failed to spawn compiler subprocess: %v", e.Cause)
}

// Unwrap allows errors.Is/errors.As to see through to the underlying cause.
func (e *SpawnFailedError) Unwrap() error {
	return e.Cause
}

// CompileFailedError indicates a non-zero batch exit code. A
// resident-session request whose frame ends in an "absent" terminator
// completes with an absent CompilerOutput and no error instead.
type CompileFailedError struct {
	// ExitCode is the batch process's exit code, or -1 when the wait
	// error carries none.
	ExitCode int
}

// Error is an implementation of the error interface.
func (e *CompileFailedError) Error() string {
	return fmt.Sprintf("compile failed (exit code %d)", e.ExitCode)
}

// ProtocolViolationError indicates an unparsable result line from the
// compiler subprocess, e.g. a non-integer error count.
type ProtocolViolationError struct {
	Line string
}

// Error is an implementation of the error interface.
func (e *ProtocolViolationError) Error() string {
	return fmt.Sprintf("protocol violation on line: %q", e.Line)
}

// UnexpectedExitError indicates the child's stdout closed while a result
// frame was still pending.
type UnexpectedExitError struct{}

// Error is an implementation of the error interface.
func (e *UnexpectedExitError) Error() string {
	return "compiler subprocess exited with a result frame still pending"
}

// InvalidStateError indicates a request was issued in a state that forbids
// it: expression compilation before a cold compile, or reject without a
// pending confirmation. Accept without a pending confirmation is a silent
// no-op and does not produce this error.
type InvalidStateError struct {
	Reason string
}

// Error is an implementation of the error interface.
func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("invalid session state: %s", e.Reason)
}
