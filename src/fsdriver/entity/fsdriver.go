// Package entity contains the domain types for fsdriver's compiler-driver
// session and batch path.
package entity

import (
	"fmt"

	"github.com/uber/fsdriver/src/fsdriver/internal/diagnostics"
)

// TargetModel selects the compiler's code-generation target.
type TargetModel string

const (
	// TargetFlutter targets the Flutter framework runtime.
	TargetFlutter TargetModel = "flutter"
	// TargetFlutterRunner targets the Fuchsia flutter_runner embedder.
	TargetFlutterRunner TargetModel = "flutter_runner"
)

// ParseTargetModel validates a string against the known target models.
func ParseTargetModel(s string) (TargetModel, error) {
	switch TargetModel(s) {
	case TargetFlutter, TargetFlutterRunner:
		return TargetModel(s), nil
	default:
		return "", fmt.Errorf("unknown target model %q", s)
	}
}

// CompilerOutput is the result of a committed compile request. OutputFilePath
// is empty when the compiler reported no output (an "absent" result).
type CompilerOutput struct {
	OutputFilePath string
	ErrorCount     int
}

// Absent reports whether the result carries no output path, i.e. the
// compiler did not produce a result for the request (failure, crash, or
// a terminator with no suffix).
func (c CompilerOutput) Absent() bool {
	return c.OutputFilePath == ""
}

// BatchOptions configures a single one-shot batch compile.
type BatchOptions struct {
	// SDKRoot is canonicalized to end with "/" before use.
	SDKRoot                string
	MainPath               string
	OutputPath             string
	DepFilePath            string
	TargetModel            TargetModel
	LinkPlatformKernelIn   bool
	AOT                    bool
	TrackWidgetCreation    bool
	ExtraOptions           []string
	IncrementalByteStore   string
	PackagesFilePath       string
	VFSRoots               []string
	VFSScheme              string
	ProductVM              bool
}

// SessionConfig configures a ResidentSession for its whole lifetime.
type SessionConfig struct {
	SDKRoot                   string
	TrackWidgetCreation       bool
	PackagesFilePath          string
	VFSRoots                  []string
	VFSScheme                 string
	InitializeFromDill        string
	TargetModel               TargetModel
	UnsafePackageSerialization bool
	ExperimentalFlags         []string
	Sink                      diagnostics.Sink
}

// RecompileRequest asks the session to (re)compile, optionally narrowing
// the set of invalidated files.
type RecompileRequest struct {
	// MainPath is set only for the cold compile, or when a request
	// explicitly overrides the entry point.
	MainPath         string
	Invalidated      []string
	Output           string
	PackagesFilePath string
}

// CompileExpressionRequest asks the session to evaluate an expression in
// the context of the most recently accepted compile.
type CompileExpressionRequest struct {
	Expression       string
	Definitions      []string
	TypeDefinitions  []string
	LibraryURI       string
	Klass            string
	IsStatic         *bool
}

// RejectRequest asks the session to reject the pending compile and
// restore its prior accepted state.
type RejectRequest struct{}

// SessionState is the lifecycle state of a ResidentSession.
type SessionState int

const (
	// StateNotStarted is the state before any request has been submitted.
	StateNotStarted SessionState = iota
	// StateRunning is the state once the child has been spawned.
	StateRunning
	// StateShutDown is the terminal state after shutdown() completes.
	StateShutDown
)

// String implements fmt.Stringer.
func (s SessionState) String() string {
	switch s {
	case StateNotStarted:
		return "NotStarted"
	case StateRunning:
		return "Running"
	case StateShutDown:
		return "ShutDown"
	default:
		return "Unknown"
	}
}
