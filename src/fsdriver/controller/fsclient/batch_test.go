package fsclient

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tally "github.com/uber-go/tally/v4"
	"go.uber.org/zap"

	"github.com/uber/fsdriver/src/fsdriver/entity"
	"github.com/uber/fsdriver/src/fsdriver/gateway/artifact/artifactfake"
	"github.com/uber/fsdriver/src/fsdriver/internal/diagnostics"
	fsdrivererrors "github.com/uber/fsdriver/src/fsdriver/internal/errors"
	"github.com/uber/fsdriver/src/fsdriver/internal/executor"
	"github.com/uber/fsdriver/src/fsdriver/internal/executor/executorfake"
	"github.com/uber/fsdriver/src/fsdriver/repository/fingerprint/fingerprintfake"
)

type noopSink struct{}

func (noopSink) Print(line string, opts ...diagnostics.PrintOption) {}

func newBatchDriverForTest(proc *executorfake.Process) BatchDriver {
	fakeExec := &executorfake.Executor{
		StartFunc: func(cmd *exec.Cmd, env []string) (executor.Process, error) {
			return proc, nil
		},
	}

	return NewBatchDriver(BatchParams{
		Logger:      zap.NewNop().Sugar(),
		Locator:     artifactfake.New("/sdk/bin/frontend_server_driver", "/sdk/bin/frontend_server_driver.snapshot"),
		Fingerprint: fingerprintfake.New(),
		Executor:    fakeExec,
		Sink:        noopSink{},
		Stats:       tally.NoopScope,
	})
}

func TestBatchDriverSuccess(t *testing.T) {
	proc := executorfake.NewProcess()
	driver := newBatchDriverForTest(proc)

	go func() {
		fmt.Fprintln(proc.StdoutWriter(), "result K")
		fmt.Fprintln(proc.StdoutWriter(), "K /out.dill 0")
		proc.StdoutWriter().Close()
		proc.StderrWriter().Close()
		proc.Exit(nil)
	}()

	out, err := driver.Compile(context.Background(), entity.BatchOptions{
		SDKRoot:    "/sdk",
		MainPath:   "/p/lib/m.dart",
		OutputPath: "/out.dill",
	})
	require.NoError(t, err)
	assert.Equal(t, "/out.dill", out.OutputFilePath)
	assert.Equal(t, 0, out.ErrorCount)
}

func TestBatchDriverFingerprintSkip(t *testing.T) {
	store := fingerprintfake.New().WithMatch("/out.dill.d")

	fakeExec := &executorfake.Executor{
		StartFunc: func(cmd *exec.Cmd, env []string) (executor.Process, error) {
			t.Fatal("should not spawn when fingerprint matches")
			return nil, nil
		},
	}

	driver := NewBatchDriver(BatchParams{
		Logger:      zap.NewNop().Sugar(),
		Locator:     artifactfake.New("/sdk/bin/frontend_server_driver", "/sdk/bin/frontend_server_driver.snapshot"),
		Fingerprint: store,
		Executor:    fakeExec,
		Sink:        noopSink{},
		Stats:       tally.NoopScope,
	})

	out, err := driver.Compile(context.Background(), entity.BatchOptions{
		SDKRoot:     "/sdk",
		MainPath:    "/p/lib/m.dart",
		OutputPath:  "/out.dill",
		DepFilePath: "/out.dill.d",
	})
	require.NoError(t, err)
	assert.Equal(t, "/out.dill", out.OutputFilePath)
	assert.Equal(t, 0, out.ErrorCount)
}

func TestBatchDriverToolMissing(t *testing.T) {
	driver := NewBatchDriver(BatchParams{
		Logger:      zap.NewNop().Sugar(),
		Locator:     &artifactfake.Locator{Err: &fsdrivererrors.ToolMissingError{BinaryPath: "/sdk/bin/frontend_server_driver"}},
		Fingerprint: fingerprintfake.New(),
		Executor:    &executorfake.Executor{},
		Sink:        noopSink{},
		Stats:       tally.NoopScope,
	})

	_, err := driver.Compile(context.Background(), entity.BatchOptions{SDKRoot: "/sdk"})
	require.Error(t, err)

	var toolMissing *fsdrivererrors.ToolMissingError
	assert.ErrorAs(t, err, &toolMissing)
}

func TestBatchDriverCompileFailed(t *testing.T) {
	proc := executorfake.NewProcess()
	driver := newBatchDriverForTest(proc)

	go func() {
		proc.StdoutWriter().Close()
		proc.StderrWriter().Close()
		proc.Exit(errors.New("exit status 1"))
	}()

	_, err := driver.Compile(context.Background(), entity.BatchOptions{
		SDKRoot:  "/sdk",
		MainPath: "/p/lib/m.dart",
	})
	require.Error(t, err)

	var compileFailed *fsdrivererrors.CompileFailedError
	assert.ErrorAs(t, err, &compileFailed)
}
