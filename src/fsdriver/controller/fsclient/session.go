package fsclient

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/url"
	"os/exec"
	"strings"
	"sync"

	tally "github.com/uber-go/tally/v4"
	"github.com/uber/fsdriver/src/fsdriver/entity"
	"github.com/uber/fsdriver/src/fsdriver/factory"
	"github.com/uber/fsdriver/src/fsdriver/gateway/artifact"
	"github.com/uber/fsdriver/src/fsdriver/gateway/packagesfile"
	fsdrivererrors "github.com/uber/fsdriver/src/fsdriver/internal/errors"
	"github.com/uber/fsdriver/src/fsdriver/internal/executor"
	"github.com/uber/fsdriver/src/fsdriver/mapper"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Session is a long-lived resident compiler session: it owns a single
// child process and serializes every recompile / expression-evaluation /
// accept / reject / reset request issued against it.
type Session interface {
	// Recompile submits a recompile request; the first one spawns the
	// child as a cold compile.
	Recompile(ctx context.Context, req entity.RecompileRequest) (entity.CompilerOutput, error)
	// CompileExpression evaluates an expression against the last
	// accepted compile.
	CompileExpression(ctx context.Context, req entity.CompileExpressionRequest) (entity.CompilerOutput, error)
	// Accept confirms the pending compile. Fire-and-forget.
	Accept(ctx context.Context) error
	// Reject rejects the pending compile.
	Reject(ctx context.Context) (entity.CompilerOutput, error)
	// Reset tells the compiler to treat the next recompile as
	// from-scratch. Fire-and-forget.
	Reset(ctx context.Context) error
	// Shutdown kills the child and stops accepting requests.
	Shutdown(ctx context.Context) error
	// State reports the session's current lifecycle state.
	State() entity.SessionState
}

// SessionFactory constructs Sessions bound to a SessionConfig.
type SessionFactory interface {
	New(cfg entity.SessionConfig) Session
}

// SessionFactoryParams is the set of dependencies required to construct
// a SessionFactory.
type SessionFactoryParams struct {
	fx.In

	Logger   *zap.SugaredLogger
	Locator  artifact.Locator
	Packages packagesfile.Reader
	Executor executor.Executor
	Stats    tally.Scope
}

type sessionFactory struct {
	logger   *zap.SugaredLogger
	locator  artifact.Locator
	packages packagesfile.Reader
	executor executor.Executor
	stats    tally.Scope
}

// NewSessionFactory constructs the default SessionFactory.
func NewSessionFactory(p SessionFactoryParams) SessionFactory {
	return &sessionFactory{
		logger:   p.Logger,
		locator:  p.Locator,
		packages: p.Packages,
		executor: p.Executor,
		stats:    p.Stats,
	}
}

// New implements SessionFactory.
func (f *sessionFactory) New(cfg entity.SessionConfig) Session {
	return &session{
		cfg:      cfg,
		logger:   f.logger,
		locator:  f.locator,
		packages: f.packages,
		executor: f.executor,
		stats:    f.stats,
		queue:    newRequestQueue(),
	}
}

type session struct {
	cfg      entity.SessionConfig
	logger   *zap.SugaredLogger
	locator  artifact.Locator
	packages packagesfile.Reader
	executor executor.Executor
	stats    tally.Scope
	queue    *requestQueue

	mu                   sync.Mutex
	state                entity.SessionState
	awaitingConfirmation bool
	proc                 executor.Process
	framer               *stdoutFramer
	stdinWriter          io.Writer
	group                *errgroup.Group

	// unusableErr is set once the session can no longer service requests:
	// the child failed to spawn, or its stdout closed (whether or not a
	// result frame was pending at that moment). Once set, every later request is refused with this
	// error instead of writing to stdin and awaiting a framer result that
	// no reader is left alive to resolve.
	unusableErr error

	// uriMapper is the mapper built for the most recent request that
	// carried a mainPath. A Recompile with no mainPath (the ordinary
	// incremental case) has nothing to build a fresh mapper from, so it
	// reuses this one; the packages file binds to a session, not to a
	// single request.
	uriMapper mapper.URIMapper
}

// State implements Session.
func (s *session) State() entity.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// unusable reports the error that makes the session permanently unable
// to service further requests, if any.
func (s *session) unusable() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unusableErr
}

// markUnusable records the first error that makes the session
// permanently unable to service further requests.
func (s *session) markUnusable(err error) {
	s.mu.Lock()
	if s.unusableErr == nil {
		s.unusableErr = err
	}
	s.mu.Unlock()
}

// Recompile implements Session.
func (s *session) Recompile(ctx context.Context, req entity.RecompileRequest) (entity.CompilerOutput, error) {
	s.stats.Counter("recompile_requests").Inc(1)
	out, err := s.queue.submit(func() (entity.CompilerOutput, error) {
		s.mu.Lock()
		state := s.state
		s.mu.Unlock()

		if state == entity.StateNotStarted {
			return s.coldCompile(ctx, req)
		}
		if state == entity.StateShutDown {
			return entity.CompilerOutput{}, &fsdrivererrors.InvalidStateError{Reason: "session is shut down"}
		}
		if err := s.unusable(); err != nil {
			return entity.CompilerOutput{}, err
		}
		return s.incrementalRecompile(req)
	})
	if err != nil {
		s.stats.Counter("recompile_errors").Inc(1)
	}
	return out, err
}

// coldCompile spawns the child and issues the initial compile command.
// Invalidated-files on this first request are ignored: the first
// recompile always acts as the cold compile.
func (s *session) coldCompile(ctx context.Context, req entity.RecompileRequest) (entity.CompilerOutput, error) {
	binaryPath, snapshotPath, err := s.locator.Locate(s.cfg.SDKRoot)
	if err != nil {
		return entity.CompilerOutput{}, err
	}

	sdkRoot := normalizeSDKRoot(s.cfg.SDKRoot)

	var uriMapper mapper.URIMapper
	if s.cfg.PackagesFilePath != "" {
		uriMapper, err = mapper.New(s.packages, req.MainPath, s.cfg.PackagesFilePath, s.cfg.VFSScheme, s.cfg.VFSRoots)
		if err != nil {
			return entity.CompilerOutput{}, err
		}
	}

	args := assembleColdArgs(snapshotPath, sdkRoot, req, s.cfg, uriMapper)

	cmd := exec.CommandContext(ctx, binaryPath, args...)
	proc, err := s.executor.Start(cmd, nil)
	if err != nil {
		s.cfg.Sink.Print(fmt.Sprintf("failed to spawn compiler: %v", err))
		spawnErr := &fsdrivererrors.SpawnFailedError{Cause: err}
		s.mu.Lock()
		s.state = entity.StateRunning
		s.unusableErr = spawnErr
		s.mu.Unlock()
		return entity.CompilerOutput{}, spawnErr
	}

	s.mu.Lock()
	s.proc = proc
	s.stdinWriter = proc.Stdin()
	s.framer = newStdoutFramer(s.cfg.Sink)
	s.state = entity.StateRunning
	s.uriMapper = uriMapper
	s.mu.Unlock()

	s.startReaders()

	mainURI := req.MainPath
	if mapped, ok := uriMapper.Map(req.MainPath); ok {
		mainURI = mapped
	}

	pending := s.framer.reset(false)
	s.writeLine(fmt.Sprintf("compile %s", mainURI))

	result := <-pending.done
	s.mu.Lock()
	s.awaitingConfirmation = true
	s.mu.Unlock()
	return result, nil
}

// incrementalRecompile implements the wire protocol for every recompile
// after the cold compile.
func (s *session) incrementalRecompile(req entity.RecompileRequest) (entity.CompilerOutput, error) {
	packagesPath := req.PackagesFilePath
	if packagesPath == "" {
		packagesPath = s.cfg.PackagesFilePath
	}

	var uriMapper mapper.URIMapper
	if req.MainPath == "" {
		// No mainPath on this request to build a fresh mapper from; the
		// packages file binds to the session, not to a single request,
		// so reuse the mapper built for the most recent request that did
		// carry one (ordinarily the cold compile).
		s.mu.Lock()
		uriMapper = s.uriMapper
		s.mu.Unlock()
	} else if packagesPath != "" {
		var err error
		uriMapper, err = mapper.New(s.packages, req.MainPath, packagesPath, s.cfg.VFSScheme, s.cfg.VFSRoots)
		if err != nil {
			return entity.CompilerOutput{}, err
		}
		s.mu.Lock()
		s.uriMapper = uriMapper
		s.mu.Unlock()
	}

	pending := s.framer.reset(false)

	key := factory.UUID().String()

	var sb strings.Builder
	sb.WriteString("recompile ")
	if req.MainPath != "" {
		mainURI := req.MainPath
		if mapped, ok := uriMapper.Map(req.MainPath); ok {
			mainURI = mapped
		}
		sb.WriteString(mainURI)
		sb.WriteString(" ")
	}
	sb.WriteString(key)
	s.writeLine(sb.String())

	for _, inv := range req.Invalidated {
		s.writeLine(s.mapInvalidated(inv, uriMapper))
	}
	s.writeLine(key)

	result := <-pending.done
	s.mu.Lock()
	s.awaitingConfirmation = true
	s.mu.Unlock()
	return result, nil
}

// mapInvalidated resolves one invalidated-file entry per spec.md §4.5
// step 4: through the URIMapper first, else under a configured vfs
// root, else verbatim. file: URIs are decoded to a path first; a
// decode failure passes the original string through unchanged.
func (s *session) mapInvalidated(raw string, uriMapper mapper.URIMapper) string {
	path := raw
	if strings.HasPrefix(raw, "file://") {
		if u, err := url.Parse(raw); err == nil {
			path = u.Path
		}
	}

	if mapped, ok := uriMapper.Map(path); ok {
		return mapped
	}

	for _, root := range s.cfg.VFSRoots {
		if strings.HasPrefix(path, root) {
			return s.cfg.VFSScheme + ":/" + strings.TrimPrefix(path, root)
		}
	}

	return raw
}

// CompileExpression implements Session.
func (s *session) CompileExpression(ctx context.Context, req entity.CompileExpressionRequest) (entity.CompilerOutput, error) {
	s.stats.Counter("expression_requests").Inc(1)
	return s.queue.submit(func() (entity.CompilerOutput, error) {
		s.mu.Lock()
		state := s.state
		s.mu.Unlock()

		if state != entity.StateRunning {
			return entity.CompilerOutput{}, &fsdrivererrors.InvalidStateError{Reason: "expression compile before cold compile"}
		}
		if err := s.unusable(); err != nil {
			return entity.CompilerOutput{}, err
		}

		pending := s.framer.reset(true)
		key := factory.UUID().String()

		s.writeLine(fmt.Sprintf("compile-expression %s", key))
		s.writeLine(req.Expression)
		for _, def := range req.Definitions {
			s.writeLine(def)
		}
		s.writeLine(key)
		for _, typeDef := range req.TypeDefinitions {
			s.writeLine(typeDef)
		}
		s.writeLine(key)
		s.writeLine(req.LibraryURI)
		s.writeLine(req.Klass)

		isStatic := "false"
		if req.IsStatic != nil {
			isStatic = fmt.Sprintf("%v", *req.IsStatic)
		}
		s.writeLine(isStatic)

		result := <-pending.done
		return result, nil
	})
}

// Accept implements Session.
func (s *session) Accept(ctx context.Context) error {
	_, err := s.queue.submit(func() (entity.CompilerOutput, error) {
		s.mu.Lock()
		if !s.awaitingConfirmation {
			s.mu.Unlock()
			return entity.CompilerOutput{}, nil
		}
		s.awaitingConfirmation = false
		s.mu.Unlock()

		s.writeLine("accept")
		return entity.CompilerOutput{}, nil
	})
	return err
}

// Reject implements Session.
func (s *session) Reject(ctx context.Context) (entity.CompilerOutput, error) {
	return s.queue.submit(func() (entity.CompilerOutput, error) {
		s.mu.Lock()
		awaiting := s.awaitingConfirmation
		s.mu.Unlock()

		if !awaiting {
			return entity.CompilerOutput{}, &fsdrivererrors.InvalidStateError{Reason: "reject without a pending recompile"}
		}
		if err := s.unusable(); err != nil {
			return entity.CompilerOutput{}, err
		}

		pending := s.framer.reset(false)
		s.writeLine("reject")

		s.mu.Lock()
		s.awaitingConfirmation = false
		s.mu.Unlock()

		result := <-pending.done
		return result, nil
	})
}

// Reset implements Session.
func (s *session) Reset(ctx context.Context) error {
	_, err := s.queue.submit(func() (entity.CompilerOutput, error) {
		s.writeLine("reset")
		return entity.CompilerOutput{}, nil
	})
	return err
}

// Shutdown implements Session.
func (s *session) Shutdown(ctx context.Context) error {
	drainErr := s.queue.shutdown()

	s.mu.Lock()
	proc := s.proc
	s.mu.Unlock()

	if proc != nil {
		_ = proc.Kill()
		_ = proc.Wait()
	}
	if s.group != nil {
		_ = s.group.Wait()
	}

	s.mu.Lock()
	s.state = entity.StateShutDown
	s.mu.Unlock()

	return drainErr
}

func (s *session) writeLine(line string) {
	s.mu.Lock()
	w := s.stdinWriter
	s.mu.Unlock()
	if w == nil {
		return
	}
	fmt.Fprintf(w, "%s\n", line)
}

// startReaders launches the stdout/stderr reader goroutines, supervised
// by an errgroup the way BatchDriver supervises its one-shot process's
// readers.
func (s *session) startReaders() {
	g := &errgroup.Group{}
	s.group = g

	proc := s.proc
	framer := s.framer
	sink := s.cfg.Sink

	g.Go(func() error {
		scanner := bufio.NewScanner(proc.Stdout())
		for scanner.Scan() {
			framer.line(scanner.Text())
		}
		s.markUnusable(&fsdrivererrors.UnexpectedExitError{})
		framer.closed()
		return nil
	})
	g.Go(func() error {
		scanner := bufio.NewScanner(proc.Stderr())
		for scanner.Scan() {
			sink.Print(scanner.Text())
		}
		return nil
	})
}

// assembleColdArgs mirrors BatchDriver's assembly but with the
// resident-session cold-compile additions documented in spec.md §4.5.
func assembleColdArgs(snapshotPath, sdkRoot string, req entity.RecompileRequest, cfg entity.SessionConfig, uriMapper mapper.URIMapper) []string {
	args := []string{
		snapshotPath,
		"--sdk-root", sdkRoot,
		"--strong",
		"--target=" + string(cfg.TargetModel),
	}

	if cfg.TrackWidgetCreation {
		args = append(args, "--track-widget-creation")
	}

	args = append(args, "--incremental")

	if cfg.InitializeFromDill != "" {
		args = append(args, "--initialize-from-dill", cfg.InitializeFromDill)
	}
	if cfg.UnsafePackageSerialization {
		args = append(args, "--unsafe-package-serialization")
	}
	if len(cfg.ExperimentalFlags) > 0 {
		args = append(args, "--enable-experiment="+strings.Join(cfg.ExperimentalFlags, ","))
	}

	// The source forwards --packages twice when both a request-scoped
	// and a session-scoped packages path exist. This is reproduced
	// verbatim per spec.md §9's open question; it is not deduplicated.
	if req.PackagesFilePath != "" {
		args = append(args, "--packages", req.PackagesFilePath)
	}
	if cfg.PackagesFilePath != "" {
		args = append(args, "--packages", cfg.PackagesFilePath)
	}

	for _, root := range cfg.VFSRoots {
		args = append(args, "--filesystem-root", root)
	}
	if cfg.VFSScheme != "" {
		args = append(args, "--filesystem-scheme", cfg.VFSScheme)
	}

	return args
}
