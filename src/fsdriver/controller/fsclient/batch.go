package fsclient

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	tally "github.com/uber-go/tally/v4"
	"github.com/uber/fsdriver/src/fsdriver/entity"
	"github.com/uber/fsdriver/src/fsdriver/gateway/artifact"
	"github.com/uber/fsdriver/src/fsdriver/gateway/packagesfile"
	"github.com/uber/fsdriver/src/fsdriver/internal/diagnostics"
	fsdrivererrors "github.com/uber/fsdriver/src/fsdriver/internal/errors"
	"github.com/uber/fsdriver/src/fsdriver/internal/executor"
	"github.com/uber/fsdriver/src/fsdriver/mapper"
	"github.com/uber/fsdriver/src/fsdriver/repository/fingerprint"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Module provides a module to inject using fx.
var Module = fx.Options(
	fx.Provide(fx.Annotate(NewBatchDriver, fx.As(new(BatchDriver)))),
	fx.Provide(fx.Annotate(NewSessionFactory, fx.As(new(SessionFactory)))),
)

// BatchDriver performs a single one-shot compile with fingerprint
// caching.
type BatchDriver interface {
	Compile(ctx context.Context, opts entity.BatchOptions) (entity.CompilerOutput, error)
}

// BatchParams is the set of dependencies required to construct a
// BatchDriver.
type BatchParams struct {
	fx.In

	Logger      *zap.SugaredLogger
	Locator     artifact.Locator
	Packages    packagesfile.Reader
	Fingerprint fingerprint.Store
	Executor    executor.Executor
	Sink        diagnostics.Sink
	Stats       tally.Scope
}

type batchDriver struct {
	logger      *zap.SugaredLogger
	locator     artifact.Locator
	packages    packagesfile.Reader
	fingerprint fingerprint.Store
	executor    executor.Executor
	sink        diagnostics.Sink
	stats       tally.Scope
}

// NewBatchDriver constructs the default BatchDriver.
func NewBatchDriver(p BatchParams) BatchDriver {
	return &batchDriver{
		logger:      p.Logger,
		locator:     p.Locator,
		packages:    p.Packages,
		fingerprint: p.Fingerprint,
		executor:    p.Executor,
		sink:        p.Sink,
		stats:       p.Stats,
	}
}

// Compile implements BatchDriver.
func (b *batchDriver) Compile(ctx context.Context, opts entity.BatchOptions) (entity.CompilerOutput, error) {
	b.stats.Counter("requests").Inc(1)

	binaryPath, snapshotPath, err := b.locator.Locate(opts.SDKRoot)
	if err != nil {
		b.stats.Counter("errors").Inc(1)
		return entity.CompilerOutput{}, err
	}

	usingFingerprint := opts.DepFilePath != ""
	if usingFingerprint {
		props := fingerprint.Properties{
			EntryPoint:           opts.MainPath,
			TrackWidgetCreation:  opts.TrackWidgetCreation,
			LinkPlatformKernelIn: opts.LinkPlatformKernelIn,
		}
		if b.fingerprint.Matches(opts.DepFilePath, props, []string{opts.MainPath}) {
			b.stats.Counter("fingerprint_hits").Inc(1)
			return entity.CompilerOutput{OutputFilePath: opts.OutputPath, ErrorCount: 0}, nil
		}
	}

	sdkRoot := normalizeSDKRoot(opts.SDKRoot)

	var uriMapper mapper.URIMapper
	if opts.PackagesFilePath != "" {
		uriMapper, err = mapper.New(b.packages, opts.MainPath, opts.PackagesFilePath, opts.VFSScheme, opts.VFSRoots)
		if err != nil {
			return entity.CompilerOutput{}, err
		}
	}

	args := assembleBatchArgs(snapshotPath, sdkRoot, opts, uriMapper)

	cmd := exec.CommandContext(ctx, binaryPath, args...)
	proc, err := b.executor.Start(cmd, nil)
	if err != nil {
		b.sink.Print(fmt.Sprintf("failed to spawn compiler: %v", err))
		b.stats.Counter("errors").Inc(1)
		return entity.CompilerOutput{}, &fsdrivererrors.SpawnFailedError{Cause: err}
	}
	defer proc.Stdin().Close()

	framer := newStdoutFramer(b.sink)
	pending := framer.reset(false)

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		scanner := bufio.NewScanner(proc.Stdout())
		for scanner.Scan() {
			framer.line(scanner.Text())
		}
		framer.closed()
		return nil
	})
	g.Go(func() error {
		scanner := bufio.NewScanner(proc.Stderr())
		for scanner.Scan() {
			b.sink.Print(scanner.Text())
		}
		return nil
	})

	waitErr := proc.Wait()
	_ = g.Wait()

	if waitErr != nil {
		b.stats.Counter("errors").Inc(1)
		return entity.CompilerOutput{}, &fsdrivererrors.CompileFailedError{ExitCode: exitCode(waitErr)}
	}

	result := <-pending.done

	if usingFingerprint && !result.Absent() {
		props := fingerprint.Properties{
			EntryPoint:           opts.MainPath,
			TrackWidgetCreation:  opts.TrackWidgetCreation,
			LinkPlatformKernelIn: opts.LinkPlatformKernelIn,
		}
		if err := b.fingerprint.Persist(opts.DepFilePath, props, []string{opts.MainPath}); err != nil {
			b.logger.Warnw("failed to persist fingerprint", "error", err)
		}
	}

	b.stats.Counter("success").Inc(1)
	return result, nil
}

func exitCode(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

// normalizeSDKRoot ensures sdkRoot ends with "/", using URI (forward
// slash) semantics even on Windows.
func normalizeSDKRoot(sdkRoot string) string {
	if strings.HasSuffix(sdkRoot, "/") {
		return sdkRoot
	}
	return sdkRoot + "/"
}

// assembleBatchArgs builds the compiler command line in the stable
// order spec.md §4.3 documents.
func assembleBatchArgs(snapshotPath, sdkRoot string, opts entity.BatchOptions, uriMapper mapper.URIMapper) []string {
	args := []string{
		snapshotPath,
		"--sdk-root", sdkRoot,
		"--strong",
		"--target=" + string(opts.TargetModel),
	}

	if opts.TrackWidgetCreation {
		args = append(args, "--track-widget-creation")
	}
	if !opts.LinkPlatformKernelIn {
		args = append(args, "--no-link-platform")
	}
	if opts.AOT {
		args = append(args, "--aot", "--tfa")
	}
	if opts.ProductVM {
		args = append(args, "-Ddart.vm.product=true")
	}
	if opts.IncrementalByteStore != "" {
		args = append(args, "--incremental")
	}

	mainURI := opts.MainPath
	if opts.PackagesFilePath != "" {
		args = append(args, "--packages", opts.PackagesFilePath)
		if mapped, ok := uriMapper.Map(opts.MainPath); ok {
			mainURI = mapped
		}
	}

	if opts.OutputPath != "" {
		args = append(args, "--output-dill", opts.OutputPath)
	}

	if opts.DepFilePath != "" && len(opts.VFSRoots) == 0 {
		args = append(args, "--depfile", opts.DepFilePath)
	}

	for _, root := range opts.VFSRoots {
		args = append(args, "--filesystem-root", root)
	}
	if opts.VFSScheme != "" {
		args = append(args, "--filesystem-scheme", opts.VFSScheme)
	}

	args = append(args, opts.ExtraOptions...)
	args = append(args, mainURI)

	return args
}
