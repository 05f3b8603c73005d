// Command fsdriver drives an external incremental-compiler subprocess,
// either as a one-shot batch compile or as a long-lived resident
// session fed by a sequence of JSON-line requests on stdin.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"github.com/uber/fsdriver/src/fsdriver/app"
	"github.com/uber/fsdriver/src/fsdriver/controller/fsclient"
	"github.com/uber/fsdriver/src/fsdriver/entity"
	"github.com/uber/fsdriver/src/fsdriver/internal/diagnostics"
)

const _version = "(to be added by build tooling)"

var rootCmd = &cobra.Command{
	Use:   "fsdriver",
	Short: "Drives the frontend_server_driver incremental-compiler subprocess",
}

func main() {
	rootCmd.Version = _version
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(residentCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var batchOpts entity.BatchOptions

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Perform a single fingerprint-gated batch compile",
	RunE:  runBatch,
}

func init() {
	flags := batchCmd.Flags()
	flags.StringVar(&batchOpts.SDKRoot, "sdk-root", "", "path to the SDK root")
	flags.StringVar(&batchOpts.MainPath, "main", "", "entry point source file")
	flags.StringVar(&batchOpts.OutputPath, "output", "", "output .dill path")
	flags.StringVar(&batchOpts.DepFilePath, "depfile", "", "depfile path, enables fingerprint gating")
	flags.StringVar(&batchOpts.PackagesFilePath, "packages", "", "packages file path")
	flags.BoolVar(&batchOpts.LinkPlatformKernelIn, "link-platform", true, "link the platform kernel into the output")
	flags.BoolVar(&batchOpts.AOT, "aot", false, "compile ahead-of-time")
	flags.BoolVar(&batchOpts.TrackWidgetCreation, "track-widget-creation", false, "track widget creation locations")
	flags.BoolVar(&batchOpts.ProductVM, "product", false, "define dart.vm.product")
	flags.StringVar(&batchOpts.IncrementalByteStore, "incremental-byte-store", "", "incremental byte store path")
	flags.StringSliceVar(&batchOpts.VFSRoots, "filesystem-root", nil, "virtual filesystem root (repeatable)")
	flags.StringVar(&batchOpts.VFSScheme, "filesystem-scheme", "", "virtual filesystem scheme")
	flags.StringSliceVar(&batchOpts.ExtraOptions, "extra-option", nil, "extra compiler flag (repeatable)")

	var target string
	flags.StringVar(&target, "target", string(entity.TargetFlutter), "target model: flutter|flutter_runner")
	batchCmd.PreRunE = func(cmd *cobra.Command, args []string) error {
		model, err := entity.ParseTargetModel(target)
		if err != nil {
			return err
		}
		batchOpts.TargetModel = model
		return nil
	}
}

func runBatch(cmd *cobra.Command, args []string) error {
	var driver fsclient.BatchDriver
	fxApp := fx.New(
		app.Module,
		fx.Populate(&driver),
		fx.NopLogger,
	)
	if err := fxApp.Start(cmd.Context()); err != nil {
		return fmt.Errorf("starting fsdriver app: %w", err)
	}
	defer fxApp.Stop(cmd.Context())

	out, err := driver.Compile(cmd.Context(), batchOpts)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s %d\n", out.OutputFilePath, out.ErrorCount)
	return nil
}

var residentOpts entity.SessionConfig

var residentCmd = &cobra.Command{
	Use:   "resident",
	Short: "Run a resident compiler session driven by JSON-line requests on stdin",
	RunE:  runResident,
}

func init() {
	flags := residentCmd.Flags()
	flags.StringVar(&residentOpts.SDKRoot, "sdk-root", "", "path to the SDK root")
	flags.StringVar(&residentOpts.PackagesFilePath, "packages", "", "packages file path")
	flags.BoolVar(&residentOpts.TrackWidgetCreation, "track-widget-creation", false, "track widget creation locations")
	flags.StringVar(&residentOpts.InitializeFromDill, "initialize-from-dill", "", "seed the session from a prior .dill")
	flags.BoolVar(&residentOpts.UnsafePackageSerialization, "unsafe-package-serialization", false, "enable unsafe package serialization")
	flags.StringSliceVar(&residentOpts.VFSRoots, "filesystem-root", nil, "virtual filesystem root (repeatable)")
	flags.StringVar(&residentOpts.VFSScheme, "filesystem-scheme", "", "virtual filesystem scheme")
	flags.StringSliceVar(&residentOpts.ExperimentalFlags, "enable-experiment", nil, "experimental language feature (repeatable)")

	var target string
	flags.StringVar(&target, "target", string(entity.TargetFlutter), "target model: flutter|flutter_runner")
	residentCmd.PreRunE = func(cmd *cobra.Command, args []string) error {
		model, err := entity.ParseTargetModel(target)
		if err != nil {
			return err
		}
		residentOpts.TargetModel = model
		return nil
	}
}

// residentRequest is one line of the resident mode's stdin protocol. Kind
// selects which Session method is invoked; the remaining fields are only
// meaningful for the kinds that use them.
type residentRequest struct {
	Kind             string   `json:"kind"`
	MainPath         string   `json:"mainPath,omitempty"`
	Invalidated      []string `json:"invalidated,omitempty"`
	Output           string   `json:"output,omitempty"`
	PackagesFilePath string   `json:"packagesFilePath,omitempty"`
	Expression       string   `json:"expression,omitempty"`
	Definitions      []string `json:"definitions,omitempty"`
	TypeDefinitions  []string `json:"typeDefinitions,omitempty"`
	LibraryURI       string   `json:"libraryUri,omitempty"`
	Klass            string   `json:"klass,omitempty"`
	IsStatic         *bool    `json:"isStatic,omitempty"`
}

// residentResponse is written to stdout once per request. For the
// fire-and-forget kinds (accept, reset) it carries only an error, and is
// an empty object on success.
type residentResponse struct {
	OutputFilePath string `json:"outputFilePath,omitempty"`
	ErrorCount     int    `json:"errorCount,omitempty"`
	Error          string `json:"error,omitempty"`
}

func runResident(cmd *cobra.Command, args []string) error {
	var sink residentSink
	var factory fsclient.SessionFactory
	fxApp := fx.New(
		app.Module,
		fx.Populate(&factory),
		fx.NopLogger,
	)
	if err := fxApp.Start(cmd.Context()); err != nil {
		return fmt.Errorf("starting fsdriver app: %w", err)
	}
	defer fxApp.Stop(cmd.Context())

	residentOpts.Sink = &sink
	session := factory.New(residentOpts)
	defer session.Shutdown(cmd.Context())

	encoder := json.NewEncoder(cmd.OutOrStdout())
	scanner := bufio.NewScanner(cmd.InOrStdin())
	for scanner.Scan() {
		var req residentRequest
		if err := json.Unmarshal(scanner.Bytes(), &req); err != nil {
			encoder.Encode(residentResponse{Error: err.Error()})
			continue
		}

		resp := dispatchResidentRequest(cmd.Context(), session, req)
		encoder.Encode(resp)
	}
	return scanner.Err()
}

func dispatchResidentRequest(ctx context.Context, session fsclient.Session, req residentRequest) residentResponse {
	switch req.Kind {
	case "recompile":
		out, err := session.Recompile(ctx, entity.RecompileRequest{
			MainPath:         req.MainPath,
			Invalidated:      req.Invalidated,
			Output:           req.Output,
			PackagesFilePath: req.PackagesFilePath,
		})
		return toResponse(out, err)
	case "compileExpression":
		out, err := session.CompileExpression(ctx, entity.CompileExpressionRequest{
			Expression:      req.Expression,
			Definitions:     req.Definitions,
			TypeDefinitions: req.TypeDefinitions,
			LibraryURI:      req.LibraryURI,
			Klass:           req.Klass,
			IsStatic:        req.IsStatic,
		})
		return toResponse(out, err)
	case "accept":
		err := session.Accept(ctx)
		return toResponse(entity.CompilerOutput{}, err)
	case "reject":
		out, err := session.Reject(ctx)
		return toResponse(out, err)
	case "reset":
		err := session.Reset(ctx)
		return toResponse(entity.CompilerOutput{}, err)
	default:
		return residentResponse{Error: fmt.Sprintf("unknown request kind %q", req.Kind)}
	}
}

func toResponse(out entity.CompilerOutput, err error) residentResponse {
	if err != nil {
		return residentResponse{Error: err.Error()}
	}
	return residentResponse{OutputFilePath: out.OutputFilePath, ErrorCount: out.ErrorCount}
}

// residentSink forwards compiler diagnostics to stderr so they never
// interleave with the JSON responses on stdout.
type residentSink struct{}

func (residentSink) Print(line string, opts ...diagnostics.PrintOption) {
	fmt.Fprintln(os.Stderr, line)
}
