// Package artifact locates the compiler runtime binary and its snapshot
// on disk.
package artifact

import (
	"path/filepath"

	"github.com/uber/fsdriver/src/fsdriver/internal/errors"
	"github.com/uber/fsdriver/src/fsdriver/internal/fs"
	"go.uber.org/fx"
)

// Module provides a module to inject using fx.
var Module = fx.Options(
	fx.Provide(fx.Annotate(New, fx.As(new(Locator)))),
)

const binaryName = "frontend_server_driver"
const snapshotSuffix = ".snapshot"

// Locator resolves the compiler binary and its snapshot for a given SDK
// root.
type Locator interface {
	// Locate returns the binary and snapshot paths under sdkRoot. It
	// returns a ToolMissingError if the binary does not exist or is not
	// executable.
	Locate(sdkRoot string) (binaryPath, snapshotPath string, err error)
}

// Params is the set of dependencies required to construct a Locator.
type Params struct {
	fx.In

	FS fs.FS
}

type fsLocator struct {
	fs fs.FS
}

// New constructs the default Locator.
func New(p Params) Locator {
	return &fsLocator{fs: p.FS}
}

// Locate implements Locator.
func (l *fsLocator) Locate(sdkRoot string) (string, string, error) {
	binaryPath := filepath.Join(sdkRoot, "bin", binaryName)
	snapshotPath := binaryPath + snapshotSuffix

	ok, err := l.fs.IsExecutable(binaryPath)
	if err != nil {
		return "", "", err
	}
	if !ok {
		return "", "", &errors.ToolMissingError{BinaryPath: binaryPath}
	}

	exists, err := l.fs.FileExists(snapshotPath)
	if err != nil {
		return "", "", err
	}
	if !exists {
		return "", "", &errors.ToolMissingError{BinaryPath: snapshotPath}
	}

	return binaryPath, snapshotPath, nil
}
