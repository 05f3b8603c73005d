// Package artifactfake provides a hand-written fake of artifact.Locator.
package artifactfake

import "github.com/uber/fsdriver/src/fsdriver/gateway/artifact"

// Locator is a fake artifact.Locator.
type Locator struct {
	BinaryPath   string
	SnapshotPath string
	Err          error
}

var _ artifact.Locator = (*Locator)(nil)

// New returns a Locator that resolves to fixed binary/snapshot paths.
func New(binaryPath, snapshotPath string) *Locator {
	return &Locator{BinaryPath: binaryPath, SnapshotPath: snapshotPath}
}

// Locate implements artifact.Locator.
func (l *Locator) Locate(sdkRoot string) (string, string, error) {
	if l.Err != nil {
		return "", "", l.Err
	}
	return l.BinaryPath, l.SnapshotPath, nil
}
