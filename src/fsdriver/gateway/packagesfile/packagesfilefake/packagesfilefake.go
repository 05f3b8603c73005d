// Package packagesfilefake provides a hand-written fake of
// packagesfile.Reader.
package packagesfilefake

import "github.com/uber/fsdriver/src/fsdriver/mapper"

// Reader is a fake packagesfile.Reader returning a fixed entry set
// regardless of the requested path.
type Reader struct {
	Entries []mapper.PackageEntry
	Err     error
}

// New returns a Reader that always returns entries.
func New(entries ...mapper.PackageEntry) *Reader {
	return &Reader{Entries: entries}
}

// Read implements packagesfile.Reader.
func (r *Reader) Read(path string) ([]mapper.PackageEntry, error) {
	return r.Entries, r.Err
}
