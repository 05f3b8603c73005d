// Package packagesfile reads the on-disk package-name -> URI map that
// BatchDriver and ResidentSession resolve source paths against.
package packagesfile

import (
	"bufio"
	"bytes"
	"fmt"

	"github.com/uber/fsdriver/src/fsdriver/internal/fs"
	"github.com/uber/fsdriver/src/fsdriver/mapper"
	"go.uber.org/fx"
	"go.uber.org/multierr"
)

// Module provides a module to inject using fx.
var Module = fx.Options(
	fx.Provide(fx.Annotate(New, fx.As(new(Reader)))),
)

// Reader reads a packages file into its ordered entries.
type Reader interface {
	Read(path string) ([]mapper.PackageEntry, error)
}

// Params is the set of dependencies required to construct a Reader.
type Params struct {
	fx.In

	FS fs.FS
}

type reader struct {
	fs fs.FS
}

// New constructs the default Reader.
func New(p Params) Reader {
	return &reader{fs: p.FS}
}

// Read parses the classic packages-file line format: one "name:uri" pair
// per line. File order is preserved, since it is behaviorally
// significant for URIMapper construction. Blank lines and lines starting
// with "#" are skipped; a line with no ":" is a warning, not a fatal
// error, and is aggregated with any others via multierr so that one bad
// line does not hide the rest of the parse.
func (r *reader) Read(path string) ([]mapper.PackageEntry, error) {
	data, err := r.fs.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading packages file %q: %w", path, err)
	}

	var entries []mapper.PackageEntry
	var warnings error

	scanner := bufio.NewScanner(bytes.NewReader(data))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if line == "" || line[0] == '#' {
			continue
		}

		idx := bytes.IndexByte([]byte(line), ':')
		if idx < 0 {
			warnings = multierr.Append(warnings, fmt.Errorf("%s:%d: missing ':' separator", path, lineNo))
			continue
		}

		entries = append(entries, mapper.PackageEntry{
			Name:   line[:idx],
			Prefix: line[idx+1:],
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning packages file %q: %w", path, err)
	}

	return entries, warnings
}
