// Package fsfake provides a hand-written in-memory fake of fs.FS for use in
// tests across fsdriver, following the precedent the teacher repository
// sets for test doubles that are not generated by mockgen.
package fsfake

import (
	"fmt"

	"github.com/uber/fsdriver/src/fsdriver/internal/fs"
)

type file struct {
	data       []byte
	executable bool
}

// FS is an in-memory fake of fs.FS.
type FS struct {
	files       map[string]file
	dirs        map[string]bool
	mkdirErrors map[string]error
}

var _ fs.FS = (*FS)(nil)

// New returns an empty fake filesystem.
func New() *FS {
	return &FS{
		files:       make(map[string]file),
		dirs:        make(map[string]bool),
		mkdirErrors: make(map[string]error),
	}
}

// WithMkdirAllError makes MkdirAll(path) fail with err.
func (f *FS) WithMkdirAllError(path string, err error) *FS {
	f.mkdirErrors[path] = err
	return f
}

// WithFile registers a regular file at path with the given contents.
func (f *FS) WithFile(path string, data []byte) *FS {
	f.files[path] = file{data: data}
	return f
}

// WithExecutable registers an executable file at path.
func (f *FS) WithExecutable(path string, data []byte) *FS {
	f.files[path] = file{data: data, executable: true}
	return f
}

// FileExists implements fs.FS.
func (f *FS) FileExists(path string) (bool, error) {
	_, ok := f.files[path]
	return ok, nil
}

// IsExecutable implements fs.FS.
func (f *FS) IsExecutable(path string) (bool, error) {
	entry, ok := f.files[path]
	return ok && entry.executable, nil
}

// ReadFile implements fs.FS.
func (f *FS) ReadFile(name string) ([]byte, error) {
	entry, ok := f.files[name]
	if !ok {
		return nil, fmt.Errorf("fsfake: %s: no such file", name)
	}
	return entry.data, nil
}

// WriteFile implements fs.FS.
func (f *FS) WriteFile(name string, data []byte) error {
	f.files[name] = file{data: data}
	return nil
}

// Remove implements fs.FS.
func (f *FS) Remove(name string) error {
	if _, ok := f.files[name]; !ok {
		return fmt.Errorf("fsfake: %s: no such file", name)
	}
	delete(f.files, name)
	return nil
}

// MkdirAll implements fs.FS.
func (f *FS) MkdirAll(path string) error {
	if err, ok := f.mkdirErrors[path]; ok {
		return err
	}
	f.dirs[path] = true
	return nil
}

// HasDir reports whether MkdirAll has been called with path.
func (f *FS) HasDir(path string) bool {
	return f.dirs[path]
}
