package fs

import (
	"os"

	"go.uber.org/fx"
)

// Module is the Fx module for this package.
var Module = fx.Provide(New)

// FS wraps the filesystem operations used by fsdriver: locating the
// compiler binary and its snapshot, reading packages files and depfiles,
// and persisting fingerprint cache entries.
type FS interface {
	FileExists(path string) (bool, error)
	IsExecutable(path string) (bool, error)
	ReadFile(name string) ([]byte, error)
	WriteFile(name string, data []byte) error
	Remove(name string) error
	MkdirAll(path string) error
}

type fsImpl struct{}

// New creates a new FS.
func New() FS {
	return fsImpl{}
}

// FileExists reports whether path exists and is a regular file.
func (fsImpl) FileExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return !info.IsDir(), nil
}

// IsExecutable reports whether path exists and has at least one execute bit set.
func (fsImpl) IsExecutable(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return !info.IsDir() && info.Mode()&0111 != 0, nil
}

// ReadFile reads the named file's contents.
func (fsImpl) ReadFile(name string) ([]byte, error) {
	return os.ReadFile(name)
}

// WriteFile writes data to the named file, creating or truncating it.
func (fsImpl) WriteFile(name string, data []byte) error {
	return os.WriteFile(name, data, 0644)
}

// Remove removes the named file.
func (fsImpl) Remove(name string) error {
	return os.Remove(name)
}

// MkdirAll creates a directory and all necessary parents.
func (fsImpl) MkdirAll(path string) error {
	return os.MkdirAll(path, os.ModePerm)
}
