package fs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileExists(t *testing.T) {
	t.Run("exists", func(t *testing.T) {
		dir := t.TempDir()
		file := filepath.Join(dir, "a.txt")
		require.NoError(t, os.WriteFile(file, []byte("x"), 0644))

		fs := New()
		ok, err := fs.FileExists(file)
		assert.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("missing", func(t *testing.T) {
		fs := New()
		ok, err := fs.FileExists(filepath.Join(t.TempDir(), "missing.txt"))
		assert.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("directory is not a file", func(t *testing.T) {
		fs := New()
		ok, err := fs.FileExists(t.TempDir())
		assert.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestIsExecutable(t *testing.T) {
	t.Run("executable", func(t *testing.T) {
		dir := t.TempDir()
		file := filepath.Join(dir, "bin")
		require.NoError(t, os.WriteFile(file, []byte("#!/bin/sh\n"), 0755))

		fs := New()
		ok, err := fs.IsExecutable(file)
		assert.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("not executable", func(t *testing.T) {
		dir := t.TempDir()
		file := filepath.Join(dir, "data.txt")
		require.NoError(t, os.WriteFile(file, []byte("x"), 0644))

		fs := New()
		ok, err := fs.IsExecutable(file)
		assert.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("missing", func(t *testing.T) {
		fs := New()
		ok, err := fs.IsExecutable(filepath.Join(t.TempDir(), "missing"))
		assert.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestReadWriteRemoveFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "fingerprint.txt")
	fs := New()

	require.NoError(t, fs.WriteFile(file, []byte("hello")))

	data, err := fs.ReadFile(file)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	require.NoError(t, fs.Remove(file))
	_, err = fs.ReadFile(file)
	assert.Error(t, err)
}

func TestMkdirAll(t *testing.T) {
	dir := t.TempDir()
	fs := New()
	err := fs.MkdirAll(filepath.Join(dir, "a", "b", "c"))
	assert.NoError(t, err)

	info, err := os.Stat(filepath.Join(dir, "a", "b", "c"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
