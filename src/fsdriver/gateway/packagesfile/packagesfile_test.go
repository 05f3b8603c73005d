package packagesfile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uber/fsdriver/src/fsdriver/internal/fs/fsfake"
	"github.com/uber/fsdriver/src/fsdriver/mapper"
)

func TestReadOrdersEntriesAndSkipsComments(t *testing.T) {
	fake := fsfake.New().WithFile("/p/.packages", []byte(
		"# generated\n\nfoo:file:///a/lib/\nbar:file:///b/lib/\n",
	))

	reader := New(Params{FS: fake})
	entries, err := reader.Read("/p/.packages")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, mapper.PackageEntry{Name: "foo", Prefix: "file:///a/lib/"}, entries[0])
	assert.Equal(t, mapper.PackageEntry{Name: "bar", Prefix: "file:///b/lib/"}, entries[1])
}

func TestReadAggregatesMissingSeparatorWarnings(t *testing.T) {
	fake := fsfake.New().WithFile("/p/.packages", []byte(
		"foo:file:///a/lib/\nmalformed line\nbar:file:///b/lib/\n",
	))

	reader := New(Params{FS: fake})
	entries, err := reader.Read("/p/.packages")
	require.Error(t, err)
	require.Len(t, entries, 2)
	assert.Contains(t, err.Error(), "missing ':' separator")
}

func TestReadMissingFile(t *testing.T) {
	fake := fsfake.New()
	reader := New(Params{FS: fake})

	_, err := reader.Read("/p/.packages")
	require.Error(t, err)
}
