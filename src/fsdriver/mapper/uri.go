// Package mapper canonicalizes filesystem paths driven into the compiler
// subprocess into package: or virtual-filesystem URIs.
package mapper

import (
	"strings"

	"go.lsp.dev/uri"
)

// packageEntry is one line of a packages file: a package name and the
// URI prefix its sources live under.
type packageEntry struct {
	name   string
	prefix string
}

// PackagesReader reads the ordered package-name -> URI prefix mapping
// from a packages file. Satisfied by gateway/packagesfile.Reader.
type PackagesReader interface {
	Read(path string) ([]PackageEntry, error)
}

// PackageEntry is one ordered entry of a packages file.
type PackageEntry struct {
	Name   string
	Prefix string
}

// URIMapper maps an absolute filesystem path to a package: URI. It is
// immutable once constructed and safe for concurrent use.
type URIMapper struct {
	packageName string
	prefixes    []string
}

// empty reports whether no package prefix matched during construction;
// an empty mapper always yields "not mappable".
func (m URIMapper) empty() bool {
	return m.packageName == "" && len(m.prefixes) == 0
}

// New builds a URIMapper from a script path, a packages file, and an
// optional virtual-filesystem scheme/roots pair.
//
// Iteration over the packages file is in file order: the first package
// whose prefix contains vfsScheme (when both vfsScheme and vfsRoots are
// given) wins; failing that, the first package whose prefix is a proper
// string-prefix of the rendered script URI wins. If neither matches,
// the returned mapper is empty.
func New(reader PackagesReader, scriptPath, packagesPath string, vfsScheme string, vfsRoots []string) (URIMapper, error) {
	if packagesPath == "" {
		return URIMapper{}, nil
	}

	entries, err := reader.Read(packagesPath)
	if err != nil {
		return URIMapper{}, err
	}

	scriptURI := renderFileURI(scriptPath)

	if vfsScheme != "" && len(vfsRoots) > 0 {
		for _, e := range entries {
			if strings.Contains(e.Prefix, vfsScheme) {
				prefixes := make([]string, len(vfsRoots))
				for i, root := range vfsRoots {
					prefixes[i] = renderFileURI(root)
				}
				return URIMapper{packageName: e.Name, prefixes: prefixes}, nil
			}
		}
	}

	for _, e := range entries {
		if strings.HasPrefix(scriptURI, e.Prefix) && scriptURI != e.Prefix {
			return URIMapper{packageName: e.Name, prefixes: []string{e.Prefix}}, nil
		}
	}

	return URIMapper{}, nil
}

// Map renders path as a file URI and, if it falls under one of the
// mapper's prefixes (first match wins), returns the corresponding
// package: URI. Returns ("", false) when not mappable.
func (m URIMapper) Map(path string) (string, bool) {
	if m.empty() {
		return "", false
	}

	rendered := renderFileURI(path)
	for _, prefix := range m.prefixes {
		if strings.HasPrefix(rendered, prefix) {
			remainder := strings.TrimPrefix(rendered, prefix)
			if !strings.HasPrefix(remainder, "/") {
				remainder = "/" + remainder
			}
			return "package:" + m.packageName + remainder, true
		}
	}
	return "", false
}

// renderFileURI renders path as a file URI using forward slashes even on
// Windows, matching the wire format's expectations for URI-valued flags.
// Filesystem calls elsewhere must keep using native separators; do not
// reuse this helper for anything that touches the OS filesystem API.
func renderFileURI(path string) string {
	return string(uri.File(path))
}
