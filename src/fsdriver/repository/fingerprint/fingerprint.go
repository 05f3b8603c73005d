// Package fingerprint implements BatchDriver's input-fingerprint cache:
// one file per depfile, named "<depFilePath>.fingerprint", whose match
// lets a batch compile be skipped entirely.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/uber/fsdriver/src/fsdriver/internal/fs"
	"go.uber.org/fx"
)

// Module provides a module to inject using fx.
var Module = fx.Options(
	fx.Provide(fx.Annotate(New, fx.As(new(Store)))),
)

// buildbotPrefix marks depfile input paths that only exist on Uber's
// build farm and are never present locally; they are filtered from the
// fingerprint's input set.
const buildbotPrefix = "/b/build/slave/"

// Properties are the non-file-based inputs folded into a fingerprint,
// alongside the input files and depfile contents.
type Properties struct {
	EntryPoint             string
	TrackWidgetCreation    bool
	LinkPlatformKernelIn   bool
}

// Store hashes/persists/compares fingerprints keyed by a depfile path.
type Store interface {
	// Matches reports whether the fingerprint at <depFilePath>.fingerprint
	// matches props and the current contents of inputFiles and
	// depFilePath. A missing fingerprint file or any read error is
	// reported as a non-match, never an error.
	Matches(depFilePath string, props Properties, inputFiles []string) bool
	// Persist writes the current fingerprint for depFilePath.
	Persist(depFilePath string, props Properties, inputFiles []string) error
}

// Params is the set of dependencies required to construct a Store.
type Params struct {
	fx.In

	FS fs.FS
}

type store struct {
	fs fs.FS
}

// New constructs the default Store.
func New(p Params) Store {
	return &store{fs: p.FS}
}

func fingerprintPath(depFilePath string) string {
	return depFilePath + ".fingerprint"
}

func filterBuildbotPaths(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if strings.HasPrefix(p, buildbotPrefix) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func (s *store) hash(props Properties, inputFiles []string, depFilePath string) (string, error) {
	h := sha256.New()
	fmt.Fprintf(h, "entryPoint=%s\n", props.EntryPoint)
	fmt.Fprintf(h, "trackWidgetCreation=%s\n", strconv.FormatBool(props.TrackWidgetCreation))
	fmt.Fprintf(h, "linkPlatformKernelIn=%s\n", strconv.FormatBool(props.LinkPlatformKernelIn))

	inputs := filterBuildbotPaths(inputFiles)
	sort.Strings(inputs)
	for _, in := range inputs {
		info, err := os.Stat(in)
		if err != nil {
			fmt.Fprintf(h, "input=%s;missing\n", in)
			continue
		}
		fmt.Fprintf(h, "input=%s;%d;%d\n", in, info.Size(), info.ModTime().UnixNano())
	}

	depData, err := s.fs.ReadFile(depFilePath)
	if err != nil {
		return "", err
	}
	h.Write(depData)

	return hex.EncodeToString(h.Sum(nil)), nil
}

// Matches implements Store.
func (s *store) Matches(depFilePath string, props Properties, inputFiles []string) bool {
	want, err := s.hash(props, inputFiles, depFilePath)
	if err != nil {
		return false
	}

	got, err := s.fs.ReadFile(fingerprintPath(depFilePath))
	if err != nil {
		return false
	}

	return strings.TrimSpace(string(got)) == want
}

// Persist implements Store.
func (s *store) Persist(depFilePath string, props Properties, inputFiles []string) error {
	sum, err := s.hash(props, inputFiles, depFilePath)
	if err != nil {
		return err
	}
	return s.fs.WriteFile(fingerprintPath(depFilePath), []byte(sum))
}
