// Package fingerprintfake provides a hand-written fake of
// fingerprint.Store backed by a map, for tests that don't want to touch
// disk fingerprint files.
package fingerprintfake

import "github.com/uber/fsdriver/src/fsdriver/repository/fingerprint"

// Store is a fake fingerprint.Store.
type Store struct {
	matches   map[string]bool
	Persisted map[string]fingerprint.Properties
}

var _ fingerprint.Store = (*Store)(nil)

// New returns a Store where nothing matches until WithMatch is called.
func New() *Store {
	return &Store{matches: make(map[string]bool), Persisted: make(map[string]fingerprint.Properties)}
}

// WithMatch makes Matches(depFilePath, ...) return true.
func (s *Store) WithMatch(depFilePath string) *Store {
	s.matches[depFilePath] = true
	return s
}

// Matches implements fingerprint.Store.
func (s *Store) Matches(depFilePath string, props fingerprint.Properties, inputFiles []string) bool {
	return s.matches[depFilePath]
}

// Persist implements fingerprint.Store.
func (s *Store) Persist(depFilePath string, props fingerprint.Properties, inputFiles []string) error {
	s.Persisted[depFilePath] = props
	return nil
}
