// Package errors defines the error taxonomy for fsdriver's compiler
// subprocess driver: the kinds a caller of BatchDriver or ResidentSession
// can distinguish, independent of how the condition was detected.
package errors

import stderr "errors"

// New returns an error that formats as the given text.
// Each call to New returns a distinct error value even if the text is identical.
func New(msg string) error {
	return stderr.New(msg)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return stderr.Is(err, target)
}

// As finds the first error in err's chain that matches target, storing it there.
func As(err error, target interface{}) bool {
	return stderr.As(err, target)
}
