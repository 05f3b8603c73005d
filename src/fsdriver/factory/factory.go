// Package factory contains small helpers for constructing test fixtures,
// kept separate from the test files that use them so they can be shared
// across packages.
package factory

import (
	"github.com/gofrs/uuid"
)

// UUID is a user-defined factory for a random uuid.UUID, used to mint
// boundary keys for resident-session requests.
func UUID() uuid.UUID {
	return uuid.Must(uuid.NewV4())
}
