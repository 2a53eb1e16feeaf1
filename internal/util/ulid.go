package util

import "github.com/oklog/ulid/v2"

// New returns a fresh ULID string for record IDs.
func New() string {
	return ulid.Make().String()
}
