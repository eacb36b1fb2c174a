package sentinel

import "errors"

// Sentinel errors for storage facts. Stores return these (optionally wrapped)
// and services translate them into domain errors:
//   - ErrNotFound: no row exists for the requested key
//   - ErrConflict: a row already exists for a key that must be unique
//
// Invalid field values are not storage facts; see pkg/domain-errors.
var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)
