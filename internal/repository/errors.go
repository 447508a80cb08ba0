// Package repository defines the data access layer and the sentinel error
// values shared across its repositories.  Sentinels let higher layers such
// as handlers and the bid arbiter distinguish failure scenarios without
// string matching: a version conflict is retried, a missing auction maps
// to HTTP 404, and so on.
package repository

import "errors"

// ErrAuctionNotFound is returned when no auction row exists for the
// requested identifier.  Handlers translate this into an HTTP 404.
var ErrAuctionNotFound = errors.New("auction not found")

// ErrVersionConflict is returned by the conditional-update primitives when
// the stored version no longer matches the version the caller read.  It
// means another writer committed first; callers re-read and re-validate.
var ErrVersionConflict = errors.New("version conflict")

// ErrEmailExists is returned when registering a user with an email that
// is already taken.  Handlers translate this into an HTTP 409.
var ErrEmailExists = errors.New("email already exists")
