// Package store implements an in-memory hierarchical data store: a compact
// binary container format (see internal/layout), a typed runtime over it
// (Container, Registry), a dotted-path addressing engine, and a Storage
// façade tying the two together with synchronous change notifications.
package store

import (
	"golang.org/x/xerrors"

	"github.com/binobj/store/internal/migrate"
)

// Sentinel error kinds. Operations report failures with one of these,
// usually wrapped with xerrors.Errorf for context, so callers can match with
// errors.Is while still getting a useful message.
var (
	// ErrObjectDisposed is returned by any Container or StorageObject method
	// called after Dispose.
	ErrObjectDisposed = xerrors.New("store: object disposed")

	// ErrInvalidCast is returned when a value conversion is disallowed by
	// the migration policy (for example retyping a Ref or Blob field to
	// another tag). It is the same value as migrate.ErrInvalidCast.
	ErrInvalidCast = migrate.ErrInvalidCast

	// ErrIndexOutOfRange is returned for array index and field-length
	// violations.
	ErrIndexOutOfRange = xerrors.New("store: index out of range")

	// ErrArgumentError is returned for malformed call arguments: mismatched
	// buffer lengths, a field name that already exists, and similar.
	ErrArgumentError = xerrors.New("store: argument error")

	// ErrKeyNotFound is returned when a named field does not exist on a
	// container.
	ErrKeyNotFound = xerrors.New("store: key not found")

	// ErrNotFound is returned when a registry id or a storage path does not
	// resolve to a live container.
	ErrNotFound = xerrors.New("store: not found")
)
