// Package kv is the ordered key/value store rowstore keeps catalogs and
// tables in. Keys are ordered byte-lexicographically.
package kv

import (
	"fmt"

	"github.com/tuannm99/rowstore/internal/errs"
)

var (
	ErrNotFound  = fmt.Errorf("kv: key not found: %w", errs.ErrNotFound)
	ErrKeyExists = fmt.Errorf("kv: key already exists: %w", errs.ErrAlreadyExists)
	ErrClosed    = fmt.Errorf("kv: store is closed: %w", errs.ErrInvalidState)
	// ErrConflict is returned by an implementation when the operation lost a
	// race with another writer and may be retried.
	ErrConflict = fmt.Errorf("kv: conflict: %w", errs.ErrConflict)
)

// Store is one named, ordered key/value collection.
type Store interface {
	// Get returns a copy of the value stored under key, or ErrNotFound.
	Get(key []byte) ([]byte, error)
	// PutIfAbsent stores (key, value) unless key exists, in which case it
	// returns ErrKeyExists and leaves the stored value untouched.
	PutIfAbsent(key, value []byte) error
	// Delete removes key, or returns ErrNotFound.
	Delete(key []byte) error
	// OpenCursor returns a cursor over the store in key order. The caller
	// must Close it.
	OpenCursor() (Cursor, error)
	Close() error
}

// Cursor walks a Store in ascending key order. Returned slices are owned by
// the caller.
type Cursor interface {
	// First positions on the smallest key. ok is false when the store is empty.
	First() (key, value []byte, ok bool, err error)
	// Next moves past the current key. ok is false once no keys remain.
	// Calling Next on an unpositioned cursor behaves like First.
	Next() (key, value []byte, ok bool, err error)
	Close() error
}

// Env owns a set of named stores.
type Env interface {
	// Open returns the named store, creating it if needed.
	Open(name string) (Store, error)
	// Remove deletes the named store and its data. Removing a missing store
	// returns ErrNotFound.
	Remove(name string) error
	Close() error
}
