// Package kvstore is the key-value layer behind site content. Each content
// type lives under one key as a single JSON document.
//
// Implementations exist for Redis, PostgreSQL, SQLite and an in-process map.
// All of them satisfy Store; Open picks one from a URL.
package kvstore

import (
	"context"
	"errors"
)

// ---------------------------------------------------------------------------
// Sentinel errors
// ---------------------------------------------------------------------------

var (
	// ErrNotFound is returned when the key has never been written.
	ErrNotFound = errors.New("key not found")

	// ErrUnavailable wraps connectivity failures. Callers on read paths
	// degrade to another source; write paths surface it as 503.
	ErrUnavailable = errors.New("store unavailable")

	// ErrUnsupportedScheme is returned by Open for an unknown URL scheme.
	ErrUnsupportedScheme = errors.New("unsupported store scheme")
)

// ---------------------------------------------------------------------------
// Store interface
// ---------------------------------------------------------------------------

// Store defines the data access methods for content documents.
// Every method:
//   - Takes context.Context as first argument.
//   - Returns ErrNotFound for a missing key.
//   - Wraps connectivity failures with ErrUnavailable.
type Store interface {
	// Get returns the raw value stored under key.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set overwrites the value stored under key.
	Set(ctx context.Context, key string, value []byte) error

	// Ping checks connectivity. Used by the readiness probe.
	Ping(ctx context.Context) error

	// Close releases the underlying connection.
	Close() error
}
