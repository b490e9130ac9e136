/*
Package store defines local persistence for the stock ledger.

PURPOSE:
  Each collection (movements, transfers, slips...) is saved as ONE
  serialized array under its own key. Writes overwrite the whole array,
  so what is on disk is always a complete snapshot of that collection.

INTERFACES:
  Collections: key -> payload, with atomic multi-key writes, plus the
  write time of each key for diagnostics

IMPLEMENTATIONS:
  store/memory: in-process map (tests, demo)
  store/sqlite: single-table SQLite file (server default)
*/
package store

import (
	"context"
	"errors"
	"time"
)

// ErrClosed is returned by stores used after Close.
var ErrClosed = errors.New("store closed")

// Collections persists whole collections by key.
type Collections interface {
	// Get returns the payload stored under key, or nil if the key was never
	// written.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put overwrites the payload stored under key.
	Put(ctx context.Context, key string, payload []byte) error

	// PutMany overwrites several keys atomically.
	PutMany(ctx context.Context, payloads map[string][]byte) error

	// Keys lists every key that has been written, sorted.
	Keys(ctx context.Context) ([]string, error)

	// UpdatedAt returns when key was last written; false if it never was.
	UpdatedAt(ctx context.Context, key string) (time.Time, bool, error)

	// Reset deletes every key.
	Reset(ctx context.Context) error
}
