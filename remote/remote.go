/*
Package remote talks to the backend that holds the authoritative copy of
every ledger record.

PURPOSE:
  Local mutations are applied optimistically and then pushed here one
  record at a time. The backend assigns its own ids on create; the stock
  service replaces its provisional ids with them.

INTERFACES:
  Remote:     Create / Update / Delete one record in a collection

IMPLEMENTATIONS:
  HTTPClient: JSON over HTTP
  Memory:     in-process backend for tests and the demo server
*/
package remote

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned when the backend has no record with the id.
var ErrNotFound = errors.New("remote record not found")

// Remote is the authoritative backend. Implementations must be safe for
// concurrent use.
type Remote interface {
	// Create stores record and returns the id the backend assigned.
	Create(ctx context.Context, collection string, record any) (string, error)
	Update(ctx context.Context, collection, id string, record any) error
	Delete(ctx context.Context, collection, id string) error
}

// StatusError is a non-2xx answer from the backend.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.URL, e.StatusCode, e.Body)
}

func (e *StatusError) Unwrap() error {
	if e.StatusCode == 404 {
		return ErrNotFound
	}
	return nil
}
