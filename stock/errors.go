package stock

import (
	"errors"
	"fmt"

	"github.com/tidewater/stock-ledger/ledger"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNotFound is returned when a document id is unknown.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput is returned when a mutation is missing required fields.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidTransition is returned when a transfer cannot move to the
	// requested status.
	ErrInvalidTransition = errors.New("invalid transfer transition")

	// ErrSlipAlreadyExported is returned when a pressing slip is linked to
	// another export document.
	ErrSlipAlreadyExported = errors.New("pressing slip already exported")

	// ErrRemoteSync is returned when the remote backend rejected a mutation
	// and the local state was rolled back.
	ErrRemoteSync = errors.New("remote sync failed")

	// ErrPersistence is returned when local storage could not be written.
	ErrPersistence = errors.New("local persistence failed")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

type NotFoundError struct {
	Collection string
	ID         string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s: not found", e.Collection, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

type TransitionError struct {
	TransferID string
	From       TransferStatus
	To         TransferStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("transfer %s: cannot move from %s to %s", e.TransferID, e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// SyncError reports a remote failure after the local state was restored.
// It matches both ErrRemoteSync and the underlying remote error.
type SyncError struct {
	Op         string
	Collection string
	RecordID   string
	Err        error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("%s: syncing %s %s: %v (local changes reverted)", e.Op, e.Collection, e.RecordID, e.Err)
}

func (e *SyncError) Unwrap() []error { return []error{ErrRemoteSync, e.Err} }

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// IsClientError returns true if the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidInput) || ledger.IsClientError(err)
}

// IsConflict returns true if the request is valid but clashes with the
// current state of a document.
func IsConflict(err error) bool {
	return errors.Is(err, ErrInvalidTransition) || errors.Is(err, ErrSlipAlreadyExported)
}
