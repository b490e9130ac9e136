package ledger

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrDuplicateMovement is returned when a movement id is already in the log.
	ErrDuplicateMovement = errors.New("duplicate movement id")

	// ErrInvalidMovement is returned for movements that cannot be appended at all.
	ErrInvalidMovement = errors.New("invalid movement")

	// ErrInvalidKind is returned when a kind is not part of the ledger's enumeration.
	ErrInvalidKind = errors.New("invalid movement kind")

	// ErrInvalidDate is returned when a date is not YYYY-MM-DD or RFC3339.
	ErrInvalidDate = errors.New("invalid date")
)

// DuplicateMovementError names the id that collided.
type DuplicateMovementError struct {
	ID MovementID
}

func (e *DuplicateMovementError) Error() string {
	return fmt.Sprintf("duplicate movement id: %s", e.ID)
}

func (e *DuplicateMovementError) Unwrap() error {
	return ErrDuplicateMovement
}

// IsClientError returns true if the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidMovement) ||
		errors.Is(err, ErrInvalidKind) ||
		errors.Is(err, ErrInvalidDate) ||
		errors.Is(err, ErrDuplicateMovement)
}
