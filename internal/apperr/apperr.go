package apperr

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is a generic sentinel for missing resources.
	ErrNotFound = errors.New("not found")
	// ErrConflict marks writes rejected by a uniqueness or ownership guard.
	ErrConflict = errors.New("conflict")
	// ErrInvalidArgument is a generic sentinel for invalid input.
	ErrInvalidArgument = errors.New("invalid argument")
)

// LockConflictError reports a failed thread claim together with the SA
// who currently owns the thread, so callers can surface the owner.
type LockConflictError struct {
	OwnerID   uuid.UUID
	OwnerName string
}

func (e *LockConflictError) Error() string {
	name := e.OwnerName
	if name == "" {
		name = e.OwnerID.String()
	}
	return fmt.Sprintf("thread already claimed by %s", name)
}

func (e *LockConflictError) Unwrap() error { return ErrConflict }
