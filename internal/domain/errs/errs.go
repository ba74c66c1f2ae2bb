package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrCollision means two callers raced for the same ticket number; safe to retry
	ErrCollision = errors.New("queue number collision")
	// ErrAttendingInProgress means another entry already holds the attending slot for the date
	ErrAttendingInProgress = errors.New("another entry is being attended")
	ErrAlreadyQueued       = errors.New("service already has an open queue entry")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrStorageFailure      = errors.New("storage failure")
	ErrNotFound            = errors.New("not found")
)

// Error carries the offending entity and its current status so callers can
// re-render accurate state.
type Error struct {
	Kind       error
	Op         string
	EntityType string
	EntityID   string
	Status     string
	Err        error
}

func (e *Error) Error() string {
	msg := e.Op + ": " + e.Kind.Error()
	if e.EntityType != "" {
		msg += fmt.Sprintf(" (%s %s", e.EntityType, e.EntityID)
		if e.Status != "" {
			msg += ", status " + e.Status
		}
		msg += ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func New(kind error, op, entityType, entityID, status string) *Error {
	return &Error{Kind: kind, Op: op, EntityType: entityType, EntityID: entityID, Status: status}
}

// Storage wraps a persistence fault. Errors that are already classified pass through.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	var classified *Error
	if errors.As(err, &classified) {
		return err
	}
	return &Error{Kind: ErrStorageFailure, Op: op, Err: err}
}

// KindOf returns the sentinel kind of err, or nil when err is not classified.
func KindOf(err error) error {
	for _, kind := range []error{ErrCollision, ErrAttendingInProgress, ErrAlreadyQueued, ErrInvalidTransition, ErrStorageFailure, ErrNotFound} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
