package repository

import (
	"context"
	"errors"
)

// Transactor runs fn inside a single storage transaction. Repositories called
// with the ctx passed to fn join that transaction.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Constraint violations reported by QueueEntryRepository implementations
var (
	ErrDuplicateNumber = errors.New("queue number already assigned for date")
	ErrAttendingTaken  = errors.New("attending slot already taken for date")
	ErrServiceQueued   = errors.New("service already has an open queue entry for date")
)
