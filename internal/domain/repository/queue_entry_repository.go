package repository

import (
	"context"
	"time"

	"go-clinic-queue/internal/domain/entity"

	"github.com/google/uuid"
)

type QueueEntryRepository interface {
	// MaxNumber returns the highest number issued for date, 0 when none
	MaxNumber(ctx context.Context, date time.Time) (int, error)
	// Create fails with ErrDuplicateNumber or ErrServiceQueued on constraint violations
	Create(ctx context.Context, entry *entity.QueueEntry) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.QueueEntry, error)
	FindOpenByService(ctx context.Context, serviceID uuid.UUID, date time.Time) (*entity.QueueEntry, error)
	ListOpenByService(ctx context.Context, serviceID uuid.UUID) ([]entity.QueueEntry, error)
	FindAttending(ctx context.Context, date time.Time) (*entity.QueueEntry, error)
	FindHeadWaiting(ctx context.Context, date time.Time) (*entity.QueueEntry, error)
	// MarkAttending is a compare-and-set on the attending slot of date. It fails with
	// ErrAttendingTaken or returns 0 rows when another caller won the race.
	MarkAttending(ctx context.Context, id uuid.UUID, date time.Time, at time.Time) (int64, error)
	MarkDone(ctx context.Context, id uuid.UUID, from entity.QueueStatus, outcome entity.QueueOutcome, at time.Time) (int64, error)

	ListTickets(ctx context.Context, date time.Time) ([]entity.QueueTicket, error)
	FindTicket(ctx context.Context, id uuid.UUID) (*entity.QueueTicket, error)
}
