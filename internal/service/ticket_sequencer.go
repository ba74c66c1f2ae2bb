package service

import (
	"context"
	"errors"
	"time"

	"go-clinic-queue/internal/domain/entity"
	"go-clinic-queue/internal/domain/errs"
	"go-clinic-queue/internal/domain/repository"

	"github.com/sirupsen/logrus"
)

// TicketSequencer issues same-day queue numbers. Uniqueness is enforced by the
// (queue_date, queue_number) constraint; losers of a race get errs.ErrCollision
// and must retry in a fresh transaction.
type TicketSequencer interface {
	NextNumber(ctx context.Context, queueDate time.Time) (int, error)
	Assign(ctx context.Context, entry *entity.QueueEntry) error
}

type ticketSequencer struct {
	log       *logrus.Logger
	queueRepo repository.QueueEntryRepository
}

func NewTicketSequencer(log *logrus.Logger, queueRepo repository.QueueEntryRepository) TicketSequencer {
	return &ticketSequencer{
		log:       log,
		queueRepo: queueRepo,
	}
}

// NextNumber returns the smallest number greater than every number issued for the date.
// Numbers are never reused, even when the entry was withdrawn.
func (s *ticketSequencer) NextNumber(ctx context.Context, queueDate time.Time) (int, error) {
	max, err := s.queueRepo.MaxNumber(ctx, queueDate)
	if err != nil {
		return 0, errs.Storage("next number", err)
	}
	return max + 1, nil
}

// Assign numbers the entry for its queue date and inserts it
func (s *ticketSequencer) Assign(ctx context.Context, entry *entity.QueueEntry) error {
	number, err := s.NextNumber(ctx, entry.QueueDate)
	if err != nil {
		return err
	}
	entry.QueueNumber = number

	if err := s.queueRepo.Create(ctx, entry); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateNumber):
			s.log.Debugf("Queue number %d for %s already taken", number, entry.QueueDate.Format(time.DateOnly))
			return &errs.Error{Kind: errs.ErrCollision, Op: "assign", EntityType: string(entity.EntityQueueEntry), Err: err}
		case errors.Is(err, repository.ErrServiceQueued):
			return &errs.Error{
				Kind:       errs.ErrAlreadyQueued,
				Op:         "assign",
				EntityType: string(entity.EntityService),
				EntityID:   entry.ServiceID.String(),
				Err:        err,
			}
		}
		return errs.Storage("assign", err)
	}
	return nil
}
