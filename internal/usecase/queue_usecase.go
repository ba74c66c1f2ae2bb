package usecase

import (
	"context"
	"errors"
	"time"

	"go-clinic-queue/internal/converter"
	"go-clinic-queue/internal/delivery/dto"
	"go-clinic-queue/internal/domain/entity"
	"go-clinic-queue/internal/domain/errs"
	"go-clinic-queue/internal/domain/repository"
	"go-clinic-queue/internal/notifier"
	"go-clinic-queue/internal/service"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// errSlotContended means the attending compare-and-set lost a race; state is re-read and retried
var errSlotContended = errors.New("attending slot contended")

type QueueUsecase interface {
	CheckIn(ctx context.Context, actor entity.Actor, serviceID uuid.UUID) (*dto.QueueEntryResponse, error)
	// CallNext returns nil when nobody is waiting
	CallNext(ctx context.Context, actor entity.Actor, queueDate time.Time) (*dto.QueueEntryResponse, error)
	MarkDone(ctx context.Context, actor entity.Actor, entryID uuid.UUID) (*dto.QueueEntryResponse, error)
	CurrentlyAttending(ctx context.Context, queueDate time.Time) (*dto.QueueTicketResponse, error)
	ListQueue(ctx context.Context, queueDate time.Time) (*dto.QueueListResponse, error)
	Today() time.Time
}

type queueUsecase struct {
	committer
	clock        service.Clock
	sequencer    service.TicketSequencer
	queueRepo    repository.QueueEntryRepository
	serviceRepo  repository.ServiceRepository
	auditService service.AuditService
	retries      int
}

func NewQueueUsecase(
	log *logrus.Logger,
	txm repository.Transactor,
	clock service.Clock,
	sequencer service.TicketSequencer,
	queueRepo repository.QueueEntryRepository,
	serviceRepo repository.ServiceRepository,
	auditService service.AuditService,
	publisher notifier.Publisher,
	retries int,
) QueueUsecase {
	if retries < 0 {
		retries = 0
	}
	return &queueUsecase{
		committer:    committer{log: log, txm: txm, publisher: publisher},
		clock:        clock,
		sequencer:    sequencer,
		queueRepo:    queueRepo,
		serviceRepo:  serviceRepo,
		auditService: auditService,
		retries:      retries,
	}
}

func (u *queueUsecase) Today() time.Time {
	return u.clock.Today()
}

func entryError(kind error, op string, e *entity.QueueEntry) *errs.Error {
	return errs.New(kind, op, string(entity.EntityQueueEntry), e.ID.String(), string(e.Status))
}

// CheckIn issues today's next ticket for the service. Number collisions are retried
// with a fresh number in a fresh transaction.
func (u *queueUsecase) CheckIn(ctx context.Context, actor entity.Actor, serviceID uuid.UUID) (*dto.QueueEntryResponse, error) {
	const op = "check in"
	today := u.clock.Today()

	var entry *entity.QueueEntry
	var err error
	for attempt := 0; attempt <= u.retries; attempt++ {
		entry = nil
		err = u.run(ctx, u.clock.Now(), func(ctx context.Context, cs *changeSet) error {
			svc, err := u.serviceRepo.FindByIDForUpdate(ctx, serviceID)
			if err != nil {
				return errs.Storage(op, err)
			}
			if svc == nil {
				return serviceNotFound(op, serviceID)
			}
			if !svc.CanEnterQueue() {
				return serviceError(errs.ErrInvalidTransition, op, svc)
			}

			open, err := u.queueRepo.FindOpenByService(ctx, serviceID, today)
			if err != nil {
				return errs.Storage(op, err)
			}
			if open != nil {
				return entryError(errs.ErrAlreadyQueued, op, open)
			}

			entry = &entity.QueueEntry{
				ServiceID: serviceID,
				QueueDate: today,
				Status:    entity.QueueStatusWaiting,
				CreatedBy: actor.UserID,
				Version:   1,
			}
			if err := u.sequencer.Assign(ctx, entry); err != nil {
				return err
			}

			if err := u.auditService.LogTransition(ctx, actor, service.Transition{
				Action:     entity.AuditActionQueueCheckIn,
				EntityType: entity.EntityQueueEntry,
				EntityID:   entry.ID,
				To:         string(entry.Status),
				Metadata:   entity.JSON{"queue_number": entry.QueueNumber, "service_id": serviceID.String()},
			}); err != nil {
				return errs.Storage(op, err)
			}
			return cs.queueEntry(entity.ChangeInsert, entry)
		})
		if !errors.Is(err, errs.ErrCollision) {
			break
		}
		u.log.Debugf("Queue number collision on %s, attempt %d", today.Format(time.DateOnly), attempt+1)
	}
	if err != nil {
		u.log.Warnf("Failed to check in service %s: %+v", serviceID, err)
		return nil, err
	}

	u.log.Infof("Checked in: service=%s, date=%s, number=%d", serviceID, today.Format(time.DateOnly), entry.QueueNumber)
	return converter.QueueEntryToResponse(entry), nil
}

// CallNext moves the lowest waiting ticket of the date into the attending slot.
// The slot is taken with a compare-and-set guarded by the partial unique index, so
// it holds across server instances.
func (u *queueUsecase) CallNext(ctx context.Context, actor entity.Actor, queueDate time.Time) (*dto.QueueEntryResponse, error) {
	const op = "call next"
	queueDate = entity.CalendarDay(queueDate, nil)

	var called *entity.QueueEntry
	var err error
	for attempt := 0; attempt <= u.retries; attempt++ {
		called = nil
		err = u.run(ctx, u.clock.Now(), func(ctx context.Context, cs *changeSet) error {
			attending, err := u.queueRepo.FindAttending(ctx, queueDate)
			if err != nil {
				return errs.Storage(op, err)
			}
			if attending != nil {
				return entryError(errs.ErrAttendingInProgress, op, attending)
			}

			head, err := u.queueRepo.FindHeadWaiting(ctx, queueDate)
			if err != nil {
				return errs.Storage(op, err)
			}
			if head == nil {
				return nil
			}

			rows, err := u.queueRepo.MarkAttending(ctx, head.ID, queueDate, cs.at)
			if errors.Is(err, repository.ErrAttendingTaken) || (err == nil && rows == 0) {
				return errSlotContended
			}
			if err != nil {
				return errs.Storage(op, err)
			}

			called, err = u.queueRepo.FindByID(ctx, head.ID)
			if err != nil {
				return errs.Storage(op, err)
			}
			if err := u.auditService.LogTransition(ctx, actor, service.Transition{
				Action:     entity.AuditActionQueueCall,
				EntityType: entity.EntityQueueEntry,
				EntityID:   head.ID,
				From:       string(head.Status),
				To:         string(called.Status),
			}); err != nil {
				return errs.Storage(op, err)
			}
			return cs.queueEntry(entity.ChangeUpdate, called)
		})
		if !errors.Is(err, errSlotContended) {
			break
		}
		u.log.Debugf("Attending slot contended on %s, attempt %d", queueDate.Format(time.DateOnly), attempt+1)
	}
	if errors.Is(err, errSlotContended) {
		err = u.slotTaken(ctx, op, queueDate)
	}
	if err != nil {
		u.log.Warnf("Failed to call next for %s: %+v", queueDate.Format(time.DateOnly), err)
		return nil, err
	}
	if called == nil {
		return nil, nil
	}

	u.log.Infof("Called: date=%s, number=%d", queueDate.Format(time.DateOnly), called.QueueNumber)
	return converter.QueueEntryToResponse(called), nil
}

// slotTaken reports the entry holding the attending slot after the retries ran out
func (u *queueUsecase) slotTaken(ctx context.Context, op string, queueDate time.Time) error {
	attending, err := u.queueRepo.FindAttending(ctx, queueDate)
	if err != nil {
		return errs.Storage(op, err)
	}
	if attending == nil {
		return errs.New(errs.ErrAttendingInProgress, op, string(entity.EntityQueueEntry), "", string(entity.QueueStatusAttending))
	}
	return entryError(errs.ErrAttendingInProgress, op, attending)
}

// MarkDone finishes the attending entry. Marking an entry that is already done is a no-op.
func (u *queueUsecase) MarkDone(ctx context.Context, actor entity.Actor, entryID uuid.UUID) (*dto.QueueEntryResponse, error) {
	const op = "mark done"

	var result *entity.QueueEntry
	err := u.run(ctx, u.clock.Now(), func(ctx context.Context, cs *changeSet) error {
		current, err := u.queueRepo.FindByID(ctx, entryID)
		if err != nil {
			return errs.Storage(op, err)
		}
		if current == nil {
			return errs.New(errs.ErrNotFound, op, string(entity.EntityQueueEntry), entryID.String(), "")
		}
		if current.IsDone() {
			result = current
			return nil
		}
		if !current.IsAttending() {
			return entryError(errs.ErrInvalidTransition, op, current)
		}

		rows, err := u.queueRepo.MarkDone(ctx, entryID, entity.QueueStatusAttending, entity.QueueOutcomeServed, cs.at)
		if err != nil {
			return errs.Storage(op, err)
		}
		result, err = u.queueRepo.FindByID(ctx, entryID)
		if err != nil {
			return errs.Storage(op, err)
		}
		if rows == 0 {
			if result.IsDone() {
				return nil
			}
			return entryError(errs.ErrInvalidTransition, op, result)
		}

		if err := u.auditService.LogTransition(ctx, actor, service.Transition{
			Action:     entity.AuditActionQueueDone,
			EntityType: entity.EntityQueueEntry,
			EntityID:   entryID,
			From:       string(current.Status),
			To:         string(result.Status),
			Metadata:   entity.JSON{"outcome": string(result.Outcome)},
		}); err != nil {
			return errs.Storage(op, err)
		}
		return cs.queueEntry(entity.ChangeUpdate, result)
	})
	if err != nil {
		u.log.Warnf("Failed to mark done %s: %+v", entryID, err)
		return nil, err
	}
	return converter.QueueEntryToResponse(result), nil
}

func (u *queueUsecase) CurrentlyAttending(ctx context.Context, queueDate time.Time) (*dto.QueueTicketResponse, error) {
	queueDate = entity.CalendarDay(queueDate, nil)
	attending, err := u.queueRepo.FindAttending(ctx, queueDate)
	if err != nil {
		u.log.Warnf("Failed to find attending entry for %s: %+v", queueDate.Format(time.DateOnly), err)
		return nil, errs.Storage("currently attending", err)
	}
	if attending == nil {
		return nil, nil
	}

	ticket, err := u.queueRepo.FindTicket(ctx, attending.ID)
	if err != nil {
		u.log.Warnf("Failed to find ticket %s: %+v", attending.ID, err)
		return nil, errs.Storage("currently attending", err)
	}
	return converter.QueueTicketToResponse(ticket), nil
}

func (u *queueUsecase) ListQueue(ctx context.Context, queueDate time.Time) (*dto.QueueListResponse, error) {
	queueDate = entity.CalendarDay(queueDate, nil)
	tickets, err := u.queueRepo.ListTickets(ctx, queueDate)
	if err != nil {
		u.log.Warnf("Failed to list queue for %s: %+v", queueDate.Format(time.DateOnly), err)
		return nil, errs.Storage("list queue", err)
	}

	return &dto.QueueListResponse{
		QueueDate: queueDate.Format(time.DateOnly),
		Tickets:   converter.QueueTicketsToResponses(tickets),
		Total:     len(tickets),
	}, nil
}
