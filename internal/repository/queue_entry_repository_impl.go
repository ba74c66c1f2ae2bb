package repository

import (
	"context"
	"errors"
	"time"

	"go-clinic-queue/internal/domain/entity"
	domainRepo "go-clinic-queue/internal/domain/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type queueEntryRepository struct {
	db *gorm.DB
}

func NewQueueEntryRepository(db *gorm.DB) domainRepo.QueueEntryRepository {
	return &queueEntryRepository{db: db}
}

func day(date time.Time) string {
	return date.Format(time.DateOnly)
}

func (r *queueEntryRepository) MaxNumber(ctx context.Context, date time.Time) (int, error) {
	var max int
	err := conn(ctx, r.db).Model(&entity.QueueEntry{}).
		Where("queue_date = ?", day(date)).
		Select("COALESCE(MAX(queue_number), 0)").
		Scan(&max).Error
	return max, err
}

func (r *queueEntryRepository) Create(ctx context.Context, entry *entity.QueueEntry) error {
	return classifyQueueError(conn(ctx, r.db).Create(entry).Error)
}

func (r *queueEntryRepository) first(db *gorm.DB) (*entity.QueueEntry, error) {
	var entry entity.QueueEntry
	err := db.First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

func (r *queueEntryRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.QueueEntry, error) {
	return r.first(conn(ctx, r.db).Where("id = ?", id))
}

func (r *queueEntryRepository) FindOpenByService(ctx context.Context, serviceID uuid.UUID, date time.Time) (*entity.QueueEntry, error) {
	return r.first(conn(ctx, r.db).
		Where("service_id = ? AND queue_date = ? AND status <> ?", serviceID, day(date), entity.QueueStatusDone))
}

func (r *queueEntryRepository) ListOpenByService(ctx context.Context, serviceID uuid.UUID) ([]entity.QueueEntry, error) {
	var entries []entity.QueueEntry
	err := conn(ctx, r.db).
		Where("service_id = ? AND status <> ?", serviceID, entity.QueueStatusDone).
		Order("queue_date ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *queueEntryRepository) FindAttending(ctx context.Context, date time.Time) (*entity.QueueEntry, error) {
	return r.first(conn(ctx, r.db).
		Where("queue_date = ? AND status = ?", day(date), entity.QueueStatusAttending))
}

func (r *queueEntryRepository) FindHeadWaiting(ctx context.Context, date time.Time) (*entity.QueueEntry, error) {
	return r.first(conn(ctx, r.db).
		Where("queue_date = ? AND status = ?", day(date), entity.QueueStatusWaiting).
		Order("queue_number ASC"))
}

// MarkAttending atomically moves a waiting entry into the attending slot of its date.
// Returns affected rows: 1 = success, 0 = entry no longer waiting or slot taken.
func (r *queueEntryRepository) MarkAttending(ctx context.Context, id uuid.UUID, date time.Time, at time.Time) (int64, error) {
	result := conn(ctx, r.db).Model(&entity.QueueEntry{}).
		Where("id = ? AND status = ?", id, entity.QueueStatusWaiting).
		Where("NOT EXISTS (SELECT 1 FROM queue_entries AS a WHERE a.queue_date = ? AND a.status = ?)",
			day(date), entity.QueueStatusAttending).
		Updates(map[string]interface{}{
			"status":    entity.QueueStatusAttending,
			"called_at": at,
			"version":   gorm.Expr("version + 1"),
		})
	return result.RowsAffected, classifyQueueError(result.Error)
}

func (r *queueEntryRepository) MarkDone(ctx context.Context, id uuid.UUID, from entity.QueueStatus, outcome entity.QueueOutcome, at time.Time) (int64, error) {
	result := conn(ctx, r.db).Model(&entity.QueueEntry{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{
			"status":  entity.QueueStatusDone,
			"outcome": outcome,
			"done_at": at,
			"version": gorm.Expr("version + 1"),
		})
	return result.RowsAffected, result.Error
}

func (r *queueEntryRepository) tickets(db *gorm.DB) *gorm.DB {
	return db.Model(&entity.QueueEntry{}).
		Select(`queue_entries.id AS entry_id, queue_entries.service_id, services.client_id,
			clients.full_name AS client_name, services.service_type, queue_entries.queue_date,
			queue_entries.queue_number, queue_entries.status, queue_entries.outcome,
			queue_entries.called_at, queue_entries.version`).
		Joins("JOIN services ON services.id = queue_entries.service_id").
		Joins("LEFT JOIN clients ON clients.id = services.client_id")
}

func (r *queueEntryRepository) ListTickets(ctx context.Context, date time.Time) ([]entity.QueueTicket, error) {
	var tickets []entity.QueueTicket
	err := r.tickets(conn(ctx, r.db)).
		Where("queue_entries.queue_date = ?", day(date)).
		Order("queue_entries.queue_number ASC").
		Scan(&tickets).Error
	if err != nil {
		return nil, err
	}
	return tickets, nil
}

func (r *queueEntryRepository) FindTicket(ctx context.Context, id uuid.UUID) (*entity.QueueTicket, error) {
	var tickets []entity.QueueTicket
	err := r.tickets(conn(ctx, r.db)).
		Where("queue_entries.id = ?", id).
		Limit(1).
		Scan(&tickets).Error
	if err != nil {
		return nil, err
	}
	if len(tickets) == 0 {
		return nil, nil
	}
	return &tickets[0], nil
}
