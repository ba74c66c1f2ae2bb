package repository

import (
	"context"
	"errors"
	"time"

	"go-clinic-queue/internal/domain/entity"
	domainRepo "go-clinic-queue/internal/domain/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type serviceRepository struct {
	db *gorm.DB
}

func NewServiceRepository(db *gorm.DB) domainRepo.ServiceRepository {
	return &serviceRepository{db: db}
}

func (r *serviceRepository) Create(ctx context.Context, service *entity.Service) error {
	return conn(ctx, r.db).Omit("Items").Create(service).Error
}

func (r *serviceRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Service, error) {
	return r.find(conn(ctx, r.db), id)
}

func (r *serviceRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Service, error) {
	return r.find(conn(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *serviceRepository) find(db *gorm.DB, id uuid.UUID) (*entity.Service, error) {
	var service entity.Service
	err := db.Where("id = ?", id).First(&service).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &service, nil
}

func (r *serviceRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to entity.ServiceStatus) (int64, error) {
	result := conn(ctx, r.db).Model(&entity.Service{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{
			"status":  to,
			"version": gorm.Expr("version + 1"),
		})
	return result.RowsAffected, result.Error
}

// Complete atomically completes an in-progress service whose payment is not cancelled.
// Returns affected rows: 1 = success, 0 = guard failed.
func (r *serviceRepository) Complete(ctx context.Context, id uuid.UUID, completedBy uuid.UUID, at time.Time) (int64, error) {
	result := conn(ctx, r.db).Model(&entity.Service{}).
		Where("id = ? AND status = ? AND payment_status <> ?", id, entity.ServiceStatusInProgress, entity.PaymentStatusCancelled).
		Updates(map[string]interface{}{
			"status":       entity.ServiceStatusCompleted,
			"completed_at": at,
			"completed_by": completedBy,
			"total_amount": gorm.Expr("(SELECT COALESCE(SUM(subtotal), 0) FROM service_items WHERE service_id = ?)", id),
			"version":      gorm.Expr("version + 1"),
		})
	return result.RowsAffected, result.Error
}

func (r *serviceRepository) Cancel(ctx context.Context, id uuid.UUID) (int64, error) {
	result := conn(ctx, r.db).Model(&entity.Service{}).
		Where("id = ? AND status IN ? AND payment_status <> ?", id,
			[]entity.ServiceStatus{entity.ServiceStatusScheduled, entity.ServiceStatusInProgress},
			entity.PaymentStatusCompleted).
		Updates(map[string]interface{}{
			"status":  entity.ServiceStatusCancelled,
			"version": gorm.Expr("version + 1"),
		})
	return result.RowsAffected, result.Error
}

func (r *serviceRepository) UpdatePaymentStatus(ctx context.Context, id uuid.UUID, from, to entity.PaymentStatus) (int64, error) {
	result := conn(ctx, r.db).Model(&entity.Service{}).
		Where("id = ? AND payment_status = ?", id, from).
		Updates(map[string]interface{}{
			"payment_status": to,
			"version":        gorm.Expr("version + 1"),
		})
	return result.RowsAffected, result.Error
}

func (r *serviceRepository) AddItem(ctx context.Context, item *entity.ServiceItem) error {
	return conn(ctx, r.db).Create(item).Error
}

func (r *serviceRepository) RecomputeTotal(ctx context.Context, id uuid.UUID) error {
	return conn(ctx, r.db).Model(&entity.Service{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"total_amount": gorm.Expr("(SELECT COALESCE(SUM(subtotal), 0) FROM service_items WHERE service_id = ?)", id),
			"version":      gorm.Expr("version + 1"),
		}).Error
}

type serviceDetailRow struct {
	entity.Service
	ClientName string
}

type itemLineRow struct {
	entity.ServiceItem
	ProductName string
}

func (r *serviceRepository) FindDetail(ctx context.Context, id uuid.UUID) (*entity.ServiceDetail, error) {
	details, err := r.listDetails(conn(ctx, r.db).Where("services.id = ?", id))
	if err != nil {
		return nil, err
	}
	if len(details) == 0 {
		return nil, nil
	}
	return &details[0], nil
}

func (r *serviceRepository) ListDetailsByDate(ctx context.Context, date time.Time) ([]entity.ServiceDetail, error) {
	return r.listDetails(conn(ctx, r.db).
		Where("services.service_date = ?", date.Format(time.DateOnly)).
		Order("services.service_time ASC"))
}

func (r *serviceRepository) ListScheduled(ctx context.Context) ([]entity.ServiceDetail, error) {
	return r.listDetails(conn(ctx, r.db).
		Where("services.status = ?", entity.ServiceStatusScheduled).
		Order("services.service_date ASC, services.service_time ASC"))
}

func (r *serviceRepository) listDetails(db *gorm.DB) ([]entity.ServiceDetail, error) {
	var rows []serviceDetailRow
	err := db.Model(&entity.Service{}).
		Select("services.*, clients.full_name AS client_name").
		Joins("LEFT JOIN clients ON clients.id = services.client_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	ids := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}

	var lines []itemLineRow
	err = db.Session(&gorm.Session{NewDB: true}).
		Model(&entity.ServiceItem{}).
		Select("service_items.*, products.name AS product_name").
		Joins("LEFT JOIN products ON products.id = service_items.product_id").
		Where("service_items.service_id IN ?", ids).
		Order("service_items.created_at ASC").
		Scan(&lines).Error
	if err != nil {
		return nil, err
	}

	byService := make(map[uuid.UUID][]entity.ServiceItemLine)
	for _, line := range lines {
		byService[line.ServiceID] = append(byService[line.ServiceID], entity.ServiceItemLine{
			ServiceItem: line.ServiceItem,
			ProductName: line.ProductName,
		})
	}

	details := make([]entity.ServiceDetail, 0, len(rows))
	for _, row := range rows {
		details = append(details, entity.ServiceDetail{
			Service:    row.Service,
			ClientName: row.ClientName,
			Lines:      byService[row.ID],
		})
	}
	return details, nil
}
