package repository

import (
	"context"
	"time"

	"go-clinic-queue/internal/domain/entity"

	"github.com/google/uuid"
)

type ServiceRepository interface {
	Create(ctx context.Context, service *entity.Service) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Service, error)
	// FindByIDForUpdate locks the row until the surrounding transaction ends
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Service, error)
	// UpdateStatus moves the service from -> to only if it is still in from.
	// Returns affected rows: 0 means the row changed underneath the caller.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to entity.ServiceStatus) (int64, error)
	// Complete writes status, completed_at, completed_by and the recomputed total in one statement
	Complete(ctx context.Context, id uuid.UUID, completedBy uuid.UUID, at time.Time) (int64, error)
	Cancel(ctx context.Context, id uuid.UUID) (int64, error)
	UpdatePaymentStatus(ctx context.Context, id uuid.UUID, from, to entity.PaymentStatus) (int64, error)
	AddItem(ctx context.Context, item *entity.ServiceItem) error
	// RecomputeTotal sets total_amount to the sum of item subtotals and bumps the version
	RecomputeTotal(ctx context.Context, id uuid.UUID) error

	FindDetail(ctx context.Context, id uuid.UUID) (*entity.ServiceDetail, error)
	ListDetailsByDate(ctx context.Context, date time.Time) ([]entity.ServiceDetail, error)
	ListScheduled(ctx context.Context) ([]entity.ServiceDetail, error)
}
