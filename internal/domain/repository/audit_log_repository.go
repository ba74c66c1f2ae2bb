package repository

import (
	"context"

	"go-clinic-queue/internal/domain/entity"

	"github.com/google/uuid"
)

type AuditLogRepository interface {
	Create(ctx context.Context, log *entity.AuditLog) error
	FindAll(ctx context.Context, limit int) ([]entity.AuditLog, error)
	FindByEntity(ctx context.Context, entityType string, entityID uuid.UUID) ([]entity.AuditLog, error)
}
