package repository

import (
	"context"

	"go-clinic-queue/internal/domain/entity"
	domainRepo "go-clinic-queue/internal/domain/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type auditLogRepository struct {
	db *gorm.DB
}

func NewAuditLogRepository(db *gorm.DB) domainRepo.AuditLogRepository {
	return &auditLogRepository{db: db}
}

func (r *auditLogRepository) Create(ctx context.Context, log *entity.AuditLog) error {
	return conn(ctx, r.db).Create(log).Error
}

func (r *auditLogRepository) FindAll(ctx context.Context, limit int) ([]entity.AuditLog, error) {
	var logs []entity.AuditLog
	err := conn(ctx, r.db).Order("id DESC").Limit(limit).Find(&logs).Error
	if err != nil {
		return nil, err
	}
	return logs, nil
}

func (r *auditLogRepository) FindByEntity(ctx context.Context, entityType string, entityID uuid.UUID) ([]entity.AuditLog, error) {
	var logs []entity.AuditLog
	err := conn(ctx, r.db).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Order("id ASC").
		Find(&logs).Error
	if err != nil {
		return nil, err
	}
	return logs, nil
}
