package usecase

import (
	"context"
	"errors"

	"go-clinic-queue/internal/converter"
	"go-clinic-queue/internal/delivery/dto"
	"go-clinic-queue/internal/domain/entity"
	"go-clinic-queue/internal/domain/errs"
	"go-clinic-queue/internal/domain/repository"
	"go-clinic-queue/internal/service"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var ErrUnknownEntityType = errors.New("unknown entity type")

const defaultAuditLimit = 100

type AuditLogUsecase interface {
	GetRecentAuditLogs(ctx context.Context, limit int) (*dto.AuditLogListResponse, error)
	GetEntityHistory(ctx context.Context, entityType string, entityID uuid.UUID) (*dto.AuditLogListResponse, error)
}

type auditLogUsecase struct {
	log          *logrus.Logger
	auditLogRepo repository.AuditLogRepository
	auditService service.AuditService
}

func NewAuditLogUsecase(
	log *logrus.Logger,
	auditLogRepo repository.AuditLogRepository,
	auditService service.AuditService,
) AuditLogUsecase {
	return &auditLogUsecase{
		log:          log,
		auditLogRepo: auditLogRepo,
		auditService: auditService,
	}
}

func (u *auditLogUsecase) GetRecentAuditLogs(ctx context.Context, limit int) (*dto.AuditLogListResponse, error) {
	if limit <= 0 || limit > defaultAuditLimit {
		limit = defaultAuditLimit
	}

	logs, err := u.auditLogRepo.FindAll(ctx, limit)
	if err != nil {
		u.log.Warnf("Failed to find audit logs: %+v", err)
		return nil, errs.Storage("recent audit logs", err)
	}

	return &dto.AuditLogListResponse{
		Logs:  converter.AuditLogsToResponses(logs),
		Total: len(logs),
	}, nil
}

// GetEntityHistory returns every accepted transition of one service or queue entry, oldest first
func (u *auditLogUsecase) GetEntityHistory(ctx context.Context, entityType string, entityID uuid.UUID) (*dto.AuditLogListResponse, error) {
	t := entity.EntityType(entityType)
	if t != entity.EntityService && t != entity.EntityQueueEntry {
		return nil, ErrUnknownEntityType
	}

	logs, err := u.auditService.History(ctx, t, entityID)
	if err != nil {
		return nil, errs.Storage("entity history", err)
	}

	return &dto.AuditLogListResponse{
		Logs:  converter.AuditLogsToResponses(logs),
		Total: len(logs),
	}, nil
}
