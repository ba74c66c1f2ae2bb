package service

import (
	"context"

	"go-clinic-queue/internal/domain/entity"
	"go-clinic-queue/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Transition describes one accepted state change for the audit trail
type Transition struct {
	Action     string
	EntityType entity.EntityType
	EntityID   uuid.UUID
	From       string
	To         string
	Metadata   entity.JSON
}

type AuditService interface {
	// LogTransition must be called with the ctx of the transaction that applied the change
	LogTransition(ctx context.Context, actor entity.Actor, t Transition) error
	History(ctx context.Context, entityType entity.EntityType, entityID uuid.UUID) ([]entity.AuditLog, error)
}

type auditService struct {
	log       *logrus.Logger
	auditRepo repository.AuditLogRepository
}

func NewAuditService(log *logrus.Logger, auditRepo repository.AuditLogRepository) AuditService {
	return &auditService{
		log:       log,
		auditRepo: auditRepo,
	}
}

func (s *auditService) LogTransition(ctx context.Context, actor entity.Actor, t Transition) error {
	var userID *uuid.UUID
	if actor.UserID != uuid.Nil {
		id := actor.UserID
		userID = &id
	}

	auditLog := &entity.AuditLog{
		UserID:     userID,
		Role:       actor.Role,
		Action:     t.Action,
		EntityType: string(t.EntityType),
		EntityID:   t.EntityID,
		FromStatus: t.From,
		ToStatus:   t.To,
		Metadata:   t.Metadata,
	}

	if err := s.auditRepo.Create(ctx, auditLog); err != nil {
		s.log.Warnf("Failed to create audit log: %+v", err)
		return err
	}

	return nil
}

func (s *auditService) History(ctx context.Context, entityType entity.EntityType, entityID uuid.UUID) ([]entity.AuditLog, error) {
	logs, err := s.auditRepo.FindByEntity(ctx, string(entityType), entityID)
	if err != nil {
		s.log.Warnf("Failed to find audit logs for %s %s: %+v", entityType, entityID, err)
		return nil, err
	}
	return logs, nil
}
