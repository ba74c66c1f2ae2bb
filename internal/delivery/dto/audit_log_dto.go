package dto

import (
	"time"

	"go-clinic-queue/internal/domain/entity"

	"github.com/google/uuid"
)

// Response DTOs

type AuditLogResponse struct {
	ID         int64       `json:"id"`
	UserID     *uuid.UUID  `json:"user_id,omitempty"`
	Role       string      `json:"role,omitempty"`
	Action     string      `json:"action"`
	EntityType string      `json:"entity_type"`
	EntityID   uuid.UUID   `json:"entity_id"`
	FromStatus string      `json:"from_status,omitempty"`
	ToStatus   string      `json:"to_status,omitempty"`
	Metadata   entity.JSON `json:"metadata,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
}

type AuditLogListResponse struct {
	Logs  []AuditLogResponse `json:"logs"`
	Total int                `json:"total"`
}
