package dto

import (
	"time"

	"github.com/google/uuid"
)

// Request DTOs

type CheckInRequest struct {
	ServiceID uuid.UUID `json:"service_id" validate:"required"`
}

type CallNextRequest struct {
	QueueDate string `json:"queue_date" validate:"omitempty,datetime=2006-01-02"`
}

// Response DTOs

type QueueEntryResponse struct {
	ID          uuid.UUID  `json:"id"`
	ServiceID   uuid.UUID  `json:"service_id"`
	QueueDate   string     `json:"queue_date"`
	QueueNumber int        `json:"queue_number"`
	Status      string     `json:"status"`
	Outcome     string     `json:"outcome,omitempty"`
	CalledAt    *time.Time `json:"called_at,omitempty"`
	DoneAt      *time.Time `json:"done_at,omitempty"`
	Version     int64      `json:"version"`
	CreatedAt   time.Time  `json:"created_at"`
}

type QueueTicketResponse struct {
	EntryID     uuid.UUID  `json:"entry_id"`
	ServiceID   uuid.UUID  `json:"service_id"`
	ClientName  string     `json:"client_name"`
	ServiceType string     `json:"service_type"`
	QueueNumber int        `json:"queue_number"`
	Status      string     `json:"status"`
	Outcome     string     `json:"outcome,omitempty"`
	CalledAt    *time.Time `json:"called_at,omitempty"`
}

type QueueListResponse struct {
	QueueDate string                `json:"queue_date"`
	Tickets   []QueueTicketResponse `json:"tickets"`
	Total     int                   `json:"total"`
}
