package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ServiceStatus represents the clinical status of a service
type ServiceStatus string

const (
	ServiceStatusScheduled  ServiceStatus = "scheduled"
	ServiceStatusInProgress ServiceStatus = "in_progress"
	ServiceStatusCompleted  ServiceStatus = "completed"
	ServiceStatusCancelled  ServiceStatus = "cancelled"
)

// PaymentStatus is updated by the billing collaborator independently of ServiceStatus
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusPartial   PaymentStatus = "partial"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusCancelled PaymentStatus = "cancelled"
)

var serviceTransitions = map[ServiceStatus][]ServiceStatus{
	ServiceStatusScheduled:  {ServiceStatusInProgress, ServiceStatusCancelled},
	ServiceStatusInProgress: {ServiceStatusCompleted, ServiceStatusCancelled},
}

// Corrections (completed -> partial, cancelled -> pending) are allowed so billing
// can fix mistakes after the fact.
var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusPending:   {PaymentStatusPartial, PaymentStatusCompleted, PaymentStatusCancelled},
	PaymentStatusPartial:   {PaymentStatusCompleted, PaymentStatusCancelled, PaymentStatusPending},
	PaymentStatusCompleted: {PaymentStatusPartial},
	PaymentStatusCancelled: {PaymentStatusPending},
}

// Service represents one clinical appointment/encounter
type Service struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	ClientID      uuid.UUID       `gorm:"type:uuid;not null;index" json:"client_id"`
	ServiceDate   time.Time       `gorm:"type:date;not null;index" json:"service_date"`
	ServiceTime   string          `gorm:"type:varchar(5);not null" json:"service_time"`
	ServiceType   string          `gorm:"type:varchar(100);not null" json:"service_type"`
	Status        ServiceStatus   `gorm:"type:varchar(20);not null;default:'scheduled';index" json:"status"`
	PaymentStatus PaymentStatus   `gorm:"type:varchar(20);not null;default:'pending'" json:"payment_status"`
	TotalAmount   decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"total_amount"`
	Notes         string          `gorm:"type:text" json:"notes,omitempty"`
	CreatedBy     uuid.UUID       `gorm:"type:uuid;not null" json:"created_by"`
	CompletedBy   *uuid.UUID      `gorm:"type:uuid" json:"completed_by,omitempty"`
	CompletedAt   *time.Time      `json:"completed_at,omitempty"`
	Version       int64           `gorm:"not null;default:1" json:"version"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`

	// Relationships
	Items []ServiceItem `gorm:"foreignKey:ServiceID" json:"items,omitempty"`
}

func (Service) TableName() string {
	return "services"
}

// IsTerminal reports whether the clinical status can no longer change
func (s *Service) IsTerminal() bool {
	return s.Status.IsTerminal()
}

// IsFinanciallyClosed reports whether billing has reached a final payment status
func (s *Service) IsFinanciallyClosed() bool {
	return s.PaymentStatus == PaymentStatusCompleted || s.PaymentStatus == PaymentStatusCancelled
}

// CanEnterQueue reports whether the service may be checked into the waiting line
func (s *Service) CanEnterQueue() bool {
	return s.Status == ServiceStatusScheduled || s.Status == ServiceStatusInProgress
}

// CanComplete checks the completion guard on top of the transition table
func (s *Service) CanComplete() bool {
	return s.Status.CanTransitionTo(ServiceStatusCompleted) && s.PaymentStatus != PaymentStatusCancelled
}

// CanCancel checks the cancellation guard: no completed payment may be recorded
func (s *Service) CanCancel() bool {
	return s.Status.CanTransitionTo(ServiceStatusCancelled) && s.PaymentStatus != PaymentStatusCompleted
}

func (s ServiceStatus) IsTerminal() bool {
	return s == ServiceStatusCompleted || s == ServiceStatusCancelled
}

func (s ServiceStatus) IsValid() bool {
	switch s {
	case ServiceStatusScheduled, ServiceStatusInProgress, ServiceStatusCompleted, ServiceStatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo checks the clinical transition table
func (s ServiceStatus) CanTransitionTo(to ServiceStatus) bool {
	for _, allowed := range serviceTransitions[s] {
		if allowed == to {
			return true
		}
	}
	return false
}

func (p PaymentStatus) IsValid() bool {
	switch p {
	case PaymentStatusPending, PaymentStatusPartial, PaymentStatusCompleted, PaymentStatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo checks the payment transition table
func (p PaymentStatus) CanTransitionTo(to PaymentStatus) bool {
	for _, allowed := range paymentTransitions[p] {
		if allowed == to {
			return true
		}
	}
	return false
}
