package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Request DTOs

type CreateServiceRequest struct {
	ClientID    uuid.UUID `json:"client_id" validate:"required"`
	ServiceDate string    `json:"service_date" validate:"required,datetime=2006-01-02"`
	ServiceTime string    `json:"service_time" validate:"required,datetime=15:04"`
	ServiceType string    `json:"service_type" validate:"required,min=2,max=100"`
	Notes       string    `json:"notes" validate:"omitempty,max=1000"`
}

type AddLineItemRequest struct {
	ProductID uuid.UUID        `json:"product_id" validate:"required"`
	Quantity  int              `json:"quantity" validate:"required,min=1"`
	UnitPrice *decimal.Decimal `json:"unit_price" validate:"omitempty,gte=0"`
	Discount  decimal.Decimal  `json:"discount" validate:"gte=0"`
	Notes     string           `json:"notes" validate:"omitempty,max=500"`
}

type UpdatePaymentStatusRequest struct {
	PaymentStatus string          `json:"payment_status" validate:"required,oneof=pending partial completed cancelled"`
	AmountPaid    decimal.Decimal `json:"amount_paid" validate:"gte=0"`
}

// Response DTOs

type ServiceResponse struct {
	ID            uuid.UUID       `json:"id"`
	ClientID      uuid.UUID       `json:"client_id"`
	ServiceDate   string          `json:"service_date"`
	ServiceTime   string          `json:"service_time"`
	ServiceType   string          `json:"service_type"`
	Status        string          `json:"status"`
	PaymentStatus string          `json:"payment_status"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	Notes         string          `json:"notes,omitempty"`
	CreatedBy     uuid.UUID       `json:"created_by"`
	CompletedBy   *uuid.UUID      `json:"completed_by,omitempty"`
	CompletedAt   *time.Time      `json:"completed_at,omitempty"`
	Version       int64           `json:"version"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

type ServiceItemResponse struct {
	ID          uuid.UUID       `json:"id"`
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Discount    decimal.Decimal `json:"discount"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	Notes       string          `json:"notes,omitempty"`
}

type ServiceDetailResponse struct {
	ServiceResponse
	ClientName string                `json:"client_name"`
	Items      []ServiceItemResponse `json:"items"`
}

type FinancialStatusResponse struct {
	ServiceID         uuid.UUID       `json:"service_id"`
	PaymentStatus     string          `json:"payment_status"`
	TotalAmount       decimal.Decimal `json:"total_amount"`
	FinanciallyClosed bool            `json:"financially_closed"`
}
