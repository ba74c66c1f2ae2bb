package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ServiceItem is a billable line item of a service
type ServiceItem struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	ServiceID uuid.UUID       `gorm:"type:uuid;not null;index" json:"service_id"`
	ProductID uuid.UUID       `gorm:"type:uuid;not null" json:"product_id"`
	Quantity  int             `gorm:"not null;default:1" json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_price"`
	Discount  decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"discount"`
	Subtotal  decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"subtotal"`
	Notes     string          `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

func (ServiceItem) TableName() string {
	return "service_items"
}

// ComputeSubtotal returns quantity * unit price minus discount, never below zero
func ComputeSubtotal(quantity int, unitPrice, discount decimal.Decimal) decimal.Decimal {
	subtotal := unitPrice.Mul(decimal.NewFromInt(int64(quantity))).Sub(discount)
	if subtotal.IsNegative() {
		return decimal.Zero
	}
	return subtotal.Round(2)
}

// SumSubtotals adds up item subtotals
func SumSubtotals(items []ServiceItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Subtotal)
	}
	return total
}
