package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is the catalog entry owned by the product collaborator; read-only here.
type Product struct {
	ID        uuid.UUID       `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Name      string          `gorm:"type:varchar(255);not null"`
	Type      string          `gorm:"type:varchar(50)"`
	Price     decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	CreatedAt time.Time       `gorm:"autoCreateTime"`
}

func (Product) TableName() string {
	return "products"
}

// Client is owned by the client registration collaborator; read-only here.
type Client struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	FullName  string    `gorm:"type:varchar(255);not null"`
	Phone     string    `gorm:"type:varchar(30)"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (Client) TableName() string {
	return "clients"
}
