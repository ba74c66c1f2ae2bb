package entity

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AuditLog records one accepted transition. Entries are never deleted.
type AuditLog struct {
	ID         int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID     *uuid.UUID `gorm:"type:uuid;index" json:"user_id,omitempty"`
	Role       string     `gorm:"type:varchar(20)" json:"role,omitempty"`
	Action     string     `gorm:"type:varchar(100);not null;index" json:"action"`
	EntityType string     `gorm:"type:varchar(30);not null;index:idx_audit_logs_entity,priority:1" json:"entity_type"`
	EntityID   uuid.UUID  `gorm:"type:uuid;not null;index:idx_audit_logs_entity,priority:2" json:"entity_id"`
	FromStatus string     `gorm:"type:varchar(20)" json:"from_status,omitempty"`
	ToStatus   string     `gorm:"type:varchar(20)" json:"to_status,omitempty"`
	Metadata   JSON       `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt  time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}

// JSON type for GORM JSONB support
type JSON map[string]interface{}

// Value returns json value, implement driver.Valuer interface
func (j JSON) Value() (driver.Value, error) {
	if len(j) == 0 {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan scan value into Jsonb, implements sql.Scanner interface
func (j *JSON) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New(fmt.Sprint("Failed to unmarshal JSONB value:", value))
	}

	result := map[string]interface{}{}
	err := json.Unmarshal(bytes, &result)
	*j = JSON(result)
	return err
}

// Transition actions
const (
	AuditActionServiceCreate   = "service.create"
	AuditActionServiceStart    = "service.start"
	AuditActionServiceComplete = "service.complete"
	AuditActionServiceCancel   = "service.cancel"
	AuditActionServiceItemAdd  = "service.item_add"
	AuditActionPaymentUpdate   = "service.payment_update"
	AuditActionQueueCheckIn    = "queue.check_in"
	AuditActionQueueCall       = "queue.call"
	AuditActionQueueDone       = "queue.done"
	AuditActionQueueWithdraw   = "queue.withdraw"
)
