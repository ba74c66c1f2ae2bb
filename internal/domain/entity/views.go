package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// QueueTicket is a queue entry joined with the client it belongs to
type QueueTicket struct {
	EntryID     uuid.UUID    `json:"entry_id"`
	ServiceID   uuid.UUID    `json:"service_id"`
	ClientID    uuid.UUID    `json:"client_id"`
	ClientName  string       `json:"client_name"`
	ServiceType string       `json:"service_type"`
	QueueDate   time.Time    `json:"queue_date"`
	QueueNumber int          `json:"queue_number"`
	Status      QueueStatus  `json:"status"`
	Outcome     QueueOutcome `json:"outcome,omitempty"`
	CalledAt    *time.Time   `json:"called_at,omitempty"`
	Version     int64        `json:"version"`
}

// Apply copies the mutable fields of a newer queue entry state
func (t *QueueTicket) Apply(q *QueueEntry) {
	t.Status = q.Status
	t.Outcome = q.Outcome
	t.CalledAt = q.CalledAt
	t.Version = q.Version
}

// ServiceItemLine is a line item with its product name
type ServiceItemLine struct {
	ServiceItem
	ProductName string `json:"product_name"`
}

// ServiceDetail is a service joined with its client and line items
type ServiceDetail struct {
	Service
	ClientName string            `json:"client_name"`
	Lines      []ServiceItemLine `json:"lines,omitempty"`
}

// DailySummary aggregates completed services of one day
type DailySummary struct {
	Date           time.Time       `json:"date"`
	Revenue        decimal.Decimal `json:"revenue"`
	CompletedCount int             `json:"completed_count"`
	UniqueClients  int             `json:"unique_clients"`
	AverageTicket  decimal.Decimal `json:"average_ticket"`
}

// Summarize computes the daily summary over completed services
func Summarize(date time.Time, services []ServiceDetail) DailySummary {
	summary := DailySummary{Date: date, Revenue: decimal.Zero, AverageTicket: decimal.Zero}
	clients := make(map[uuid.UUID]struct{})
	for _, s := range services {
		if s.Status != ServiceStatusCompleted {
			continue
		}
		summary.Revenue = summary.Revenue.Add(s.TotalAmount)
		summary.CompletedCount++
		clients[s.ClientID] = struct{}{}
	}
	summary.UniqueClients = len(clients)
	if summary.CompletedCount > 0 {
		summary.AverageTicket = summary.Revenue.Div(decimal.NewFromInt(int64(summary.CompletedCount))).Round(2)
	}
	return summary
}
