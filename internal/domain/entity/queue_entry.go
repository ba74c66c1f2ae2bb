package entity

import (
	"time"

	"github.com/google/uuid"
)

// QueueStatus represents the position of a ticket in the day's waiting line
type QueueStatus string

const (
	QueueStatusWaiting   QueueStatus = "waiting"
	QueueStatusAttending QueueStatus = "attending"
	QueueStatusDone      QueueStatus = "done"
)

// QueueOutcome records how a ticket reached done
type QueueOutcome string

const (
	QueueOutcomeNone      QueueOutcome = ""
	QueueOutcomeServed    QueueOutcome = "served"
	QueueOutcomeWithdrawn QueueOutcome = "withdrawn"
)

// waiting -> done is the withdrawn path taken when the service is cancelled.
var queueTransitions = map[QueueStatus][]QueueStatus{
	QueueStatusWaiting:   {QueueStatusAttending, QueueStatusDone},
	QueueStatusAttending: {QueueStatusDone},
}

var queueRank = map[QueueStatus]int{
	QueueStatusWaiting:   0,
	QueueStatusAttending: 1,
	QueueStatusDone:      2,
}

// QueueEntry is the physical ticket a client holds while waiting
type QueueEntry struct {
	ID          uuid.UUID    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	ServiceID   uuid.UUID    `gorm:"type:uuid;not null;index" json:"service_id"`
	QueueDate   time.Time    `gorm:"type:date;not null;uniqueIndex:uq_queue_entries_date_number,priority:1" json:"queue_date"`
	QueueNumber int          `gorm:"not null;uniqueIndex:uq_queue_entries_date_number,priority:2" json:"queue_number"`
	Status      QueueStatus  `gorm:"type:varchar(20);not null;default:'waiting';index" json:"status"`
	Outcome     QueueOutcome `gorm:"type:varchar(20);not null;default:''" json:"outcome,omitempty"`
	CalledAt    *time.Time   `json:"called_at,omitempty"`
	DoneAt      *time.Time   `json:"done_at,omitempty"`
	CreatedBy   uuid.UUID    `gorm:"type:uuid;not null" json:"created_by"`
	Version     int64        `gorm:"not null;default:1" json:"version"`
	CreatedAt   time.Time    `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time    `gorm:"autoUpdateTime" json:"updated_at"`
}

func (QueueEntry) TableName() string {
	return "queue_entries"
}

func (q *QueueEntry) IsWaiting() bool {
	return q.Status == QueueStatusWaiting
}

func (q *QueueEntry) IsAttending() bool {
	return q.Status == QueueStatusAttending
}

func (q *QueueEntry) IsDone() bool {
	return q.Status == QueueStatusDone
}

// CanTransitionTo checks the queue transition table
func (s QueueStatus) CanTransitionTo(to QueueStatus) bool {
	for _, allowed := range queueTransitions[s] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Precedes reports whether s comes strictly before other in waiting -> attending -> done
func (s QueueStatus) Precedes(other QueueStatus) bool {
	return queueRank[s] < queueRank[other]
}

// CalendarDay truncates t to its calendar day in loc and returns it as midnight UTC,
// which is how queue dates are stored and compared.
func CalendarDay(t time.Time, loc *time.Location) time.Time {
	if loc != nil {
		t = t.In(loc)
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// SameDay compares two stored calendar days
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
