package entity

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type EntityType string

const (
	EntityService    EntityType = "service"
	EntityQueueEntry EntityType = "queue_entry"
)

type ChangeAction string

const (
	ChangeInsert ChangeAction = "insert"
	ChangeUpdate ChangeAction = "update"
)

// ChangeEvent is one committed row mutation. Version increases by one on every
// write to the same entity, so consumers order and dedupe by (EntityID, Version).
type ChangeEvent struct {
	EntityType EntityType      `json:"entity_type"`
	EntityID   uuid.UUID       `json:"entity_id"`
	Action     ChangeAction    `json:"action"`
	Version    int64           `json:"version"`
	State      json.RawMessage `json:"state"`
	OccurredAt time.Time       `json:"occurred_at"`
}

func NewServiceEvent(action ChangeAction, s *Service, at time.Time) (ChangeEvent, error) {
	state, err := json.Marshal(s)
	if err != nil {
		return ChangeEvent{}, err
	}
	return ChangeEvent{
		EntityType: EntityService,
		EntityID:   s.ID,
		Action:     action,
		Version:    s.Version,
		State:      state,
		OccurredAt: at,
	}, nil
}

func NewQueueEntryEvent(action ChangeAction, q *QueueEntry, at time.Time) (ChangeEvent, error) {
	state, err := json.Marshal(q)
	if err != nil {
		return ChangeEvent{}, err
	}
	return ChangeEvent{
		EntityType: EntityQueueEntry,
		EntityID:   q.ID,
		Action:     action,
		Version:    q.Version,
		State:      state,
		OccurredAt: at,
	}, nil
}

// ServiceState decodes the new row state of a service event
func (e ChangeEvent) ServiceState() (*Service, error) {
	if e.EntityType != EntityService {
		return nil, fmt.Errorf("event for %s is not a service event", e.EntityType)
	}
	var s Service
	if err := json.Unmarshal(e.State, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// QueueState decodes the new row state of a queue entry event
func (e ChangeEvent) QueueState() (*QueueEntry, error) {
	if e.EntityType != EntityQueueEntry {
		return nil, fmt.Errorf("event for %s is not a queue entry event", e.EntityType)
	}
	var q QueueEntry
	if err := json.Unmarshal(e.State, &q); err != nil {
		return nil, err
	}
	return &q, nil
}
