package notifier

import (
	"sync/atomic"

	"go-clinic-queue/internal/domain/entity"
)

// Subscription is one subscriber's view of the change stream. The events
// channel is closed when the subscriber is unsubscribed, falls behind, or the
// notifier stops; a lagged subscriber must re-subscribe and re-snapshot.
type Subscription struct {
	id     uint64
	filter Filter
	events chan entity.ChangeEvent
	lagged atomic.Bool
	n      *Notifier
}

func (s *Subscription) Events() <-chan entity.ChangeEvent {
	return s.events
}

// Lagged reports whether the subscription was closed because it fell behind
func (s *Subscription) Lagged() bool {
	return s.lagged.Load()
}

func (s *Subscription) Close() {
	s.n.unsubscribe(s)
}
