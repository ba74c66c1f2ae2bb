// Package notifier fans committed service and queue mutations out to
// subscribers. A single dispatcher goroutine delivers events in the order they
// were accepted; per entity, subscribers only ever see increasing versions.
package notifier

import (
	"context"
	"errors"
	"sync"
	"time"

	"go-clinic-queue/internal/domain/entity"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var ErrClosed = errors.New("notifier closed")

const (
	versionRetention = 24 * time.Hour
	pruneInterval    = time.Hour
)

// Publisher accepts committed change events
type Publisher interface {
	Publish(ctx context.Context, events ...entity.ChangeEvent) error
}

// Filter selects the events a subscriber receives. An empty filter matches everything.
type Filter struct {
	EntityTypes []entity.EntityType
	Match       func(entity.ChangeEvent) bool
}

func (f Filter) matches(e entity.ChangeEvent) bool {
	if len(f.EntityTypes) > 0 {
		found := false
		for _, t := range f.EntityTypes {
			if t == e.EntityType {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return f.Match == nil || f.Match(e)
}

// entityKey identifies one row; services and queue entries version independently
type entityKey struct {
	entityType entity.EntityType
	id         uuid.UUID
}

type versionMark struct {
	version int64
	seen    time.Time
}

type Notifier struct {
	log        *logrus.Logger
	in         chan entity.ChangeEvent
	done       chan struct{}
	bufferSize int

	mu     sync.Mutex
	subs   map[uint64]*Subscription
	nextID uint64
	closed bool

	// owned by the dispatcher goroutine
	versions map[entityKey]versionMark
}

func New(log *logrus.Logger, bufferSize int) *Notifier {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	return &Notifier{
		log:        log,
		in:         make(chan entity.ChangeEvent, bufferSize),
		done:       make(chan struct{}),
		bufferSize: bufferSize,
		subs:       make(map[uint64]*Subscription),
		versions:   make(map[entityKey]versionMark),
	}
}

// Publish enqueues events for dispatch. It blocks while the inbound buffer is full.
func (n *Notifier) Publish(ctx context.Context, events ...entity.ChangeEvent) error {
	for _, e := range events {
		select {
		case <-n.done:
			return ErrClosed
		default:
		}
		select {
		case n.in <- e:
		case <-n.done:
			return ErrClosed
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Subscribe registers a subscriber. Callers must take their snapshot after
// subscribing so no event committed in between is missed.
func (n *Notifier) Subscribe(filter Filter) *Subscription {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.nextID++
	sub := &Subscription{
		id:     n.nextID,
		filter: filter,
		events: make(chan entity.ChangeEvent, n.bufferSize),
		n:      n,
	}
	if n.closed {
		close(sub.events)
		return sub
	}
	n.subs[sub.id] = sub
	return sub
}

// Run dispatches events until ctx is cancelled, then closes every subscription
func (n *Notifier) Run(ctx context.Context) error {
	defer n.shutdown()

	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case e := <-n.in:
			n.dispatch(e)
		case now := <-ticker.C:
			n.prune(now)
		}
	}
}

func (n *Notifier) dispatch(e entity.ChangeEvent) {
	key := entityKey{entityType: e.EntityType, id: e.EntityID}
	if mark, ok := n.versions[key]; ok && e.Version <= mark.version {
		return
	}
	n.versions[key] = versionMark{version: e.Version, seen: time.Now()}

	n.mu.Lock()
	defer n.mu.Unlock()
	for id, sub := range n.subs {
		if !sub.filter.matches(e) {
			continue
		}
		select {
		case sub.events <- e:
		default:
			n.log.Warnf("Subscriber %d fell behind, closing subscription", id)
			sub.lagged.Store(true)
			delete(n.subs, id)
			close(sub.events)
		}
	}
}

func (n *Notifier) prune(now time.Time) {
	for key, mark := range n.versions {
		if now.Sub(mark.seen) > versionRetention {
			delete(n.versions, key)
		}
	}
}

func (n *Notifier) shutdown() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return
	}
	n.closed = true
	close(n.done)
	for id, sub := range n.subs {
		delete(n.subs, id)
		close(sub.events)
	}
}

func (n *Notifier) unsubscribe(sub *Subscription) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, ok := n.subs[sub.id]; !ok {
		return
	}
	delete(n.subs, sub.id)
	close(sub.events)
}
