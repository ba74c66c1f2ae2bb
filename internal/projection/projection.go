// Package projection maintains read-only views over the change stream. Every
// view follows the same lifecycle: subscribe, load a snapshot, then apply the
// buffered and live events newer than what the snapshot already holds. A closed
// subscription (lag, restart) or a new calendar day triggers a fresh snapshot.
package projection

import (
	"context"
	"sync"
	"time"

	"go-clinic-queue/internal/domain/entity"
	"go-clinic-queue/internal/notifier"
	"go-clinic-queue/internal/service"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	defaultTick       = 30 * time.Second
	defaultRetryDelay = 2 * time.Second
)

// Source is the change stream a projection subscribes to
type Source interface {
	Subscribe(filter notifier.Filter) *notifier.Subscription
}

// TicketReader loads queue tickets for snapshots and point lookups
type TicketReader interface {
	ListTickets(ctx context.Context, date time.Time) ([]entity.QueueTicket, error)
	FindTicket(ctx context.Context, id uuid.UUID) (*entity.QueueTicket, error)
}

// ServiceReader loads service details for snapshots and point lookups
type ServiceReader interface {
	FindDetail(ctx context.Context, id uuid.UUID) (*entity.ServiceDetail, error)
	ListDetailsByDate(ctx context.Context, date time.Time) ([]entity.ServiceDetail, error)
	ListScheduled(ctx context.Context) ([]entity.ServiceDetail, error)
}

type view interface {
	filter(day time.Time) notifier.Filter
	load(ctx context.Context, day time.Time) error
	// apply reports whether the view changed
	apply(ctx context.Context, e entity.ChangeEvent) (bool, error)
	// followsToday reports whether the view must reload when the calendar day changes
	followsToday() bool
}

type Projection struct {
	name   string
	log    *logrus.Logger
	source Source
	clock  service.Clock
	view   view

	tick       time.Duration
	retryDelay time.Duration

	watchMu  sync.Mutex
	watchers map[int]chan struct{}
	nextID   int

	readyOnce sync.Once
	ready     chan struct{}
}

func newProjection(name string, log *logrus.Logger, source Source, clock service.Clock, v view) *Projection {
	return &Projection{
		name:       name,
		log:        log,
		source:     source,
		clock:      clock,
		view:       v,
		tick:       defaultTick,
		retryDelay: defaultRetryDelay,
		watchers:   make(map[int]chan struct{}),
		ready:      make(chan struct{}),
	}
}

// Ready is closed once the first snapshot has loaded
func (p *Projection) Ready() <-chan struct{} {
	return p.ready
}

// Watch returns a channel that receives a signal whenever the view changes.
// Signals coalesce; the caller re-reads the snapshot on each one.
func (p *Projection) Watch() (<-chan struct{}, func()) {
	p.watchMu.Lock()
	defer p.watchMu.Unlock()

	p.nextID++
	id := p.nextID
	ch := make(chan struct{}, 1)
	p.watchers[id] = ch

	return ch, func() {
		p.watchMu.Lock()
		defer p.watchMu.Unlock()
		delete(p.watchers, id)
	}
}

func (p *Projection) changed() {
	p.watchMu.Lock()
	defer p.watchMu.Unlock()
	for _, ch := range p.watchers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Run keeps the view current until ctx is cancelled
func (p *Projection) Run(ctx context.Context) error {
	for {
		if err := p.session(ctx); err != nil {
			p.log.Warnf("Projection %s resyncing: %+v", p.name, err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(p.retryDelay):
			}
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

// session runs one subscribe-snapshot-diff cycle. It returns nil when the view
// should simply resubscribe and an error when it should back off first.
func (p *Projection) session(ctx context.Context) error {
	day := p.clock.Today()
	sub := p.source.Subscribe(p.view.filter(day))
	defer sub.Close()

	if err := p.view.load(ctx, day); err != nil {
		return err
	}
	p.readyOnce.Do(func() { close(p.ready) })
	p.changed()

	ticker := time.NewTicker(p.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case e, ok := <-sub.Events():
			if !ok {
				if sub.Lagged() {
					p.log.Infof("Projection %s lagged, taking a fresh snapshot", p.name)
				}
				return nil
			}
			changed, err := p.view.apply(ctx, e)
			if err != nil {
				return err
			}
			if changed {
				p.changed()
			}
		case <-ticker.C:
			if p.view.followsToday() && !entity.SameDay(p.clock.Today(), day) {
				p.log.Infof("Projection %s rolling over to %s", p.name, p.clock.Today().Format(time.DateOnly))
				return nil
			}
		}
	}
}

// versionLog remembers the newest version applied per entity, including
// entities that have since left the view.
type versionLog map[uuid.UUID]int64

func (v versionLog) stale(id uuid.UUID, version int64) bool {
	known, ok := v[id]
	return ok && version <= known
}

func (v versionLog) record(id uuid.UUID, version int64) {
	if version > v[id] {
		v[id] = version
	}
}

func queueDateIs(day time.Time) func(entity.ChangeEvent) bool {
	return func(e entity.ChangeEvent) bool {
		q, err := e.QueueState()
		return err == nil && entity.SameDay(q.QueueDate, day)
	}
}
