package projection

import (
	"context"
	"sort"
	"sync"
	"time"

	"go-clinic-queue/internal/domain/entity"
	"go-clinic-queue/internal/notifier"

	"github.com/google/uuid"
)

// ticketBoard holds one day's queue tickets keyed by entry id
type ticketBoard struct {
	reader TicketReader
	// keep reports whether a ticket belongs on the board
	keep func(entity.QueueTicket) bool

	mu       sync.RWMutex
	day      time.Time
	tickets  map[uuid.UUID]entity.QueueTicket
	versions versionLog
}

func newTicketBoard(reader TicketReader, keep func(entity.QueueTicket) bool) *ticketBoard {
	return &ticketBoard{
		reader:   reader,
		keep:     keep,
		tickets:  make(map[uuid.UUID]entity.QueueTicket),
		versions: make(versionLog),
	}
}

func (b *ticketBoard) filter(day time.Time) notifier.Filter {
	return notifier.Filter{
		EntityTypes: []entity.EntityType{entity.EntityQueueEntry},
		Match:       queueDateIs(day),
	}
}

func (b *ticketBoard) followsToday() bool {
	return true
}

func (b *ticketBoard) load(ctx context.Context, day time.Time) error {
	tickets, err := b.reader.ListTickets(ctx, day)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.day = day
	b.tickets = make(map[uuid.UUID]entity.QueueTicket, len(tickets))
	b.versions = make(versionLog, len(tickets))
	for _, t := range tickets {
		b.versions.record(t.EntryID, t.Version)
		if b.keep(t) {
			b.tickets[t.EntryID] = t
		}
	}
	return nil
}

func (b *ticketBoard) apply(ctx context.Context, e entity.ChangeEvent) (bool, error) {
	q, err := e.QueueState()
	if err != nil {
		return false, nil
	}

	b.mu.RLock()
	day := b.day
	stale := b.versions.stale(q.ID, q.Version)
	known, ok := b.tickets[q.ID]
	b.mu.RUnlock()
	if stale || !entity.SameDay(q.QueueDate, day) {
		return false, nil
	}

	ticket := known
	if ok {
		ticket.Apply(q)
	} else {
		// client name and service type come from the joined read model
		loaded, err := b.reader.FindTicket(ctx, q.ID)
		if err != nil {
			return false, err
		}
		if loaded == nil {
			return false, nil
		}
		ticket = *loaded
		if q.Version > ticket.Version {
			ticket.Apply(q)
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.versions.stale(q.ID, ticket.Version) {
		return false, nil
	}
	b.versions.record(q.ID, ticket.Version)
	if b.keep(ticket) {
		b.tickets[q.ID] = ticket
	} else {
		delete(b.tickets, q.ID)
	}
	return true, nil
}

func (b *ticketBoard) sorted() (time.Time, []entity.QueueTicket) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	tickets := make([]entity.QueueTicket, 0, len(b.tickets))
	for _, t := range b.tickets {
		tickets = append(tickets, t)
	}
	sort.Slice(tickets, func(i, j int) bool { return tickets[i].QueueNumber < tickets[j].QueueNumber })
	return b.day, tickets
}
