package projection

import (
	"context"
	"sync"
	"time"

	"go-clinic-queue/internal/domain/entity"
	"go-clinic-queue/internal/notifier"

	"github.com/google/uuid"
)

// serviceBoard holds the service details selected by keep
type serviceBoard struct {
	reader   ServiceReader
	snapshot func(ctx context.Context, day time.Time) ([]entity.ServiceDetail, error)
	keep     func(s *entity.Service, day time.Time) bool
	fixedDay *time.Time

	mu       sync.RWMutex
	day      time.Time
	services map[uuid.UUID]entity.ServiceDetail
	versions versionLog
}

func (b *serviceBoard) filter(time.Time) notifier.Filter {
	return notifier.Filter{EntityTypes: []entity.EntityType{entity.EntityService}}
}

func (b *serviceBoard) followsToday() bool {
	return b.fixedDay == nil
}

func (b *serviceBoard) load(ctx context.Context, today time.Time) error {
	day := today
	if b.fixedDay != nil {
		day = *b.fixedDay
	}
	details, err := b.snapshot(ctx, day)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.day = day
	b.services = make(map[uuid.UUID]entity.ServiceDetail, len(details))
	b.versions = make(versionLog, len(details))
	for _, d := range details {
		b.versions.record(d.ID, d.Version)
		if b.keep(&d.Service, day) {
			b.services[d.ID] = d
		}
	}
	return nil
}

func (b *serviceBoard) apply(ctx context.Context, e entity.ChangeEvent) (bool, error) {
	s, err := e.ServiceState()
	if err != nil {
		return false, nil
	}

	b.mu.RLock()
	day := b.day
	stale := b.versions.stale(s.ID, s.Version)
	_, present := b.services[s.ID]
	b.mu.RUnlock()
	if stale {
		return false, nil
	}

	if !b.keep(s, day) {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.versions.record(s.ID, s.Version)
		if present {
			delete(b.services, s.ID)
			return true, nil
		}
		return false, nil
	}

	// line items and client name are not part of the event payload
	detail, err := b.reader.FindDetail(ctx, s.ID)
	if err != nil {
		return false, err
	}
	if detail == nil {
		return false, nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.versions.stale(s.ID, detail.Version) {
		return false, nil
	}
	b.versions.record(s.ID, detail.Version)
	if b.keep(&detail.Service, day) {
		b.services[s.ID] = *detail
	} else {
		delete(b.services, s.ID)
	}
	return true, nil
}

func (b *serviceBoard) list() (time.Time, []entity.ServiceDetail) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	details := make([]entity.ServiceDetail, 0, len(b.services))
	for _, d := range b.services {
		details = append(details, d)
	}
	return b.day, details
}
