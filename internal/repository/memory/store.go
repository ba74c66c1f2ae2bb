// Package memory is an in-process store with the same constraints as the
// Postgres schema. Transactions are serialized on a single lock.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"go-clinic-queue/internal/domain/entity"
	domainRepo "go-clinic-queue/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type tables struct {
	services map[uuid.UUID]entity.Service
	items    []entity.ServiceItem
	entries  map[uuid.UUID]entity.QueueEntry
	clients  map[uuid.UUID]entity.Client
	products map[uuid.UUID]entity.Product
	audit    []entity.AuditLog
}

func (t *tables) clone() *tables {
	c := &tables{
		services: make(map[uuid.UUID]entity.Service, len(t.services)),
		items:    append([]entity.ServiceItem(nil), t.items...),
		entries:  make(map[uuid.UUID]entity.QueueEntry, len(t.entries)),
		clients:  t.clients,
		products: t.products,
		audit:    append([]entity.AuditLog(nil), t.audit...),
	}
	for id, s := range t.services {
		c.services[id] = s
	}
	for id, e := range t.entries {
		c.entries[id] = e
	}
	return c
}

type Store struct {
	mu   sync.Mutex
	data *tables
	now  func() time.Time
}

type txKey struct{}

func NewStore() *Store {
	return &Store{
		data: &tables{
			services: make(map[uuid.UUID]entity.Service),
			entries:  make(map[uuid.UUID]entity.QueueEntry),
			clients:  make(map[uuid.UUID]entity.Client),
			products: make(map[uuid.UUID]entity.Product),
		},
		now: time.Now,
	}
}

// WithinTransaction holds the store lock for the duration of fn and restores
// the previous state when fn fails.
func (s *Store) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.inTx(ctx) {
		return fn(ctx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	if err := fn(context.WithValue(ctx, txKey{}, s)); err != nil {
		s.data = snapshot
		return err
	}
	return nil
}

func (s *Store) inTx(ctx context.Context) bool {
	owner, ok := ctx.Value(txKey{}).(*Store)
	return ok && owner == s
}

func (s *Store) lock(ctx context.Context) func() {
	if s.inTx(ctx) {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// AddClient seeds a client owned by the registration collaborator
func (s *Store) AddClient(c entity.Client) entity.Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	c.CreatedAt = s.now()
	s.data.clients[c.ID] = c
	return c
}

// AddProduct seeds a catalog product
func (s *Store) AddProduct(p entity.Product) entity.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.CreatedAt = s.now()
	s.data.products[p.ID] = p
	return p
}

func (s *Store) Services() domainRepo.ServiceRepository { return &serviceRepo{s} }

func (s *Store) QueueEntries() domainRepo.QueueEntryRepository { return &queueRepo{s} }

func (s *Store) Products() domainRepo.ProductRepository { return &productRepo{s} }

func (s *Store) Clients() domainRepo.ClientRepository { return &clientRepo{s} }

func (s *Store) AuditLogs() domainRepo.AuditLogRepository { return &auditRepo{s} }

type serviceRepo struct{ s *Store }

func (r *serviceRepo) Create(ctx context.Context, service *entity.Service) error {
	defer r.s.lock(ctx)()
	if service.ID == uuid.Nil {
		service.ID = uuid.New()
	}
	if service.Version == 0 {
		service.Version = 1
	}
	now := r.s.now()
	service.CreatedAt, service.UpdatedAt = now, now
	stored := *service
	stored.Items = nil
	r.s.data.services[service.ID] = stored
	return nil
}

func (r *serviceRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.Service, error) {
	defer r.s.lock(ctx)()
	service, ok := r.s.data.services[id]
	if !ok {
		return nil, nil
	}
	return &service, nil
}

func (r *serviceRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Service, error) {
	return r.FindByID(ctx, id)
}

func (r *serviceRepo) update(id uuid.UUID, guard func(entity.Service) bool, apply func(*entity.Service)) int64 {
	service, ok := r.s.data.services[id]
	if !ok || !guard(service) {
		return 0
	}
	apply(&service)
	service.Version++
	service.UpdatedAt = r.s.now()
	r.s.data.services[id] = service
	return 1
}

func (r *serviceRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to entity.ServiceStatus) (int64, error) {
	defer r.s.lock(ctx)()
	return r.update(id,
		func(s entity.Service) bool { return s.Status == from },
		func(s *entity.Service) { s.Status = to }), nil
}

func (r *serviceRepo) Complete(ctx context.Context, id uuid.UUID, completedBy uuid.UUID, at time.Time) (int64, error) {
	defer r.s.lock(ctx)()
	total := r.total(id)
	return r.update(id,
		func(s entity.Service) bool {
			return s.Status == entity.ServiceStatusInProgress && s.PaymentStatus != entity.PaymentStatusCancelled
		},
		func(s *entity.Service) {
			by := completedBy
			s.Status = entity.ServiceStatusCompleted
			s.CompletedAt = &at
			s.CompletedBy = &by
			s.TotalAmount = total
		}), nil
}

func (r *serviceRepo) Cancel(ctx context.Context, id uuid.UUID) (int64, error) {
	defer r.s.lock(ctx)()
	return r.update(id,
		func(s entity.Service) bool {
			return (s.Status == entity.ServiceStatusScheduled || s.Status == entity.ServiceStatusInProgress) &&
				s.PaymentStatus != entity.PaymentStatusCompleted
		},
		func(s *entity.Service) { s.Status = entity.ServiceStatusCancelled }), nil
}

func (r *serviceRepo) UpdatePaymentStatus(ctx context.Context, id uuid.UUID, from, to entity.PaymentStatus) (int64, error) {
	defer r.s.lock(ctx)()
	return r.update(id,
		func(s entity.Service) bool { return s.PaymentStatus == from },
		func(s *entity.Service) { s.PaymentStatus = to }), nil
}

func (r *serviceRepo) AddItem(ctx context.Context, item *entity.ServiceItem) error {
	defer r.s.lock(ctx)()
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	item.CreatedAt = r.s.now()
	r.s.data.items = append(r.s.data.items, *item)
	return nil
}

func (r *serviceRepo) RecomputeTotal(ctx context.Context, id uuid.UUID) error {
	defer r.s.lock(ctx)()
	total := r.total(id)
	r.update(id,
		func(entity.Service) bool { return true },
		func(s *entity.Service) { s.TotalAmount = total })
	return nil
}

func (r *serviceRepo) total(id uuid.UUID) decimal.Decimal {
	var items []entity.ServiceItem
	for _, item := range r.s.data.items {
		if item.ServiceID == id {
			items = append(items, item)
		}
	}
	return entity.SumSubtotals(items)
}

func (r *serviceRepo) detail(service entity.Service) entity.ServiceDetail {
	d := entity.ServiceDetail{Service: service, ClientName: r.s.data.clients[service.ClientID].FullName}
	for _, item := range r.s.data.items {
		if item.ServiceID == service.ID {
			d.Lines = append(d.Lines, entity.ServiceItemLine{
				ServiceItem: item,
				ProductName: r.s.data.products[item.ProductID].Name,
			})
		}
	}
	return d
}

func (r *serviceRepo) FindDetail(ctx context.Context, id uuid.UUID) (*entity.ServiceDetail, error) {
	defer r.s.lock(ctx)()
	service, ok := r.s.data.services[id]
	if !ok {
		return nil, nil
	}
	d := r.detail(service)
	return &d, nil
}

func (r *serviceRepo) ListDetailsByDate(ctx context.Context, date time.Time) ([]entity.ServiceDetail, error) {
	defer r.s.lock(ctx)()
	var details []entity.ServiceDetail
	for _, service := range r.s.data.services {
		if entity.SameDay(service.ServiceDate, date) {
			details = append(details, r.detail(service))
		}
	}
	sort.Slice(details, func(i, j int) bool {
		return details[i].ServiceTime < details[j].ServiceTime
	})
	return details, nil
}

func (r *serviceRepo) ListScheduled(ctx context.Context) ([]entity.ServiceDetail, error) {
	defer r.s.lock(ctx)()
	var details []entity.ServiceDetail
	for _, service := range r.s.data.services {
		if service.Status == entity.ServiceStatusScheduled {
			details = append(details, r.detail(service))
		}
	}
	sort.Slice(details, func(i, j int) bool {
		if !details[i].ServiceDate.Equal(details[j].ServiceDate) {
			return details[i].ServiceDate.Before(details[j].ServiceDate)
		}
		return details[i].ServiceTime < details[j].ServiceTime
	})
	return details, nil
}

type queueRepo struct{ s *Store }

func (r *queueRepo) MaxNumber(ctx context.Context, date time.Time) (int, error) {
	defer r.s.lock(ctx)()
	max := 0
	for _, e := range r.s.data.entries {
		if entity.SameDay(e.QueueDate, date) && e.QueueNumber > max {
			max = e.QueueNumber
		}
	}
	return max, nil
}

func (r *queueRepo) Create(ctx context.Context, entry *entity.QueueEntry) error {
	defer r.s.lock(ctx)()
	for _, e := range r.s.data.entries {
		if !entity.SameDay(e.QueueDate, entry.QueueDate) {
			continue
		}
		if e.QueueNumber == entry.QueueNumber {
			return domainRepo.ErrDuplicateNumber
		}
		if e.ServiceID == entry.ServiceID && !e.IsDone() && !entry.IsDone() {
			return domainRepo.ErrServiceQueued
		}
		if e.IsAttending() && entry.IsAttending() {
			return domainRepo.ErrAttendingTaken
		}
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.Version == 0 {
		entry.Version = 1
	}
	now := r.s.now()
	entry.CreatedAt, entry.UpdatedAt = now, now
	r.s.data.entries[entry.ID] = *entry
	return nil
}

func (r *queueRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.QueueEntry, error) {
	defer r.s.lock(ctx)()
	e, ok := r.s.data.entries[id]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (r *queueRepo) find(match func(entity.QueueEntry) bool) *entity.QueueEntry {
	var found *entity.QueueEntry
	for _, e := range r.s.data.entries {
		if !match(e) {
			continue
		}
		if found == nil || e.QueueNumber < found.QueueNumber {
			e := e
			found = &e
		}
	}
	return found
}

func (r *queueRepo) FindOpenByService(ctx context.Context, serviceID uuid.UUID, date time.Time) (*entity.QueueEntry, error) {
	defer r.s.lock(ctx)()
	return r.find(func(e entity.QueueEntry) bool {
		return e.ServiceID == serviceID && entity.SameDay(e.QueueDate, date) && !e.IsDone()
	}), nil
}

func (r *queueRepo) ListOpenByService(ctx context.Context, serviceID uuid.UUID) ([]entity.QueueEntry, error) {
	defer r.s.lock(ctx)()
	var entries []entity.QueueEntry
	for _, e := range r.s.data.entries {
		if e.ServiceID == serviceID && !e.IsDone() {
			entries = append(entries, e)
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].QueueDate.Before(entries[j].QueueDate) })
	return entries, nil
}

func (r *queueRepo) FindAttending(ctx context.Context, date time.Time) (*entity.QueueEntry, error) {
	defer r.s.lock(ctx)()
	return r.find(func(e entity.QueueEntry) bool {
		return entity.SameDay(e.QueueDate, date) && e.IsAttending()
	}), nil
}

func (r *queueRepo) FindHeadWaiting(ctx context.Context, date time.Time) (*entity.QueueEntry, error) {
	defer r.s.lock(ctx)()
	return r.find(func(e entity.QueueEntry) bool {
		return entity.SameDay(e.QueueDate, date) && e.IsWaiting()
	}), nil
}

func (r *queueRepo) MarkAttending(ctx context.Context, id uuid.UUID, date time.Time, at time.Time) (int64, error) {
	defer r.s.lock(ctx)()
	e, ok := r.s.data.entries[id]
	if !ok || !e.IsWaiting() {
		return 0, nil
	}
	if r.find(func(o entity.QueueEntry) bool {
		return entity.SameDay(o.QueueDate, date) && o.IsAttending()
	}) != nil {
		return 0, nil
	}
	e.Status = entity.QueueStatusAttending
	e.CalledAt = &at
	e.Version++
	e.UpdatedAt = r.s.now()
	r.s.data.entries[id] = e
	return 1, nil
}

func (r *queueRepo) MarkDone(ctx context.Context, id uuid.UUID, from entity.QueueStatus, outcome entity.QueueOutcome, at time.Time) (int64, error) {
	defer r.s.lock(ctx)()
	e, ok := r.s.data.entries[id]
	if !ok || e.Status != from {
		return 0, nil
	}
	e.Status = entity.QueueStatusDone
	e.Outcome = outcome
	e.DoneAt = &at
	e.Version++
	e.UpdatedAt = r.s.now()
	r.s.data.entries[id] = e
	return 1, nil
}

func (r *queueRepo) ticket(e entity.QueueEntry) entity.QueueTicket {
	service := r.s.data.services[e.ServiceID]
	return entity.QueueTicket{
		EntryID:     e.ID,
		ServiceID:   e.ServiceID,
		ClientID:    service.ClientID,
		ClientName:  r.s.data.clients[service.ClientID].FullName,
		ServiceType: service.ServiceType,
		QueueDate:   e.QueueDate,
		QueueNumber: e.QueueNumber,
		Status:      e.Status,
		Outcome:     e.Outcome,
		CalledAt:    e.CalledAt,
		Version:     e.Version,
	}
}

func (r *queueRepo) ListTickets(ctx context.Context, date time.Time) ([]entity.QueueTicket, error) {
	defer r.s.lock(ctx)()
	var tickets []entity.QueueTicket
	for _, e := range r.s.data.entries {
		if entity.SameDay(e.QueueDate, date) {
			tickets = append(tickets, r.ticket(e))
		}
	}
	sort.Slice(tickets, func(i, j int) bool { return tickets[i].QueueNumber < tickets[j].QueueNumber })
	return tickets, nil
}

func (r *queueRepo) FindTicket(ctx context.Context, id uuid.UUID) (*entity.QueueTicket, error) {
	defer r.s.lock(ctx)()
	e, ok := r.s.data.entries[id]
	if !ok {
		return nil, nil
	}
	t := r.ticket(e)
	return &t, nil
}

type productRepo struct{ s *Store }

func (r *productRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.Product, error) {
	defer r.s.lock(ctx)()
	p, ok := r.s.data.products[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

type clientRepo struct{ s *Store }

func (r *clientRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.Client, error) {
	defer r.s.lock(ctx)()
	c, ok := r.s.data.clients[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

type auditRepo struct{ s *Store }

func (r *auditRepo) Create(ctx context.Context, log *entity.AuditLog) error {
	defer r.s.lock(ctx)()
	log.ID = int64(len(r.s.data.audit) + 1)
	log.CreatedAt = r.s.now()
	r.s.data.audit = append(r.s.data.audit, *log)
	return nil
}

func (r *auditRepo) FindAll(ctx context.Context, limit int) ([]entity.AuditLog, error) {
	defer r.s.lock(ctx)()
	var logs []entity.AuditLog
	for i := len(r.s.data.audit) - 1; i >= 0 && len(logs) < limit; i-- {
		logs = append(logs, r.s.data.audit[i])
	}
	return logs, nil
}

func (r *auditRepo) FindByEntity(ctx context.Context, entityType string, entityID uuid.UUID) ([]entity.AuditLog, error) {
	defer r.s.lock(ctx)()
	var logs []entity.AuditLog
	for _, log := range r.s.data.audit {
		if log.EntityType == entityType && log.EntityID == entityID {
			logs = append(logs, log)
		}
	}
	return logs, nil
}
