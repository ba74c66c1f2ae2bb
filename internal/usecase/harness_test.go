package usecase

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"go-clinic-queue/internal/delivery/dto"
	"go-clinic-queue/internal/domain/entity"
	"go-clinic-queue/internal/repository/memory"
	"go-clinic-queue/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

var (
	reception = entity.Actor{UserID: uuid.New(), Role: entity.RoleReception}
	doctor    = entity.Actor{UserID: uuid.New(), Role: entity.RoleDoctor}
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Today() time.Time {
	return entity.CalendarDay(c.Now(), nil)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []entity.ChangeEvent
}

func (p *recordingPublisher) Publish(_ context.Context, events ...entity.ChangeEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

func (p *recordingPublisher) all() []entity.ChangeEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]entity.ChangeEvent(nil), p.events...)
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

type harness struct {
	store    *memory.Store
	clock    *fakeClock
	events   *recordingPublisher
	log      *logrus.Logger
	audit    service.AuditService
	services ServiceUsecase
	queue    QueueUsecase
	logs     AuditLogUsecase
	client   entity.Client
	product  entity.Product
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)

	store := memory.NewStore()
	h := &harness{
		store:  store,
		clock:  &fakeClock{now: time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC)},
		events: &recordingPublisher{},
		log:    log,
	}
	h.client = store.AddClient(entity.Client{FullName: "Ana Souza"})
	h.product = store.AddProduct(entity.Product{Name: "Vaccine dose", Price: decimal.RequireFromString("89.90")})

	h.audit = service.NewAuditService(log, store.AuditLogs())
	sequencer := service.NewTicketSequencer(log, store.QueueEntries())
	h.services = NewServiceUsecase(log, store, h.clock, store.Services(), store.QueueEntries(), store.Products(), store.Clients(), h.audit, h.events)
	h.queue = NewQueueUsecase(log, store, h.clock, sequencer, store.QueueEntries(), store.Services(), h.audit, h.events, 3)
	h.logs = NewAuditLogUsecase(log, store.AuditLogs(), h.audit)
	return h
}

func (h *harness) createService(t *testing.T) *dto.ServiceResponse {
	t.Helper()
	svc, err := h.services.CreateService(context.Background(), reception, &dto.CreateServiceRequest{
		ClientID:    h.client.ID,
		ServiceDate: h.clock.Today().Format(time.DateOnly),
		ServiceTime: "09:30",
		ServiceType: "consultation",
	})
	if err != nil {
		t.Fatalf("CreateService: %v", err)
	}
	return svc
}

func (h *harness) checkIn(t *testing.T, serviceID uuid.UUID) *dto.QueueEntryResponse {
	t.Helper()
	entry, err := h.queue.CheckIn(context.Background(), reception, serviceID)
	if err != nil {
		t.Fatalf("CheckIn: %v", err)
	}
	return entry
}

func (h *harness) entry(t *testing.T, id uuid.UUID) *entity.QueueEntry {
	t.Helper()
	entry, err := h.store.QueueEntries().FindByID(context.Background(), id)
	if err != nil || entry == nil {
		t.Fatalf("FindByID(%s): %v", id, err)
	}
	return entry
}

func (h *harness) history(t *testing.T, entityType entity.EntityType, id uuid.UUID) []entity.AuditLog {
	t.Helper()
	logs, err := h.audit.History(context.Background(), entityType, id)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	return logs
}
