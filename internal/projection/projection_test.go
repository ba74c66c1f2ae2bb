package projection

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"testing"
	"time"

	"go-clinic-queue/internal/domain/entity"
	"go-clinic-queue/internal/notifier"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

var day1 = time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

type fakeClock struct {
	mu    sync.Mutex
	today time.Time
}

func (c *fakeClock) Now() time.Time { return c.Today().Add(9 * time.Hour) }

func (c *fakeClock) Today() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.today
}

func (c *fakeClock) set(day time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.today = day
}

type fakeTickets struct {
	mu      sync.Mutex
	tickets map[uuid.UUID]entity.QueueTicket
}

func newFakeTickets(tickets ...entity.QueueTicket) *fakeTickets {
	f := &fakeTickets{tickets: make(map[uuid.UUID]entity.QueueTicket)}
	for _, t := range tickets {
		f.put(t)
	}
	return f
}

func (f *fakeTickets) put(t entity.QueueTicket) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tickets[t.EntryID] = t
}

func (f *fakeTickets) ListTickets(_ context.Context, date time.Time) ([]entity.QueueTicket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []entity.QueueTicket
	for _, t := range f.tickets {
		if entity.SameDay(t.QueueDate, date) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QueueNumber < out[j].QueueNumber })
	return out, nil
}

func (f *fakeTickets) FindTicket(_ context.Context, id uuid.UUID) (*entity.QueueTicket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tickets[id]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func ticket(number int, status entity.QueueStatus, version int64) entity.QueueTicket {
	return entity.QueueTicket{
		EntryID:     uuid.New(),
		ServiceID:   uuid.New(),
		ClientName:  fmt.Sprintf("Client %d", number),
		QueueDate:   day1,
		QueueNumber: number,
		Status:      status,
		Version:     version,
	}
}

func queueEvent(t *testing.T, tk entity.QueueTicket, status entity.QueueStatus, version int64) entity.ChangeEvent {
	t.Helper()
	e, err := entity.NewQueueEntryEvent(entity.ChangeUpdate, &entity.QueueEntry{
		ID:          tk.EntryID,
		ServiceID:   tk.ServiceID,
		QueueDate:   tk.QueueDate,
		QueueNumber: tk.QueueNumber,
		Status:      status,
		Version:     version,
	}, day1)
	if err != nil {
		t.Fatalf("event: %v", err)
	}
	return e
}

func TestTicketBoardAppliesNewerVersionsOnly(t *testing.T) {
	a := ticket(1, entity.QueueStatusWaiting, 1)
	reader := newFakeTickets(a)
	board := newTicketBoard(reader, func(entity.QueueTicket) bool { return true })
	ctx := context.Background()

	if err := board.load(ctx, day1); err != nil {
		t.Fatalf("load: %v", err)
	}

	// already reflected by the snapshot
	if changed, _ := board.apply(ctx, queueEvent(t, a, entity.QueueStatusWaiting, 1)); changed {
		t.Fatal("event at snapshot version must be ignored")
	}

	if changed, _ := board.apply(ctx, queueEvent(t, a, entity.QueueStatusAttending, 2)); !changed {
		t.Fatal("newer version should apply")
	}
	if changed, _ := board.apply(ctx, queueEvent(t, a, entity.QueueStatusWaiting, 1)); changed {
		t.Fatal("older version must not roll back state")
	}

	_, tickets := board.sorted()
	if len(tickets) != 1 || tickets[0].Status != entity.QueueStatusAttending || tickets[0].ClientName != "Client 1" {
		t.Fatalf("tickets=%+v", tickets)
	}
}

func TestTicketBoardLoadsUnknownEntries(t *testing.T) {
	reader := newFakeTickets()
	board := newTicketBoard(reader, func(entity.QueueTicket) bool { return true })
	ctx := context.Background()
	if err := board.load(ctx, day1); err != nil {
		t.Fatalf("load: %v", err)
	}

	b := ticket(2, entity.QueueStatusWaiting, 1)
	reader.put(b)
	if changed, err := board.apply(ctx, queueEvent(t, b, entity.QueueStatusWaiting, 1)); err != nil || !changed {
		t.Fatalf("insert event: changed=%v err=%v", changed, err)
	}

	other := ticket(1, entity.QueueStatusWaiting, 1)
	other.QueueDate = day1.AddDate(0, 0, 1)
	if changed, _ := board.apply(ctx, queueEvent(t, other, entity.QueueStatusWaiting, 1)); changed {
		t.Fatal("events for another day must be ignored")
	}

	_, tickets := board.sorted()
	if len(tickets) != 1 || tickets[0].EntryID != b.EntryID {
		t.Fatalf("tickets=%+v", tickets)
	}
}

func TestPublicSnapshotLimitsWaiting(t *testing.T) {
	var tickets []entity.QueueTicket
	done := ticket(1, entity.QueueStatusDone, 3)
	attending := ticket(2, entity.QueueStatusAttending, 2)
	tickets = append(tickets, done, attending)
	for n := 3; n <= 15; n++ {
		tickets = append(tickets, ticket(n, entity.QueueStatusWaiting, 1))
	}

	public := NewPublic(testLogger(), nil, &fakeClock{today: day1}, newFakeTickets(tickets...))
	if err := public.board.load(context.Background(), day1); err != nil {
		t.Fatalf("load: %v", err)
	}

	snapshot := public.Snapshot()
	if snapshot.Attending == nil || snapshot.Attending.QueueNumber != 2 {
		t.Fatalf("attending=%+v", snapshot.Attending)
	}
	if len(snapshot.Waiting) != PublicWaitingLimit {
		t.Fatalf("waiting=%d, want %d", len(snapshot.Waiting), PublicWaitingLimit)
	}
	for i, w := range snapshot.Waiting {
		if w.QueueNumber != i+3 {
			t.Fatalf("waiting[%d]=%d, want %d", i, w.QueueNumber, i+3)
		}
	}
}

func TestPublicDropsFinishedTickets(t *testing.T) {
	a := ticket(1, entity.QueueStatusAttending, 2)
	public := NewPublic(testLogger(), nil, &fakeClock{today: day1}, newFakeTickets(a))
	ctx := context.Background()
	if err := public.board.load(ctx, day1); err != nil {
		t.Fatalf("load: %v", err)
	}

	if changed, _ := public.board.apply(ctx, queueEvent(t, a, entity.QueueStatusDone, 3)); !changed {
		t.Fatal("done event should change the board")
	}
	if snapshot := public.Snapshot(); snapshot.Attending != nil || len(snapshot.Waiting) != 0 {
		t.Fatalf("snapshot=%+v", snapshot)
	}
}

func TestReceptionKeepsEveryStatus(t *testing.T) {
	reader := newFakeTickets(
		ticket(3, entity.QueueStatusWaiting, 1),
		ticket(1, entity.QueueStatusDone, 3),
		ticket(2, entity.QueueStatusAttending, 2),
	)
	reception := NewReception(testLogger(), nil, &fakeClock{today: day1}, reader)
	if err := reception.board.load(context.Background(), day1); err != nil {
		t.Fatalf("load: %v", err)
	}

	snapshot := reception.Snapshot()
	if len(snapshot.Tickets) != 3 {
		t.Fatalf("tickets=%d, want 3", len(snapshot.Tickets))
	}
	for i, tk := range snapshot.Tickets {
		if tk.QueueNumber != i+1 {
			t.Fatalf("ticket %d has number %d", i, tk.QueueNumber)
		}
	}
}

func waitSignal(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for change signal")
	}
}

func TestProjectionRunFollowsStream(t *testing.T) {
	changes := notifier.New(testLogger(), 16)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go changes.Run(ctx)

	a := ticket(1, entity.QueueStatusWaiting, 1)
	reader := newFakeTickets(a)
	reception := NewReception(testLogger(), changes, &fakeClock{today: day1}, reader)
	signals, stop := reception.Watch()
	defer stop()
	go reception.Run(ctx)

	<-reception.Ready()
	waitSignal(t, signals)

	if err := changes.Publish(ctx, queueEvent(t, a, entity.QueueStatusAttending, 2)); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	deadline := time.After(2 * time.Second)
	for {
		snapshot := reception.Snapshot()
		if len(snapshot.Tickets) == 1 && snapshot.Tickets[0].Status == entity.QueueStatusAttending {
			return
		}
		select {
		case <-signals:
		case <-deadline:
			t.Fatalf("projection never applied the event: %+v", snapshot)
		}
	}
}

func TestProjectionRollsOverToNewDay(t *testing.T) {
	changes := notifier.New(testLogger(), 16)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go changes.Run(ctx)

	yesterday := ticket(1, entity.QueueStatusWaiting, 1)
	fresh := ticket(1, entity.QueueStatusWaiting, 1)
	fresh.QueueDate = day1.AddDate(0, 0, 1)
	reader := newFakeTickets(yesterday, fresh)

	clock := &fakeClock{today: day1}
	reception := NewReception(testLogger(), changes, clock, reader)
	reception.tick = 10 * time.Millisecond
	signals, stop := reception.Watch()
	defer stop()
	go reception.Run(ctx)

	<-reception.Ready()
	if snapshot := reception.Snapshot(); len(snapshot.Tickets) != 1 || snapshot.Tickets[0].EntryID != yesterday.EntryID {
		t.Fatalf("initial snapshot=%+v", snapshot)
	}

	clock.set(day1.AddDate(0, 0, 1))
	deadline := time.After(2 * time.Second)
	for {
		snapshot := reception.Snapshot()
		if entity.SameDay(snapshot.Date, fresh.QueueDate) {
			if len(snapshot.Tickets) != 1 || snapshot.Tickets[0].EntryID != fresh.EntryID {
				t.Fatalf("rolled over snapshot=%+v", snapshot)
			}
			return
		}
		select {
		case <-signals:
		case <-deadline:
			t.Fatal("projection never rolled over")
		}
	}
}

type fakeServices struct {
	mu       sync.Mutex
	services map[uuid.UUID]entity.ServiceDetail
}

func newFakeServices(details ...entity.ServiceDetail) *fakeServices {
	f := &fakeServices{services: make(map[uuid.UUID]entity.ServiceDetail)}
	for _, d := range details {
		f.put(d)
	}
	return f
}

func (f *fakeServices) put(d entity.ServiceDetail) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.services[d.ID] = d
}

func (f *fakeServices) FindDetail(_ context.Context, id uuid.UUID) (*entity.ServiceDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.services[id]
	if !ok {
		return nil, nil
	}
	return &d, nil
}

func (f *fakeServices) ListDetailsByDate(_ context.Context, date time.Time) ([]entity.ServiceDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []entity.ServiceDetail
	for _, d := range f.services {
		if entity.SameDay(d.ServiceDate, date) {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeServices) ListScheduled(_ context.Context) ([]entity.ServiceDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []entity.ServiceDetail
	for _, d := range f.services {
		if d.Status == entity.ServiceStatusScheduled {
			out = append(out, d)
		}
	}
	return out, nil
}

func detail(date time.Time, at string, status entity.ServiceStatus, total string, version int64) entity.ServiceDetail {
	return entity.ServiceDetail{
		Service: entity.Service{
			ID:          uuid.New(),
			ClientID:    uuid.New(),
			ServiceDate: date,
			ServiceTime: at,
			Status:      status,
			TotalAmount: decimal.RequireFromString(total),
			Version:     version,
		},
		ClientName: "Client " + at,
	}
}

func serviceEvent(t *testing.T, s entity.Service) entity.ChangeEvent {
	t.Helper()
	e, err := entity.NewServiceEvent(entity.ChangeUpdate, &s, day1)
	if err != nil {
		t.Fatalf("event: %v", err)
	}
	return e
}

func TestDoctorSnapshotForSelectedDate(t *testing.T) {
	morning := detail(day1, "09:00", entity.ServiceStatusCompleted, "120", 3)
	noon := detail(day1, "12:00", entity.ServiceStatusInProgress, "0", 2)
	other := detail(day1.AddDate(0, 0, 1), "10:00", entity.ServiceStatusCompleted, "999", 3)
	reader := newFakeServices(noon, morning, other)

	date := day1
	doctor := NewDoctor(testLogger(), nil, &fakeClock{today: day1.AddDate(0, 0, 5)}, reader, &date)
	ctx := context.Background()
	if err := doctor.board.load(ctx, day1.AddDate(0, 0, 5)); err != nil {
		t.Fatalf("load: %v", err)
	}
	if doctor.board.followsToday() {
		t.Fatal("a fixed-date dashboard must not roll over")
	}

	snapshot := doctor.Snapshot()
	if len(snapshot.Services) != 2 || snapshot.Services[0].ServiceTime != "09:00" {
		t.Fatalf("services=%+v", snapshot.Services)
	}
	if snapshot.Summary.CompletedCount != 1 || !snapshot.Summary.Revenue.Equal(decimal.RequireFromString("120")) {
		t.Fatalf("summary=%+v", snapshot.Summary)
	}

	// completing the noon service updates the summary
	noon.Status = entity.ServiceStatusCompleted
	noon.TotalAmount = decimal.RequireFromString("80")
	noon.Version = 3
	reader.put(noon)
	if changed, err := doctor.board.apply(ctx, serviceEvent(t, noon.Service)); err != nil || !changed {
		t.Fatalf("apply: changed=%v err=%v", changed, err)
	}
	snapshot = doctor.Snapshot()
	if snapshot.Summary.CompletedCount != 2 || !snapshot.Summary.Revenue.Equal(decimal.RequireFromString("200")) {
		t.Fatalf("summary after completion=%+v", snapshot.Summary)
	}
}

func TestMedicationDropsStartedServices(t *testing.T) {
	later := detail(day1.AddDate(0, 0, 1), "08:00", entity.ServiceStatusScheduled, "0", 1)
	first := detail(day1, "15:00", entity.ServiceStatusScheduled, "0", 1)
	reader := newFakeServices(later, first)

	medication := NewMedication(testLogger(), nil, &fakeClock{today: day1}, reader)
	ctx := context.Background()
	if err := medication.board.load(ctx, day1); err != nil {
		t.Fatalf("load: %v", err)
	}

	snapshot := medication.Snapshot()
	if len(snapshot.Services) != 2 || snapshot.Services[0].ID != first.ID {
		t.Fatalf("services=%+v", snapshot.Services)
	}

	started := first.Service
	started.Status = entity.ServiceStatusInProgress
	started.Version = 2
	if changed, _ := medication.board.apply(ctx, serviceEvent(t, started)); !changed {
		t.Fatal("started service should leave the board")
	}
	snapshot = medication.Snapshot()
	if len(snapshot.Services) != 1 || snapshot.Services[0].ID != later.ID {
		t.Fatalf("services after start=%+v", snapshot.Services)
	}

	// a late, older event must not bring it back
	if changed, _ := medication.board.apply(ctx, serviceEvent(t, first.Service)); changed {
		t.Fatal("stale event re-added a service")
	}
}
