package notifier

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"go-clinic-queue/internal/domain/entity"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

func startNotifier(t *testing.T, bufferSize int) *Notifier {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)

	n := New(log, bufferSize)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = n.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return n
}

func event(entityType entity.EntityType, id uuid.UUID, version int64) entity.ChangeEvent {
	return entity.ChangeEvent{EntityType: entityType, EntityID: id, Version: version, Action: entity.ChangeUpdate}
}

func receive(t *testing.T, sub *Subscription) entity.ChangeEvent {
	t.Helper()
	select {
	case e, ok := <-sub.Events():
		if !ok {
			t.Fatal("subscription closed unexpectedly")
		}
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	return entity.ChangeEvent{}
}

func expectNothing(t *testing.T, sub *Subscription) {
	t.Helper()
	select {
	case e := <-sub.Events():
		t.Fatalf("unexpected event %+v", e)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestDeliversInPublishOrder(t *testing.T) {
	n := startNotifier(t, 16)
	sub := n.Subscribe(Filter{})
	defer sub.Close()

	a, b := uuid.New(), uuid.New()
	published := []entity.ChangeEvent{
		event(entity.EntityService, a, 1),
		event(entity.EntityQueueEntry, b, 1),
		event(entity.EntityService, a, 2),
		event(entity.EntityQueueEntry, b, 2),
	}
	if err := n.Publish(context.Background(), published...); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	for i, want := range published {
		got := receive(t, sub)
		if got.EntityID != want.EntityID || got.Version != want.Version {
			t.Fatalf("event %d = %s v%d, want %s v%d", i, got.EntityID, got.Version, want.EntityID, want.Version)
		}
	}
}

func TestFilterByTypeAndPredicate(t *testing.T) {
	n := startNotifier(t, 16)
	wanted := uuid.New()
	sub := n.Subscribe(Filter{
		EntityTypes: []entity.EntityType{entity.EntityQueueEntry},
		Match:       func(e entity.ChangeEvent) bool { return e.EntityID == wanted },
	})
	defer sub.Close()

	_ = n.Publish(context.Background(),
		event(entity.EntityService, wanted, 1),
		event(entity.EntityQueueEntry, uuid.New(), 1),
		event(entity.EntityQueueEntry, wanted, 1),
	)

	got := receive(t, sub)
	if got.EntityType != entity.EntityQueueEntry || got.EntityID != wanted {
		t.Fatalf("got %+v", got)
	}
	expectNothing(t, sub)
}

func TestDropsDuplicateAndStaleVersions(t *testing.T) {
	n := startNotifier(t, 16)
	sub := n.Subscribe(Filter{})
	defer sub.Close()

	id := uuid.New()
	_ = n.Publish(context.Background(),
		event(entity.EntityQueueEntry, id, 2),
		event(entity.EntityQueueEntry, id, 2),
		event(entity.EntityQueueEntry, id, 1),
		event(entity.EntityQueueEntry, id, 3),
	)

	if got := receive(t, sub); got.Version != 2 {
		t.Fatalf("first version=%d, want 2", got.Version)
	}
	if got := receive(t, sub); got.Version != 3 {
		t.Fatalf("second version=%d, want 3", got.Version)
	}
	expectNothing(t, sub)
}

func TestLaggingSubscriberIsClosed(t *testing.T) {
	n := startNotifier(t, 2)
	slow := n.Subscribe(Filter{})
	fast := n.Subscribe(Filter{})
	defer fast.Close()

	for v := int64(1); v <= 4; v++ {
		if err := n.Publish(context.Background(), event(entity.EntityService, uuid.New(), v)); err != nil {
			t.Fatalf("Publish: %v", err)
		}
		receive(t, fast)
	}

	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-slow.Events():
			if !ok {
				if !slow.Lagged() {
					t.Fatal("closed subscription should report lag")
				}
				if fast.Lagged() {
					t.Fatal("keeping-up subscriber must not be marked lagged")
				}
				return
			}
		case <-deadline:
			t.Fatal("slow subscriber was never closed")
		}
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	n := startNotifier(t, 4)
	sub := n.Subscribe(Filter{})
	sub.Close()
	sub.Close()

	if _, ok := <-sub.Events(); ok {
		t.Fatal("events channel should be closed")
	}
	if sub.Lagged() {
		t.Fatal("explicit close is not lag")
	}
}

func TestStopClosesSubscriptions(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)
	n := New(log, 4)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = n.Run(ctx)
	}()

	sub := n.Subscribe(Filter{})
	cancel()
	<-done

	if _, ok := <-sub.Events(); ok {
		t.Fatal("subscription should close on shutdown")
	}
	if err := n.Publish(context.Background(), event(entity.EntityService, uuid.New(), 1)); !errors.Is(err, ErrClosed) {
		t.Fatalf("Publish after stop err=%v, want ErrClosed", err)
	}

	late := n.Subscribe(Filter{})
	if _, ok := <-late.Events(); ok {
		t.Fatal("subscribing after stop yields a closed subscription")
	}
}

func TestVersionsAreTrackedPerEntityType(t *testing.T) {
	n := startNotifier(t, 16)
	sub := n.Subscribe(Filter{})
	defer sub.Close()

	id := uuid.New()
	_ = n.Publish(context.Background(),
		event(entity.EntityService, id, 1),
		event(entity.EntityQueueEntry, id, 1),
		event(entity.EntityQueueEntry, id, 1),
	)

	if got := receive(t, sub); got.EntityType != entity.EntityService {
		t.Fatalf("first event type=%s, want service", got.EntityType)
	}
	if got := receive(t, sub); got.EntityType != entity.EntityQueueEntry {
		t.Fatalf("second event type=%s, want queue_entry", got.EntityType)
	}
	expectNothing(t, sub)
}

func TestPruneForgetsOldVersions(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)
	n := New(log, 4)
	old := entityKey{entityType: entity.EntityQueueEntry, id: uuid.New()}
	n.versions[old] = versionMark{version: 5, seen: time.Now().Add(-versionRetention - time.Minute)}
	fresh := entityKey{entityType: entity.EntityService, id: uuid.New()}
	n.versions[fresh] = versionMark{version: 1, seen: time.Now()}

	n.prune(time.Now())

	if _, ok := n.versions[old]; ok {
		t.Fatal("expired mark should be pruned")
	}
	if _, ok := n.versions[fresh]; !ok {
		t.Fatal("fresh mark should be kept")
	}
}
