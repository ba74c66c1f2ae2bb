// Package listener turns Postgres NOTIFY messages emitted by the table
// triggers into change events, so writes made outside this process reach
// the notifier too.
package listener

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go-clinic-queue/internal/domain/entity"
	"go-clinic-queue/internal/notifier"

	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"
)

// Channel is the NOTIFY channel used by the change triggers
const Channel = "clinic_changes"

const reconnectDelay = 3 * time.Second

type PGListener struct {
	dsn       string
	log       *logrus.Logger
	publisher notifier.Publisher
}

func NewPGListener(dsn string, log *logrus.Logger, publisher notifier.Publisher) *PGListener {
	return &PGListener{dsn: dsn, log: log, publisher: publisher}
}

// Run listens until ctx is cancelled, reconnecting after connection failures
func (l *PGListener) Run(ctx context.Context) error {
	for {
		err := l.listen(ctx)
		if ctx.Err() != nil {
			return nil
		}
		l.log.Warnf("Postgres listener disconnected, retrying in %v: %+v", reconnectDelay, err)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(reconnectDelay):
		}
	}
}

func (l *PGListener) listen(ctx context.Context) error {
	conn, err := pgx.Connect(ctx, l.dsn)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Close(context.Background())

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{Channel}.Sanitize()); err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	l.log.Infof("Listening for Postgres notifications on %s", Channel)

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			return err
		}

		event, err := Decode([]byte(n.Payload))
		if err != nil {
			l.log.Warnf("Dropping malformed notification: %+v", err)
			continue
		}
		if err := l.publisher.Publish(ctx, event); err != nil {
			return err
		}
	}
}

// Decode parses a trigger payload into a change event
func Decode(payload []byte) (entity.ChangeEvent, error) {
	var event entity.ChangeEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return entity.ChangeEvent{}, err
	}
	switch event.EntityType {
	case entity.EntityService, entity.EntityQueueEntry:
	default:
		return entity.ChangeEvent{}, fmt.Errorf("unknown entity type %q", event.EntityType)
	}
	if event.Version <= 0 {
		return entity.ChangeEvent{}, fmt.Errorf("missing version for %s %s", event.EntityType, event.EntityID)
	}
	return event, nil
}
