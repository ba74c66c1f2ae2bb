package usecase

import (
	"context"
	"time"

	"go-clinic-queue/internal/domain/entity"
	"go-clinic-queue/internal/domain/repository"
	"go-clinic-queue/internal/notifier"

	"github.com/sirupsen/logrus"
)

// changeSet collects the events of one transaction; they are published only after commit
type changeSet struct {
	at     time.Time
	events []entity.ChangeEvent
}

func (c *changeSet) service(action entity.ChangeAction, s *entity.Service) error {
	event, err := entity.NewServiceEvent(action, s, c.at)
	if err != nil {
		return err
	}
	c.events = append(c.events, event)
	return nil
}

func (c *changeSet) queueEntry(action entity.ChangeAction, q *entity.QueueEntry) error {
	event, err := entity.NewQueueEntryEvent(action, q, c.at)
	if err != nil {
		return err
	}
	c.events = append(c.events, event)
	return nil
}

type committer struct {
	log       *logrus.Logger
	txm       repository.Transactor
	publisher notifier.Publisher
}

// run executes fn in one transaction. A failed fn leaves storage and the change
// stream untouched.
func (c *committer) run(ctx context.Context, at time.Time, fn func(ctx context.Context, cs *changeSet) error) error {
	var cs *changeSet
	err := c.txm.WithinTransaction(ctx, func(ctx context.Context) error {
		cs = &changeSet{at: at}
		return fn(ctx, cs)
	})
	if err != nil {
		return err
	}
	if len(cs.events) == 0 {
		return nil
	}

	// the transaction is committed; a cancelled request must not drop its events
	if err := c.publisher.Publish(context.WithoutCancel(ctx), cs.events...); err != nil {
		c.log.Warnf("Failed to publish %d change events: %+v", len(cs.events), err)
	}
	return nil
}
