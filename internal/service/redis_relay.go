package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go-clinic-queue/internal/domain/entity"
	"go-clinic-queue/internal/notifier"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// DefaultRelayChannel is the Redis pub/sub channel shared by all instances
	DefaultRelayChannel = "clinic:changes"

	// Timeout for publishing one batch to Redis
	relayPublishTimeout = 5 * time.Second
)

// =============================================================================
// Types
// =============================================================================

// relayEnvelope tags an event with the instance that produced it so an
// instance never re-delivers its own events.
type relayEnvelope struct {
	Origin string             `json:"origin"`
	Event  entity.ChangeEvent `json:"event"`
}

// RedisRelay mirrors change events between server instances.
//
// Publish delivers to the local notifier first, then fans the batch out over
// Redis pub/sub. Run forwards events from other instances into the local
// notifier. Redis outages degrade to local-only delivery.
type RedisRelay struct {
	redisClient *redis.Client
	log         *logrus.Logger
	local       notifier.Publisher
	channel     string
	origin      string
}

// =============================================================================
// Constructor
// =============================================================================

func NewRedisRelay(redisClient *redis.Client, log *logrus.Logger, local notifier.Publisher, channel string) *RedisRelay {
	if channel == "" {
		channel = DefaultRelayChannel
	}
	return &RedisRelay{
		redisClient: redisClient,
		log:         log,
		local:       local,
		channel:     channel,
		origin:      uuid.NewString(),
	}
}

// =============================================================================
// Public Methods
// =============================================================================

func (r *RedisRelay) Publish(ctx context.Context, events ...entity.ChangeEvent) error {
	if err := r.local.Publish(ctx, events...); err != nil {
		return err
	}

	pubCtx, cancel := context.WithTimeout(ctx, relayPublishTimeout)
	defer cancel()

	pipe := r.redisClient.Pipeline()
	for _, e := range events {
		payload, err := json.Marshal(relayEnvelope{Origin: r.origin, Event: e})
		if err != nil {
			return fmt.Errorf("marshal relay event %s: %w", e.EntityID, err)
		}
		pipe.Publish(pubCtx, r.channel, payload)
	}

	if _, err := pipe.Exec(pubCtx); err != nil {
		r.log.Warnf("Failed to relay %d events to Redis: %+v", len(events), err)
	}
	return nil
}

// Run forwards events published by other instances until ctx is cancelled
func (r *RedisRelay) Run(ctx context.Context) error {
	pubsub := r.redisClient.Subscribe(ctx, r.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe to %s: %w", r.channel, err)
	}
	r.log.Infof("Relaying change events over Redis channel %s", r.channel)

	messages := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			r.forward(ctx, msg.Payload)
		}
	}
}

// =============================================================================
// Internal Methods
// =============================================================================

func (r *RedisRelay) forward(ctx context.Context, payload string) {
	var env relayEnvelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		r.log.Warnf("Dropping malformed relay message: %+v", err)
		return
	}
	if env.Origin == r.origin {
		return
	}
	if err := r.local.Publish(ctx, env.Event); err != nil {
		r.log.Warnf("Failed to forward relayed event %s v%d: %+v", env.Event.EntityID, env.Event.Version, err)
	}
}
