package cache

import (
	"context"
	"fmt"
	"time"

	"go-clinic-queue/config"

	"github.com/redis/go-redis/v9"
)

const (
	dialTimeout = 3 * time.Second
	pingTimeout = 5 * time.Second
)

// NewRedisClient connects the optional Redis used for token revocation and the
// cross-instance change relay. Pub/sub connections stay open, so there is no read timeout.
func NewRedisClient(cfg config.RedisConfig) (*redis.Client, error) {
	addr := fmt.Sprintf("%s:%s", cfg.Host, cfg.Port)
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  dialTimeout,
		WriteTimeout: dialTimeout,
		ReadTimeout:  -1,
	})

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}

	return client, nil
}
