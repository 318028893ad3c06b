package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type Config struct {
	Addr     string
	Password string
	DB       int
	// PoolSize zero keeps the go-redis default.
	PoolSize int
	// ConnectAttempts bounds the startup ping. Values below 1 mean 1.
	ConnectAttempts int
	// RetryDelay is the wait before the second attempt; it doubles after
	// each failure.
	RetryDelay time.Duration
}

// New connects and pings until Redis answers or the attempts run out, so a
// service started alongside its Redis container survives the race.
func New(ctx context.Context, cfg Config) (*redis.Client, error) {
	const op = "redis.New"

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	attempts := max(cfg.ConnectAttempts, 1)
	delay := cfg.RetryDelay
	if delay <= 0 {
		delay = 250 * time.Millisecond
	}

	var err error
	for i := 1; ; i++ {
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err = client.Ping(pingCtx).Err()
		cancel()
		if err == nil {
			return client, nil
		}
		if i == attempts {
			break
		}

		select {
		case <-ctx.Done():
			err = ctx.Err()
		case <-time.After(delay):
			delay *= 2
			continue
		}
		break
	}

	_ = client.Close()
	return nil, fmt.Errorf("%s: after %d attempt(s): %w", op, attempts, err)
}
