package redisrepo

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
)

// Envelope is a realtime message relayed between instances.
type Envelope struct {
	Origin string          `json:"origin"`
	Topic  string          `json:"topic,omitempty"`
	UserID int64           `json:"user_id,omitempty"`
	Event  string          `json:"event"`
	Data   json.RawMessage `json:"data"`
	TsUnix int64           `json:"ts_unix"`
}

type PubSub struct {
	rdb     *redis.Client
	channel string
}

func NewPubSub(rdb *redis.Client) *PubSub {
	return &PubSub{
		rdb:     rdb,
		channel: ChannelRealtime(),
	}
}

func (p *PubSub) Publish(ctx context.Context, env Envelope) error {
	b, err := json.Marshal(env)
	if err != nil {
		return err
	}

	return p.rdb.Publish(ctx, p.channel, b).Err()
}

// Subscribe delivers envelopes to handler until ctx is done. ready, when not
// nil, is closed once the subscription is confirmed by the server.
func (p *PubSub) Subscribe(ctx context.Context, ready chan<- struct{}, handler func(ctx context.Context, env Envelope)) error {
	sub := p.rdb.Subscribe(ctx, p.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return err
	}
	if ready != nil {
		close(ready)
	}

	ch := sub.Channel(redis.WithChannelSize(256))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			var env Envelope
			if err := json.Unmarshal([]byte(m.Payload), &env); err == nil && env.Event != "" {
				handler(ctx, env)
			}
		}
	}
}
