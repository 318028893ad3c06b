package realtime

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	redisrepo "github.com/kirinyoku/cinebook/internal/repository/redis"
)

const publishTimeout = 2 * time.Second

// Relay fans events out to every instance. Events are delivered to local
// connections at once and published to Redis; envelopes coming back from
// Redis are delivered locally unless this instance sent them.
type Relay struct {
	hub    *Hub
	ps     *redisrepo.PubSub
	origin string
	log    *slog.Logger
}

func NewRelay(hub *Hub, ps *redisrepo.PubSub, log *slog.Logger) *Relay {
	return &Relay{
		hub:    hub,
		ps:     ps,
		origin: uuid.NewString(),
		log:    log,
	}
}

func (r *Relay) SendToUser(userID int64, event string, payload any) {
	r.send(redisrepo.Envelope{UserID: userID, Event: event}, payload)
}

func (r *Relay) SendToTopic(topic, event string, payload any) {
	r.send(redisrepo.Envelope{Topic: topic, Event: event}, payload)
}

func (r *Relay) send(env redisrepo.Envelope, payload any) {
	data, err := marshalPayload(payload)
	if err != nil {
		r.log.Error("encode relay event", slog.String("event", env.Event), slog.Any("err", err))
		return
	}

	now := r.hub.now()
	r.hub.deliverRaw(env.UserID, env.Topic, env.Event, data, now)

	env.Origin = r.origin
	env.Data = data
	env.TsUnix = now.Unix()

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	if err := r.ps.Publish(ctx, env); err != nil {
		r.log.Warn("relay publish failed", slog.String("event", env.Event), slog.Any("err", err))
	}
}

// Run consumes envelopes published by other instances until ctx is done.
// ready, when not nil, is closed once the subscription is live.
func (r *Relay) Run(ctx context.Context, ready chan<- struct{}) error {
	err := r.ps.Subscribe(ctx, ready, func(_ context.Context, env redisrepo.Envelope) {
		if env.Origin == r.origin {
			return
		}
		r.hub.deliverRaw(env.UserID, env.Topic, env.Event, env.Data, time.Unix(env.TsUnix, 0))
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
