package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

const natsSubjectPrefix = "cinebook.notify."

// NATSDispatcher publishes events on "cinebook.notify.<event>".
type NATSDispatcher struct {
	nc *nats.Conn
}

func NewNATSDispatcher(url string, log *slog.Logger) (*NATSDispatcher, error) {
	const op = "notify.NewNATSDispatcher"

	opts := []nats.Option{
		nats.Name("cinebook"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn("nats disconnected", slog.Any("err", err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("nats reconnected", slog.String("url", nc.ConnectedUrl()))
		}),
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			log.Error("nats error", slog.Any("err", err))
		}),
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return &NATSDispatcher{nc: nc}, nil
}

func (d *NATSDispatcher) Dispatch(ctx context.Context, ev Event) error {
	const op = "notify.NATSDispatcher.Dispatch"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	if err := d.nc.Publish(natsSubjectPrefix+ev.Name, body); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

func (d *NATSDispatcher) Close() error {
	return d.nc.Drain()
}
