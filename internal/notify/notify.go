// Package notify delivers booking lifecycle events to the notification
// collaborator. Delivery is fire-and-forget: failures are logged and never
// reach the caller.
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	EventBookingCreated   = "booking.created"
	EventBookingConfirmed = "booking.confirmed"
	EventBookingCancelled = "booking.cancelled"
	EventBookingExpired   = "booking.expired"
	EventPaymentSuccess   = "payment.success"
	EventPaymentFailed    = "payment.failed"
)

type Event struct {
	Name       string    `json:"event"`
	UserID     int64     `json:"userId"`
	BookingID  uuid.UUID `json:"bookingId"`
	Data       any       `json:"data,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

type Dispatcher interface {
	Dispatch(ctx context.Context, ev Event) error
}

// Notifier runs dispatches on their own goroutines with a bounded timeout.
// After Close it drops new events.
type Notifier struct {
	d       Dispatcher
	log     *slog.Logger
	timeout time.Duration

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func NewNotifier(d Dispatcher, log *slog.Logger, timeout time.Duration) *Notifier {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Notifier{d: d, log: log, timeout: timeout}
}

// Notify schedules ev for delivery and returns immediately.
func (n *Notifier) Notify(ev Event) {
	if n == nil || n.d == nil {
		return
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}

	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		n.log.Debug("notification after close", slog.String("event", ev.Name))
		return
	}
	n.wg.Add(1)
	n.mu.Unlock()

	go func() {
		defer n.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
		defer cancel()

		if err := n.d.Dispatch(ctx, ev); err != nil {
			n.log.Warn("notification dropped",
				slog.String("event", ev.Name),
				slog.String("booking_id", ev.BookingID.String()),
				slog.Any("err", err),
			)
		}
	}()
}

// Wait blocks until every scheduled dispatch finished. Callers must not
// Notify concurrently; use Close on shutdown.
func (n *Notifier) Wait() {
	if n == nil {
		return
	}
	n.wg.Wait()
}

// Close stops accepting events and waits for those already scheduled.
// Notify may still be called concurrently, for example from a timer that
// has just fired.
func (n *Notifier) Close() {
	if n == nil {
		return
	}
	n.mu.Lock()
	n.closed = true
	n.mu.Unlock()
	n.wg.Wait()
}

// LogDispatcher writes events to the logger. It is the development default.
type LogDispatcher struct {
	log *slog.Logger
}

func NewLogDispatcher(log *slog.Logger) *LogDispatcher {
	return &LogDispatcher{log: log}
}

func (d *LogDispatcher) Dispatch(ctx context.Context, ev Event) error {
	d.log.InfoContext(ctx, "notification",
		slog.String("event", ev.Name),
		slog.Int64("user_id", ev.UserID),
		slog.String("booking_id", ev.BookingID.String()),
		slog.Any("data", ev.Data),
	)
	return nil
}
