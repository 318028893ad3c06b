package notify

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureDispatcher struct {
	mu     sync.Mutex
	events []Event
	err    error
	block  chan struct{}
}

func (c *captureDispatcher) Dispatch(ctx context.Context, ev Event) error {
	if c.block != nil {
		select {
		case <-c.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
	return c.err
}

func (c *captureDispatcher) names() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.events))
	for _, ev := range c.events {
		out = append(out, ev.Name)
	}
	return out
}

func TestNotifier_Notify(t *testing.T) {
	d := &captureDispatcher{}
	n := NewNotifier(d, slog.New(slog.NewTextHandler(io.Discard, nil)), time.Second)

	id := uuid.New()
	n.Notify(Event{Name: EventBookingCreated, BookingID: id, UserID: 7})
	n.Notify(Event{Name: EventPaymentSuccess, BookingID: id, UserID: 7})
	n.Wait()

	assert.ElementsMatch(t, []string{EventBookingCreated, EventPaymentSuccess}, d.names())
	for _, ev := range d.events {
		assert.False(t, ev.OccurredAt.IsZero())
	}
}

func TestNotifier_DoesNotBlockCaller(t *testing.T) {
	d := &captureDispatcher{block: make(chan struct{})}
	n := NewNotifier(d, slog.New(slog.NewTextHandler(io.Discard, nil)), time.Second)

	done := make(chan struct{})
	go func() {
		n.Notify(Event{Name: EventBookingExpired})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Notify blocked on the dispatcher")
	}

	close(d.block)
	n.Wait()
	assert.Equal(t, []string{EventBookingExpired}, d.names())
}

func TestNotifier_LogsFailures(t *testing.T) {
	var buf bytes.Buffer
	d := &captureDispatcher{err: errors.New("broker down")}
	n := NewNotifier(d, slog.New(slog.NewTextHandler(&buf, nil)), time.Second)

	n.Notify(Event{Name: EventPaymentFailed})
	n.Wait()

	assert.Contains(t, buf.String(), "notification dropped")
	assert.Contains(t, buf.String(), "broker down")
}

func TestNotifier_Close(t *testing.T) {
	t.Run("drains then drops", func(t *testing.T) {
		d := &captureDispatcher{}
		n := NewNotifier(d, slog.New(slog.NewTextHandler(io.Discard, nil)), time.Second)

		n.Notify(Event{Name: EventBookingCreated})
		n.Close()
		assert.Equal(t, []string{EventBookingCreated}, d.names())

		n.Notify(Event{Name: EventBookingExpired})
		n.Close()
		assert.Equal(t, []string{EventBookingCreated}, d.names())
	})

	t.Run("concurrent with late timers", func(t *testing.T) {
		d := &captureDispatcher{}
		n := NewNotifier(d, slog.New(slog.NewTextHandler(io.Discard, nil)), time.Second)

		var wg sync.WaitGroup
		for range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for range 50 {
					n.Notify(Event{Name: EventBookingExpired})
				}
			}()
		}

		n.Close()
		accepted := len(d.names())
		wg.Wait()

		assert.Equal(t, accepted, len(d.names()), "nothing is dispatched after Close returns")
	})
}

func TestNotifier_NilIsNoop(t *testing.T) {
	var n *Notifier
	require.NotPanics(t, func() {
		n.Notify(Event{Name: EventBookingCreated})
		n.Wait()
		n.Close()
	})
}

func TestLogDispatcher(t *testing.T) {
	var buf bytes.Buffer
	d := NewLogDispatcher(slog.New(slog.NewTextHandler(&buf, nil)))

	require.NoError(t, d.Dispatch(context.Background(), Event{Name: EventBookingConfirmed, UserID: 3}))
	assert.Contains(t, buf.String(), "event=booking.confirmed")
	assert.Contains(t, buf.String(), "user_id=3")
}
