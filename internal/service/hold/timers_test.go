package hold

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu       sync.Mutex
	warnings []time.Duration
	expired  chan struct{}
}

func newRecorder() *recorder {
	return &recorder{expired: make(chan struct{}, 1)}
}

func (r *recorder) callbacks() Callbacks {
	return Callbacks{
		OnWarning: func(left time.Duration) {
			r.mu.Lock()
			r.warnings = append(r.warnings, left)
			r.mu.Unlock()
		},
		OnExpire: func() { r.expired <- struct{}{} },
	}
}

func (r *recorder) seen() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.warnings...)
}

func TestScheduleExpiry(t *testing.T) {
	t.Run("warnings then terminal", func(t *testing.T) {
		m, _, _, _ := newTestManager(t, 80*time.Millisecond, 40*time.Millisecond)
		rec := newRecorder()
		id := uuid.New()

		m.ScheduleExpiry(id, time.Now().Add(120*time.Millisecond), rec.callbacks())

		select {
		case <-rec.expired:
		case <-time.After(2 * time.Second):
			t.Fatal("terminal timer did not fire")
		}

		assert.Equal(t, []time.Duration{80 * time.Millisecond, 40 * time.Millisecond}, rec.seen())
		assert.False(t, m.Scheduled(id))
	})

	t.Run("skips warnings already past", func(t *testing.T) {
		m, _, _, _ := newTestManager(t, time.Hour, 20*time.Millisecond)
		rec := newRecorder()

		m.ScheduleExpiry(uuid.New(), time.Now().Add(60*time.Millisecond), rec.callbacks())

		select {
		case <-rec.expired:
		case <-time.After(2 * time.Second):
			t.Fatal("terminal timer did not fire")
		}
		assert.Equal(t, []time.Duration{20 * time.Millisecond}, rec.seen())
	})

	t.Run("past deadline fires immediately", func(t *testing.T) {
		m, _, _, _ := newTestManager(t)
		rec := newRecorder()

		m.ScheduleExpiry(uuid.New(), time.Now().Add(-time.Second), rec.callbacks())

		select {
		case <-rec.expired:
		case <-time.After(time.Second):
			t.Fatal("terminal timer did not fire")
		}
	})

	t.Run("cancel stops everything", func(t *testing.T) {
		m, _, _, _ := newTestManager(t, 30*time.Millisecond)
		rec := newRecorder()
		id := uuid.New()

		m.ScheduleExpiry(id, time.Now().Add(50*time.Millisecond), rec.callbacks())
		require.True(t, m.Scheduled(id))
		m.CancelScheduledExpiry(id)
		m.CancelScheduledExpiry(id)

		select {
		case <-rec.expired:
			t.Fatal("cancelled timer fired")
		case <-time.After(150 * time.Millisecond):
		}
		assert.Empty(t, rec.seen())
		assert.False(t, m.Scheduled(id))
	})

	t.Run("reschedule replaces previous timers", func(t *testing.T) {
		m, _, _, _ := newTestManager(t)
		first := newRecorder()
		second := newRecorder()
		id := uuid.New()

		m.ScheduleExpiry(id, time.Now().Add(30*time.Millisecond), first.callbacks())
		m.ScheduleExpiry(id, time.Now().Add(60*time.Millisecond), second.callbacks())

		select {
		case <-second.expired:
		case <-time.After(2 * time.Second):
			t.Fatal("replacement timer did not fire")
		}

		select {
		case <-first.expired:
			t.Fatal("replaced timer fired")
		default:
		}
	})
}

func TestStop(t *testing.T) {
	m, _, _, _ := newTestManager(t)

	var fired atomic.Int32
	for range 3 {
		m.ScheduleExpiry(uuid.New(), time.Now().Add(30*time.Millisecond), Callbacks{OnExpire: func() { fired.Add(1) }})
	}
	m.Stop()

	time.Sleep(60 * time.Millisecond)
	assert.Zero(t, fired.Load())
}
