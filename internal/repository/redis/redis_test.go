package redisrepo

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestSlidingWindowLimiter(t *testing.T) {
	_, rdb := setupRedis(t)
	ctx := context.Background()
	l := NewSlidingWindowLimiter(rdb, PrefixRateLimit("bookings"), 3, time.Minute)

	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	for i := 1; i <= 3; i++ {
		d, err := l.Allow(ctx, "user:1")
		require.NoError(t, err)
		assert.True(t, d.Allowed)
		assert.Equal(t, int64(i), d.Count)
		assert.Equal(t, int64(3-i), d.Remaining)
		now = now.Add(10 * time.Second)
	}

	d, err := l.Allow(ctx, "user:1")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, int64(3), d.Count, "rejected calls are not counted")
	assert.Equal(t, 30*time.Second, d.RetryAfter)

	d, err = l.Allow(ctx, "user:2")
	require.NoError(t, err)
	assert.True(t, d.Allowed, "limits are per key")

	now = now.Add(31 * time.Second)
	d, err = l.Allow(ctx, "user:1")
	require.NoError(t, err)
	assert.True(t, d.Allowed, "oldest call left the window")
}

func TestIdempotencyStore(t *testing.T) {
	mr, rdb := setupRedis(t)
	ctx := context.Background()
	s := NewIdempotencyStore(rdb, time.Hour)
	key := KeyIdemBooking(7, "k1")

	out, _, err := s.Begin(ctx, key, "fp-a")
	require.NoError(t, err)
	require.Equal(t, Started, out)

	out, _, err = s.Begin(ctx, key, "fp-a")
	require.NoError(t, err)
	assert.Equal(t, InProgress, out)

	out, _, err = s.Begin(ctx, key, "fp-b")
	require.NoError(t, err)
	assert.Equal(t, Mismatch, out)

	require.NoError(t, s.Complete(ctx, key, "fp-a", StoredResponse{Status: 201, Body: []byte(`{"id":"b1"}`)}))
	assert.Equal(t, time.Hour, mr.TTL(key))

	out, resp, err := s.Begin(ctx, key, "fp-a")
	require.NoError(t, err)
	require.Equal(t, Replay, out)
	assert.Equal(t, 201, resp.Status)
	assert.JSONEq(t, `{"id":"b1"}`, string(resp.Body))

	out, _, err = s.Begin(ctx, key, "fp-b")
	require.NoError(t, err)
	assert.Equal(t, Mismatch, out, "a completed key stays bound to its request")

	other := KeyIdemBooking(7, "k2")
	out, _, err = s.Begin(ctx, other, "fp-c")
	require.NoError(t, err)
	require.Equal(t, Started, out)
	require.NoError(t, s.Abort(ctx, other))

	out, _, err = s.Begin(ctx, other, "fp-d")
	require.NoError(t, err)
	assert.Equal(t, Started, out, "an aborted key is free again")

	mr.FastForward(2 * time.Minute)
	out, _, err = s.Begin(ctx, other, "fp-e")
	require.NoError(t, err)
	assert.Equal(t, Started, out, "abandoned claims expire")
}

type cachedShowtime struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

func TestCacheLoad(t *testing.T) {
	mr, rdb := setupRedis(t)
	ctx := context.Background()
	c := NewCache(rdb)
	key := KeyShowtime(3)

	var loads atomic.Int32
	loader := func(context.Context) (cachedShowtime, error) {
		loads.Add(1)
		return cachedShowtime{ID: 3, Title: "Heat"}, nil
	}

	v, err := Load(ctx, c, key, time.Minute, loader)
	require.NoError(t, err)
	assert.Equal(t, cachedShowtime{ID: 3, Title: "Heat"}, v)

	v, err = Load(ctx, c, key, time.Minute, loader)
	require.NoError(t, err)
	assert.Equal(t, "Heat", v.Title)
	assert.Equal(t, int32(1), loads.Load())
	assert.Equal(t, time.Minute, mr.TTL(key))

	require.NoError(t, c.InvalidateShowtime(ctx, 3))
	assert.False(t, mr.Exists(key))

	_, err = Load(ctx, c, key, time.Minute, loader)
	require.NoError(t, err)
	assert.Equal(t, int32(2), loads.Load())

	boom := errors.New("db down")
	_, err = Load(ctx, c, KeyShowtime(4), time.Minute, func(context.Context) (cachedShowtime, error) {
		return cachedShowtime{}, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists(KeyShowtime(4)))
}

func TestCacheLoad_Degrades(t *testing.T) {
	mr, rdb := setupRedis(t)
	ctx := context.Background()
	c := NewCache(rdb)

	t.Run("corrupt entry is reloaded", func(t *testing.T) {
		key := KeyShowtime(5)
		require.NoError(t, mr.Set(key, "{not json"))

		v, err := Load(ctx, c, key, time.Minute, func(context.Context) (cachedShowtime, error) {
			return cachedShowtime{ID: 5, Title: "Ran"}, nil
		})
		require.NoError(t, err)
		assert.Equal(t, "Ran", v.Title)

		got, err := mr.Get(key)
		require.NoError(t, err)
		assert.JSONEq(t, `{"id":5,"title":"Ran"}`, got)
	})

	t.Run("entry of another shape is replaced once", func(t *testing.T) {
		key := KeyShowtime(7)
		require.NoError(t, mr.Set(key, `["not","a","showtime"]`))

		var loads atomic.Int32
		loader := func(context.Context) (cachedShowtime, error) {
			loads.Add(1)
			return cachedShowtime{ID: 7, Title: "Yojimbo"}, nil
		}

		for range 2 {
			v, err := Load(ctx, c, key, time.Minute, loader)
			require.NoError(t, err)
			assert.Equal(t, "Yojimbo", v.Title)
		}
		assert.Equal(t, int32(1), loads.Load())
	})

	t.Run("redis down serves the loader", func(t *testing.T) {
		mr.Close()

		v, err := Load(ctx, c, KeyShowtime(6), time.Minute, func(context.Context) (cachedShowtime, error) {
			return cachedShowtime{ID: 6, Title: "Ikiru"}, nil
		})
		require.NoError(t, err)
		assert.Equal(t, "Ikiru", v.Title)
	})
}

func TestPubSub(t *testing.T) {
	_, rdb := setupRedis(t)
	ps := NewPubSub(rdb)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ready := make(chan struct{})
	got := make(chan Envelope, 1)
	done := make(chan error, 1)
	go func() {
		done <- ps.Subscribe(ctx, ready, func(_ context.Context, env Envelope) { got <- env })
	}()

	select {
	case <-ready:
	case <-time.After(2 * time.Second):
		t.Fatal("subscription not ready")
	}

	require.NoError(t, ps.Publish(context.Background(), Envelope{
		Origin: "a",
		Topic:  "showtime:1",
		Event:  "seats_updated",
		Data:   []byte(`{"seatIds":[1]}`),
	}))

	select {
	case env := <-got:
		assert.Equal(t, "seats_updated", env.Event)
		assert.Equal(t, "showtime:1", env.Topic)
		assert.JSONEq(t, `{"seatIds":[1]}`, string(env.Data))
	case <-time.After(2 * time.Second):
		t.Fatal("envelope not delivered")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			assert.ErrorIs(t, err, context.Canceled)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("subscribe did not return")
	}
}
