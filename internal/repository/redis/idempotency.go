package redisrepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Outcome of Begin.
type Outcome int

const (
	// Started means the caller owns the key and must Complete or Abort it.
	Started Outcome = iota
	// Replay means a result is stored; the caller returns it unchanged.
	Replay
	// InProgress means another request holds the key.
	InProgress
	// Mismatch means the key was used before with a different request.
	Mismatch
)

// StoredResponse is the response recorded for an idempotency key.
type StoredResponse struct {
	Status int             `json:"status"`
	Body   json.RawMessage `json:"body"`
}

type idemRecord struct {
	Fingerprint string          `json:"fp"`
	Done        bool            `json:"done"`
	Response    *StoredResponse `json:"response,omitempty"`
}

// IdempotencyStore records the first response of a request keyed by the
// client's Idempotency-Key. A key is bound to the fingerprint of the request
// that used it first.
type IdempotencyStore struct {
	rdb     *redis.Client
	ttl     time.Duration
	lockTTL time.Duration
}

func NewIdempotencyStore(rdb *redis.Client, ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{rdb: rdb, ttl: ttl, lockTTL: time.Minute}
}

// Begin claims key for a request with the given fingerprint. For Replay the
// stored response is returned.
func (s *IdempotencyStore) Begin(ctx context.Context, key, fingerprint string) (Outcome, *StoredResponse, error) {
	const op = "redisrepo.IdempotencyStore.Begin"

	claim, err := json.Marshal(idemRecord{Fingerprint: fingerprint})
	if err != nil {
		return 0, nil, fmt.Errorf("%s:%w", op, err)
	}

	ok, err := s.rdb.SetNX(ctx, key, claim, s.lockTTL).Result()
	if err != nil {
		return 0, nil, fmt.Errorf("%s:%w", op, err)
	}
	if ok {
		return Started, nil, nil
	}

	raw, err := s.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		// Released between SETNX and GET.
		return InProgress, nil, nil
	}
	if err != nil {
		return 0, nil, fmt.Errorf("%s:%w", op, err)
	}

	var rec idemRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return 0, nil, fmt.Errorf("%s:%w", op, err)
	}

	switch {
	case rec.Fingerprint != fingerprint:
		return Mismatch, nil, nil
	case rec.Done && rec.Response != nil:
		return Replay, rec.Response, nil
	default:
		return InProgress, nil, nil
	}
}

// Complete stores the response for key so later requests replay it.
func (s *IdempotencyStore) Complete(ctx context.Context, key, fingerprint string, resp StoredResponse) error {
	const op = "redisrepo.IdempotencyStore.Complete"

	b, err := json.Marshal(idemRecord{Fingerprint: fingerprint, Done: true, Response: &resp})
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}
	if err := s.rdb.Set(ctx, key, b, s.ttl).Err(); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}
	return nil
}

// Abort frees key after a failed request so the client may retry it.
func (s *IdempotencyStore) Abort(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, key).Err()
}
