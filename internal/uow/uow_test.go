package uow

import (
	"context"
	"errors"
	"testing"

	"github.com/kirinyoku/cinebook/internal/repository"
	"github.com/kirinyoku/cinebook/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// retryingStore runs fn once more after a first attempt that succeeded,
// the way the PostgreSQL store does after a serialization failure.
type retryingStore struct {
	*memory.Store
}

func (s retryingStore) RunTx(ctx context.Context, fn func(ctx context.Context, tx repository.Repos) error) error {
	if err := fn(ctx, s.Store); err != nil {
		return err
	}
	return fn(ctx, s.Store)
}

func TestDo_RunsHooksAfterCommit(t *testing.T) {
	u := NewUoW(memory.NewStore())

	var order []string
	err := u.Do(context.Background(), func(ctx context.Context, tx *Tx) error {
		tx.AfterCommit(func(context.Context) { order = append(order, "first") })
		tx.AfterCommit(func(context.Context) { order = append(order, "second") })
		order = append(order, "body")
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"body", "first", "second"}, order)
}

func TestDo_SkipsHooksOnError(t *testing.T) {
	u := NewUoW(memory.NewStore())
	boom := errors.New("boom")

	ran := false
	err := u.Do(context.Background(), func(ctx context.Context, tx *Tx) error {
		tx.AfterCommit(func(context.Context) { ran = true })
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.False(t, ran)
}

func TestDo_OnlyCommittedAttemptHooks(t *testing.T) {
	u := NewUoW(retryingStore{memory.NewStore()})

	runs := 0
	attempt := 0
	err := u.Do(context.Background(), func(ctx context.Context, tx *Tx) error {
		attempt++
		tx.AfterCommit(func(context.Context) { runs++ })
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, attempt)
	assert.Equal(t, 1, runs)
}

func TestDo_HooksSurviveCancellation(t *testing.T) {
	u := NewUoW(memory.NewStore())
	ctx, cancel := context.WithCancel(context.Background())

	var hookErr error
	err := u.Do(ctx, func(ctx context.Context, tx *Tx) error {
		tx.AfterCommit(func(ctx context.Context) { hookErr = ctx.Err() })
		cancel()
		return nil
	})

	require.NoError(t, err)
	assert.NoError(t, hookErr)
}
