// Package uow runs a group of repository calls as one transaction and
// defers side effects such as cache invalidation and broadcasts until the
// transaction committed.
package uow

import (
	"context"

	"github.com/kirinyoku/cinebook/internal/repository"
)

// Hook runs once after a successful commit.
type Hook func(ctx context.Context)

// Tx is the view of the store inside a unit of work.
type Tx struct {
	repository.Repos
	hooks []Hook
}

// AfterCommit registers h to run after the unit of work committed. Hooks
// run in registration order and never run when fn fails.
func (t *Tx) AfterCommit(h Hook) {
	t.hooks = append(t.hooks, h)
}

type UoW struct {
	store repository.TxRunner
}

func NewUoW(store repository.TxRunner) *UoW {
	return &UoW{store: store}
}

// Do runs fn inside a transaction of the store. Stores that retry the
// transaction call fn again with a fresh Tx, so only the hooks of the
// committed attempt run. Hooks get a context that outlives cancellation
// of ctx.
func (u *UoW) Do(ctx context.Context, fn func(ctx context.Context, tx *Tx) error) error {
	var committed *Tx

	err := u.store.RunTx(ctx, func(ctx context.Context, repos repository.Repos) error {
		tx := &Tx{Repos: repos}
		if err := fn(ctx, tx); err != nil {
			return err
		}
		committed = tx
		return nil
	})
	if err != nil {
		return err
	}

	hookCtx := context.WithoutCancel(ctx)
	for _, h := range committed.hooks {
		h(hookCtx)
	}

	return nil
}
