package postgresrepo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/cinebook/internal/repository"
)

const maxTxAttempts = 3

type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{
		pool: pool,
	}
}

// RunTx runs fn in a serializable transaction and retries it when
// PostgreSQL reports a serialization failure or deadlock.
func (s *Store) RunTx(
	ctx context.Context,
	fn func(ctx context.Context, tx repository.Repos) error,
) error {
	var err error
	for attempt := 0; attempt < maxTxAttempts; attempt++ {
		err = s.runTxOnce(ctx, fn)
		if err == nil || !IsRetryable(err) {
			return err
		}
	}

	return err
}

func (s *Store) runTxOnce(
	ctx context.Context,
	fn func(ctx context.Context, tx repository.Repos) error,
) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.Serializable,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return err
	}

	defer tx.Rollback(ctx)

	if err := fn(ctx, txRepos{pool: s.pool, tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	return nil
}

func (s *Store) Seats() repository.SeatRepository       { return &SeatRepo{pool: s.pool} }
func (s *Store) Bookings() repository.BookingRepository { return &BookingRepo{pool: s.pool} }
func (s *Store) Catalog() repository.CatalogRepository  { return &CatalogRepo{pool: s.pool} }

type txRepos struct {
	pool *pgxpool.Pool
	tx   DB
}

func (t txRepos) Seats() repository.SeatRepository {
	return (&SeatRepo{pool: t.pool}).With(t.tx)
}

func (t txRepos) Bookings() repository.BookingRepository {
	return (&BookingRepo{pool: t.pool}).With(t.tx)
}

func (t txRepos) Catalog() repository.CatalogRepository {
	return (&CatalogRepo{pool: t.pool}).With(t.tx)
}
