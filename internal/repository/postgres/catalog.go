package postgresrepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/cinebook/internal/domain"
	"github.com/kirinyoku/cinebook/internal/repository"
)

type CatalogRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *CatalogRepo) With(db DB) *CatalogRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *CatalogRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

func (r *CatalogRepo) CreateMovie(ctx context.Context, title string, durationMinutes int) (int64, error) {
	const op = "postgresrepo.CatalogRepo.CreateMovie"

	var id int64
	if err := r.handle().QueryRow(ctx,
		`INSERT INTO movies(title, duration_minutes)
		 VALUES ($1, $2)
		 RETURNING id`,
		title, durationMinutes,
	).Scan(&id); err != nil {
		return 0, wrapDBErr(op, err)
	}

	return id, nil
}

func (r *CatalogRepo) GetMovie(ctx context.Context, id int64) (*domain.Movie, error) {
	const op = "postgresrepo.CatalogRepo.GetMovie"

	var m domain.Movie
	if err := r.handle().QueryRow(ctx,
		`SELECT id, title, duration_minutes FROM movies WHERE id = $1`,
		id,
	).Scan(&m.ID, &m.Title, &m.DurationMinutes); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &m, nil
}

func (r *CatalogRepo) CreateScreen(ctx context.Context, name string) (int64, error) {
	const op = "postgresrepo.CatalogRepo.CreateScreen"

	var id int64
	if err := r.handle().QueryRow(ctx,
		`INSERT INTO screens(name) VALUES ($1) RETURNING id`,
		name,
	).Scan(&id); err != nil {
		return 0, wrapDBErr(op, err)
	}

	return id, nil
}

func (r *CatalogRepo) GetScreen(ctx context.Context, id int64) (*domain.Screen, error) {
	const op = "postgresrepo.CatalogRepo.GetScreen"

	var s domain.Screen
	if err := r.handle().QueryRow(ctx,
		`SELECT id, name FROM screens WHERE id = $1`,
		id,
	).Scan(&s.ID, &s.Name); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &s, nil
}

// BatchCreateSeats inserts seats for a screen, skipping existing positions.
//
// Returns:
//   - int64: the number of seats inserted.
func (r *CatalogRepo) BatchCreateSeats(ctx context.Context, screenID int64, seats []domain.Seat) (int64, error) {
	const op = "postgresrepo.CatalogRepo.BatchCreateSeats"

	batch := &pgx.Batch{}
	for _, s := range seats {
		batch.Queue(
			`INSERT INTO seats(screen_id, row, number, class, active)
			 VALUES ($1, $2, $3, $4, TRUE)
			 ON CONFLICT (screen_id, row, number) DO NOTHING`,
			screenID, s.Row, s.Number, string(s.Class),
		)
	}

	br := r.handle().SendBatch(ctx, batch)

	var created int64
	for range seats {
		tag, err := br.Exec()
		if err != nil {
			_ = br.Close()
			return created, wrapDBErr(op, err)
		}
		created += tag.RowsAffected()
	}

	if err := br.Close(); err != nil {
		return created, wrapDBErr(op, err)
	}

	return created, nil
}

// CreateShowtime inserts the showtime unless an active showtime on the same
// screen overlaps it.
//
// Returns:
//   - error: repository.ErrOverlap if the screen is taken.
//   - error: repository.ErrNotFound if the movie or screen does not exist.
func (r *CatalogRepo) CreateShowtime(ctx context.Context, s *domain.Showtime) (int64, error) {
	const op = "postgresrepo.CatalogRepo.CreateShowtime"

	prices, err := json.Marshal(s.Prices)
	if err != nil {
		return 0, fmt.Errorf("%s:%w", op, err)
	}

	var id int64
	err = r.handle().QueryRow(ctx,
		`INSERT INTO showtimes(movie_id, screen_id, starts_at, ends_at, prices, active)
		 SELECT $1, $2, $3, $4, $5, TRUE
		 WHERE NOT EXISTS (
		   SELECT 1 FROM showtimes
		   WHERE screen_id = $2 AND active
		     AND starts_at < $4 AND $3 < ends_at
		 )
		 RETURNING id`,
		s.MovieID, s.ScreenID, s.StartsAt, s.EndsAt, prices,
	).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("%s:%w", op, repository.ErrOverlap)
		}
		return 0, wrapDBErr(op, err)
	}

	return id, nil
}

func (r *CatalogRepo) GetShowtime(ctx context.Context, id int64) (*domain.Showtime, error) {
	const op = "postgresrepo.CatalogRepo.GetShowtime"

	var (
		s      domain.Showtime
		prices []byte
	)
	if err := r.handle().QueryRow(ctx,
		`SELECT id, movie_id, screen_id, starts_at, ends_at, prices, active
		 FROM showtimes WHERE id = $1`,
		id,
	).Scan(&s.ID, &s.MovieID, &s.ScreenID, &s.StartsAt, &s.EndsAt, &prices, &s.Active); err != nil {
		return nil, wrapDBErr(op, err)
	}

	if err := json.Unmarshal(prices, &s.Prices); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return &s, nil
}

func (r *CatalogRepo) UpdatePrices(ctx context.Context, id int64, prices domain.PriceTable) error {
	const op = "postgresrepo.CatalogRepo.UpdatePrices"

	b, err := json.Marshal(prices)
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	tag, err := r.handle().Exec(ctx, `UPDATE showtimes SET prices = $2 WHERE id = $1`, id, b)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	return nil
}

func (r *CatalogRepo) DeactivateShowtime(ctx context.Context, id int64) error {
	const op = "postgresrepo.CatalogRepo.DeactivateShowtime"

	tag, err := r.handle().Exec(ctx, `UPDATE showtimes SET active = FALSE WHERE id = $1`, id)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	return nil
}
