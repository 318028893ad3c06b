package postgresrepo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/cinebook/internal/domain"
	"github.com/kirinyoku/cinebook/internal/repository"
)

type SeatRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *SeatRepo) With(db DB) *SeatRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *SeatRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

const selectShowtimeSeat = `
	SELECT s.id, s.screen_id, s.row, s.number, s.class, s.active,
	       ss.showtime_id, ss.status, ss.booking_id, ss.hold_expires_at
	FROM showtime_seats ss
	JOIN seats s ON s.id = ss.seat_id`

// ListByShowtime lists the seats of a showtime ordered by row then number.
//
// Returns:
//   - []domain.ShowtimeSeat: seats with their live state, empty for unknown showtimes.
func (r *SeatRepo) ListByShowtime(ctx context.Context, showtimeID int64) ([]domain.ShowtimeSeat, error) {
	const op = "postgresrepo.SeatRepo.ListByShowtime"

	rows, err := r.handle().Query(ctx,
		selectShowtimeSeat+`
		 WHERE ss.showtime_id = $1
		 ORDER BY s.row, s.number`,
		showtimeID,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	out, err := collectShowtimeSeats(rows)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

// GetByID returns one seat of a showtime.
//
// Returns:
//   - error: repository.ErrNotFound if the seat does not belong to the showtime.
func (r *SeatRepo) GetByID(ctx context.Context, showtimeID, seatID int64) (*domain.ShowtimeSeat, error) {
	const op = "postgresrepo.SeatRepo.GetByID"

	row := r.handle().QueryRow(ctx,
		selectShowtimeSeat+`
		 WHERE ss.showtime_id = $1 AND ss.seat_id = $2`,
		showtimeID, seatID,
	)

	seat, err := scanShowtimeSeat(row)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &seat, nil
}

// GetMany returns the requested seats that exist for the showtime. Callers
// compare lengths to detect unknown ids.
func (r *SeatRepo) GetMany(ctx context.Context, showtimeID int64, seatIDs []int64) ([]domain.ShowtimeSeat, error) {
	const op = "postgresrepo.SeatRepo.GetMany"

	rows, err := r.handle().Query(ctx,
		selectShowtimeSeat+`
		 WHERE ss.showtime_id = $1 AND ss.seat_id = ANY($2)
		 ORDER BY s.row, s.number`,
		showtimeID, seatIDs,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	out, err := collectShowtimeSeats(rows)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

// CompareAndSwap moves a seat to next when its current state satisfies expect.
//
// Returns:
//   - error: repository.ErrConflict if the precondition does not hold.
//   - error: repository.ErrNotFound if the seat does not exist.
func (r *SeatRepo) CompareAndSwap(
	ctx context.Context,
	showtimeID, seatID int64,
	expect repository.Expect,
	next domain.SeatState,
) error {
	const op = "postgresrepo.SeatRepo.CompareAndSwap"

	db := r.handle()

	statuses := make([]string, len(expect.Statuses))
	for i, s := range expect.Statuses {
		statuses[i] = string(s)
	}

	var owner *uuid.UUID
	if expect.BookingID != uuid.Nil {
		owner = &expect.BookingID
	}

	var bookingID *uuid.UUID
	if id, ok := domain.OwnerOf(next); ok {
		bookingID = &id
	}

	var expiresAt *time.Time
	if exp, ok := domain.ExpiresAtOf(next); ok {
		expiresAt = &exp
	}

	tag, err := db.Exec(ctx,
		`UPDATE showtime_seats
		 SET status = $4, booking_id = $5, hold_expires_at = $6
		 WHERE showtime_id = $1
		   AND seat_id = $2
		   AND status = ANY($3)
		   AND ($7::uuid IS NULL OR booking_id = $7)`,
		showtimeID, seatID, statuses, string(next.Status()), bookingID, expiresAt, owner,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	if err := db.QueryRow(ctx,
		`SELECT EXISTS (
		   SELECT 1 FROM showtime_seats WHERE showtime_id = $1 AND seat_id = $2
		 )`,
		showtimeID, seatID,
	).Scan(&exists); err != nil {
		return wrapDBErr(op, err)
	}

	if !exists {
		return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	return fmt.Errorf("%s:%w", op, repository.ErrConflict)
}

// BulkInitialize copies every active seat of the screen into the showtime as
// available.
//
// Returns:
//   - int64: the number of seats created.
func (r *SeatRepo) BulkInitialize(ctx context.Context, showtimeID, screenID int64) (int64, error) {
	const op = "postgresrepo.SeatRepo.BulkInitialize"

	tag, err := r.handle().Exec(ctx,
		`INSERT INTO showtime_seats(showtime_id, seat_id, status)
		 SELECT $1, s.id, 'available'
		 FROM seats s
		 WHERE s.screen_id = $2 AND s.active
		 ON CONFLICT DO NOTHING`,
		showtimeID, screenID,
	)
	if err != nil {
		return 0, wrapDBErr(op, err)
	}

	return tag.RowsAffected(), nil
}

// ListExpiredHolds returns reserved seats whose deadline is not after now.
func (r *SeatRepo) ListExpiredHolds(ctx context.Context, now time.Time, limit int) ([]domain.ShowtimeSeat, error) {
	const op = "postgresrepo.SeatRepo.ListExpiredHolds"

	rows, err := r.handle().Query(ctx,
		selectShowtimeSeat+`
		 WHERE ss.status = 'reserved' AND ss.hold_expires_at <= $1
		 ORDER BY ss.hold_expires_at
		 LIMIT $2`,
		now, limit,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	out, err := collectShowtimeSeats(rows)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

func scanShowtimeSeat(row pgx.Row) (domain.ShowtimeSeat, error) {
	var (
		s         domain.ShowtimeSeat
		class     string
		status    string
		bookingID *uuid.UUID
		expiresAt *time.Time
	)

	if err := row.Scan(
		&s.ID,
		&s.ScreenID,
		&s.Row,
		&s.Number,
		&class,
		&s.Active,
		&s.ShowtimeID,
		&status,
		&bookingID,
		&expiresAt,
	); err != nil {
		return s, err
	}

	s.Class = domain.SeatClass(class)

	state, err := domain.StateFromParts(domain.SeatStatus(status), bookingID, expiresAt)
	if err != nil {
		return s, err
	}
	s.State = state

	return s, nil
}

func collectShowtimeSeats(rows pgx.Rows) ([]domain.ShowtimeSeat, error) {
	defer rows.Close()

	var out []domain.ShowtimeSeat
	for rows.Next() {
		s, err := scanShowtimeSeat(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}

	return out, rows.Err()
}
