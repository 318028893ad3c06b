package postgresrepo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/cinebook/internal/domain"
	"github.com/kirinyoku/cinebook/internal/repository"
)

type BookingRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *BookingRepo) With(db DB) *BookingRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *BookingRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

const selectBooking = `
	SELECT id, user_id, showtime_id, seat_ids, total_cents, currency,
	       payment_status, status, payment_method, transaction_id,
	       expires_at, created_at, updated_at
	FROM bookings`

func (r *BookingRepo) Create(ctx context.Context, b *domain.Booking) error {
	const op = "postgresrepo.BookingRepo.Create"

	if _, err := r.handle().Exec(ctx,
		`INSERT INTO bookings(
		   id, user_id, showtime_id, seat_ids, total_cents, currency,
		   payment_status, status, payment_method, transaction_id,
		   expires_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		b.ID, b.UserID, b.ShowtimeID, b.SeatIDs, b.TotalCents, b.Currency,
		string(b.PaymentStatus), string(b.Status), b.PaymentMethod, b.TransactionID,
		b.ExpiresAt, b.CreatedAt, b.UpdatedAt,
	); err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

func (r *BookingRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	const op = "postgresrepo.BookingRepo.Get"

	b, err := scanBooking(r.handle().QueryRow(ctx, selectBooking+` WHERE id = $1`, id))
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &b, nil
}

func (r *BookingRepo) ListByUser(ctx context.Context, userID int64, limit, offset int) ([]domain.Booking, error) {
	const op = "postgresrepo.BookingRepo.ListByUser"

	rows, err := r.handle().Query(ctx,
		selectBooking+`
		 WHERE user_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2 OFFSET $3`,
		userID, limit, offset,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	var out []domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, wrapDBErr(op, err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

// Transition updates the booking only while it is still in status from.
//
// Returns:
//   - error: repository.ErrConflict if the booking moved on.
//   - error: repository.ErrNotFound if the booking does not exist.
func (r *BookingRepo) Transition(
	ctx context.Context,
	id uuid.UUID,
	from domain.BookingStatus,
	upd repository.BookingUpdate,
) error {
	const op = "postgresrepo.BookingRepo.Transition"

	db := r.handle()

	tag, err := db.Exec(ctx,
		`UPDATE bookings
		 SET status = COALESCE(NULLIF($3, ''), status),
		     payment_status = COALESCE(NULLIF($4, ''), payment_status),
		     transaction_id = COALESCE($5, transaction_id),
		     updated_at = now()
		 WHERE id = $1 AND status = $2`,
		id, string(from), string(upd.Status), string(upd.PaymentStatus), upd.TransactionID,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	if err := db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM bookings WHERE id = $1)`, id,
	).Scan(&exists); err != nil {
		return wrapDBErr(op, err)
	}

	if !exists {
		return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	return fmt.Errorf("%s:%w", op, repository.ErrConflict)
}

func (r *BookingRepo) SetPaymentStatus(ctx context.Context, id uuid.UUID, status domain.PaymentStatus) error {
	const op = "postgresrepo.BookingRepo.SetPaymentStatus"

	tag, err := r.handle().Exec(ctx,
		`UPDATE bookings SET payment_status = $2, updated_at = now() WHERE id = $1`,
		id, string(status),
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	return nil
}

func scanBooking(row pgx.Row) (domain.Booking, error) {
	var (
		b             domain.Booking
		paymentStatus string
		status        string
	)

	err := row.Scan(
		&b.ID,
		&b.UserID,
		&b.ShowtimeID,
		&b.SeatIDs,
		&b.TotalCents,
		&b.Currency,
		&paymentStatus,
		&status,
		&b.PaymentMethod,
		&b.TransactionID,
		&b.ExpiresAt,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return b, err
	}

	b.PaymentStatus = domain.PaymentStatus(paymentStatus)
	b.Status = domain.BookingStatus(status)

	return b, nil
}
