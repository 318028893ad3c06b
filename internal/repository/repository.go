package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/cinebook/internal/domain"
)

// Expect is the precondition of a seat compare-and-swap.
type Expect struct {
	// Statuses lists the accepted current statuses.
	Statuses []domain.SeatStatus
	// BookingID, when set, must own the seat.
	BookingID uuid.UUID
}

func ExpectAvailable() Expect {
	return Expect{Statuses: []domain.SeatStatus{domain.SeatAvailable}}
}

func ExpectOwned(bookingID uuid.UUID, statuses ...domain.SeatStatus) Expect {
	return Expect{Statuses: statuses, BookingID: bookingID}
}

// Matches reports whether state satisfies the precondition.
func (e Expect) Matches(state domain.SeatState) bool {
	ok := false
	for _, s := range e.Statuses {
		if state.Status() == s {
			ok = true
			break
		}
	}
	if !ok {
		return false
	}
	if e.BookingID == uuid.Nil {
		return true
	}
	owner, has := domain.OwnerOf(state)
	return has && owner == e.BookingID
}

type SeatRepository interface {
	ListByShowtime(ctx context.Context, showtimeID int64) ([]domain.ShowtimeSeat, error)
	GetByID(ctx context.Context, showtimeID, seatID int64) (*domain.ShowtimeSeat, error)
	GetMany(ctx context.Context, showtimeID int64, seatIDs []int64) ([]domain.ShowtimeSeat, error)
	// CompareAndSwap is the only seat mutation. It returns ErrConflict when
	// the precondition does not hold and ErrNotFound for unknown seats.
	CompareAndSwap(ctx context.Context, showtimeID, seatID int64, expect Expect, next domain.SeatState) error
	BulkInitialize(ctx context.Context, showtimeID, screenID int64) (int64, error)
	ListExpiredHolds(ctx context.Context, now time.Time, limit int) ([]domain.ShowtimeSeat, error)
}

// BookingUpdate is applied by BookingRepository.Transition. Empty fields are
// left untouched.
type BookingUpdate struct {
	Status        domain.BookingStatus
	PaymentStatus domain.PaymentStatus
	TransactionID *string
}

type BookingRepository interface {
	Create(ctx context.Context, b *domain.Booking) error
	Get(ctx context.Context, id uuid.UUID) (*domain.Booking, error)
	ListByUser(ctx context.Context, userID int64, limit, offset int) ([]domain.Booking, error)
	// Transition applies upd only while the booking is in status from and
	// returns ErrConflict otherwise.
	Transition(ctx context.Context, id uuid.UUID, from domain.BookingStatus, upd BookingUpdate) error
	SetPaymentStatus(ctx context.Context, id uuid.UUID, status domain.PaymentStatus) error
}

type CatalogRepository interface {
	CreateMovie(ctx context.Context, title string, durationMinutes int) (int64, error)
	GetMovie(ctx context.Context, id int64) (*domain.Movie, error)
	CreateScreen(ctx context.Context, name string) (int64, error)
	GetScreen(ctx context.Context, id int64) (*domain.Screen, error)
	BatchCreateSeats(ctx context.Context, screenID int64, seats []domain.Seat) (int64, error)
	// CreateShowtime returns ErrOverlap when an active showtime on the same
	// screen intersects [StartsAt, EndsAt).
	CreateShowtime(ctx context.Context, s *domain.Showtime) (int64, error)
	GetShowtime(ctx context.Context, id int64) (*domain.Showtime, error)
	UpdatePrices(ctx context.Context, id int64, prices domain.PriceTable) error
	DeactivateShowtime(ctx context.Context, id int64) error
}

type Repos interface {
	Seats() SeatRepository
	Bookings() BookingRepository
	Catalog() CatalogRepository
}

// TxRunner runs fn against repositories bound to one transaction.
type TxRunner interface {
	Repos
	RunTx(ctx context.Context, fn func(ctx context.Context, tx Repos) error) error
}
