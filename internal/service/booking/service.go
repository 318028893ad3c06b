package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/cinebook/internal/domain"
	"github.com/kirinyoku/cinebook/internal/metrics"
	"github.com/kirinyoku/cinebook/internal/notify"
	"github.com/kirinyoku/cinebook/internal/payment"
	"github.com/kirinyoku/cinebook/internal/realtime"
	"github.com/kirinyoku/cinebook/internal/repository"
	redisrepo "github.com/kirinyoku/cinebook/internal/repository/redis"
	"github.com/kirinyoku/cinebook/internal/service/hold"
	"github.com/kirinyoku/cinebook/internal/uow"
)

type Config struct {
	HoldTTL      time.Duration
	CancelCutoff time.Duration
	MaxSeats     int
	Currency     string
}

// RateLimiter is satisfied by the Redis sliding-window limiter.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (redisrepo.Decision, error)
}

// SeatMapCache drops cached seat maps after a mutation.
type SeatMapCache interface {
	InvalidateShowtime(ctx context.Context, showtimeID int64) error
}

// Deps are the collaborators of the service. Cache and Limiter are optional.
type Deps struct {
	Store       repository.TxRunner
	Holds       *hold.Manager
	Payments    payment.Processor
	Broadcaster realtime.Broadcaster
	Notifier    *notify.Notifier
	Cache       SeatMapCache
	Limiter     RateLimiter
	Logger      *slog.Logger
}

// Service drives a booking through hold, payment, confirmation and
// cancellation, keeping seats and the booking row consistent.
type Service struct {
	store    repository.TxRunner
	uow      *uow.UoW
	holds    *hold.Manager
	payments payment.Processor
	bcast    realtime.Broadcaster
	notifier *notify.Notifier
	cache    SeatMapCache
	limiter  RateLimiter
	log      *slog.Logger
	cfg      Config
	now      func() time.Time
}

func New(deps Deps, cfg Config) *Service {
	if cfg.HoldTTL <= 0 {
		cfg.HoldTTL = 15 * time.Minute
	}

	if cfg.CancelCutoff <= 0 {
		cfg.CancelCutoff = 3 * time.Hour
	}

	if cfg.MaxSeats <= 0 {
		cfg.MaxSeats = 10
	}

	if cfg.Currency == "" {
		cfg.Currency = "USD"
	}

	return &Service{
		store:    deps.Store,
		uow:      uow.NewUoW(deps.Store),
		holds:    deps.Holds,
		payments: deps.Payments,
		bcast:    deps.Broadcaster,
		notifier: deps.Notifier,
		cache:    deps.Cache,
		limiter:  deps.Limiter,
		log:      deps.Logger,
		cfg:      cfg,
		now:      time.Now,
	}
}

// CreateBooking holds the seats for the user and records a reserved
// booking priced at the showtime's current price table.
//
// Parameters:
//   - ctx: request-scoped context.
//   - userID: the requesting user.
//   - showtimeID: showtime the seats belong to.
//   - seatIDs: seats to hold, at least one and without duplicates.
//   - paymentMethod: method that will be charged by ProcessPayment.
//
// Returns:
//   - *domain.Booking: the reserved booking.
//   - error: booking.ErrShowtimeNotFound / booking.ErrSeatNotFound for unknown ids.
//   - error: hold.ErrSeatUnavailable if any seat is taken.
//   - error: an INVALID domain error for bad input.
func (s *Service) CreateBooking(
	ctx context.Context,
	userID, showtimeID int64,
	seatIDs []int64,
	paymentMethod string,
) (*domain.Booking, error) {
	const op = "service.booking.CreateBooking"

	if err := s.validateRequest(seatIDs, paymentMethod); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if s.limiter != nil {
		d, err := s.limiter.Allow(ctx, "user:"+strconv.FormatInt(userID, 10))
		if err != nil {
			s.log.Warn("booking rate limiter unavailable", slog.Any("err", err))
		} else if !d.Allowed {
			return nil, fmt.Errorf("%s:%w", op, domain.RetryLater(ErrRateLimited, d.RetryAfter))
		}
	}

	now := s.now()

	showtime, err := s.store.Catalog().GetShowtime(ctx, showtimeID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ErrShowtimeNotFound)
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if !showtime.Active || !showtime.StartsAt.After(now) {
		return nil, fmt.Errorf("%s:%w", op, ErrShowtimeClosed)
	}

	seats, err := s.store.Seats().GetMany(ctx, showtimeID, seatIDs)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	if len(seats) != len(seatIDs) {
		return nil, fmt.Errorf("%s:%w", op, ErrSeatNotFound)
	}

	var total int64
	for _, seat := range seats {
		price, ok := showtime.Prices[seat.Class]
		if !ok {
			return nil, fmt.Errorf("%s:%w: %s", op, ErrNoPrice, seat.Class)
		}
		total += price
	}

	s.reclaimLapsedHolds(ctx, seats, now)

	b := &domain.Booking{
		ID:            uuid.New(),
		UserID:        userID,
		ShowtimeID:    showtimeID,
		SeatIDs:       append([]int64(nil), seatIDs...),
		TotalCents:    total,
		Currency:      s.cfg.Currency,
		PaymentStatus: domain.PaymentPending,
		Status:        domain.BookingReserved,
		PaymentMethod: paymentMethod,
		ExpiresAt:     now.Add(s.cfg.HoldTTL),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err = s.uow.Do(ctx, func(ctx context.Context, tx *uow.Tx) error {
		if err := s.holds.With(tx.Seats()).Reserve(ctx, showtimeID, b.ID, seatIDs, b.ExpiresAt); err != nil {
			if errors.Is(err, hold.ErrSeatNotFound) {
				return ErrSeatNotFound
			}
			return err
		}

		if err := tx.Bookings().Create(ctx, b); err != nil {
			return err
		}

		tx.AfterCommit(func(ctx context.Context) {
			s.invalidate(ctx, showtimeID)
		})

		return nil
	})
	if err != nil {
		// Stores without rollback keep the seats flipped by this attempt.
		if _, rerr := s.holds.Release(ctx, showtimeID, b.ID, seatIDs); rerr != nil {
			s.log.Error("release seats of failed booking",
				slog.String("booking_id", b.ID.String()),
				slog.Any("err", rerr),
			)
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	s.scheduleExpiry(b)

	s.publishSeats(showtimeID, seatIDs, domain.SeatReserved)
	s.publishBooking(realtime.EventBookingCreated, b)
	s.bcast.SendToUser(userID, realtime.EventBookingReserved, realtime.BookingReserved{
		BookingID: b.ID,
		ExpiresAt: b.ExpiresAt,
	})
	s.notify(notify.EventBookingCreated, b, nil)
	metrics.IncBooking("created")

	s.log.Info("booking reserved",
		slog.String("booking_id", b.ID.String()),
		slog.Int64("user_id", userID),
		slog.Int64("showtime_id", showtimeID),
		slog.Int("seats", len(seatIDs)),
	)

	return b, nil
}

func (s *Service) validateRequest(seatIDs []int64, paymentMethod string) error {
	if len(seatIDs) == 0 {
		return ErrNoSeats
	}

	if len(seatIDs) > s.cfg.MaxSeats {
		return ErrTooManySeats
	}

	seen := make(map[int64]struct{}, len(seatIDs))
	for _, id := range seatIDs {
		if _, dup := seen[id]; dup {
			return ErrDuplicateSeats
		}
		seen[id] = struct{}{}
	}

	if strings.TrimSpace(paymentMethod) == "" {
		return ErrPaymentMethodRequired
	}

	return nil
}

// reclaimLapsedHolds expires bookings whose hold on one of the requested
// seats already passed its deadline but was not swept yet.
func (s *Service) reclaimLapsedHolds(ctx context.Context, seats []domain.ShowtimeSeat, now time.Time) {
	seen := make(map[uuid.UUID]struct{})
	for _, seat := range seats {
		exp, ok := domain.ExpiresAtOf(seat.State)
		if !ok || exp.After(now) {
			continue
		}
		owner, _ := domain.OwnerOf(seat.State)
		if _, done := seen[owner]; done {
			continue
		}
		seen[owner] = struct{}{}

		if err := s.ExpireBooking(ctx, owner); err != nil && !errors.Is(err, ErrBookingNotFound) {
			s.log.Warn("reclaim lapsed hold",
				slog.String("booking_id", owner.String()),
				slog.Any("err", err),
			)
		}
	}
}

// GetBooking returns a booking visible to the principal: its owner or an
// admin. Other callers get booking.ErrBookingNotFound.
func (s *Service) GetBooking(ctx context.Context, p domain.Principal, id uuid.UUID) (*domain.Booking, error) {
	const op = "service.booking.GetBooking"

	b, err := s.store.Bookings().Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ErrBookingNotFound)
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if !p.IsAdmin() && !b.OwnedBy(p.UserID) {
		return nil, fmt.Errorf("%s:%w", op, ErrBookingNotFound)
	}

	return b, nil
}

// ListBookings returns the user's bookings, newest first.
func (s *Service) ListBookings(ctx context.Context, userID int64, limit, offset int) ([]domain.Booking, error) {
	const op = "service.booking.ListBookings"

	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	list, err := s.store.Bookings().ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return list, nil
}
