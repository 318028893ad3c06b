package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/kirinyoku/cinebook/internal/domain"
	"github.com/kirinyoku/cinebook/internal/metrics"
	"github.com/kirinyoku/cinebook/internal/notify"
	"github.com/kirinyoku/cinebook/internal/realtime"
	"github.com/kirinyoku/cinebook/internal/repository"
	"github.com/kirinyoku/cinebook/internal/uow"
)

// CancelBooking cancels a booking on behalf of its owner and frees its
// seats. A paid booking is marked refunded.
//
// Returns:
//   - *domain.Booking: the cancelled booking.
//   - error: booking.ErrNotOwner if the requester does not own the booking.
//   - error: booking.ErrAlreadyCancelled if it was cancelled before.
//   - error: booking.ErrTooLate inside the cutoff before the showtime.
func (s *Service) CancelBooking(ctx context.Context, bookingID uuid.UUID, userID int64) (*domain.Booking, error) {
	const op = "service.booking.CancelBooking"

	b, err := s.store.Bookings().Get(ctx, bookingID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ErrBookingNotFound)
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if !b.OwnedBy(userID) {
		return nil, fmt.Errorf("%s:%w", op, ErrNotOwner)
	}

	if b.Status == domain.BookingCancelled {
		return nil, fmt.Errorf("%s:%w", op, ErrAlreadyCancelled)
	}

	showtime, err := s.store.Catalog().GetShowtime(ctx, b.ShowtimeID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ErrShowtimeNotFound)
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if !s.now().Before(showtime.StartsAt.Add(-s.cfg.CancelCutoff)) {
		return nil, fmt.Errorf("%s:%w", op, ErrTooLate)
	}

	upd := repository.BookingUpdate{Status: domain.BookingCancelled}
	if b.PaymentStatus == domain.PaymentCompleted {
		upd.PaymentStatus = domain.PaymentRefunded
	}

	var released []int64

	err = s.uow.Do(ctx, func(ctx context.Context, tx *uow.Tx) error {
		if err := tx.Bookings().Transition(ctx, b.ID, b.Status, upd); err != nil {
			return err
		}

		ids, err := s.holds.With(tx.Seats()).Release(ctx, b.ShowtimeID, b.ID, b.SeatIDs)
		if err != nil {
			return err
		}
		released = ids

		tx.AfterCommit(func(ctx context.Context) {
			s.invalidate(ctx, b.ShowtimeID)
		})

		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, fmt.Errorf("%s:%w", op, s.conflictReason(ctx, b.ID))
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	s.holds.CancelScheduledExpiry(b.ID)

	cancelled, err := s.store.Bookings().Get(ctx, b.ID)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	s.publishSeats(b.ShowtimeID, released, domain.SeatAvailable)
	s.publishBooking(realtime.EventBookingCancelled, cancelled)
	s.notify(notify.EventBookingCancelled, cancelled, nil)
	metrics.IncBooking("cancelled")
	metrics.AddSeatsReleased("cancel", len(released))

	s.log.Info("booking cancelled",
		slog.String("booking_id", b.ID.String()),
		slog.Int("seats_released", len(released)),
	)

	return cancelled, nil
}

func (s *Service) conflictReason(ctx context.Context, id uuid.UUID) error {
	current, err := s.store.Bookings().Get(ctx, id)
	if err == nil && current.Status == domain.BookingCancelled {
		return ErrAlreadyCancelled
	}
	return ErrBookingChanged
}

// ExpireBooking cancels a reserved booking whose hold lapsed and frees its
// seats. It is the entry point of the deadline timer and of the sweeper and
// is safe to call repeatedly: confirmed bookings are left alone and a
// cancelled booking only has leftover seats released.
func (s *Service) ExpireBooking(ctx context.Context, bookingID uuid.UUID) error {
	const op = "service.booking.ExpireBooking"

	b, err := s.store.Bookings().Get(ctx, bookingID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%s:%w", op, ErrBookingNotFound)
		}
		return fmt.Errorf("%s:%w", op, err)
	}

	switch b.Status {
	case domain.BookingConfirmed:
		s.holds.CancelScheduledExpiry(b.ID)
		return nil

	case domain.BookingCancelled:
		released, err := s.holds.Release(ctx, b.ShowtimeID, b.ID, b.SeatIDs)
		if err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}
		if len(released) > 0 {
			s.invalidate(ctx, b.ShowtimeID)
			s.publishSeats(b.ShowtimeID, released, domain.SeatAvailable)
			metrics.AddSeatsReleased("expiry", len(released))
		}
		return nil
	}

	if s.now().Before(b.ExpiresAt) {
		s.scheduleExpiry(b)
		return nil
	}

	var released []int64
	won := true

	err = s.uow.Do(ctx, func(ctx context.Context, tx *uow.Tx) error {
		err := tx.Bookings().Transition(ctx, b.ID, domain.BookingReserved, repository.BookingUpdate{
			Status: domain.BookingCancelled,
		})
		if errors.Is(err, repository.ErrConflict) {
			won = false
			return nil
		}
		if err != nil {
			return err
		}

		ids, err := s.holds.With(tx.Seats()).Release(ctx, b.ShowtimeID, b.ID, b.SeatIDs)
		if err != nil {
			return err
		}
		released = ids

		tx.AfterCommit(func(ctx context.Context) {
			s.invalidate(ctx, b.ShowtimeID)
		})

		return nil
	})
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	s.holds.CancelScheduledExpiry(b.ID)

	if !won {
		return nil
	}

	b.Status = domain.BookingCancelled

	s.bcast.SendToUser(b.UserID, realtime.EventBookingExpired, realtime.BookingExpired{BookingID: b.ID})
	s.publishSeats(b.ShowtimeID, released, domain.SeatAvailable)
	s.notify(notify.EventBookingExpired, b, nil)
	metrics.IncBooking("expired")
	metrics.AddSeatsReleased("expiry", len(released))

	s.log.Info("booking expired",
		slog.String("booking_id", b.ID.String()),
		slog.Int("seats_released", len(released)),
	)

	return nil
}

// ReleaseOrphans frees seats still held by a booking that no longer exists.
func (s *Service) ReleaseOrphans(ctx context.Context, showtimeID int64, bookingID uuid.UUID, seatIDs []int64) ([]int64, error) {
	const op = "service.booking.ReleaseOrphans"

	released, err := s.holds.Release(ctx, showtimeID, bookingID, seatIDs)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	s.holds.CancelScheduledExpiry(bookingID)

	if len(released) > 0 {
		s.invalidate(ctx, showtimeID)
		s.publishSeats(showtimeID, released, domain.SeatAvailable)
		metrics.AddSeatsReleased("orphan", len(released))
	}

	return released, nil
}
