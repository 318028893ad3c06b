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
	"github.com/kirinyoku/cinebook/internal/payment"
	"github.com/kirinyoku/cinebook/internal/realtime"
	"github.com/kirinyoku/cinebook/internal/repository"
	"github.com/kirinyoku/cinebook/internal/service/hold"
	"github.com/kirinyoku/cinebook/internal/uow"
)

// ProcessPayment charges a reserved booking and confirms it.
//
// Parameters:
//   - ctx: request-scoped context.
//   - userID: the requesting user; other users' bookings are not found.
//   - bookingID: booking to pay.
//   - details: opaque data forwarded to the payment processor.
//
// Returns:
//   - *domain.Booking: the confirmed booking.
//   - error: booking.ErrAlreadyPaid if the booking was paid before.
//   - error: booking.ErrBookingCancelled if the booking is cancelled.
//   - error: booking.ErrHoldExpired if the hold lapsed before confirmation.
//   - error: booking.ErrPaymentDeclined if the processor declined the charge.
func (s *Service) ProcessPayment(
	ctx context.Context,
	userID int64,
	bookingID uuid.UUID,
	details map[string]string,
) (*domain.Booking, error) {
	const op = "service.booking.ProcessPayment"

	b, err := s.store.Bookings().Get(ctx, bookingID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ErrBookingNotFound)
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if !b.OwnedBy(userID) {
		return nil, fmt.Errorf("%s:%w", op, ErrBookingNotFound)
	}

	if b.PaymentStatus == domain.PaymentCompleted {
		return nil, fmt.Errorf("%s:%w", op, ErrAlreadyPaid)
	}

	if b.Status == domain.BookingCancelled {
		return nil, fmt.Errorf("%s:%w", op, ErrBookingCancelled)
	}

	if !s.now().Before(b.ExpiresAt) {
		if err := s.ExpireBooking(ctx, b.ID); err != nil {
			s.log.Error("expire lapsed booking", slog.String("booking_id", b.ID.String()), slog.Any("err", err))
		}
		return nil, fmt.Errorf("%s:%w", op, ErrHoldExpired)
	}

	res, err := s.payments.Charge(ctx, payment.ChargeRequest{
		BookingID:   b.ID,
		AmountCents: b.TotalCents,
		Currency:    b.Currency,
		Method:      b.PaymentMethod,
		Details:     details,
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if !res.Success {
		if err := s.store.Bookings().SetPaymentStatus(ctx, b.ID, domain.PaymentFailed); err != nil {
			s.log.Error("mark payment failed", slog.String("booking_id", b.ID.String()), slog.Any("err", err))
		}
		b.PaymentStatus = domain.PaymentFailed
		s.notify(notify.EventPaymentFailed, b, map[string]any{"reason": res.Message})
		metrics.IncBooking("payment_failed")

		return nil, fmt.Errorf("%s:%w: %s", op, ErrPaymentDeclined, res.Message)
	}

	txID := res.TransactionID

	err = s.uow.Do(ctx, func(ctx context.Context, tx *uow.Tx) error {
		if err := s.holds.With(tx.Seats()).Confirm(ctx, b.ShowtimeID, b.ID, b.SeatIDs); err != nil {
			return err
		}

		if err := tx.Bookings().Transition(ctx, b.ID, domain.BookingReserved, repository.BookingUpdate{
			Status:        domain.BookingConfirmed,
			PaymentStatus: domain.PaymentCompleted,
			TransactionID: &txID,
		}); err != nil {
			return err
		}

		tx.AfterCommit(func(ctx context.Context) {
			s.invalidate(ctx, b.ShowtimeID)
		})

		return nil
	})
	if err != nil {
		if errors.Is(err, hold.ErrNotHeld) || errors.Is(err, repository.ErrConflict) {
			return nil, fmt.Errorf("%s:%w", op, s.settleLostRace(ctx, b, txID))
		}

		s.log.Error("confirm paid booking",
			slog.String("booking_id", b.ID.String()),
			slog.String("transaction_id", txID),
			slog.Any("err", err),
		)
		if rerr := s.store.Bookings().SetPaymentStatus(ctx, b.ID, domain.PaymentRefunded); rerr != nil {
			s.log.Error("mark payment refunded", slog.String("booking_id", b.ID.String()), slog.Any("err", rerr))
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	s.holds.CancelScheduledExpiry(b.ID)

	confirmed, err := s.store.Bookings().Get(ctx, b.ID)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	s.publishSeats(b.ShowtimeID, b.SeatIDs, domain.SeatBooked)
	s.publishBooking(realtime.EventBookingConfirmed, confirmed)
	s.notify(notify.EventBookingConfirmed, confirmed, nil)
	s.notify(notify.EventPaymentSuccess, confirmed, map[string]any{"transactionId": txID})
	metrics.IncBooking("confirmed")

	s.log.Info("booking confirmed",
		slog.String("booking_id", b.ID.String()),
		slog.String("transaction_id", txID),
	)

	return confirmed, nil
}

// settleLostRace handles a charge that succeeded after the booking lost its
// hold or was confirmed by a concurrent payment. The charge is marked
// refunded unless the booking is confirmed, and the returned error tells
// the caller which side won.
func (s *Service) settleLostRace(ctx context.Context, b *domain.Booking, txID string) error {
	current, err := s.store.Bookings().Get(ctx, b.ID)
	if err != nil {
		return err
	}

	log := s.log.With(
		slog.String("booking_id", b.ID.String()),
		slog.String("transaction_id", txID),
	)

	switch current.Status {
	case domain.BookingConfirmed:
		log.Warn("duplicate charge for confirmed booking must be refunded")
		return ErrAlreadyPaid

	case domain.BookingReserved:
		err := s.store.Bookings().Transition(ctx, b.ID, domain.BookingReserved, repository.BookingUpdate{
			Status:        domain.BookingCancelled,
			PaymentStatus: domain.PaymentRefunded,
		})
		if err != nil && !errors.Is(err, repository.ErrConflict) {
			return err
		}

	default:
		if err := s.store.Bookings().SetPaymentStatus(ctx, b.ID, domain.PaymentRefunded); err != nil {
			return err
		}
	}

	released, err := s.holds.Release(ctx, b.ShowtimeID, b.ID, b.SeatIDs)
	if err != nil {
		return err
	}
	s.holds.CancelScheduledExpiry(b.ID)
	s.invalidate(ctx, b.ShowtimeID)
	s.publishSeats(b.ShowtimeID, released, domain.SeatAvailable)
	metrics.AddSeatsReleased("payment_race", len(released))

	log.Warn("payment lost to expiry, charge refunded")
	return ErrHoldExpired
}
