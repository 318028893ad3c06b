package hold

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/cinebook/internal/domain"
	"github.com/kirinyoku/cinebook/internal/metrics"
	"github.com/kirinyoku/cinebook/internal/repository"
)

type Config struct {
	// Warnings are the offsets before the deadline at which OnWarning fires.
	Warnings []time.Duration
}

// Manager grants, confirms and releases seat holds and owns the expiry
// timers of every booking on this instance.
type Manager struct {
	seats  repository.SeatRepository
	timers *registry
	log    *slog.Logger
	cfg    Config
	now    func() time.Time
}

func NewManager(seats repository.SeatRepository, log *slog.Logger, cfg Config) *Manager {
	if cfg.Warnings == nil {
		cfg.Warnings = []time.Duration{
			10 * time.Minute,
			5 * time.Minute,
			2 * time.Minute,
			time.Minute,
		}
	}

	return &Manager{
		seats:  seats,
		timers: newRegistry(),
		log:    log,
		cfg:    cfg,
		now:    time.Now,
	}
}

// With returns a manager that mutates seats through the given repository,
// typically one bound to a transaction. The timer registry is shared.
func (m *Manager) With(seats repository.SeatRepository) *Manager {
	cp := *m
	cp.seats = seats
	return &cp
}

// Reserve holds every seat for bookingID until deadline. Either all seats
// are held or none: seats flipped before a failure are released again.
//
// Returns:
//   - error: hold.ErrSeatUnavailable if any seat is not available.
//   - error: hold.ErrSeatNotFound if a seat does not exist for the showtime.
func (m *Manager) Reserve(
	ctx context.Context,
	showtimeID int64,
	bookingID uuid.UUID,
	seatIDs []int64,
	deadline time.Time,
) error {
	const op = "service.hold.Reserve"

	next := domain.Reserved{BookingID: bookingID, ExpiresAt: deadline}
	flipped := make([]int64, 0, len(seatIDs))

	for _, seatID := range seatIDs {
		err := m.seats.CompareAndSwap(ctx, showtimeID, seatID, repository.ExpectAvailable(), next)
		if err == nil {
			flipped = append(flipped, seatID)
			continue
		}

		m.rollback(ctx, showtimeID, bookingID, flipped)

		switch {
		case errors.Is(err, repository.ErrConflict):
			metrics.IncHoldConflict()
			return fmt.Errorf("%s:%w", op, ErrSeatUnavailable)
		case errors.Is(err, repository.ErrNotFound):
			return fmt.Errorf("%s:%w", op, ErrSeatNotFound)
		default:
			return fmt.Errorf("%s:%w", op, err)
		}
	}

	return nil
}

// Confirm turns the seats held by bookingID into booked seats. When any
// seat is not held by the booking the already booked ones are put back on
// hold and hold.ErrNotHeld is returned.
func (m *Manager) Confirm(ctx context.Context, showtimeID int64, bookingID uuid.UUID, seatIDs []int64) error {
	const op = "service.hold.Confirm"

	current, err := m.seats.GetMany(ctx, showtimeID, seatIDs)
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	prior := make(map[int64]domain.SeatState, len(current))
	for _, s := range current {
		prior[s.ID] = s.State
	}

	next := domain.Booked{BookingID: bookingID}
	expect := repository.ExpectOwned(bookingID, domain.SeatReserved)
	done := make([]int64, 0, len(seatIDs))

	for _, seatID := range seatIDs {
		err := m.seats.CompareAndSwap(ctx, showtimeID, seatID, expect, next)
		if err == nil {
			done = append(done, seatID)
			continue
		}

		for _, id := range done {
			back, ok := prior[id]
			if !ok {
				continue
			}
			if rerr := m.seats.CompareAndSwap(
				ctx, showtimeID, id,
				repository.ExpectOwned(bookingID, domain.SeatBooked),
				back,
			); rerr != nil {
				m.log.Error("revert confirmed seat",
					slog.String("booking_id", bookingID.String()),
					slog.Int64("seat_id", id),
					slog.Any("err", rerr),
				)
			}
		}

		if errors.Is(err, repository.ErrConflict) || errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%s:%w", op, ErrNotHeld)
		}
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

// Release returns the seats owned by bookingID to available. Seats that are
// already available or owned by another booking are skipped, so calling it
// again is a no-op. It returns the ids actually released.
func (m *Manager) Release(ctx context.Context, showtimeID int64, bookingID uuid.UUID, seatIDs []int64) ([]int64, error) {
	const op = "service.hold.Release"

	expect := repository.ExpectOwned(bookingID, domain.SeatReserved, domain.SeatBooked)
	released := make([]int64, 0, len(seatIDs))

	for _, seatID := range seatIDs {
		err := m.seats.CompareAndSwap(ctx, showtimeID, seatID, expect, domain.Available{})
		switch {
		case err == nil:
			released = append(released, seatID)
		case errors.Is(err, repository.ErrConflict), errors.Is(err, repository.ErrNotFound):
		default:
			return released, fmt.Errorf("%s:%w", op, err)
		}
	}

	return released, nil
}

func (m *Manager) rollback(ctx context.Context, showtimeID int64, bookingID uuid.UUID, seatIDs []int64) {
	if len(seatIDs) == 0 {
		return
	}

	if _, err := m.Release(ctx, showtimeID, bookingID, seatIDs); err != nil {
		m.log.Error("rollback partial hold",
			slog.String("booking_id", bookingID.String()),
			slog.Any("seat_ids", seatIDs),
			slog.Any("err", err),
		)
	}
}

// ScheduleExpiry arms the warning timers and the terminal timer of a
// booking, replacing any timers scheduled for it before. Warnings whose
// offset already passed are skipped. The terminal callback runs even when
// the deadline is in the past.
func (m *Manager) ScheduleExpiry(bookingID uuid.UUID, deadline time.Time, cb Callbacks) {
	remaining := deadline.Sub(m.now())

	e := &entry{}
	m.timers.put(bookingID, e)

	if cb.OnWarning != nil {
		for _, offset := range m.cfg.Warnings {
			if offset <= 0 || remaining <= offset {
				continue
			}
			left := offset
			e.add(time.AfterFunc(remaining-offset, func() {
				if m.timers.alive(bookingID, e) {
					cb.OnWarning(left)
				}
			}))
		}
	}

	if remaining < 0 {
		remaining = 0
	}
	e.add(time.AfterFunc(remaining, func() {
		if !m.timers.finish(bookingID, e) {
			return
		}
		if cb.OnExpire != nil {
			cb.OnExpire()
		}
	}))
}

// CancelScheduledExpiry stops every timer of the booking. It is safe to
// call when nothing is scheduled.
func (m *Manager) CancelScheduledExpiry(bookingID uuid.UUID) {
	m.timers.cancel(bookingID)
}

// Scheduled reports whether the booking has live timers.
func (m *Manager) Scheduled(bookingID uuid.UUID) bool {
	return m.timers.has(bookingID)
}

// Stop cancels all timers. Used on shutdown; the sweeper picks up the
// remaining holds after a restart.
func (m *Manager) Stop() {
	m.timers.cancelAll()
}
