package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/cinebook/internal/domain"
	"github.com/kirinyoku/cinebook/internal/metrics"
	"github.com/kirinyoku/cinebook/internal/repository"
	"github.com/kirinyoku/cinebook/internal/service/booking"
)

type SweeperConfig struct {
	Interval  time.Duration
	BatchSize int
}

// Expirer is the part of the booking service the sweeper drives.
type Expirer interface {
	ExpireBooking(ctx context.Context, bookingID uuid.UUID) error
	ReleaseOrphans(ctx context.Context, showtimeID int64, bookingID uuid.UUID, seatIDs []int64) ([]int64, error)
}

// Sweeper releases holds whose deadline passed without their timer firing,
// for example after a restart. It is safe to run next to the timers.
type Sweeper struct {
	seats   repository.SeatRepository
	expirer Expirer
	log     *slog.Logger
	cfg     SweeperConfig
	now     func() time.Time
}

func NewSweeper(seats repository.SeatRepository, expirer Expirer, log *slog.Logger, cfg SweeperConfig) *Sweeper {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 500
	}

	return &Sweeper{
		seats:   seats,
		expirer: expirer,
		log:     log.With(slog.String("component", "sweeper")),
		cfg:     cfg,
		now:     time.Now,
	}
}

// Run sweeps once immediately and then on every interval until ctx is done.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	s.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Sweeper) tick(ctx context.Context) {
	n, err := s.Sweep(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		metrics.IncSweeperRun("error")
		s.log.Error("sweep failed", slog.Any("err", err))
		return
	}

	metrics.IncSweeperRun("ok")
	if n > 0 {
		s.log.Info("expired holds swept", slog.Int("bookings", n))
	}
}

type holdGroup struct {
	showtimeID int64
	seatIDs    []int64
}

// Sweep processes one batch of lapsed holds and returns how many bookings
// were handled. A failure on one booking does not stop the others.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	const op = "worker.Sweeper.Sweep"

	seats, err := s.seats.ListExpiredHolds(ctx, s.now(), s.cfg.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("%s:%w", op, err)
	}

	groups := make(map[uuid.UUID]*holdGroup)
	order := make([]uuid.UUID, 0)
	for _, seat := range seats {
		owner, ok := domain.OwnerOf(seat.State)
		if !ok {
			continue
		}
		g, seen := groups[owner]
		if !seen {
			g = &holdGroup{showtimeID: seat.ShowtimeID}
			groups[owner] = g
			order = append(order, owner)
		}
		g.seatIDs = append(g.seatIDs, seat.ID)
	}

	handled := 0
	for _, id := range order {
		if ctx.Err() != nil {
			return handled, ctx.Err()
		}

		g := groups[id]
		slices.Sort(g.seatIDs)
		err := s.expirer.ExpireBooking(ctx, id)
		if errors.Is(err, booking.ErrBookingNotFound) {
			_, err = s.expirer.ReleaseOrphans(ctx, g.showtimeID, id, g.seatIDs)
		}
		if err != nil {
			s.log.Error("expire lapsed hold",
				slog.String("booking_id", id.String()),
				slog.Any("err", err),
			)
			continue
		}
		handled++
	}

	return handled, nil
}
