package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/kirinyoku/cinebook/internal/domain"
	"github.com/kirinyoku/cinebook/internal/repository"
	"github.com/kirinyoku/cinebook/internal/uow"
)

type Config struct {
	// ShowtimeBuffer is added after the movie runtime for cleaning and ads.
	ShowtimeBuffer time.Duration
}

// Invalidator drops cached views of a showtime.
type Invalidator interface {
	InvalidateShowtime(ctx context.Context, showtimeID int64) error
}

type Service struct {
	store repository.TxRunner
	cache Invalidator
	uow   *uow.UoW
	log   *slog.Logger
	cfg   Config
	now   func() time.Time
}

// New builds the catalog administration service. cache may be nil.
func New(store repository.TxRunner, cache Invalidator, log *slog.Logger, cfg Config) *Service {
	if cfg.ShowtimeBuffer < 0 {
		cfg.ShowtimeBuffer = 0
	}

	return &Service{
		store: store,
		cache: cache,
		uow:   uow.NewUoW(store),
		log:   log,
		cfg:   cfg,
		now:   time.Now,
	}
}

func (s *Service) CreateMovie(ctx context.Context, title string, durationMinutes int) (int64, error) {
	const op = "service.admin.CreateMovie"

	title = strings.TrimSpace(title)
	if title == "" || durationMinutes <= 0 {
		return 0, fmt.Errorf("%s:%w", op, ErrInvalidMovie)
	}

	id, err := s.store.Catalog().CreateMovie(ctx, title, durationMinutes)
	if err != nil {
		return 0, fmt.Errorf("%s:%w", op, err)
	}

	return id, nil
}

// CreateScreen creates a screen and returns its ID.
//
// Returns:
//   - error: admin.ErrScreenConflict if a screen with the same name exists.
func (s *Service) CreateScreen(ctx context.Context, name string) (int64, error) {
	const op = "service.admin.CreateScreen"

	name = strings.TrimSpace(name)
	if name == "" {
		return 0, fmt.Errorf("%s:%w", op, ErrInvalidScreen)
	}

	id, err := s.store.Catalog().CreateScreen(ctx, name)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return 0, fmt.Errorf("%s:%w", op, ErrScreenConflict)
		}
		return 0, fmt.Errorf("%s:%w", op, err)
	}

	return id, nil
}

// AddSeats inserts seats into a screen. Seats whose row and number already
// exist on the screen are skipped.
//
// Returns:
//   - int64: number of seats created.
//   - error: admin.ErrScreenNotFound if the screen does not exist.
func (s *Service) AddSeats(ctx context.Context, screenID int64, seats []domain.Seat) (int64, error) {
	const op = "service.admin.AddSeats"

	if len(seats) == 0 {
		return 0, fmt.Errorf("%s:%w", op, ErrInvalidSeat)
	}

	normalized := make([]domain.Seat, 0, len(seats))
	for _, seat := range seats {
		seat.Row = strings.ToUpper(strings.TrimSpace(seat.Row))
		if seat.Class == "" {
			seat.Class = domain.SeatClassStandard
		}
		if !validRow(seat.Row) || seat.Number <= 0 || !seat.Class.Valid() {
			return 0, fmt.Errorf("%s:%w", op, ErrInvalidSeat)
		}
		normalized = append(normalized, seat)
	}

	var created int64

	err := s.uow.Do(ctx, func(ctx context.Context, tx *uow.Tx) error {
		if _, err := tx.Catalog().GetScreen(ctx, screenID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrScreenNotFound
			}
			return err
		}

		n, err := tx.Catalog().BatchCreateSeats(ctx, screenID, normalized)
		if err != nil {
			return err
		}
		created = n
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%s:%w", op, err)
	}

	return created, nil
}

// CreateShowtime schedules a movie on a screen and initializes the
// per-showtime copy of every active seat of the screen in the same unit of
// work. The end time is the start plus the movie runtime and the buffer.
//
// Returns:
//   - *domain.Showtime: the created showtime.
//   - error: admin.ErrShowtimeOverlap if the screen is taken in that window.
//   - error: admin.ErrMovieNotFound / admin.ErrScreenNotFound for unknown ids.
//   - error: admin.ErrNoSeats if the screen has no active seats.
func (s *Service) CreateShowtime(
	ctx context.Context,
	movieID, screenID int64,
	startsAt time.Time,
	prices domain.PriceTable,
) (*domain.Showtime, error) {
	const op = "service.admin.CreateShowtime"

	if !startsAt.After(s.now()) {
		return nil, fmt.Errorf("%s:%w", op, ErrInvalidStart)
	}
	if err := validatePrices(prices); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	var (
		created  *domain.Showtime
		insertID int64
	)

	err := s.uow.Do(ctx, func(ctx context.Context, tx *uow.Tx) error {
		movie, err := tx.Catalog().GetMovie(ctx, movieID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrMovieNotFound
			}
			return err
		}

		if _, err := tx.Catalog().GetScreen(ctx, screenID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrScreenNotFound
			}
			return err
		}

		st := &domain.Showtime{
			MovieID:  movieID,
			ScreenID: screenID,
			StartsAt: startsAt,
			EndsAt:   startsAt.Add(time.Duration(movie.DurationMinutes)*time.Minute + s.cfg.ShowtimeBuffer),
			Prices:   prices,
			Active:   true,
		}

		id, err := tx.Catalog().CreateShowtime(ctx, st)
		if err != nil {
			switch {
			case errors.Is(err, repository.ErrOverlap):
				return ErrShowtimeOverlap
			case errors.Is(err, repository.ErrNotFound):
				return ErrScreenNotFound
			}
			return err
		}
		st.ID = id
		insertID = id

		n, err := tx.Seats().BulkInitialize(ctx, id, screenID)
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNoSeats
		}

		created = st
		tx.AfterCommit(func(ctx context.Context) {
			s.log.Info("showtime created",
				slog.Int64("showtime_id", id),
				slog.Int64("screen_id", screenID),
				slog.Int64("seats", n),
			)
		})
		return nil
	})
	if err != nil {
		// Stores without rollback keep the showtime row and would block the screen.
		if insertID != 0 {
			if derr := s.store.Catalog().DeactivateShowtime(ctx, insertID); derr != nil && !errors.Is(derr, repository.ErrNotFound) {
				s.log.Error("deactivate failed showtime", slog.Int64("showtime_id", insertID), slog.Any("err", derr))
			}
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return created, nil
}

// UpdatePrices replaces the price table of a showtime. Existing bookings
// keep the total computed when they were made.
func (s *Service) UpdatePrices(ctx context.Context, showtimeID int64, prices domain.PriceTable) error {
	const op = "service.admin.UpdatePrices"

	if err := validatePrices(prices); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	if err := s.store.Catalog().UpdatePrices(ctx, showtimeID, prices); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%s:%w", op, ErrShowtimeNotFound)
		}
		return fmt.Errorf("%s:%w", op, err)
	}

	s.invalidate(ctx, showtimeID)
	return nil
}

// DeactivateShowtime closes a showtime for new bookings and frees its
// screen window for other showtimes.
func (s *Service) DeactivateShowtime(ctx context.Context, showtimeID int64) error {
	const op = "service.admin.DeactivateShowtime"

	if err := s.store.Catalog().DeactivateShowtime(ctx, showtimeID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%s:%w", op, ErrShowtimeNotFound)
		}
		return fmt.Errorf("%s:%w", op, err)
	}

	s.invalidate(ctx, showtimeID)
	s.log.Info("showtime deactivated", slog.Int64("showtime_id", showtimeID))
	return nil
}

func (s *Service) invalidate(ctx context.Context, showtimeID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateShowtime(ctx, showtimeID); err != nil {
		s.log.Warn("invalidate showtime cache",
			slog.Int64("showtime_id", showtimeID),
			slog.Any("err", err),
		)
	}
}

func validRow(row string) bool {
	if row == "" || len(row) > 2 {
		return false
	}
	for _, r := range row {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

func validatePrices(prices domain.PriceTable) error {
	if len(prices) == 0 {
		return ErrInvalidPrices
	}
	for class, cents := range prices {
		if !class.Valid() || cents < 0 {
			return ErrInvalidPrices
		}
	}
	return nil
}
