package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kirinyoku/cinebook/internal/domain"
	"github.com/kirinyoku/cinebook/internal/repository"
	redisrepo "github.com/kirinyoku/cinebook/internal/repository/redis"
)

type Config struct {
	ShowtimeTTL time.Duration
	SeatMapTTL  time.Duration
}

type Service struct {
	store repository.Repos
	cache *redisrepo.Cache
	cfg   Config
	now   func() time.Time
}

// New builds the read side. A nil cache reads straight from the store.
func New(store repository.Repos, cache *redisrepo.Cache, cfg Config) *Service {
	if cfg.ShowtimeTTL <= 0 {
		cfg.ShowtimeTTL = 60 * time.Second
	}

	if cfg.SeatMapTTL <= 0 {
		cfg.SeatMapTTL = 15 * time.Second
	}

	return &Service{
		store: store,
		cache: cache,
		cfg:   cfg,
		now:   time.Now,
	}
}

// GetShowtime retrieves a showtime by its ID, utilizing a caching layer to improve performance.
//
// Parameters:
//   - ctx: request-scoped context.
//   - id: ID of the showtime to retrieve.
//
// Returns:
//   - *domain.Showtime: the retrieved showtime.
//   - error: query.ErrShowtimeNotFound if the showtime does not exist.
func (s *Service) GetShowtime(ctx context.Context, id int64) (*domain.Showtime, error) {
	const op = "service.query.GetShowtime"

	st, err := cached(ctx, s, redisrepo.KeyShowtime(id), s.cfg.ShowtimeTTL, func(ctx context.Context) (domain.Showtime, error) {
		st, err := s.store.Catalog().GetShowtime(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return domain.Showtime{}, ErrShowtimeNotFound
			}
			return domain.Showtime{}, err
		}
		return *st, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return &st, nil
}

// GetSeatMap returns the seats of a showtime grouped by row. The raw seat
// states are cached; display status is computed on every call so a lapsed
// hold shows as available even before it is swept.
//
// Returns:
//   - *domain.SeatMap: the seat map.
//   - error: query.ErrShowtimeNotFound if the showtime does not exist.
func (s *Service) GetSeatMap(ctx context.Context, showtimeID int64) (*domain.SeatMap, error) {
	const op = "service.query.GetSeatMap"

	if _, err := s.GetShowtime(ctx, showtimeID); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	seats, err := cached(ctx, s, redisrepo.KeySeatMap(showtimeID), s.cfg.SeatMapTTL, func(ctx context.Context) ([]domain.ShowtimeSeat, error) {
		return s.store.Seats().ListByShowtime(ctx, showtimeID)
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	m := domain.BuildSeatMap(showtimeID, seats, s.now())
	return &m, nil
}

// CanSubscribe reports whether viewers may follow the showtime's seat map.
func (s *Service) CanSubscribe(ctx context.Context, showtimeID int64) error {
	_, err := s.GetShowtime(ctx, showtimeID)
	return err
}

func cached[T any](
	ctx context.Context,
	s *Service,
	key string,
	ttl time.Duration,
	loader func(ctx context.Context) (T, error),
) (T, error) {
	if s.cache == nil {
		return loader(ctx)
	}
	return redisrepo.Load(ctx, s.cache, key, ttl, loader)
}
