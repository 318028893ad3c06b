package query

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/kirinyoku/cinebook/internal/domain"
	"github.com/kirinyoku/cinebook/internal/repository"
	"github.com/kirinyoku/cinebook/internal/repository/memory"
	redisrepo "github.com/kirinyoku/cinebook/internal/repository/redis"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed(t *testing.T, store *memory.Store) (int64, []int64) {
	t.Helper()
	ctx := context.Background()
	cat := store.Catalog()

	movieID, err := cat.CreateMovie(ctx, "Arrival", 116)
	require.NoError(t, err)
	screenID, err := cat.CreateScreen(ctx, "Main")
	require.NoError(t, err)
	_, err = cat.BatchCreateSeats(ctx, screenID, []domain.Seat{
		{Row: "B", Number: 2, Class: domain.SeatClassVIP},
		{Row: "A", Number: 2, Class: domain.SeatClassStandard},
		{Row: "A", Number: 1, Class: domain.SeatClassStandard},
	})
	require.NoError(t, err)

	start := time.Now().Add(24 * time.Hour)
	showtimeID, err := cat.CreateShowtime(ctx, &domain.Showtime{
		MovieID:  movieID,
		ScreenID: screenID,
		StartsAt: start,
		EndsAt:   start.Add(2 * time.Hour),
		Prices:   domain.PriceTable{domain.SeatClassStandard: 900, domain.SeatClassVIP: 1800},
	})
	require.NoError(t, err)
	_, err = store.Seats().BulkInitialize(ctx, showtimeID, screenID)
	require.NoError(t, err)

	seats, err := store.Seats().ListByShowtime(ctx, showtimeID)
	require.NoError(t, err)
	ids := make([]int64, 0, len(seats))
	for _, s := range seats {
		ids = append(ids, s.ID)
	}
	return showtimeID, ids
}

func TestGetSeatMap(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	showtimeID, ids := seed(t, store)

	bookingID := uuid.New()
	require.NoError(t, store.Seats().CompareAndSwap(ctx, showtimeID, ids[0], repository.ExpectAvailable(),
		domain.Reserved{BookingID: bookingID, ExpiresAt: time.Now().Add(time.Minute)}))
	require.NoError(t, store.Seats().CompareAndSwap(ctx, showtimeID, ids[1], repository.ExpectAvailable(),
		domain.Reserved{BookingID: bookingID, ExpiresAt: time.Now().Add(-time.Minute)}))

	svc := New(store, nil, Config{})

	m, err := svc.GetSeatMap(ctx, showtimeID)
	require.NoError(t, err)

	require.Len(t, m.Rows, 2)
	assert.Equal(t, "A", m.Rows[0].Row)
	assert.Equal(t, []int{1, 2}, []int{m.Rows[0].Seats[0].Number, m.Rows[0].Seats[1].Number})
	assert.Equal(t, domain.SeatReserved, m.Rows[0].Seats[0].Status)
	assert.Equal(t, domain.SeatAvailable, m.Rows[0].Seats[1].Status, "lapsed hold shows as available")
	assert.Equal(t, "B", m.Rows[1].Row)
	assert.Equal(t, 3, m.Total)
	assert.Equal(t, 2, m.Available)

	_, err = svc.GetSeatMap(ctx, 999)
	require.ErrorIs(t, err, ErrShowtimeNotFound)
	assert.Equal(t, domain.CodeNotFound, domain.CodeOf(err))
}

func TestGetSeatMap_Cached(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	store := memory.NewStore()
	ctx := context.Background()
	showtimeID, ids := seed(t, store)

	cache := redisrepo.NewCache(rdb)
	svc := New(store, cache, Config{SeatMapTTL: time.Minute})

	first, err := svc.GetSeatMap(ctx, showtimeID)
	require.NoError(t, err)
	assert.Equal(t, 3, first.Available)
	assert.True(t, mr.Exists(redisrepo.KeySeatMap(showtimeID)))
	assert.True(t, mr.Exists(redisrepo.KeyShowtime(showtimeID)))

	require.NoError(t, store.Seats().CompareAndSwap(ctx, showtimeID, ids[0], repository.ExpectAvailable(),
		domain.Booked{BookingID: uuid.New()}))

	stale, err := svc.GetSeatMap(ctx, showtimeID)
	require.NoError(t, err)
	assert.Equal(t, 3, stale.Available)

	require.NoError(t, cache.InvalidateShowtime(ctx, showtimeID))

	fresh, err := svc.GetSeatMap(ctx, showtimeID)
	require.NoError(t, err)
	assert.Equal(t, 2, fresh.Available)
}

func TestCanSubscribe(t *testing.T) {
	store := memory.NewStore()
	showtimeID, _ := seed(t, store)
	svc := New(store, nil, Config{})

	require.NoError(t, svc.CanSubscribe(context.Background(), showtimeID))
	require.ErrorIs(t, svc.CanSubscribe(context.Background(), 999), ErrShowtimeNotFound)
}
