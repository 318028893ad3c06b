package admin

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/kirinyoku/cinebook/internal/domain"
	"github.com/kirinyoku/cinebook/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type invalidations struct {
	ids []int64
}

func (i *invalidations) InvalidateShowtime(_ context.Context, id int64) error {
	i.ids = append(i.ids, id)
	return nil
}

func newTestService(t *testing.T) (*Service, *memory.Store, *invalidations) {
	t.Helper()
	store := memory.NewStore()
	inv := &invalidations{}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(store, inv, log, Config{ShowtimeBuffer: 20 * time.Minute}), store, inv
}

func seedScreen(t *testing.T, svc *Service) (movieID, screenID int64) {
	t.Helper()
	ctx := context.Background()

	movieID, err := svc.CreateMovie(ctx, "Alien", 117)
	require.NoError(t, err)
	screenID, err = svc.CreateScreen(ctx, "Hall 1")
	require.NoError(t, err)

	n, err := svc.AddSeats(ctx, screenID, []domain.Seat{
		{Row: "a", Number: 1},
		{Row: "A", Number: 2},
		{Row: "B", Number: 1, Class: domain.SeatClassVIP},
	})
	require.NoError(t, err)
	require.Equal(t, int64(3), n)

	return movieID, screenID
}

var prices = domain.PriceTable{
	domain.SeatClassStandard: 1000,
	domain.SeatClassVIP:      2000,
}

func TestCreateMovieAndScreen(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateMovie(ctx, " ", 100)
	require.ErrorIs(t, err, ErrInvalidMovie)

	_, err = svc.CreateMovie(ctx, "Alien", 0)
	require.ErrorIs(t, err, ErrInvalidMovie)

	_, err = svc.CreateScreen(ctx, "Hall 1")
	require.NoError(t, err)

	_, err = svc.CreateScreen(ctx, "Hall 1")
	require.ErrorIs(t, err, ErrScreenConflict)
	assert.Equal(t, domain.CodeConflict, domain.CodeOf(err))
}

func TestAddSeats(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	_, screenID := seedScreen(t, svc)

	tests := []struct {
		name  string
		seats []domain.Seat
		err   error
	}{
		{name: "empty", err: ErrInvalidSeat},
		{name: "digit row", seats: []domain.Seat{{Row: "1", Number: 1}}, err: ErrInvalidSeat},
		{name: "zero number", seats: []domain.Seat{{Row: "C", Number: 0}}, err: ErrInvalidSeat},
		{name: "unknown class", seats: []domain.Seat{{Row: "C", Number: 1, Class: "balcony"}}, err: ErrInvalidSeat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.AddSeats(ctx, screenID, tt.seats)
			require.ErrorIs(t, err, tt.err)
		})
	}

	t.Run("duplicates are skipped", func(t *testing.T) {
		n, err := svc.AddSeats(ctx, screenID, []domain.Seat{{Row: "A", Number: 1}, {Row: "C", Number: 1}})
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})

	t.Run("unknown screen", func(t *testing.T) {
		_, err := svc.AddSeats(ctx, 999, []domain.Seat{{Row: "A", Number: 1}})
		require.ErrorIs(t, err, ErrScreenNotFound)
	})
}

func TestCreateShowtime(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()
	movieID, screenID := seedScreen(t, svc)

	start := time.Now().Add(24 * time.Hour).Truncate(time.Minute)

	st, err := svc.CreateShowtime(ctx, movieID, screenID, start, prices)
	require.NoError(t, err)
	assert.Equal(t, start.Add(117*time.Minute+20*time.Minute), st.EndsAt)
	assert.True(t, st.Active)

	seats, err := store.Seats().ListByShowtime(ctx, st.ID)
	require.NoError(t, err)
	require.Len(t, seats, 3)
	for _, s := range seats {
		assert.Equal(t, domain.Available{}, s.State)
	}

	t.Run("overlap", func(t *testing.T) {
		_, err := svc.CreateShowtime(ctx, movieID, screenID, start.Add(time.Hour), prices)
		require.ErrorIs(t, err, ErrShowtimeOverlap)
		assert.Equal(t, domain.CodeConflict, domain.CodeOf(err))
	})

	t.Run("back to back", func(t *testing.T) {
		_, err := svc.CreateShowtime(ctx, movieID, screenID, st.EndsAt, prices)
		require.NoError(t, err)
	})

	t.Run("past start", func(t *testing.T) {
		_, err := svc.CreateShowtime(ctx, movieID, screenID, time.Now().Add(-time.Hour), prices)
		require.ErrorIs(t, err, ErrInvalidStart)
	})

	t.Run("bad prices", func(t *testing.T) {
		_, err := svc.CreateShowtime(ctx, movieID, screenID, start.Add(48*time.Hour), domain.PriceTable{domain.SeatClassVIP: -1})
		require.ErrorIs(t, err, ErrInvalidPrices)
	})

	t.Run("unknown movie", func(t *testing.T) {
		_, err := svc.CreateShowtime(ctx, 999, screenID, start.Add(48*time.Hour), prices)
		require.ErrorIs(t, err, ErrMovieNotFound)
	})

	t.Run("screen without seats", func(t *testing.T) {
		empty, err := svc.CreateScreen(ctx, "Empty")
		require.NoError(t, err)

		when := start.Add(72 * time.Hour)
		_, err = svc.CreateShowtime(ctx, movieID, empty, when, prices)
		require.ErrorIs(t, err, ErrNoSeats)

		_, err = svc.AddSeats(ctx, empty, []domain.Seat{{Row: "A", Number: 1}})
		require.NoError(t, err)
		_, err = svc.CreateShowtime(ctx, movieID, empty, when, prices)
		require.NoError(t, err, "failed attempt must not block the screen")
	})
}

func TestUpdatePricesAndDeactivate(t *testing.T) {
	svc, store, inv := newTestService(t)
	ctx := context.Background()
	movieID, screenID := seedScreen(t, svc)

	start := time.Now().Add(24 * time.Hour)
	st, err := svc.CreateShowtime(ctx, movieID, screenID, start, prices)
	require.NoError(t, err)

	require.NoError(t, svc.UpdatePrices(ctx, st.ID, domain.PriceTable{domain.SeatClassStandard: 1500}))
	got, err := store.Catalog().GetShowtime(ctx, st.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1500), got.Prices[domain.SeatClassStandard])

	require.ErrorIs(t, svc.UpdatePrices(ctx, 999, prices), ErrShowtimeNotFound)

	require.NoError(t, svc.DeactivateShowtime(ctx, st.ID))
	got, err = store.Catalog().GetShowtime(ctx, st.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)

	_, err = svc.CreateShowtime(ctx, movieID, screenID, start, prices)
	require.NoError(t, err, "deactivated showtime frees the screen")

	assert.Equal(t, []int64{st.ID, st.ID}, inv.ids)
}
