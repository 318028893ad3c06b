package booking

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/cinebook/internal/domain"
	"github.com/kirinyoku/cinebook/internal/notify"
	"github.com/kirinyoku/cinebook/internal/payment"
	"github.com/kirinyoku/cinebook/internal/realtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Two users race for the same seat; the winner pays and the seat ends up booked.
func TestHoldPayConfirm(t *testing.T) {
	f := newFixture(t, fixtureOpts{})
	ctx := context.Background()

	alice, err := f.svc.CreateBooking(ctx, 1, f.showtimeID, f.standard[:2], "card")
	require.NoError(t, err)

	_, err = f.svc.CreateBooking(ctx, 2, f.showtimeID, f.standard[1:3], "card")
	require.ErrorIs(t, err, domain.ErrSeatUnavailable)
	assert.Equal(t, domain.Available{}, f.state(t, f.standard[2]))

	f.bcast.reset()

	paid, err := f.svc.ProcessPayment(ctx, 1, alice.ID, map[string]string{"token": "tok_visa"})
	require.NoError(t, err)

	assert.Equal(t, domain.BookingConfirmed, paid.Status)
	assert.Equal(t, domain.PaymentCompleted, paid.PaymentStatus)
	require.NotNil(t, paid.TransactionID)
	assert.Contains(t, *paid.TransactionID, "sim_txn_")

	for _, id := range f.standard[:2] {
		assert.Equal(t, domain.Booked{BookingID: alice.ID}, f.state(t, id))
	}
	assert.False(t, f.holds.Scheduled(alice.ID))
	assert.Equal(t, []string{"seats_updated", "booking_confirmed"}, f.bcast.names())

	f.notifier.Wait()
	assert.ElementsMatch(t, []string{
		notify.EventBookingCreated,
		notify.EventBookingConfirmed,
		notify.EventPaymentSuccess,
	}, f.dispatched.names())
}

// A hold nobody pays for lapses and the seats become bookable again.
func TestHoldLapses(t *testing.T) {
	f := newFixture(t, fixtureOpts{
		holdTTL:  150 * time.Millisecond,
		warnings: []time.Duration{100 * time.Millisecond},
	})
	ctx := context.Background()

	b, err := f.svc.CreateBooking(ctx, 1, f.showtimeID, f.standard[:2], "card")
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		_, ok := f.bcast.find("booking_expired")
		return ok
	}, 2*time.Second, 10*time.Millisecond)

	warn, ok := f.bcast.find("booking_expiring")
	require.True(t, ok)
	assert.Equal(t, int64(1), warn.userID)
	require.IsType(t, realtime.BookingExpiring{}, warn.payload)
	assert.Equal(t, 1, warn.payload.(realtime.BookingExpiring).MinutesLeft)

	got := f.booking(t, b.ID)
	assert.Equal(t, domain.BookingCancelled, got.Status)
	assert.Equal(t, domain.PaymentPending, got.PaymentStatus)
	for _, id := range f.standard[:2] {
		assert.Equal(t, domain.Available{}, f.state(t, id))
	}

	var freed realtime.SeatsUpdated
	require.Eventually(t, func() bool {
		var ok bool
		freed, ok = f.bcast.seatsUpdated(realtime.Topic(f.showtimeID), domain.SeatAvailable)
		return ok
	}, time.Second, 5*time.Millisecond, "viewers of the showtime see the seats return")
	assert.Equal(t, f.showtimeID, freed.ShowtimeID)
	assert.ElementsMatch(t, f.standard[:2], freed.SeatIDs)

	_, err = f.svc.CreateBooking(ctx, 2, f.showtimeID, f.standard[:2], "card")
	require.NoError(t, err)

	_, err = f.svc.ProcessPayment(ctx, 1, b.ID, nil)
	require.ErrorIs(t, err, ErrBookingCancelled)
}

func TestProcessPayment(t *testing.T) {
	ctx := context.Background()

	t.Run("declined then retried", func(t *testing.T) {
		f := newFixture(t, fixtureOpts{})
		b, err := f.svc.CreateBooking(ctx, 1, f.showtimeID, f.standard[:1], "card")
		require.NoError(t, err)

		_, err = f.svc.ProcessPayment(ctx, 1, b.ID, map[string]string{"token": payment.DeclineToken})
		require.ErrorIs(t, err, ErrPaymentDeclined)
		assert.Equal(t, domain.CodePaymentFailed, domain.CodeOf(err))

		got := f.booking(t, b.ID)
		assert.Equal(t, domain.BookingReserved, got.Status)
		assert.Equal(t, domain.PaymentFailed, got.PaymentStatus)
		assert.IsType(t, domain.Reserved{}, f.state(t, f.standard[0]))

		paid, err := f.svc.ProcessPayment(ctx, 1, b.ID, nil)
		require.NoError(t, err)
		assert.Equal(t, domain.PaymentCompleted, paid.PaymentStatus)
	})

	t.Run("already paid", func(t *testing.T) {
		f := newFixture(t, fixtureOpts{})
		b, err := f.svc.CreateBooking(ctx, 1, f.showtimeID, f.standard[:1], "card")
		require.NoError(t, err)
		_, err = f.svc.ProcessPayment(ctx, 1, b.ID, nil)
		require.NoError(t, err)

		_, err = f.svc.ProcessPayment(ctx, 1, b.ID, nil)
		require.ErrorIs(t, err, ErrAlreadyPaid)
		assert.Equal(t, domain.CodeAlreadyProcessed, domain.CodeOf(err))
	})

	t.Run("other user", func(t *testing.T) {
		f := newFixture(t, fixtureOpts{})
		b, err := f.svc.CreateBooking(ctx, 1, f.showtimeID, f.standard[:1], "card")
		require.NoError(t, err)

		_, err = f.svc.ProcessPayment(ctx, 2, b.ID, nil)
		require.ErrorIs(t, err, ErrBookingNotFound)
		assert.Equal(t, domain.BookingReserved, f.booking(t, b.ID).Status)
	})

	t.Run("unknown booking", func(t *testing.T) {
		f := newFixture(t, fixtureOpts{})
		_, err := f.svc.ProcessPayment(ctx, 1, uuid.New(), nil)
		require.ErrorIs(t, err, ErrBookingNotFound)
	})

	t.Run("hold lapsed before payment", func(t *testing.T) {
		f := newFixture(t, fixtureOpts{})
		b, err := f.svc.CreateBooking(ctx, 1, f.showtimeID, f.standard[:1], "card")
		require.NoError(t, err)

		f.clock.Set(b.ExpiresAt.Add(time.Second))

		_, err = f.svc.ProcessPayment(ctx, 1, b.ID, nil)
		require.ErrorIs(t, err, ErrHoldExpired)
		assert.Equal(t, domain.CodeConflict, domain.CodeOf(err))
		assert.Equal(t, domain.BookingCancelled, f.booking(t, b.ID).Status)
		assert.Equal(t, domain.Available{}, f.state(t, f.standard[0]))
	})

	t.Run("hold lapses while charging", func(t *testing.T) {
		var f *fixture
		var b *domain.Booking

		proc := chargeHook{
			Processor: payment.NewSimulated(payment.SimulatedConfig{}),
			before: func() {
				f.clock.Set(b.ExpiresAt.Add(time.Second))
				require.NoError(t, f.svc.ExpireBooking(ctx, b.ID))
			},
		}
		f = newFixture(t, fixtureOpts{processor: proc})

		var err error
		b, err = f.svc.CreateBooking(ctx, 1, f.showtimeID, f.standard[:1], "card")
		require.NoError(t, err)

		_, err = f.svc.ProcessPayment(ctx, 1, b.ID, nil)
		require.ErrorIs(t, err, ErrHoldExpired)

		got := f.booking(t, b.ID)
		assert.Equal(t, domain.BookingCancelled, got.Status)
		assert.Equal(t, domain.PaymentRefunded, got.PaymentStatus)
		assert.Equal(t, domain.Available{}, f.state(t, f.standard[0]))
	})
}

func TestCancelBooking(t *testing.T) {
	ctx := context.Background()

	t.Run("reserved", func(t *testing.T) {
		f := newFixture(t, fixtureOpts{})
		b, err := f.svc.CreateBooking(ctx, 1, f.showtimeID, f.standard[:2], "card")
		require.NoError(t, err)

		got, err := f.svc.CancelBooking(ctx, b.ID, 1)
		require.NoError(t, err)
		assert.Equal(t, domain.BookingCancelled, got.Status)
		assert.Equal(t, domain.PaymentPending, got.PaymentStatus)
		assert.False(t, f.holds.Scheduled(b.ID))
		for _, id := range f.standard[:2] {
			assert.Equal(t, domain.Available{}, f.state(t, id))
		}

		_, ok := f.bcast.find("booking_cancelled")
		assert.True(t, ok)

		freed, ok := f.bcast.seatsUpdated(realtime.Topic(f.showtimeID), domain.SeatAvailable)
		require.True(t, ok)
		assert.Equal(t, f.showtimeID, freed.ShowtimeID)
		assert.ElementsMatch(t, f.standard[:2], freed.SeatIDs)
	})

	t.Run("confirmed is refunded", func(t *testing.T) {
		f := newFixture(t, fixtureOpts{})
		b, err := f.svc.CreateBooking(ctx, 1, f.showtimeID, f.standard[:1], "card")
		require.NoError(t, err)
		_, err = f.svc.ProcessPayment(ctx, 1, b.ID, nil)
		require.NoError(t, err)

		got, err := f.svc.CancelBooking(ctx, b.ID, 1)
		require.NoError(t, err)
		assert.Equal(t, domain.PaymentRefunded, got.PaymentStatus)
		assert.Equal(t, domain.Available{}, f.state(t, f.standard[0]))
	})

	t.Run("not owner", func(t *testing.T) {
		f := newFixture(t, fixtureOpts{})
		b, err := f.svc.CreateBooking(ctx, 1, f.showtimeID, f.standard[:1], "card")
		require.NoError(t, err)

		_, err = f.svc.CancelBooking(ctx, b.ID, 2)
		require.ErrorIs(t, err, ErrNotOwner)
		assert.Equal(t, domain.CodeUnauthorized, domain.CodeOf(err))
	})

	t.Run("twice", func(t *testing.T) {
		f := newFixture(t, fixtureOpts{})
		b, err := f.svc.CreateBooking(ctx, 1, f.showtimeID, f.standard[:1], "card")
		require.NoError(t, err)
		_, err = f.svc.CancelBooking(ctx, b.ID, 1)
		require.NoError(t, err)

		_, err = f.svc.CancelBooking(ctx, b.ID, 1)
		require.ErrorIs(t, err, ErrAlreadyCancelled)
		assert.Equal(t, domain.CodeAlreadyProcessed, domain.CodeOf(err))
	})

	t.Run("inside cutoff", func(t *testing.T) {
		f := newFixture(t, fixtureOpts{startsIn: 2 * time.Hour})
		b, err := f.svc.CreateBooking(ctx, 1, f.showtimeID, f.standard[:1], "card")
		require.NoError(t, err)

		_, err = f.svc.CancelBooking(ctx, b.ID, 1)
		require.ErrorIs(t, err, ErrTooLate)
		assert.Equal(t, domain.CodeTooLate, domain.CodeOf(err))
		assert.Equal(t, domain.BookingReserved, f.booking(t, b.ID).Status)
	})
}

func TestExpireBooking(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown", func(t *testing.T) {
		f := newFixture(t, fixtureOpts{})
		require.ErrorIs(t, f.svc.ExpireBooking(ctx, uuid.New()), ErrBookingNotFound)
	})

	t.Run("confirmed is untouched", func(t *testing.T) {
		f := newFixture(t, fixtureOpts{})
		b, err := f.svc.CreateBooking(ctx, 1, f.showtimeID, f.standard[:1], "card")
		require.NoError(t, err)
		_, err = f.svc.ProcessPayment(ctx, 1, b.ID, nil)
		require.NoError(t, err)

		f.clock.Set(b.ExpiresAt.Add(time.Hour))
		require.NoError(t, f.svc.ExpireBooking(ctx, b.ID))

		assert.Equal(t, domain.BookingConfirmed, f.booking(t, b.ID).Status)
		assert.Equal(t, domain.Booked{BookingID: b.ID}, f.state(t, f.standard[0]))
	})

	t.Run("before deadline reschedules", func(t *testing.T) {
		f := newFixture(t, fixtureOpts{})
		b, err := f.svc.CreateBooking(ctx, 1, f.showtimeID, f.standard[:1], "card")
		require.NoError(t, err)
		f.holds.CancelScheduledExpiry(b.ID)

		require.NoError(t, f.svc.ExpireBooking(ctx, b.ID))
		assert.Equal(t, domain.BookingReserved, f.booking(t, b.ID).Status)
		assert.True(t, f.holds.Scheduled(b.ID))
	})

	t.Run("repeated", func(t *testing.T) {
		f := newFixture(t, fixtureOpts{})
		b, err := f.svc.CreateBooking(ctx, 1, f.showtimeID, f.standard[:1], "card")
		require.NoError(t, err)

		f.clock.Set(b.ExpiresAt)
		f.bcast.reset()

		require.NoError(t, f.svc.ExpireBooking(ctx, b.ID))
		require.NoError(t, f.svc.ExpireBooking(ctx, b.ID))

		expired := 0
		for _, name := range f.bcast.names() {
			if name == "booking_expired" {
				expired++
			}
		}
		assert.Equal(t, 1, expired)
		assert.Equal(t, domain.Available{}, f.state(t, f.standard[0]))
	})
}

func TestReleaseOrphans(t *testing.T) {
	f := newFixture(t, fixtureOpts{})
	ctx := context.Background()

	ghost := uuid.New()
	require.NoError(t, f.holds.Reserve(ctx, f.showtimeID, ghost, f.standard[:2], time.Now().Add(-time.Minute)))

	released, err := f.svc.ReleaseOrphans(ctx, f.showtimeID, ghost, f.standard[:2])
	require.NoError(t, err)
	assert.ElementsMatch(t, f.standard[:2], released)
	assert.Equal(t, domain.Available{}, f.state(t, f.standard[0]))
}
