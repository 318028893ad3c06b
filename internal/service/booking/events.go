package booking

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/kirinyoku/cinebook/internal/domain"
	"github.com/kirinyoku/cinebook/internal/notify"
	"github.com/kirinyoku/cinebook/internal/realtime"
	"github.com/kirinyoku/cinebook/internal/service/hold"
)

const expireTimeout = 10 * time.Second

func (s *Service) scheduleExpiry(b *domain.Booking) {
	id, userID := b.ID, b.UserID

	s.holds.ScheduleExpiry(id, b.ExpiresAt, hold.Callbacks{
		OnWarning: func(left time.Duration) {
			s.bcast.SendToUser(userID, realtime.EventBookingExpiring, realtime.BookingExpiring{
				BookingID:   id,
				MinutesLeft: int(math.Ceil(left.Minutes())),
			})
		},
		OnExpire: func() {
			ctx, cancel := context.WithTimeout(context.Background(), expireTimeout)
			defer cancel()

			if err := s.ExpireBooking(ctx, id); err != nil {
				s.log.Error("expire booking on deadline",
					slog.String("booking_id", id.String()),
					slog.Any("err", err),
				)
			}
		},
	})
}

func (s *Service) publishSeats(showtimeID int64, seatIDs []int64, status domain.SeatStatus) {
	if len(seatIDs) == 0 {
		return
	}
	s.bcast.SendToTopic(realtime.Topic(showtimeID), realtime.EventSeatsUpdated, realtime.SeatsUpdated{
		ShowtimeID: showtimeID,
		SeatIDs:    seatIDs,
		Status:     status,
	})
}

func (s *Service) publishBooking(event string, b *domain.Booking) {
	s.bcast.SendToTopic(realtime.Topic(b.ShowtimeID), event, realtime.BookingNotice{
		BookingID:  b.ID,
		ShowtimeID: b.ShowtimeID,
		SeatIDs:    b.SeatIDs,
		Status:     b.Status,
	})
}

func (s *Service) notify(event string, b *domain.Booking, extra map[string]any) {
	data := map[string]any{
		"showtimeId":    b.ShowtimeID,
		"seatIds":       b.SeatIDs,
		"totalCents":    b.TotalCents,
		"currency":      b.Currency,
		"paymentStatus": b.PaymentStatus,
		"status":        b.Status,
	}
	for k, v := range extra {
		data[k] = v
	}

	s.notifier.Notify(notify.Event{
		Name:      event,
		UserID:    b.UserID,
		BookingID: b.ID,
		Data:      data,
	})
}

func (s *Service) invalidate(ctx context.Context, showtimeID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateShowtime(ctx, showtimeID); err != nil {
		s.log.Warn("invalidate seat map",
			slog.Int64("showtime_id", showtimeID),
			slog.Any("err", err),
		)
	}
}
