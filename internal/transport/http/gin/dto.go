package httpgin

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"slices"
	"time"

	"github.com/kirinyoku/cinebook/internal/domain"
)

type CreateBookingRequest struct {
	ShowtimeID    int64   `json:"showtimeId" binding:"required,gt=0"`
	SeatIDs       []int64 `json:"seatIds" binding:"required,min=1,dive,gt=0"`
	PaymentMethod string  `json:"paymentMethod" binding:"required"`
}

// fingerprint identifies the request for idempotency checks. Seat order
// does not matter.
func (r CreateBookingRequest) fingerprint() string {
	seats := slices.Clone(r.SeatIDs)
	slices.Sort(seats)

	h := sha256.New()
	fmt.Fprintf(h, "%d|%v|%s", r.ShowtimeID, seats, r.PaymentMethod)
	return hex.EncodeToString(h.Sum(nil))
}

type PaymentRequest struct {
	BookingID      string            `json:"bookingId" binding:"required,uuid"`
	PaymentDetails map[string]string `json:"paymentDetails"`
}

type CreateMovieRequest struct {
	Title           string `json:"title" binding:"required"`
	DurationMinutes int    `json:"durationMinutes" binding:"required,gt=0"`
}

type CreateScreenRequest struct {
	Name string `json:"name" binding:"required"`
}

type AddSeatsRequest struct {
	Seats []SeatInput `json:"seats" binding:"required,min=1,dive"`
}

type SeatInput struct {
	Row    string           `json:"row" binding:"required"`
	Number int              `json:"number" binding:"required,gt=0"`
	Class  domain.SeatClass `json:"class"`
}

type CreateShowtimeRequest struct {
	MovieID  int64             `json:"movieId" binding:"required,gt=0"`
	ScreenID int64             `json:"screenId" binding:"required,gt=0"`
	StartsAt time.Time         `json:"startsAt" binding:"required"`
	Prices   domain.PriceTable `json:"prices" binding:"required"`
}

type UpdatePricesRequest struct {
	Prices domain.PriceTable `json:"prices" binding:"required"`
}

type ErrorResponse struct {
	Error string      `json:"error"`
	Code  domain.Code `json:"code"`
}

type CreatedResponse struct {
	ID int64 `json:"id"`
}

type AddSeatsResponse struct {
	Created int64 `json:"created"`
}

type BookingListResponse struct {
	Bookings []domain.Booking `json:"bookings"`
	Limit    int              `json:"limit"`
	Offset   int              `json:"offset"`
}
