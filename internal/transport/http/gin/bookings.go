package httpgin

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/kirinyoku/cinebook/internal/domain"
	redisrepo "github.com/kirinyoku/cinebook/internal/repository/redis"
	"github.com/kirinyoku/cinebook/internal/service"
)

// @Summary  Hold seats and create a booking (idempotent)
// @Security BearerAuth
// @Param    req body  CreateBookingRequest true "payload"
// @Param    Idempotency-Key header string false "replays the first response"
// @Success  201 {object} domain.Booking
// @Failure  400 {object} ErrorResponse "bad payload / key reused for another request"
// @Failure  409 {object} ErrorResponse "seats unavailable / idem in progress"
// @Failure  429 {object} ErrorResponse "rate limited"
// @Router   /bookings [post]
func handleCreateBooking(
	svcs *service.Services,
	idem *redisrepo.IdempotencyStore,
	log *slog.Logger,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateBookingRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		p := principalFrom(c)
		ctx := c.Request.Context()

		idemKey := strings.TrimSpace(c.GetHeader("Idempotency-Key"))
		var storageKey, fp string
		if idem != nil && idemKey != "" {
			storageKey = redisrepo.KeyIdemBooking(p.UserID, idemKey)
			fp = req.fingerprint()

			out, stored, err := idem.Begin(ctx, storageKey, fp)
			switch {
			case err != nil:
				log.Warn("idempotency store unavailable", slog.Any("err", err))
				storageKey = ""
			case out == redisrepo.Replay:
				c.Header("Idempotency-Key", idemKey)
				c.Header("Idempotent-Replayed", "true")
				c.Data(stored.Status, "application/json; charset=utf-8", stored.Body)
				return
			case out == redisrepo.Mismatch:
				badRequest(c, "Idempotency-Key was used with a different request")
				return
			case out == redisrepo.InProgress:
				c.Header("Retry-After", "1")
				respondErr(c, domain.NewError(domain.CodeConflict, "idempotency key in progress"))
				return
			}
		}

		b, err := svcs.Booking.CreateBooking(ctx, p.UserID, req.ShowtimeID, req.SeatIDs, req.PaymentMethod)
		if err != nil {
			if storageKey != "" {
				if aerr := idem.Abort(ctx, storageKey); aerr != nil {
					log.Warn("release idempotency key", slog.String("key", idemKey), slog.Any("err", aerr))
				}
			}
			respondErr(c, err)
			return
		}

		if storageKey != "" {
			if err := completeIdempotent(ctx, idem, storageKey, fp, b); err != nil {
				log.Warn("store idempotent response", slog.String("booking_id", b.ID.String()), slog.Any("err", err))
			}
			c.Header("Idempotency-Key", idemKey)
		}

		c.JSON(http.StatusCreated, b)
	}
}

// completeIdempotent stores the created booking as the replayable response.
// On failure the claim is kept until it times out: the booking exists, so a
// retry must not create another one.
func completeIdempotent(ctx context.Context, idem *redisrepo.IdempotencyStore, key, fp string, b *domain.Booking) error {
	body, err := json.Marshal(b)
	if err != nil {
		return err
	}
	return idem.Complete(ctx, key, fp, redisrepo.StoredResponse{Status: http.StatusCreated, Body: body})
}

// @Summary  Pay for a reserved booking
// @Security BearerAuth
// @Param    req body  PaymentRequest true "payload"
// @Success  200 {object} domain.Booking
// @Failure  402 {object} ErrorResponse "payment declined"
// @Failure  404 {object} ErrorResponse
// @Failure  409 {object} ErrorResponse "hold expired / already paid"
// @Router   /bookings/payment [post]
func handleProcessPayment(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req PaymentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		id, err := uuid.Parse(req.BookingID)
		if err != nil {
			badRequest(c, "invalid bookingId")
			return
		}

		b, err := svcs.Booking.ProcessPayment(c.Request.Context(), principalFrom(c).UserID, id, req.PaymentDetails)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, b)
	}
}

// @Summary  List the caller's bookings
// @Security BearerAuth
// @Param    limit  query  int  false "page size"
// @Param    offset query  int  false "offset"
// @Success  200 {object} BookingListResponse
// @Router   /bookings [get]
func handleListBookings(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := parseIntDefault(c.Query("limit"), 20)
		offset := parseIntDefault(c.Query("offset"), 0)

		list, err := svcs.Booking.ListBookings(c.Request.Context(), principalFrom(c).UserID, limit, offset)
		if err != nil {
			respondErr(c, err)
			return
		}
		if list == nil {
			list = []domain.Booking{}
		}
		c.JSON(http.StatusOK, BookingListResponse{Bookings: list, Limit: limit, Offset: offset})
	}
}

// @Summary  Get a booking
// @Security BearerAuth
// @Param    id  path  string  true  "Booking ID (uuid)"
// @Success  200 {object} domain.Booking
// @Failure  404 {object} ErrorResponse
// @Router   /bookings/{id} [get]
func handleGetBooking(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		b, err := svcs.Booking.GetBooking(c.Request.Context(), principalFrom(c), id)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, b)
	}
}

// @Summary  Cancel a booking
// @Security BearerAuth
// @Param    id  path  string  true  "Booking ID (uuid)"
// @Success  200 {object} domain.Booking
// @Failure  403 {object} ErrorResponse "not the owner"
// @Failure  409 {object} ErrorResponse "too late / already cancelled"
// @Router   /bookings/{id} [delete]
func handleCancelBooking(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		b, err := svcs.Booking.CancelBooking(c.Request.Context(), id, principalFrom(c).UserID)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, b)
	}
}

func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		badRequest(c, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}
