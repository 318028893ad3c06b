package booking

import "github.com/kirinyoku/cinebook/internal/domain"

var (
	ErrNoSeats               = domain.NewError(domain.CodeInvalid, "seatIds must not be empty")
	ErrDuplicateSeats        = domain.NewError(domain.CodeInvalid, "seatIds must not contain duplicates")
	ErrTooManySeats          = domain.NewError(domain.CodeInvalid, "too many seats in one booking")
	ErrPaymentMethodRequired = domain.NewError(domain.CodeInvalid, "paymentMethod is required")
	ErrShowtimeNotFound      = domain.NewError(domain.CodeNotFound, "showtime not found")
	ErrShowtimeClosed        = domain.NewError(domain.CodeInvalid, "showtime is not open for booking")
	ErrSeatNotFound          = domain.NewError(domain.CodeNotFound, "seat not found")
	ErrNoPrice               = domain.NewError(domain.CodeInvalid, "showtime has no price for the seat class")
	ErrBookingNotFound       = domain.NewError(domain.CodeNotFound, "booking not found")
	ErrNotOwner              = domain.NewError(domain.CodeUnauthorized, "booking belongs to another user")
	ErrAlreadyPaid           = domain.NewError(domain.CodeAlreadyProcessed, "booking is already paid")
	ErrAlreadyCancelled      = domain.NewError(domain.CodeAlreadyProcessed, "booking is already cancelled")
	ErrBookingCancelled      = domain.NewError(domain.CodeInvalid, "booking is cancelled")
	ErrHoldExpired           = domain.NewError(domain.CodeConflict, "booking hold has expired")
	ErrBookingChanged        = domain.NewError(domain.CodeConflict, "booking was modified concurrently")
	ErrPaymentDeclined       = domain.NewError(domain.CodePaymentFailed, "payment was declined")
	ErrTooLate               = domain.NewError(domain.CodeTooLate, "booking can no longer be cancelled")
	ErrRateLimited           = domain.NewError(domain.CodeRateLimited, "too many booking attempts, retry later")
)
