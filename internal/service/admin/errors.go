package admin

import "github.com/kirinyoku/cinebook/internal/domain"

var (
	ErrInvalidMovie     = domain.NewError(domain.CodeInvalid, "movie needs a title and a positive duration")
	ErrInvalidScreen    = domain.NewError(domain.CodeInvalid, "screen needs a name")
	ErrInvalidSeat      = domain.NewError(domain.CodeInvalid, "seat needs a row letter, a positive number and a known class")
	ErrInvalidPrices    = domain.NewError(domain.CodeInvalid, "prices must be non-negative and use known seat classes")
	ErrInvalidStart     = domain.NewError(domain.CodeInvalid, "showtime must start in the future")
	ErrScreenConflict   = domain.NewError(domain.CodeConflict, "screen already exists")
	ErrShowtimeOverlap  = domain.NewError(domain.CodeConflict, "showtime overlaps another showtime on the screen")
	ErrMovieNotFound    = domain.NewError(domain.CodeNotFound, "movie not found")
	ErrScreenNotFound   = domain.NewError(domain.CodeNotFound, "screen not found")
	ErrNoSeats          = domain.NewError(domain.CodeInvalid, "screen has no seats")
	ErrShowtimeNotFound = domain.NewError(domain.CodeNotFound, "showtime not found")
)
