package query

import "github.com/kirinyoku/cinebook/internal/domain"

var ErrShowtimeNotFound = domain.NewError(domain.CodeNotFound, "showtime not found")
