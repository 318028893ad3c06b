package hold

import "github.com/kirinyoku/cinebook/internal/domain"

var (
	ErrSeatUnavailable = domain.NewError(domain.CodeSeatUnavailable, "one or more seats are not available")
	ErrSeatNotFound    = domain.NewError(domain.CodeNotFound, "seat not found")
	ErrNotHeld         = domain.NewError(domain.CodeConflict, "seats are not held by this booking")
)
