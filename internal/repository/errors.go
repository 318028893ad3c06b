package repository

import "errors"

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
	ErrOverlap  = errors.New("showtime overlaps another showtime on the screen")
)
