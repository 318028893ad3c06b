package postgresrepo

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/kirinyoku/cinebook/internal/repository"
)

// SQLSTATE codes the store reacts to.
const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeUniqueViolation      = "23505"
	codeForeignKeyViolation  = "23503"
)

// IsRetryable reports whether the whole transaction may be run again.
func IsRetryable(err error) bool {
	switch pgCode(err) {
	case codeSerializationFailure, codeDeadlockDetected:
		return true
	}
	return false
}

// wrapDBErr tags err with op and folds the driver errors callers branch on
// into repository sentinels. A duplicate row is a conflict; a missing row or
// a dangling reference (unknown screen, movie or seat) is not found.
func wrapDBErr(op string, err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, pgx.ErrNoRows):
		err = repository.ErrNotFound
	case pgCode(err) == codeUniqueViolation:
		err = fmt.Errorf("%w: %w", repository.ErrConflict, err)
	case pgCode(err) == codeForeignKeyViolation:
		err = fmt.Errorf("%w: %w", repository.ErrNotFound, err)
	}

	return fmt.Errorf("%s:%w", op, err)
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}
