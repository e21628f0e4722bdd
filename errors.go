package postgresql

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Sentinel errors returned by database and table operations.
var (
	// ErrNoTransaction is returned when a statement is executed outside a
	// transaction context.
	ErrNoTransaction = errors.New("postgresql: transaction context required to execute statement")

	// ErrNotFound is returned when a row with the requested key does not exist.
	ErrNotFound = errors.New("postgresql: not found")

	// ErrDuplicate is returned when an insert violates a unique constraint.
	ErrDuplicate = errors.New("postgresql: duplicate key")

	// ErrConstraint is returned for foreign key, check and not-null violations.
	ErrConstraint = errors.New("postgresql: constraint violation")
)

// SafeError wraps a cause with an error string safe for default production
// logging. The wrapped cause may still contain sensitive detail such as a DSN.
type SafeError struct {
	msg   string
	cause error
}

func (e *SafeError) Error() string { return e.msg }
func (e *SafeError) Unwrap() error { return e.cause }

// PostgreSQL SQLSTATE codes translated by MapError.
const (
	uniqueViolationCode     = "23505"
	foreignKeyViolationCode = "23503"
	checkViolationCode      = "23514"
	notNullViolationCode    = "23502"
)

// MapError translates driver errors into package sentinels, wrapping the
// original error so callers can still inspect it with errors.As.
func MapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolationCode:
			return fmt.Errorf("%w (%s): %w", ErrDuplicate, pgErr.ConstraintName, err)
		case foreignKeyViolationCode, checkViolationCode, notNullViolationCode:
			return fmt.Errorf("%w (%s): %w", ErrConstraint, pgErr.ConstraintName, err)
		}
	}

	return err
}
