package postgresql

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type typedCause struct{}

func (e *typedCause) Error() string { return "typed cause" }

func TestSafeError_UnwrapSupportsErrorsIsAs(t *testing.T) {
	t.Parallel()

	sentinel := &typedCause{}
	err := &SafeError{msg: "safe message", cause: sentinel}

	if !errors.Is(err, sentinel) {
		t.Fatal("expected errors.Is to match wrapped cause")
	}

	var got *typedCause
	if !errors.As(err, &got) {
		t.Fatal("expected errors.As to extract wrapped cause")
	}
}

func TestMapError_NilPassesThrough(t *testing.T) {
	t.Parallel()

	if err := MapError(nil); err != nil {
		t.Fatalf("MapError(nil)=%v, want nil", err)
	}
}

func TestMapError_NoRowsBecomesNotFound(t *testing.T) {
	t.Parallel()

	err := MapError(fmt.Errorf("reading row: %w", pgx.ErrNoRows))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("error=%v, want ErrNotFound", err)
	}
}

func TestMapError_TranslatesSQLStates(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		code string
		want error
	}{
		{"unique violation", "23505", ErrDuplicate},
		{"foreign key violation", "23503", ErrConstraint},
		{"check violation", "23514", ErrConstraint},
		{"not null violation", "23502", ErrConstraint},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			pgErr := &pgconn.PgError{Code: tc.code, ConstraintName: "foo_pkey"}
			err := MapError(pgErr)
			if !errors.Is(err, tc.want) {
				t.Fatalf("error=%v, want %v", err, tc.want)
			}
			var got *pgconn.PgError
			if !errors.As(err, &got) {
				t.Fatal("expected original PgError to remain inspectable")
			}
		})
	}
}

func TestMapError_UnknownErrorsPassThrough(t *testing.T) {
	t.Parallel()

	sentinel := errors.New("network down")
	if got := MapError(sentinel); !errors.Is(got, sentinel) {
		t.Fatalf("error=%v, want %v", got, sentinel)
	}

	pgErr := &pgconn.PgError{Code: "42P01"} // undefined_table
	got := MapError(pgErr)
	if errors.Is(got, ErrConstraint) || errors.Is(got, ErrDuplicate) || errors.Is(got, ErrNotFound) {
		t.Fatalf("unexpected sentinel mapping for %v", got)
	}
}
