package repositories

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConflict indicates the attempted write would violate a uniqueness constraint.
	ErrConflict = errors.New("record conflict")
	// ErrForbidden indicates the record exists but is owned by another user.
	ErrForbidden = errors.New("record owned by another user")
)

// translatePgError maps constraint violations onto the package sentinels:
// 23505 (unique) becomes ErrConflict, 23503 (foreign key) becomes ErrNotFound
// because the referenced record is missing.
func translatePgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return ErrConflict
		case "23503":
			return ErrNotFound
		}
	}
	return nil
}
