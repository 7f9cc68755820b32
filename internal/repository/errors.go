package repository

import (
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrConflict — нарушение уникальности (имя канала и т.п.).
	ErrConflict = errors.New("conflict")
)

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

// rowScanner — общий интерфейс pgx.Row и pgx.Rows для scan-хелперов.
type rowScanner interface {
	Scan(dest ...any) error
}
