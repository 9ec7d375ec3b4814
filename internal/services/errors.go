package services

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	ErrNotFound          = errors.New("not_found")
	ErrInsufficientStock = errors.New("insufficient_stock")
	ErrConflict          = errors.New("conflict")
	ErrInvalidQuantity   = errors.New("invalid_quantity")
	ErrInvalidBuyer      = errors.New("invalid_buyer_company")
)

// pgForeignKeyViolation is the SQLSTATE for foreign_key_violation.
const pgForeignKeyViolation = "23503"

// lookupErr maps a failed load to ErrNotFound or wraps it with op.
func lookupErr(op string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}

// writeErr maps a dangling product reference to ErrNotFound or wraps it with op.
func writeErr(op string, err error) error {
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
		return ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}
