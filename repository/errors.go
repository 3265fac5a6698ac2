package repository

import (
	"errors"
	"fmt"

	"auctioneer/auctionerrors"

	"github.com/jackc/pgx/v5/pgconn"
)

// Postgres error codes the repositories translate
const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgCheckViolation       = "23514"
	pgUniqueViolation      = "23505"
)

// translateError maps transient Postgres failures onto the domain errors
// the bid retry loop understands. Other errors are wrapped with op.
func translateError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgSerializationFailure, pgDeadlockDetected:
			return fmt.Errorf("%s: %w (%s)", op, auctionerrors.ErrVersionConflict, pgErr.Code)
		case pgCheckViolation:
			if pgErr.ConstraintName == "balances_available_non_negative" {
				return fmt.Errorf("%s: %w", op, auctionerrors.ErrInsufficientFunds)
			}
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
