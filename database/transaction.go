package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// ReadCommitted is the isolation used by short claim-and-mark transactions
var ReadCommitted = pgx.TxOptions{IsoLevel: pgx.ReadCommitted}

// WithTransaction runs fn in a transaction opened with opts. fn's error rolls
// the transaction back; a nil return commits it.
func (db *DB) WithTransaction(ctx context.Context, opts pgx.TxOptions, fn func(tx pgx.Tx) error) (err error) {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("failed to begin %s transaction: %w", isoName(opts), err)
	}

	defer func() {
		if err == nil {
			return
		}
		// Rollback after a failed commit reports ErrTxClosed
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			err = errors.Join(err, fmt.Errorf("rollback failed: %w", rbErr))
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func isoName(opts pgx.TxOptions) string {
	if opts.IsoLevel == "" {
		return "default"
	}
	return string(opts.IsoLevel)
}
