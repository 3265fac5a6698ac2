package repository

import (
	"context"
	"errors"
	"fmt"

	"auctioneer/database"
	"auctioneer/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ReservationRepository implements the ReservationRepository interface
type ReservationRepository struct {
	q queryable
}

// NewReservationRepository creates a new reservation repository
func NewReservationRepository(db *database.DB) *ReservationRepository {
	return &ReservationRepository{q: db.Pool}
}

func newReservationRepositoryWithTx(tx queryable) *ReservationRepository {
	return &ReservationRepository{q: tx}
}

// GetForUpdate returns the reservation for the pair, locking the row
func (r *ReservationRepository) GetForUpdate(ctx context.Context, userID string, auctionID uuid.UUID) (*models.BalanceReservation, error) {
	query := `
		SELECT user_id, auction_id, amount, created_at, updated_at
		FROM balance_reservations
		WHERE user_id = $1 AND auction_id = $2
		FOR UPDATE
	`

	var reservation models.BalanceReservation
	err := r.q.QueryRow(ctx, query, userID, auctionID).Scan(
		&reservation.UserID,
		&reservation.AuctionID,
		&reservation.Amount,
		&reservation.CreatedAt,
		&reservation.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, translateError(fmt.Sprintf("failed to get reservation for user %s on auction %s", userID, auctionID), err)
	}

	return &reservation, nil
}

// Upsert creates or replaces the reserved amount
func (r *ReservationRepository) Upsert(ctx context.Context, reservation *models.BalanceReservation) error {
	query := `
		INSERT INTO balance_reservations (user_id, auction_id, amount)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, auction_id) DO UPDATE
		SET amount = EXCLUDED.amount,
		    updated_at = NOW()
		RETURNING created_at, updated_at
	`

	err := r.q.QueryRow(ctx, query, reservation.UserID, reservation.AuctionID, reservation.Amount).
		Scan(&reservation.CreatedAt, &reservation.UpdatedAt)
	if err != nil {
		return translateError(fmt.Sprintf("failed to store reservation for user %s", reservation.UserID), err)
	}

	return nil
}

// Delete removes the reservation for the pair
func (r *ReservationRepository) Delete(ctx context.Context, userID string, auctionID uuid.UUID) error {
	query := `DELETE FROM balance_reservations WHERE user_id = $1 AND auction_id = $2`

	if _, err := r.q.Exec(ctx, query, userID, auctionID); err != nil {
		return translateError(fmt.Sprintf("failed to delete reservation for user %s", userID), err)
	}

	return nil
}

// ListByUser returns the user's outstanding reservations
func (r *ReservationRepository) ListByUser(ctx context.Context, userID string) ([]*models.BalanceReservation, error) {
	query := `
		SELECT user_id, auction_id, amount, created_at, updated_at
		FROM balance_reservations
		WHERE user_id = $1
		ORDER BY created_at ASC
	`

	rows, err := r.q.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reservations for user %s: %w", userID, err)
	}
	defer rows.Close()

	var reservations []*models.BalanceReservation
	for rows.Next() {
		var reservation models.BalanceReservation
		if err := rows.Scan(
			&reservation.UserID,
			&reservation.AuctionID,
			&reservation.Amount,
			&reservation.CreatedAt,
			&reservation.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan reservation: %w", err)
		}
		reservations = append(reservations, &reservation)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate reservations: %w", err)
	}

	return reservations, nil
}
