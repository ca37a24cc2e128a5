package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jason-s-yu/ludo/internal/models"
)

// GetPlayer loads a participant with its balances.
func (s *Store) GetPlayer(ctx context.Context, id uuid.UUID) (*models.Player, error) {
	var p models.Player
	err := s.DB.QueryRow(ctx,
		`SELECT id, username, coin, withdrawable_coin, bonus FROM players WHERE id = $1`, id,
	).Scan(&p.ID, &p.Username, &p.Coin, &p.WithdrawableCoin, &p.Bonus)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrPlayerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load player %s: %w", id, err)
	}
	return &p, nil
}

func getPlayerTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, forUpdate bool) (*models.Player, error) {
	q := `SELECT id, username, coin, withdrawable_coin, bonus FROM players WHERE id = $1`
	if forUpdate {
		q += ` FOR UPDATE`
	}
	var p models.Player
	err := tx.QueryRow(ctx, q, id).Scan(&p.ID, &p.Username, &p.Coin, &p.WithdrawableCoin, &p.Bonus)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrPlayerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load player %s: %w", id, err)
	}
	return &p, nil
}
