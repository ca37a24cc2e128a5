package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jason-s-yu/ludo/internal/models"
)

// InsertMoveRecords writes a batch of journaled moves in one transaction. Records already
// stored (same match and index) are skipped so a replayed batch is harmless.
func (s *Store) InsertMoveRecords(ctx context.Context, recs []models.MoveRecord) error {
	if len(recs) == 0 {
		return nil
	}
	q := `
		INSERT INTO match_moves (match_id, move_index, player_id, seat, dice, points, winner, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (match_id, move_index) DO NOTHING
	`
	return s.inTx(ctx, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, rec := range recs {
			points, err := json.Marshal(rec.Points)
			if err != nil {
				return fmt.Errorf("failed to marshal points of move %d: %w", rec.MoveIndex, err)
			}
			batch.Queue(q, rec.MatchID, rec.MoveIndex, rec.PlayerID, int(rec.Seat), rec.Dice,
				points, rec.Winner, time.UnixMilli(rec.Timestamp))
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to insert %d moves: %w", len(recs), err)
		}
		return nil
	})
}
