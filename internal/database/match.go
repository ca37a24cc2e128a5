// internal/database/match.go
package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jason-s-yu/ludo/internal/models"
)

const selectMatchState = `
	SELECT m.id, m.player1, m.player2, m.player3, m.player4, m.joined_players,
	       m.status, m.winner, m.game_kind, m.winning_amount, m.fee,
	       s.current_player, s.dice,
	       s.player1_points, s.player2_points, s.player3_points, s.player4_points
	FROM matches m
	JOIN match_status s ON s.match_id = m.id
	WHERE m.id = $1
`

// GetMatchState loads a match, its winner and its turn state in a single round trip.
func (s *Store) GetMatchState(ctx context.Context, matchID uuid.UUID) (*models.MatchState, error) {
	var (
		st            models.MatchState
		p3, p4        uuid.NullUUID
		status, kind  string
		currentPlayer uuid.UUID
		points        [models.MaxSeats][]int
	)
	err := s.DB.QueryRow(ctx, selectMatchState, matchID).Scan(
		&st.Match.ID, &st.Match.Players[0], &st.Match.Players[1], &p3, &p4,
		&st.Match.JoinedPlayers, &status, &st.Match.Winner, &kind,
		&st.Match.WinningAmount, &st.Match.Fee,
		&currentPlayer, &st.Turn.LastDice,
		&points[0], &points[1], &points[2], &points[3],
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrMatchNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load match %s: %w", matchID, err)
	}

	if p3.Valid {
		st.Match.Players[2] = p3.UUID
	}
	if p4.Valid {
		st.Match.Players[3] = p4.UUID
	}
	st.Match.Status = models.MatchStatus(status)
	st.Match.GameKind = models.GameKind(kind)
	for i, p := range points {
		if p != nil {
			st.Turn.Points[i] = models.Points(p)
		}
	}

	seat, ok := st.Match.SeatOf(currentPlayer)
	if !ok {
		return nil, fmt.Errorf("match %s: current player %s holds no joined seat", matchID, currentPlayer)
	}
	st.Turn.CurrentSeat = seat
	return &st, nil
}

// SaveTurn persists points, the turn pointer and the last dice of an active match.
// It refuses to touch a completed match.
func (s *Store) SaveTurn(ctx context.Context, m *models.Match, turn models.TurnState) error {
	current := m.PlayerAt(turn.CurrentSeat)
	if current == uuid.Nil {
		return fmt.Errorf("match %s: seat %d is not joined", m.ID, turn.CurrentSeat)
	}

	q := `
		UPDATE match_status s
		SET current_player = $2, dice = $3,
		    player1_points = $4, player2_points = $5, player3_points = $6, player4_points = $7
		FROM matches m
		WHERE s.match_id = $1 AND m.id = s.match_id AND m.status = 'active'
	`
	return s.inTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, q, m.ID, current, turn.LastDice,
			pointsArg(turn.Points[0]), pointsArg(turn.Points[1]),
			pointsArg(turn.Points[2]), pointsArg(turn.Points[3]),
		)
		if err != nil {
			return fmt.Errorf("failed to save turn for match %s: %w", m.ID, err)
		}
		if tag.RowsAffected() == 0 {
			return ErrMatchNotActive
		}
		return nil
	})
}

// Settle credits the winner, records the final board and marks the match completed, all in one
// transaction. The status guard makes a second settlement of the same match fail with
// ErrMatchNotActive instead of paying out twice.
func (s *Store) Settle(ctx context.Context, st models.Settlement) (*models.Player, error) {
	var winner models.Player
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE matches SET status = 'completed', winner = $2 WHERE id = $1 AND status = 'active'`,
			st.MatchID, st.WinnerID,
		)
		if err != nil {
			return fmt.Errorf("failed to complete match %s: %w", st.MatchID, err)
		}
		if tag.RowsAffected() == 0 {
			return ErrMatchNotActive
		}

		p, err := getPlayerTx(ctx, tx, st.WinnerID, true)
		if err != nil {
			return err
		}
		p.Apply(st.Payout)
		if _, err := tx.Exec(ctx,
			`UPDATE players SET coin = $2, withdrawable_coin = $3, bonus = $4 WHERE id = $1`,
			p.ID, p.Coin, p.WithdrawableCoin, p.Bonus,
		); err != nil {
			return fmt.Errorf("failed to credit player %s: %w", p.ID, err)
		}
		winner = *p

		if _, err := tx.Exec(ctx, `
			UPDATE match_status
			SET player1_points = $2, player2_points = $3, player3_points = $4, player4_points = $5
			WHERE match_id = $1`,
			st.MatchID,
			pointsArg(st.Points[0]), pointsArg(st.Points[1]),
			pointsArg(st.Points[2]), pointsArg(st.Points[3]),
		); err != nil {
			return fmt.Errorf("failed to store final points for match %s: %w", st.MatchID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &winner, nil
}

// pointsArg maps an absent seat's points to SQL NULL.
func pointsArg(p models.Points) []int {
	if p == nil {
		return nil
	}
	return []int(p)
}
