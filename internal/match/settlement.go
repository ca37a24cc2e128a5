package match

import (
	"context"
	"fmt"

	"github.com/jason-s-yu/ludo/internal/models"
	"github.com/sirupsen/logrus"
)

// settle pays out the winning seat and closes the match. The store applies the credit, the final
// board and the status change in one transaction guarded on status=active, so a match is paid at
// most once. The winner's cached profile is dropped after the commit.
func (e *Engine) settle(ctx context.Context, st *models.MatchState, winner models.Seat, points [models.MaxSeats]models.Points) error {
	winnerID := st.Match.PlayerAt(winner)
	payout := PayoutFor(&st.Match)

	player, err := e.store.Settle(ctx, models.Settlement{
		MatchID:    st.Match.ID,
		WinnerSeat: winner,
		WinnerID:   winnerID,
		Payout:     payout,
		Points:     points,
	})
	if err != nil {
		return fmt.Errorf("settle match %s: %w", st.Match.ID, err)
	}

	log := e.logger.WithFields(logrus.Fields{
		"match_id":  st.Match.ID,
		"player_id": winnerID,
		"seat":      winner,
		"game_kind": st.Match.GameKind,
	})
	if err := e.cache.InvalidatePlayerProfile(ctx, winnerID); err != nil {
		log.Errorf("profile cache not invalidated after settlement: %v", err)
	}
	log.WithFields(logrus.Fields{
		"coin":              player.Coin,
		"withdrawable_coin": player.WithdrawableCoin,
		"bonus":             player.Bonus,
	}).Infof("match settled, seat %d wins %d", winner, st.Match.WinningAmount)
	return nil
}
