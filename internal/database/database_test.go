package database

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/ludo/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testStore connects to TEST_DATABASE_URL, skipping when it is unset.
func testStore(t *testing.T) *Store {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := ConnectDB(ctx, url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	s := NewStore(pool)
	require.NoError(t, s.Migrate(ctx))
	return s
}

// seedMatch inserts two players and an active two-seat match with seat 1 to move.
func seedMatch(t *testing.T, s *Store, kind models.GameKind) (uuid.UUID, [2]uuid.UUID) {
	t.Helper()
	ctx := context.Background()
	ids := [2]uuid.UUID{uuid.New(), uuid.New()}
	for i, id := range ids {
		_, err := s.DB.Exec(ctx,
			`INSERT INTO players (id, username, coin, withdrawable_coin, bonus) VALUES ($1, $2, 100, 50, 10)`,
			id, "player"+string(rune('1'+i)))
		require.NoError(t, err)
	}
	matchID := uuid.New()
	_, err := s.DB.Exec(ctx, `
		INSERT INTO matches (id, player1, player2, joined_players, game_kind, winning_amount, fee)
		VALUES ($1, $2, $3, 2, $4, 80, 8)`, matchID, ids[0], ids[1], string(kind))
	require.NoError(t, err)
	_, err = s.DB.Exec(ctx, `
		INSERT INTO match_status (match_id, current_player, player1_points, player2_points)
		VALUES ($1, $2, '{0,0,0,0}', '{0,0,0,0}')`, matchID, ids[0])
	require.NoError(t, err)
	return matchID, ids
}

func TestGetMatchState(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	matchID, ids := seedMatch(t, s, models.GameStaked)

	st, err := s.GetMatchState(ctx, matchID)
	require.NoError(t, err)
	assert.Equal(t, ids[0], st.Match.PlayerAt(models.Seat1))
	assert.Equal(t, ids[1], st.Match.PlayerAt(models.Seat2))
	assert.Equal(t, uuid.Nil, st.Match.PlayerAt(models.Seat3))
	assert.Equal(t, models.MatchActive, st.Match.Status)
	assert.Equal(t, models.Seat1, st.Turn.CurrentSeat)
	assert.Nil(t, st.Turn.LastDice)
	assert.Equal(t, models.Points{0, 0, 0, 0}, st.Turn.Points[0])
	assert.Nil(t, st.Turn.Points[2])

	_, err = s.GetMatchState(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrMatchNotFound)
}

func TestSaveTurnAndSettle(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	matchID, ids := seedMatch(t, s, models.GameStaked)

	st, err := s.GetMatchState(ctx, matchID)
	require.NoError(t, err)

	dice := 5
	turn := models.TurnState{CurrentSeat: models.Seat2, LastDice: &dice}
	turn.Points[0] = models.Points{5, 0, 0, 0}
	turn.Points[1] = models.Points{0, 0, 0, 0}
	require.NoError(t, s.SaveTurn(ctx, &st.Match, turn))

	st, err = s.GetMatchState(ctx, matchID)
	require.NoError(t, err)
	assert.Equal(t, models.Seat2, st.Turn.CurrentSeat)
	require.NotNil(t, st.Turn.LastDice)
	assert.Equal(t, 5, *st.Turn.LastDice)
	assert.Equal(t, models.Points{5, 0, 0, 0}, st.Turn.Points[0])

	set := models.Settlement{
		MatchID:    matchID,
		WinnerSeat: models.Seat2,
		WinnerID:   ids[1],
		Payout:     models.Payout{Coin: 80, WithdrawableCoin: 72},
	}
	set.Points[0] = models.Points{5, 0, 0, 0}
	set.Points[1] = models.Points{56, 56, 56, 56}
	winner, err := s.Settle(ctx, set)
	require.NoError(t, err)
	assert.Equal(t, int64(180), winner.Coin)
	assert.Equal(t, int64(122), winner.WithdrawableCoin)
	assert.Equal(t, int64(10), winner.Bonus)

	// a second settlement must not pay out again
	_, err = s.Settle(ctx, set)
	assert.ErrorIs(t, err, ErrMatchNotActive)
	assert.ErrorIs(t, s.SaveTurn(ctx, &st.Match, turn), ErrMatchNotActive)

	p, err := s.GetPlayer(ctx, ids[1])
	require.NoError(t, err)
	assert.Equal(t, int64(180), p.Coin)

	st, err = s.GetMatchState(ctx, matchID)
	require.NoError(t, err)
	assert.True(t, st.Match.Completed())
	assert.Equal(t, uuid.NullUUID{UUID: ids[1], Valid: true}, st.Match.Winner)
	assert.Equal(t, models.Points{56, 56, 56, 56}, st.Turn.Points[1])
}

func TestInsertMoveRecordsIsIdempotent(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	matchID, ids := seedMatch(t, s, models.GameBonus)

	recs := []models.MoveRecord{
		{MatchID: matchID, MoveIndex: 1, PlayerID: ids[0], Seat: models.Seat1, Dice: 3, Timestamp: time.Now().UnixMilli()},
		{MatchID: matchID, MoveIndex: 2, PlayerID: ids[1], Seat: models.Seat2, Dice: 6, Timestamp: time.Now().UnixMilli()},
	}
	require.NoError(t, s.InsertMoveRecords(ctx, recs))
	require.NoError(t, s.InsertMoveRecords(ctx, recs))

	var n int
	require.NoError(t, s.DB.QueryRow(ctx, `SELECT count(*) FROM match_moves WHERE match_id = $1`, matchID).Scan(&n))
	assert.Equal(t, 2, n)
}

func TestGetPlayerNotFound(t *testing.T) {
	s := testStore(t)
	_, err := s.GetPlayer(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrPlayerNotFound)
}
