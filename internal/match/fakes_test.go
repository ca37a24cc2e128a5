package match

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jason-s-yu/ludo/internal/database"
	"github.com/jason-s-yu/ludo/internal/models"
	"github.com/stretchr/testify/require"
)

// memStore is an in-memory Store with the same guards as the postgres one.
type memStore struct {
	mu      sync.Mutex
	matches map[uuid.UUID]*models.MatchState
	players map[uuid.UUID]*models.Player
	settles int
	saves   int
	// getErr, when set, is consulted on every load and fails it with the returned error.
	getErr func() error
}

func newMemStore() *memStore {
	return &memStore{
		matches: make(map[uuid.UUID]*models.MatchState),
		players: make(map[uuid.UUID]*models.Player),
	}
}

func clonePoints(src [models.MaxSeats]models.Points) [models.MaxSeats]models.Points {
	var out [models.MaxSeats]models.Points
	for i, p := range src {
		if p != nil {
			out[i] = append(models.Points(nil), p...)
		}
	}
	return out
}

func cloneState(st *models.MatchState) *models.MatchState {
	c := *st
	c.Turn.Points = clonePoints(st.Turn.Points)
	if st.Turn.LastDice != nil {
		d := *st.Turn.LastDice
		c.Turn.LastDice = &d
	}
	return &c
}

func (s *memStore) GetMatchState(_ context.Context, matchID uuid.UUID) (*models.MatchState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		if err := s.getErr(); err != nil {
			return nil, err
		}
	}
	st, ok := s.matches[matchID]
	if !ok {
		return nil, database.ErrMatchNotFound
	}
	return cloneState(st), nil
}

func (s *memStore) SaveTurn(_ context.Context, m *models.Match, turn models.TurnState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.matches[m.ID]
	if !ok {
		return database.ErrMatchNotFound
	}
	if st.Match.Completed() {
		return database.ErrMatchNotActive
	}
	st.Turn.CurrentSeat = turn.CurrentSeat
	st.Turn.LastDice = turn.LastDice
	st.Turn.Points = clonePoints(turn.Points)
	s.saves++
	return nil
}

func (s *memStore) Settle(_ context.Context, set models.Settlement) (*models.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.matches[set.MatchID]
	if !ok {
		return nil, database.ErrMatchNotFound
	}
	if st.Match.Completed() {
		return nil, database.ErrMatchNotActive
	}
	p, ok := s.players[set.WinnerID]
	if !ok {
		return nil, database.ErrPlayerNotFound
	}
	p.Apply(set.Payout)
	st.Match.Status = models.MatchCompleted
	st.Match.Winner = uuid.NullUUID{UUID: set.WinnerID, Valid: true}
	st.Turn.Points = clonePoints(set.Points)
	s.settles++
	out := *p
	return &out, nil
}

func (s *memStore) player(id uuid.UUID) models.Player {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.players[id]
}

func (s *memStore) state(id uuid.UUID) *models.MatchState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneState(s.matches[id])
}

// addMatch seats seats new players in an active match with seat 1 to move.
func (s *memStore) addMatch(seats int, kind models.GameKind, amount, fee int64) (*models.Match, []uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := models.Match{
		ID:            uuid.New(),
		JoinedPlayers: seats,
		Status:        models.MatchActive,
		GameKind:      kind,
		WinningAmount: amount,
		Fee:           fee,
	}
	ids := make([]uuid.UUID, seats)
	st := &models.MatchState{Match: m}
	for i := 0; i < seats; i++ {
		ids[i] = uuid.New()
		st.Match.Players[i] = ids[i]
		st.Turn.Points[i] = models.Points{0, 0, 0, 0}
		s.players[ids[i]] = &models.Player{ID: ids[i], Coin: 100, WithdrawableCoin: 50, Bonus: 10}
	}
	st.Turn.CurrentSeat = models.Seat1
	s.matches[m.ID] = st
	return &st.Match, ids
}

type sent struct {
	ids []uuid.UUID
	msg interface{}
}

type recordingBroadcaster struct {
	mu   sync.Mutex
	sent []sent
}

func (b *recordingBroadcaster) SendToParticipants(_ context.Context, ids []uuid.UUID, msg interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sent = append(b.sent, sent{ids: ids, msg: msg})
}

func (b *recordingBroadcaster) last() sent {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sent[len(b.sent)-1]
}

func (b *recordingBroadcaster) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.sent)
}

type recordingCache struct {
	mu          sync.Mutex
	invalidated []uuid.UUID
}

func (c *recordingCache) InvalidatePlayerProfile(_ context.Context, id uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated = append(c.invalidated, id)
	return nil
}

type recordingJournal struct {
	mu   sync.Mutex
	recs []models.MoveRecord
}

func (j *recordingJournal) PublishMove(_ context.Context, rec models.MoveRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.recs = append(j.recs, rec)
	return nil
}

func (j *recordingJournal) count() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.recs)
}

// snapConn is a registry connection that keeps every snapshot it was sent.
type snapConn struct {
	mu   sync.Mutex
	msgs [][]byte
}

func (c *snapConn) Send(_ context.Context, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, data)
	return nil
}

func (c *snapConn) updates(t *testing.T) []PlayUpdate {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]PlayUpdate, 0, len(c.msgs))
	for _, data := range c.msgs {
		var snap struct {
			Data PlayUpdate `json:"data"`
		}
		require.NoError(t, json.Unmarshal(data, &snap))
		out = append(out, snap.Data)
	}
	return out
}
