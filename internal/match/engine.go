// Package match is the authority over a match's turn order. It validates each move against the
// freshly loaded state, applies it, settles the match when a seat brings every token home and
// pushes the resulting snapshot to every seat.
package match

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/ludo/internal/database"
	"github.com/jason-s-yu/ludo/internal/models"
	"github.com/sirupsen/logrus"
)

// Store is the session store the engine reads and writes.
type Store interface {
	GetMatchState(ctx context.Context, matchID uuid.UUID) (*models.MatchState, error)
	SaveTurn(ctx context.Context, m *models.Match, turn models.TurnState) error
	Settle(ctx context.Context, st models.Settlement) (*models.Player, error)
}

// ProfileCache holds read models keyed by participant that go stale when balances change.
type ProfileCache interface {
	InvalidatePlayerProfile(ctx context.Context, playerID uuid.UUID) error
}

// Broadcaster delivers a message to every live connection of each participant.
type Broadcaster interface {
	SendToParticipants(ctx context.Context, participantIDs []uuid.UUID, message interface{})
}

// Journal receives every accepted move.
type Journal interface {
	PublishMove(ctx context.Context, rec models.MoveRecord) error
}

const journalTimeout = 2 * time.Second

// Move is one inbound move as claimed by the client.
type Move struct {
	// CurrentPlayerID is the participant the client believes holds the turn, as sent.
	CurrentPlayerID string
	Dice            json.RawMessage
	// Points holds the submitted board per seat; entries for seats beyond the joined ones are ignored.
	Points [models.MaxSeats]models.Points
}

// Engine applies moves. Moves on the same match are serialized; different matches run in parallel.
type Engine struct {
	store       Store
	cache       ProfileCache
	broadcaster Broadcaster
	logger      logrus.FieldLogger
	locks       *matchLocks

	// Journal, if set, is handed every accepted move asynchronously.
	Journal Journal

	now func() time.Time
}

// NewEngine wires an engine to its collaborators.
func NewEngine(store Store, cache ProfileCache, broadcaster Broadcaster, logger logrus.FieldLogger) *Engine {
	return &Engine{
		store:       store,
		cache:       cache,
		broadcaster: broadcaster,
		logger:      logger,
		locks:       newMatchLocks(),
		now:         time.Now,
	}
}

// Join checks that playerID holds a seat in matchID and hands attach the snapshot to greet it
// with. attach runs with the match locked, so no move is applied and broadcast between the load
// and the registration attach performs.
func (e *Engine) Join(ctx context.Context, matchID, playerID uuid.UUID, attach func(*Snapshot)) error {
	unlock := e.locks.lock(matchID)
	defer unlock()

	st, err := e.store.GetMatchState(ctx, matchID)
	if err != nil {
		return err
	}
	if _, ok := st.Match.SeatOf(playerID); !ok {
		return ErrNotSeated
	}
	attach(NewSnapshot(st))
	return nil
}

// ApplyMove validates mv from actor against the current state of matchID and applies it.
// A *RejectionError means the move was refused and nothing changed. On success the new
// snapshot has already been broadcast to every seat and is returned.
func (e *Engine) ApplyMove(ctx context.Context, matchID, actor uuid.UUID, mv Move) (*Snapshot, error) {
	if strings.TrimSpace(mv.CurrentPlayerID) == "" || isNull(mv.Dice) {
		return nil, reject(ReasonMissingFields)
	}

	unlock := e.locks.lock(matchID)
	defer unlock()

	st, err := e.store.GetMatchState(ctx, matchID)
	if errors.Is(err, database.ErrMatchNotFound) {
		return nil, reject(ReasonMatchNotFound)
	}
	if err != nil {
		return nil, err
	}

	dice, err := validate(st, actor, mv)
	if err != nil {
		return nil, err
	}

	log := e.logger.WithFields(logrus.Fields{
		"match_id":  matchID,
		"player_id": actor,
		"seat":      st.Turn.CurrentSeat,
	})

	joined := st.Match.JoinedSeats()
	var points [models.MaxSeats]models.Points
	for _, s := range joined {
		points[s-1] = mv.Points[s-1]
	}

	rec := models.MoveRecord{
		MatchID:   matchID,
		PlayerID:  actor,
		Seat:      st.Turn.CurrentSeat,
		Dice:      dice,
		Points:    points,
		Timestamp: e.now().UnixMilli(),
	}

	written := *st
	if winner, ok := Winner(joined, points); ok {
		if err := e.settle(ctx, st, winner, points); err != nil {
			if errors.Is(err, database.ErrMatchNotActive) {
				return nil, reject(ReasonMatchFinished)
			}
			return nil, err
		}
		rec.Winner = true
		written.Match.Status = models.MatchCompleted
		written.Match.Winner = uuid.NullUUID{UUID: st.Match.PlayerAt(winner), Valid: true}
		written.Turn.Points = points
	} else {
		next := models.TurnState{
			CurrentSeat: NextSeat(joined, st.Turn.CurrentSeat, dice),
			LastDice:    &dice,
			Points:      points,
		}
		if err := e.store.SaveTurn(ctx, &st.Match, next); err != nil {
			if errors.Is(err, database.ErrMatchNotActive) {
				return nil, reject(ReasonMatchFinished)
			}
			return nil, err
		}
		written.Turn = next
		log.Debugf("dice %d, turn passes to seat %d", dice, next.CurrentSeat)
	}
	e.journal(ctx, rec)

	fresh, err := e.store.GetMatchState(ctx, matchID)
	if err != nil {
		log.Warnf("reload after move failed, broadcasting the written state: %v", err)
		fresh = &written
	}
	snap := NewSnapshot(fresh)
	e.broadcaster.SendToParticipants(ctx, fresh.Match.ParticipantIDs(), snap)
	return snap, nil
}

// validate runs the move checks in order and returns the parsed dice.
func validate(st *models.MatchState, actor uuid.UUID, mv Move) (int, error) {
	if st.Match.Completed() {
		return 0, reject(ReasonMatchFinished)
	}
	claim, err := uuid.Parse(strings.TrimSpace(mv.CurrentPlayerID))
	if err != nil || claim != st.CurrentPlayer() {
		return 0, reject(ReasonNotYourTurn)
	}
	if actor != claim {
		return 0, reject(ReasonOtherPlayer)
	}
	dice, ok := ParseDice(mv.Dice)
	if !ok {
		return 0, reject(ReasonInvalidDice)
	}
	for _, s := range st.Match.JoinedSeats() {
		p := mv.Points[s-1]
		if p == nil {
			return 0, reject(ReasonMissingFields)
		}
		if !p.Valid() {
			return 0, reject(ReasonInvalidPoints)
		}
	}
	return dice, nil
}

// journal records an accepted move. It runs under the match lock so indexes follow move order;
// a failure is logged and never fails the move.
func (e *Engine) journal(ctx context.Context, rec models.MoveRecord) {
	if e.Journal == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), journalTimeout)
	defer cancel()
	if err := e.Journal.PublishMove(ctx, rec); err != nil {
		e.logger.WithField("match_id", rec.MatchID).Warnf("failed to journal move: %v", err)
	}
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}
