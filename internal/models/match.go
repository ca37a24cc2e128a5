// internal/models/match.go
package models

import (
	"github.com/google/uuid"
)

// Seat is a 1-based turn-order slot within a match.
type Seat int

const (
	Seat1 Seat = iota + 1
	Seat2
	Seat3
	Seat4
)

const (
	// MaxSeats is the number of seats a board has.
	MaxSeats = 4
	// MinSeats is the smallest number of joined seats a match may have.
	MinSeats = 2
	// TokensPerSeat is the number of tokens each seat moves around the board.
	TokensPerSeat = 4
	// HomeSquare is the board position of a token that has reached home.
	HomeSquare = 56
)

// MatchStatus is the lifecycle state of a match.
type MatchStatus string

const (
	MatchActive    MatchStatus = "active"
	MatchCompleted MatchStatus = "completed"
)

// GameKind decides which balance a winner is credited with.
type GameKind string

const (
	GameBonus  GameKind = "bonus"
	GameStaked GameKind = "staked"
)

// Match is a row in the matches table. Players holds the seated participant per seat,
// uuid.Nil for seats beyond JoinedPlayers.
type Match struct {
	ID            uuid.UUID           `json:"id"`
	Players       [MaxSeats]uuid.UUID `json:"players"`
	JoinedPlayers int                 `json:"joined_players"`
	Status        MatchStatus         `json:"status"`
	Winner        uuid.NullUUID       `json:"winner"`
	GameKind      GameKind            `json:"game_kind"`
	WinningAmount int64               `json:"winning_amount"`
	Fee           int64               `json:"fee"`
}

// Completed reports whether the match has been settled.
func (m *Match) Completed() bool {
	return m.Status == MatchCompleted
}

// JoinedSeats returns the joined seats in turn order.
func (m *Match) JoinedSeats() []Seat {
	n := m.JoinedPlayers
	if n > MaxSeats {
		n = MaxSeats
	}
	seats := make([]Seat, 0, n)
	for i := 0; i < n; i++ {
		if m.Players[i] == uuid.Nil {
			break
		}
		seats = append(seats, Seat(i+1))
	}
	return seats
}

// PlayerAt returns the participant in seat s, or uuid.Nil when the seat is absent.
func (m *Match) PlayerAt(s Seat) uuid.UUID {
	if s < Seat1 || int(s) > MaxSeats {
		return uuid.Nil
	}
	return m.Players[s-1]
}

// SeatOf returns the joined seat held by playerID.
func (m *Match) SeatOf(playerID uuid.UUID) (Seat, bool) {
	if playerID == uuid.Nil {
		return 0, false
	}
	for _, s := range m.JoinedSeats() {
		if m.Players[s-1] == playerID {
			return s, true
		}
	}
	return 0, false
}

// ParticipantIDs returns the participants of every joined seat, in seat order.
func (m *Match) ParticipantIDs() []uuid.UUID {
	seats := m.JoinedSeats()
	ids := make([]uuid.UUID, 0, len(seats))
	for _, s := range seats {
		ids = append(ids, m.Players[s-1])
	}
	return ids
}

// WinnerSeat returns the seat of the recorded winner, if any.
func (m *Match) WinnerSeat() (Seat, bool) {
	if !m.Winner.Valid {
		return 0, false
	}
	return m.SeatOf(m.Winner.UUID)
}
