package models

import "github.com/google/uuid"

// Points holds the board position of each of a seat's tokens.
type Points []int

// AtHome reports whether every token has reached HomeSquare.
func (p Points) AtHome() bool {
	if len(p) != TokensPerSeat {
		return false
	}
	for _, v := range p {
		if v != HomeSquare {
			return false
		}
	}
	return true
}

// Valid reports whether p has one in-range position per token.
func (p Points) Valid() bool {
	if len(p) != TokensPerSeat {
		return false
	}
	for _, v := range p {
		if v < 0 || v > HomeSquare {
			return false
		}
	}
	return true
}

// TurnState is the match_status row: whose turn it is and where every token stands.
// Points is indexed by seat-1; entries for absent seats are nil.
type TurnState struct {
	CurrentSeat Seat             `json:"current_seat"`
	LastDice    *int             `json:"dice"`
	Points      [MaxSeats]Points `json:"points"`
}

// MatchState is the read-consistent view of a match and its turn state, loaded in one go.
type MatchState struct {
	Match Match
	Turn  TurnState
}

// CurrentPlayer returns the participant holding the turn.
func (s *MatchState) CurrentPlayer() uuid.UUID {
	return s.Match.PlayerAt(s.Turn.CurrentSeat)
}

// Settlement is everything persisted atomically when a match is won.
type Settlement struct {
	MatchID    uuid.UUID
	WinnerSeat Seat
	WinnerID   uuid.UUID
	Payout     Payout
	Points     [MaxSeats]Points
}

// MoveRecord is one accepted move, as published to the move journal.
type MoveRecord struct {
	MatchID   uuid.UUID        `json:"match_id"`
	MoveIndex int64            `json:"move_index"`
	PlayerID  uuid.UUID        `json:"player_id"`
	Seat      Seat             `json:"seat"`
	Dice      int              `json:"dice"`
	Points    [MaxSeats]Points `json:"points"`
	Winner    bool             `json:"winner"`
	Timestamp int64            `json:"timestamp"`
}
