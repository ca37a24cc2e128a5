package match

import (
	"github.com/google/uuid"
	"github.com/jason-s-yu/ludo/internal/models"
)

// SnapshotType tags every state message pushed to clients.
const SnapshotType = "play_update"

// Snapshot is the state message sent on connect and after every accepted move.
// Data is a *PlayUpdate while the match is active and a *MatchFinished once it is completed.
type Snapshot struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// PlayUpdate is the board state of an active match.
type PlayUpdate struct {
	MatchID         uuid.UUID     `json:"match_id"`
	CurrentPlayerID uuid.UUID     `json:"current_player_id"`
	Dice            *int          `json:"dice"`
	Player1Points   models.Points `json:"player1_points"`
	Player2Points   models.Points `json:"player2_points"`
	Player3Points   models.Points `json:"player3_points"`
	Player4Points   models.Points `json:"player4_points"`
	WinnerID        uuid.NullUUID `json:"winner_id"`
}

// MatchFinished is sent in place of the board once the match is completed.
type MatchFinished struct {
	Message  string        `json:"message"`
	WinnerID uuid.NullUUID `json:"winner_id"`
}

// NewSnapshot builds the client view of st.
func NewSnapshot(st *models.MatchState) *Snapshot {
	if st.Match.Completed() {
		return &Snapshot{
			Type: SnapshotType,
			Data: &MatchFinished{
				Message:  "Match finished",
				WinnerID: st.Match.Winner,
			},
		}
	}
	return &Snapshot{
		Type: SnapshotType,
		Data: &PlayUpdate{
			MatchID:         st.Match.ID,
			CurrentPlayerID: st.CurrentPlayer(),
			Dice:            st.Turn.LastDice,
			Player1Points:   st.Turn.Points[0],
			Player2Points:   st.Turn.Points[1],
			Player3Points:   st.Turn.Points[2],
			Player4Points:   st.Turn.Points[3],
			WinnerID:        st.Match.Winner,
		},
	}
}
