package match

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/jason-s-yu/ludo/internal/models"
)

// KeepTurnRoll is the dice value that lets the acting seat move again.
const KeepTurnRoll = 6

// NextSeat returns the seat holding the turn after current rolls dice. Joined seats are walked
// in order and wrap back to the first one.
func NextSeat(joined []models.Seat, current models.Seat, dice int) models.Seat {
	if dice == KeepTurnRoll || len(joined) == 0 {
		return current
	}
	for i, s := range joined {
		if s == current {
			return joined[(i+1)%len(joined)]
		}
	}
	return joined[0]
}

// Winner returns the first joined seat, in seat order, whose submitted points are all home.
func Winner(joined []models.Seat, points [models.MaxSeats]models.Points) (models.Seat, bool) {
	for _, s := range joined {
		if points[s-1].AtHome() {
			return s, true
		}
	}
	return 0, false
}

// ParseDice reads a dice value sent either as a JSON number or as a numeric string.
// Numbers may carry an integral fraction or exponent (3.0, 3e0); strings must be plain integers.
// Fractional values, other types and values outside 1..6 are rejected.
func ParseDice(raw json.RawMessage) (int, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, false
	}

	var v int
	if raw[0] == '"' {
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			return 0, false
		}
		n, err := strconv.Atoi(strings.TrimSpace(text))
		if err != nil {
			return 0, false
		}
		v = n
	} else {
		var f float64
		if err := json.Unmarshal(raw, &f); err != nil || f != math.Trunc(f) || f < 1 || f > 6 {
			return 0, false
		}
		v = int(f)
	}

	if v < 1 || v > 6 {
		return 0, false
	}
	return v, true
}

// PayoutFor computes what the winner of m is credited with.
func PayoutFor(m *models.Match) models.Payout {
	if m.GameKind == models.GameBonus {
		return models.Payout{Bonus: m.WinningAmount}
	}
	return models.Payout{
		WithdrawableCoin: m.WinningAmount - m.Fee,
		Coin:             m.WinningAmount,
	}
}
