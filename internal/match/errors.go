package match

import "errors"

// Rejection reasons, sent verbatim to the acting connection as {"error": reason}.
const (
	ReasonMissingFields = "Missing required fields"
	ReasonMatchFinished = "Match already finished"
	ReasonMatchNotFound = "Match not found"
	ReasonNotYourTurn   = "Not your turn"
	ReasonOtherPlayer   = "Cannot play for another player"
	ReasonInvalidDice   = "Invalid dice value"
	ReasonInvalidPoints = "Invalid points"
	ReasonInvalidFormat = "Invalid message format"
)

// ErrNotSeated is returned by Join when the participant holds no seat in the match.
var ErrNotSeated = errors.New("user not part of the match")

// RejectionError is a move that failed validation. Nothing was mutated.
type RejectionError struct {
	Reason string
}

func (e *RejectionError) Error() string {
	return e.Reason
}

func reject(reason string) error {
	return &RejectionError{Reason: reason}
}

// RejectionReason returns the wire reason if err is a move rejection.
func RejectionReason(err error) (string, bool) {
	var rej *RejectionError
	if errors.As(err, &rej) {
		return rej.Reason, true
	}
	return "", false
}
