// internal/handlers/ws_codes.go
package handlers

import "github.com/coder/websocket"

// Close codes sent when a match connection is refused during setup.
const (
	MissingAuthTokenError websocket.StatusCode = 4001 // No bearer credential on the upgrade request.
	InvalidAuthTokenError websocket.StatusCode = 4002 // Credential did not verify or named no participant.
	InvalidMatchIDError   websocket.StatusCode = 4003 // match_id missing, malformed, or unknown.
	NotSeatedError        websocket.StatusCode = 4004 // Participant holds no seat in the match.
	SetupFailedError      websocket.StatusCode = 4005 // Anything else; the reason carries the error text.
)

// maxCloseReason is the longest close reason the protocol allows in a close frame.
const maxCloseReason = 123

func closeReason(s string) string {
	if len(s) > maxCloseReason {
		return s[:maxCloseReason]
	}
	return s
}
