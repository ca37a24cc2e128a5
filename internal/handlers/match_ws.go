// internal/handlers/match_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/jason-s-yu/ludo/internal/database"
	"github.com/jason-s-yu/ludo/internal/match"
	"github.com/jason-s-yu/ludo/internal/middleware"
	"github.com/jason-s-yu/ludo/internal/models"
	"github.com/sirupsen/logrus"
)

// ReasonInternal is replied when a move failed for a reason other than validation.
const ReasonInternal = "Internal server error"

// MoveMessage is the inbound move frame.
type MoveMessage struct {
	CurrentPlayerID string          `json:"current_player_id"`
	Dice            json.RawMessage `json:"dice"`
	Player1Point    models.Points   `json:"player1_point"`
	Player2Point    models.Points   `json:"player2_point"`
	Player3Point    models.Points   `json:"player3_point"`
	Player4Point    models.Points   `json:"player4_point"`
}

func (m MoveMessage) toMove() match.Move {
	return match.Move{
		CurrentPlayerID: m.CurrentPlayerID,
		Dice:            m.Dice,
		Points:          [models.MaxSeats]models.Points{m.Player1Point, m.Player2Point, m.Player3Point, m.Player4Point},
	}
}

// wsConn adapts a websocket connection to the registry.
type wsConn struct {
	c *websocket.Conn
}

func (w *wsConn) Send(ctx context.Context, data []byte) error {
	return w.c.Write(ctx, websocket.MessageText, data)
}

// MatchWSHandler upgrades the request for a match connection.
// The caller is identified by its bearer credential and attached to the match named by the match_id query parameter.
// It is greeted with the current snapshot and then submits moves until it disconnects.
func MatchWSHandler(logger *logrus.Logger, ms *MatchServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: ms.OriginPatterns,
		})
		if err != nil {
			logger.WithField("remote", r.RemoteAddr).Warnf("WebSocket accept error: %v", err)
			return
		}
		defer c.CloseNow()

		token, err := credential(r)
		if err != nil {
			c.Close(MissingAuthTokenError, "Missing auth token")
			return
		}
		playerID, err := ms.Auth.AuthenticateJWT(token)
		if err != nil {
			logger.WithField("remote", r.RemoteAddr).Warnf("rejecting match connection: %v", err)
			c.Close(InvalidAuthTokenError, "Invalid auth token")
			return
		}

		matchID, err := uuid.Parse(r.URL.Query().Get("match_id"))
		if err != nil {
			c.Close(InvalidMatchIDError, "Invalid match_id")
			return
		}

		ctx := r.Context()
		conn := &wsConn{c: c}
		attached := false
		err = ms.Engine.Join(ctx, matchID, playerID, func(snap *match.Snapshot) {
			attached = ms.Registry.Connect(ctx, playerID, conn, snap)
		})
		switch {
		case errors.Is(err, database.ErrMatchNotFound):
			c.Close(InvalidMatchIDError, "Match not found")
			return
		case errors.Is(err, match.ErrNotSeated):
			c.Close(NotSeatedError, "User not part of the match")
			return
		case err != nil:
			logger.WithFields(logrus.Fields{
				"match_id":  matchID,
				"player_id": playerID,
			}).Errorf("match connection setup failed: %v", err)
			c.Close(SetupFailedError, closeReason(err.Error()))
			return
		case !attached:
			// dropped by the registry, so it would never see a broadcast
			c.Close(SetupFailedError, "Initial snapshot not delivered")
			return
		}
		middleware.LogWebSocketConnect(logger, r.RemoteAddr, matchID, playerID)

		err = ms.readMoves(ctx, conn, matchID, playerID, logger)

		ms.Registry.Disconnect(playerID, conn)
		middleware.LogWebSocketDisconnect(logger, r.RemoteAddr, matchID, playerID, err)
		c.Close(websocket.StatusNormalClosure, "")
	}
}

// readMoves runs the read loop for one connection. It returns nil when the peer closed normally.
func (ms *MatchServer) readMoves(ctx context.Context, conn *wsConn, matchID, playerID uuid.UUID, logger *logrus.Logger) error {
	log := logger.WithFields(logrus.Fields{
		"match_id":  matchID,
		"player_id": playerID,
	})
	for {
		msgType, data, err := conn.c.Read(ctx)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return nil
			}
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}

		if msgType != websocket.MessageText {
			ms.replyError(ctx, conn, match.ReasonInvalidFormat, log)
			continue
		}

		var msg MoveMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Debugf("invalid move frame: %v", err)
			ms.replyError(ctx, conn, match.ReasonInvalidFormat, log)
			continue
		}

		// a move that reached the engine completes even if this connection drops meanwhile
		if _, err := ms.Engine.ApplyMove(context.WithoutCancel(ctx), matchID, playerID, msg.toMove()); err != nil {
			if reason, ok := match.RejectionReason(err); ok {
				log.Debugf("move rejected: %s", reason)
				ms.replyError(ctx, conn, reason, log)
				continue
			}
			log.Errorf("failed to apply move: %v", err)
			ms.replyError(ctx, conn, ReasonInternal, log)
		}
	}
}

// replyError sends {"error": reason} to the acting connection only.
func (ms *MatchServer) replyError(ctx context.Context, conn *wsConn, reason string, log logrus.FieldLogger) {
	data, err := json.Marshal(map[string]string{"error": reason})
	if err != nil {
		log.Errorf("failed to marshal error reply: %v", err)
		return
	}
	timeout := ms.SendTimeout
	if timeout <= 0 {
		timeout = defaultSendTimeout
	}
	writeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := conn.Send(writeCtx, data); err != nil {
		log.Warnf("failed to write error reply: %v", err)
	}
}
