// internal/middleware/logging.go

package middleware

import (
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// LogMiddleware logs each request with its status and duration.
// Upgraded websocket requests are logged when the connection ends.
func LogMiddleware(logger logrus.FieldLogger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			logger.WithFields(logrus.Fields{
				"method":   r.Method,
				"path":     r.URL.Path,
				"status":   ww.Status(),
				"duration": time.Since(start),
				"remote":   r.RemoteAddr,
			}).Info("HTTP Request")
		})
	}
}

// LogWebSocketConnect logs a participant attaching to a match.
func LogWebSocketConnect(logger logrus.FieldLogger, remoteAddr string, matchID, playerID uuid.UUID) {
	logger.WithFields(logrus.Fields{
		"remote":    remoteAddr,
		"match_id":  matchID,
		"player_id": playerID,
	}).Info("WebSocket connected")
}

// LogWebSocketDisconnect logs a participant detaching. err is the read error that ended the session, if any.
func LogWebSocketDisconnect(logger logrus.FieldLogger, remoteAddr string, matchID, playerID uuid.UUID, err error) {
	fields := logrus.Fields{
		"remote":    remoteAddr,
		"match_id":  matchID,
		"player_id": playerID,
	}
	if err != nil {
		fields["error"] = err
	}
	logger.WithFields(fields).Info("WebSocket disconnected")
}
