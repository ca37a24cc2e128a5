// internal/handlers/match_server.go
package handlers

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/ludo/internal/auth"
	"github.com/jason-s-yu/ludo/internal/match"
	"github.com/jason-s-yu/ludo/internal/registry"
)

// defaultSendTimeout bounds direct replies to the acting connection.
const defaultSendTimeout = 3 * time.Second

// Connections is the registry match sockets are attached to.
type Connections interface {
	Connect(ctx context.Context, participantID uuid.UUID, conn registry.Conn, initial interface{}) bool
	Disconnect(participantID uuid.UUID, conn registry.Conn)
}

// MatchServer holds what the match websocket endpoint needs to serve a connection.
type MatchServer struct {
	Engine   *match.Engine
	Registry Connections
	Auth     *auth.Verifier

	// SendTimeout bounds replies written directly to one connection.
	SendTimeout time.Duration
	// OriginPatterns are the hosts allowed to open a match connection from a browser.
	// Requests without an Origin header are always accepted.
	OriginPatterns []string
}

func NewMatchServer(engine *match.Engine, reg Connections, verifier *auth.Verifier) *MatchServer {
	return &MatchServer{
		Engine:      engine,
		Registry:    reg,
		Auth:        verifier,
		SendTimeout: defaultSendTimeout,
	}
}
