package database

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrMatchNotFound is returned when no match (or no turn state for it) exists.
	ErrMatchNotFound = errors.New("match not found")
	// ErrMatchNotActive is returned when a write targets a match that is already completed.
	ErrMatchNotActive = errors.New("match is not active")
	// ErrPlayerNotFound is returned when a participant record is missing.
	ErrPlayerNotFound = errors.New("player not found")
)

//go:embed schema.sql
var schema string

// ConnectDB opens a pgx pool on connStr and pings it.
func ConnectDB(ctx context.Context, connStr string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to parse pgx config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to create pgx pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}
	return pool, nil
}

// Store is the postgres-backed session store for matches, turn state and players.
type Store struct {
	DB *pgxpool.Pool
}

// NewStore wraps pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{DB: pool}
}

// Migrate creates the tables the service needs if they do not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.DB.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func (s *Store) inTx(ctx context.Context, f func(tx pgx.Tx) error) error {
	return pgx.BeginTxFunc(ctx, s.DB, pgx.TxOptions{}, f)
}
