// internal/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/ludo/internal/models"
	"github.com/redis/go-redis/v9"
)

// DefaultQueueName is the Redis list the move journal is pushed to.
const DefaultQueueName = "ludo_moves"

// Client wraps the Redis connection used for profile caching and the move journal.
type Client struct {
	Rdb       *redis.Client
	QueueName string
}

// Connect dials Redis at addr and checks it answers.
func Connect(ctx context.Context, addr string, db int, queueName string) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return NewClient(rdb, queueName), nil
}

// NewClient wraps an existing redis client.
func NewClient(rdb *redis.Client, queueName string) *Client {
	if queueName == "" {
		queueName = DefaultQueueName
	}
	return &Client{Rdb: rdb, QueueName: queueName}
}

// Close releases the underlying connection pool.
func (c *Client) Close() error {
	return c.Rdb.Close()
}

// ProfileKey is the cache key of a player's profile read model.
func ProfileKey(playerID uuid.UUID) string {
	return "player_profile_" + playerID.String()
}

func moveSeqKey(matchID uuid.UUID) string {
	return "ludo_move_seq:" + matchID.String()
}

// InvalidatePlayerProfile drops the cached profile of playerID so the next read sees fresh balances.
func (c *Client) InvalidatePlayerProfile(ctx context.Context, playerID uuid.UUID) error {
	if err := c.Rdb.Del(ctx, ProfileKey(playerID)).Err(); err != nil {
		return fmt.Errorf("failed to delete profile cache for %s: %w", playerID, err)
	}
	return nil
}

// PublishMove numbers the record within its match and pushes it onto the journal queue.
func (c *Client) PublishMove(ctx context.Context, rec models.MoveRecord) error {
	idx, err := c.Rdb.Incr(ctx, moveSeqKey(rec.MatchID)).Result()
	if err != nil {
		return fmt.Errorf("failed to number move for match %s: %w", rec.MatchID, err)
	}
	rec.MoveIndex = idx

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal MoveRecord: %w", err)
	}
	if err := c.Rdb.RPush(ctx, c.QueueName, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", c.QueueName, err)
	}
	return nil
}
