package cache

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/jason-s-yu/ludo/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := NewClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "")
	t.Cleanup(func() { c.Close() })
	return c, mr
}

func TestInvalidatePlayerProfile(t *testing.T) {
	c, mr := newTestClient(t)
	id := uuid.New()
	other := uuid.New()
	require.NoError(t, mr.Set(ProfileKey(id), `{"coin":10}`))
	require.NoError(t, mr.Set(ProfileKey(other), `{"coin":20}`))

	require.NoError(t, c.InvalidatePlayerProfile(context.Background(), id))

	assert.False(t, mr.Exists(ProfileKey(id)))
	assert.True(t, mr.Exists(ProfileKey(other)))
}

func TestInvalidateMissingProfileIsNotAnError(t *testing.T) {
	c, _ := newTestClient(t)
	assert.NoError(t, c.InvalidatePlayerProfile(context.Background(), uuid.New()))
}

func TestPublishMoveNumbersPerMatch(t *testing.T) {
	c, mr := newTestClient(t)
	ctx := context.Background()
	m1, m2 := uuid.New(), uuid.New()

	require.NoError(t, c.PublishMove(ctx, models.MoveRecord{MatchID: m1, Dice: 3}))
	require.NoError(t, c.PublishMove(ctx, models.MoveRecord{MatchID: m1, Dice: 6}))
	require.NoError(t, c.PublishMove(ctx, models.MoveRecord{MatchID: m2, Dice: 1}))

	items, err := mr.List(DefaultQueueName)
	require.NoError(t, err)
	require.Len(t, items, 3)

	var recs []models.MoveRecord
	for _, it := range items {
		var rec models.MoveRecord
		require.NoError(t, json.Unmarshal([]byte(it), &rec))
		recs = append(recs, rec)
	}
	assert.Equal(t, int64(1), recs[0].MoveIndex)
	assert.Equal(t, int64(2), recs[1].MoveIndex)
	assert.Equal(t, 6, recs[1].Dice)
	assert.Equal(t, int64(1), recs[2].MoveIndex)
	assert.Equal(t, m2, recs[2].MatchID)
}
