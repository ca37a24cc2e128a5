// internal/historian/historian.go
package historian

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jason-s-yu/ludo/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Sink persists a batch of journaled moves. Implementations must tolerate a batch being written twice.
type Sink interface {
	InsertMoveRecords(ctx context.Context, recs []models.MoveRecord) error
}

// Service drains the move journal queue into a Sink. A batch is flushed once it holds BatchSize
// records or FlushDelay has passed since the last flush, whichever comes first.
type Service struct {
	rdb    *redis.Client
	queue  string
	sink   Sink
	logger logrus.FieldLogger

	BatchSize  int
	FlushDelay time.Duration
	// PopTimeout bounds each blocking pop so shutdown and timed flushes are noticed.
	PopTimeout time.Duration
	// MaxPending caps how many records are kept while the sink keeps failing. Oldest are dropped first.
	MaxPending int

	batch     []models.MoveRecord
	lastFlush time.Time
}

// New returns a Service reading queue on rdb.
func New(rdb *redis.Client, queue string, sink Sink, logger logrus.FieldLogger) *Service {
	return &Service{
		rdb:        rdb,
		queue:      queue,
		sink:       sink,
		logger:     logger,
		BatchSize:  20,
		FlushDelay: 500 * time.Millisecond,
		PopTimeout: time.Second,
		MaxPending: 1000,
	}
}

// Run pops records until ctx is cancelled, then flushes what it holds and returns.
// All batching happens on the calling goroutine.
func (s *Service) Run(ctx context.Context) error {
	s.lastFlush = time.Now()
	s.logger.WithField("queue", s.queue).Info("historian started")

	for {
		if ctx.Err() != nil {
			flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			s.flush(flushCtx)
			cancel()
			s.logger.Info("historian stopped")
			return nil
		}

		res, err := s.rdb.BLPop(ctx, s.PopTimeout, s.queue).Result()
		switch {
		case err == nil && len(res) == 2:
			// res[0] is the queue name and res[1] the payload.
			s.add(res[1])
		case err == nil, errors.Is(err, redis.Nil):
		case ctx.Err() != nil:
			continue
		default:
			s.logger.Errorf("BLPop %s: %v", s.queue, err)
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
		}

		if len(s.batch) >= s.BatchSize || (len(s.batch) > 0 && time.Since(s.lastFlush) >= s.FlushDelay) {
			s.flush(ctx)
		}
	}
}

func (s *Service) add(payload string) {
	var rec models.MoveRecord
	if err := json.Unmarshal([]byte(payload), &rec); err != nil {
		s.logger.Warnf("invalid move record: %v", err)
		return
	}
	s.batch = append(s.batch, rec)
	if s.MaxPending > 0 && len(s.batch) > s.MaxPending {
		dropped := len(s.batch) - s.MaxPending
		s.batch = append(s.batch[:0], s.batch[dropped:]...)
		s.logger.Errorf("dropped %d journaled moves, sink is not keeping up", dropped)
	}
}

// flush hands the batch to the sink. On failure the batch is kept for the next attempt.
func (s *Service) flush(ctx context.Context) {
	s.lastFlush = time.Now()
	if len(s.batch) == 0 {
		return
	}
	if err := s.sink.InsertMoveRecords(ctx, s.batch); err != nil {
		s.logger.Errorf("failed to flush %d moves: %v", len(s.batch), err)
		return
	}
	s.logger.Debugf("flushed %d moves", len(s.batch))
	s.batch = s.batch[:0]
}
