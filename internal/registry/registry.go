// Package registry tracks the live connections of every participant and fans messages out to them.
//
// A participant may hold several connections at once (tabs, devices). Every connection in a
// participant's bucket receives every message sent to that participant. A connection whose send
// fails is dropped from its bucket once the fan-out finishes, and an empty bucket is removed, so
// dead peers never poison later broadcasts.
package registry

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// DefaultSendTimeout bounds a single send when no timeout is configured.
const DefaultSendTimeout = 3 * time.Second

// Conn is one live connection. Send must be safe to call concurrently with itself, and Conn
// values must be comparable (pointers in practice) since they identify themselves on Disconnect.
type Conn interface {
	Send(ctx context.Context, data []byte) error
}

// bucket holds one participant's connections. removed is set once the bucket has been taken
// out of the registry map; a Connect that raced with the removal must look the bucket up again.
type bucket struct {
	mu      sync.Mutex
	conns   []Conn
	removed bool
}

// Registry maps participant identity to its set of live connections.
// Buckets of different participants are locked independently.
type Registry struct {
	mu      sync.Mutex
	buckets map[uuid.UUID]*bucket

	sendTimeout time.Duration
	logger      logrus.FieldLogger
}

// New returns an empty registry. Each send is bounded by sendTimeout.
func New(logger logrus.FieldLogger, sendTimeout time.Duration) *Registry {
	if sendTimeout <= 0 {
		sendTimeout = DefaultSendTimeout
	}
	return &Registry{
		buckets:     make(map[uuid.UUID]*bucket),
		sendTimeout: sendTimeout,
		logger:      logger,
	}
}

// Connect registers conn under participantID and delivers initial to that connection only.
// A failed initial delivery unregisters the connection again and Connect reports false.
func (r *Registry) Connect(ctx context.Context, participantID uuid.UUID, conn Conn, initial interface{}) bool {
	for {
		b := r.bucketFor(participantID, true)
		b.mu.Lock()
		if b.removed {
			b.mu.Unlock()
			continue
		}
		b.conns = append(b.conns, conn)
		b.mu.Unlock()
		break
	}

	if initial == nil {
		return true
	}
	data, err := json.Marshal(initial)
	if err != nil {
		r.logger.WithField("player_id", participantID).Errorf("failed to marshal initial snapshot: %v", err)
		r.Disconnect(participantID, conn)
		return false
	}
	if err := r.send(ctx, conn, data); err != nil {
		r.logger.WithField("player_id", participantID).Warnf("initial snapshot not delivered, dropping connection: %v", err)
		r.Disconnect(participantID, conn)
		return false
	}
	return true
}

// Disconnect removes conn from participantID's bucket, and the bucket itself once empty.
// Removing a connection that is not registered is a no-op.
func (r *Registry) Disconnect(participantID uuid.UUID, conn Conn) {
	b := r.bucketFor(participantID, false)
	if b == nil {
		return
	}
	b.mu.Lock()
	b.conns = without(b.conns, map[Conn]struct{}{conn: {}})
	empty := len(b.conns) == 0
	b.mu.Unlock()

	if empty {
		r.dropIfEmpty(participantID, b)
	}
}

// SendToParticipant delivers message to every connection of participantID. Each connection is
// attempted independently; the ones that fail are pruned after the attempt completes.
func (r *Registry) SendToParticipant(ctx context.Context, participantID uuid.UUID, message interface{}) {
	b := r.bucketFor(participantID, false)
	if b == nil {
		return
	}
	data, err := json.Marshal(message)
	if err != nil {
		r.logger.WithField("player_id", participantID).Errorf("failed to marshal message: %v", err)
		return
	}
	r.fanOut(ctx, participantID, b, data)
}

// SendToParticipants applies SendToParticipant to each id, in order.
func (r *Registry) SendToParticipants(ctx context.Context, participantIDs []uuid.UUID, message interface{}) {
	data, err := json.Marshal(message)
	if err != nil {
		r.logger.Errorf("failed to marshal broadcast message: %v", err)
		return
	}
	for _, id := range participantIDs {
		if b := r.bucketFor(id, false); b != nil {
			r.fanOut(ctx, id, b, data)
		}
	}
}

// ConnectionCount returns how many live connections participantID has.
func (r *Registry) ConnectionCount(participantID uuid.UUID) int {
	b := r.bucketFor(participantID, false)
	if b == nil {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.conns)
}

// Participants returns how many participants have at least one live connection.
func (r *Registry) Participants() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.buckets)
}

func (r *Registry) bucketFor(participantID uuid.UUID, create bool) *bucket {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.buckets[participantID]
	if !ok && create {
		b = &bucket{}
		r.buckets[participantID] = b
	}
	return b
}

// dropIfEmpty removes b from the map if it is still the participant's bucket and still empty.
// Lock order is registry then bucket.
func (r *Registry) dropIfEmpty(participantID uuid.UUID, b *bucket) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.conns) != 0 || b.removed {
		return
	}
	if r.buckets[participantID] == b {
		delete(r.buckets, participantID)
	}
	b.removed = true
}

// fanOut sends data to a snapshot of the bucket's connections in parallel, so one slow peer
// cannot hold up the others, then prunes the ones that failed.
func (r *Registry) fanOut(ctx context.Context, participantID uuid.UUID, b *bucket, data []byte) {
	b.mu.Lock()
	conns := make([]Conn, len(b.conns))
	copy(conns, b.conns)
	b.mu.Unlock()
	if len(conns) == 0 {
		return
	}

	var (
		wg     sync.WaitGroup
		deadMu sync.Mutex
		dead   = make(map[Conn]struct{})
	)
	for _, c := range conns {
		wg.Add(1)
		go func(c Conn) {
			defer wg.Done()
			if err := r.send(ctx, c, data); err != nil {
				r.logger.WithField("player_id", participantID).Warnf("dropping connection after failed send: %v", err)
				deadMu.Lock()
				dead[c] = struct{}{}
				deadMu.Unlock()
			}
		}(c)
	}
	wg.Wait()

	if len(dead) == 0 {
		return
	}
	b.mu.Lock()
	b.conns = without(b.conns, dead)
	empty := len(b.conns) == 0
	b.mu.Unlock()
	if empty {
		r.dropIfEmpty(participantID, b)
	}
}

// send is bounded by the registry timeout only: a broadcast triggered from one connection's
// request must still reach the others after that connection goes away.
func (r *Registry) send(ctx context.Context, c Conn, data []byte) error {
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.sendTimeout)
	defer cancel()
	return c.Send(sendCtx, data)
}

func without(conns []Conn, drop map[Conn]struct{}) []Conn {
	kept := conns[:0]
	for _, c := range conns {
		if _, ok := drop[c]; !ok {
			kept = append(kept, c)
		}
	}
	// clear the tail so dropped connections can be collected
	for i := len(kept); i < len(conns); i++ {
		conns[i] = nil
	}
	return kept
}
