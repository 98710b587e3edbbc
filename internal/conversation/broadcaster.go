// ABOUTME: In-memory fan-out of session state snapshots to presentation subscribers
// ABOUTME: Slow subscribers miss snapshots instead of blocking the session

package conversation

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

const (
	// subscriberBufferSize is the channel buffer for each subscriber.
	subscriberBufferSize = 64
)

// StateBroadcaster provides in-memory pub/sub for session snapshots.
type StateBroadcaster struct {
	mu          sync.RWMutex
	subscribers map[string]chan State // subID -> ch
	closed      bool
	logger      *slog.Logger
}

// NewStateBroadcaster creates a broadcaster. Pass nil logger for default.
func NewStateBroadcaster(logger *slog.Logger) *StateBroadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &StateBroadcaster{
		subscribers: make(map[string]chan State),
		logger:      logger.With("component", "broadcaster"),
	}
}

// Subscribe registers a subscriber. Returns a channel that receives
// snapshots and a subscription ID for later unsubscription. The subscription
// is automatically cleaned up when ctx is cancelled.
func (b *StateBroadcaster) Subscribe(ctx context.Context) (<-chan State, string) {
	subID := uuid.New().String()
	ch := make(chan State, subscriberBufferSize)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(ch)
		return ch, subID
	}
	b.subscribers[subID] = ch
	b.mu.Unlock()

	b.logger.Debug("subscriber added", "sub_id", subID)

	// Auto-cleanup on context cancellation
	go func() {
		<-ctx.Done()
		b.Unsubscribe(subID)
	}()

	return ch, subID
}

// Publish sends a snapshot to all subscribers.
// Non-blocking: snapshots are dropped for subscribers whose channels are full.
func (b *StateBroadcaster) Publish(state State) {
	// Sends happen under the read lock so Unsubscribe cannot close a channel mid-send
	b.mu.RLock()
	defer b.mu.RUnlock()

	for id, ch := range b.subscribers {
		select {
		case ch <- state:
		default:
			b.logger.Debug("dropped snapshot for slow subscriber",
				"sub_id", id,
				"phase", state.Phase)
		}
	}
}

// Unsubscribe removes a subscription and closes its channel.
func (b *StateBroadcaster) Unsubscribe(subID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch, exists := b.subscribers[subID]
	if !exists {
		return
	}

	delete(b.subscribers, subID)
	close(ch)

	b.logger.Debug("subscriber removed", "sub_id", subID)
}

// Close shuts down the broadcaster and closes all subscriber channels.
func (b *StateBroadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for subID, ch := range b.subscribers {
		close(ch)
		delete(b.subscribers, subID)
	}
	b.closed = true

	b.logger.Debug("broadcaster closed")
}
