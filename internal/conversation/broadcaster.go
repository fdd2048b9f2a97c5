// ABOUTME: In-memory fan-out broadcaster for orchestrator state changes
// ABOUTME: Publishes Change values to all subscribers of a topic

package conversation

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

const (
	// subscriberBufferSize is the channel buffer for each subscriber.
	// Sized for a burst of streaming deltas between two reads.
	subscriberBufferSize = 256
)

// EventBroadcaster provides in-memory pub/sub for orchestrator changes.
// Subscribers register for a topic (TopicMission or a SessionTopic) and
// receive changes as they happen, so a CLI can render without polling.
type EventBroadcaster struct {
	mu          sync.RWMutex
	subscribers map[string]map[string]chan Change // topic -> subID -> ch
	logger      *slog.Logger
}

// NewEventBroadcaster creates a broadcaster. Pass nil logger for default.
func NewEventBroadcaster(logger *slog.Logger) *EventBroadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventBroadcaster{
		subscribers: make(map[string]map[string]chan Change),
		logger:      logger.With("component", "broadcaster"),
	}
}

// Subscribe registers a subscriber for changes on the given topic.
// Returns a channel that receives changes and a subscription ID for later
// unsubscription. The subscription is automatically cleaned up when ctx is
// cancelled.
func (b *EventBroadcaster) Subscribe(ctx context.Context, topic string) (<-chan Change, string) {
	subID := uuid.New().String()
	ch := make(chan Change, subscriberBufferSize)

	b.mu.Lock()
	if _, ok := b.subscribers[topic]; !ok {
		b.subscribers[topic] = make(map[string]chan Change)
	}
	b.subscribers[topic][subID] = ch
	b.mu.Unlock()

	b.logger.Debug("subscriber added",
		"topic", topic,
		"sub_id", subID)

	// Auto-cleanup on context cancellation
	go func() {
		<-ctx.Done()
		b.Unsubscribe(topic, subID)
	}()

	return ch, subID
}

// Publish sends a change to all subscribers of the given topic.
// If excludeSubID is non-empty, that subscriber is skipped (used to avoid
// echoing a change back to the client that caused it).
// Non-blocking: changes are dropped for subscribers whose channels are full.
func (b *EventBroadcaster) Publish(topic string, change Change, excludeSubID string) {
	// Sends are non-blocking, so the read lock is held across them. That keeps
	// Unsubscribe from closing a channel mid-send.
	b.mu.RLock()
	defer b.mu.RUnlock()

	for id, ch := range b.subscribers[topic] {
		if excludeSubID != "" && id == excludeSubID {
			continue
		}
		select {
		case ch <- change:
			// Sent
		default:
			// Subscriber channel full, drop change for this subscriber
			b.logger.Debug("dropped change for slow subscriber",
				"topic", topic,
				"kind", change.Kind)
		}
	}
}

// Unsubscribe removes a subscription and closes its channel.
func (b *EventBroadcaster) Unsubscribe(topic, subID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs, ok := b.subscribers[topic]
	if !ok {
		return
	}

	ch, exists := subs[subID]
	if !exists {
		return
	}

	delete(subs, subID)
	close(ch)

	// Clean up empty topic entries
	if len(subs) == 0 {
		delete(b.subscribers, topic)
	}

	b.logger.Debug("subscriber removed",
		"topic", topic,
		"sub_id", subID)
}

// Close shuts down the broadcaster and closes all subscriber channels.
func (b *EventBroadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for topic, subs := range b.subscribers {
		for subID, ch := range subs {
			close(ch)
			delete(subs, subID)
		}
		delete(b.subscribers, topic)
	}

	b.logger.Debug("broadcaster closed")
}
