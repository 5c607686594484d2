// Package eventbus implements the single-broadcast-topic event bus (C2):
// a publisher writes to one Redis Pub/Sub channel, and a forwarder reads
// that channel and fans each message out to every live in-process
// subscriber. Delivery is best-effort and at-most-once per subscriber.
package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tedkulp/cartulary-go/internal/model"
)

const topic = "events"

// Bus publishes events to Redis and forwards them to live subscribers.
type Bus struct {
	client redis.UniversalClient

	mu   sync.Mutex
	subs map[chan model.EventEnvelope]struct{}
}

// New connects to Redis at the given URL and returns a Bus.
func New(ctx context.Context, redisURL string) (*Bus, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Bus{client: client, subs: make(map[chan model.EventEnvelope]struct{})}, nil
}

// Publish emits a JSON envelope {type, data, timestamp} on the broadcast
// topic.
func (b *Bus) Publish(ctx context.Context, eventType string, data map[string]any) error {
	env := model.EventEnvelope{
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := b.client.Publish(ctx, topic, payload).Err(); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

// Subscribe registers a channel that receives every event forwarded from
// the topic until the returned cancel func is called. The channel is
// buffered; a slow or dead consumer is dropped on the next send failure
// rather than blocking the forwarder.
func (b *Bus) Subscribe() (ch <-chan model.EventEnvelope, cancel func()) {
	c := make(chan model.EventEnvelope, 32)
	b.mu.Lock()
	b.subs[c] = struct{}{}
	b.mu.Unlock()

	return c, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.subs[c]; ok {
			delete(b.subs, c)
			close(c)
		}
	}
}

// Run drives the Redis subscription and fans out every received message
// to live subscribers until ctx is cancelled. Intended to run as one
// long-lived goroutine per process.
func (b *Bus) Run(ctx context.Context) error {
	pubsub := b.client.Subscribe(ctx, topic)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var env model.EventEnvelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				slog.Warn("eventbus: dropping malformed message", "error", err)
				continue
			}
			b.fanOut(env)
		}
	}
}

func (b *Bus) fanOut(env model.EventEnvelope) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for c := range b.subs {
		select {
		case c <- env:
		default:
			// Dead or stalled client; drop rather than block the forwarder.
			delete(b.subs, c)
			close(c)
		}
	}
}

// Close releases the underlying Redis client.
func (b *Bus) Close() error {
	return b.client.Close()
}

// DocumentCreated is a convenience wrapper matching the core's event taxonomy.
func (b *Bus) DocumentCreated(ctx context.Context, documentID, userID string) error {
	return b.Publish(ctx, model.EventDocumentCreated, map[string]any{"document_id": documentID, "user_id": userID})
}

// DocumentUpdated is a convenience wrapper matching the core's event taxonomy.
func (b *Bus) DocumentUpdated(ctx context.Context, documentID, userID string) error {
	return b.Publish(ctx, model.EventDocumentUpdated, map[string]any{"document_id": documentID, "user_id": userID})
}

// DocumentDeleted is a convenience wrapper matching the core's event taxonomy.
func (b *Bus) DocumentDeleted(ctx context.Context, documentID, userID string) error {
	return b.Publish(ctx, model.EventDocumentDeleted, map[string]any{"document_id": documentID, "user_id": userID})
}

// DocumentStatusChanged is a convenience wrapper matching the core's event
// taxonomy.
func (b *Bus) DocumentStatusChanged(ctx context.Context, documentID, oldStatus, newStatus string) error {
	return b.Publish(ctx, model.EventDocumentStatusChanged, map[string]any{
		"document_id": documentID,
		"old_status":  oldStatus,
		"new_status":  newStatus,
	})
}
