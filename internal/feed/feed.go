// Package feed consumes the host's mutation event stream. The Bus is a
// synchronous subscribe/dispatch abstraction the monitors register against;
// the Feed drives the Bus from the world's Redis channel. Tests feed the Bus
// directly with constructed events.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/character-monitor/pkg/document"
)

// Handler receives one mutation event. Handlers run synchronously in
// dispatch order; a handler returns when its evaluation (including any
// fan-out) has completed.
type Handler func(ctx context.Context, ev document.MutationEvent)

type route struct {
	kind   document.Kind
	action document.Action
}

// Bus routes mutation events to the handlers registered for their entity
// kind and lifecycle action.
type Bus struct {
	mu       sync.RWMutex
	handlers map[route][]Handler
	logger   *slog.Logger
}

// NewBus creates an empty bus.
func NewBus(logger *slog.Logger) *Bus {
	return &Bus{
		handlers: make(map[route][]Handler),
		logger:   logger,
	}
}

// On registers a handler for one kind/action pair.
func (b *Bus) On(kind document.Kind, action document.Action, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	r := route{kind: kind, action: action}
	b.handlers[r] = append(b.handlers[r], h)
}

// Dispatch delivers one event to its handlers, serially. Events from the
// host arrive serially as well; no ordering is promised across events.
func (b *Bus) Dispatch(ctx context.Context, ev document.MutationEvent) {
	b.mu.RLock()
	handlers := b.handlers[route{kind: ev.Kind, action: ev.Action}]
	b.mu.RUnlock()

	for _, h := range handlers {
		h(ctx, ev)
	}
}

// Channel is the pub/sub channel a world's mutation events arrive on.
func Channel(worldID string) string {
	return fmt.Sprintf("charmon:mutations:%s", worldID)
}

// Publish puts a mutation event on a world's channel. The host side of the
// boundary; used by the simulator and tests.
func Publish(ctx context.Context, client *redis.Client, worldID string, ev document.MutationEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal mutation event: %w", err)
	}
	if err := client.Publish(ctx, Channel(worldID), data).Err(); err != nil {
		return fmt.Errorf("failed to publish mutation event: %w", err)
	}
	return nil
}

// Feed subscribes to a world's mutation channel and drives a Bus.
type Feed struct {
	client  *redis.Client
	bus     *Bus
	worldID string
	logger  *slog.Logger
}

// NewFeed creates a feed for one world.
func NewFeed(client *redis.Client, bus *Bus, worldID string, logger *slog.Logger) *Feed {
	return &Feed{
		client:  client,
		bus:     bus,
		worldID: worldID,
		logger:  logger,
	}
}

// Run consumes events until ctx is cancelled. Malformed payloads are logged
// and skipped; they never stop the feed.
func (f *Feed) Run(ctx context.Context) error {
	channel := Channel(f.worldID)
	pubsub := f.client.Subscribe(ctx, channel)
	defer func() {
		if err := pubsub.Close(); err != nil {
			f.logger.Error("Failed to close pubsub", "error", err)
		}
	}()

	f.logger.Info("Subscribed to mutation feed", "channel", channel)
	msgChan := pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			f.logger.Info("Mutation feed shutting down")
			return nil
		case msg, ok := <-msgChan:
			if !ok {
				return fmt.Errorf("mutation feed channel closed")
			}
			var ev document.MutationEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				f.logger.Error("Failed to decode mutation event", "error", err)
				continue
			}
			f.bus.Dispatch(ctx, ev)
		}
	}
}
