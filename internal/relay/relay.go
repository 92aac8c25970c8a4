// Package relay implements the privileged chat writer. Monitors publish
// rendered notifications on the world chat channel; only the relay holds
// write access to the persistent chat log, so whisper targeting is enforced
// in one place regardless of which client emitted the message.
package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/character-monitor/pkg/chat"
)

// maxLogLength bounds each chat log list; older entries are dropped.
const maxLogLength = 500

// Relay subscribes to a world's chat channel and appends each message to
// the appropriate log list.
type Relay struct {
	client  *redis.Client
	worldID string
	logger  *slog.Logger
}

// NewRelay creates a relay for one world.
func NewRelay(client *redis.Client, worldID string, logger *slog.Logger) *Relay {
	return &Relay{
		client:  client,
		worldID: worldID,
		logger:  logger,
	}
}

// Run consumes the chat channel until the context is canceled. Malformed
// or unwritable messages are logged and skipped; the subscription survives
// them.
func (r *Relay) Run(ctx context.Context) error {
	channel := chat.Channel(r.worldID)
	sub := r.client.Subscribe(ctx, channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", channel, err)
	}
	r.logger.Info("Relay started", "channel", channel)

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Relay stopped", "channel", channel)
			return nil
		case msg, ok := <-ch:
			if !ok {
				return fmt.Errorf("subscription to %s closed", channel)
			}
			if err := r.HandleMessage(ctx, msg.Payload); err != nil {
				r.logger.Error("Failed to relay message", "error", err)
			}
		}
	}
}

// HandleMessage validates one published payload and appends it to the
// public log, or to each recipient's whisper log when the message is
// targeted.
func (r *Relay) HandleMessage(ctx context.Context, payload string) error {
	var msg chat.Message
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		return fmt.Errorf("malformed chat message: %w", err)
	}
	if msg.ID == "" || msg.Content == "" {
		return fmt.Errorf("chat message missing id or content")
	}

	if len(msg.Whisper) == 0 {
		return r.append(ctx, chat.LogKey(r.worldID), payload)
	}
	for _, userID := range msg.Whisper {
		if err := r.append(ctx, chat.WhisperLogKey(r.worldID, userID), payload); err != nil {
			return err
		}
	}
	return nil
}

func (r *Relay) append(ctx context.Context, key, payload string) error {
	if err := r.client.RPush(ctx, key, payload).Err(); err != nil {
		return fmt.Errorf("failed to append to %s: %w", key, err)
	}
	if err := r.client.LTrim(ctx, key, -maxLogLength, -1).Err(); err != nil {
		return fmt.Errorf("failed to trim %s: %w", key, err)
	}
	return nil
}

// History returns the most recent public messages for a world, oldest
// first. Used by the console to backfill on connect.
func History(ctx context.Context, client *redis.Client, worldID string, limit int64) ([]chat.Message, error) {
	entries, err := client.LRange(ctx, chat.LogKey(worldID), -limit, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read chat log: %w", err)
	}
	messages := make([]chat.Message, 0, len(entries))
	for _, entry := range entries {
		var msg chat.Message
		if err := json.Unmarshal([]byte(entry), &msg); err != nil {
			continue
		}
		messages = append(messages, msg)
	}
	return messages, nil
}
