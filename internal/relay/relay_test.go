package relay

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/character-monitor/pkg/chat"
)

func setupTestRelay(t *testing.T) (*Relay, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewRelay(client, "test-world", logger), client
}

func testMessage(id string, whisper []string) string {
	msg := chat.Message{
		ID:        id,
		Category:  chat.HP,
		Flag:      chat.FlagHPMinus,
		Content:   "Rook: HP decreased to 5",
		Whisper:   whisper,
		CreatedAt: time.Now().UTC(),
	}
	data, _ := json.Marshal(msg)
	return string(data)
}

func TestRelay_PublicMessage(t *testing.T) {
	r, client := setupTestRelay(t)
	ctx := context.Background()

	if err := r.HandleMessage(ctx, testMessage("msg-1", nil)); err != nil {
		t.Fatalf("HandleMessage failed: %v", err)
	}

	entries, err := client.LRange(ctx, chat.LogKey("test-world"), 0, -1).Result()
	if err != nil {
		t.Fatalf("Failed to read log: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(entries))
	}

	var msg chat.Message
	if err := json.Unmarshal([]byte(entries[0]), &msg); err != nil {
		t.Fatalf("Failed to decode entry: %v", err)
	}
	if msg.ID != "msg-1" || msg.Content != "Rook: HP decreased to 5" {
		t.Errorf("unexpected entry: %+v", msg)
	}
}

func TestRelay_WhisperedMessage(t *testing.T) {
	r, client := setupTestRelay(t)
	ctx := context.Background()

	if err := r.HandleMessage(ctx, testMessage("msg-2", []string{"gm-1", "gm-2"})); err != nil {
		t.Fatalf("HandleMessage failed: %v", err)
	}

	// Whispers never land in the public log.
	public, _ := client.LRange(ctx, chat.LogKey("test-world"), 0, -1).Result()
	if len(public) != 0 {
		t.Errorf("expected empty public log, got %d entries", len(public))
	}

	for _, userID := range []string{"gm-1", "gm-2"} {
		entries, err := client.LRange(ctx, chat.WhisperLogKey("test-world", userID), 0, -1).Result()
		if err != nil {
			t.Fatalf("Failed to read whisper log: %v", err)
		}
		if len(entries) != 1 {
			t.Errorf("expected 1 whisper entry for %s, got %d", userID, len(entries))
		}
	}
}

func TestRelay_MalformedMessage(t *testing.T) {
	r, client := setupTestRelay(t)
	ctx := context.Background()

	if err := r.HandleMessage(ctx, "{not json"); err == nil {
		t.Error("expected error for malformed payload")
	}
	if err := r.HandleMessage(ctx, `{"id":"","content":""}`); err == nil {
		t.Error("expected error for empty message")
	}

	entries, _ := client.LRange(ctx, chat.LogKey("test-world"), 0, -1).Result()
	if len(entries) != 0 {
		t.Errorf("expected empty log, got %d entries", len(entries))
	}
}

func TestRelay_LogTrimming(t *testing.T) {
	r, client := setupTestRelay(t)
	ctx := context.Background()

	for i := 0; i < maxLogLength+25; i++ {
		if err := r.HandleMessage(ctx, testMessage("msg", nil)); err != nil {
			t.Fatalf("HandleMessage failed: %v", err)
		}
	}

	length, err := client.LLen(ctx, chat.LogKey("test-world")).Result()
	if err != nil {
		t.Fatalf("Failed to read log length: %v", err)
	}
	if length != maxLogLength {
		t.Errorf("expected log capped at %d, got %d", maxLogLength, length)
	}
}

func TestRelay_RunConsumesChannel(t *testing.T) {
	r, client := setupTestRelay(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()
	time.Sleep(50 * time.Millisecond)

	if err := client.Publish(ctx, chat.Channel("test-world"), testMessage("msg-3", nil)).Err(); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for {
		length, _ := client.LLen(ctx, chat.LogKey("test-world")).Result()
		if length == 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("message never reached the log")
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Error("Run did not stop on cancel")
	}
}

func TestHistory(t *testing.T) {
	r, client := setupTestRelay(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		if err := r.HandleMessage(ctx, testMessage(id, nil)); err != nil {
			t.Fatalf("HandleMessage failed: %v", err)
		}
	}

	messages, err := History(ctx, client, "test-world", 2)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(messages))
	}
	if messages[0].ID != "b" || messages[1].ID != "c" {
		t.Errorf("expected most recent two in order, got %s, %s", messages[0].ID, messages[1].ID)
	}
}
