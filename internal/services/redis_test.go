package services

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func setupTestCache(t *testing.T) (*RedisService, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelError, // Reduce noise in tests
	}))

	client, err := NewRedisClient("redis://" + mr.Addr())
	if err != nil {
		t.Fatalf("Failed to create redis client: %v", err)
	}

	return NewRedisService(client, logger), mr
}

func TestRedisService_Basic(t *testing.T) {
	cache, _ := setupTestCache(t)
	defer func() {
		if err := cache.Close(); err != nil {
			t.Errorf("Failed to close Redis service: %v", err)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := cache.Ping(ctx); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}

	key := "test:key:123"
	value := "test value"

	if err := cache.Set(ctx, key, value, time.Minute); err != nil {
		t.Fatalf("Failed to set key: %v", err)
	}

	retrievedValue, err := cache.Get(ctx, key)
	if err != nil {
		t.Fatalf("Failed to get key: %v", err)
	}
	if retrievedValue != value {
		t.Errorf("Expected '%s', got '%s'", value, retrievedValue)
	}

	exists, err := cache.Exists(ctx, key)
	if err != nil {
		t.Fatalf("Failed to check if key exists: %v", err)
	}
	if !exists {
		t.Error("Key should exist")
	}

	if err := cache.Del(ctx, key); err != nil {
		t.Fatalf("Failed to delete key: %v", err)
	}

	exists, err = cache.Exists(ctx, key)
	if err != nil {
		t.Fatalf("Failed to check if key exists after deletion: %v", err)
	}
	if exists {
		t.Error("Key should not exist after deletion")
	}

	// Missing keys come back as empty string, not an error
	retrievedValue, err = cache.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get on missing key returned error: %v", err)
	}
	if retrievedValue != "" {
		t.Errorf("Expected empty string for missing key, got '%s'", retrievedValue)
	}
}

func TestMemoryCache_Basic(t *testing.T) {
	cache := NewMemoryCache()
	ctx := context.Background()

	if err := cache.Set(ctx, "k", "v", 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, err := cache.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != "v" {
		t.Errorf("Get = %q, want %q", got, "v")
	}

	exists, err := cache.Exists(ctx, "k", "missing")
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if !exists {
		t.Error("Exists = false, want true")
	}

	if err := cache.Del(ctx, "k"); err != nil {
		t.Fatalf("Del failed: %v", err)
	}
	got, _ = cache.Get(ctx, "k")
	if got != "" {
		t.Errorf("Get after Del = %q, want empty", got)
	}
}
