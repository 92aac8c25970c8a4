// Command console is a terminal viewer for a world's notification stream.
// It backfills from the persisted chat log, then follows the live channel.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jwebster45206/character-monitor/internal/config"
	"github.com/jwebster45206/character-monitor/internal/logger"
	"github.com/jwebster45206/character-monitor/internal/relay"
	"github.com/jwebster45206/character-monitor/internal/services"
	"github.com/jwebster45206/character-monitor/internal/settings"
	"github.com/jwebster45206/character-monitor/pkg/chat"
)

const historyBackfill = 100

func main() {
	cfg := config.Load()
	log := logger.Setup(cfg)

	client, err := services.NewRedisClient(cfg.RedisURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid Redis URL: %v\n", err)
		os.Exit(1)
	}
	cache := services.NewRedisService(client, log)
	defer cache.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := cache.Ping(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Could not connect to Redis. Please ensure it is running.\nTry: docker-compose up -d\n")
		os.Exit(1)
	}

	store := settings.NewStore(cache, cfg.WorldID, log)
	worldSettings, err := store.Load(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load world settings: %v\n", err)
		os.Exit(1)
	}

	history, err := relay.History(ctx, client, cfg.WorldID, historyBackfill)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load chat history: %v\n", err)
		os.Exit(1)
	}

	// Live subscription feeds the UI through a channel; the program drains
	// it one message per Cmd.
	subCtx, subCancel := context.WithCancel(context.Background())
	defer subCancel()
	sub := client.Subscribe(subCtx, chat.Channel(cfg.WorldID))
	defer sub.Close()

	incoming := make(chan chat.Message, 64)
	go func() {
		defer close(incoming)
		for msg := range sub.Channel() {
			decoded, err := decodeMessage(msg.Payload)
			if err != nil {
				continue
			}
			// Whispers not addressed to this user are invisible.
			if !visibleTo(decoded, cfg.UserID) {
				continue
			}
			incoming <- decoded
		}
	}()

	p := tea.NewProgram(NewConsoleUI(cfg, worldSettings, history, incoming),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running program: %v\n", err)
		os.Exit(1)
	}
}

func visibleTo(msg chat.Message, userID string) bool {
	if len(msg.Whisper) == 0 {
		return true
	}
	for _, id := range msg.Whisper {
		if id == userID {
			return true
		}
	}
	return false
}
