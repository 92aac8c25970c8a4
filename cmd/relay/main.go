package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jwebster45206/character-monitor/internal/config"
	"github.com/jwebster45206/character-monitor/internal/logger"
	"github.com/jwebster45206/character-monitor/internal/relay"
	"github.com/jwebster45206/character-monitor/internal/services"
)

func main() {
	cfg := config.Load()
	log := logger.Setup(cfg)

	log.Info("Starting Chat Relay",
		"world", cfg.WorldID,
		"environment", cfg.Environment)

	client, err := services.NewRedisClient(cfg.RedisURL)
	if err != nil {
		log.Error("Invalid Redis URL", "error", err)
		os.Exit(1)
	}
	cache := services.NewRedisService(client, log)
	defer func() {
		if err := cache.Close(); err != nil {
			log.Error("Failed to close Redis connection", "error", err)
		}
	}()

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer pingCancel()
	if err := cache.Ping(pingCtx); err != nil {
		log.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := relay.NewRelay(client, cfg.WorldID, log).Run(ctx); err != nil {
		log.Error("Relay failed", "error", err)
		os.Exit(1)
	}
	log.Info("Chat Relay stopped")
}
