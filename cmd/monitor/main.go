package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jwebster45206/character-monitor/internal/config"
	"github.com/jwebster45206/character-monitor/internal/feed"
	"github.com/jwebster45206/character-monitor/internal/logger"
	"github.com/jwebster45206/character-monitor/internal/monitor"
	"github.com/jwebster45206/character-monitor/internal/notify"
	"github.com/jwebster45206/character-monitor/internal/services"
	"github.com/jwebster45206/character-monitor/internal/settings"
)

func main() {
	cfg := config.Load()
	log := logger.Setup(cfg)

	log.Info("Starting Character Monitor",
		"world", cfg.WorldID,
		"user", cfg.UserID,
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
	log.Info("Redis connection established")

	store := settings.NewStore(cache, cfg.WorldID, log)

	broadcaster, err := notify.NewBroadcaster(client, store, cfg.WorldID, log)
	if err != nil {
		log.Error("Failed to initialize broadcaster", "error", err)
		os.Exit(1)
	}

	bus := feed.NewBus(log)
	monitor.NewActorMonitor(store, broadcaster, cfg.UserID, log).Register(bus)
	monitor.NewItemMonitor(store, broadcaster, cfg.UserID, log).Register(bus)
	monitor.NewEffectMonitor(store, broadcaster, cfg.UserID, log).Register(bus)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := feed.NewFeed(client, bus, cfg.WorldID, log).Run(ctx); err != nil {
		log.Error("Mutation feed failed", "error", err)
		os.Exit(1)
	}
	log.Info("Character Monitor stopped")
}
