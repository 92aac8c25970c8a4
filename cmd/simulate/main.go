// Command simulate publishes a scripted stream of character mutations to a
// world's feed, standing in for the host during development. A d20 actor
// tracks the character's combat state so the published snapshots stay
// internally consistent round over round.
package main

import (
	"context"
	"flag"
	"math/rand"
	"os"
	"time"

	"github.com/jwebster45206/d20"
	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/character-monitor/internal/config"
	"github.com/jwebster45206/character-monitor/internal/feed"
	"github.com/jwebster45206/character-monitor/internal/logger"
	"github.com/jwebster45206/character-monitor/internal/services"
	"github.com/jwebster45206/character-monitor/pkg/diff"
	"github.com/jwebster45206/character-monitor/pkg/document"
)

func main() {
	rounds := flag.Int("rounds", 10, "number of combat rounds to simulate")
	interval := flag.Duration("interval", 2*time.Second, "delay between rounds")
	flag.Parse()

	cfg := config.Load()
	log := logger.Setup(cfg)

	client, err := services.NewRedisClient(cfg.RedisURL)
	if err != nil {
		log.Error("Invalid Redis URL", "error", err)
		os.Exit(1)
	}
	defer client.Close()

	combatant, err := d20.NewActor("rook").
		WithHP(24).
		WithAC(16).
		WithAttributes(map[string]int{"str": 16, "dex": 12, "con": 14}).
		Build()
	if err != nil {
		log.Error("Failed to build combatant", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	slots := 3
	equipped := false

	log.Info("Simulating combat", "world", cfg.WorldID, "rounds", *rounds)
	for round := 1; round <= *rounds; round++ {
		prev := document.HPState{Value: combatant.HP(), Max: combatant.MaxHP()}

		// Alternate taking and healing damage so the stream exercises
		// both directions.
		hp := combatant.HP() - (rand.Intn(8) + 1)
		if round%4 == 0 {
			hp = combatant.HP() + rand.Intn(6) + 1
		}
		if hp < 0 {
			hp = 0
		}
		if hp > combatant.MaxHP() {
			hp = combatant.MaxHP()
		}
		if err := combatant.SetHP(hp); err != nil {
			log.Error("Failed to set HP", "error", err)
			os.Exit(1)
		}

		actor := simulatedActor(combatant, slots)
		ev := document.MutationEvent{
			Kind:   document.KindActor,
			Action: document.ActionUpdate,
			Actor:  actor,
			Diff:   diff.Tree{"system.attributes.hp.value": combatant.HP()},
			Options: document.UpdateOptions{
				HP: &prev,
			},
			UserID: cfg.UserID,
		}
		if err := feed.Publish(ctx, client, cfg.WorldID, ev); err != nil {
			log.Error("Failed to publish mutation", "error", err)
			os.Exit(1)
		}
		log.Info("Published round", "round", round, "hp", combatant.HP())

		if round%3 == 0 && slots > 0 {
			slots--
			if err := publishSlotSpend(ctx, client, cfg, combatant, slots); err != nil {
				log.Error("Failed to publish slot spend", "error", err)
				os.Exit(1)
			}
		}
		if round%5 == 0 {
			equipped = !equipped
			if err := publishEquip(ctx, client, cfg, combatant, slots, equipped); err != nil {
				log.Error("Failed to publish equip", "error", err)
				os.Exit(1)
			}
		}

		time.Sleep(*interval)
	}
	log.Info("Simulation finished")
}

// simulatedActor projects the d20 combatant into the host document shape.
func simulatedActor(combatant *d20.Actor, slots int) *document.Actor {
	return &document.Actor{
		ID:   "actor-rook",
		Name: "Rook",
		Type: document.TypeCharacter,
		System: diff.Tree{
			"attributes": map[string]any{
				"hp": map[string]any{"value": combatant.HP(), "max": combatant.MaxHP(), "temp": 0},
				"ac": map[string]any{"flat": combatant.AC()},
			},
			"spells": map[string]any{
				"spell1": map[string]any{"value": slots, "max": 3},
			},
		},
	}
}

func publishSlotSpend(ctx context.Context, client *redis.Client, cfg *config.Config, combatant *d20.Actor, remaining int) error {
	ev := document.MutationEvent{
		Kind:   document.KindActor,
		Action: document.ActionPreUpdate,
		Actor:  simulatedActor(combatant, remaining+1),
		Diff:   diff.Tree{"system.spells.spell1.value": remaining},
		UserID: cfg.UserID,
	}
	return feed.Publish(ctx, client, cfg.WorldID, ev)
}

func publishEquip(ctx context.Context, client *redis.Client, cfg *config.Config, combatant *d20.Actor, slots int, equipped bool) error {
	actor := simulatedActor(combatant, slots)
	ev := document.MutationEvent{
		Kind:   document.KindItem,
		Action: document.ActionPreUpdate,
		Item: &document.Item{
			ID:     "item-sword",
			Name:   "Longsword",
			Type:   document.ItemWeapon,
			Parent: actor,
			System: diff.Tree{"equipped": !equipped},
		},
		Diff:   diff.Tree{"system.equipped": equipped},
		UserID: cfg.UserID,
	}
	return feed.Publish(ctx, client, cfg.WorldID, ev)
}
