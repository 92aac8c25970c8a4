package monitor

import (
	"context"
	"testing"

	"github.com/jwebster45206/character-monitor/internal/settings"
	"github.com/jwebster45206/character-monitor/pkg/chat"
	"github.com/jwebster45206/character-monitor/pkg/diff"
	"github.com/jwebster45206/character-monitor/pkg/document"
)

// hpUpdate builds a post-mutation hit-point event: the actor snapshot holds
// the applied values, options carry the host-resolved previous state.
func hpUpdate(actor *document.Actor, previous *document.HPState, userID string) document.MutationEvent {
	return document.MutationEvent{
		Kind:   document.KindActor,
		Action: document.ActionUpdate,
		Actor:  actor,
		Diff:   diff.Tree{"system.attributes.hp.value": 5},
		Options: document.UpdateOptions{
			HP: previous,
		},
		UserID: userID,
	}
}

func setHP(actor *document.Actor, value, max, temp int) {
	actor.System["attributes"].(map[string]any)["hp"] = map[string]any{
		"value": value, "max": max, "temp": temp,
	}
}

func TestActorMonitor_HP(t *testing.T) {
	ctx := context.Background()
	previous := &document.HPState{Value: 10, Max: 20, Temp: 0}

	t.Run("damage reports a single decrease", func(t *testing.T) {
		m, rec := newActorMonitor(t, settings.Defaults())
		actor := characterActor()
		setHP(actor, 5, 20, 0)

		m.HandleUpdate(ctx, hpUpdate(actor, previous, testUserID))

		calls := rec.Calls()
		if len(calls) != 1 {
			t.Fatalf("expected 1 notification, got %d", len(calls))
		}
		c := calls[0]
		if c.Template != "hp" || c.Category != chat.HP {
			t.Errorf("unexpected routing: template=%q category=%q", c.Template, c.Category)
		}
		if c.Flag != chat.FlagHPMinus {
			t.Errorf("expected flag %q, got %q", chat.FlagHPMinus, c.Flag)
		}
		if c.Data["direction"] != "Minus" {
			t.Errorf("expected direction Minus, got %v", c.Data["direction"])
		}
		if c.Data["value"] != 5 || c.Data["previousValue"] != 10 {
			t.Errorf("expected value 5 previous 10, got %v / %v", c.Data["value"], c.Data["previousValue"])
		}
	})

	t.Run("healing reports an increase", func(t *testing.T) {
		m, rec := newActorMonitor(t, settings.Defaults())
		actor := characterActor()
		setHP(actor, 20, 20, 0)

		m.HandleUpdate(ctx, hpUpdate(actor, previous, testUserID))

		calls := rec.Calls()
		if len(calls) != 1 {
			t.Fatalf("expected 1 notification, got %d", len(calls))
		}
		if calls[0].Flag != chat.FlagHPPlus || calls[0].Data["direction"] != "Plus" {
			t.Errorf("expected increase, got flag=%q direction=%v", calls[0].Flag, calls[0].Data["direction"])
		}
	})

	t.Run("each changed channel reports separately", func(t *testing.T) {
		m, rec := newActorMonitor(t, settings.Defaults())
		actor := characterActor()
		setHP(actor, 5, 20, 8)

		m.HandleUpdate(ctx, hpUpdate(actor, previous, testUserID))

		calls := rec.Calls()
		if len(calls) != 2 {
			t.Fatalf("expected 2 notifications (value and temp), got %d", len(calls))
		}
		types := map[any]any{}
		for _, c := range calls {
			types[c.Data["type"]] = c.Data["value"]
		}
		if types["HP"] != 5 || types["Temp HP"] != 8 {
			t.Errorf("unexpected channel payloads: %v", types)
		}
	})

	t.Run("unchanged channels stay silent", func(t *testing.T) {
		m, rec := newActorMonitor(t, settings.Defaults())
		actor := characterActor() // snapshot matches previous exactly

		m.HandleUpdate(ctx, hpUpdate(actor, previous, testUserID))

		if n := len(rec.Calls()); n != 0 {
			t.Errorf("expected no notifications, got %d", n)
		}
	})

	t.Run("other users' broadcasts are ignored", func(t *testing.T) {
		m, rec := newActorMonitor(t, settings.Defaults())
		actor := characterActor()
		setHP(actor, 5, 20, 0)

		m.HandleUpdate(ctx, hpUpdate(actor, previous, "someone-else"))

		if n := len(rec.Calls()); n != 0 {
			t.Errorf("expected no notifications, got %d", n)
		}
	})

	t.Run("missing previous state stays silent", func(t *testing.T) {
		m, rec := newActorMonitor(t, settings.Defaults())
		actor := characterActor()
		setHP(actor, 5, 20, 0)

		m.HandleUpdate(ctx, hpUpdate(actor, nil, testUserID))

		if n := len(rec.Calls()); n != 0 {
			t.Errorf("expected no notifications, got %d", n)
		}
	})

	t.Run("disabled category stays silent", func(t *testing.T) {
		cfg := settings.Defaults()
		cfg.Monitors[chat.HP] = false
		m, rec := newActorMonitor(t, cfg)
		actor := characterActor()
		setHP(actor, 5, 20, 0)

		m.HandleUpdate(ctx, hpUpdate(actor, previous, testUserID))

		if n := len(rec.Calls()); n != 0 {
			t.Errorf("expected no notifications, got %d", n)
		}
	})

	t.Run("npc damage reports under the replacement name", func(t *testing.T) {
		cfg := settings.Defaults()
		cfg.HideNPCname = true
		m, rec := newActorMonitor(t, cfg)
		actor := npcActor()
		setHP(actor, 5, 20, 0)

		m.HandleUpdate(ctx, hpUpdate(actor, previous, testUserID))

		calls := rec.Calls()
		if len(calls) != 1 {
			t.Fatalf("expected 1 notification, got %d", len(calls))
		}
		if calls[0].Data["characterName"] != "???" {
			t.Errorf("expected replacement name, got %v", calls[0].Data["characterName"])
		}
	})

	t.Run("npc damage hidden by hideNPCs", func(t *testing.T) {
		cfg := settings.Defaults()
		cfg.HideNPCs = true
		m, rec := newActorMonitor(t, cfg)
		actor := npcActor()
		setHP(actor, 5, 20, 0)

		m.HandleUpdate(ctx, hpUpdate(actor, previous, testUserID))

		if n := len(rec.Calls()); n != 0 {
			t.Errorf("expected no notifications, got %d", n)
		}
	})
}

func TestActorMonitor_SpellSlots(t *testing.T) {
	ctx := context.Background()

	t.Run("spending a slot reports remaining and max", func(t *testing.T) {
		m, rec := newActorMonitor(t, settings.Defaults())
		ev := actorPreUpdate(characterActor(), diff.Tree{
			"system": map[string]any{
				"spells": map[string]any{
					"spell1": map[string]any{"value": 0},
				},
			},
		})

		m.HandlePreUpdate(ctx, ev)

		calls := rec.ByTemplate("spellSlots")
		if len(calls) != 1 {
			t.Fatalf("expected 1 notification, got %d", len(calls))
		}
		slot, _ := calls[0].Data["spellSlot"].(map[string]any)
		if slot["label"] != "1st Level" {
			t.Errorf("expected label 1st Level, got %v", slot["label"])
		}
		if slot["value"] != 0 || slot["max"] != 2 {
			t.Errorf("expected 0/2, got %v/%v", slot["value"], slot["max"])
		}
	})

	t.Run("flattened diff behaves like nested", func(t *testing.T) {
		nested, nestedRec := newActorMonitor(t, settings.Defaults())
		flat, flatRec := newActorMonitor(t, settings.Defaults())

		nested.HandlePreUpdate(ctx, actorPreUpdate(characterActor(), diff.Tree{
			"system": map[string]any{
				"spells": map[string]any{"spell1": map[string]any{"value": 0}},
			},
		}))
		flat.HandlePreUpdate(ctx, actorPreUpdate(characterActor(), diff.Tree{
			"system.spells.spell1.value": 0,
		}))

		nc, fc := nestedRec.ByTemplate("spellSlots"), flatRec.ByTemplate("spellSlots")
		if len(nc) != 1 || len(fc) != 1 {
			t.Fatalf("expected 1 notification each, got %d and %d", len(nc), len(fc))
		}
		if !samePayload(nc[0].Data, fc[0].Data) {
			t.Errorf("payloads diverge: %v vs %v", nc[0].Data, fc[0].Data)
		}
	})

	t.Run("slot metadata without value or max stays silent", func(t *testing.T) {
		m, rec := newActorMonitor(t, settings.Defaults())
		ev := actorPreUpdate(characterActor(), diff.Tree{
			"system": map[string]any{
				"spells": map[string]any{
					"spell1": map[string]any{"label": "renamed"},
				},
			},
		})

		m.HandlePreUpdate(ctx, ev)

		if n := len(rec.Calls()); n != 0 {
			t.Errorf("expected no notifications, got %d", n)
		}
	})

	t.Run("zero replacing an empty pool stays silent", func(t *testing.T) {
		actor := characterActor()
		actor.System["spells"].(map[string]any)["spell1"] = map[string]any{"value": 0, "max": 2}

		m, rec := newActorMonitor(t, settings.Defaults())
		m.HandlePreUpdate(ctx, actorPreUpdate(actor, diff.Tree{
			"system.spells.spell1.value": 0,
		}))

		if n := len(rec.Calls()); n != 0 {
			t.Errorf("expected no notifications, got %d", n)
		}
	})

	t.Run("override replaces max", func(t *testing.T) {
		m, rec := newActorMonitor(t, settings.Defaults())
		m.HandlePreUpdate(ctx, actorPreUpdate(characterActor(), diff.Tree{
			"system.spells.spell1.override": 4,
		}))

		calls := rec.ByTemplate("spellSlots")
		if len(calls) != 1 {
			t.Fatalf("expected 1 notification, got %d", len(calls))
		}
		slot, _ := calls[0].Data["spellSlot"].(map[string]any)
		if slot["max"] != 4 || slot["value"] != 1 {
			t.Errorf("expected 1/4, got %v/%v", slot["value"], slot["max"])
		}
	})

	t.Run("showPrevious carries the old value", func(t *testing.T) {
		cfg := settings.Defaults()
		cfg.ShowPrevious = true
		m, rec := newActorMonitor(t, cfg)
		m.HandlePreUpdate(ctx, actorPreUpdate(characterActor(), diff.Tree{
			"system.spells.spell1.value": 0,
		}))

		calls := rec.ByTemplate("spellSlots")
		if len(calls) != 1 {
			t.Fatalf("expected 1 notification, got %d", len(calls))
		}
		slot, _ := calls[0].Data["spellSlot"].(map[string]any)
		if slot["old"] != 1 || slot["showPrevious"] != true {
			t.Errorf("expected old 1, got %v", slot["old"])
		}
	})
}

func TestActorMonitor_Currency(t *testing.T) {
	ctx := context.Background()

	t.Run("spending gold reports the new total", func(t *testing.T) {
		m, rec := newActorMonitor(t, settings.Defaults())
		m.HandlePreUpdate(ctx, actorPreUpdate(characterActor(), diff.Tree{
			"system.currency.gp": 4,
		}))

		calls := rec.ByTemplate("currency")
		if len(calls) != 1 {
			t.Fatalf("expected 1 notification, got %d", len(calls))
		}
		entry, _ := calls[0].Data["currency"].(map[string]any)
		if entry["label"] != "GP" || entry["value"] != 4 {
			t.Errorf("unexpected entry: %v", entry)
		}
	})

	t.Run("unchanged denomination stays silent", func(t *testing.T) {
		m, rec := newActorMonitor(t, settings.Defaults())
		m.HandlePreUpdate(ctx, actorPreUpdate(characterActor(), diff.Tree{
			"system.currency.gp": 10,
		}))

		if n := len(rec.Calls()); n != 0 {
			t.Errorf("expected no notifications, got %d", n)
		}
	})

	t.Run("null denomination stays silent", func(t *testing.T) {
		m, rec := newActorMonitor(t, settings.Defaults())
		m.HandlePreUpdate(ctx, actorPreUpdate(characterActor(), diff.Tree{
			"system": map[string]any{
				"currency": map[string]any{"gp": nil},
			},
		}))

		if n := len(rec.Calls()); n != 0 {
			t.Errorf("expected no notifications, got %d", n)
		}
	})
}

func TestActorMonitor_Proficiency(t *testing.T) {
	ctx := context.Background()

	t.Run("only skills crossing tiers report", func(t *testing.T) {
		m, rec := newActorMonitor(t, settings.Defaults())
		m.HandlePreUpdate(ctx, actorPreUpdate(characterActor(), diff.Tree{
			"system": map[string]any{
				"skills": map[string]any{
					"acr": map[string]any{"value": 1},
					"ath": map[string]any{"value": 0}, // same tier
				},
			},
		}))

		calls := rec.ByTemplate("proficiency")
		if len(calls) != 1 {
			t.Fatalf("expected 1 notification, got %d", len(calls))
		}
		p, _ := calls[0].Data["proficiency"].(map[string]any)
		if p["label"] != "Acrobatics" || p["value"] != "Proficient" || p["old"] != "Not Proficient" {
			t.Errorf("unexpected payload: %v", p)
		}
	})

	t.Run("expertise and half tiers resolve", func(t *testing.T) {
		m, rec := newActorMonitor(t, settings.Defaults())
		m.HandlePreUpdate(ctx, actorPreUpdate(characterActor(), diff.Tree{
			"system.skills.acr.value": 0.5,
		}))

		calls := rec.ByTemplate("proficiency")
		if len(calls) != 1 {
			t.Fatalf("expected 1 notification, got %d", len(calls))
		}
		p, _ := calls[0].Data["proficiency"].(map[string]any)
		if p["value"] != "Half Proficient" {
			t.Errorf("expected Half Proficient, got %v", p["value"])
		}
	})

	t.Run("saving throw proficiency reports under the ability label", func(t *testing.T) {
		m, rec := newActorMonitor(t, settings.Defaults())
		m.HandlePreUpdate(ctx, actorPreUpdate(characterActor(), diff.Tree{
			"system.abilities.str.proficient": 1,
		}))

		calls := rec.ByTemplate("proficiency")
		if len(calls) != 1 {
			t.Fatalf("expected 1 notification, got %d", len(calls))
		}
		p, _ := calls[0].Data["proficiency"].(map[string]any)
		if p["label"] != "Strength" || p["value"] != "Proficient" {
			t.Errorf("unexpected payload: %v", p)
		}
	})
}

func TestActorMonitor_Scalars(t *testing.T) {
	ctx := context.Background()

	t.Run("xp", func(t *testing.T) {
		m, rec := newActorMonitor(t, settings.Defaults())
		m.HandlePreUpdate(ctx, actorPreUpdate(characterActor(), diff.Tree{
			"system.details.xp.value": 250,
		}))

		calls := rec.ByTemplate("xp")
		if len(calls) != 1 {
			t.Fatalf("expected 1 notification, got %d", len(calls))
		}
		xp, _ := calls[0].Data["xp"].(map[string]any)
		if xp["value"] != 250 || xp["old"] != 100 {
			t.Errorf("unexpected payload: %v", xp)
		}
	})

	t.Run("level", func(t *testing.T) {
		m, rec := newActorMonitor(t, settings.Defaults())
		m.HandlePreUpdate(ctx, actorPreUpdate(characterActor(), diff.Tree{
			"system.details.level": 4,
		}))

		if n := len(rec.ByTemplate("level")); n != 1 {
			t.Fatalf("expected 1 notification, got %d", n)
		}
	})

	t.Run("ability score", func(t *testing.T) {
		m, rec := newActorMonitor(t, settings.Defaults())
		m.HandlePreUpdate(ctx, actorPreUpdate(characterActor(), diff.Tree{
			"system.abilities.str.value": 12,
		}))

		calls := rec.ByTemplate("ability")
		if len(calls) != 1 {
			t.Fatalf("expected 1 notification, got %d", len(calls))
		}
		a, _ := calls[0].Data["ability"].(map[string]any)
		if a["label"] != "Strength" || a["value"] != 12 || a["old"] != 10 {
			t.Errorf("unexpected payload: %v", a)
		}
	})

	t.Run("ac flat override", func(t *testing.T) {
		m, rec := newActorMonitor(t, settings.Defaults())
		m.HandlePreUpdate(ctx, actorPreUpdate(characterActor(), diff.Tree{
			"system.attributes.ac.flat": 17,
		}))

		calls := rec.ByTemplate("ac")
		if len(calls) != 1 {
			t.Fatalf("expected 1 notification, got %d", len(calls))
		}
		ac, _ := calls[0].Data["ac"].(map[string]any)
		if ac["value"] != 17 || ac["old"] != 15 {
			t.Errorf("unexpected payload: %v", ac)
		}
	})

	t.Run("derived ac churn stays silent", func(t *testing.T) {
		m, rec := newActorMonitor(t, settings.Defaults())
		m.HandlePreUpdate(ctx, actorPreUpdate(characterActor(), diff.Tree{
			"system.attributes.ac.calc": "default",
		}))

		if n := len(rec.Calls()); n != 0 {
			t.Errorf("expected no notifications, got %d", n)
		}
	})

	t.Run("equal scalar values stay silent", func(t *testing.T) {
		m, rec := newActorMonitor(t, settings.Defaults())
		m.HandlePreUpdate(ctx, actorPreUpdate(characterActor(), diff.Tree{
			"system.details.xp.value":   100,
			"system.details.level":      3,
			"system.attributes.ac.flat": 15,
		}))

		if n := len(rec.Calls()); n != 0 {
			t.Errorf("expected no notifications, got %d", n)
		}
	})
}

func TestActorMonitor_Gating(t *testing.T) {
	ctx := context.Background()
	spend := diff.Tree{"system.currency.gp": 4}

	t.Run("npcs never report proposed-change categories", func(t *testing.T) {
		m, rec := newActorMonitor(t, settings.Defaults())
		m.HandlePreUpdate(ctx, actorPreUpdate(npcActor(), spend))

		if n := len(rec.Calls()); n != 0 {
			t.Errorf("expected no notifications, got %d", n)
		}
	})

	t.Run("suspended master toggle", func(t *testing.T) {
		cfg := settings.Defaults()
		cfg.ShowToggle = true
		cfg.CMToggle = false
		m, rec := newActorMonitor(t, cfg)
		m.HandlePreUpdate(ctx, actorPreUpdate(characterActor(), spend))

		if n := len(rec.Calls()); n != 0 {
			t.Errorf("expected no notifications, got %d", n)
		}
	})

	t.Run("advancement updates are skipped", func(t *testing.T) {
		m, rec := newActorMonitor(t, settings.Defaults())
		ev := actorPreUpdate(characterActor(), spend)
		ev.Options.IsAdvancement = true
		m.HandlePreUpdate(ctx, ev)

		if n := len(rec.Calls()); n != 0 {
			t.Errorf("expected no notifications, got %d", n)
		}
	})

	t.Run("vehicles and other non-characters are skipped", func(t *testing.T) {
		m, rec := newActorMonitor(t, settings.Defaults())
		actor := characterActor()
		actor.Type = "vehicle"
		m.HandlePreUpdate(ctx, actorPreUpdate(actor, spend))

		if n := len(rec.Calls()); n != 0 {
			t.Errorf("expected no notifications, got %d", n)
		}
	})

	t.Run("token name preferred when configured", func(t *testing.T) {
		cfg := settings.Defaults()
		cfg.UseTokenName = true
		m, rec := newActorMonitor(t, cfg)
		m.HandlePreUpdate(ctx, actorPreUpdate(characterActor(), spend))

		calls := rec.Calls()
		if len(calls) != 1 {
			t.Fatalf("expected 1 notification, got %d", len(calls))
		}
		if calls[0].Data["characterName"] != "Test Token" {
			t.Errorf("expected token name, got %v", calls[0].Data["characterName"])
		}
	})

}

// Proposing the same mutation twice yields the same notification twice:
// evaluation only compares the diff against the snapshot, never against
// prior emissions.
func TestActorMonitor_RepeatedEvaluation(t *testing.T) {
	ctx := context.Background()
	m, rec := newActorMonitor(t, settings.Defaults())
	ev := actorPreUpdate(characterActor(), diff.Tree{"system.currency.gp": 4})

	m.HandlePreUpdate(ctx, ev)
	m.HandlePreUpdate(ctx, ev)

	calls := rec.Calls()
	if len(calls) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(calls))
	}
	if !samePayload(calls[0].Data, calls[1].Data) {
		t.Errorf("payloads diverge: %v vs %v", calls[0].Data, calls[1].Data)
	}
}
