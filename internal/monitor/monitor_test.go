package monitor

import (
	"log/slog"
	"os"
	"reflect"
	"testing"

	"github.com/jwebster45206/character-monitor/internal/notify"
	"github.com/jwebster45206/character-monitor/internal/settings"
	"github.com/jwebster45206/character-monitor/pkg/diff"
	"github.com/jwebster45206/character-monitor/pkg/document"
)

const testUserID = "gamemaster"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

// characterActor builds the standard test character: a PC with one spell
// slot pool, some gold, untrained acrobatics and full hit points.
func characterActor() *document.Actor {
	return &document.Actor{
		ID:        "actor-1",
		Name:      "Test Actor",
		Type:      document.TypeCharacter,
		TokenName: "Test Token",
		System: diff.Tree{
			"attributes": map[string]any{
				"hp": map[string]any{"value": 10, "max": 20, "temp": 0},
				"ac": map[string]any{"flat": 15},
			},
			"spells": map[string]any{
				"spell1": map[string]any{"value": 1, "max": 2},
			},
			"currency": map[string]any{"gp": 10},
			"skills": map[string]any{
				"acr": map[string]any{"value": 0},
				"ath": map[string]any{"value": 0},
			},
			"abilities": map[string]any{
				"str": map[string]any{"value": 10, "proficient": 0},
			},
			"details": map[string]any{
				"xp":    map[string]any{"value": 100},
				"level": 3,
			},
		},
	}
}

func npcActor() *document.Actor {
	a := characterActor()
	a.Type = document.TypeNPC
	a.Name = "Goblin"
	return a
}

func newActorMonitor(t *testing.T, cfg settings.Settings) (*ActorMonitor, *notify.Recorder) {
	t.Helper()
	rec := notify.NewRecorder()
	m := NewActorMonitor(settings.Static{Settings: cfg}, rec, testUserID, testLogger())
	return m, rec
}

func newItemMonitor(t *testing.T, cfg settings.Settings) (*ItemMonitor, *notify.Recorder) {
	t.Helper()
	rec := notify.NewRecorder()
	m := NewItemMonitor(settings.Static{Settings: cfg}, rec, testUserID, testLogger())
	return m, rec
}

func newEffectMonitor(t *testing.T, cfg settings.Settings) (*EffectMonitor, *notify.Recorder) {
	t.Helper()
	rec := notify.NewRecorder()
	m := NewEffectMonitor(settings.Static{Settings: cfg}, rec, testUserID, testLogger())
	return m, rec
}

func actorPreUpdate(actor *document.Actor, d diff.Tree) document.MutationEvent {
	return document.MutationEvent{
		Kind:   document.KindActor,
		Action: document.ActionPreUpdate,
		Actor:  actor,
		Diff:   d,
		UserID: testUserID,
	}
}

// samePayload compares two notification payloads structurally.
func samePayload(a, b map[string]any) bool {
	return reflect.DeepEqual(a, b)
}

func itemPreUpdate(item *document.Item, d diff.Tree) document.MutationEvent {
	return document.MutationEvent{
		Kind:   document.KindItem,
		Action: document.ActionPreUpdate,
		Item:   item,
		Diff:   d,
		UserID: testUserID,
	}
}
