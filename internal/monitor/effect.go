package monitor

import (
	"context"
	"log/slog"

	"github.com/jwebster45206/character-monitor/internal/feed"
	"github.com/jwebster45206/character-monitor/internal/notify"
	"github.com/jwebster45206/character-monitor/internal/settings"
	"github.com/jwebster45206/character-monitor/pkg/chat"
	"github.com/jwebster45206/character-monitor/pkg/document"
)

const (
	effectEnabled  = "Enabled"
	effectDisabled = "Disabled"
)

// EffectMonitor watches status effects on player characters. Creation
// always reports "Enabled" and deletion "Disabled"; updates report only
// when the diff flips the disabled flag.
type EffectMonitor struct {
	Monitor
}

// NewEffectMonitor creates the effect dispatcher.
func NewEffectMonitor(provider settings.Provider, notifier notify.Notifier, userID string, logger *slog.Logger) *EffectMonitor {
	return &EffectMonitor{Monitor: newMonitor(provider, notifier, userID, logger)}
}

// Register subscribes the dispatcher to the effect event feed.
func (m *EffectMonitor) Register(bus *feed.Bus) {
	bus.On(document.KindEffect, document.ActionCreate, m.HandleCreate)
	bus.On(document.KindEffect, document.ActionDelete, m.HandleDelete)
	bus.On(document.KindEffect, document.ActionUpdate, m.HandleUpdate)
}

func (m *EffectMonitor) HandleCreate(ctx context.Context, ev document.MutationEvent) {
	cfg, ok := m.validEffect(ctx, ev.Effect)
	if !ok {
		return
	}
	m.report(ctx, cfg, ev.Effect, effectEnabled)
}

func (m *EffectMonitor) HandleDelete(ctx context.Context, ev document.MutationEvent) {
	cfg, ok := m.validEffect(ctx, ev.Effect)
	if !ok {
		return
	}
	m.report(ctx, cfg, ev.Effect, effectDisabled)
}

func (m *EffectMonitor) HandleUpdate(ctx context.Context, ev document.MutationEvent) {
	disabled, ok := ev.Diff.Bool("disabled")
	if !ok {
		return
	}
	cfg, valid := m.validEffect(ctx, ev.Effect)
	if !valid {
		return
	}
	action := effectEnabled
	if disabled {
		action = effectDisabled
	}
	m.report(ctx, cfg, ev.Effect, action)
}

func (m *EffectMonitor) validEffect(ctx context.Context, effect *document.Effect) (settings.Settings, bool) {
	if effect == nil || !effect.Parent.IsCharacter() {
		return settings.Settings{}, false
	}
	cfg, ok := m.loadSettings(ctx)
	if !ok || !cfg.Enabled(chat.Effects) || !m.shouldMonitor(cfg, effect.Parent) {
		return settings.Settings{}, false
	}
	return cfg, true
}

func (m *EffectMonitor) report(ctx context.Context, cfg settings.Settings, effect *document.Effect, action string) {
	data := map[string]any{
		"characterName": m.characterName(cfg, effect.Parent),
		"effectName":    effect.Name,
		"action":        action,
	}
	if err := m.notifier.Notify(ctx, chat.Effects, chat.FlagEffects, "effect", data); err != nil {
		m.logger.Error("Monitor check failed", "check", "effect", "error", err)
	}
}
