// Package monitor holds the three mutation dispatchers and their per-field
// change evaluators. Each dispatcher receives host events for one entity
// kind, applies configuration and entity gating, and fans out to the
// evaluators for the attributes the diff touches. Evaluators decide whether
// a change is meaningful and build the notification payload; emission goes
// through the notify boundary.
package monitor

import (
	"context"
	"log/slog"
	"sync"

	"github.com/jwebster45206/character-monitor/internal/notify"
	"github.com/jwebster45206/character-monitor/internal/settings"
	"github.com/jwebster45206/character-monitor/pkg/diff"
	"github.com/jwebster45206/character-monitor/pkg/document"
)

// Monitor carries the collaborators shared by all dispatchers.
type Monitor struct {
	settings settings.Provider
	notifier notify.Notifier
	userID   string // the local observer, for deduplicating broadcast mutations
	logger   *slog.Logger
}

func newMonitor(provider settings.Provider, notifier notify.Notifier, userID string, logger *slog.Logger) Monitor {
	return Monitor{
		settings: provider,
		notifier: notifier,
		userID:   userID,
		logger:   logger,
	}
}

// shouldMonitor applies the gating shared by every dispatcher: the runtime
// master toggle and the NPC opt-out.
func (m *Monitor) shouldMonitor(cfg settings.Settings, actor *document.Actor) bool {
	if cfg.Suspended() {
		return false
	}
	if actor != nil && actor.Type == document.TypeNPC && cfg.HideNPCs {
		return false
	}
	return true
}

// characterName resolves the display name for notifications, honoring the
// token-name and NPC-renaming settings.
func (m *Monitor) characterName(cfg settings.Settings, actor *document.Actor) string {
	if cfg.UseTokenName {
		if actor.TokenName != "" {
			return actor.TokenName
		}
		return actor.Name
	}
	if actor.Type == document.TypeNPC && cfg.HideNPCname {
		if cfg.ReplacementName != "" {
			return cfg.ReplacementName
		}
		return settings.DefaultReplacementName
	}
	return actor.Name
}

// check is one evaluator invocation queued for fan-out.
type check struct {
	name string
	run  func() error
}

// runChecks fans the checks out concurrently and waits for all of them.
// A failing or panicking check is logged and never blocks its siblings;
// completion order is not significant.
func (m *Monitor) runChecks(checks []check) {
	var wg sync.WaitGroup
	for _, c := range checks {
		wg.Add(1)
		go func(c check) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					m.logger.Error("Monitor check panicked", "check", c.name, "panic", r)
				}
			}()
			if err := c.run(); err != nil {
				m.logger.Error("Monitor check failed", "check", c.name, "error", err)
			}
		}(c)
	}
	wg.Wait()
}

// unchanged implements the shared sub-value rule: a sub-value counts as
// unchanged when it is absent from the diff, or when it is falsy and the
// previous value is falsy too. The second clause treats "0 replacing 0"
// the same as "absent".
func unchanged(present bool, newValue, oldValue any) bool {
	return !present || (diff.Falsy(newValue) && diff.Falsy(oldValue))
}

// loadSettings fetches a fresh snapshot, logging failures.
func (m *Monitor) loadSettings(ctx context.Context) (settings.Settings, bool) {
	cfg, err := m.settings.Load(ctx)
	if err != nil {
		m.logger.Error("Failed to load settings", "error", err)
		return settings.Settings{}, false
	}
	return cfg, true
}
