package monitor

import (
	"context"

	"github.com/jwebster45206/character-monitor/pkg/chat"
	"github.com/jwebster45206/character-monitor/pkg/document"
)

// Sheet modes exposed by the host's character sheet.
const (
	SheetModePlay = 1
	SheetModeEdit = 2
)

// SheetModeFunc switches an actor's character sheet mode on the host.
type SheetModeFunc func(ctx context.Context, actor *document.Actor, mode int) error

// WrapSheetMode decorates a host sheet-mode switch so the resulting mode is
// reported after the wrapped call completes. Unlike the diff-driven
// monitors this wraps a UI action, so the report reflects the outcome, not
// a proposed change. Reporting failures never fail the wrapped call.
func (m *ActorMonitor) WrapSheetMode(fn SheetModeFunc) SheetModeFunc {
	return func(ctx context.Context, actor *document.Actor, mode int) error {
		if err := fn(ctx, actor, mode); err != nil {
			return err
		}

		cfg, ok := m.loadSettings(ctx)
		if !ok || !cfg.Enabled(chat.SheetMode) {
			return nil
		}

		label := "Edit"
		if mode == SheetModePlay {
			label = "Play"
		}
		data := map[string]any{
			"characterName": m.characterName(cfg, actor),
			"sheetMode":     label,
		}
		if err := m.notifier.Notify(ctx, chat.SheetMode, chat.FlagSheetMode, "sheetMode", data); err != nil {
			m.logger.Error("Monitor check failed", "check", "sheetMode", "error", err)
		}
		return nil
	}
}
