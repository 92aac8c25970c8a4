package monitor

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jwebster45206/character-monitor/internal/feed"
	"github.com/jwebster45206/character-monitor/internal/notify"
	"github.com/jwebster45206/character-monitor/internal/settings"
	"github.com/jwebster45206/character-monitor/pkg/chat"
	"github.com/jwebster45206/character-monitor/pkg/diff"
	"github.com/jwebster45206/character-monitor/pkg/document"
)

// ItemMonitor watches owned-item mutations: equip and attunement state,
// quantity, spell preparation and limited-use resources.
type ItemMonitor struct {
	Monitor
}

// NewItemMonitor creates the item dispatcher.
func NewItemMonitor(provider settings.Provider, notifier notify.Notifier, userID string, logger *slog.Logger) *ItemMonitor {
	return &ItemMonitor{Monitor: newMonitor(provider, notifier, userID, logger)}
}

// Register subscribes the dispatcher to the item event feed.
func (m *ItemMonitor) Register(bus *feed.Bus) {
	bus.On(document.KindItem, document.ActionPreUpdate, m.HandlePreUpdate)
}

// HandlePreUpdate evaluates a proposed item mutation. Items not owned by a
// player character are ignored entirely.
func (m *ItemMonitor) HandlePreUpdate(ctx context.Context, ev document.MutationEvent) {
	item := ev.Item
	if item == nil || !item.Parent.IsCharacter() {
		return
	}
	cfg, ok := m.loadSettings(ctx)
	if !ok || !m.shouldMonitor(cfg, item.Parent) {
		return
	}

	actor := item.Parent
	d := ev.Diff
	isGear := item.Type == document.ItemEquipment || item.Type == document.ItemWeapon

	var checks []check
	if cfg.Enabled(chat.Equip) && isGear && d.Present("system.equipped") {
		checks = append(checks, check{"equip", func() error {
			return m.checkEquip(ctx, cfg, actor, item, d)
		}})
	}
	if cfg.Enabled(chat.Quantity) && d.Present("system.quantity") {
		checks = append(checks, check{"quantity", func() error {
			return m.checkQuantity(ctx, cfg, actor, item, d)
		}})
	}
	if cfg.Enabled(chat.SpellPrep) && item.Type == document.ItemSpell && d.Present("system.preparation.prepared") {
		checks = append(checks, check{"spellPrep", func() error {
			return m.checkSpellPrep(ctx, cfg, actor, item, d)
		}})
	}
	if cfg.Enabled(chat.Feats) && item.Type == document.ItemFeat {
		checks = append(checks, check{"featUses", func() error {
			return m.checkUses(ctx, cfg, actor, item, d, chat.Feats)
		}})
	}
	if cfg.Enabled(chat.ItemCharges) && isGear {
		checks = append(checks, check{"itemCharges", func() error {
			return m.checkUses(ctx, cfg, actor, item, d, chat.ItemCharges)
		}})
	}
	if cfg.Enabled(chat.Attune) && isGear && d.Present("system.attuned") {
		checks = append(checks, check{"attune", func() error {
			return m.checkAttune(ctx, cfg, actor, item, d)
		}})
	}

	m.runChecks(checks)
}

func (m *ItemMonitor) checkEquip(ctx context.Context, cfg settings.Settings, actor *document.Actor, item *document.Item, d diff.Tree) error {
	equipped, _ := d.Bool("system.equipped")
	wasEquipped, _ := item.System.Bool("equipped")
	if equipped == wasEquipped {
		return nil
	}

	data := map[string]any{
		"characterName": m.characterName(cfg, actor),
		"itemName":      item.Name,
		"showPrevious":  cfg.ShowPrevious,
		"equipped":      equipped,
	}
	return m.notifier.Notify(ctx, chat.Equip, onOff(equipped), "itemEquip", data)
}

func (m *ItemMonitor) checkQuantity(ctx context.Context, cfg settings.Settings, actor *document.Actor, item *document.Item, d diff.Tree) error {
	newQuantity, _ := d.Number("system.quantity")
	oldQuantity, _ := item.System.Number("quantity")
	if newQuantity == oldQuantity {
		return nil
	}

	data := map[string]any{
		"characterName": m.characterName(cfg, actor),
		"itemName":      item.Name,
		"showPrevious":  cfg.ShowPrevious,
		"quantity": map[string]any{
			"old":   oldQuantity,
			"value": newQuantity,
		},
	}
	return m.notifier.Notify(ctx, chat.Quantity, onOff(newQuantity > oldQuantity), "itemQuantity", data)
}

func (m *ItemMonitor) checkSpellPrep(ctx context.Context, cfg settings.Settings, actor *document.Actor, item *document.Item, d diff.Tree) error {
	prepared, _ := d.Bool("system.preparation.prepared")
	wasPrepared, _ := item.System.Bool("preparation.prepared")
	if prepared == wasPrepared {
		return nil
	}

	data := map[string]any{
		"characterName": m.characterName(cfg, actor),
		"itemName":      item.Name,
		"showPrevious":  cfg.ShowPrevious,
		"prepared":      prepared,
	}
	return m.notifier.Notify(ctx, chat.SpellPrep, onOff(prepared), "spellPrepare", data)
}

func (m *ItemMonitor) checkAttune(ctx context.Context, cfg settings.Settings, actor *document.Actor, item *document.Item, d diff.Tree) error {
	attuned, _ := d.Bool("system.attuned")
	wasAttuned, _ := item.System.Bool("attuned")
	if attuned == wasAttuned {
		return nil
	}

	data := map[string]any{
		"characterName": m.characterName(cfg, actor),
		"itemName":      item.Name,
		"showPrevious":  cfg.ShowPrevious,
		"attuned":       attuned,
	}
	return m.notifier.Notify(ctx, chat.Attune, onOff(attuned), "itemAttune", data)
}

// checkUses reports limited-use resource changes. Two schemas exist side by
// side: a flat uses block on the item (spent-based in the current data
// model, value-based in the legacy one), and a map of activities each with
// its own uses block. Activities are evaluated independently, one
// notification per changed entry.
func (m *ItemMonitor) checkUses(ctx context.Context, cfg settings.Settings, actor *document.Actor, item *document.Item, d diff.Tree, category chat.Category) error {
	oldUses := item.System.Sub("uses")

	if oldUses.Present("spent") && (d.Present("system.uses.spent") || d.Present("system.uses.max")) {
		return m.checkSpentUses(ctx, cfg, actor, item, d, category, oldUses)
	}
	if d.Present("system.uses.value") || d.Present("system.uses.max") {
		return m.checkLegacyUses(ctx, cfg, actor, item, d, category, oldUses)
	}
	return m.checkActivityUses(ctx, cfg, actor, item, d, category)
}

// checkSpentUses handles the spent-based schema: remaining = max - spent.
func (m *ItemMonitor) checkSpentUses(ctx context.Context, cfg settings.Settings, actor *document.Actor, item *document.Item, d diff.Tree, category chat.Category, oldUses diff.Tree) error {
	newUses := d.Sub("system.uses")

	hasSpent := newUses.Present("spent")
	hasMax := newUses.Present("max")
	newSpent, _ := newUses.Get("spent")
	newMax, _ := newUses.Get("max")
	oldSpent, _ := oldUses.Get("spent")
	oldMax, _ := oldUses.Get("max")

	if unchanged(hasSpent, newSpent, oldSpent) && unchanged(hasMax, newMax, oldMax) {
		return nil
	}

	maxValue := numberOr(oldMax, 0)
	if hasMax {
		maxValue = numberOr(newMax, 0)
	}
	spent := numberOr(oldSpent, 0)
	if hasSpent {
		spent = numberOr(newSpent, 0)
	}
	remaining := maxValue - spent
	oldRemaining := numberOr(oldMax, 0) - numberOr(oldSpent, 0)

	uses := map[string]any{"value": remaining, "max": maxValue}
	if cfg.ShowPrevious {
		uses["old"] = oldRemaining
	}

	data := map[string]any{
		"characterName": m.characterName(cfg, actor),
		"itemName":      item.Name,
		"showPrevious":  cfg.ShowPrevious,
		"uses":          uses,
	}
	return m.notifier.Notify(ctx, category, chat.FlagFeats, "featUses", data)
}

// checkLegacyUses handles the value-based schema, where remaining uses are
// stored directly.
func (m *ItemMonitor) checkLegacyUses(ctx context.Context, cfg settings.Settings, actor *document.Actor, item *document.Item, d diff.Tree, category chat.Category, oldUses diff.Tree) error {
	hasValue := d.Present("system.uses.value")
	hasMax := d.Present("system.uses.max")
	newValue, _ := d.Get("system.uses.value")
	newMax, _ := d.Get("system.uses.max")
	oldValue, _ := oldUses.Get("value")
	oldMax, _ := oldUses.Get("max")

	if unchanged(hasValue, newValue, oldValue) && unchanged(hasMax, newMax, oldMax) {
		return nil
	}

	value := newValue
	if !hasValue {
		value = oldValue
	}
	maxValue := newMax
	if !hasMax {
		maxValue = oldMax
	}

	uses := map[string]any{
		"value": orZero(value),
		"max":   orZero(maxValue),
	}
	if cfg.ShowPrevious {
		uses["old"] = orZero(oldValue)
	}

	data := map[string]any{
		"characterName": m.characterName(cfg, actor),
		"itemName":      item.Name,
		"showPrevious":  cfg.ShowPrevious,
		"uses":          uses,
	}
	return m.notifier.Notify(ctx, category, chat.FlagFeats, "featUses", data)
}

// checkActivityUses walks the per-activity uses entries present in the
// diff. Max is read from current state: activity maxima are not expected
// to appear in a use mutation.
func (m *ItemMonitor) checkActivityUses(ctx context.Context, cfg settings.Settings, actor *document.Actor, item *document.Item, d diff.Tree, category chat.Category) error {
	activities := d.Sub("system.activities")
	if activities == nil {
		return nil
	}

	var errs []error
	for _, id := range activities.Keys() {
		newValue, ok := activities.Sub(id).Get("uses.value")
		if !ok {
			continue
		}
		current := item.System.Sub("activities." + id)
		if current == nil {
			continue
		}
		oldValue, _ := current.Get("uses.value")
		if diff.Equal(newValue, oldValue) || (diff.Falsy(newValue) && diff.Falsy(oldValue)) {
			continue
		}
		maxValue, _ := current.Get("uses.max")

		uses := map[string]any{
			"value": newValue,
			"max":   orZero(maxValue),
		}
		if cfg.ShowPrevious {
			uses["old"] = orZero(oldValue)
		}

		data := map[string]any{
			"characterName": m.characterName(cfg, actor),
			"itemName":      item.Name,
			"showPrevious":  cfg.ShowPrevious,
			"uses":          uses,
		}
		if err := m.notifier.Notify(ctx, category, chat.FlagFeats, "featUses", data); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// onOff maps a state transition to its presentation flag.
func onOff(on bool) string {
	if on {
		return chat.FlagOn
	}
	return chat.FlagOff
}

// numberOr coerces v to a number, substituting fallback for anything else.
func numberOr(v any, fallback float64) float64 {
	if n, ok := diff.AsNumber(v); ok {
		return n
	}
	return fallback
}
