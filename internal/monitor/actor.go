package monitor

import (
	"context"
	"errors"
	"log/slog"
	"unicode"

	"github.com/jwebster45206/character-monitor/internal/feed"
	"github.com/jwebster45206/character-monitor/internal/notify"
	"github.com/jwebster45206/character-monitor/internal/settings"
	"github.com/jwebster45206/character-monitor/pkg/chat"
	"github.com/jwebster45206/character-monitor/pkg/diff"
	"github.com/jwebster45206/character-monitor/pkg/dnd5e"
	"github.com/jwebster45206/character-monitor/pkg/document"
)

// hpChannels fixes the evaluation order of the three hit-point channels.
var hpChannels = []string{"value", "max", "temp"}

// ActorMonitor watches character mutations: spell slots, currency,
// proficiency, XP, level, ability scores and AC on the pre-mutation event,
// hit points on the post-mutation event (which carries the host's resolved
// previous values).
type ActorMonitor struct {
	Monitor
}

// NewActorMonitor creates the character dispatcher.
func NewActorMonitor(provider settings.Provider, notifier notify.Notifier, userID string, logger *slog.Logger) *ActorMonitor {
	return &ActorMonitor{Monitor: newMonitor(provider, notifier, userID, logger)}
}

// Register subscribes the dispatcher to the actor event feed.
func (m *ActorMonitor) Register(bus *feed.Bus) {
	bus.On(document.KindActor, document.ActionPreUpdate, m.HandlePreUpdate)
	bus.On(document.KindActor, document.ActionUpdate, m.HandleUpdate)
}

// HandlePreUpdate evaluates every category except hit points against a
// proposed actor mutation.
func (m *ActorMonitor) HandlePreUpdate(ctx context.Context, ev document.MutationEvent) {
	actor := ev.Actor
	if !actor.IsCharacter() {
		return
	}
	// Leveling workflows rewrite many fields at once; those updates are
	// reported by their own category, not field by field.
	if ev.Options.IsAdvancement {
		return
	}
	cfg, ok := m.loadSettings(ctx)
	if !ok || !m.shouldMonitor(cfg, actor) {
		return
	}

	d := ev.Diff
	m.runChecks([]check{
		{"spellSlots", func() error { return m.checkSpellSlots(ctx, cfg, actor, d) }},
		{"currency", func() error { return m.checkCurrency(ctx, cfg, actor, d) }},
		{"proficiency", func() error { return m.checkProficiency(ctx, cfg, actor, d) }},
		{"xp", func() error { return m.checkXP(ctx, cfg, actor, d) }},
		{"level", func() error { return m.checkLevel(ctx, cfg, actor, d) }},
		{"ability", func() error { return m.checkAbility(ctx, cfg, actor, d) }},
		{"ac", func() error { return m.checkAC(ctx, cfg, actor, d) }},
	})
}

// HandleUpdate evaluates hit points after a mutation has been applied.
func (m *ActorMonitor) HandleUpdate(ctx context.Context, ev document.MutationEvent) {
	actor := ev.Actor
	if !actor.IsMonitored() {
		return
	}
	cfg, ok := m.loadSettings(ctx)
	if !ok || !cfg.Enabled(chat.HP) || !m.shouldMonitor(cfg, actor) {
		return
	}
	if !ev.Diff.Present("system.attributes.hp") {
		return
	}
	if err := m.checkHP(ctx, cfg, actor, ev); err != nil {
		m.logger.Error("Monitor check failed", "check", "hp", "error", err)
	}
}

func (m *ActorMonitor) checkSpellSlots(ctx context.Context, cfg settings.Settings, actor *document.Actor, d diff.Tree) error {
	if !cfg.Enabled(chat.SpellSlots) || !d.Present("system.spells") {
		return nil
	}

	spells := d.Sub("system.spells")
	var errs []error
	for _, level := range spells.Keys() {
		newData := spells.Sub(level)
		oldData := actor.System.Sub("spells." + level)

		hasValue := newData.Present("value")
		hasMax := newData.Present("override") || newData.Present("max")
		if !hasValue && !hasMax {
			continue
		}

		newValue, _ := newData.Get("value")
		newMax, overridden := newData.Get("override")
		if !overridden {
			newMax, _ = newData.Get("max")
		}
		oldValue, _ := oldData.Get("value")
		oldMax, _ := oldData.Get("max")

		if unchanged(hasValue, newValue, oldValue) && unchanged(hasMax, newMax, oldMax) {
			continue
		}

		value := newValue
		if !hasValue {
			value = oldValue
		}
		maxValue := newMax
		if maxValue == nil {
			maxValue = oldMax
		}

		slot := map[string]any{
			"label": spellLevelLabel(level),
			"value": orZero(value),
			"max":   orZero(maxValue),
		}
		if cfg.ShowPrevious {
			slot["old"] = orZero(oldValue)
			slot["showPrevious"] = true
		}

		data := map[string]any{
			"characterName": m.characterName(cfg, actor),
			"spellSlot":     slot,
		}
		if err := m.notifier.Notify(ctx, chat.SpellSlots, chat.FlagSlots, "spellSlots", data); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *ActorMonitor) checkCurrency(ctx context.Context, cfg settings.Settings, actor *document.Actor, d diff.Tree) error {
	if !cfg.Enabled(chat.Currency) || !d.Present("system.currency") {
		return nil
	}

	currency := d.Sub("system.currency")
	var errs []error
	for _, denom := range currency.Keys() {
		newValue, ok := currency.Get(denom)
		if !ok || newValue == nil {
			continue
		}
		oldValue, _ := actor.System.Get("currency." + denom)
		if diff.Equal(newValue, oldValue) {
			continue
		}

		entry := map[string]any{
			"label": dnd5e.CurrencyLabel(denom),
			"value": newValue,
		}
		if cfg.ShowPrevious {
			entry["old"] = orZero(oldValue)
			entry["showPrevious"] = true
		}

		data := map[string]any{
			"characterName": m.characterName(cfg, actor),
			"currency":      entry,
		}
		if err := m.notifier.Notify(ctx, chat.Currency, chat.FlagCurrency, "currency", data); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *ActorMonitor) checkProficiency(ctx context.Context, cfg settings.Settings, actor *document.Actor, d diff.Tree) error {
	if !cfg.Enabled(chat.Proficiency) {
		return nil
	}
	if !d.Present("system.skills") && !d.Present("system.abilities") {
		return nil
	}

	name := m.characterName(cfg, actor)
	var errs []error

	skills := d.Sub("system.skills")
	for _, skl := range skills.Keys() {
		newTier, ok := skills.Sub(skl).Number("value")
		if !ok {
			continue
		}
		oldTier, _ := actor.System.Number("skills." + skl + ".value")
		if newTier == oldTier {
			continue
		}

		data := map[string]any{
			"characterName": name,
			"proficiency": map[string]any{
				"label": dnd5e.SkillLabel(skl),
				"value": dnd5e.ProficiencyLabel(newTier),
				"old":   dnd5e.ProficiencyLabel(oldTier),
			},
		}
		if err := m.notifier.Notify(ctx, chat.Proficiency, chat.FlagProficiency, "proficiency", data); err != nil {
			errs = append(errs, err)
		}
	}

	// Saving throw proficiency rides on the ability entries.
	abilities := d.Sub("system.abilities")
	for _, abil := range abilities.Keys() {
		newTier, ok := abilities.Sub(abil).Number("proficient")
		if !ok {
			continue
		}
		oldTier, _ := actor.System.Number("abilities." + abil + ".proficient")
		if newTier == oldTier {
			continue
		}

		data := map[string]any{
			"characterName": name,
			"proficiency": map[string]any{
				"label": dnd5e.AbilityLabel(abil),
				"value": dnd5e.ProficiencyLabel(newTier),
				"old":   dnd5e.ProficiencyLabel(oldTier),
			},
		}
		if err := m.notifier.Notify(ctx, chat.Proficiency, chat.FlagProficiency, "proficiency", data); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (m *ActorMonitor) checkHP(ctx context.Context, cfg settings.Settings, actor *document.Actor, ev document.MutationEvent) error {
	previous := ev.Options.HP
	if previous == nil {
		return nil
	}
	// Every connected client observes the same broadcast mutation; only the
	// originating user reports it.
	if ev.UserID != m.userID {
		return nil
	}

	name := m.characterName(cfg, actor)
	var errs []error
	for _, channel := range hpChannels {
		value, _ := actor.System.Int("attributes.hp." + channel)
		previousValue := previous.Channel(channel)
		delta := value - previousValue
		if delta == 0 {
			continue
		}

		direction := "Minus"
		flag := chat.FlagHPMinus
		if delta > 0 {
			direction = "Plus"
			flag = chat.FlagHPPlus
		}

		data := map[string]any{
			"characterName": name,
			"type":          dnd5e.HPChannels[channel],
			"direction":     direction,
			"value":         value,
			"previousValue": previousValue,
			"previous":      cfg.ShowPrevious,
		}
		if err := m.notifier.Notify(ctx, chat.HP, flag, "hp", data); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *ActorMonitor) checkXP(ctx context.Context, cfg settings.Settings, actor *document.Actor, d diff.Tree) error {
	if !cfg.Enabled(chat.XP) || !d.Present("system.details.xp") {
		return nil
	}

	newXP, _ := d.Get("system.details.xp.value")
	oldXP, _ := actor.System.Get("details.xp.value")
	if diff.Equal(newXP, oldXP) {
		return nil
	}

	data := map[string]any{
		"characterName": m.characterName(cfg, actor),
		"xp":            map[string]any{"value": newXP, "old": oldXP},
		"showPrevious":  cfg.ShowPrevious,
	}
	return m.notifier.Notify(ctx, chat.XP, chat.FlagXP, "xp", data)
}

func (m *ActorMonitor) checkLevel(ctx context.Context, cfg settings.Settings, actor *document.Actor, d diff.Tree) error {
	if !cfg.Enabled(chat.Level) || !d.Present("system.details.level") {
		return nil
	}

	newLevel, _ := d.Get("system.details.level")
	oldLevel, _ := actor.System.Get("details.level")
	if diff.Equal(newLevel, oldLevel) {
		return nil
	}

	data := map[string]any{
		"characterName": m.characterName(cfg, actor),
		"level":         map[string]any{"value": newLevel, "old": oldLevel},
		"showPrevious":  cfg.ShowPrevious,
	}
	return m.notifier.Notify(ctx, chat.Level, chat.FlagLevel, "level", data)
}

func (m *ActorMonitor) checkAbility(ctx context.Context, cfg settings.Settings, actor *document.Actor, d diff.Tree) error {
	if !cfg.Enabled(chat.Ability) || !d.Present("system.abilities") {
		return nil
	}

	abilities := d.Sub("system.abilities")
	var errs []error
	for _, abil := range abilities.Keys() {
		changes := abilities.Sub(abil)
		if !changes.Present("value") {
			continue
		}
		newValue, _ := changes.Get("value")
		oldValue, _ := actor.System.Get("abilities." + abil + ".value")
		if diff.Equal(newValue, oldValue) {
			continue
		}

		data := map[string]any{
			"characterName": m.characterName(cfg, actor),
			"ability": map[string]any{
				"label": dnd5e.AbilityLabel(abil),
				"value": newValue,
				"old":   oldValue,
			},
		}
		if err := m.notifier.Notify(ctx, chat.Ability, chat.FlagAbility, "ability", data); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *ActorMonitor) checkAC(ctx context.Context, cfg settings.Settings, actor *document.Actor, d diff.Tree) error {
	if !cfg.Enabled(chat.AC) || !d.Present("system.attributes.ac") {
		return nil
	}
	// Only the flat override is user-meaningful; derived AC churn is noise.
	if !d.Present("system.attributes.ac.flat") {
		return nil
	}

	newValue, _ := d.Get("system.attributes.ac.flat")
	oldValue, _ := actor.System.Get("attributes.ac.flat")
	if diff.Equal(newValue, oldValue) {
		return nil
	}

	data := map[string]any{
		"characterName": m.characterName(cfg, actor),
		"ac":            map[string]any{"value": newValue, "old": oldValue},
		"showPrevious":  cfg.ShowPrevious,
	}
	return m.notifier.Notify(ctx, chat.AC, chat.FlagAC, "ac", data)
}

// spellLevelLabel resolves a slot-pool key like "spell3" through the level
// lookup; non-leveled pools (e.g. "pact") fall back to the key itself.
func spellLevelLabel(key string) string {
	if key == "" {
		return key
	}
	last := rune(key[len(key)-1])
	if unicode.IsDigit(last) {
		return dnd5e.SpellLevelLabel(int(last-'0'), key)
	}
	return dnd5e.SpellLevelLabel(-1, key)
}

// orZero substitutes 0 for missing numeric payload values.
func orZero(v any) any {
	if v == nil {
		return 0
	}
	return v
}
