// Package settings manages the world-scoped monitor configuration. The
// values live in the host's key-value store; this package loads them into an
// immutable snapshot per evaluation and writes defaults for keys that have
// never been set.
package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/jwebster45206/character-monitor/internal/services"
	"github.com/jwebster45206/character-monitor/pkg/chat"
)

// Setting keys, excluding the per-category monitor flags which are derived
// as "monitor"+category.
const (
	KeyShowGMOnly      = "showGMOnly"
	KeyShowToggle      = "showToggle"
	KeyShowPrevious    = "showPrevious"
	KeyCMToggle        = "cmToggle" // runtime master toggle, hidden from the config UI
	KeyUseTokenName    = "useTokenName"
	KeyHideNPCs        = "hideNPCs"
	KeyHideNPCname     = "hideNPCname"
	KeyReplacementName = "replacementName"
	KeyGMUserIDs       = "gmUserIDs"
	KeyColors          = "colors"
)

// DefaultReplacementName is used for hidden NPC names.
const DefaultReplacementName = "???"

// MonitorKey is the enable-flag key for a category.
func MonitorKey(category chat.Category) string {
	return "monitor" + string(category)
}

// Settings is one immutable snapshot of the world configuration.
type Settings struct {
	Monitors        map[chat.Category]bool
	ShowGMOnly      bool
	ShowToggle      bool
	ShowPrevious    bool
	CMToggle        bool
	UseTokenName    bool
	HideNPCs        bool
	HideNPCname     bool
	ReplacementName string
	GMUserIDs       []string
	Colors          map[string]string
}

// Defaults is the configuration a fresh world starts with: every category
// enabled, every presentation option off, default colors.
func Defaults() Settings {
	monitors := make(map[chat.Category]bool, len(chat.Categories))
	for _, category := range chat.Categories {
		monitors[category] = true
	}
	colors := make(map[string]string, len(chat.DefaultColors))
	for flag, color := range chat.DefaultColors {
		colors[flag] = color
	}
	return Settings{
		Monitors:        monitors,
		CMToggle:        true,
		ReplacementName: DefaultReplacementName,
		Colors:          colors,
	}
}

// Enabled reports whether a category's monitor is switched on.
func (s Settings) Enabled(category chat.Category) bool {
	return s.Monitors[category]
}

// Suspended reports whether monitoring is globally paused. The UI toggle
// only takes effect when showToggle exposes it.
func (s Settings) Suspended() bool {
	return s.ShowToggle && !s.CMToggle
}

// Color resolves a presentation flag to its configured color.
func (s Settings) Color(flag string) string {
	if color, ok := s.Colors[flag]; ok {
		return color
	}
	return chat.DefaultColors[flag]
}

// Provider hands out configuration snapshots. Dispatchers load a fresh
// snapshot per event, so runtime settings changes apply to the next event
// without a restart.
type Provider interface {
	Load(ctx context.Context) (Settings, error)
}

// Static is a fixed-snapshot Provider for tests.
type Static struct {
	Settings Settings
}

func (p Static) Load(ctx context.Context) (Settings, error) {
	return p.Settings, nil
}

// Store persists world settings in the host's key-value service.
type Store struct {
	cache   services.Cache
	worldID string
	logger  *slog.Logger
}

// Ensure Store implements Provider
var _ Provider = (*Store)(nil)

// NewStore creates a settings store for one world.
func NewStore(cache services.Cache, worldID string, logger *slog.Logger) *Store {
	return &Store{
		cache:   cache,
		worldID: worldID,
		logger:  logger,
	}
}

func (s *Store) key(name string) string {
	return fmt.Sprintf("charmon:settings:%s:%s", s.worldID, name)
}

// Load reads the full snapshot, substituting defaults for unset keys.
func (s *Store) Load(ctx context.Context) (Settings, error) {
	out := Defaults()

	for _, category := range chat.Categories {
		enabled, err := s.getBool(ctx, MonitorKey(category), true)
		if err != nil {
			return Settings{}, err
		}
		out.Monitors[category] = enabled
	}

	var err error
	if out.ShowGMOnly, err = s.getBool(ctx, KeyShowGMOnly, false); err != nil {
		return Settings{}, err
	}
	if out.ShowToggle, err = s.getBool(ctx, KeyShowToggle, false); err != nil {
		return Settings{}, err
	}
	if out.ShowPrevious, err = s.getBool(ctx, KeyShowPrevious, false); err != nil {
		return Settings{}, err
	}
	if out.CMToggle, err = s.getBool(ctx, KeyCMToggle, true); err != nil {
		return Settings{}, err
	}
	if out.UseTokenName, err = s.getBool(ctx, KeyUseTokenName, false); err != nil {
		return Settings{}, err
	}
	if out.HideNPCs, err = s.getBool(ctx, KeyHideNPCs, false); err != nil {
		return Settings{}, err
	}
	if out.HideNPCname, err = s.getBool(ctx, KeyHideNPCname, false); err != nil {
		return Settings{}, err
	}

	if name, err := s.cache.Get(ctx, s.key(KeyReplacementName)); err != nil {
		return Settings{}, err
	} else if name != "" {
		out.ReplacementName = name
	}

	if raw, err := s.cache.Get(ctx, s.key(KeyGMUserIDs)); err != nil {
		return Settings{}, err
	} else if raw != "" {
		if err := json.Unmarshal([]byte(raw), &out.GMUserIDs); err != nil {
			return Settings{}, fmt.Errorf("failed to decode %s: %w", KeyGMUserIDs, err)
		}
	}

	if raw, err := s.cache.Get(ctx, s.key(KeyColors)); err != nil {
		return Settings{}, err
	} else if raw != "" {
		colors := make(map[string]string)
		if err := json.Unmarshal([]byte(raw), &colors); err != nil {
			return Settings{}, fmt.Errorf("failed to decode %s: %w", KeyColors, err)
		}
		for flag, color := range colors {
			out.Colors[flag] = color
		}
	}

	return out, nil
}

// SetBool writes a boolean setting.
func (s *Store) SetBool(ctx context.Context, name string, value bool) error {
	return s.cache.Set(ctx, s.key(name), strconv.FormatBool(value), 0)
}

// SetString writes a string setting.
func (s *Store) SetString(ctx context.Context, name, value string) error {
	return s.cache.Set(ctx, s.key(name), value, 0)
}

// SetGMUserIDs writes the privileged-user roster used for whisper targeting.
func (s *Store) SetGMUserIDs(ctx context.Context, userIDs []string) error {
	data, err := json.Marshal(userIDs)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", KeyGMUserIDs, err)
	}
	return s.cache.Set(ctx, s.key(KeyGMUserIDs), string(data), 0)
}

// SetColors writes the per-flag color overrides.
func (s *Store) SetColors(ctx context.Context, colors map[string]string) error {
	data, err := json.Marshal(colors)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", KeyColors, err)
	}
	return s.cache.Set(ctx, s.key(KeyColors), string(data), 0)
}

// ResetColors restores the default color mapping.
func (s *Store) ResetColors(ctx context.Context) error {
	return s.SetColors(ctx, chat.DefaultColors)
}

func (s *Store) getBool(ctx context.Context, name string, fallback bool) (bool, error) {
	raw, err := s.cache.Get(ctx, s.key(name))
	if err != nil {
		return false, err
	}
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		s.logger.Warn("Ignoring malformed boolean setting", "key", name, "value", raw)
		return fallback, nil
	}
	return value, nil
}
