// Package chat defines the notification messages the monitors emit and the
// Redis channel/key naming shared by the emitter, the relay and the console.
package chat

import (
	"fmt"
	"time"
)

// Category is one of the monitored attribute classes. Each category has its
// own enable flag in the world settings.
type Category string

const (
	HP          Category = "HP"
	Equip       Category = "Equip"
	Quantity    Category = "Quantity"
	Attune      Category = "Attune"
	SpellPrep   Category = "SpellPrep"
	SpellSlots  Category = "SpellSlots"
	Feats       Category = "Feats"
	ItemCharges Category = "ItemCharges"
	Currency    Category = "Currency"
	Proficiency Category = "Proficiency"
	SheetMode   Category = "SheetMode"
	Effects     Category = "Effects"
	XP          Category = "XP"
	Level       Category = "Level"
	Ability     Category = "Ability"
	AC          Category = "AC"
)

// Categories lists every monitored category, in settings-menu order.
var Categories = []Category{
	HP, Equip, Quantity, Attune, SpellPrep, SpellSlots, Feats, ItemCharges,
	Currency, Proficiency, SheetMode, Effects, XP, Level, Ability, AC,
}

// Presentation flags. A message's flag selects its display color and may
// differ from its category: boolean flips report "on"/"off" and hit-point
// changes report a direction, so state transitions are color-coded
// distinctly from magnitude changes.
const (
	FlagHPPlus      = "hpPlus"
	FlagHPMinus     = "hpMinus"
	FlagOn          = "on"
	FlagOff         = "off"
	FlagSlots       = "slots"
	FlagFeats       = "feats"
	FlagEffects     = "effects"
	FlagCurrency    = "currency"
	FlagProficiency = "proficiency"
	FlagAbility     = "ability"
	FlagSheetMode   = "sheetMode"
	FlagXP          = "xp"
	FlagLevel       = "level"
	FlagAC          = "ac"
)

// DefaultColors maps presentation flags to their default hex colors.
var DefaultColors = map[string]string{
	FlagHPPlus:      "#06a406",
	FlagHPMinus:     "#c50d19",
	FlagOn:          "#06a406",
	FlagOff:         "#c50d19",
	FlagSlots:       "#b042f5",
	FlagFeats:       "#425af5",
	FlagEffects:     "#c86400",
	FlagCurrency:    "#b59b3c",
	FlagProficiency: "#37908a",
	FlagAbility:     "#37908a",
	FlagSheetMode:   "#000000",
	FlagXP:          "#b59b3c",
	FlagLevel:       "#b59b3c",
	FlagAC:          "#37908a",
}

// Message is one rendered notification, published on the world chat channel
// and persisted by the privileged relay. Whisper, when non-empty, restricts
// delivery to the listed user IDs.
type Message struct {
	ID        string    `json:"id"`
	Category  Category  `json:"category"`
	Flag      string    `json:"flag"`
	Content   string    `json:"content"`
	Whisper   []string  `json:"whisper,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Channel is the pub/sub channel notifications for a world are published on.
func Channel(worldID string) string {
	return fmt.Sprintf("charmon:chat:%s", worldID)
}

// LogKey is the Redis list the relay appends public messages to.
func LogKey(worldID string) string {
	return fmt.Sprintf("charmon:chatlog:%s", worldID)
}

// WhisperLogKey is the per-recipient list whispered messages land in.
func WhisperLogKey(worldID, userID string) string {
	return fmt.Sprintf("charmon:chatlog:%s:user:%s", worldID, userID)
}
