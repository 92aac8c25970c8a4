// Package dnd5e carries the display lookup tables for the dnd5e game
// system: spell level names, currency denominations, skill and ability
// labels and proficiency tiers. These mirror the game system's own
// configuration data.
package dnd5e

import (
	"fmt"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titler = cases.Title(language.English)

// SpellLevels maps a numeric spell level to its display name.
var SpellLevels = map[int]string{
	0: "Cantrips",
	1: "1st Level",
	2: "2nd Level",
	3: "3rd Level",
	4: "4th Level",
	5: "5th Level",
	6: "6th Level",
	7: "7th Level",
	8: "8th Level",
	9: "9th Level",
}

// SpellLevelLabel resolves a spell level to its display name. Non-leveled
// slot pools (e.g. pact magic) fall back to a title-cased key.
func SpellLevelLabel(level int, key string) string {
	if label, ok := SpellLevels[level]; ok {
		return label
	}
	return titler.String(key)
}

// Currencies maps a denomination key to its display label.
var Currencies = map[string]string{
	"pp": "PP",
	"gp": "GP",
	"ep": "EP",
	"sp": "SP",
	"cp": "CP",
}

// CurrencyLabel resolves a denomination to its display label.
func CurrencyLabel(denom string) string {
	if label, ok := Currencies[denom]; ok {
		return label
	}
	return titler.String(denom)
}

// Skills maps a skill key to its display label.
var Skills = map[string]string{
	"acr": "Acrobatics",
	"ani": "Animal Handling",
	"arc": "Arcana",
	"ath": "Athletics",
	"dec": "Deception",
	"his": "History",
	"ins": "Insight",
	"itm": "Intimidation",
	"inv": "Investigation",
	"med": "Medicine",
	"nat": "Nature",
	"prc": "Perception",
	"prf": "Performance",
	"per": "Persuasion",
	"rel": "Religion",
	"slt": "Sleight of Hand",
	"ste": "Stealth",
	"sur": "Survival",
}

// SkillLabel resolves a skill key to its display label.
func SkillLabel(key string) string {
	if label, ok := Skills[key]; ok {
		return label
	}
	return titler.String(key)
}

// Abilities maps an ability key to its display label.
var Abilities = map[string]string{
	"str": "Strength",
	"dex": "Dexterity",
	"con": "Constitution",
	"int": "Intelligence",
	"wis": "Wisdom",
	"cha": "Charisma",
}

// AbilityLabel resolves an ability key to its display label.
func AbilityLabel(key string) string {
	if label, ok := Abilities[key]; ok {
		return label
	}
	return titler.String(key)
}

// ProficiencyLevels maps a numeric proficiency tier to its display label.
// The half tier is real: jack-of-all-trades grants 0.5.
var ProficiencyLevels = map[float64]string{
	0:   "Not Proficient",
	0.5: "Half Proficient",
	1:   "Proficient",
	2:   "Expertise",
}

// ProficiencyLabel resolves a proficiency tier to its display label.
func ProficiencyLabel(tier float64) string {
	if label, ok := ProficiencyLevels[tier]; ok {
		return label
	}
	return fmt.Sprintf("%g", tier)
}

// HPChannels maps a hit-point channel key to its display label.
var HPChannels = map[string]string{
	"value": "HP",
	"max":   "Max HP",
	"temp":  "Temp HP",
}
