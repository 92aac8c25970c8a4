// Package document defines read-only snapshots of the host's game entities
// and the mutation events the host emits for them. Snapshots are captured
// before a mutation is applied (except where noted) and are never modified
// by the monitors.
package document

import (
	"github.com/jwebster45206/character-monitor/pkg/diff"
)

// Actor types recognized by the dnd5e game system.
const (
	TypeCharacter = "character"
	TypeNPC       = "npc"
)

// Item types recognized by the dnd5e game system.
const (
	ItemEquipment = "equipment"
	ItemWeapon    = "weapon"
	ItemSpell     = "spell"
	ItemFeat      = "feat"
)

// Actor is a read-only view of an actor's state at the moment a mutation is
// proposed. System holds the full attribute tree (hp, spells, currency,
// skills, ...) keyed the way the game system lays it out.
type Actor struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	TokenName string    `json:"token_name,omitempty"`
	System    diff.Tree `json:"system"`
}

// IsCharacter reports whether the actor is a player character.
func (a *Actor) IsCharacter() bool {
	return a != nil && a.Type == TypeCharacter
}

// IsMonitored reports whether the actor kind is watched at all: player
// characters and NPCs. Vehicles, groups and other actor kinds are not.
func (a *Actor) IsMonitored() bool {
	return a != nil && (a.Type == TypeCharacter || a.Type == TypeNPC)
}

// Item is a read-only view of an owned item (equipment, weapon, spell, feat).
type Item struct {
	ID     string    `json:"id"`
	Name   string    `json:"name"`
	Type   string    `json:"type"`
	Parent *Actor    `json:"parent,omitempty"`
	System diff.Tree `json:"system"`
}

// Effect is a read-only view of an active status effect on an actor.
type Effect struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Disabled bool   `json:"disabled"`
	Parent   *Actor `json:"parent,omitempty"`
}

// HPState captures the exact hit-point numbers the host recorded before a
// mutation was applied. Temporary-HP semantics require these pre-transaction
// values rather than the before-snapshot.
type HPState struct {
	Value int `json:"value"`
	Max   int `json:"max"`
	Temp  int `json:"temp"`
}

// Channel returns one hit-point channel by its attribute key.
func (h *HPState) Channel(key string) int {
	switch key {
	case "value":
		return h.Value
	case "max":
		return h.Max
	case "temp":
		return h.Temp
	}
	return 0
}

// UpdateOptions is the context map the host attaches to a mutation.
type UpdateOptions struct {
	// IsAdvancement marks updates produced by a leveling workflow. The
	// actor monitor skips these to avoid double-reporting.
	IsAdvancement bool `json:"isAdvancement,omitempty"`

	// HP is the host-captured previous hit-point state, present on
	// post-mutation actor events.
	HP *HPState `json:"hp,omitempty"`
}

// Kind identifies which entity class a mutation event concerns.
type Kind string

const (
	KindActor  Kind = "actor"
	KindItem   Kind = "item"
	KindEffect Kind = "effect"
)

// Action identifies where in the mutation lifecycle an event fired.
type Action string

const (
	ActionPreUpdate Action = "preupdate"
	ActionUpdate    Action = "update"
	ActionCreate    Action = "create"
	ActionDelete    Action = "delete"
)

// MutationEvent is one host event: the entity's snapshot, the sparse diff a
// pending update will apply, the host's context map and the user who
// originated the mutation. Exactly one of Actor, Item or Effect is set,
// matching Kind.
type MutationEvent struct {
	Kind    Kind          `json:"kind"`
	Action  Action        `json:"action"`
	Actor   *Actor        `json:"actor,omitempty"`
	Item    *Item         `json:"item,omitempty"`
	Effect  *Effect       `json:"effect,omitempty"`
	Diff    diff.Tree     `json:"diff,omitempty"`
	Options UpdateOptions `json:"options"`
	UserID  string        `json:"user_id"`
}
