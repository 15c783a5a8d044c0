// Package character defines the persistent character record and pure
// creation logic. Characters are the externally owned state that
// encounter sessions copy in at start and write back after observable
// changes.
package character

import "time"

// ItemSnapshot is one persisted inventory line: an item definition id
// and a stack count.
type ItemSnapshot struct {
	DefID    string `json:"def_id"`
	Quantity int    `json:"quantity"`
}

// Character represents a player character's persistent state.
//
// AccountID and ID are set by the persistence layer; zero values
// indicate an unsaved character.
type Character struct {
	ID        int64
	AccountID int64

	Name    string
	Calling string // calling ID

	MaxHealth int
	Health    int

	Might      int
	Agility    int
	Resistance int

	Gold int

	// Unlocks are progression flags gating abilities (e.g. the dodge
	// reaction).
	Unlocks []string

	// Inventory is the carried-item snapshot written back after each
	// observable encounter change.
	Inventory []ItemSnapshot

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasUnlock reports whether the character carries the given progression flag.
func (c *Character) HasUnlock(flag string) bool {
	for _, u := range c.Unlocks {
		if u == flag {
			return true
		}
	}
	return false
}
