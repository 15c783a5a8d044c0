package character

import (
	"errors"

	"github.com/mverrilli/deckbound/internal/game/ruleset"
)

// Build constructs a new level-one Character from a name and a calling.
// The calling fixes the stat line, health, starting gold, unlocks, and
// starting inventory.
//
// Precondition: name must be non-empty; calling must be non-nil and valid.
// Postcondition: Returns a Character ready for persistence, or a non-nil error.
func Build(name string, calling *ruleset.Calling) (*Character, error) {
	if name == "" {
		return nil, errors.New("character name must not be empty")
	}
	if calling == nil {
		return nil, errors.New("calling must not be nil")
	}
	if err := calling.Validate(); err != nil {
		return nil, err
	}

	inv := make([]ItemSnapshot, 0, len(calling.StartingItems))
	for _, defID := range calling.StartingItems {
		inv = append(inv, ItemSnapshot{DefID: defID, Quantity: 1})
	}

	unlocks := make([]string, len(calling.Unlocks))
	copy(unlocks, calling.Unlocks)

	return &Character{
		Name:       name,
		Calling:    calling.ID,
		MaxHealth:  calling.MaxHealth,
		Health:     calling.MaxHealth,
		Might:      calling.Might,
		Agility:    calling.Agility,
		Resistance: calling.Resistance,
		Gold:       calling.StartingGold,
		Unlocks:    unlocks,
		Inventory:  inv,
	}, nil
}
