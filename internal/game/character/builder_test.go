package character_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mverrilli/deckbound/internal/game/character"
	"github.com/mverrilli/deckbound/internal/game/ruleset"
)

func warden() *ruleset.Calling {
	return &ruleset.Calling{
		ID:            "warden",
		Name:          "Warden",
		MaxHealth:     24,
		Might:         3,
		Agility:       1,
		Resistance:    2,
		StartingGold:  10,
		Unlocks:       []string{"reaction.dodge"},
		StartingItems: []string{"iron-sword", "tower-shield"},
	}
}

func TestBuild(t *testing.T) {
	c, err := character.Build("Alice", warden())
	require.NoError(t, err)

	assert.Equal(t, "Alice", c.Name)
	assert.Equal(t, "warden", c.Calling)
	assert.Equal(t, 24, c.MaxHealth)
	assert.Equal(t, 24, c.Health, "new characters start at full health")
	assert.Equal(t, 3, c.Might)
	assert.Equal(t, 1, c.Agility)
	assert.Equal(t, 2, c.Resistance)
	assert.Equal(t, 10, c.Gold)
	require.Len(t, c.Inventory, 2)
	assert.Equal(t, character.ItemSnapshot{DefID: "iron-sword", Quantity: 1}, c.Inventory[0])
	assert.Zero(t, c.ID, "unsaved character has no id")
}

func TestBuild_EmptyName(t *testing.T) {
	_, err := character.Build("", warden())
	assert.Error(t, err)
}

func TestBuild_NilCalling(t *testing.T) {
	_, err := character.Build("Alice", nil)
	assert.Error(t, err)
}

func TestBuild_InvalidCalling(t *testing.T) {
	c := warden()
	c.MaxHealth = 0
	_, err := character.Build("Alice", c)
	assert.Error(t, err)
}

func TestBuild_CopiesUnlocks(t *testing.T) {
	calling := warden()
	c, err := character.Build("Alice", calling)
	require.NoError(t, err)

	calling.Unlocks[0] = "mutated"
	assert.Equal(t, "reaction.dodge", c.Unlocks[0], "unlocks are copied, not shared")
}

func TestHasUnlock(t *testing.T) {
	c, err := character.Build("Alice", warden())
	require.NoError(t, err)
	assert.True(t, c.HasUnlock("reaction.dodge"))
	assert.False(t, c.HasUnlock("reaction.parry"))
}
