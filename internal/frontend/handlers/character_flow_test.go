package handlers_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/mverrilli/deckbound/internal/frontend/handlers"
	"github.com/mverrilli/deckbound/internal/frontend/telnet"
	"github.com/mverrilli/deckbound/internal/game/character"
)

func TestIsRandomInput(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"", true},
		{"   ", true},
		{"r", true},
		{"R", true},
		{"random", true},
		{"RANDOM", true},
		{" Random ", true},
		{"1", false},
		{"cancel", false},
		{"rnd", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, handlers.IsRandomInput(tc.in), "input %q", tc.in)
	}
}

func TestRandomNames_AllValid(t *testing.T) {
	for _, name := range handlers.RandomNames {
		assert.GreaterOrEqual(t, len(name), 2, "name %q too short", name)
		assert.LessOrEqual(t, len(name), 32, "name %q too long", name)
		lower := strings.ToLower(name)
		assert.NotEqual(t, "cancel", lower)
		assert.NotEqual(t, "random", lower)
	}
}

func TestFormatCharacterSummary(t *testing.T) {
	c := &character.Character{
		Name: "Brick", Calling: "warden",
		MaxHealth: 20, Health: 14, Gold: 25,
	}
	out := telnet.StripANSI(handlers.FormatCharacterSummary(c, "Warden"))
	assert.Contains(t, out, "Brick")
	assert.Contains(t, out, "Warden")
	assert.Contains(t, out, "14/20 HP")
	assert.Contains(t, out, "25 gold")
}

func TestFormatCharacterStats(t *testing.T) {
	c := &character.Character{
		Name: "Brick", Calling: "warden",
		MaxHealth: 20, Health: 20,
		Might: 3, Agility: 2, Resistance: 1, Gold: 10,
		Inventory: []character.ItemSnapshot{
			{DefID: "iron-sword", Quantity: 1},
			{DefID: "healing-draught", Quantity: 2},
		},
	}
	out := telnet.StripANSI(handlers.FormatCharacterStats(c, "Warden"))
	assert.Contains(t, out, "Brick")
	assert.Contains(t, out, "Warden")
	assert.Contains(t, out, "20/20")
	assert.Contains(t, out, "MGT")
	assert.Contains(t, out, "iron-sword")
	assert.Contains(t, out, "healing-draught")
}

// TestProperty_FormatCharacterSummary verifies that for any character,
// the summary is non-empty and always names the character and calling.
func TestProperty_FormatCharacterSummary(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		name := rapid.StringMatching(`[A-Za-z][A-Za-z0-9]{1,15}`).Draw(rt, "name")
		calling := rapid.StringMatching(`[A-Z][a-z]{3,10}`).Draw(rt, "calling")
		maxHealth := rapid.IntRange(1, 100).Draw(rt, "max_health")
		health := rapid.IntRange(0, maxHealth).Draw(rt, "health")

		c := &character.Character{
			Name:      name,
			MaxHealth: maxHealth,
			Health:    health,
		}
		summary := handlers.FormatCharacterSummary(c, calling)
		assert.NotEmpty(rt, summary)
		assert.Contains(rt, summary, name)
		assert.Contains(rt, summary, calling)
	})
}

// TestProperty_FormatCharacterStats verifies that the stats block always
// carries the stat labels and health line.
func TestProperty_FormatCharacterStats(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		might := rapid.IntRange(0, 10).Draw(rt, "might")
		agility := rapid.IntRange(0, 10).Draw(rt, "agility")
		resistance := rapid.IntRange(0, 10).Draw(rt, "resistance")
		health := rapid.IntRange(1, 100).Draw(rt, "health")

		c := &character.Character{
			Name:      "Test",
			MaxHealth: health,
			Health:    health,
			Might:     might, Agility: agility, Resistance: resistance,
		}
		stats := handlers.FormatCharacterStats(c, "Warden")
		assert.NotEmpty(rt, stats)
		for _, label := range []string{"MGT", "AGI", "RES", "Health"} {
			assert.Contains(rt, stats, label)
		}
	})
}
