package combat_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/mverrilli/deckbound/internal/game/combat"
	"github.com/mverrilli/deckbound/internal/game/effect"
)

func newTestCombatant() *combat.Combatant {
	return combat.NewCombatant("p1", "Vex", 101, 20, 10)
}

func TestCombatant_ApplyDamageFloorsAtZeroAndMarksDead(t *testing.T) {
	c := newTestCombatant()
	killed := c.ApplyDamage(5)
	assert.False(t, killed)
	assert.Equal(t, 15, c.Health)

	killed = c.ApplyDamage(100)
	assert.True(t, killed)
	assert.Equal(t, 0, c.Health)
	assert.True(t, c.IsDead())

	// Damage to the dead is a no-op and never reports a second kill.
	assert.False(t, c.ApplyDamage(3))
}

func TestCombatant_HealCapsAtMaxAndSkipsDead(t *testing.T) {
	c := newTestCombatant()
	c.ApplyDamage(10)
	c.Heal(100)
	assert.Equal(t, c.MaxHealth, c.Health)

	c.ApplyDamage(100)
	c.Heal(5)
	assert.Equal(t, 0, c.Health, "dead combatants are not revived by Heal")
}

func TestCombatant_SpendActionPoints(t *testing.T) {
	c := newTestCombatant()
	c.RefillActionPoints(3)

	require.True(t, c.SpendActionPoints(2))
	assert.Equal(t, 1, c.ActionPoints)

	assert.False(t, c.SpendActionPoints(2), "insufficient AP must not partially apply")
	assert.Equal(t, 1, c.ActionPoints)

	require.True(t, c.SpendActionPoints(1))
	assert.True(t, c.Exhausted())
}

func TestCombatant_ExhaustedByEndTurn(t *testing.T) {
	c := newTestCombatant()
	c.RefillActionPoints(3)
	assert.False(t, c.Exhausted())

	c.EndedTurn = true
	assert.True(t, c.Exhausted())

	c.RefillActionPoints(3)
	assert.False(t, c.Exhausted(), "refill clears the end-turn flag")
}

func TestCombatant_EffectiveStatIncludesBuffs(t *testing.T) {
	c := newTestCombatant()
	c.Might = 4
	c.Effects.Apply(effect.Effect{Name: "rage", Kind: effect.KindStatBonus, Remaining: 2, Magnitude: 2, Stat: "might"})
	assert.Equal(t, 6, c.EffectiveStat("might"))
	assert.Equal(t, 0, c.EffectiveStat("agility"))
}

func TestCombatant_MitigatePhysical(t *testing.T) {
	c := newTestCombatant()
	c.Resistance = 2
	c.Effects.Apply(effect.Effect{Name: "ward", Kind: effect.KindMitigation, Remaining: 2, Magnitude: 1})

	assert.Equal(t, 4, c.MitigatePhysical(7, combat.DamagePhysical))
	assert.Equal(t, 0, c.MitigatePhysical(2, combat.DamagePhysical), "mitigation floors at zero")
	assert.Equal(t, 7, c.MitigatePhysical(7, combat.DamageArcane), "arcane ignores resistance")
}

// Health and AP invariants hold under arbitrary damage/heal/spend sequences.
func TestCombatant_Invariants_Property(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		c := combat.NewCombatant("p", "P", 1, rapid.IntRange(1, 50).Draw(rt, "maxHealth"), 5)
		c.RefillActionPoints(rapid.IntRange(0, 5).Draw(rt, "ap"))

		steps := rapid.IntRange(1, 60).Draw(rt, "steps")
		for i := 0; i < steps; i++ {
			switch rapid.IntRange(0, 3).Draw(rt, "op") {
			case 0:
				c.ApplyDamage(rapid.IntRange(0, 30).Draw(rt, "dmg"))
			case 1:
				c.Heal(rapid.IntRange(0, 30).Draw(rt, "heal"))
			case 2:
				c.SpendActionPoints(rapid.IntRange(0, 4).Draw(rt, "cost"))
			case 3:
				c.AddThreat(rapid.IntRange(0, 10).Draw(rt, "threat"))
			}
			require.GreaterOrEqual(rt, c.Health, 0)
			require.LessOrEqual(rt, c.Health, c.MaxHealth)
			require.GreaterOrEqual(rt, c.ActionPoints, 0)
			require.GreaterOrEqual(rt, c.Threat, 0)
		}
	})
}
