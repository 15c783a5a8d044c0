package combat

import (
	"github.com/mverrilli/deckbound/internal/game/effect"
	"github.com/mverrilli/deckbound/internal/game/item"
)

// Team identifies a PvP side. Empty for PvE combatants.
type Team string

const (
	TeamNone Team = ""
	TeamA    Team = "A"
	TeamB    Team = "B"
)

// DamageType distinguishes damage for resistance purposes. Only physical
// damage is reduced by the defender's resistance stat.
const (
	DamagePhysical = "physical"
	DamageArcane   = "arcane"
)

// Combatant is the per-player combat ledger inside one encounter session.
//
// Invariants: 0 <= Health <= MaxHealth; ActionPoints >= 0; cooldowns are
// never negative (clamped at decrement).
type Combatant struct {
	// ID is the stable player id; CharacterID references the externally
	// owned character record for one-way persistence.
	ID          string
	Name        string
	CharacterID int64

	Health       int
	MaxHealth    int
	ActionPoints int

	// Might feeds attack checks; Agility feeds reaction checks;
	// Resistance reduces incoming physical damage.
	Might      int
	Agility    int
	Resistance int

	Effects   *effect.Set
	Cooldowns *effect.Cooldowns

	// Threat is the monotonic PvE targeting counter, reset at combat
	// start and on zone change.
	Threat int

	Team      Team
	Dead      bool
	EndedTurn bool

	// Unlocks gates abilities (e.g. the dodge reaction) behind
	// progression flags owned by the character record.
	Unlocks map[string]bool

	Inventory *item.Inventory
	Equipment *item.Equipment
	// Lootable holds the death-drop snapshot other combatants may claim.
	Lootable []item.Instance

	Gold int
}

// NewCombatant creates a ledger with full health, empty effect and
// cooldown state, and zero threat.
//
// Precondition: id must be non-empty; maxHealth > 0; inventorySlots >= 0.
func NewCombatant(id, name string, characterID int64, maxHealth, inventorySlots int) *Combatant {
	return &Combatant{
		ID:          id,
		Name:        name,
		CharacterID: characterID,
		Health:      maxHealth,
		MaxHealth:   maxHealth,
		Effects:     effect.NewSet(),
		Cooldowns:   effect.NewCooldowns(),
		Unlocks:     make(map[string]bool),
		Inventory:   item.NewInventory(inventorySlots),
		Equipment:   item.NewEquipment(),
	}
}

// IsDead reports whether the combatant has been marked dead.
func (c *Combatant) IsDead() bool { return c.Dead }

// ApplyDamage reduces Health by amount, flooring at zero, and marks the
// combatant dead on a zero transition. Death-drop handling (lootable
// snapshot, gear strip) belongs to the encounter session.
//
// Precondition: amount >= 0.
// Postcondition: Health >= 0; returns true iff this call killed the combatant.
func (c *Combatant) ApplyDamage(amount int) bool {
	if c.Dead {
		return false
	}
	c.Health -= amount
	if c.Health <= 0 {
		c.Health = 0
		c.Dead = true
		return true
	}
	return false
}

// Heal raises Health by amount, capped at MaxHealth. Dead combatants are
// not revived.
//
// Precondition: amount >= 0.
func (c *Combatant) Heal(amount int) {
	if c.Dead {
		return
	}
	c.Health += amount
	if c.Health > c.MaxHealth {
		c.Health = c.MaxHealth
	}
}

// SpendActionPoints consumes cost AP if available.
//
// Postcondition: returns false and leaves the ledger unchanged when the
// budget is insufficient; ActionPoints >= 0 always.
func (c *Combatant) SpendActionPoints(cost int) bool {
	if cost > c.ActionPoints {
		return false
	}
	c.ActionPoints -= cost
	return true
}

// RefillActionPoints resets the per-phase budget and clears the
// explicit end-turn flag.
//
// Precondition: points >= 0.
func (c *Combatant) RefillActionPoints(points int) {
	c.ActionPoints = points
	c.EndedTurn = false
}

// AddThreat accumulates PvE targeting threat.
//
// Precondition: amount >= 0.
func (c *Combatant) AddThreat(amount int) {
	c.Threat += amount
}

// ResetThreat zeroes the threat counter (combat start, zone change).
func (c *Combatant) ResetThreat() { c.Threat = 0 }

// EffectiveStat returns base plus active stat-bonus effects for stat.
func (c *Combatant) EffectiveStat(stat string) int {
	var base int
	switch stat {
	case "might":
		base = c.Might
	case "agility":
		base = c.Agility
	case "resistance":
		base = c.Resistance
	}
	return base + c.Effects.StatBonus(stat)
}

// Exhausted reports whether the combatant's turn is over: out of AP or
// explicitly ended.
func (c *Combatant) Exhausted() bool {
	return c.ActionPoints == 0 || c.EndedTurn
}

// MitigatePhysical applies defender-side reduction to physical damage:
// resistance stat plus active mitigation effects, floored at zero.
// Non-physical damage passes through unmodified.
//
// Postcondition: returns a value in [0, dmg].
func (c *Combatant) MitigatePhysical(dmg int, damageType string) int {
	if damageType != DamagePhysical {
		return dmg
	}
	dmg -= c.EffectiveStat("resistance") + c.Effects.Mitigation()
	if dmg < 0 {
		return 0
	}
	return dmg
}
