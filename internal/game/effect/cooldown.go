package effect

// Cooldowns tracks per-ability cooldown counters for one combatant,
// measured in phases.
//
// Invariant: no stored value is ever negative.
type Cooldowns struct {
	remaining map[string]int
}

// NewCooldowns creates an empty cooldown tracker.
func NewCooldowns() *Cooldowns {
	return &Cooldowns{remaining: make(map[string]int)}
}

// Start puts ability on cooldown for phases. A value <= 0 is a no-op.
//
// Postcondition: Ready(ability) is false iff phases > 0.
func (c *Cooldowns) Start(ability string, phases int) {
	if phases <= 0 {
		return
	}
	c.remaining[ability] = phases
}

// Ready reports whether ability is off cooldown.
func (c *Cooldowns) Ready(ability string) bool {
	return c.remaining[ability] == 0
}

// Remaining returns the phases left on ability's cooldown (0 when ready).
func (c *Cooldowns) Remaining(ability string) int {
	return c.remaining[ability]
}

// Tick decrements every counter by one phase, clamping at zero and
// removing entries that reach it.
//
// Postcondition: all stored values are >= 1.
func (c *Cooldowns) Tick() {
	for ability, left := range c.remaining {
		left--
		if left <= 0 {
			delete(c.remaining, ability)
			continue
		}
		c.remaining[ability] = left
	}
}
