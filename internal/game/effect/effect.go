// Package effect implements buff/debuff bookkeeping for combatants: a closed
// set of effect kinds with per-phase durations, plus per-ability cooldowns.
package effect

import "fmt"

// Kind is the closed enum of effect variants. Each kind carries only the
// payload fields it needs; see Effect.
type Kind int

const (
	// KindStatBonus adjusts a named stat by Magnitude while active.
	KindStatBonus Kind = iota
	// KindPeriodicDamage deals Magnitude damage at the start of the
	// bearer's acting phase.
	KindPeriodicDamage
	// KindStun makes the bearer skip its next action. Stun is consumed when
	// it skips an action, not ticked by phase transitions.
	KindStun
	// KindMitigation reduces incoming physical damage by Magnitude.
	KindMitigation
)

// String returns the effect kind's content tag.
func (k Kind) String() string {
	switch k {
	case KindStatBonus:
		return "stat_bonus"
	case KindPeriodicDamage:
		return "periodic_damage"
	case KindStun:
		return "stun"
	case KindMitigation:
		return "mitigation"
	default:
		return "unknown"
	}
}

// ParseKind maps a content tag to its Kind.
//
// Postcondition: Returns an error for tags outside the closed enum.
func ParseKind(tag string) (Kind, error) {
	switch tag {
	case "stat_bonus":
		return KindStatBonus, nil
	case "periodic_damage":
		return KindPeriodicDamage, nil
	case "stun":
		return KindStun, nil
	case "mitigation":
		return KindMitigation, nil
	default:
		return 0, fmt.Errorf("effect: unknown kind %q", tag)
	}
}

// Effect is one active buff or debuff on a combatant.
//
// Remaining is the duration in phases; -1 means the effect lasts until
// removed by name. Magnitude and Stat are meaningful only for the kinds
// that declare them.
type Effect struct {
	Name      string
	Kind      Kind
	Remaining int
	Magnitude int
	Stat      string // KindStatBonus only: which stat is adjusted
}

// Set tracks all effects currently applied to one combatant, in
// application order. It is not safe for concurrent use; the encounter
// session serialises access.
type Set struct {
	effects []Effect
}

// NewSet creates an empty effect Set.
func NewSet() *Set {
	return &Set{}
}

// Apply adds e to the set. Re-applying an effect with the same name
// refreshes its Remaining to the longer of the two and keeps the stronger
// Magnitude; it never double-stacks.
//
// Postcondition: Has(e.Name) is true.
func (s *Set) Apply(e Effect) {
	for i := range s.effects {
		if s.effects[i].Name != e.Name {
			continue
		}
		if e.Remaining == -1 || e.Remaining > s.effects[i].Remaining {
			s.effects[i].Remaining = e.Remaining
		}
		if e.Magnitude > s.effects[i].Magnitude {
			s.effects[i].Magnitude = e.Magnitude
		}
		return
	}
	s.effects = append(s.effects, e)
}

// Remove deletes the effect with the given name, preserving order.
// No-op when the name is not present.
func (s *Set) Remove(name string) {
	for i := range s.effects {
		if s.effects[i].Name == name {
			s.effects = append(s.effects[:i], s.effects[i+1:]...)
			return
		}
	}
}

// Has reports whether an effect with the given name is active.
func (s *Set) Has(name string) bool {
	for i := range s.effects {
		if s.effects[i].Name == name {
			return true
		}
	}
	return false
}

// Tick decrements the Remaining of all duration-bearing effects by one
// phase and prunes those that reach zero. Permanent effects
// (Remaining == -1) and stuns are unaffected; stun is consumed by
// ConsumeStun when it skips an action.
//
// Postcondition: For every name in the returned slice, Has(name) is false.
func (s *Set) Tick() []string {
	var expired []string
	kept := s.effects[:0]
	for _, e := range s.effects {
		if e.Kind == KindStun || e.Remaining < 0 {
			kept = append(kept, e)
			continue
		}
		e.Remaining--
		if e.Remaining <= 0 {
			expired = append(expired, e.Name)
			continue
		}
		kept = append(kept, e)
	}
	s.effects = kept
	return expired
}

// ConsumeStun removes one active stun and reports whether one was present.
// The bearer's action for this step is skipped when true.
func (s *Set) ConsumeStun() bool {
	for i := range s.effects {
		if s.effects[i].Kind == KindStun {
			s.effects = append(s.effects[:i], s.effects[i+1:]...)
			return true
		}
	}
	return false
}

// StatBonus returns the sum of active KindStatBonus magnitudes for stat.
func (s *Set) StatBonus(stat string) int {
	total := 0
	for _, e := range s.effects {
		if e.Kind == KindStatBonus && e.Stat == stat {
			total += e.Magnitude
		}
	}
	return total
}

// PeriodicDamage returns the total KindPeriodicDamage magnitude due at the
// start of the bearer's acting phase.
func (s *Set) PeriodicDamage() int {
	total := 0
	for _, e := range s.effects {
		if e.Kind == KindPeriodicDamage {
			total += e.Magnitude
		}
	}
	return total
}

// Mitigation returns the total KindMitigation magnitude applied to
// incoming physical damage.
func (s *Set) Mitigation() int {
	total := 0
	for _, e := range s.effects {
		if e.Kind == KindMitigation {
			total += e.Magnitude
		}
	}
	return total
}

// All returns a copy of the active effects in application order.
func (s *Set) All() []Effect {
	out := make([]Effect, len(s.effects))
	copy(out, s.effects)
	return out
}

// Len returns the number of active effects.
func (s *Set) Len() int { return len(s.effects) }
