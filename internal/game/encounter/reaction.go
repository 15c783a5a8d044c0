package encounter

import (
	"github.com/mverrilli/deckbound/internal/game/ability"
	"github.com/mverrilli/deckbound/internal/game/combat"
	"github.com/mverrilli/deckbound/internal/game/dice"
	"github.com/mverrilli/deckbound/internal/game/item"
)

// TakeDamage is the implicit reaction choice: absorb the hit. Timeouts
// resolve through it.
const TakeDamage = "take"

// EligibleReactions returns the reaction choices open to a defender right
// now: reaction abilities whose unlock is held, cooldown is ready, and no
// equipped gear is incompatible; plus an equipped shield that grants its
// own block reaction and is off cooldown. Shield choices are the item
// definition id.
func EligibleReactions(m *combat.Combatant, abilities *ability.Registry, items *item.Registry) []string {
	var options []string
	for _, def := range abilities.Reactions() {
		if def.UnlockKey != "" && !m.Unlocks[def.UnlockKey] {
			continue
		}
		if !m.Cooldowns.Ready(def.ID) {
			continue
		}
		if gearBlocks(m, def, items) {
			continue
		}
		options = append(options, def.ID)
	}
	if inst, ok := m.Equipment.Equipped(item.SlotShield); ok {
		if def, ok := items.Get(inst.DefID); ok && def.Reaction && m.Cooldowns.Ready(def.ID) {
			options = append(options, def.ID)
		}
	}
	return options
}

// gearBlocks reports whether any equipped item carries a gear tag the
// reaction declares incompatible.
func gearBlocks(m *combat.Combatant, def *ability.Def, items *item.Registry) bool {
	if len(def.IncompatibleGear) == 0 {
		return false
	}
	for _, slot := range []item.Slot{item.SlotWeapon, item.SlotArmor, item.SlotShield} {
		inst, ok := m.Equipment.Equipped(slot)
		if !ok {
			continue
		}
		gear, ok := items.Get(inst.DefID)
		if !ok {
			continue
		}
		for _, tag := range def.IncompatibleGear {
			if gear.HasTag(tag) {
				return true
			}
		}
	}
	return false
}

// BeginReaction suspends damage resolution on the session and returns
// the offer event, addressed to the defender only.
//
// Precondition: s.PendingReaction == nil; pr.Options is non-empty.
func (s *Session) BeginReaction(pr *PendingReaction) Event {
	s.PendingReaction = pr
	return Event{
		Type:      EventReactionOffer,
		TargetID:  pr.TargetID,
		ActorID:   attackerID(pr),
		Amount:    pr.Damage,
		Options:   pr.Options,
		Narrative: pr.AttackerName + " bears down on you.",
	}
}

func attackerID(pr *PendingReaction) string {
	if pr.AttackerID != "" {
		return pr.AttackerID
	}
	return pr.AttackerCardID
}

// ResolveReaction resolves the suspended hit with the defender's choice.
// TakeDamage (and the timeout path, which submits it) applies the hit
// unmodified. A successful dodge zeroes the damage; a successful block
// subtracts the blocker's fixed mitigation; failed reactions change
// nothing. Physical damage is then reduced by the defender's resistance,
// floored at zero, and the attacker's on-hit debuff lands unless the hit
// was fully dodged.
//
// Precondition: s.PendingReaction != nil; choice is TakeDamage or one of
// the pending Options.
// Postcondition: s.PendingReaction == nil.
func (s *Session) ResolveReaction(choice string, src dice.Source, abilities *ability.Registry, items *item.Registry) []Event {
	pr := s.PendingReaction
	s.PendingReaction = nil

	target, ok := s.Member(pr.TargetID)
	if !ok || target.IsDead() {
		return nil
	}

	damage := pr.Damage
	dodged := false
	var events []Event

	if choice != TakeDamage {
		mode, stat, hit, mitigation, cooldown := reactionParams(choice, abilities, items)
		check := combat.RollCheck(src, target.EffectiveStat(stat), 0, hit)
		target.Cooldowns.Start(choice, cooldown)
		switch {
		case check.Outcome.Succeeded() && mode == ability.ReactionDodge:
			damage = 0
			dodged = true
			events = append(events, logf("%s twists away from %s.", target.Name, pr.AttackerName))
		case check.Outcome.Succeeded() && mode == ability.ReactionBlock:
			damage -= mitigation
			if damage < 0 {
				damage = 0
			}
			events = append(events, logf("%s catches the blow on a guard.", target.Name))
		default:
			events = append(events, logf("%s fails to react in time.", target.Name))
		}
	}

	damage = target.MitigatePhysical(damage, pr.DamageType)
	killed := target.ApplyDamage(damage)
	if !dodged {
		events = append(events, Event{
			Type:      EventLog,
			SubjectID: target.ID,
			Amount:    damage,
			Narrative: pr.AttackerName + " hits " + target.Name + ".",
		})
	}
	if !dodged && pr.Debuff != nil && !target.IsDead() {
		target.Effects.Apply(pr.Debuff.Effect())
		events = append(events, logf("%s is afflicted by %s.", target.Name, pr.Debuff.Name))
	}
	if killed {
		events = append(events, s.KillDrops(target)...)
	}
	return events
}

// reactionParams resolves a reaction choice to its check stat, mode,
// target number, mitigation, and cooldown, consulting abilities first
// and equipped-item definitions second. Abilities that declare no stat,
// and shield blocks, check agility and might respectively.
func reactionParams(choice string, abilities *ability.Registry, items *item.Registry) (mode, stat string, hit, mitigation, cooldown int) {
	if def, ok := abilities.Get(choice); ok && def.Kind == ability.KindReaction {
		stat = def.Stat
		if stat == "" {
			stat = "agility"
		}
		return def.ReactionMode, stat, def.Hit, def.Mitigation, def.Cooldown
	}
	if def, ok := items.Get(choice); ok && def.Reaction {
		return ability.ReactionBlock, "might", def.Hit, def.Mitigation, def.Cooldown
	}
	// Unknown choice degrades to an unwinnable check rather than a free hit.
	return ability.ReactionDodge, "agility", 21, 0, 0
}
