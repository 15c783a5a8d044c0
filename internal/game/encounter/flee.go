package encounter

import (
	"github.com/mverrilli/deckbound/internal/game/ability"
	"github.com/mverrilli/deckbound/internal/game/combat"
	"github.com/mverrilli/deckbound/internal/game/dice"
	"github.com/mverrilli/deckbound/internal/game/item"
)

// ResolveFlee runs the opposed escape check for actor. The pursuer is
// the nearest live card (PvE) or a random living opponent (PvP); both
// sides roll a d20 plus their relevant stat, and the actor escapes on a
// tie or better. A failed attempt draws one free attack that never
// offers a reaction.
//
// Postcondition: Returns true iff the actor escaped; the caller removes
// an escaped actor from the roster.
func (s *Session) ResolveFlee(actor *combat.Combatant, src dice.Source, items *item.Registry, abilities *ability.Registry) ([]Event, bool) {
	actorTotal := dice.D20(src) + actor.EffectiveStat("agility")

	if s.Mode == ModePvP {
		opponents := s.LivingOnTeam(opposingTeam(actor.Team))
		if len(opponents) == 0 {
			return []Event{logf("%s slips away unopposed.", actor.Name)}, true
		}
		pursuer := opponents[src.Intn(len(opponents))]
		if actorTotal >= dice.D20(src)+pursuer.EffectiveStat("agility") {
			return []Event{logf("%s breaks away from %s and escapes.", actor.Name, pursuer.Name)}, true
		}
		events := []Event{logf("%s is run down by %s.", actor.Name, pursuer.Name)}
		events = append(events, s.freePlayerAttack(pursuer, actor, src, abilities, items)...)
		return events, false
	}

	_, pursuer := s.nextLivingCard(0)
	if pursuer == nil {
		return []Event{logf("%s slips away unopposed.", actor.Name)}, true
	}
	tmpl := pursuer.Template()
	if actorTotal >= dice.D20(src)+tmpl.Might {
		return []Event{logf("%s breaks away from %s and escapes.", actor.Name, pursuer.Name)}, true
	}

	events := []Event{logf("%s is run down by %s.", actor.Name, pursuer.Name)}
	roll, err := dice.RollExpr(tmpl.Damage, src)
	if err != nil {
		return events, false
	}
	// Flee punishments resolve immediately; no reaction is offered.
	s.PendingReaction = &PendingReaction{
		AttackerName:   pursuer.Name,
		AttackerCardID: pursuer.ID,
		TargetID:       actor.ID,
		Damage:         roll.Total() + tmpl.Might,
		DamageType:     tmpl.DamageType,
		Debuff:         tmpl.Debuff,
	}
	events = append(events, s.ResolveReaction(TakeDamage, src, abilities, items)...)
	return events, false
}

// freePlayerAttack resolves a pursuer's weapon swing against a fleeing
// opponent with no reaction offered.
func (s *Session) freePlayerAttack(pursuer, target *combat.Combatant, src dice.Source, abilities *ability.Registry, items *item.Registry) []Event {
	inst, ok := pursuer.Equipment.Equipped(item.SlotWeapon)
	if !ok {
		return nil
	}
	weapon, ok := items.Get(inst.DefID)
	if !ok {
		return nil
	}
	check := combat.RollCheck(src, pursuer.EffectiveStat("might"), 0, weapon.Hit)
	if !check.Outcome.Succeeded() {
		return []Event{logf("%s swings at %s and misses.", pursuer.Name, target.Name)}
	}
	roll, err := dice.RollExpr(weapon.Damage, src)
	if err != nil {
		return nil
	}
	damage := roll.Total()
	if check.Outcome == combat.CritSuccess {
		damage *= 2
	}
	s.PendingReaction = &PendingReaction{
		AttackerName: pursuer.Name,
		AttackerID:   pursuer.ID,
		TargetID:     target.ID,
		Damage:       damage,
		DamageType:   weapon.DamageType,
	}
	return s.ResolveReaction(TakeDamage, src, abilities, items)
}

// opposingTeam returns the other PvP side.
func opposingTeam(t combat.Team) combat.Team {
	if t == combat.TeamA {
		return combat.TeamB
	}
	return combat.TeamA
}
