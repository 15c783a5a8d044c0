package encounter

import (
	"github.com/mverrilli/deckbound/internal/game/ability"
	"github.com/mverrilli/deckbound/internal/game/card"
	"github.com/mverrilli/deckbound/internal/game/combat"
	"github.com/mverrilli/deckbound/internal/game/dice"
	"github.com/mverrilli/deckbound/internal/game/item"
)

// StepStatus is the enemy driver's verdict after one card step.
type StepStatus int

const (
	// StepAdvanced means the card acted and more cards wait; the caller
	// schedules the next step after the pacing delay.
	StepAdvanced StepStatus = iota
	// StepSuspended means a reaction offer paused the pass; the caller
	// resumes stepping once the reaction resolves.
	StepSuspended
	// StepDone means the pass is complete; the caller hands control back
	// to the phase scheduler.
	StepDone
)

// SpecialRunner executes a card's scripted special attack against the
// session. Implementations mutate the session directly and report what
// happened as events.
type SpecialRunner interface {
	RunSpecial(hook string, s *Session, actor *card.Instance, target *combat.Combatant) ([]Event, error)
}

// RunEnemyStep processes the next occupied card slot at or after
// ResumeIndex: periodic damage first (a death here skips the card's
// action), then effect expiry, then a stun consume, then an attack-table
// roll against the threat-max target. The caller owns pacing; this never
// sleeps.
//
// Postcondition: ResumeIndex points past the processed slot, so neither
// re-runs nor skips happen across suspensions.
func (s *Session) RunEnemyStep(src dice.Source, items *item.Registry, abilities *ability.Registry, specials SpecialRunner) ([]Event, StepStatus) {
	idx, actor := s.nextLivingCard(s.ResumeIndex)
	if actor == nil {
		return nil, StepDone
	}
	s.ResumeIndex = idx + 1

	var events []Event
	if dot := actor.Effects.PeriodicDamage(); dot > 0 {
		killed := actor.ApplyDamage(dot)
		events = append(events, logf("%s suffers %d from lingering harm.", actor.Name, dot))
		if killed {
			events = append(events, s.DefeatCard(idx, src, items)...)
			return events, s.stepStatusAfter(idx)
		}
	}
	for _, name := range actor.Effects.Tick() {
		events = append(events, logf("%s shakes off %s.", actor.Name, name))
	}
	if actor.Effects.ConsumeStun() {
		events = append(events, logf("%s is stunned and does nothing.", actor.Name))
		return events, s.stepStatusAfter(idx)
	}

	target := s.pickTarget(src)
	if target == nil {
		return events, StepDone
	}

	tmpl := actor.Template()
	entry, ok := tmpl.Attacks.Lookup(dice.D20(src))
	switch {
	case !ok, entry.Outcome == card.OutcomeMiss:
		events = append(events, logf("%s lashes out at %s and misses.", actor.Name, target.Name))

	case entry.Outcome == card.OutcomeSpecial:
		// Scripted effect; the defender's economy is untouched.
		specialEvents, err := specials.RunSpecial(entry.Arg, s, actor, target)
		if err != nil {
			events = append(events, logf("%s gathers itself, but nothing happens.", actor.Name))
			break
		}
		events = append(events, specialEvents...)

	default: // card.OutcomeAttack
		roll, err := dice.RollExpr(tmpl.Damage, src)
		if err != nil {
			events = append(events, logf("%s lashes out at %s and misses.", actor.Name, target.Name))
			break
		}
		pr := &PendingReaction{
			AttackerName:   actor.Name,
			AttackerCardID: actor.ID,
			TargetID:       target.ID,
			Damage:         roll.Total() + tmpl.Might,
			DamageType:     tmpl.DamageType,
			Debuff:         tmpl.Debuff,
		}
		if options := EligibleReactions(target, abilities, items); len(options) > 0 {
			pr.Options = options
			events = append(events, s.BeginReaction(pr))
			return events, StepSuspended
		}
		// No eligible interrupt; resolve through the same path a timeout
		// would take.
		s.PendingReaction = pr
		events = append(events, s.ResolveReaction(TakeDamage, src, abilities, items)...)
	}

	return events, s.stepStatusAfter(idx)
}

// nextLivingCard returns the first occupied, living slot at or after from.
func (s *Session) nextLivingCard(from int) (int, *card.Instance) {
	for i := from; i < len(s.Cards); i++ {
		if s.Cards[i] != nil && !s.Cards[i].IsDead() {
			return i, s.Cards[i]
		}
	}
	return 0, nil
}

// stepStatusAfter reports whether any card remains to act after slot idx.
func (s *Session) stepStatusAfter(idx int) StepStatus {
	if _, next := s.nextLivingCard(idx + 1); next != nil {
		return StepAdvanced
	}
	return StepDone
}

// pickTarget selects the living member with the highest threat; ties are
// broken uniformly at random.
func (s *Session) pickTarget(src dice.Source) *combat.Combatant {
	alive := s.LivingMembers()
	if len(alive) == 0 {
		return nil
	}
	best := alive[0].Threat
	for _, m := range alive[1:] {
		if m.Threat > best {
			best = m.Threat
		}
	}
	var tied []*combat.Combatant
	for _, m := range alive {
		if m.Threat == best {
			tied = append(tied, m)
		}
	}
	if len(tied) == 1 {
		return tied[0]
	}
	return tied[src.Intn(len(tied))]
}
