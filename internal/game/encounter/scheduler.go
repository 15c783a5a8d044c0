package encounter

import "github.com/mverrilli/deckbound/internal/game/combat"

// PhaseComplete reports whether the current phase can end early: every
// living combatant on the acting side is out of action points or has
// explicitly ended their turn. Never true while a reaction is pending,
// and never true during a PvE enemy phase (the driver owns that phase).
func (s *Session) PhaseComplete() bool {
	if s.PendingReaction != nil {
		return false
	}
	side := s.ActiveSide()
	if len(side) == 0 {
		return false
	}
	for _, m := range side {
		if !m.Exhausted() {
			return false
		}
	}
	return true
}

// AdvancePhase flips the acting side and runs start-of-phase
// bookkeeping: periodic damage first (deaths drop loot), then
// effect-duration and cooldown ticks for every living member, then an
// action-point refill for the side that just became active. A pending
// reaction makes this a no-op regardless of trigger.
//
// PvE alternates player phase and enemy phase; PvP alternates teams.
// The turn counter increments when the opening side becomes active
// again.
func (s *Session) AdvancePhase() []Event {
	if s.PendingReaction != nil || s.Over {
		return nil
	}

	var events []Event
	switch s.Mode {
	case ModePvP:
		if s.ActiveTeam == combat.TeamA {
			s.ActiveTeam = combat.TeamB
		} else {
			s.ActiveTeam = combat.TeamA
			s.Turn++
		}
		events = append(events, Event{Type: EventPhase, Narrative: "Team " + string(s.ActiveTeam) + " takes the field."})
	default:
		if s.PlayerTurn {
			s.PlayerTurn = false
			s.ResumeIndex = 0
			events = append(events, Event{Type: EventPhase, Narrative: "The cards stir."})
		} else {
			s.PlayerTurn = true
			s.Turn++
			events = append(events, Event{Type: EventPhase, Narrative: "The party acts."})
		}
	}
	return append(events, s.preparePhase()...)
}

// preparePhase runs the per-transition bookkeeping. Effects and
// cooldowns decrement for every living member on every transition, so a
// duration counts transitions, not full rounds. Only the incoming side
// gets its action points back.
func (s *Session) preparePhase() []Event {
	incoming := make(map[string]bool)
	for _, m := range s.ActiveSide() {
		incoming[m.ID] = true
	}

	var events []Event
	for _, m := range s.LivingMembers() {
		if dot := m.Effects.PeriodicDamage(); dot > 0 {
			killed := m.ApplyDamage(dot)
			events = append(events, logf("%s suffers %d from lingering harm.", m.Name, dot))
			if killed {
				events = append(events, s.KillDrops(m)...)
				continue
			}
		}
		for _, name := range m.Effects.Tick() {
			events = append(events, logf("%s is no longer affected by %s.", m.Name, name))
		}
		m.Cooldowns.Tick()
		if incoming[m.ID] {
			m.RefillActionPoints(s.APBudget)
		}
	}
	return events
}

// TeamDefeated reports whether every member of a PvP side is dead.
func (s *Session) TeamDefeated(team combat.Team) bool {
	return len(s.LivingOnTeam(team)) == 0
}

// DeclareVictor marks team as the winner of a PvP session. Combat
// actions refuse from here on; the winners may still claim the field's
// ground loot and the fallen's packs until teardown.
//
// Precondition: s.Mode == ModePvP; s.Victor is empty.
func (s *Session) DeclareVictor(team combat.Team) []Event {
	s.Victor = team
	return []Event{
		logf("Team %s takes the day.", team),
		logf("The field's spoils lie open to the victors."),
	}
}

// PartyDefeated reports whether every roster member is dead.
func (s *Session) PartyDefeated() bool {
	return len(s.LivingMembers()) == 0
}
