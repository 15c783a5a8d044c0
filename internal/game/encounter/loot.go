package encounter

import (
	"errors"

	"github.com/mverrilli/deckbound/internal/game/combat"
	"github.com/mverrilli/deckbound/internal/game/dice"
	"github.com/mverrilli/deckbound/internal/game/item"
)

// KillDrops converts a freshly dead combatant's carried items into its
// lootable snapshot. PvP deaths also strip equipped gear to the ground.
//
// Precondition: victim.IsDead().
func (s *Session) KillDrops(victim *combat.Combatant) []Event {
	var events []Event
	victim.Lootable = victim.Inventory.DrainAll()
	if s.Mode == ModePvP {
		stripped := victim.Equipment.StripAll()
		s.Ground.DropAll(stripped)
		if len(stripped) > 0 {
			events = append(events, logf("%s's gear clatters to the ground.", victim.Name))
		}
	}
	events = append(events, logf("%s falls.", victim.Name))
	return events
}

// DefeatCard removes the dead card at slot idx, rolls its loot, and
// distributes the drops. Clearing the last card restores every living
// player's action points in full.
//
// Precondition: s.Cards[idx] is non-nil and dead.
func (s *Session) DefeatCard(idx int, src dice.Source, items *item.Registry) []Event {
	dead := s.Cards[idx]
	s.Cards[idx] = nil

	events := []Event{logf("%s is defeated.", dead.Name)}
	for _, defID := range dead.Template().RollLoot(dice.D20(src)) {
		events = append(events, s.distributeDrop(defID, items)...)
	}
	if s.LivingCards() == 0 {
		for _, m := range s.LivingMembers() {
			m.RefillActionPoints(s.APBudget)
		}
		events = append(events, logf("The field is clear. The party surges with renewed vigor."))
	}
	return events
}

// distributeDrop routes one dropped item id: commons go to every living
// member (ground on a full inventory); rare-or-better opens a loot roll,
// or falls to the ground when one is already open.
func (s *Session) distributeDrop(defID string, items *item.Registry) []Event {
	def, ok := items.Get(defID)
	if !ok {
		// Content error, not a player fault; drop nothing.
		return []Event{logf("Something glimmers briefly and is gone.")}
	}

	if def.Rarity.Contested() {
		inst := item.NewInstance(defID, 1)
		if s.PendingLoot != nil {
			s.Ground.Drop(inst)
			return []Event{logf("%s falls to the ground amid the commotion.", def.Name)}
		}
		s.PendingLoot = &PendingLootRoll{
			Item:  inst,
			DefID: defID,
			Votes: make(map[string]LootVote),
		}
		return []Event{{
			Type:      EventLootRollOpened,
			ItemID:    defID,
			Narrative: "A loot roll opens for " + def.Name + ".",
		}}
	}

	var events []Event
	for _, m := range s.LivingMembers() {
		inst := item.NewInstance(defID, 1)
		if err := m.Inventory.Add(inst); errors.Is(err, item.ErrInventoryFull) {
			s.Ground.Drop(inst)
			events = append(events, logf("%s's pack is full; %s falls to the ground.", m.Name, def.Name))
			continue
		}
		events = append(events, logf("%s receives %s.", m.Name, def.Name))
	}
	return events
}

// SubmitLootVote records one member's choice for the open roll.
//
// Postcondition: Returns false (state untouched) when no roll is open,
// a reaction is pending, the member is dead or unknown, or the member
// already voted.
func (s *Session) SubmitLootVote(memberID, choice string, roll int) bool {
	if s.PendingLoot == nil || s.PendingReaction != nil {
		return false
	}
	switch choice {
	case VoteNeed, VoteGreed, VotePass:
	default:
		return false
	}
	m, ok := s.Member(memberID)
	if !ok || m.IsDead() {
		return false
	}
	if _, voted := s.PendingLoot.Votes[memberID]; voted {
		return false
	}
	s.PendingLoot.Votes[memberID] = LootVote{Choice: choice, Roll: roll}
	return true
}

// AllVotesIn reports whether every living member has voted on the open
// roll.
func (s *Session) AllVotesIn() bool {
	if s.PendingLoot == nil {
		return false
	}
	for _, m := range s.LivingMembers() {
		if _, ok := s.PendingLoot.Votes[m.ID]; !ok {
			return false
		}
	}
	return true
}

// ResolveLootRoll closes the open roll. Members who never voted count as
// pass. Need votes strictly outrank greed votes; within the winning
// bucket the highest rolled value wins and the first-found member keeps
// ties. Everyone passing, or a full winner inventory, drops the prize to
// the ground.
//
// Precondition: s.PendingLoot != nil.
// Postcondition: s.PendingLoot == nil.
func (s *Session) ResolveLootRoll(items *item.Registry) []Event {
	pending := s.PendingLoot
	s.PendingLoot = nil

	name := pending.DefID
	if def, ok := items.Get(pending.DefID); ok {
		name = def.Name
	}

	var winner *combat.Combatant
	winnerBucket := ""
	winnerRoll := -1
	for _, m := range s.LivingMembers() {
		vote, ok := pending.Votes[m.ID]
		if !ok || vote.Choice == VotePass {
			continue
		}
		better := false
		switch {
		case winner == nil:
			better = true
		case vote.Choice == VoteNeed && winnerBucket == VoteGreed:
			better = true
		case vote.Choice == winnerBucket && vote.Roll > winnerRoll:
			better = true
		}
		if better {
			winner = m
			winnerBucket = vote.Choice
			winnerRoll = vote.Roll
		}
	}

	if winner == nil {
		s.Ground.Drop(pending.Item)
		return []Event{{
			Type:      EventLootRollEnded,
			ItemID:    pending.DefID,
			Narrative: "Nobody claims " + name + "; it falls to the ground.",
		}}
	}
	if err := winner.Inventory.Add(pending.Item); errors.Is(err, item.ErrInventoryFull) {
		s.Ground.Drop(pending.Item)
		return []Event{{
			Type:      EventLootRollEnded,
			ItemID:    pending.DefID,
			SubjectID: winner.ID,
			Narrative: winner.Name + " wins " + name + " but cannot carry it; it falls to the ground.",
		}}
	}
	return []Event{{
		Type:      EventLootRollEnded,
		ItemID:    pending.DefID,
		SubjectID: winner.ID,
		Narrative: winner.Name + " wins " + name + " (" + winnerBucket + ").",
	}}
}

// TakeGroundItem moves a ground instance into the member's inventory.
//
// Postcondition: Returns false (state untouched) when a reaction is
// pending, the member is on the losing side of a decided PvP session,
// the instance is absent, or the inventory is full.
func (s *Session) TakeGroundItem(m *combat.Combatant, instanceID string) bool {
	if s.PendingReaction != nil {
		return false
	}
	if s.Victor != "" && m.Team != s.Victor {
		return false
	}
	inst, ok := s.Ground.Take(instanceID)
	if !ok {
		return false
	}
	if err := m.Inventory.Add(inst); err != nil {
		s.Ground.Drop(inst)
		return false
	}
	return true
}

// LootDeadPlayer moves one item from a dead member's lootable snapshot
// into the looter's inventory.
//
// Postcondition: Returns false (state untouched) when a reaction is
// pending, the victim is not dead, the instance is absent, or the
// looter's inventory is full.
func (s *Session) LootDeadPlayer(looter *combat.Combatant, victimID, instanceID string) bool {
	if s.PendingReaction != nil {
		return false
	}
	if s.Victor != "" && looter.Team != s.Victor {
		return false
	}
	victim, ok := s.Member(victimID)
	if !ok || !victim.IsDead() {
		return false
	}
	for i, inst := range victim.Lootable {
		if inst.InstanceID != instanceID {
			continue
		}
		if err := looter.Inventory.Add(inst); err != nil {
			return false
		}
		victim.Lootable = append(victim.Lootable[:i], victim.Lootable[i+1:]...)
		return true
	}
	return false
}
