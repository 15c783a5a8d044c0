package encounter

import (
	"github.com/mverrilli/deckbound/internal/game/ability"
	"github.com/mverrilli/deckbound/internal/game/combat"
	"github.com/mverrilli/deckbound/internal/game/dice"
	"github.com/mverrilli/deckbound/internal/game/effect"
	"github.com/mverrilli/deckbound/internal/game/item"
)

// CanAct reports whether actor may take an action right now: the session
// is live, combat is undecided, no reaction is pending, it is the
// actor's phase, and the actor is alive with an open turn.
func (s *Session) CanAct(actor *combat.Combatant) bool {
	if s.Over || s.Victor != "" || s.PendingReaction != nil || actor.IsDead() || actor.EndedTurn {
		return false
	}
	if s.Mode == ModePvP {
		return actor.Team == s.ActiveTeam
	}
	return s.PlayerTurn
}

// WeaponAttack swings the actor's equipped weapon at a card (PvE) or an
// opposing member (PvP). Costs one action point and starts the weapon's
// cooldown. Damage dealt to a card accrues the same amount of threat.
//
// Postcondition: Returns (nil, false) with no state change when the
// action is illegal: wrong phase, no weapon, weapon on cooldown,
// insufficient action points, or a bad target.
func (s *Session) WeaponAttack(actor *combat.Combatant, targetID string, src dice.Source, items *item.Registry, abilities *ability.Registry) ([]Event, bool) {
	if !s.CanAct(actor) {
		return nil, false
	}
	inst, ok := actor.Equipment.Equipped(item.SlotWeapon)
	if !ok {
		return nil, false
	}
	weapon, ok := items.Get(inst.DefID)
	if !ok || !actor.Cooldowns.Ready(weapon.ID) {
		return nil, false
	}

	if s.Mode == ModePvP {
		target, ok := s.Member(targetID)
		if !ok || target.IsDead() || target.Team == actor.Team {
			return nil, false
		}
		if !actor.SpendActionPoints(1) {
			return nil, false
		}
		actor.Cooldowns.Start(weapon.ID, weapon.Cooldown)
		return s.playerStrike(actor, target, weapon.Hit, weapon.Damage, weapon.DamageType, nil, src, items, abilities), true
	}

	idx, target, ok := s.CardByID(targetID)
	if !ok {
		return nil, false
	}
	if !actor.SpendActionPoints(1) {
		return nil, false
	}
	actor.Cooldowns.Start(weapon.ID, weapon.Cooldown)

	check := combat.RollCheck(src, actor.EffectiveStat("might"), 0, weapon.Hit)
	if !check.Outcome.Succeeded() {
		return []Event{logf("%s swings at %s and misses.", actor.Name, target.Name)}, true
	}
	roll, err := dice.RollExpr(weapon.Damage, src)
	if err != nil {
		return []Event{logf("%s swings at %s and misses.", actor.Name, target.Name)}, true
	}
	damage := roll.Total()
	if check.Outcome == combat.CritSuccess {
		damage *= 2
	}
	return s.damageCard(actor, idx, damage, src, items), true
}

// CastAbility resolves an attack, spell, or gather ability against a
// card (PvE) or opposing member (PvP). Gathers take no target and grant
// their yield item on success.
//
// Postcondition: Returns (nil, false) with no state change when the
// action is illegal.
func (s *Session) CastAbility(actor *combat.Combatant, abilityID, targetID string, src dice.Source, items *item.Registry, abilities *ability.Registry) ([]Event, bool) {
	if !s.CanAct(actor) {
		return nil, false
	}
	def, ok := abilities.Get(abilityID)
	if !ok || def.Kind == ability.KindReaction {
		return nil, false
	}
	if def.UnlockKey != "" && !actor.Unlocks[def.UnlockKey] {
		return nil, false
	}
	if !actor.Cooldowns.Ready(def.ID) || gearBlocks(actor, def, items) {
		return nil, false
	}

	if def.Kind == ability.KindGather {
		if !actor.SpendActionPoints(def.APCost) {
			return nil, false
		}
		actor.Cooldowns.Start(def.ID, def.Cooldown)
		check := combat.RollCheck(src, actor.EffectiveStat(def.Stat), 0, def.Hit)
		if !check.Outcome.Succeeded() {
			return []Event{logf("%s searches the field and finds nothing.", actor.Name)}, true
		}
		inst := item.NewInstance(def.Yield, 1)
		name := def.Yield
		if idef, ok := items.Get(def.Yield); ok {
			name = idef.Name
		}
		if err := actor.Inventory.Add(inst); err != nil {
			s.Ground.Drop(inst)
			return []Event{logf("%s unearths %s but cannot carry it; it falls to the ground.", actor.Name, name)}, true
		}
		return []Event{logf("%s scavenges %s.", actor.Name, name)}, true
	}

	if s.Mode == ModePvP {
		target, ok := s.Member(targetID)
		if !ok || target.IsDead() || target.Team == actor.Team {
			return nil, false
		}
		if !actor.SpendActionPoints(def.APCost) {
			return nil, false
		}
		actor.Cooldowns.Start(def.ID, def.Cooldown)
		return s.playerStrike(actor, target, def.Hit, def.Damage, def.DamageType, def.Debuff, src, items, abilities), true
	}

	idx, target, ok := s.CardByID(targetID)
	if !ok {
		return nil, false
	}
	if !actor.SpendActionPoints(def.APCost) {
		return nil, false
	}
	actor.Cooldowns.Start(def.ID, def.Cooldown)

	check := combat.RollCheck(src, actor.EffectiveStat(def.Stat), 0, def.Hit)
	if !check.Outcome.Succeeded() {
		return []Event{logf("%s's %s fizzles against %s.", actor.Name, def.Name, target.Name)}, true
	}
	roll, err := dice.RollExpr(def.Damage, src)
	if err != nil {
		return []Event{logf("%s's %s fizzles against %s.", actor.Name, def.Name, target.Name)}, true
	}
	damage := roll.Total()
	if check.Outcome == combat.CritSuccess {
		damage *= 2
	}
	events := s.damageCard(actor, idx, damage, src, items)
	if def.Debuff != nil && s.Cards[idx] != nil {
		s.Cards[idx].Effects.Apply(def.Debuff.Effect())
		events = append(events, logf("%s is afflicted by %s.", target.Name, def.Debuff.Name))
	}
	return events, true
}

// playerStrike resolves an offensive roll between two members, routing
// the hit through the reaction protocol when the defender has an
// eligible interrupt.
func (s *Session) playerStrike(actor, target *combat.Combatant, hit int, damageExpr, damageType string, debuff *effect.Spec, src dice.Source, items *item.Registry, abilities *ability.Registry) []Event {
	check := combat.RollCheck(src, actor.EffectiveStat("might"), 0, hit)
	if !check.Outcome.Succeeded() {
		return []Event{logf("%s strikes at %s and misses.", actor.Name, target.Name)}
	}
	roll, err := dice.RollExpr(damageExpr, src)
	if err != nil {
		return []Event{logf("%s strikes at %s and misses.", actor.Name, target.Name)}
	}
	damage := roll.Total()
	if check.Outcome == combat.CritSuccess {
		damage *= 2
	}
	pr := &PendingReaction{
		AttackerName: actor.Name,
		AttackerID:   actor.ID,
		TargetID:     target.ID,
		Damage:       damage,
		DamageType:   damageType,
		Debuff:       debuff,
	}
	if options := EligibleReactions(target, abilities, items); len(options) > 0 {
		pr.Options = options
		return []Event{s.BeginReaction(pr)}
	}
	s.PendingReaction = pr
	return s.ResolveReaction(TakeDamage, src, abilities, items)
}

// damageCard applies damage to the card at idx, accrues the same amount
// of threat on the attacker, and handles defeat.
func (s *Session) damageCard(actor *combat.Combatant, idx, damage int, src dice.Source, items *item.Registry) []Event {
	target := s.Cards[idx]
	killed := target.ApplyDamage(damage)
	actor.AddThreat(damage)
	events := []Event{logf("%s hits %s for %d.", actor.Name, target.Name, damage)}
	if killed {
		events = append(events, s.DefeatCard(idx, src, items)...)
	}
	return events
}

// UseConsumable drinks or applies a carried consumable: heal is applied
// immediately and the instance is destroyed. Costs one action point.
//
// Postcondition: Returns (nil, false) with no state change when illegal.
func (s *Session) UseConsumable(actor *combat.Combatant, instanceID string, items *item.Registry) ([]Event, bool) {
	if !s.CanAct(actor) {
		return nil, false
	}
	var def *item.Def
	for _, inst := range actor.Inventory.Items() {
		if inst.InstanceID != instanceID {
			continue
		}
		d, ok := items.Get(inst.DefID)
		if !ok || d.Kind != item.KindConsumable {
			return nil, false
		}
		def = d
		break
	}
	if def == nil {
		return nil, false
	}
	if !actor.SpendActionPoints(1) {
		return nil, false
	}
	actor.Inventory.Remove(instanceID)
	actor.Heal(def.Heal)
	return []Event{logf("%s uses %s and recovers %d.", actor.Name, def.Name, def.Heal)}, true
}

// EquipItem moves a carried instance into its equipment slot, returning
// any displaced gear to the inventory. Free outside the action economy.
//
// Postcondition: Returns (nil, false) with no state change when illegal.
func (s *Session) EquipItem(actor *combat.Combatant, instanceID string, items *item.Registry) ([]Event, bool) {
	if s.Over || s.PendingReaction != nil || actor.IsDead() {
		return nil, false
	}
	inst, ok := actor.Inventory.Remove(instanceID)
	if !ok {
		return nil, false
	}
	def, ok := items.Get(inst.DefID)
	if !ok {
		actor.Inventory.Add(inst)
		return nil, false
	}
	prev, had, err := actor.Equipment.Equip(inst, def)
	if err != nil {
		actor.Inventory.Add(inst)
		return nil, false
	}
	if had {
		if err := actor.Inventory.Add(prev); err != nil {
			s.Ground.Drop(prev)
		}
	}
	return []Event{logf("%s equips %s.", actor.Name, def.Name)}, true
}

// DropItem moves a carried instance to the ground pile.
//
// Postcondition: Returns (nil, false) with no state change when illegal.
func (s *Session) DropItem(actor *combat.Combatant, instanceID string, items *item.Registry) ([]Event, bool) {
	if s.Over || s.PendingReaction != nil || actor.IsDead() {
		return nil, false
	}
	inst, ok := actor.Inventory.Remove(instanceID)
	if !ok {
		return nil, false
	}
	s.Ground.Drop(inst)
	name := inst.DefID
	if def, ok := items.Get(inst.DefID); ok {
		name = def.Name
	}
	return []Event{logf("%s drops %s.", actor.Name, name)}, true
}

// InteractWithCard opens a card's dialogue node: the line is broadcast
// to the whole party and the leader is prompted to answer it. Cards
// without dialogue ignore the interaction; so does a card whose node is
// already open.
//
// Postcondition: Returns (nil, false) with no state change when illegal.
func (s *Session) InteractWithCard(actor *combat.Combatant, cardID, leaderID string) ([]Event, bool) {
	if !s.CanAct(actor) || s.PendingDialogue != nil {
		return nil, false
	}
	_, target, ok := s.CardByID(cardID)
	if !ok || target.Template().Dialogue == "" {
		return nil, false
	}
	s.PendingDialogue = &PendingDialogue{CardID: target.ID, CardName: target.Name}
	return []Event{
		{
			Type:      EventDialogue,
			ActorID:   actor.ID,
			SubjectID: target.ID,
			Narrative: target.Name + " says: \"" + target.Template().Dialogue + "\"",
		},
		{
			Type:      EventDialogue,
			TargetID:  leaderID,
			SubjectID: target.ID,
			Narrative: "Only you may answer. Use 'respond' to close the exchange.",
		},
	}, true
}

// AnswerDialogue closes the open dialogue node. Only the party leader
// may answer; the closing line is broadcast to the party.
//
// Postcondition: Returns (nil, false) with no state change when no node
// is open, the actor is not the leader, or the session is frozen.
func (s *Session) AnswerDialogue(actor *combat.Combatant, leaderID string) ([]Event, bool) {
	if s.Over || s.PendingReaction != nil || actor.IsDead() {
		return nil, false
	}
	if s.PendingDialogue == nil || actor.ID != leaderID {
		return nil, false
	}
	pd := s.PendingDialogue
	s.PendingDialogue = nil
	return []Event{{
		Type:      EventDialogue,
		ActorID:   actor.ID,
		SubjectID: pd.CardID,
		Narrative: actor.Name + " answers, and " + pd.CardName + " falls silent.",
	}}, true
}

// EndTurn marks the actor finished for this phase.
//
// Postcondition: Returns false with no state change when illegal.
func (s *Session) EndTurn(actor *combat.Combatant) bool {
	if !s.CanAct(actor) {
		return false
	}
	actor.EndedTurn = true
	return true
}
