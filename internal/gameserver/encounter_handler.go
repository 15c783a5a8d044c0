package gameserver

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mverrilli/deckbound/internal/game/ability"
	"github.com/mverrilli/deckbound/internal/game/card"
	"github.com/mverrilli/deckbound/internal/game/character"
	"github.com/mverrilli/deckbound/internal/game/combat"
	"github.com/mverrilli/deckbound/internal/game/dice"
	"github.com/mverrilli/deckbound/internal/game/encounter"
	"github.com/mverrilli/deckbound/internal/game/item"
	"github.com/mverrilli/deckbound/internal/game/matchmaking"
	"github.com/mverrilli/deckbound/internal/game/session"
)

// CharacterStore is the persistence surface the handler needs: loading a
// character on encounter entry and saving its mutable state afterwards.
// *postgres.CharacterRepository satisfies it; tests substitute a fake.
type CharacterStore interface {
	GetByID(ctx context.Context, id int64) (*character.Character, error)
	SaveCombatState(ctx context.Context, id int64, health, gold int, inventory []character.ItemSnapshot) error
}

// Config bundles the handler's timing and economy knobs.
type Config struct {
	PhaseDuration  time.Duration
	ReactionWindow time.Duration
	LootRollWindow time.Duration
	EnemyPace      time.Duration
	ActionPoints   int
	InventorySlots int
}

// EncounterHandler owns every live encounter. A single mutex serialises
// all combat mutation, including timer callbacks, so action dispatch and
// the phase, reaction, loot, and pacing clocks never race on session
// state. Timer bookkeeping uses its own lock because callbacks re-acquire
// the combat lock when they fire.
type EncounterHandler struct {
	sessions  *session.Manager
	registry  *encounter.Registry
	roller    *dice.Roller
	items     *item.Registry
	abilities *ability.Registry
	cards     map[string]*card.Template
	zones     map[string]*card.Zone
	specials  encounter.SpecialRunner
	chars     CharacterStore
	logger    *zap.Logger
	cfg       Config

	queue *matchmaking.Queue

	mu sync.Mutex

	timersMu       sync.Mutex
	phaseTimers    map[string]*encounter.Timer
	reactionTimers map[string]*encounter.Timer
	lootTimers     map[string]*encounter.Timer
	paceTimers     map[string]*encounter.Timer
}

// NewEncounterHandler creates a handler and its PvP queue.
//
// Precondition: sessions, registry, roller, items, abilities, cards,
// zones, specials, and logger must be non-nil; chars may be nil (state
// changes are then not persisted); cfg durations must be > 0 and
// cfg.ActionPoints >= 1.
func NewEncounterHandler(
	sessions *session.Manager,
	registry *encounter.Registry,
	roller *dice.Roller,
	items *item.Registry,
	abilities *ability.Registry,
	cards map[string]*card.Template,
	zones map[string]*card.Zone,
	specials encounter.SpecialRunner,
	chars CharacterStore,
	logger *zap.Logger,
	cfg Config,
	queueWait time.Duration,
) *EncounterHandler {
	h := &EncounterHandler{
		sessions:       sessions,
		registry:       registry,
		roller:         roller,
		items:          items,
		abilities:      abilities,
		cards:          cards,
		zones:          zones,
		specials:       specials,
		chars:          chars,
		logger:         logger,
		cfg:            cfg,
		phaseTimers:    make(map[string]*encounter.Timer),
		reactionTimers: make(map[string]*encounter.Timer),
		lootTimers:     make(map[string]*encounter.Timer),
		paceTimers:     make(map[string]*encounter.Timer),
	}
	h.queue = matchmaking.New(queueWait, h.onMatch, h.onQueueTimeout)
	return h
}

// ---- encounter entry ----

// StartEncounter opens a PvE session in zoneID for the caller's party.
// Leader only; every member must be idle.
//
// Postcondition: On success every party member's session records the new
// encounter id and receives an opening snapshot.
func (h *EncounterHandler) StartEncounter(uid, zoneID string) (err error) {
	defer h.recoverPanic(&err, uid, "start_encounter")

	ps, ok := h.sessions.GetPlayer(uid)
	if !ok {
		return fmt.Errorf("player %q not found", uid)
	}
	if !ps.Leader {
		return fmt.Errorf("only the party leader may start an encounter")
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	return h.startPvELocked(zoneID, h.sessions.PartyMembers(ps.PartyID))
}

// startPvELocked builds and launches a PvE session for the given members.
func (h *EncounterHandler) startPvELocked(zoneID string, uids []string) error {
	zone, ok := h.zones[zoneID]
	if !ok {
		return fmt.Errorf("unknown zone %q", zoneID)
	}
	for _, uid := range uids {
		if ps, ok := h.sessions.GetPlayer(uid); ok && ps.EncounterID != "" {
			return fmt.Errorf("%s is already in an encounter", ps.CharName)
		}
	}

	s := encounter.NewSession(zoneID, encounter.ModePvE, zone.Slots, h.cfg.ActionPoints)
	s.Deck = card.NewDeck(zone, h.cards, h.roller.Src())

	if err := h.enrollLocked(s, uids, combat.TeamNone); err != nil {
		return err
	}
	s.FillSlots()
	s.Record("The party descends into " + zone.Name + ".")

	h.registry.Put(s)
	h.sessions.SetEncounter(uids, s.ID)
	h.pushSnapshots(s)
	h.startPhaseTimerLocked(s.ID)
	h.logger.Info("encounter started",
		zap.String("session_id", s.ID),
		zap.String("zone_id", zoneID),
		zap.Int("members", len(uids)))
	return nil
}

// enrollLocked loads each uid's character and adds its combat ledger to
// the session on the given team.
func (h *EncounterHandler) enrollLocked(s *encounter.Session, uids []string, team combat.Team) error {
	for _, uid := range uids {
		ps, ok := h.sessions.GetPlayer(uid)
		if !ok {
			return fmt.Errorf("player %q not found", uid)
		}
		m, err := h.buildCombatant(ps)
		if err != nil {
			return err
		}
		m.Team = team
		m.RefillActionPoints(h.cfg.ActionPoints)
		s.AddMember(m)
	}
	return nil
}

// buildCombatant materialises a combat ledger from the stored character:
// stats, gold, unlock flags, carried items, and a best-effort auto-equip
// of the first weapon, armor, and shield found.
func (h *EncounterHandler) buildCombatant(ps *session.PlayerSession) (*combat.Combatant, error) {
	if h.chars == nil {
		m := combat.NewCombatant(ps.UID, ps.CharName, ps.CharacterID, 10, h.cfg.InventorySlots)
		return m, nil
	}
	ch, err := h.chars.GetByID(context.Background(), ps.CharacterID)
	if err != nil {
		return nil, fmt.Errorf("loading character %d: %w", ps.CharacterID, err)
	}

	m := combat.NewCombatant(ps.UID, ch.Name, ch.ID, ch.MaxHealth, h.cfg.InventorySlots)
	m.Health = ch.Health
	if m.Health <= 0 {
		// A character saved at zero rejoins with a sliver, not a corpse.
		m.Health = 1
	}
	m.Might = ch.Might
	m.Agility = ch.Agility
	m.Resistance = ch.Resistance
	m.Gold = ch.Gold
	for _, flag := range ch.Unlocks {
		m.Unlocks[flag] = true
	}

	for _, snap := range ch.Inventory {
		inst := item.NewInstance(snap.DefID, snap.Quantity)
		if err := m.Inventory.Add(inst); err != nil {
			h.logger.Warn("inventory overflow on encounter entry",
				zap.Int64("character_id", ch.ID),
				zap.String("def_id", snap.DefID))
			break
		}
	}
	h.autoEquip(m)
	return m, nil
}

// autoEquip moves the first equippable instance of each gear kind from
// the inventory into its slot.
func (h *EncounterHandler) autoEquip(m *combat.Combatant) {
	for _, inst := range m.Inventory.Items() {
		def, ok := h.items.Get(inst.DefID)
		if !ok {
			continue
		}
		switch def.Kind {
		case item.KindWeapon, item.KindArmor, item.KindShield:
		default:
			continue
		}
		// First instance per slot wins; gear kinds share slot names.
		if _, filled := m.Equipment.Equipped(item.Slot(def.Kind)); filled {
			continue
		}
		taken, ok := m.Inventory.Remove(inst.InstanceID)
		if !ok {
			continue
		}
		if _, _, err := m.Equipment.Equip(taken, def); err != nil {
			_ = m.Inventory.Add(taken)
		}
	}
}

// ---- PvP matchmaking ----

// QueuePvP submits the caller's party for a PvP match in zoneID. Leader
// only. An opponent already waiting starts the match immediately;
// otherwise the party waits, falling back to regular zone content when
// the bound expires.
func (h *EncounterHandler) QueuePvP(uid, zoneID string) (err error) {
	defer h.recoverPanic(&err, uid, "queue_pvp")

	ps, ok := h.sessions.GetPlayer(uid)
	if !ok {
		return fmt.Errorf("player %q not found", uid)
	}
	if !ps.Leader {
		return fmt.Errorf("only the party leader may queue")
	}
	if ps.EncounterID != "" {
		return fmt.Errorf("already in an encounter")
	}
	if _, ok := h.zones[zoneID]; !ok {
		return fmt.Errorf("unknown zone %q", zoneID)
	}

	h.queue.Enqueue(zoneID, matchmaking.Party{
		ID:        ps.PartyID,
		MemberIDs: h.sessions.PartyMembers(ps.PartyID),
	})
	return nil
}

// CancelQueue withdraws the caller's party from the PvP queue.
func (h *EncounterHandler) CancelQueue(uid, zoneID string) error {
	ps, ok := h.sessions.GetPlayer(uid)
	if !ok {
		return fmt.Errorf("player %q not found", uid)
	}
	if !h.queue.Cancel(zoneID, ps.PartyID) {
		return fmt.Errorf("party is not queued")
	}
	return nil
}

// onMatch launches a PvP session for two paired parties. The older party
// fields Team A and acts first; a coin flip picks the side that opens
// with a single action point.
func (h *EncounterHandler) onMatch(zoneID string, older, newer matchmaking.Party) {
	h.mu.Lock()
	defer h.mu.Unlock()

	s := encounter.NewSession(zoneID, encounter.ModePvP, 1, h.cfg.ActionPoints)
	if err := h.enrollLocked(s, older.MemberIDs, combat.TeamA); err != nil {
		h.logger.Error("pvp enroll failed", zap.Error(err))
		return
	}
	if err := h.enrollLocked(s, newer.MemberIDs, combat.TeamB); err != nil {
		h.logger.Error("pvp enroll failed", zap.Error(err))
		return
	}

	handicapped := matchmaking.HandicappedTeam(h.roller.Src())
	for _, m := range s.LivingOnTeam(handicapped) {
		m.RefillActionPoints(1)
	}
	s.Record("The duel begins. Team " + string(handicapped) + " opens at a disadvantage.")

	uids := append(append([]string{}, older.MemberIDs...), newer.MemberIDs...)
	h.registry.Put(s)
	h.sessions.SetEncounter(uids, s.ID)
	h.pushSnapshots(s)
	h.startPhaseTimerLocked(s.ID)
	h.logger.Info("pvp encounter started",
		zap.String("session_id", s.ID),
		zap.String("zone_id", zoneID),
		zap.String("handicapped_team", string(handicapped)))
}

// onQueueTimeout routes an unmatched party into the zone's regular
// content instead of leaving them stranded.
func (h *EncounterHandler) onQueueTimeout(zoneID string, p matchmaking.Party) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.startPvELocked(zoneID, p.MemberIDs); err != nil {
		h.logger.Error("pvp fallback failed",
			zap.String("zone_id", zoneID),
			zap.String("party_id", p.ID),
			zap.Error(err))
	}
}

// ---- player actions ----

// Attack swings the caller's equipped weapon at targetID.
func (h *EncounterHandler) Attack(uid, targetID string) (err error) {
	defer h.recoverPanic(&err, uid, "attack")
	h.mu.Lock()
	defer h.mu.Unlock()

	s, actor, err := h.actorLocked(uid)
	if err != nil {
		return err
	}
	events, ok := s.WeaponAttack(actor, targetID, h.roller.Src(), h.items, h.abilities)
	if !ok {
		return errRefused
	}
	h.afterActionLocked(s, events)
	return nil
}

// Cast resolves an ability against targetID (ignored for gathers).
func (h *EncounterHandler) Cast(uid, abilityID, targetID string) (err error) {
	defer h.recoverPanic(&err, uid, "cast")
	h.mu.Lock()
	defer h.mu.Unlock()

	s, actor, err := h.actorLocked(uid)
	if err != nil {
		return err
	}
	events, ok := s.CastAbility(actor, abilityID, targetID, h.roller.Src(), h.items, h.abilities)
	if !ok {
		return errRefused
	}
	h.afterActionLocked(s, events)
	return nil
}

// UseItem consumes a carried consumable.
func (h *EncounterHandler) UseItem(uid, instanceID string) (err error) {
	defer h.recoverPanic(&err, uid, "use_item")
	h.mu.Lock()
	defer h.mu.Unlock()

	s, actor, err := h.actorLocked(uid)
	if err != nil {
		return err
	}
	events, ok := s.UseConsumable(actor, instanceID, h.items)
	if !ok {
		return errRefused
	}
	h.afterActionLocked(s, events)
	return nil
}

// Equip moves a carried instance into its gear slot.
func (h *EncounterHandler) Equip(uid, instanceID string) (err error) {
	defer h.recoverPanic(&err, uid, "equip")
	h.mu.Lock()
	defer h.mu.Unlock()

	s, actor, err := h.actorLocked(uid)
	if err != nil {
		return err
	}
	events, ok := s.EquipItem(actor, instanceID, h.items)
	if !ok {
		return errRefused
	}
	h.afterActionLocked(s, events)
	return nil
}

// Drop moves a carried instance to the ground.
func (h *EncounterHandler) Drop(uid, instanceID string) (err error) {
	defer h.recoverPanic(&err, uid, "drop")
	h.mu.Lock()
	defer h.mu.Unlock()

	s, actor, err := h.actorLocked(uid)
	if err != nil {
		return err
	}
	events, ok := s.DropItem(actor, instanceID, h.items)
	if !ok {
		return errRefused
	}
	h.afterActionLocked(s, events)
	return nil
}

// Interact opens a card's dialogue node for the whole party.
func (h *EncounterHandler) Interact(uid, cardID string) (err error) {
	defer h.recoverPanic(&err, uid, "interact")
	h.mu.Lock()
	defer h.mu.Unlock()

	s, actor, err := h.actorLocked(uid)
	if err != nil {
		return err
	}
	ps, _ := h.sessions.GetPlayer(uid)
	leader, ok := h.sessions.PartyLeader(ps.PartyID)
	if !ok {
		return errRefused
	}
	events, ok := s.InteractWithCard(actor, cardID, leader.UID)
	if !ok {
		return errRefused
	}
	h.afterActionLocked(s, events)
	return nil
}

// Respond answers the open dialogue node. Leader only.
func (h *EncounterHandler) Respond(uid string) (err error) {
	defer h.recoverPanic(&err, uid, "respond")
	h.mu.Lock()
	defer h.mu.Unlock()

	s, actor, err := h.actorLocked(uid)
	if err != nil {
		return err
	}
	ps, _ := h.sessions.GetPlayer(uid)
	leader, ok := h.sessions.PartyLeader(ps.PartyID)
	if !ok {
		return errRefused
	}
	events, ok := s.AnswerDialogue(actor, leader.UID)
	if !ok {
		return errRefused
	}
	h.afterActionLocked(s, events)
	return nil
}

// TakeGround claims a ground instance.
func (h *EncounterHandler) TakeGround(uid, instanceID string) (err error) {
	defer h.recoverPanic(&err, uid, "take_ground")
	h.mu.Lock()
	defer h.mu.Unlock()

	s, actor, err := h.actorLocked(uid)
	if err != nil {
		return err
	}
	if !s.TakeGroundItem(actor, instanceID) {
		return errRefused
	}
	h.afterActionLocked(s, []encounter.Event{{
		Type:      encounter.EventLog,
		Narrative: actor.Name + " picks something up.",
	}})
	return nil
}

// LootPlayer claims one item from a dead member's drop snapshot.
func (h *EncounterHandler) LootPlayer(uid, victimID, instanceID string) (err error) {
	defer h.recoverPanic(&err, uid, "loot_player")
	h.mu.Lock()
	defer h.mu.Unlock()

	s, actor, err := h.actorLocked(uid)
	if err != nil {
		return err
	}
	if !s.LootDeadPlayer(actor, victimID, instanceID) {
		return errRefused
	}
	h.afterActionLocked(s, []encounter.Event{{
		Type:      encounter.EventLog,
		Narrative: actor.Name + " loots the fallen.",
	}})
	return nil
}

// LootVote submits the caller's need/greed/pass choice on the open roll.
// The server rolls the d20; clients never supply roll values.
func (h *EncounterHandler) LootVote(uid, choice string) (err error) {
	defer h.recoverPanic(&err, uid, "loot_vote")
	h.mu.Lock()
	defer h.mu.Unlock()

	s, _, err := h.actorLocked(uid)
	if err != nil {
		return err
	}
	if !s.SubmitLootVote(uid, choice, dice.D20(h.roller.Src())) {
		return errRefused
	}
	if s.AllVotesIn() {
		h.stopLootTimerLocked(s.ID)
		events := s.RecordEvents(s.ResolveLootRoll(h.items))
		h.broadcastLocked(s, events)
		h.persistLocked(s)
	}
	return nil
}

// React submits the defender's choice for the pending reaction; choice
// may be encounter.TakeDamage to absorb the hit deliberately.
func (h *EncounterHandler) React(uid, choice string) (err error) {
	defer h.recoverPanic(&err, uid, "react")
	h.mu.Lock()
	defer h.mu.Unlock()

	s, ok := h.registry.ByMember(uid)
	if !ok {
		return fmt.Errorf("not in an encounter")
	}
	pr := s.PendingReaction
	if pr == nil || pr.TargetID != uid {
		return errRefused
	}
	if choice != encounter.TakeDamage && !containsOption(pr.Options, choice) {
		return errRefused
	}
	h.stopReactionTimerLocked(s.ID)
	h.resolveReactionLocked(s, choice)
	return nil
}

// EndTurn marks the caller finished for the phase.
func (h *EncounterHandler) EndTurn(uid string) (err error) {
	defer h.recoverPanic(&err, uid, "end_turn")
	h.mu.Lock()
	defer h.mu.Unlock()

	s, actor, err := h.actorLocked(uid)
	if err != nil {
		return err
	}
	if !s.EndTurn(actor) {
		return errRefused
	}
	h.afterActionLocked(s, []encounter.Event{{
		Type:      encounter.EventLog,
		Narrative: actor.Name + " stands ready.",
	}})
	return nil
}

// Flee attempts the opposed escape check. An escapee leaves the roster
// and returns to the idle state; a failure draws a free attack.
func (h *EncounterHandler) Flee(uid string) (err error) {
	defer h.recoverPanic(&err, uid, "flee")
	h.mu.Lock()
	defer h.mu.Unlock()

	s, actor, err := h.actorLocked(uid)
	if err != nil {
		return err
	}
	if !s.CanAct(actor) || !actor.SpendActionPoints(1) {
		return errRefused
	}
	events, escaped := s.ResolveFlee(actor, h.roller.Src(), h.items, h.abilities)
	h.broadcastLocked(s, s.RecordEvents(events))
	if escaped {
		h.removeFromRosterLocked(s, uid)
		h.persistMember(actor)
		if len(s.Members) == 0 {
			h.teardownLocked(s, "The field falls silent.")
			return nil
		}
	}
	h.afterActionLocked(s, nil)
	return nil
}

// Descend draws the next wave once the field is clear. Leader only; a
// spent deck ends the encounter instead.
func (h *EncounterHandler) Descend(uid string) (err error) {
	defer h.recoverPanic(&err, uid, "descend")
	h.mu.Lock()
	defer h.mu.Unlock()

	ps, ok := h.sessions.GetPlayer(uid)
	if !ok {
		return fmt.Errorf("player %q not found", uid)
	}
	if !ps.Leader {
		return fmt.Errorf("only the party leader may descend")
	}
	s, _, err := h.actorLocked(uid)
	if err != nil {
		return err
	}
	if s.Mode != encounter.ModePvE || s.LivingCards() > 0 {
		return errRefused
	}
	placed := s.Descend()
	if len(placed) == 0 {
		h.teardownLocked(s, "The zone is spent. The party emerges victorious.")
		return nil
	}
	s.Record("The party presses deeper.")
	h.pushSnapshots(s)
	return nil
}

// Snapshot pushes the caller's current encounter state over the bridge.
func (h *EncounterHandler) Snapshot(uid string) (err error) {
	defer h.recoverPanic(&err, uid, "snapshot")
	h.mu.Lock()
	defer h.mu.Unlock()

	s, ok := h.registry.ByMember(uid)
	if !ok {
		return fmt.Errorf("not in an encounter")
	}
	h.pushFrame(uid, "snapshot", BuildSnapshot(s))
	return nil
}

// Leave removes a disconnecting player from their encounter without an
// escape check. Their ledger persists as-is; an empty roster tears the
// session down.
func (h *EncounterHandler) Leave(uid string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	s, ok := h.registry.ByMember(uid)
	if !ok {
		return
	}
	if m, ok := s.Member(uid); ok {
		h.persistMember(m)
	}
	h.removeFromRosterLocked(s, uid)
	if len(s.Members) == 0 {
		h.stopAllTimersLocked(s.ID)
		s.Over = true
		h.registry.Remove(s.ID)
		return
	}
	s.Record("A party member vanishes from the field.")
	h.broadcastLocked(s, []encounter.Event{{
		Type:      encounter.EventLog,
		Narrative: "A party member vanishes from the field.",
	}})
	h.checkEndLocked(s)
}

// ---- shared flow ----

// errRefused is the uniform rejection for illegal actions; the engine
// leaves state untouched, so no detail leaks about why.
var errRefused = fmt.Errorf("you can't do that right now")

// actorLocked resolves uid to its live session and combat ledger.
func (h *EncounterHandler) actorLocked(uid string) (*encounter.Session, *combat.Combatant, error) {
	s, ok := h.registry.ByMember(uid)
	if !ok {
		return nil, nil, fmt.Errorf("not in an encounter")
	}
	m, ok := s.Member(uid)
	if !ok {
		return nil, nil, fmt.Errorf("not in an encounter")
	}
	return s, m, nil
}

// afterActionLocked runs the common post-action sequence: broadcast,
// reaction and loot window management, persistence, end-of-encounter
// checks, and early phase advance.
func (h *EncounterHandler) afterActionLocked(s *encounter.Session, events []encounter.Event) {
	h.broadcastLocked(s, s.RecordEvents(events))

	if s.PendingReaction != nil {
		h.pauseForReactionLocked(s)
		return
	}
	if hasEvent(events, encounter.EventLootRollOpened) {
		h.startLootTimerLocked(s.ID)
	}
	h.persistLocked(s)
	if h.checkEndLocked(s) {
		return
	}
	if s.PhaseComplete() {
		h.advancePhaseLocked(s)
	}
}

// pauseForReactionLocked freezes the phase clock while the defender
// chooses and opens the reaction window.
func (h *EncounterHandler) pauseForReactionLocked(s *encounter.Session) {
	h.timersMu.Lock()
	if t, ok := h.phaseTimers[s.ID]; ok {
		s.PausedRemaining = t.Pause()
	}
	h.timersMu.Unlock()

	id := s.ID
	h.timersMu.Lock()
	if existing, ok := h.reactionTimers[id]; ok {
		existing.Stop()
	}
	h.reactionTimers[id] = encounter.NewTimer(h.cfg.ReactionWindow, func() {
		h.reactionTimeout(id)
	})
	h.timersMu.Unlock()
}

// reactionTimeout resolves an expired reaction window as a plain hit.
func (h *EncounterHandler) reactionTimeout(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	s, ok := h.registry.Get(sessionID)
	if !ok || s.PendingReaction == nil {
		return
	}
	h.stopReactionTimerLocked(sessionID)
	h.resolveReactionLocked(s, encounter.TakeDamage)
}

// resolveReactionLocked applies the defender's choice and resumes
// whatever clock the reaction suspended: the enemy pass in a PvE enemy
// phase, the phase timer otherwise.
func (h *EncounterHandler) resolveReactionLocked(s *encounter.Session, choice string) {
	events := s.ResolveReaction(choice, h.roller.Src(), h.abilities, h.items)
	h.broadcastLocked(s, s.RecordEvents(events))
	h.persistLocked(s)
	if h.checkEndLocked(s) {
		return
	}

	if s.Mode == encounter.ModePvE && !s.PlayerTurn {
		h.schedulePaceLocked(s.ID)
		return
	}

	remaining := s.PausedRemaining
	s.PausedRemaining = 0
	if remaining <= 0 {
		remaining = h.cfg.PhaseDuration
	}
	h.resumePhaseTimerLocked(s.ID, remaining)
	if s.PhaseComplete() {
		h.advancePhaseLocked(s)
	}
}

// advancePhaseLocked flips the acting side and hands the new phase its
// clock: the pacing driver for a PvE enemy phase, the phase timer for
// everything else.
func (h *EncounterHandler) advancePhaseLocked(s *encounter.Session) {
	h.stopPhaseTimerLocked(s.ID)
	events := s.AdvancePhase()
	if len(events) == 0 {
		return
	}
	h.broadcastLocked(s, s.RecordEvents(events))
	h.persistLocked(s)
	if h.checkEndLocked(s) {
		return
	}

	if s.Mode == encounter.ModePvE && !s.PlayerTurn {
		h.schedulePaceLocked(s.ID)
		return
	}
	h.startPhaseTimerLocked(s.ID)
}

// phaseTimeout force-advances a phase whose clock ran out.
func (h *EncounterHandler) phaseTimeout(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	s, ok := h.registry.Get(sessionID)
	if !ok || s.Over || s.PendingReaction != nil {
		return
	}
	h.advancePhaseLocked(s)
}

// enemyStep runs one card's action in the enemy phase and schedules what
// follows: the next step, the reaction window, or the phase flip.
func (h *EncounterHandler) enemyStep(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	s, ok := h.registry.Get(sessionID)
	if !ok || s.Over || s.PendingReaction != nil || s.PlayerTurn {
		return
	}

	events, status := s.RunEnemyStep(h.roller.Src(), h.items, h.abilities, h.specials)
	h.broadcastLocked(s, s.RecordEvents(events))
	if hasEvent(events, encounter.EventLootRollOpened) {
		h.startLootTimerLocked(s.ID)
	}
	h.persistLocked(s)
	if h.checkEndLocked(s) {
		return
	}

	switch status {
	case encounter.StepSuspended:
		h.pauseForReactionLocked(s)
	case encounter.StepAdvanced:
		h.schedulePaceLocked(sessionID)
	case encounter.StepDone:
		h.advancePhaseLocked(s)
	}
}

// lootTimeout closes an expired loot window; members who never voted
// count as passing.
func (h *EncounterHandler) lootTimeout(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	s, ok := h.registry.Get(sessionID)
	if !ok || s.PendingLoot == nil {
		return
	}
	h.stopLootTimerLocked(sessionID)
	events := s.RecordEvents(s.ResolveLootRoll(h.items))
	h.broadcastLocked(s, events)
	h.persistLocked(s)
}

// checkEndLocked tears the session down when a side has lost. Returns
// true when the encounter ended.
func (h *EncounterHandler) checkEndLocked(s *encounter.Session) bool {
	if s.Over {
		return true
	}
	switch s.Mode {
	case encounter.ModePvP:
		if s.Victor != "" {
			return true
		}
		for _, team := range []combat.Team{combat.TeamA, combat.TeamB} {
			if s.TeamDefeated(team) {
				winner := combat.TeamA
				if team == combat.TeamA {
					winner = combat.TeamB
				}
				h.beginSpoilsLocked(s, winner)
				return true
			}
		}
	default:
		if s.PartyDefeated() {
			h.teardownLocked(s, "The party has fallen.")
			return true
		}
	}
	return false
}

// beginSpoilsLocked ends PvP combat in winner's favor and opens a claim
// window on the field's loot before teardown. The loot-roll window
// doubles as the claim duration.
func (h *EncounterHandler) beginSpoilsLocked(s *encounter.Session, winner combat.Team) {
	h.stopAllTimersLocked(s.ID)
	events := s.DeclareVictor(winner)
	h.broadcastLocked(s, s.RecordEvents(events))
	h.persistLocked(s)

	id := s.ID
	h.timersMu.Lock()
	h.phaseTimers[id] = encounter.NewTimer(h.cfg.LootRollWindow, func() {
		h.spoilsTimeout(id)
	})
	h.timersMu.Unlock()
}

// spoilsTimeout closes the claim window and tears the session down.
func (h *EncounterHandler) spoilsTimeout(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	s, ok := h.registry.Get(sessionID)
	if !ok || s.Over {
		return
	}
	h.teardownLocked(s, "The spoils are claimed; Team "+string(s.Victor)+" departs the field.")
}

// teardownLocked ends the session: clocks stopped, every ledger
// persisted, the closing line broadcast, and all membership cleared.
func (h *EncounterHandler) teardownLocked(s *encounter.Session, closing string) {
	s.Over = true
	h.stopAllTimersLocked(s.ID)

	for _, m := range s.Members {
		h.persistMember(m)
	}
	s.Record(closing)
	h.broadcastLocked(s, []encounter.Event{{
		Type:      encounter.EventEncounterEnded,
		Narrative: closing,
	}})

	var uids []string
	for _, m := range s.Members {
		uids = append(uids, m.ID)
	}
	h.sessions.SetEncounter(uids, "")
	h.registry.Remove(s.ID)
	h.logger.Info("encounter ended",
		zap.String("session_id", s.ID),
		zap.String("zone_id", s.ZoneID),
		zap.Int("turns", s.Turn))
}

// removeFromRosterLocked splices uid out of the session roster and
// clears its encounter mapping.
func (h *EncounterHandler) removeFromRosterLocked(s *encounter.Session, uid string) {
	for i, m := range s.Members {
		if m.ID == uid {
			s.Members = append(s.Members[:i], s.Members[i+1:]...)
			break
		}
	}
	h.registry.RemoveMember(uid)
	h.sessions.SetEncounter([]string{uid}, "")
}

// ---- persistence ----

// persistLocked writes back every member whose ledger may have changed.
// Persistence is one-way and best-effort; a failed write is logged and
// play continues.
func (h *EncounterHandler) persistLocked(s *encounter.Session) {
	if h.chars == nil {
		return
	}
	for _, m := range s.Members {
		h.persistMember(m)
	}
}

func (h *EncounterHandler) persistMember(m *combat.Combatant) {
	if h.chars == nil || m.CharacterID <= 0 {
		return
	}
	inv := make([]character.ItemSnapshot, 0, m.Inventory.Len())
	for _, inst := range m.Inventory.Items() {
		inv = append(inv, character.ItemSnapshot{DefID: inst.DefID, Quantity: inst.Quantity})
	}
	for _, slot := range []item.Slot{item.SlotWeapon, item.SlotArmor, item.SlotShield} {
		if inst, ok := m.Equipment.Equipped(slot); ok {
			inv = append(inv, character.ItemSnapshot{DefID: inst.DefID, Quantity: inst.Quantity})
		}
	}
	err := h.chars.SaveCombatState(context.Background(), m.CharacterID, m.Health, m.Gold, inv)
	if err != nil {
		h.logger.Error("persisting combat state",
			zap.Int64("character_id", m.CharacterID),
			zap.Error(err))
	}
}

// ---- delivery ----

// broadcastLocked frames each event and pushes it to its audience: every
// member for an empty TargetID, the named member otherwise.
func (h *EncounterHandler) broadcastLocked(s *encounter.Session, events []encounter.Event) {
	for _, e := range events {
		frame, err := encodeEvent(e)
		if err != nil {
			h.logger.Error("encoding event", zap.Error(err))
			continue
		}
		if e.TargetID != "" {
			h.pushRaw(e.TargetID, frame)
			continue
		}
		for _, m := range s.Members {
			h.pushRaw(m.ID, frame)
		}
	}
}

func (h *EncounterHandler) pushSnapshots(s *encounter.Session) {
	snap := BuildSnapshot(s)
	for _, m := range s.Members {
		h.pushFrame(m.ID, "snapshot", snap)
	}
}

func (h *EncounterHandler) pushFrame(uid, frameType string, payload any) {
	frame, err := encodeFrame(frameType, payload)
	if err != nil {
		h.logger.Error("encoding frame", zap.String("type", frameType), zap.Error(err))
		return
	}
	h.pushRaw(uid, frame)
}

// pushRaw delivers one frame; a full or closed bridge drops it.
func (h *EncounterHandler) pushRaw(uid string, frame []byte) {
	ps, ok := h.sessions.GetPlayer(uid)
	if !ok {
		return
	}
	if err := ps.Entity.Push(frame); err != nil {
		h.logger.Debug("dropping frame", zap.String("uid", uid), zap.Error(err))
	}
}

// ---- timers ----

func (h *EncounterHandler) startPhaseTimerLocked(sessionID string) {
	h.timersMu.Lock()
	defer h.timersMu.Unlock()
	if existing, ok := h.phaseTimers[sessionID]; ok {
		existing.Stop()
	}
	h.phaseTimers[sessionID] = encounter.NewTimer(h.cfg.PhaseDuration, func() {
		h.phaseTimeout(sessionID)
	})
}

func (h *EncounterHandler) resumePhaseTimerLocked(sessionID string, remaining time.Duration) {
	h.timersMu.Lock()
	defer h.timersMu.Unlock()
	if t, ok := h.phaseTimers[sessionID]; ok {
		t.Reset(remaining, func() { h.phaseTimeout(sessionID) })
		return
	}
	h.phaseTimers[sessionID] = encounter.NewTimer(remaining, func() {
		h.phaseTimeout(sessionID)
	})
}

func (h *EncounterHandler) stopPhaseTimerLocked(sessionID string) {
	h.timersMu.Lock()
	defer h.timersMu.Unlock()
	if t, ok := h.phaseTimers[sessionID]; ok {
		t.Stop()
		delete(h.phaseTimers, sessionID)
	}
}

func (h *EncounterHandler) schedulePaceLocked(sessionID string) {
	h.timersMu.Lock()
	defer h.timersMu.Unlock()
	if existing, ok := h.paceTimers[sessionID]; ok {
		existing.Stop()
	}
	h.paceTimers[sessionID] = encounter.NewTimer(h.cfg.EnemyPace, func() {
		h.enemyStep(sessionID)
	})
}

func (h *EncounterHandler) startLootTimerLocked(sessionID string) {
	h.timersMu.Lock()
	defer h.timersMu.Unlock()
	if existing, ok := h.lootTimers[sessionID]; ok {
		existing.Stop()
	}
	h.lootTimers[sessionID] = encounter.NewTimer(h.cfg.LootRollWindow, func() {
		h.lootTimeout(sessionID)
	})
}

func (h *EncounterHandler) stopLootTimerLocked(sessionID string) {
	h.timersMu.Lock()
	defer h.timersMu.Unlock()
	if t, ok := h.lootTimers[sessionID]; ok {
		t.Stop()
		delete(h.lootTimers, sessionID)
	}
}

func (h *EncounterHandler) stopReactionTimerLocked(sessionID string) {
	h.timersMu.Lock()
	defer h.timersMu.Unlock()
	if t, ok := h.reactionTimers[sessionID]; ok {
		t.Stop()
		delete(h.reactionTimers, sessionID)
	}
}

func (h *EncounterHandler) stopAllTimersLocked(sessionID string) {
	h.timersMu.Lock()
	defer h.timersMu.Unlock()
	for _, timers := range []map[string]*encounter.Timer{
		h.phaseTimers, h.reactionTimers, h.lootTimers, h.paceTimers,
	} {
		if t, ok := timers[sessionID]; ok {
			t.Stop()
			delete(timers, sessionID)
		}
	}
}

// ---- misc ----

// recoverPanic converts a panic in action dispatch into a logged error
// so one bad session cannot take the server down.
func (h *EncounterHandler) recoverPanic(err *error, uid, op string) {
	if r := recover(); r != nil {
		h.logger.Error("panic in encounter dispatch",
			zap.String("op", op),
			zap.String("uid", uid),
			zap.Any("panic", r))
		*err = fmt.Errorf("something went wrong resolving that action")
	}
}

func hasEvent(events []encounter.Event, t encounter.EventType) bool {
	for _, e := range events {
		if e.Type == t {
			return true
		}
	}
	return false
}

func containsOption(options []string, choice string) bool {
	for _, o := range options {
		if o == choice {
			return true
		}
	}
	return false
}

// NewPartyID mints a fresh party identifier for a player logging in
// outside any group.
func NewPartyID() string {
	return uuid.New().String()
}
