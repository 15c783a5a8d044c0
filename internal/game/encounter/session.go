package encounter

import (
	"time"

	"github.com/google/uuid"

	"github.com/mverrilli/deckbound/internal/game/card"
	"github.com/mverrilli/deckbound/internal/game/combat"
	"github.com/mverrilli/deckbound/internal/game/effect"
	"github.com/mverrilli/deckbound/internal/game/item"
)

// Mode distinguishes the two encounter flavors.
type Mode string

const (
	ModePvE Mode = "pve"
	ModePvP Mode = "pvp"
)

// LogEntry is one line of the session's append-only narrative log.
type LogEntry struct {
	At   time.Time
	Text string
}

// PendingReaction suspends damage resolution while the defender chooses
// an interrupt. At most one exists per session.
type PendingReaction struct {
	// AttackerName is the display name used in narration. Exactly one of
	// AttackerCardID (PvE) or AttackerID (PvP) is set.
	AttackerName   string
	AttackerCardID string
	AttackerID     string

	TargetID   string
	Damage     int
	DamageType string
	Debuff     *effect.Spec

	// Options are the reaction choices the defender may submit; "take" is
	// always implied.
	Options []string
}

// LootVote is one combatant's submission in a contested loot roll.
type LootVote struct {
	Choice string // "need", "greed", or "pass"
	Roll   int
}

// Loot vote choices.
const (
	VoteNeed  = "need"
	VoteGreed = "greed"
	VotePass  = "pass"
)

// PendingLootRoll is an open arbitration for one contested drop. At most
// one exists per session; further contested drops fall to the ground.
type PendingLootRoll struct {
	Item  item.Instance
	DefID string
	Votes map[string]LootVote
}

// PendingDialogue is an open dialogue node. The whole party sees the
// line; only the leader may answer it. At most one exists per session.
type PendingDialogue struct {
	CardID   string
	CardName string
}

// Session is the authoritative state of one encounter. It is not safe
// for concurrent use; the gameserver handler serialises all access,
// including timer callbacks.
type Session struct {
	ID     string
	ZoneID string
	Mode   Mode

	// APBudget is the per-phase action point refill for members.
	APBudget int

	// Members is the roster in join order. Dead members stay listed so
	// their lootable snapshot remains claimable.
	Members []*combat.Combatant

	// Cards are the zone's sparse card slots; nil marks an empty slot.
	Cards []*card.Instance
	Deck  *card.Deck

	Ground *item.GroundPile

	// Phase metadata. PvE alternates PlayerTurn; PvP alternates
	// ActiveTeam. Turn increments each time the opening side acts again.
	PlayerTurn bool
	ActiveTeam combat.Team
	Turn       int
	Over       bool

	// Victor is the winning PvP team once combat is decided. Combat
	// actions refuse from then on while the winners claim the field's
	// spoils; teardown follows when the claim window closes.
	Victor combat.Team

	PendingReaction *PendingReaction
	PendingLoot     *PendingLootRoll
	PendingDialogue *PendingDialogue

	// PausedRemaining is the phase-timer remainder captured when a
	// reaction suspended the clock; zero when nothing is paused.
	PausedRemaining time.Duration
	// ResumeIndex is the card slot the enemy driver processes next. A
	// suspended driver stores the slot after the attacker so resumption
	// never re-runs and never skips a card.
	ResumeIndex int

	Log []LogEntry

	// now is swappable for log-timestamp tests.
	now func() time.Time
}

// NewSession creates an encounter session with the given slot count and
// per-phase action point budget.
//
// Precondition: zoneID must be non-empty; slots >= 1; apBudget >= 1.
func NewSession(zoneID string, mode Mode, slots, apBudget int) *Session {
	return &Session{
		ID:         uuid.New().String(),
		ZoneID:     zoneID,
		Mode:       mode,
		APBudget:   apBudget,
		Cards:      make([]*card.Instance, slots),
		Ground:     item.NewGroundPile(),
		PlayerTurn: true,
		ActiveTeam: combat.TeamA,
		Turn:       1,
		now:        time.Now,
	}
}

// AddMember appends a combatant to the roster and zeroes its threat.
func (s *Session) AddMember(c *combat.Combatant) {
	c.ResetThreat()
	s.Members = append(s.Members, c)
}

// Member returns the roster entry with the given id.
func (s *Session) Member(id string) (*combat.Combatant, bool) {
	for _, m := range s.Members {
		if m.ID == id {
			return m, true
		}
	}
	return nil, false
}

// LivingMembers returns every roster entry not marked dead.
func (s *Session) LivingMembers() []*combat.Combatant {
	var alive []*combat.Combatant
	for _, m := range s.Members {
		if !m.IsDead() {
			alive = append(alive, m)
		}
	}
	return alive
}

// LivingOnTeam returns the living members of one PvP side.
func (s *Session) LivingOnTeam(team combat.Team) []*combat.Combatant {
	var alive []*combat.Combatant
	for _, m := range s.Members {
		if m.Team == team && !m.IsDead() {
			alive = append(alive, m)
		}
	}
	return alive
}

// ActiveSide returns the combatants whose phase it currently is: all
// living members during a PvE player phase, the living active team in
// PvP, and nothing during a PvE enemy phase.
func (s *Session) ActiveSide() []*combat.Combatant {
	switch s.Mode {
	case ModePvP:
		return s.LivingOnTeam(s.ActiveTeam)
	default:
		if s.PlayerTurn {
			return s.LivingMembers()
		}
		return nil
	}
}

// LivingCards returns the count of occupied slots holding a live card.
func (s *Session) LivingCards() int {
	n := 0
	for _, c := range s.Cards {
		if c != nil && !c.IsDead() {
			n++
		}
	}
	return n
}

// CardByID returns the slot index and instance for a live card id.
func (s *Session) CardByID(id string) (int, *card.Instance, bool) {
	for i, c := range s.Cards {
		if c != nil && c.ID == id {
			return i, c, true
		}
	}
	return 0, nil, false
}

// FillSlots draws from the deck into every empty slot, in slot order,
// until the deck is exhausted. Returns the freshly placed instances.
func (s *Session) FillSlots() []*card.Instance {
	var placed []*card.Instance
	for i := range s.Cards {
		if s.Cards[i] != nil {
			continue
		}
		tmpl, ok := s.Deck.Draw()
		if !ok {
			break
		}
		inst := card.NewInstance(uuid.New().String(), tmpl)
		s.Cards[i] = inst
		placed = append(placed, inst)
	}
	return placed
}

// Descend clears defeated slots' residue, zeroes every member's threat,
// and draws a fresh wave of cards.
//
// Precondition: LivingCards() == 0.
func (s *Session) Descend() []*card.Instance {
	for _, m := range s.Members {
		m.ResetThreat()
	}
	return s.FillSlots()
}

// Record appends a timestamped line to the narrative log.
func (s *Session) Record(text string) {
	s.Log = append(s.Log, LogEntry{At: s.now(), Text: text})
}

// RecordEvents appends every event narrative to the log and returns the
// events unchanged, for callers forwarding them to the bridge.
func (s *Session) RecordEvents(events []Event) []Event {
	for _, e := range events {
		if e.Narrative != "" {
			s.Record(e.Narrative)
		}
	}
	return events
}
