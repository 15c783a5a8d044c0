// Package encounter implements the live state of one combat session: the
// combatant roster, zone card slots, phase scheduling, the reaction
// interrupt protocol, the enemy phase driver, and loot arbitration.
package encounter

import "fmt"

// EventType tags an Event for presentation-layer routing.
type EventType string

const (
	// EventLog is a broadcast narrative line.
	EventLog EventType = "log"
	// EventReactionOffer is delivered only to the defender named in TargetID.
	EventReactionOffer EventType = "reaction_offer"
	// EventCharacterUpdate is delivered only to the combatant named in
	// TargetID after their ledger changed.
	EventCharacterUpdate EventType = "character_update"
	// EventLootRollOpened announces a contested drop open for votes.
	EventLootRollOpened EventType = "loot_roll_opened"
	// EventLootRollEnded announces the arbitration result.
	EventLootRollEnded EventType = "loot_roll_ended"
	// EventPhase announces a phase transition.
	EventPhase EventType = "phase"
	// EventEncounterEnded announces session teardown.
	EventEncounterEnded EventType = "encounter_ended"
	// EventDialogue carries an NPC card's dialogue node to the party leader.
	EventDialogue EventType = "dialogue"
)

// Event is one observable consequence of resolving an action. Events with
// an empty TargetID are broadcast to every session member; a non-empty
// TargetID restricts delivery to that combatant.
type Event struct {
	Type      EventType
	TargetID  string
	Narrative string

	// ActorID / SubjectID identify who acted and who was affected, when
	// meaningful for the event type.
	ActorID   string
	SubjectID string

	// Amount carries damage dealt, healing received, or gold awarded.
	Amount int
	// ItemID names the item definition involved in loot events.
	ItemID string
	// Options lists the defender's eligible reaction choices on an
	// EventReactionOffer.
	Options []string
}

// logf builds a broadcast narrative event.
func logf(format string, args ...any) Event {
	return Event{Type: EventLog, Narrative: fmt.Sprintf(format, args...)}
}
