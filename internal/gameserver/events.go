// Package gameserver coordinates live encounters: it serialises all
// combat mutation behind one handler lock, owns the phase, reaction,
// loot, and pacing timers, and converts engine events into the JSON
// frames pushed over each player's bridge entity.
package gameserver

import (
	"encoding/json"

	"github.com/mverrilli/deckbound/internal/game/combat"
	"github.com/mverrilli/deckbound/internal/game/encounter"
	"github.com/mverrilli/deckbound/internal/game/item"
)

// Envelope is one JSON frame on the bridge. Type mirrors the engine
// event type, plus the handler-only "snapshot" and "chat" frames.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// EventPayload carries an engine event's observable fields.
type EventPayload struct {
	Narrative string   `json:"narrative,omitempty"`
	ActorID   string   `json:"actor_id,omitempty"`
	SubjectID string   `json:"subject_id,omitempty"`
	Amount    int      `json:"amount,omitempty"`
	ItemID    string   `json:"item_id,omitempty"`
	Options   []string `json:"options,omitempty"`
}

// MemberView is one combatant's public ledger in a snapshot. Carried
// and equipped items are included so text clients can address them by
// name instead of instance id.
type MemberView struct {
	ID           string           `json:"id"`
	Name         string           `json:"name"`
	Health       int              `json:"health"`
	MaxHealth    int              `json:"max_health"`
	ActionPoints int              `json:"action_points"`
	Threat       int              `json:"threat"`
	Team         string           `json:"team,omitempty"`
	Dead         bool             `json:"dead,omitempty"`
	EndedTurn    bool             `json:"ended_turn,omitempty"`
	Gold         int              `json:"gold"`
	Effects      []string         `json:"effects,omitempty"`
	Items        []GroundItemView `json:"items,omitempty"`
	Equipped     []EquippedView   `json:"equipped,omitempty"`
}

// EquippedView is one occupied equipment slot.
type EquippedView struct {
	Slot       string `json:"slot"`
	InstanceID string `json:"instance_id"`
	DefID      string `json:"def_id"`
}

// CardView is one occupied zone slot in a snapshot.
type CardView struct {
	Slot      int    `json:"slot"`
	ID        string `json:"id"`
	Name      string `json:"name"`
	Health    int    `json:"health"`
	MaxHealth int    `json:"max_health"`
}

// GroundItemView is one claimable ground instance in a snapshot.
type GroundItemView struct {
	InstanceID string `json:"instance_id"`
	DefID      string `json:"def_id"`
	Quantity   int    `json:"quantity"`
}

// Snapshot is the full observable encounter state, pushed on entry and
// on request.
type Snapshot struct {
	SessionID  string           `json:"session_id"`
	ZoneID     string           `json:"zone_id"`
	Mode       string           `json:"mode"`
	Turn       int              `json:"turn"`
	PlayerTurn bool             `json:"player_turn"`
	ActiveTeam string           `json:"active_team,omitempty"`
	Members    []MemberView     `json:"members"`
	Cards      []CardView       `json:"cards"`
	Ground     []GroundItemView `json:"ground,omitempty"`
	LootOpen   string           `json:"loot_open,omitempty"`
}

// ChatPayload is a party chat line.
type ChatPayload struct {
	From    string `json:"from"`
	Message string `json:"message"`
}

// encodeEvent frames one engine event for the bridge.
func encodeEvent(e encounter.Event) ([]byte, error) {
	data, err := json.Marshal(EventPayload{
		Narrative: e.Narrative,
		ActorID:   e.ActorID,
		SubjectID: e.SubjectID,
		Amount:    e.Amount,
		ItemID:    e.ItemID,
		Options:   e.Options,
	})
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: string(e.Type), Data: data})
}

// encodeFrame frames an arbitrary payload under the given type tag.
func encodeFrame(frameType string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: frameType, Data: data})
}

// BuildSnapshot assembles the observable state of a session.
func BuildSnapshot(s *encounter.Session) Snapshot {
	snap := Snapshot{
		SessionID:  s.ID,
		ZoneID:     s.ZoneID,
		Mode:       string(s.Mode),
		Turn:       s.Turn,
		PlayerTurn: s.PlayerTurn,
	}
	if s.Mode == encounter.ModePvP {
		snap.ActiveTeam = string(s.ActiveTeam)
	}
	if s.PendingLoot != nil {
		snap.LootOpen = s.PendingLoot.DefID
	}
	for _, m := range s.Members {
		snap.Members = append(snap.Members, memberView(m))
	}
	for i, c := range s.Cards {
		if c == nil {
			continue
		}
		snap.Cards = append(snap.Cards, CardView{
			Slot:      i,
			ID:        c.ID,
			Name:      c.Name,
			Health:    c.Health,
			MaxHealth: c.MaxHealth,
		})
	}
	for _, inst := range s.Ground.Items() {
		snap.Ground = append(snap.Ground, GroundItemView{
			InstanceID: inst.InstanceID,
			DefID:      inst.DefID,
			Quantity:   inst.Quantity,
		})
	}
	return snap
}

func memberView(m *combat.Combatant) MemberView {
	view := MemberView{
		ID:           m.ID,
		Name:         m.Name,
		Health:       m.Health,
		MaxHealth:    m.MaxHealth,
		ActionPoints: m.ActionPoints,
		Threat:       m.Threat,
		Team:         string(m.Team),
		Dead:         m.Dead,
		EndedTurn:    m.EndedTurn,
		Gold:         m.Gold,
	}
	for _, e := range m.Effects.All() {
		view.Effects = append(view.Effects, e.Name)
	}
	for _, inst := range m.Inventory.Items() {
		view.Items = append(view.Items, GroundItemView{
			InstanceID: inst.InstanceID,
			DefID:      inst.DefID,
			Quantity:   inst.Quantity,
		})
	}
	for _, slot := range []item.Slot{item.SlotWeapon, item.SlotArmor, item.SlotShield} {
		if inst, ok := m.Equipment.Equipped(slot); ok {
			view.Equipped = append(view.Equipped, EquippedView{
				Slot:       string(slot),
				InstanceID: inst.InstanceID,
				DefID:      inst.DefID,
			})
		}
	}
	return view
}
