package session

import (
	"fmt"
	"sync"
)

// PlayerSession tracks a connected player's state.
type PlayerSession struct {
	// UID is the unique player identifier (character ID as string).
	UID string
	// Username is the account username (for logging).
	Username string
	// CharName is the character display name shown in-game.
	CharName string
	// CharacterID is the database ID of the character for persistence.
	CharacterID int64
	// PartyID groups members for encounter entry and matchmaking; a solo
	// player forms a party of one.
	PartyID string
	// Leader marks the member who speaks for the party (dialogue input,
	// descend decisions).
	Leader bool
	// EncounterID is the live encounter the player occupies, empty when idle.
	EncounterID string
	// Entity is the bridge entity for pushing events to the player.
	Entity *BridgeEntity
}

// Manager tracks all active player sessions and party membership.
// All methods are safe for concurrent use.
type Manager struct {
	mu       sync.RWMutex
	players  map[string]*PlayerSession  // uid → session
	partySet map[string]map[string]bool // partyID → set of UIDs
}

// NewManager creates an empty session Manager.
func NewManager() *Manager {
	return &Manager{
		players:  make(map[string]*PlayerSession),
		partySet: make(map[string]map[string]bool),
	}
}

// AddPlayer registers a new player session in the given party. The first
// member of a fresh party becomes its leader.
//
// Precondition: uid, username, charName, and partyID must be non-empty;
// characterID must be >= 0.
// Postcondition: Returns the created PlayerSession, or an error if the
// UID is already registered.
func (m *Manager) AddPlayer(uid, username, charName string, characterID int64, partyID string) (*PlayerSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.players[uid]; exists {
		return nil, fmt.Errorf("player %q already connected", uid)
	}

	sess := &PlayerSession{
		UID:         uid,
		Username:    username,
		CharName:    charName,
		CharacterID: characterID,
		PartyID:     partyID,
		Leader:      len(m.partySet[partyID]) == 0,
		Entity:      NewBridgeEntity(uid, 64),
	}

	m.players[uid] = sess
	if m.partySet[partyID] == nil {
		m.partySet[partyID] = make(map[string]bool)
	}
	m.partySet[partyID][uid] = true

	return sess, nil
}

// RemovePlayer removes a player session and cleans up party membership.
//
// Postcondition: The player is removed from all tracking and their
// bridge entity is closed. Returns an error if not found.
func (m *Manager) RemovePlayer(uid string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, exists := m.players[uid]
	if !exists {
		return fmt.Errorf("player %q not found", uid)
	}

	if ps, ok := m.partySet[sess.PartyID]; ok {
		delete(ps, uid)
		if len(ps) == 0 {
			delete(m.partySet, sess.PartyID)
		}
	}
	_ = sess.Entity.Close()
	delete(m.players, uid)
	return nil
}

// GetPlayer returns the session for the given UID.
//
// Postcondition: Returns (session, true) if found, or (nil, false) otherwise.
func (m *Manager) GetPlayer(uid string) (*PlayerSession, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.players[uid]
	return sess, ok
}

// PartyMembers returns the UIDs of every member of the given party.
//
// Postcondition: Returns a slice of UIDs (may be empty).
func (m *Manager) PartyMembers(partyID string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	uids, ok := m.partySet[partyID]
	if !ok {
		return nil
	}
	result := make([]string, 0, len(uids))
	for uid := range uids {
		result = append(result, uid)
	}
	return result
}

// PartyLeader returns the session of the party's leader.
//
// Postcondition: Returns (session, true) if found, or (nil, false) otherwise.
func (m *Manager) PartyLeader(partyID string) (*PlayerSession, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for uid := range m.partySet[partyID] {
		if sess, ok := m.players[uid]; ok && sess.Leader {
			return sess, true
		}
	}
	return nil, false
}

// SetEncounter records the encounter each listed member occupies; an
// empty encounterID clears it.
func (m *Manager) SetEncounter(uids []string, encounterID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, uid := range uids {
		if sess, ok := m.players[uid]; ok {
			sess.EncounterID = encounterID
		}
	}
}

// PlayerCount returns the total number of connected players.
func (m *Manager) PlayerCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.players)
}
