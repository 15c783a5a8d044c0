package gameserver

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/mverrilli/deckbound/internal/game/ability"
	"github.com/mverrilli/deckbound/internal/game/card"
	"github.com/mverrilli/deckbound/internal/game/character"
	"github.com/mverrilli/deckbound/internal/game/combat"
	"github.com/mverrilli/deckbound/internal/game/dice"
	"github.com/mverrilli/deckbound/internal/game/effect"
	"github.com/mverrilli/deckbound/internal/game/encounter"
	"github.com/mverrilli/deckbound/internal/game/item"
	"github.com/mverrilli/deckbound/internal/game/session"
)

// scriptedSource returns pre-seeded values, cycling when exhausted.
type scriptedSource struct {
	values []int
	next   int
}

func (s *scriptedSource) Intn(n int) int {
	v := s.values[s.next%len(s.values)]
	s.next++
	return v % n
}

// saveCall records one SaveCombatState invocation on the fake store.
type saveCall struct {
	ID        int64
	Health    int
	Gold      int
	Inventory []character.ItemSnapshot
}

// fakeStore is an in-memory CharacterStore.
type fakeStore struct {
	mu    sync.Mutex
	chars map[int64]*character.Character
	saves []saveCall
}

func newFakeStore() *fakeStore {
	return &fakeStore{chars: make(map[int64]*character.Character)}
}

func (f *fakeStore) GetByID(_ context.Context, id int64) (*character.Character, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch, ok := f.chars[id]
	if !ok {
		return nil, fmt.Errorf("character %d not found", id)
	}
	cp := *ch
	return &cp, nil
}

func (f *fakeStore) SaveCombatState(_ context.Context, id int64, health, gold int, inv []character.ItemSnapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves = append(f.saves, saveCall{ID: id, Health: health, Gold: gold, Inventory: inv})
	return nil
}

func (f *fakeStore) lastSaveFor(id int64) (saveCall, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.saves) - 1; i >= 0; i-- {
		if f.saves[i].ID == id {
			return f.saves[i], true
		}
	}
	return saveCall{}, false
}

func testItems() *item.Registry {
	reg := item.NewRegistry()
	reg.Register(&item.Def{
		ID: "sword", Name: "Sword", Kind: item.KindWeapon,
		Hit: 10, Damage: "1d6", DamageType: combat.DamagePhysical,
	})
	reg.Register(&item.Def{
		ID: "tower-shield", Name: "Tower Shield", Kind: item.KindShield,
		Reaction: true, Hit: 10, Mitigation: 3, Cooldown: 2,
	})
	reg.Register(&item.Def{
		ID: "potion", Name: "Healing Draught", Kind: item.KindConsumable, Heal: 5,
	})
	reg.Register(&item.Def{
		ID: "coin-pouch", Name: "Coin Pouch", Kind: item.KindTrinket, Rarity: item.Common,
	})
	reg.Register(&item.Def{
		ID: "sun-relic", Name: "Sun Relic", Kind: item.KindTrinket, Rarity: item.Rare,
	})
	return reg
}

func testAbilities() *ability.Registry {
	reg := ability.NewRegistry()
	reg.Register(&ability.Def{
		ID: "dodge", Name: "Dodge", Kind: ability.KindReaction,
		ReactionMode: ability.ReactionDodge, Hit: 12, Cooldown: 2,
		UnlockKey: "reaction.dodge",
	})
	reg.Register(&ability.Def{
		ID: "firebolt", Name: "Firebolt", Kind: ability.KindSpell,
		Hit: 10, Stat: "might", Damage: "1d6", DamageType: combat.DamageArcane,
		APCost: 1, Cooldown: 1,
		Debuff: &effect.Spec{Name: "burning", Kind: "periodic_damage", Duration: 2, Magnitude: 2},
	})
	return reg
}

func testTemplates() map[string]*card.Template {
	rat := &card.Template{
		ID: "bog-rat", Name: "Bog Rat", MaxHealth: 6, Might: 2,
		Damage: "1d4", DamageType: combat.DamagePhysical,
		Attacks: combat.RangeTable{
			{Min: 1, Max: 8, Outcome: card.OutcomeMiss},
			{Min: 9, Max: 20, Outcome: card.OutcomeAttack},
		},
		Loot: combat.RangeTable{
			{Min: 1, Max: 20, Outcome: card.OutcomeItem, Arg: "coin-pouch"},
		},
	}
	husk := &card.Template{
		ID: "husk", Name: "Hollow Husk", MaxHealth: 4, Might: 1,
		Dialogue: "Leave the crypt to its dead.",
		Damage: "1d4", DamageType: combat.DamagePhysical,
		Attacks: combat.RangeTable{
			{Min: 1, Max: 20, Outcome: card.OutcomeMiss},
		},
		Loot: combat.RangeTable{
			{Min: 1, Max: 20, Outcome: card.OutcomeItem, Arg: "sun-relic"},
		},
	}
	return map[string]*card.Template{"bog-rat": rat, "husk": husk}
}

func testZones() map[string]*card.Zone {
	return map[string]*card.Zone{
		"mire": {
			ID: "mire", Name: "The Mire", Slots: 1,
			Deck: []card.ZoneEntry{{CardID: "bog-rat", Count: 2}},
		},
		"crypt": {
			ID: "crypt", Name: "The Crypt", Slots: 1,
			Deck: []card.ZoneEntry{{CardID: "husk", Count: 1}},
		},
	}
}

// harness is a fully wired handler with two connected players sharing a
// party. All timer windows are an hour so callbacks only run when a test
// invokes them directly.
type harness struct {
	handler  *EncounterHandler
	sessions *session.Manager
	registry *encounter.Registry
	store    *fakeStore
	src      *scriptedSource
	logs     *observer.ObservedLogs
}

func testCharacter(id int64, name string) *character.Character {
	return &character.Character{
		ID: id, AccountID: 1, Name: name, Calling: "warden",
		MaxHealth: 20, Health: 20, Might: 3, Agility: 2, Resistance: 1, Gold: 10,
		Unlocks: []string{"reaction.dodge"},
		Inventory: []character.ItemSnapshot{
			{DefID: "sword", Quantity: 1},
			{DefID: "potion", Quantity: 1},
		},
	}
}

func newHarness(t *testing.T, diceValues ...int) *harness {
	t.Helper()
	if len(diceValues) == 0 {
		diceValues = []int{10}
	}
	core, logs := observer.New(zap.DebugLevel)
	logger := zap.New(core)

	src := &scriptedSource{values: diceValues}
	sessions := session.NewManager()
	registry := encounter.NewRegistry()
	store := newFakeStore()
	store.chars[1] = testCharacter(1, "Alice")
	store.chars[2] = testCharacter(2, "Bob")

	_, err := sessions.AddPlayer("p1", "alice", "Alice", 1, "party-1")
	require.NoError(t, err)
	_, err = sessions.AddPlayer("p2", "bob", "Bob", 2, "party-1")
	require.NoError(t, err)

	cfg := Config{
		PhaseDuration:  time.Hour,
		ReactionWindow: time.Hour,
		LootRollWindow: time.Hour,
		EnemyPace:      time.Hour,
		ActionPoints:   3,
		InventorySlots: 8,
	}
	h := NewEncounterHandler(
		sessions, registry, dice.NewRoller(src, logger),
		testItems(), testAbilities(), testTemplates(), testZones(),
		noopSpecials{}, store, logger, cfg, time.Hour,
	)
	return &harness{handler: h, sessions: sessions, registry: registry, store: store, src: src, logs: logs}
}

// sessionFor returns the live session the given player occupies.
func (hs *harness) sessionFor(t *testing.T, uid string) *encounter.Session {
	t.Helper()
	s, ok := hs.registry.ByMember(uid)
	require.True(t, ok, "player %s has no live session", uid)
	return s
}

// drainFrames empties a player's bridge and decodes every envelope.
func (hs *harness) drainFrames(t *testing.T, uid string) []Envelope {
	t.Helper()
	ps, ok := hs.sessions.GetPlayer(uid)
	require.True(t, ok)
	var out []Envelope
	for {
		select {
		case raw := <-ps.Entity.Events():
			var env Envelope
			require.NoError(t, json.Unmarshal(raw, &env))
			out = append(out, env)
		default:
			return out
		}
	}
}

// frameTypes lists the envelope types in order.
func frameTypes(frames []Envelope) []string {
	var types []string
	for _, f := range frames {
		types = append(types, f.Type)
	}
	return types
}

func hasFrame(frames []Envelope, frameType string) bool {
	for _, f := range frames {
		if f.Type == frameType {
			return true
		}
	}
	return false
}

// noopSpecials satisfies encounter.SpecialRunner without doing anything.
type noopSpecials struct{}

func (noopSpecials) RunSpecial(string, *encounter.Session, *card.Instance, *combat.Combatant) ([]encounter.Event, error) {
	return nil, nil
}
