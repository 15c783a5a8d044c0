package gameserver

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mverrilli/deckbound/internal/game/card"
	"github.com/mverrilli/deckbound/internal/game/combat"
	"github.com/mverrilli/deckbound/internal/game/dice"
	"github.com/mverrilli/deckbound/internal/game/encounter"
	"github.com/mverrilli/deckbound/internal/scripting"
)

const specialsScript = `
function venom_spit(session_id, card_id, target_uid)
	local who = engine.combatant(session_id, target_uid)
	engine.apply_effect(session_id, who.uid, "venom", "periodic_damage", 2, 2)
	engine.broadcast(session_id, "Venom sprays across the field!")
	return true
end

function death_burst(session_id, card_id, target_uid)
	engine.spawn_card(session_id, "husk")
	engine.remove_self(session_id, card_id)
	return true
end

function feint(session_id, card_id, target_uid)
	return false
end

function stale_session(session_id, card_id, target_uid)
	engine.broadcast("not-a-session", "nobody hears this")
	return false
end
`

func newSpecialsFixture(t *testing.T) (*ScriptSpecials, *encounter.Session, *card.Instance, *combat.Combatant) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "specials.lua"), []byte(specialsScript), 0o644))

	logger := zap.NewNop()
	mgr := scripting.NewManager(dice.NewRoller(&scriptedSource{values: []int{10}}, logger), logger)
	t.Cleanup(mgr.Close)
	require.NoError(t, mgr.LoadZone("barrow", dir, 0))

	runner := NewScriptSpecials(mgr, testTemplates())

	s := encounter.NewSession("barrow", encounter.ModePvE, 2, 3)
	alice := combat.NewCombatant("p1", "Alice", 1, 20, 8)
	s.AddMember(alice)
	actor := card.NewInstance("c1", testTemplates()["bog-rat"])
	s.Cards[0] = actor
	return runner, s, actor, alice
}

func TestRunSpecial_AppliesEffectAndBroadcasts(t *testing.T) {
	runner, s, actor, alice := newSpecialsFixture(t)

	events, err := runner.RunSpecial("venom_spit", s, actor, alice)
	require.NoError(t, err)

	assert.True(t, alice.Effects.Has("venom"))

	var narratives []string
	for _, e := range events {
		narratives = append(narratives, e.Narrative)
	}
	assert.Contains(t, narratives, "Alice is afflicted by venom.")
	assert.Contains(t, narratives, "Venom sprays across the field!")
}

func TestRunSpecial_SpawnAndRemove(t *testing.T) {
	runner, s, actor, alice := newSpecialsFixture(t)

	events, err := runner.RunSpecial("death_burst", s, actor, alice)
	require.NoError(t, err)

	assert.Nil(t, s.Cards[0], "the bursting card leaves play")
	require.NotNil(t, s.Cards[1], "the script summons a replacement")
	assert.Equal(t, "husk", s.Cards[1].TemplateID)

	var narratives []string
	for _, e := range events {
		narratives = append(narratives, e.Narrative)
	}
	assert.Contains(t, narratives, "Hollow Husk joins the field.")
	assert.Contains(t, narratives, "Bog Rat is consumed by its own power.")
}

func TestRunSpecial_FalsyHookFizzles(t *testing.T) {
	runner, s, actor, alice := newSpecialsFixture(t)

	events, err := runner.RunSpecial("feint", s, actor, alice)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Contains(t, events[0].Narrative, "nothing happens")
}

func TestRunSpecial_MissingHookFizzles(t *testing.T) {
	runner, s, actor, alice := newSpecialsFixture(t)

	events, err := runner.RunSpecial("no_such_hook", s, actor, alice)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Contains(t, events[0].Narrative, "nothing happens")
}

func TestRunSpecial_IgnoresForeignSessionIDs(t *testing.T) {
	runner, s, actor, alice := newSpecialsFixture(t)

	events, err := runner.RunSpecial("stale_session", s, actor, alice)
	require.NoError(t, err)
	// The misaddressed broadcast is dropped, leaving only the fizzle.
	require.Len(t, events, 1)
	assert.Contains(t, events[0].Narrative, "nothing happens")
}
