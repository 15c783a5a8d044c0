package gameserver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mverrilli/deckbound/internal/game/combat"
	"github.com/mverrilli/deckbound/internal/game/encounter"
	"github.com/mverrilli/deckbound/internal/game/matchmaking"
)

// addOpposingParty connects a third player leading their own party.
func addOpposingParty(t *testing.T, hs *harness) {
	t.Helper()
	hs.store.chars[3] = testCharacter(3, "Carol")
	_, err := hs.sessions.AddPlayer("p3", "carol", "Carol", 3, "party-2")
	require.NoError(t, err)
}

func TestQueuePvP_MatchStartsWithHandicap(t *testing.T) {
	hs := newHarness(t)
	addOpposingParty(t, hs)

	require.NoError(t, hs.handler.QueuePvP("p1", "mire"))
	assert.Equal(t, 1, hs.handler.queue.Waiting("mire"))
	assert.Equal(t, 0, hs.registry.Len(), "a lone party waits")

	// Coin flip 0: the older side (Team A) opens handicapped.
	hs.src.values = []int{0}
	hs.src.next = 0
	require.NoError(t, hs.handler.QueuePvP("p3", "mire"))

	s := hs.sessionFor(t, "p1")
	assert.Equal(t, encounter.ModePvP, s.Mode)
	assert.Equal(t, 0, hs.handler.queue.Waiting("mire"))

	alice, _ := s.Member("p1")
	bob, _ := s.Member("p2")
	carol, _ := s.Member("p3")
	assert.Equal(t, combat.TeamA, alice.Team)
	assert.Equal(t, combat.TeamA, bob.Team)
	assert.Equal(t, combat.TeamB, carol.Team)

	assert.Equal(t, 1, alice.ActionPoints)
	assert.Equal(t, 1, bob.ActionPoints)
	assert.Equal(t, 3, carol.ActionPoints)

	// Team A, the older party, acts first.
	assert.Equal(t, combat.TeamA, s.ActiveTeam)

	for _, uid := range []string{"p1", "p2", "p3"} {
		frames := hs.drainFrames(t, uid)
		assert.True(t, hasFrame(frames, "snapshot"), "missing snapshot for %s", uid)
	}
}

func TestQueuePvP_NonLeaderRefused(t *testing.T) {
	hs := newHarness(t)
	require.Error(t, hs.handler.QueuePvP("p2", "mire"))
}

func TestCancelQueue(t *testing.T) {
	hs := newHarness(t)
	require.NoError(t, hs.handler.QueuePvP("p1", "mire"))
	require.NoError(t, hs.handler.CancelQueue("p1", "mire"))
	assert.Equal(t, 0, hs.handler.queue.Waiting("mire"))
	require.Error(t, hs.handler.CancelQueue("p1", "mire"), "a second cancel finds nothing")
}

func TestQueueTimeout_FallsBackToPvE(t *testing.T) {
	hs := newHarness(t)
	require.NoError(t, hs.handler.QueuePvP("p1", "mire"))

	// Drive the expiry directly rather than waiting out the bound.
	require.True(t, hs.handler.queue.Cancel("mire", "party-1"))
	hs.handler.onQueueTimeout("mire", matchmaking.Party{
		ID:        "party-1",
		MemberIDs: hs.sessions.PartyMembers("party-1"),
	})

	s := hs.sessionFor(t, "p1")
	assert.Equal(t, encounter.ModePvE, s.Mode)
	require.NotNil(t, s.Cards[0])
}

func TestPvP_AttackOffersReactionToDefender(t *testing.T) {
	hs := newHarness(t)
	addOpposingParty(t, hs)
	require.NoError(t, hs.handler.QueuePvP("p1", "mire"))
	hs.src.values = []int{0}
	hs.src.next = 0
	require.NoError(t, hs.handler.QueuePvP("p3", "mire"))
	s := hs.sessionFor(t, "p1")
	hs.drainFrames(t, "p1")
	hs.drainFrames(t, "p3")

	// Check d20 15 hits, damage d6 6.
	hs.src.values = []int{14, 5}
	hs.src.next = 0
	require.NoError(t, hs.handler.Attack("p1", "p3"))

	require.NotNil(t, s.PendingReaction)
	assert.Equal(t, "p3", s.PendingReaction.TargetID)

	frames := hs.drainFrames(t, "p3")
	assert.True(t, hasFrame(frames, "reaction_offer"))

	require.NoError(t, hs.handler.React("p3", encounter.TakeDamage))
	carol, _ := s.Member("p3")
	// 6 rolled less 1 resistance.
	assert.Equal(t, 15, carol.Health)
}

func TestPvP_OutOfTurnAttackRefused(t *testing.T) {
	hs := newHarness(t)
	addOpposingParty(t, hs)
	require.NoError(t, hs.handler.QueuePvP("p1", "mire"))
	hs.src.values = []int{0}
	hs.src.next = 0
	require.NoError(t, hs.handler.QueuePvP("p3", "mire"))

	// Team B is not the active side yet.
	assert.ErrorIs(t, hs.handler.Attack("p3", "p1"), errRefused)
}

func TestPvP_TeamDefeatOpensSpoilsWindow(t *testing.T) {
	hs := newHarness(t)
	addOpposingParty(t, hs)
	require.NoError(t, hs.handler.QueuePvP("p1", "mire"))
	hs.src.values = []int{1}
	hs.src.next = 0
	require.NoError(t, hs.handler.QueuePvP("p3", "mire"))
	s := hs.sessionFor(t, "p1")
	hs.drainFrames(t, "p1")
	hs.drainFrames(t, "p3")

	carol, _ := s.Member("p3")
	carol.ApplyDamage(carol.Health - 3)

	hs.src.values = []int{14, 5}
	hs.src.next = 0
	require.NoError(t, hs.handler.Attack("p1", "p3"))
	require.NotNil(t, s.PendingReaction)
	require.NoError(t, hs.handler.React("p3", encounter.TakeDamage))

	assert.True(t, carol.Dead)
	assert.Equal(t, combat.TeamA, s.Victor)
	assert.False(t, s.Over, "the claim window holds the session open")
	require.Equal(t, 1, s.Ground.Len(), "the fallen side's gear lies on the field")

	// Combat is decided; only claiming remains.
	assert.ErrorIs(t, hs.handler.Attack("p1", "p3"), errRefused)

	gear := s.Ground.Items()[0]
	assert.ErrorIs(t, hs.handler.TakeGround("p3", gear.InstanceID), errRefused,
		"the losing side gets nothing")
	require.NoError(t, hs.handler.TakeGround("p1", gear.InstanceID))
	assert.Equal(t, 0, s.Ground.Len())

	hs.handler.spoilsTimeout(s.ID)
	assert.True(t, s.Over)
	assert.Equal(t, 0, hs.registry.Len())

	frames := hs.drainFrames(t, "p1")
	assert.True(t, hasFrame(frames, "encounter_ended"), "got %v", frameTypes(frames))

	save, ok := hs.store.lastSaveFor(3)
	require.True(t, ok)
	assert.Equal(t, 0, save.Health)
}
