package encounter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mverrilli/deckbound/internal/game/card"
	"github.com/mverrilli/deckbound/internal/game/item"
)

func TestWeaponAttack_IllegalCasesAreSilentNoOps(t *testing.T) {
	items := testItems()
	abilities := testAbilities()
	alice := newMember("p1", "Alice")
	s, _ := pveSession(alice)
	src := &scriptedSource{values: []int{13, 2}}

	// No weapon equipped.
	events, ok := s.WeaponAttack(alice, "card-1", src, items, abilities)
	assert.False(t, ok)
	assert.Nil(t, events)

	equipDef(t, alice, "sword", items)

	// Not the player phase.
	s.PlayerTurn = false
	_, ok = s.WeaponAttack(alice, "card-1", src, items, abilities)
	assert.False(t, ok)
	s.PlayerTurn = true

	// Unknown target.
	_, ok = s.WeaponAttack(alice, "nope", src, items, abilities)
	assert.False(t, ok)

	// No action points.
	alice.ActionPoints = 0
	_, ok = s.WeaponAttack(alice, "card-1", src, items, abilities)
	assert.False(t, ok)
	assert.Equal(t, 0, alice.ActionPoints, "ledger untouched")

	// Pending reaction blocks everything.
	alice.RefillActionPoints(3)
	s.PendingReaction = &PendingReaction{TargetID: "p1"}
	_, ok = s.WeaponAttack(alice, "card-1", src, items, abilities)
	assert.False(t, ok)
}

func TestWeaponAttack_HitsCardAndAccruesThreat(t *testing.T) {
	items := testItems()
	abilities := testAbilities()
	alice := newMember("p1", "Alice")
	equipDef(t, alice, "sword", items)
	s, inst := pveSession(alice)

	// Check roll 14 (+might 3 vs hit 10), damage die 4.
	events, ok := s.WeaponAttack(alice, "card-1", &scriptedSource{values: []int{13, 3}}, items, abilities)

	require.True(t, ok)
	require.NotEmpty(t, events)
	assert.Equal(t, 2, inst.Health)
	assert.Equal(t, 4, alice.Threat)
	assert.Equal(t, 2, alice.ActionPoints)
}

func TestWeaponAttack_CritDoublesAndDefeats(t *testing.T) {
	items := testItems()
	abilities := testAbilities()
	alice := newMember("p1", "Alice")
	equipDef(t, alice, "sword", items)
	s, inst := pveSession(alice)

	// Natural 20 with total 23 >= 10: critical, 4 * 2 = 8, kills the
	// six-health card; the trailing value feeds the loot roll.
	events, ok := s.WeaponAttack(alice, "card-1", &scriptedSource{values: []int{19, 3, 9}}, items, abilities)

	require.True(t, ok)
	assert.True(t, inst.IsDead())
	assert.Nil(t, s.Cards[0])
	assert.Equal(t, 1, alice.Inventory.Len(), "common loot distributed")
	assert.Equal(t, 3, alice.ActionPoints, "field clear restores action points")
	require.NotEmpty(t, events)
}

func TestWeaponAttack_MissRollOne(t *testing.T) {
	items := testItems()
	abilities := testAbilities()
	alice := newMember("p1", "Alice")
	equipDef(t, alice, "sword", items)
	s, inst := pveSession(alice)

	events, ok := s.WeaponAttack(alice, "card-1", &scriptedSource{values: []int{0}}, items, abilities)

	require.True(t, ok)
	assert.Contains(t, events[0].Narrative, "misses")
	assert.Equal(t, 6, inst.Health)
	assert.Equal(t, 2, alice.ActionPoints, "a miss still spends the action point")
}

func TestCastAbility_SpellAppliesDebuffToCard(t *testing.T) {
	items := testItems()
	abilities := testAbilities()
	alice := newMember("p1", "Alice")
	s, inst := pveSession(alice)

	// Check roll 14, damage die 2.
	events, ok := s.CastAbility(alice, "firebolt", "card-1", &scriptedSource{values: []int{13, 1}}, items, abilities)

	require.True(t, ok)
	require.NotEmpty(t, events)
	assert.Equal(t, 4, inst.Health)
	assert.True(t, inst.Effects.Has("burning"))
	assert.Equal(t, 1, alice.Cooldowns.Remaining("firebolt"))
	assert.Equal(t, 2, alice.ActionPoints)
}

func TestCastAbility_CooldownBlocksRecast(t *testing.T) {
	items := testItems()
	abilities := testAbilities()
	alice := newMember("p1", "Alice")
	s, _ := pveSession(alice)

	_, ok := s.CastAbility(alice, "firebolt", "card-1", &scriptedSource{values: []int{13, 1}}, items, abilities)
	require.True(t, ok)
	_, ok = s.CastAbility(alice, "firebolt", "card-1", &scriptedSource{values: []int{13, 1}}, items, abilities)
	assert.False(t, ok)
}

func TestCastAbility_GatherNeedsNoTarget(t *testing.T) {
	items := testItems()
	abilities := testAbilities()
	alice := newMember("p1", "Alice")
	s, _ := pveSession(alice)

	events, ok := s.CastAbility(alice, "forage", "", &scriptedSource{values: []int{13}}, items, abilities)

	require.True(t, ok)
	require.Len(t, events, 1)
	assert.Equal(t, 2, alice.ActionPoints)
	assert.Equal(t, 1, alice.Inventory.Len(), "successful gather yields its item")
}

func TestCastAbility_GatherFailureYieldsNothing(t *testing.T) {
	items := testItems()
	abilities := testAbilities()
	alice := newMember("p1", "Alice")
	s, _ := pveSession(alice)

	// Roll 1 is always a critical failure.
	_, ok := s.CastAbility(alice, "forage", "", &scriptedSource{values: []int{0}}, items, abilities)

	require.True(t, ok)
	assert.Equal(t, 0, alice.Inventory.Len())
	assert.Equal(t, 2, alice.ActionPoints, "the attempt still spends an action point")
}

func TestCastAbility_GatherFullPackDropsYieldToGround(t *testing.T) {
	items := testItems()
	abilities := testAbilities()
	alice := newMember("p1", "Alice")
	alice.Inventory = item.NewInventory(0)
	s, _ := pveSession(alice)

	_, ok := s.CastAbility(alice, "forage", "", &scriptedSource{values: []int{13}}, items, abilities)

	require.True(t, ok)
	assert.Equal(t, 1, s.Ground.Len())
}

func TestCastAbility_ReactionsCannotBeCast(t *testing.T) {
	items := testItems()
	abilities := testAbilities()
	alice := newMember("p1", "Alice")
	alice.Unlocks["reaction.dodge"] = true
	s, _ := pveSession(alice)

	_, ok := s.CastAbility(alice, "dodge", "card-1", &scriptedSource{values: []int{13}}, items, abilities)
	assert.False(t, ok)
}

func TestUseConsumable(t *testing.T) {
	items := testItems()
	alice := newMember("p1", "Alice")
	alice.Health = 10
	s, _ := pveSession(alice)
	potion := item.NewInstance("potion", 1)
	require.NoError(t, alice.Inventory.Add(potion))

	events, ok := s.UseConsumable(alice, potion.InstanceID, items)

	require.True(t, ok)
	require.Len(t, events, 1)
	assert.Equal(t, 15, alice.Health)
	assert.Equal(t, 0, alice.Inventory.Len())
	assert.Equal(t, 2, alice.ActionPoints)
}

func TestUseConsumable_RejectsNonConsumable(t *testing.T) {
	items := testItems()
	alice := newMember("p1", "Alice")
	s, _ := pveSession(alice)
	sword := item.NewInstance("sword", 1)
	require.NoError(t, alice.Inventory.Add(sword))

	_, ok := s.UseConsumable(alice, sword.InstanceID, items)
	assert.False(t, ok)
	assert.Equal(t, 1, alice.Inventory.Len())
	assert.Equal(t, 3, alice.ActionPoints)
}

func TestEquipItem_SwapReturnsPrevious(t *testing.T) {
	items := testItems()
	alice := newMember("p1", "Alice")
	s, _ := pveSession(alice)

	first := item.NewInstance("sword", 1)
	second := item.NewInstance("sword", 1)
	require.NoError(t, alice.Inventory.Add(first))
	require.NoError(t, alice.Inventory.Add(second))

	_, ok := s.EquipItem(alice, first.InstanceID, items)
	require.True(t, ok)
	_, ok = s.EquipItem(alice, second.InstanceID, items)
	require.True(t, ok)

	equipped, has := alice.Equipment.Equipped(item.SlotWeapon)
	require.True(t, has)
	assert.Equal(t, second.InstanceID, equipped.InstanceID)
	assert.Equal(t, 1, alice.Inventory.Len(), "displaced weapon returns to the pack")
}

func TestDropItem(t *testing.T) {
	items := testItems()
	alice := newMember("p1", "Alice")
	s, _ := pveSession(alice)
	inst := testItemInstance()
	require.NoError(t, alice.Inventory.Add(inst))

	events, ok := s.DropItem(alice, inst.InstanceID, items)
	require.True(t, ok)
	require.Len(t, events, 1)
	assert.Equal(t, 1, s.Ground.Len())
	assert.Equal(t, 0, alice.Inventory.Len())
}

func TestDropItem_RefusedWhileReactionPending(t *testing.T) {
	items := testItems()
	alice := newMember("p1", "Alice")
	s, _ := pveSession(alice)
	inst := testItemInstance()
	require.NoError(t, alice.Inventory.Add(inst))

	s.PendingReaction = &PendingReaction{
		AttackerName: "Bog Rat", AttackerCardID: "card-1",
		TargetID: "p1", Damage: 5,
	}

	_, ok := s.DropItem(alice, inst.InstanceID, items)
	assert.False(t, ok)
	assert.Equal(t, 1, alice.Inventory.Len())
	assert.Equal(t, 0, s.Ground.Len())
}

func TestInteractWithCard_Dialogue(t *testing.T) {
	alice := newMember("p1", "Alice")
	s := NewSession("mire", ModePvE, 1, 3)
	s.AddMember(alice)
	tmpl := testTemplate()
	tmpl.Dialogue = "Turn back while you can."
	s.Cards[0] = card.NewInstance("card-1", tmpl)

	events, ok := s.InteractWithCard(alice, "card-1", "p1")

	require.True(t, ok)
	require.Len(t, events, 2)
	assert.Equal(t, EventDialogue, events[0].Type)
	assert.Empty(t, events[0].TargetID, "the node is broadcast to the whole party")
	assert.Contains(t, events[0].Narrative, "Turn back while you can.")
	assert.Equal(t, "p1", events[1].TargetID, "the answer prompt goes to the leader only")
	require.NotNil(t, s.PendingDialogue)
	assert.Equal(t, "card-1", s.PendingDialogue.CardID)

	_, ok = s.InteractWithCard(alice, "card-1", "p1")
	assert.False(t, ok, "one open node at a time")
}

func TestAnswerDialogue_LeaderOnly(t *testing.T) {
	alice := newMember("p1", "Alice")
	bob := newMember("p2", "Bob")
	s := NewSession("mire", ModePvE, 1, 3)
	s.AddMember(alice)
	s.AddMember(bob)
	tmpl := testTemplate()
	tmpl.Dialogue = "Turn back while you can."
	s.Cards[0] = card.NewInstance("card-1", tmpl)

	_, ok := s.AnswerDialogue(alice, "p1")
	assert.False(t, ok, "no node open")

	_, ok = s.InteractWithCard(bob, "card-1", "p1")
	require.True(t, ok)

	_, ok = s.AnswerDialogue(bob, "p1")
	assert.False(t, ok, "only the leader may answer")
	require.NotNil(t, s.PendingDialogue)

	events, ok := s.AnswerDialogue(alice, "p1")
	require.True(t, ok)
	require.Len(t, events, 1)
	assert.Empty(t, events[0].TargetID, "the closing line is broadcast")
	assert.Nil(t, s.PendingDialogue)
}

func TestInteractWithCard_SilentWithoutDialogue(t *testing.T) {
	alice := newMember("p1", "Alice")
	s, _ := pveSession(alice)

	_, ok := s.InteractWithCard(alice, "card-1", "p1")
	assert.False(t, ok)
}

func TestResolveFlee_Success(t *testing.T) {
	items := testItems()
	abilities := testAbilities()
	alice := newMember("p1", "Alice")
	s, _ := pveSession(alice)

	// Alice rolls 18 (+2 agility); the rat rolls 4 (+2 might).
	events, escaped := s.ResolveFlee(alice, &scriptedSource{values: []int{17, 3}}, items, abilities)

	assert.True(t, escaped)
	require.Len(t, events, 1)
	assert.Contains(t, events[0].Narrative, "escapes")
	assert.Equal(t, 20, alice.Health)
}

func TestResolveFlee_FailureDrawsFreeAttackWithoutReaction(t *testing.T) {
	items := testItems()
	abilities := testAbilities()
	alice := newMember("p1", "Alice")
	alice.Unlocks["reaction.dodge"] = true
	s, _ := pveSession(alice)

	// Alice rolls 1 (+2); the rat rolls 18 (+2); punishment die rolls 3.
	events, escaped := s.ResolveFlee(alice, &scriptedSource{values: []int{0, 17, 2}}, items, abilities)

	assert.False(t, escaped)
	require.NotEmpty(t, events)
	// 3 + might 2, minus resistance 1; no reaction offer despite the
	// unlocked dodge.
	assert.Equal(t, 16, alice.Health)
	assert.Nil(t, s.PendingReaction)
	for _, e := range events {
		assert.NotEqual(t, EventReactionOffer, e.Type)
	}
}

func TestEndTurn(t *testing.T) {
	alice := newMember("p1", "Alice")
	s, _ := pveSession(alice)

	require.True(t, s.EndTurn(alice))
	assert.True(t, alice.EndedTurn)
	assert.False(t, s.EndTurn(alice), "a finished turn cannot act again")
}
