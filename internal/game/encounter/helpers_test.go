package encounter

import (
	"github.com/mverrilli/deckbound/internal/game/ability"
	"github.com/mverrilli/deckbound/internal/game/card"
	"github.com/mverrilli/deckbound/internal/game/combat"
	"github.com/mverrilli/deckbound/internal/game/effect"
	"github.com/mverrilli/deckbound/internal/game/item"
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
		ID: "plate", Name: "Plate Harness", Kind: item.KindArmor,
		GearTags: []string{"heavy"},
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
		UnlockKey: "reaction.dodge", IncompatibleGear: []string{"heavy"},
	})
	reg.Register(&ability.Def{
		ID: "shield-wall", Name: "Shield Wall", Kind: ability.KindReaction,
		ReactionMode: ability.ReactionBlock, Hit: 12, Stat: "might",
		Mitigation: 2, Cooldown: 1, UnlockKey: "reaction.block",
	})
	reg.Register(&ability.Def{
		ID: "firebolt", Name: "Firebolt", Kind: ability.KindSpell,
		Hit: 10, Stat: "might", Damage: "1d6", DamageType: combat.DamageArcane,
		APCost: 1, Cooldown: 1,
		Debuff: &effect.Spec{Name: "burning", Kind: "periodic_damage", Duration: 2, Magnitude: 2},
	})
	reg.Register(&ability.Def{
		ID: "forage", Name: "Forage", Kind: ability.KindGather,
		Hit: 10, Stat: "agility", APCost: 1, Yield: "coin-pouch",
	})
	return reg
}

func testTemplate() *card.Template {
	return &card.Template{
		ID: "bog-rat", Name: "Bog Rat", MaxHealth: 6, Might: 2,
		Damage: "1d4", DamageType: combat.DamagePhysical,
		Attacks: combat.RangeTable{
			{Min: 1, Max: 8, Outcome: card.OutcomeMiss},
			{Min: 9, Max: 18, Outcome: card.OutcomeAttack},
			{Min: 19, Max: 20, Outcome: card.OutcomeSpecial, Arg: "frenzy"},
		},
		Loot: combat.RangeTable{
			{Min: 1, Max: 20, Outcome: card.OutcomeItem, Arg: "coin-pouch"},
		},
	}
}

func newMember(id, name string) *combat.Combatant {
	m := combat.NewCombatant(id, name, 0, 20, 8)
	m.Might = 3
	m.Agility = 2
	m.Resistance = 1
	m.RefillActionPoints(3)
	return m
}

// pveSession builds a one-slot PvE session with one live card and the
// given members.
func pveSession(members ...*combat.Combatant) (*Session, *card.Instance) {
	s := NewSession("mire", ModePvE, 1, 3)
	for _, m := range members {
		s.AddMember(m)
	}
	inst := card.NewInstance("card-1", testTemplate())
	s.Cards[0] = inst
	return s, inst
}

func testItemInstance() item.Instance {
	return item.NewInstance("coin-pouch", 1)
}

// noopSpecials satisfies SpecialRunner without doing anything.
type noopSpecials struct{}

func (noopSpecials) RunSpecial(string, *Session, *card.Instance, *combat.Combatant) ([]Event, error) {
	return nil, nil
}
