package dice_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/mverrilli/deckbound/internal/game/dice"
)

// scriptedSource replays a fixed sequence of values, cycling when exhausted.
type scriptedSource struct {
	values []int
	next   int
}

func (s *scriptedSource) Intn(n int) int {
	v := s.values[s.next%len(s.values)]
	s.next++
	return v % n
}

func TestRollResult_Total(t *testing.T) {
	r := dice.RollResult{
		Expression: "2d6+3",
		Dice:       []int{4, 5},
		Modifier:   3,
	}
	assert.Equal(t, 12, r.Total(), "Total() must equal sum(Dice)+Modifier")
}

func TestRollResult_String(t *testing.T) {
	r := dice.RollResult{
		Expression: "2d6+3",
		Dice:       []int{4, 5},
		Modifier:   3,
	}
	s := r.String()
	require.Contains(t, s, "2d6+3", "String() must contain the expression")
	require.Contains(t, s, "[4 5]", "String() must contain the dice results")
	assert.Equal(t, "2d6+3 → [4 5] +3 = 12", s, "String() must match exact format")
}

func TestParse(t *testing.T) {
	cases := []struct {
		expr     string
		count    int
		sides    int
		modifier int
	}{
		{"d20", 1, 20, 0},
		{"2d6", 2, 6, 0},
		{"2d6+3", 2, 6, 3},
		{"4d8-2", 4, 8, -2},
	}
	for _, tc := range cases {
		e, err := dice.Parse(tc.expr)
		require.NoError(t, err, "Parse(%q)", tc.expr)
		assert.Equal(t, tc.count, e.Count)
		assert.Equal(t, tc.sides, e.Sides)
		assert.Equal(t, tc.modifier, e.Modifier)
	}
}

func TestParse_Invalid(t *testing.T) {
	for _, expr := range []string{"", "20", "0d6", "-1d6", "2d1", "2dx", "d"} {
		_, err := dice.Parse(expr)
		assert.Error(t, err, "Parse(%q) must fail", expr)
	}
}

func TestRoll_UsesSource(t *testing.T) {
	src := &scriptedSource{values: []int{3, 5}}
	r := dice.Roll(dice.MustParse("2d6+1"), src)
	require.Equal(t, []int{4, 6}, r.Dice)
	assert.Equal(t, 11, r.Total())
}

func TestD20_Range(t *testing.T) {
	src := &scriptedSource{values: []int{0, 19}}
	assert.Equal(t, 1, dice.D20(src))
	assert.Equal(t, 20, dice.D20(src))
}

// TestRollResult_Total_Property verifies the postcondition
// Total() == sum(Dice) + Modifier for arbitrary inputs.
func TestRollResult_Total_Property(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		dice_ := rapid.SliceOf(rapid.IntRange(1, 20)).Draw(rt, "dice")
		modifier := rapid.Int().Draw(rt, "modifier")

		r := dice.RollResult{
			Expression: "Nd6+M",
			Dice:       dice_,
			Modifier:   modifier,
		}

		expected := modifier
		for _, d := range dice_ {
			expected += d
		}
		assert.Equal(rt, expected, r.Total())
	})
}

// TestRoll_Bounds_Property verifies every die lands in [1, Sides].
func TestRoll_Bounds_Property(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		count := rapid.IntRange(1, 10).Draw(rt, "count")
		sides := rapid.IntRange(2, 100).Draw(rt, "sides")
		seed := rapid.SliceOfN(rapid.IntRange(0, 1<<30), 1, 20).Draw(rt, "seed")

		src := &scriptedSource{values: seed}
		r := dice.Roll(dice.Expression{Raw: "x", Count: count, Sides: sides}, src)
		require.Len(rt, r.Dice, count)
		for _, d := range r.Dice {
			assert.GreaterOrEqual(rt, d, 1)
			assert.LessOrEqual(rt, d, sides)
		}
	})
}
