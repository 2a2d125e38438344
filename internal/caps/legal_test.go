package caps

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixture builds a mid-game state directly. Unlisted hands are empty.
func fixture(current int, active ActiveType, pile []string, hands ...Hand) *Game {
	g := &Game{current: current, active: active}
	copy(g.hands[:], hands)
	for _, s := range pile {
		g.pile = append(g.pile, MustParseCard(s))
	}
	return g
}

func TestScenarioOpeningLead(t *testing.T) {
	g := fixture(0, ActiveNone, nil, hand("3C", "5D"))
	ok, n := g.IsLegalMove(Move{Mover: 0, Kind: Single, Slots: []int{0}})
	assert.True(t, ok)
	assert.Equal(t, 1, n)
}

func TestScenarioOutOfTurnSingle(t *testing.T) {
	g := fixture(0, ActiveSingle, []string{"9S"}, hand("KD"), hand("5H", "AC"))
	ok, n := g.IsLegalMove(Move{Mover: 1, Kind: Single, Slots: []int{0}})
	assert.False(t, ok)
	assert.Equal(t, 0, n)

	// Still illegal with a card that would beat the pile.
	ok, _ = g.IsLegalMove(Move{Mover: 1, Kind: Single, Slots: []int{1}})
	assert.False(t, ok)
}

func TestPreconditions(t *testing.T) {
	g := fixture(0, ActiveNone, nil, hand("4S", "xx", "4H", "9D"))

	tests := []struct {
		name string
		move Move
	}{
		{name: "empty slot", move: Move{Mover: 0, Kind: Single, Slots: []int{1}}},
		{name: "negative slot", move: Move{Mover: 0, Kind: Single, Slots: []int{-1}}},
		{name: "slot past hand", move: Move{Mover: 0, Kind: Single, Slots: []int{HandSize}}},
		{name: "repeated slot", move: Move{Mover: 0, Kind: Double, Slots: []int{0, 0}}},
		{name: "no slots", move: Move{Mover: 0, Kind: Single}},
		{name: "too many slots", move: Move{Mover: 0, Kind: Completion, Slots: []int{0, 2, 3, 4, 5}}},
		{name: "mover out of range", move: Move{Mover: NumPlayers, Kind: Single, Slots: []int{0}}},
		{name: "negative mover pass", move: Move{Mover: -1, Kind: Pass}},
		{name: "unknown kind", move: Move{Mover: 0, Kind: MoveKind(42), Slots: []int{0}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, n := g.IsLegalMove(tt.move)
			assert.False(t, ok)
			assert.Equal(t, 0, n)
		})
	}
}

func TestRankToBeat(t *testing.T) {
	g := fixture(0, ActiveSingle, []string{"9S"}, hand("5H", "9D", "JC", "2S"))

	lower, _ := g.IsLegalMove(Move{Mover: 0, Kind: Single, Slots: []int{0}})
	equal, _ := g.IsLegalMove(Move{Mover: 0, Kind: Single, Slots: []int{1}})
	higher, _ := g.IsLegalMove(Move{Mover: 0, Kind: Single, Slots: []int{2}})
	two, _ := g.IsLegalMove(Move{Mover: 0, Kind: Single, Slots: []int{3}})

	assert.False(t, lower, "5 cannot beat 9")
	assert.True(t, equal, "equal rank is enough")
	assert.True(t, higher)
	assert.True(t, two, "a 2 plays over anything")
}

func TestDoubleRules(t *testing.T) {
	h := hand("7S", "7H", "8D", "2C", "2D", "KS", "KH")

	ok, n := fixture(0, ActiveNone, nil, h).IsLegalMove(Move{Mover: 0, Kind: Double, Slots: []int{0, 1}})
	assert.True(t, ok)
	assert.Equal(t, 2, n)

	ok, _ = fixture(0, ActiveNone, nil, h).IsLegalMove(Move{Mover: 0, Kind: Double, Slots: []int{0, 2}})
	assert.False(t, ok, "ranks must match")

	ok, _ = fixture(0, ActiveNone, nil, h).IsLegalMove(Move{Mover: 0, Kind: Double, Slots: []int{0}})
	assert.False(t, ok, "double needs two slots")

	ok, _ = fixture(0, ActiveNone, nil, h).IsLegalMove(Move{Mover: 0, Kind: Double, Slots: []int{3, 4}})
	assert.False(t, ok, "2s cannot be doubled")

	ok, _ = fixture(0, ActiveSingle, []string{"5C"}, h).IsLegalMove(Move{Mover: 0, Kind: Double, Slots: []int{0, 1}})
	assert.False(t, ok, "cannot switch to doubles while singles are active")

	ok, _ = fixture(0, ActiveDouble, []string{"9C", "9D"}, h).IsLegalMove(Move{Mover: 0, Kind: Double, Slots: []int{0, 1}})
	assert.False(t, ok, "7s cannot beat 9s")

	ok, _ = fixture(0, ActiveDouble, []string{"9C", "9D"}, h).IsLegalMove(Move{Mover: 0, Kind: Double, Slots: []int{5, 6}})
	assert.True(t, ok)
}

func TestSingleAgainstDouble(t *testing.T) {
	g := fixture(0, ActiveDouble, []string{"5C", "5D"}, hand("KS", "2H"))

	ok, _ := g.IsLegalMove(Move{Mover: 0, Kind: Single, Slots: []int{0}})
	assert.False(t, ok, "singles cannot answer a double")

	ok, n := g.IsLegalMove(Move{Mover: 0, Kind: Single, Slots: []int{1}})
	assert.False(t, ok, "a single 2 cannot answer a double either")
	assert.Zero(t, n)

	for _, m := range g.LegalMoves(0) {
		assert.NotEqual(t, Single, m.Kind)
	}
}

func TestScenarioFourTwos(t *testing.T) {
	g := fixture(0, ActiveSingle, []string{"KC", "AS"},
		hand("QD"),
		hand("5S"),
		hand("2S", "2H", "2D", "2C", "9C"),
	)
	m := Move{Mover: 2, Kind: Completion, Slots: []int{0, 1, 2, 3}}

	ok, n := g.IsLegalMove(m)
	require.True(t, ok)
	assert.Equal(t, 4, n)

	ok, n = g.DoMove(m)
	require.True(t, ok)
	assert.Equal(t, 4, n)
	assert.Empty(t, g.Pile())
	assert.Equal(t, ActiveNone, g.ActiveType())
	assert.Equal(t, 0, g.CurrentHolder(), "a snipe does not take the turn")
	assert.Equal(t, 1, g.Hand(2).Count())
}

func TestCompletionFromHandAndPile(t *testing.T) {
	h := hand("8S", "8H", "8D", "4C", "4D")

	g := fixture(1, ActiveSingle, []string{"6H", "8C"}, h)
	ok, n := g.IsLegalMove(Move{Mover: 0, Kind: Completion, Slots: []int{0, 1, 2}})
	assert.True(t, ok, "three from hand plus the 8 on top")
	assert.Equal(t, 3, n)

	ok, _ = g.IsLegalMove(Move{Mover: 0, Kind: Completion, Slots: []int{0, 1}})
	assert.False(t, ok, "two from hand needs two 8s on the pile")

	ok, _ = g.IsLegalMove(Move{Mover: 0, Kind: Completion, Slots: []int{0, 3}})
	assert.False(t, ok, "mixed ranks")
}

func TestCompletionOnEmptyPile(t *testing.T) {
	g := fixture(0, ActiveNone, nil, hand("8S", "8H", "8D", "8C"))

	ok, _ := g.IsLegalMove(Move{Mover: 0, Kind: Completion, Slots: []int{0}})
	assert.False(t, ok, "nothing on the pile to complete with")

	ok, n := g.IsLegalMove(Move{Mover: 0, Kind: Completion, Slots: []int{0, 1, 2, 3}})
	assert.True(t, ok)
	assert.Equal(t, 4, n)
}

func TestCompletionBelowRankToBeat(t *testing.T) {
	g := fixture(0, ActiveSingle, []string{"JS"}, hand("QD"), hand("5S", "5H", "5D", "5C"))

	ok, _ := g.IsLegalMove(Move{Mover: 1, Kind: Completion, Slots: []int{0, 1, 2, 3}})
	assert.False(t, ok, "only four 2s ignore the rank to beat")
}

func TestPassAlwaysLegal(t *testing.T) {
	g := fixture(0, ActiveSingle, []string{"AS"}, hand("3D"), hand("4D"))
	for p := 0; p < NumPlayers; p++ {
		ok, n := g.IsLegalMove(Move{Mover: p, Kind: Pass})
		assert.True(t, ok, "player %d", p)
		assert.Equal(t, 0, n)
	}
}

func TestIsLegalMoveIsPure(t *testing.T) {
	g := fixture(0, ActiveSingle, []string{"6H", "8C"}, hand("8S", "8H", "8D", "9C"), hand("2C"))
	before := g.Clone()

	moves := []Move{
		{Mover: 0, Kind: Completion, Slots: []int{0, 1, 2}},
		{Mover: 0, Kind: Single, Slots: []int{3}},
		{Mover: 1, Kind: Single, Slots: []int{0}},
		{Mover: 0, Kind: Pass},
	}
	for _, m := range moves {
		ok1, n1 := g.IsLegalMove(m)
		ok2, n2 := g.IsLegalMove(m)
		assert.Equal(t, ok1, ok2, "%v", m)
		assert.Equal(t, n1, n2, "%v", m)
	}
	assert.Equal(t, before, g)
}

func TestLegalMovesForHolder(t *testing.T) {
	g := fixture(0, ActiveNone, nil, hand("7S", "7H", "9D"))
	moves := g.LegalMoves(0)

	var singles, doubles, completions, passes int
	for _, m := range moves {
		ok, _ := g.IsLegalMove(m)
		require.True(t, ok, "%v", m)
		switch m.Kind {
		case Single:
			singles++
		case Double:
			doubles++
		case Completion:
			completions++
		case Pass:
			passes++
		}
	}
	assert.Equal(t, 3, singles)
	assert.Equal(t, 1, doubles)
	assert.Equal(t, 0, completions, "empty pile allows no partial completion")
	assert.Equal(t, 1, passes)
	assert.Equal(t, Pass, moves[len(moves)-1].Kind)
}

func TestLegalMovesForSniper(t *testing.T) {
	g := fixture(0, ActiveDouble, []string{"9C", "9S"}, hand("KD"), hand("9H", "9D", "AC"))
	moves := g.LegalMoves(1)

	// Only both 9s together complete the four; a lone 9 would need three on the pile.
	require.Len(t, moves, 2)
	assert.Equal(t, Move{Mover: 1, Kind: Completion, Slots: []int{0, 1}}, moves[0])
	assert.Equal(t, Move{Mover: 1, Kind: Pass}, moves[1])

	assert.Nil(t, g.LegalMoves(NumPlayers))
}
