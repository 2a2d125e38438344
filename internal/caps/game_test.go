package caps

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScenarioDouble(t *testing.T) {
	g := fixture(0, ActiveNone, nil, hand("7S", "KD", "7H"), hand("9S", "9H"))
	m := Move{Mover: 0, Kind: Double, Slots: []int{0, 2}}

	ok, n := g.IsLegalMove(m)
	require.True(t, ok)
	assert.Equal(t, 2, n)

	ok, n = g.DoMove(m)
	require.True(t, ok)
	assert.Equal(t, 2, n)
	assert.Equal(t, ActiveDouble, g.ActiveType())
	assert.Equal(t, Pile{MustParseCard("7S"), MustParseCard("7H")}, g.Pile())
	assert.Equal(t, 1, g.CurrentHolder())
	assert.Equal(t, hand("xx", "KD", "xx"), g.Hand(0))
}

func TestScenarioPassOutOfTurn(t *testing.T) {
	g := fixture(0, ActiveSingle, []string{"9S"}, hand("KD"), hand("5H"), hand("QC"), hand("AS"))
	before := g.Clone()

	ok, n := g.DoMove(Move{Mover: 3, Kind: Pass})
	assert.True(t, ok)
	assert.Equal(t, 0, n)
	assert.Equal(t, before, g)
}

func TestBurn(t *testing.T) {
	g := fixture(0, ActiveSingle, []string{"4C", "JD"}, hand("2S", "5D"), hand("AH"))

	ok, n := g.DoMove(Move{Mover: 0, Kind: Single, Slots: []int{0}})
	require.True(t, ok)
	assert.Equal(t, 1, n)
	assert.Empty(t, g.Pile())
	assert.Equal(t, ActiveNone, g.ActiveType())
	assert.Equal(t, 0, g.CurrentHolder(), "burning keeps the lead")

	last := g.History()[len(g.History())-1]
	assert.Equal(t, PlayedMove{Mover: 0, Kind: Single, Cards: []Card{MustParseCard("2S")}}, last)
}

func TestNoBurnOverDouble(t *testing.T) {
	g := fixture(0, ActiveDouble, []string{"KC", "KD"}, hand("2S", "5D"), hand("AH", "AD"))
	before := g.Clone()

	ok, n := g.DoMove(Move{Mover: 0, Kind: Single, Slots: []int{0}})
	assert.False(t, ok)
	assert.Zero(t, n)
	assert.Equal(t, before, g)
	assert.Equal(t, ActiveDouble, g.ActiveType())
}

func TestCompletionSnipeKeepsHolder(t *testing.T) {
	g := fixture(1, ActiveSingle, []string{"4S", "6C"},
		hand("9D"),
		hand("KH", "QS"),
		hand("xx", "6S", "6H", "6D"),
	)

	ok, n := g.DoMove(Move{Mover: 2, Kind: Completion, Slots: []int{1, 2, 3}})
	require.True(t, ok)
	assert.Equal(t, 3, n)
	assert.Empty(t, g.Pile())
	assert.Equal(t, ActiveNone, g.ActiveType())
	assert.Equal(t, 1, g.CurrentHolder())
	assert.True(t, g.Finished(2))

	hist := g.History()
	require.Len(t, hist, 1)
	assert.Equal(t, Completion, hist[0].Kind)
	assert.Equal(t, []Card{MustParseCard("6S"), MustParseCard("6H"), MustParseCard("6D")}, hist[0].Cards)
}

func TestCompletionByHolder(t *testing.T) {
	g := fixture(0, ActiveSingle, []string{"JS"}, hand("JD", "JH", "JC", "4S"), hand("KS"))

	ok, n := g.DoMove(Move{Mover: 0, Kind: Completion, Slots: []int{0, 1, 2}})
	require.True(t, ok)
	assert.Equal(t, 3, n)
	assert.Equal(t, ActiveNone, g.ActiveType())
	assert.Equal(t, 0, g.CurrentHolder())
}

func TestWinKeepsTurn(t *testing.T) {
	g := fixture(0, ActiveSingle, []string{"5H"}, hand("xx", "xx", "9S"), hand("KH"), hand("4C"))

	ok, _ := g.DoMove(Move{Mover: 0, Kind: Single, Slots: []int{2}})
	require.True(t, ok)
	assert.True(t, g.Finished(0))
	assert.Equal(t, 0, g.CurrentHolder(), "the winner keeps the turn context")
	assert.Equal(t, ActiveSingle, g.ActiveType())

	// The finished holder can only pass, which hands play to the next player able to respond.
	ok, _ = g.DoMove(Move{Mover: 0, Kind: Pass})
	require.True(t, ok)
	assert.Equal(t, 1, g.CurrentHolder())
	assert.Equal(t, ActiveSingle, g.ActiveType())
}

func TestFinishedHolderPassOnEmptyPile(t *testing.T) {
	g := fixture(0, ActiveNone, nil, Hand{}, Hand{}, hand("4C"), hand("KH"))

	ok, _ := g.DoMove(Move{Mover: 0, Kind: Pass})
	require.True(t, ok)
	assert.Equal(t, 2, g.CurrentHolder(), "players who went out are skipped")
}

func TestHolderPassOnEmptyPileKeepsLead(t *testing.T) {
	g := fixture(0, ActiveNone, nil, hand("3C"), hand("KH"))

	ok, _ := g.DoMove(Move{Mover: 0, Kind: Pass})
	require.True(t, ok)
	assert.Equal(t, 0, g.CurrentHolder())
	assert.Equal(t, []PlayedMove{{Mover: 0, Kind: Pass}}, g.History())
}

func TestHolderPassAdvances(t *testing.T) {
	g := fixture(1, ActiveSingle, []string{"QS"}, hand("KH"), hand("4D"), hand("5C"))

	ok, _ := g.DoMove(Move{Mover: 1, Kind: Pass})
	require.True(t, ok)
	assert.Equal(t, 2, g.CurrentHolder())
	assert.Equal(t, Pile{MustParseCard("QS")}, g.Pile())
}

func TestHolderPassClearsDeadPile(t *testing.T) {
	g := fixture(1, ActiveSingle, []string{"AS"}, hand("KH"), hand("4D"), hand("5C"))

	ok, _ := g.DoMove(Move{Mover: 1, Kind: Pass})
	require.True(t, ok)
	assert.Equal(t, 1, g.CurrentHolder())
	assert.Equal(t, ActiveNone, g.ActiveType())
	assert.Empty(t, g.Pile())
}

func TestRejectedMovesLeaveStateUntouched(t *testing.T) {
	g := fixture(0, ActiveSingle, []string{"6H", "9C"},
		hand("5S", "xx", "KD", "KH", "2D"),
		hand("9D", "9H", "3S"),
	)
	before := g.Clone()

	illegal := []Move{
		{Mover: 0, Kind: Single, Slots: []int{0}},
		{Mover: 0, Kind: Single, Slots: []int{1}},
		{Mover: 0, Kind: Double, Slots: []int{2, 3}},
		{Mover: 0, Kind: Single, Slots: []int{2, 3}},
		{Mover: 1, Kind: Single, Slots: []int{0}},
		{Mover: 1, Kind: Completion, Slots: []int{0}},
		{Mover: 1, Kind: Completion, Slots: []int{0, 2}},
		{Mover: 7, Kind: Pass},
	}
	for _, m := range illegal {
		ok, n := g.DoMove(m)
		assert.False(t, ok, "%v", m)
		assert.Equal(t, 0, n, "%v", m)
		assert.Equal(t, before, g, "%v mutated state", m)
	}
}

func TestAccessorsReturnCopies(t *testing.T) {
	g := fixture(0, ActiveSingle, []string{"6H"}, hand("KD"), hand("AS"))
	g.history = []PlayedMove{{Mover: 1, Kind: Single, Cards: []Card{MustParseCard("6H")}}}

	pile := g.Pile()
	pile[0] = MustParseCard("2C")
	hist := g.History()
	hist[0].Cards[0] = MustParseCard("2C")
	hands := g.Hands()
	hands[0][0] = EmptySlot

	assert.Equal(t, RankTwo+4, g.TopRank())
	assert.Equal(t, MustParseCard("6H"), g.History()[0].Cards[0])
	assert.Equal(t, MustParseCard("KD"), g.Hand(0)[0])
}

// assertInvariants checks the deck and shape invariants that hold in every reachable state.
func assertInvariants(t *testing.T, g *Game) {
	t.Helper()

	seen := make(map[Card]int)
	for p := range g.hands {
		for _, c := range g.hands[p] {
			if !c.IsEmpty() {
				seen[c]++
			}
		}
	}
	played := make(map[Card]bool)
	for _, m := range g.history {
		for _, c := range m.Cards {
			seen[c]++
			played[c] = true
		}
	}
	require.Len(t, seen, DeckSize)
	for c, n := range seen {
		require.Equal(t, 1, n, "card %v appears %d times", c, n)
	}
	for _, c := range g.pile {
		require.True(t, played[c], "pile card %v missing from history", c)
	}

	require.GreaterOrEqual(t, g.current, 0)
	require.Less(t, g.current, NumPlayers)
	require.Equal(t, g.active == ActiveNone, len(g.pile) == 0, "active %v with pile %v", g.active, g.pile)
}

func TestRandomPlayoutsKeepInvariants(t *testing.T) {
	for seed := int64(1); seed <= 25; seed++ {
		g := NewGame(seed)
		rng := rand.New(rand.NewSource(seed * 31))
		assertInvariants(t, g)

		for step := 0; step < 600; step++ {
			// Junk submissions must never change anything.
			junk := Move{
				Mover: rng.Intn(NumPlayers),
				Kind:  MoveKind(rng.Intn(3) + 1),
				Slots: []int{rng.Intn(HandSize + 2), rng.Intn(HandSize)},
			}
			if ok, _ := g.IsLegalMove(junk); !ok {
				before := g.Clone()
				accepted, _ := g.DoMove(junk)
				require.False(t, accepted)
				require.Equal(t, before, g)
			}

			p := rng.Intn(NumPlayers)
			if rng.Intn(3) > 0 {
				p = g.CurrentHolder()
			}
			moves := g.LegalMoves(p)
			m := moves[rng.Intn(len(moves))]

			wantOK, wantN := g.IsLegalMove(m)
			require.True(t, wantOK, "enumerated move %v must be legal", m)

			ok, n := g.DoMove(m)
			require.True(t, ok, "seed %d step %d: %v", seed, step, m)
			require.Equal(t, wantN, n)
			if m.Kind == Completion || (m.Kind == Single && g.history[len(g.history)-1].Cards[0].Rank == RankTwo) {
				require.Empty(t, g.pile)
				require.Equal(t, ActiveNone, g.active)
			}
			assertInvariants(t, g)
		}
	}
}

func TestSameSeedSameMovesSameState(t *testing.T) {
	play := func() *Game {
		g := NewGame(77)
		rng := rand.New(rand.NewSource(5))
		for i := 0; i < 300; i++ {
			moves := g.LegalMoves(g.CurrentHolder())
			g.DoMove(moves[rng.Intn(len(moves))])
		}
		return g
	}
	assert.Equal(t, play(), play())
}
