// Package caps implements the rules of Caps, a five-player shedding game.
//
// A Game is the sole authority on move legality, state mutation and turn
// progression. It is deterministic given a seed and a sequence of moves, and a
// rejected move leaves it untouched. A Game is owned by one driver at a time; it
// does no locking of its own.
//
// The engine has no terminal state: a player has won once their hand holds no
// real card, which drivers check after each move.
package caps

import (
	"math/rand"
	"time"
)

// Game holds the complete state of one Caps deal.
type Game struct {
	hands   [NumPlayers]Hand
	pile    Pile
	history []PlayedMove
	active  ActiveType
	current int
}

// NewGame deals a game from the given seed.
func NewGame(seed int64) *Game {
	return NewGameFromRand(rand.New(rand.NewSource(seed)))
}

// NewRandomGame deals a game seeded from the clock.
func NewRandomGame() *Game {
	return NewGame(time.Now().UnixNano())
}

// NewGameFromRand deals a game using rng for both the deck and the seat shuffle.
func NewGameFromRand(rng *rand.Rand) *Game {
	g := &Game{hands: deal(rng)}
	g.current = openingHolder(&g.hands)
	return g
}

// NewGameWithHands starts a game from explicit hands, e.g. to replay a recorded deal.
// Together the hands must hold each of the 52 cards exactly once.
func NewGameWithHands(cards [NumPlayers][]Card) (*Game, error) {
	hands, err := buildHands(cards)
	if err != nil {
		return nil, err
	}
	g := &Game{hands: hands}
	g.current = openingHolder(&g.hands)
	return g, nil
}

// DoMove applies m if it is legal and reports how many cards it played.
// Illegal moves are rejected without touching any state.
func (g *Game) DoMove(m Move) (bool, int) {
	legal, n := g.IsLegalMove(m)
	if !legal {
		return false, 0
	}

	if m.Kind == Pass {
		// Only the holder's pass means anything.
		if m.Mover != g.current {
			return true, 0
		}
		g.history = append(g.history, PlayedMove{Mover: m.Mover, Kind: Pass})
		if g.active != ActiveNone {
			g.schedule()
		}
		if g.hands[g.current].IsEmpty() {
			g.current = g.nextHolder(g.current)
		}
		return true, 0
	}

	hand := &g.hands[m.Mover]
	played := make([]Card, 0, n)
	for _, s := range m.Slots[:n] {
		played = append(played, hand[s])
		hand[s] = EmptySlot
	}
	g.history = append(g.history, PlayedMove{Mover: m.Mover, Kind: m.Kind, Cards: played})

	switch m.Kind {
	case Double:
		g.pile = append(g.pile, played...)
		g.active = ActiveDouble
	case Single:
		if played[0].Rank == RankTwo {
			g.clearPile()
		} else {
			g.pile = append(g.pile, played...)
			g.active = ActiveSingle
		}
	case Completion:
		g.clearPile()
	}

	// A reset or a win keeps the turn where it is.
	if g.active == ActiveNone || hand.IsEmpty() {
		return true, n
	}
	g.schedule()
	return true, n
}

// Hands returns a copy of every hand.
func (g *Game) Hands() [NumPlayers]Hand { return g.hands }

// Hand returns a copy of player p's hand.
func (g *Game) Hand(p int) Hand { return g.hands[p] }

// Pile returns a copy of the contested stack, oldest first.
func (g *Game) Pile() Pile { return cloneCards(g.pile) }

// TopRank returns the rank to beat, or 0 when the pile is empty.
func (g *Game) TopRank() Rank { return g.pile.TopRank() }

// ActiveType returns the shape the next non-completion move must match.
func (g *Game) ActiveType() ActiveType { return g.active }

// CurrentHolder returns the player whose turn it is.
func (g *Game) CurrentHolder() int { return g.current }

// History returns a copy of the executed move log.
func (g *Game) History() []PlayedMove { return cloneHistory(g.history) }

// Finished reports whether player p has played every card.
func (g *Game) Finished(p int) bool { return g.hands[p].IsEmpty() }

// Clone returns an independent deep copy, suitable for look-ahead.
func (g *Game) Clone() *Game {
	return &Game{
		hands:   g.hands,
		pile:    cloneCards(g.pile),
		history: cloneHistory(g.history),
		active:  g.active,
		current: g.current,
	}
}

func cloneHistory(h []PlayedMove) []PlayedMove {
	if h == nil {
		return nil
	}
	out := make([]PlayedMove, len(h))
	for i, m := range h {
		out[i] = PlayedMove{Mover: m.Mover, Kind: m.Kind, Cards: cloneCards(m.Cards)}
	}
	return out
}
