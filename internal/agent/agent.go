// Package agent provides policies that decide which Caps move to submit.
// Policies only choose among the moves the engine enumerates as legal, so a
// choice always terminates and is always accepted.
package agent

import (
	"math/rand"

	"github.com/jason-s-yu/caps/internal/caps"
)

// Observation is what a policy may look at: its own hand plus the public pile state.
type Observation struct {
	Player        int                  `json:"player"`
	Hand          caps.Hand            `json:"hand"`
	Pile          caps.Pile            `json:"pile"`
	ActiveType    caps.ActiveType      `json:"active_type"`
	CurrentHolder int                  `json:"current_holder"`
	HandCounts    [caps.NumPlayers]int `json:"hand_counts"`
}

// Observe projects the game onto player's view.
func Observe(g *caps.Game, player int) Observation {
	obs := Observation{
		Player:        player,
		Hand:          g.Hand(player),
		Pile:          g.Pile(),
		ActiveType:    g.ActiveType(),
		CurrentHolder: g.CurrentHolder(),
	}
	hands := g.Hands()
	for p := range hands {
		obs.HandCounts[p] = hands[p].Count()
	}
	return obs
}

// Policy picks a move for its seat.
type Policy interface {
	Choose(g *caps.Game) caps.Move
}

// RandomAgent snipes a completion whenever it can, otherwise plays a random legal
// move on its own turn and passes out of turn.
type RandomAgent struct {
	Player int

	// PassChance is the probability of passing on its turn when a play is available.
	PassChance float64

	rng *rand.Rand
}

// NewRandomAgent returns a RandomAgent for player drawing from rng.
func NewRandomAgent(player int, rng *rand.Rand) *RandomAgent {
	return &RandomAgent{Player: player, rng: rng}
}

// Choose returns a move that is legal in g.
func (a *RandomAgent) Choose(g *caps.Game) caps.Move {
	moves := g.LegalMoves(a.Player)

	// Prefer the completion that sheds the most cards.
	var best *caps.Move
	for i := range moves {
		m := &moves[i]
		if m.Kind == caps.Completion && (best == nil || len(m.Slots) > len(best.Slots)) {
			best = m
		}
	}
	if best != nil {
		return *best
	}

	pass := moves[len(moves)-1]
	plays := moves[:len(moves)-1]
	if g.CurrentHolder() != a.Player || len(plays) == 0 {
		return pass
	}
	if a.PassChance > 0 && a.rng.Float64() < a.PassChance {
		return pass
	}
	return plays[a.rng.Intn(len(plays))]
}

// Act chooses a move and submits it.
func (a *RandomAgent) Act(g *caps.Game) (caps.Move, int) {
	m := a.Choose(g)
	_, n := g.DoMove(m)
	return m, n
}
