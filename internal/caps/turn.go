// internal/caps/turn.go
package caps

// schedule decides who holds the turn after a move that left a live pile.
// It only asks whether some hand holds a card that would itself be legal now.
// Rotation goes through nextHolder, which skips players who are already out.
func (g *Game) schedule() {
	if g.CanRespond() {
		g.current = g.nextHolder(g.current)
		return
	}
	// Nobody can go. The holder gets a fresh lead.
	g.clearPile()
}

// CanRespond reports whether any player could answer the live pile:
// a 2 anywhere or a card at least the rank to beat over a single, or a higher
// pair over a double. A lone 2 cannot answer a double, so it does not count there.
func (g *Game) CanRespond() bool {
	if g.active == ActiveNone {
		return false
	}
	if g.active == ActiveSingle {
		for p := range g.hands {
			if g.hands[p].HasRank(RankTwo) {
				return true
			}
		}
	}

	top := g.pile.TopRank()
	for p := range g.hands {
		if p == g.current {
			continue
		}
		switch g.active {
		case ActiveSingle:
			for _, c := range g.hands[p] {
				if !c.IsEmpty() && c.Rank >= top {
					return true
				}
			}
		case ActiveDouble:
			counts := g.hands[p].RankCounts()
			for r := top + 1; r <= RankAce; r++ {
				if counts[r] >= 2 {
					return true
				}
			}
		}
	}
	return false
}

// nextHolder rotates from p to the next player who still holds a card.
// Players who have gone out are skipped; if nobody else holds cards the turn stays with p.
func (g *Game) nextHolder(p int) int {
	for i := 1; i < NumPlayers; i++ {
		next := (p + i) % NumPlayers
		if !g.hands[next].IsEmpty() {
			return next
		}
	}
	return p
}

func (g *Game) clearPile() {
	g.pile = g.pile[:0]
	g.active = ActiveNone
}
