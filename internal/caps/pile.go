// internal/caps/pile.go
package caps

// Pile is the contested stack. Its last card sets the rank to beat.
type Pile []Card

// Top returns the last card played onto the pile.
func (p Pile) Top() (Card, bool) {
	if len(p) == 0 {
		return EmptySlot, false
	}
	return p[len(p)-1], true
}

// TopRank returns the rank to beat, or 0 on an empty pile.
func (p Pile) TopRank() Rank {
	top, _ := p.Top()
	return top.Rank
}

// TailMatches reports whether the last n cards all have rank r.
// A pile shorter than n never matches.
func (p Pile) TailMatches(n int, r Rank) bool {
	if n <= 0 || len(p) < n {
		return false
	}
	for _, c := range p[len(p)-n:] {
		if c.Rank != r {
			return false
		}
	}
	return true
}

func cloneCards(cards []Card) []Card {
	if cards == nil {
		return nil
	}
	out := make([]Card, len(cards))
	copy(out, cards)
	return out
}
