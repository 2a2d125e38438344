// internal/caps/legal.go
package caps

// maxMoveSlots bounds a completion: four cards of one rank.
const maxMoveSlots = 4

// IsLegalMove reports whether m may be played against the current state and how many
// cards it would consume. It never mutates the game.
func (g *Game) IsLegalMove(m Move) (bool, int) {
	if m.Mover < 0 || m.Mover >= NumPlayers {
		return false, 0
	}
	if m.Kind == Pass {
		return true, 0
	}

	cards, ok := g.resolveSlots(m.Mover, m.Slots)
	if !ok {
		return false, 0
	}

	// Completions may be sniped by anyone at any time.
	if m.Kind != Completion && m.Mover != g.current {
		return false, 0
	}

	// A 2 is playable over anything.
	lead := cards[0].Rank
	if g.active != ActiveNone && lead != RankTwo && lead < g.pile.TopRank() {
		return false, 0
	}

	switch m.Kind {
	case Single:
		// A 2 skips the rank check but not the shape check.
		if len(cards) != 1 || g.active == ActiveDouble {
			return false, 0
		}
		return true, 1

	case Double:
		if len(cards) != 2 || g.active == ActiveSingle {
			return false, 0
		}
		if cards[0].Rank != cards[1].Rank || lead == RankTwo {
			return false, 0
		}
		return true, 2

	case Completion:
		for _, c := range cards {
			if c.Rank != lead {
				return false, 0
			}
		}
		n := len(cards)
		if n == maxMoveSlots {
			return true, n
		}
		if !g.pile.TailMatches(maxMoveSlots-n, lead) {
			return false, 0
		}
		return true, n
	}

	return false, 0
}

// resolveSlots maps slot indices to the mover's cards. Out-of-range, repeated or empty
// slots, or a slot count outside 1..4, make the move unresolvable.
func (g *Game) resolveSlots(mover int, slots []int) ([]Card, bool) {
	if len(slots) == 0 || len(slots) > maxMoveSlots {
		return nil, false
	}
	hand := &g.hands[mover]
	var used [HandSize]bool
	cards := make([]Card, 0, len(slots))
	for _, s := range slots {
		if s < 0 || s >= HandSize || used[s] {
			return nil, false
		}
		used[s] = true
		if hand[s].IsEmpty() {
			return nil, false
		}
		cards = append(cards, hand[s])
	}
	return cards, true
}

// LegalMoves enumerates every move player may legally submit right now.
// PASS is always present, last.
func (g *Game) LegalMoves(player int) []Move {
	if player < 0 || player >= NumPlayers {
		return nil
	}
	var moves []Move
	try := func(kind MoveKind, slots ...int) {
		m := Move{Mover: player, Kind: kind, Slots: slots}
		if ok, _ := g.IsLegalMove(m); ok {
			moves = append(moves, m)
		}
	}

	hand := &g.hands[player]
	var byRank [RankAce + 1][]int
	for i, c := range hand {
		if !c.IsEmpty() {
			byRank[c.Rank] = append(byRank[c.Rank], i)
		}
	}

	if player == g.current {
		for i, c := range hand {
			if !c.IsEmpty() {
				try(Single, i)
			}
		}
		for _, slots := range byRank {
			for a := 0; a < len(slots); a++ {
				for b := a + 1; b < len(slots); b++ {
					try(Double, slots[a], slots[b])
				}
			}
		}
	}

	for _, slots := range byRank {
		for _, subset := range subsets(slots) {
			try(Completion, subset...)
		}
	}

	return append(moves, Move{Mover: player, Kind: Pass})
}

// subsets returns every non-empty subset of slots, smallest first within bit order.
func subsets(slots []int) [][]int {
	var out [][]int
	for mask := 1; mask < 1<<len(slots); mask++ {
		var s []int
		for i, slot := range slots {
			if mask&(1<<i) != 0 {
				s = append(s, slot)
			}
		}
		out = append(out, s)
	}
	return out
}
