// internal/caps/hand.go
package caps

import (
	"errors"
	"fmt"
	"math/rand"
)

const (
	NumPlayers = 5
	HandSize   = 11
)

// Hand is a fixed set of slots addressed by index. Played cards leave EmptySlot behind.
type Hand [HandSize]Card

// Count returns the number of real cards still in the hand.
func (h Hand) Count() int {
	n := 0
	for _, c := range h {
		if !c.IsEmpty() {
			n++
		}
	}
	return n
}

// IsEmpty reports whether every slot has been played. A player with an empty hand has gone out.
func (h Hand) IsEmpty() bool { return h.Count() == 0 }

// Contains reports whether the hand holds card c.
func (h Hand) Contains(c Card) bool {
	if c.IsEmpty() {
		return false
	}
	for _, hc := range h {
		if hc == c {
			return true
		}
	}
	return false
}

// HasRank reports whether any real card in the hand has rank r.
func (h Hand) HasRank(r Rank) bool {
	for _, c := range h {
		if !c.IsEmpty() && c.Rank == r {
			return true
		}
	}
	return false
}

// RankCounts tallies the real cards per rank.
func (h Hand) RankCounts() [RankAce + 1]int {
	var counts [RankAce + 1]int
	for _, c := range h {
		if !c.IsEmpty() {
			counts[c.Rank]++
		}
	}
	return counts
}

// Cards returns the real cards in slot order.
func (h Hand) Cards() []Card {
	out := make([]Card, 0, HandSize)
	for _, c := range h {
		if !c.IsEmpty() {
			out = append(out, c)
		}
	}
	return out
}

// deal shuffles a fresh deck, deals it round-robin, then shuffles hand ownership.
// Unfilled slots stay EmptySlot, which pads every hand to HandSize.
func deal(rng *rand.Rand) [NumPlayers]Hand {
	deck := NewDeck()
	rng.Shuffle(len(deck), func(i, j int) { deck[i], deck[j] = deck[j], deck[i] })

	var hands [NumPlayers]Hand
	for i, c := range deck {
		hands[i%NumPlayers][i/NumPlayers] = c
	}

	rng.Shuffle(NumPlayers, func(i, j int) { hands[i], hands[j] = hands[j], hands[i] })
	return hands
}

// openingHolder returns the player holding OpeningCard, or 0 if no hand does.
func openingHolder(hands *[NumPlayers]Hand) int {
	for p := range hands {
		if hands[p].Contains(OpeningCard) {
			return p
		}
	}
	return 0
}

var (
	ErrDuplicateCard = errors.New("card dealt more than once")
	ErrInvalidCard   = errors.New("card is not part of the deck")
	ErrHandTooLarge  = errors.New("hand exceeds slot capacity")
	ErrMissingCards  = errors.New("hands do not cover the full deck")
)

// buildHands converts card lists into padded hands, checking that together they form exactly one deck.
func buildHands(cards [NumPlayers][]Card) ([NumPlayers]Hand, error) {
	var hands [NumPlayers]Hand
	var seen [DeckSize]bool
	total := 0
	for p, list := range cards {
		if len(list) > HandSize {
			return hands, fmt.Errorf("player %d: %w", p, ErrHandTooLarge)
		}
		for i, c := range list {
			if !c.IsValid() {
				return hands, fmt.Errorf("player %d slot %d: %w", p, i, ErrInvalidCard)
			}
			if seen[c.Index()] {
				return hands, fmt.Errorf("player %d: %s: %w", p, c, ErrDuplicateCard)
			}
			seen[c.Index()] = true
			hands[p][i] = c
			total++
		}
	}
	if total != DeckSize {
		return hands, fmt.Errorf("%d of %d cards: %w", total, DeckSize, ErrMissingCards)
	}
	return hands, nil
}
