// internal/caps/card.go
package caps

import "fmt"

// Suit is cosmetic in Caps: it never affects ordering or legality.
type Suit uint8

// Rank runs from 2 to 14 (Ace high). Rank 0 only appears on the empty slot.
type Rank uint8

const (
	Spades   Suit = 0
	Hearts   Suit = 1
	Diamonds Suit = 2
	Clubs    Suit = 3
)

const (
	RankTwo   Rank = 2
	RankThree Rank = 3
	RankTen   Rank = 10
	RankJack  Rank = 11
	RankQueen Rank = 12
	RankKing  Rank = 13
	RankAce   Rank = 14
)

const (
	NumSuits = 4
	NumRanks = 13
	DeckSize = NumSuits * NumRanks
)

// Card is a plain value. Assignment copies it; comparison is structural.
type Card struct {
	Suit Suit
	Rank Rank
}

// EmptySlot marks a hand position whose card has already been played.
var EmptySlot = Card{}

// OpeningCard is the card whose holder leads the first play.
var OpeningCard = Card{Suit: Clubs, Rank: RankThree}

var suitChars = [NumSuits]byte{'S', 'H', 'D', 'C'}

var rankChars = [NumRanks]byte{'2', '3', '4', '5', '6', '7', '8', '9', 'T', 'J', 'Q', 'K', 'A'}

// IsEmpty reports whether c is the empty slot value.
func (c Card) IsEmpty() bool { return c == EmptySlot }

// IsValid reports whether c is one of the 52 real cards.
func (c Card) IsValid() bool {
	return c.Suit < NumSuits && c.Rank >= RankTwo && c.Rank <= RankAce
}

// Index returns the card's position in the rank-major deck order (0..51),
// or -1 for the empty slot.
func (c Card) Index() int {
	if !c.IsValid() {
		return -1
	}
	return int(c.Rank-RankTwo)*NumSuits + int(c.Suit)
}

// CardFromIndex is the inverse of Index.
func CardFromIndex(i int) (Card, bool) {
	if i < 0 || i >= DeckSize {
		return EmptySlot, false
	}
	return Card{Suit: Suit(i % NumSuits), Rank: Rank(i/NumSuits) + RankTwo}, true
}

// String renders the card as rank then suit, e.g. "3C" or "TS"; the empty slot is "xx".
func (c Card) String() string {
	if !c.IsValid() {
		return "xx"
	}
	return string([]byte{rankChars[c.Rank-RankTwo], suitChars[c.Suit]})
}

// ParseCard reads the format produced by String.
func ParseCard(s string) (Card, error) {
	if s == "xx" {
		return EmptySlot, nil
	}
	if len(s) != 2 {
		return EmptySlot, fmt.Errorf("invalid card %q", s)
	}
	c := Card{}
	rankOK, suitOK := false, false
	for i, r := range rankChars {
		if r == s[0] {
			c.Rank = Rank(i) + RankTwo
			rankOK = true
		}
	}
	for i, r := range suitChars {
		if r == s[1] {
			c.Suit = Suit(i)
			suitOK = true
		}
	}
	if !rankOK || !suitOK {
		return EmptySlot, fmt.Errorf("invalid card %q", s)
	}
	return c, nil
}

// MustParseCard is ParseCard for literals known to be valid.
func MustParseCard(s string) Card {
	c, err := ParseCard(s)
	if err != nil {
		panic(err)
	}
	return c
}

func (c Card) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Card) UnmarshalText(b []byte) error {
	parsed, err := ParseCard(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// NewDeck returns the 52 cards in rank-major order, so deck[i].Index() == i.
func NewDeck() []Card {
	deck := make([]Card, 0, DeckSize)
	for r := RankTwo; r <= RankAce; r++ {
		for s := Suit(0); s < NumSuits; s++ {
			deck = append(deck, Card{Suit: s, Rank: r})
		}
	}
	return deck
}
