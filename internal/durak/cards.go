package durak

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"
)

type Suit int

const (
	Clubs Suit = iota
	Diamonds
	Hearts
	Spades
)

var suitString = map[Suit]string{
	Clubs:    "Clubs",
	Diamonds: "Diamonds",
	Hearts:   "Hearts",
	Spades:   "Spades",
}

// One-character suit codes used in the wire format.
var suitCode = map[Suit]string{
	Clubs:    "C",
	Diamonds: "D",
	Hearts:   "H",
	Spades:   "S",
}

func (s Suit) String() string {
	return suitString[s]
}

func (s Suit) Code() string {
	return suitCode[s]
}

type Rank int

// Ranks carry their Durak ordering directly: 6 < 7 < ... < 10 < J < Q < K < A.
const (
	Six Rank = iota + 6
	Seven
	Eight
	Nine
	Ten
	Jack
	Queen
	King
	Ace
)

var rankString = map[Rank]string{
	Six:   "6",
	Seven: "7",
	Eight: "8",
	Nine:  "9",
	Ten:   "10",
	Jack:  "J",
	Queen: "Q",
	King:  "K",
	Ace:   "A",
}

func (r Rank) String() string {
	return rankString[r]
}

// Card is an immutable rank+suit value with no identity beyond the pair.
type Card struct {
	Rank Rank
	Suit Suit
}

// Token is the short wire form, rank text plus suit code, e.g. "QS" or "10D".
func (c Card) Token() string {
	return c.Rank.String() + c.Suit.Code()
}

func (c Card) String() string {
	return fmt.Sprintf("%s of %s", c.Rank.String(), c.Suit.String())
}

func (c Card) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Token())
}

func (c *Card) UnmarshalJSON(data []byte) error {
	var token string
	if err := json.Unmarshal(data, &token); err != nil {
		return err
	}
	card, err := ParseCard(token)
	if err != nil {
		return err
	}
	*c = card
	return nil
}

// ParseCard parses the wire token form produced by Token.
func ParseCard(token string) (Card, error) {
	if len(token) < 2 {
		return Card{}, fmt.Errorf("invalid card token %q", token)
	}
	rankPart := token[:len(token)-1]
	codePart := strings.ToUpper(token[len(token)-1:])

	var card Card
	found := false
	for rank, text := range rankString {
		if text == rankPart {
			card.Rank = rank
			found = true
			break
		}
	}
	if !found {
		return Card{}, fmt.Errorf("invalid card rank in token %q", token)
	}

	found = false
	for suit, code := range suitCode {
		if code == codePart {
			card.Suit = suit
			found = true
			break
		}
	}
	if !found {
		return Card{}, fmt.Errorf("invalid card suit in token %q", token)
	}

	return card, nil
}

type Deck struct {
	Cards []Card `json:"cards"`
}

// NewDeck returns the 36-card Durak deck, each rank+suit combination exactly
// once, in canonical suit-then-rank order.
func NewDeck() *Deck {
	cards := make([]Card, 0, 36)
	suits := []Suit{Clubs, Diamonds, Hearts, Spades}
	ranks := []Rank{Six, Seven, Eight, Nine, Ten, Jack, Queen, King, Ace}

	for _, suit := range suits {
		for _, rank := range ranks {
			cards = append(cards, Card{rank, suit})
		}
	}

	return &Deck{cards}
}

func (d Deck) Count() int {
	return len(d.Cards)
}

// Draw removes and returns the top card. Callers must check Count first;
// drawing from an empty deck is a programming error.
func (d *Deck) Draw() Card {
	card := d.Cards[len(d.Cards)-1]
	d.Cards = d.Cards[:len(d.Cards)-1]
	return card
}

func (d *Deck) Shuffle() {
	rand.Shuffle(d.Count(), func(i, j int) {
		d.Cards[i], d.Cards[j] = d.Cards[j], d.Cards[i]
	})
}
