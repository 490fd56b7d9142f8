package durak

import "slices"

const (
	// HandSize is the number of cards every player is dealt and draws back
	// up to after a round.
	HandSize = 6
	// MaxTableAttacks caps the attacks in a single round.
	MaxTableAttacks = 6
)

// AttackPair is one offered card plus its optional covering defend card.
type AttackPair struct {
	Attack     Card   `json:"attack"`
	AttackerID string `json:"attackerId"`
	Defend     *Card  `json:"defend,omitempty"`
	DefenderID string `json:"defenderId,omitempty"`
}

// Open reports whether the attack is still uncovered.
func (p AttackPair) Open() bool {
	return p.Defend == nil
}

// Game holds one hand of Durak in progress. Every card is in exactly one of
// deck, a hand, the table, or the discard pile at all times. Callers are
// responsible for serializing access; Game itself is not goroutine-safe.
type Game struct {
	Deck       *Deck             `json:"deck"`
	Trump      Card              `json:"trump"`
	TrumpSuit  Suit              `json:"trumpSuit"`
	Hands      map[string][]Card `json:"hands"`
	Table      []AttackPair      `json:"table"`
	Discard    []Card            `json:"discard"`
	TurnOrder  []string          `json:"turnOrder"`
	AttackerID string            `json:"attackerId"`
	DefenderID string            `json:"defenderId"`
	Winner     string            `json:"winner,omitempty"`
}

// NewGame deals a fresh hand for the given players. The slice fixes the turn
// order; the first player opens as attacker. The trump is the revealed
// bottom card of the shuffled deck: it stays in the deck and is drawn last,
// so it remains accounted for in the deck count.
func NewGame(playerIDs []string) (*Game, error) {
	if len(playerIDs) < 2 {
		return nil, ErrNotEnoughPlayers
	}

	deck := NewDeck()
	deck.Shuffle()

	g := &Game{
		Deck:      deck,
		Hands:     make(map[string][]Card, len(playerIDs)),
		Table:     make([]AttackPair, 0),
		Discard:   make([]Card, 0),
		TurnOrder: slices.Clone(playerIDs),
	}

	g.Trump = deck.Cards[0]
	g.TrumpSuit = g.Trump.Suit

	for i := 0; i < HandSize; i++ {
		for _, id := range g.TurnOrder {
			g.Hands[id] = append(g.Hands[id], g.Deck.Draw())
		}
	}

	g.AttackerID = g.TurnOrder[0]
	g.DefenderID = g.nextAfter(g.AttackerID)

	return g, nil
}

// Over reports whether the hand has finished.
func (g *Game) Over() bool {
	return g.Winner != ""
}

// Beats reports whether candidate beats target under the given trump suit.
// Same suit compares by rank; trump beats any non-trump; different non-trump
// suits never beat each other.
func Beats(candidate, target Card, trump Suit) bool {
	if candidate.Suit == target.Suit {
		return candidate.Rank > target.Rank
	}
	return candidate.Suit == trump
}

// Attack moves a card from the attacker's hand onto the table as a new open
// attack.
func (g *Game) Attack(playerID string, card Card) error {
	if playerID != g.AttackerID {
		return ErrNotYourTurn
	}

	i := indexOfCard(g.Hands[playerID], card)
	if i < 0 {
		return ErrNoSuchCard
	}

	limit := min(MaxTableAttacks, len(g.Hands[g.DefenderID]))
	if g.openCount() >= limit || len(g.Table) >= MaxTableAttacks {
		return ErrTooManyAttacks
	}

	if len(g.Table) > 0 && !g.rankOnTable(card.Rank) {
		return ErrRankNotOnTable
	}

	g.Hands[playerID] = slices.Delete(g.Hands[playerID], i, i+1)
	g.Table = append(g.Table, AttackPair{Attack: card, AttackerID: playerID})

	return nil
}

// Defend covers the open attack at attackIndex with a card from the
// defender's hand.
func (g *Game) Defend(playerID string, attackIndex int, card Card) error {
	if playerID != g.DefenderID {
		return ErrNotYourTurn
	}

	if attackIndex < 0 || attackIndex >= len(g.Table) || !g.Table[attackIndex].Open() {
		return ErrBadAttackIndex
	}

	i := indexOfCard(g.Hands[playerID], card)
	if i < 0 {
		return ErrNoSuchCard
	}

	if !Beats(card, g.Table[attackIndex].Attack, g.TrumpSuit) {
		return ErrCardDoesNotBeat
	}

	g.Hands[playerID] = slices.Delete(g.Hands[playerID], i, i+1)
	defend := card
	g.Table[attackIndex].Defend = &defend
	g.Table[attackIndex].DefenderID = playerID

	return nil
}

// Beaten closes a fully defended round: everything on the table goes to the
// discard pile, players draw back up, and the roles advance past the
// previous defender.
func (g *Game) Beaten(playerID string) error {
	if playerID != g.AttackerID {
		return ErrNotYourTurn
	}

	if len(g.Table) == 0 || g.openCount() > 0 {
		return ErrNotAllDefended
	}

	for _, pair := range g.Table {
		g.Discard = append(g.Discard, pair.Attack)
		if pair.Defend != nil {
			g.Discard = append(g.Discard, *pair.Defend)
		}
	}
	g.Table = g.Table[:0]

	g.drawUp()

	prevDefender := g.DefenderID
	g.AttackerID = g.nextAfter(prevDefender)
	g.DefenderID = g.nextAfter(g.AttackerID)

	g.checkHandEnd()
	return nil
}

// Take hands everything on the table, covered or not, to the defender. The
// attacker keeps the role; the defender role passes to the next player in
// turn order, skipping the attacker so the two stay distinct.
func (g *Game) Take(playerID string) error {
	if playerID != g.DefenderID {
		return ErrNotYourTurn
	}

	if len(g.Table) == 0 {
		return ErrTableEmpty
	}

	for _, pair := range g.Table {
		g.Hands[playerID] = append(g.Hands[playerID], pair.Attack)
		if pair.Defend != nil {
			g.Hands[playerID] = append(g.Hands[playerID], *pair.Defend)
		}
	}
	g.Table = g.Table[:0]

	g.drawUp()

	next := g.nextAfter(g.DefenderID)
	if next == g.AttackerID {
		next = g.nextAfter(next)
	}
	g.DefenderID = next

	g.checkHandEnd()
	return nil
}

// drawUp refills hands to HandSize, attacker first and defender last, in
// turn order, until the deck runs out.
func (g *Game) drawUp() {
	order := make([]string, 0, len(g.TurnOrder))
	order = append(order, g.AttackerID)
	for id := g.nextAfter(g.AttackerID); id != g.AttackerID; id = g.nextAfter(id) {
		if id != g.DefenderID {
			order = append(order, id)
		}
	}
	order = append(order, g.DefenderID)

	for _, id := range order {
		for len(g.Hands[id]) < HandSize && g.Deck.Count() > 0 {
			g.Hands[id] = append(g.Hands[id], g.Deck.Draw())
		}
	}
}

// checkHandEnd declares the first empty-handed player in turn order the
// winner once the deck is exhausted.
func (g *Game) checkHandEnd() {
	if g.Deck.Count() > 0 {
		return
	}
	for _, id := range g.TurnOrder {
		if len(g.Hands[id]) == 0 {
			g.Winner = id
			return
		}
	}
}

func (g *Game) nextAfter(playerID string) string {
	i := slices.Index(g.TurnOrder, playerID)
	return g.TurnOrder[(i+1)%len(g.TurnOrder)]
}

func (g *Game) openCount() (count int) {
	for _, pair := range g.Table {
		if pair.Open() {
			count++
		}
	}
	return
}

func (g *Game) rankOnTable(rank Rank) bool {
	for _, pair := range g.Table {
		if pair.Attack.Rank == rank {
			return true
		}
		if pair.Defend != nil && pair.Defend.Rank == rank {
			return true
		}
	}
	return false
}

func indexOfCard(hand []Card, card Card) int {
	return slices.Index(hand, card)
}
