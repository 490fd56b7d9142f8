package durak

import "errors"

// Rule violations surface as stable CODE-prefixed errors; the server relays
// the text to clients unchanged.
var (
	ErrNotEnoughPlayers = errors.New("NOT_ENOUGH_PLAYERS: not enough players")
	ErrNotYourTurn      = errors.New("NOT_YOUR_TURN: it is not your turn for that action")
	ErrNoSuchCard       = errors.New("NO_SUCH_CARD: that card is not in your hand")
	ErrTooManyAttacks   = errors.New("TOO_MANY_ATTACKS: no room for another attack this round")
	ErrRankNotOnTable   = errors.New("RANK_NOT_ON_TABLE: attack rank must already be on the table")
	ErrBadAttackIndex   = errors.New("BAD_ATTACK_INDEX: no open attack at that index")
	ErrCardDoesNotBeat  = errors.New("CARD_DOES_NOT_BEAT: that card does not beat the attack")
	ErrNotAllDefended   = errors.New("NOT_ALL_DEFENDED: every attack must be covered first")
	ErrTableEmpty       = errors.New("TABLE_EMPTY: there is nothing on the table to take")
)
