package server

import (
	"time"

	"durak-server/internal/durak"
)

// Server→client messages. Each carries its own "type" discriminator so the
// wire format stays flat, matching what the web client expects.

// ============================================================================
// HANDSHAKE AND ERRORS
// ============================================================================
type HelloMessage struct {
	Type string `json:"type"`
	Msg  string `json:"msg"`
}

type ErrorMessage struct {
	Type string `json:"type"`
	Msg  string `json:"msg"`
}

type AuthOkMessage struct {
	Type string `json:"type"`
	User Player `json:"user"`
}

type PongMessage struct {
	Type string `json:"type"`
	T    int64  `json:"t"`
}

// ============================================================================
// ROOMS
// ============================================================================

// RoomSummary is the public view of a room: membership and ownership only,
// never hands, table or deck contents.
type RoomSummary struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"ownerId"`
	Players   []string  `json:"players"`
	CreatedAt time.Time `json:"createdAt"`
}

type RoomsMessage struct {
	Type string        `json:"type"`
	List []RoomSummary `json:"list"`
}

// RoomMessage carries a room snapshot for room_created, joined and
// room_update.
type RoomMessage struct {
	Type string      `json:"type"`
	Room RoomSummary `json:"room"`
}

type LeftMessage struct {
	Type string `json:"type"`
}

// ============================================================================
// GAME STATE
// ============================================================================

// StateMessage is the personalized per-player game view: public table state
// plus only that player's own hand. Other hands appear as counts.
type StateMessage struct {
	Type       string             `json:"type"`
	RoomID     string             `json:"roomId"`
	Hand       []durak.Card       `json:"hand"`
	Counts     map[string]int     `json:"counts"`
	Trump      durak.Card         `json:"trump"`
	TrumpSuit  string             `json:"trumpSuit"`
	DeckLeft   int                `json:"deckLeft"`
	Table      []durak.AttackPair `json:"table"`
	AttackerID string             `json:"attackerId"`
	DefenderID string             `json:"defenderId"`
}

type GameOverMessage struct {
	Type   string `json:"type"`
	Winner string `json:"winner"`
}
