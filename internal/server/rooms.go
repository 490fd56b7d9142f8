package server

import (
	"errors"
	"slices"
	"sync"
	"time"

	"durak-server/internal/durak"
)

var (
	ErrRoomNotFound   = errors.New("ROOM_NOT_FOUND: room not found")
	ErrNotInRoom      = errors.New("ROOM_NOT_FOUND: you are not in a room")
	ErrOwnerOnly      = errors.New("OWNER_ONLY: only the room owner can start a game")
	ErrGameInProgress = errors.New("GAME_IN_PROGRESS: a hand is already being played")
	ErrNoGame         = errors.New("NO_GAME: no hand is in progress")
)

// Room is one lobby plus, while a hand is live, its game state. All fields
// are guarded by mu; every membership or game mutation happens under it, so
// concurrent connections acting on the same room serialize cleanly while
// different rooms stay fully parallel.
type Room struct {
	ID        string
	OwnerID   string
	CreatedAt time.Time

	mu      sync.Mutex
	members []string // insertion order; owner first
	game    *durak.Game
}

// RoomRegistry is the process-wide directory of rooms, owned by the Server
// rather than living in package globals so it can be swapped out later.
type RoomRegistry struct {
	rooms     map[string]*Room
	byPlayer  map[string]string // playerID → roomID
	usedCodes map[string]bool
	mu        sync.RWMutex
}

func NewRoomRegistry() *RoomRegistry {
	return &RoomRegistry{
		rooms:     make(map[string]*Room),
		byPlayer:  make(map[string]string),
		usedCodes: make(map[string]bool),
	}
}

// List returns summaries only: membership and ownership, never hands, table
// or deck contents.
func (rr *RoomRegistry) List() []RoomSummary {
	rr.mu.RLock()
	defer rr.mu.RUnlock()

	out := make([]RoomSummary, 0, len(rr.rooms))
	for _, room := range rr.rooms {
		out = append(out, room.Summary())
	}
	return out
}

// Create makes a room with the owner as sole member. A player can only be in
// one room at a time, so any previous room is left first.
func (rr *RoomRegistry) Create(ownerID string) (room *Room, left *Room, leftDestroyed bool) {
	rr.mu.Lock()
	defer rr.mu.Unlock()

	left, leftDestroyed = rr.leaveLocked(ownerID)

	code := GenerateRoomCode(rr.usedCodes)
	rr.usedCodes[code] = true

	room = &Room{
		ID:        code,
		OwnerID:   ownerID,
		CreatedAt: time.Now(),
		members:   []string{ownerID},
	}
	rr.rooms[code] = room
	rr.byPlayer[ownerID] = code

	return room, left, leftDestroyed
}

// Join adds the player to the room. Rejoining the current room is a no-op
// success; joining a different room leaves the old one first.
func (rr *RoomRegistry) Join(roomID, playerID string) (room *Room, left *Room, leftDestroyed bool, err error) {
	roomID = NormalizeRoomCode(roomID)

	rr.mu.Lock()
	defer rr.mu.Unlock()

	room, exists := rr.rooms[roomID]
	if !exists {
		return nil, nil, false, ErrRoomNotFound
	}

	if rr.byPlayer[playerID] == roomID {
		return room, nil, false, nil
	}

	left, leftDestroyed = rr.leaveLocked(playerID)

	room.mu.Lock()
	room.members = append(room.members, playerID)
	room.mu.Unlock()
	rr.byPlayer[playerID] = roomID

	return room, left, leftDestroyed, nil
}

// Leave removes the player from their current room. A room whose membership
// reaches zero is destroyed immediately. Transport close routes through the
// same path.
func (rr *RoomRegistry) Leave(playerID string) (room *Room, destroyed bool, err error) {
	rr.mu.Lock()
	defer rr.mu.Unlock()

	room, destroyed = rr.leaveLocked(playerID)
	if room == nil {
		return nil, false, ErrNotInRoom
	}
	return room, destroyed, nil
}

func (rr *RoomRegistry) leaveLocked(playerID string) (room *Room, destroyed bool) {
	roomID, ok := rr.byPlayer[playerID]
	if !ok {
		return nil, false
	}
	delete(rr.byPlayer, playerID)

	room = rr.rooms[roomID]
	if room == nil {
		return nil, false
	}

	room.mu.Lock()
	if i := slices.Index(room.members, playerID); i >= 0 {
		room.members = slices.Delete(room.members, i, i+1)
	}
	empty := len(room.members) == 0
	if empty {
		room.game = nil
	}
	room.mu.Unlock()

	if empty {
		delete(rr.rooms, roomID)
		delete(rr.usedCodes, roomID)
		return room, true
	}
	return room, false
}

// GetByPlayer returns the room the player is currently in.
func (rr *RoomRegistry) GetByPlayer(playerID string) (*Room, error) {
	rr.mu.RLock()
	defer rr.mu.RUnlock()

	roomID, ok := rr.byPlayer[playerID]
	if !ok {
		return nil, ErrNotInRoom
	}
	room, exists := rr.rooms[roomID]
	if !exists {
		return nil, ErrRoomNotFound
	}
	return room, nil
}

func (r *Room) Summary() RoomSummary {
	r.mu.Lock()
	defer r.mu.Unlock()

	return RoomSummary{
		ID:        r.ID,
		OwnerID:   r.OwnerID,
		Players:   slices.Clone(r.members),
		CreatedAt: r.CreatedAt,
	}
}

func (r *Room) Members() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.members)
}

// HasGame reports whether a hand is currently live.
func (r *Room) HasGame() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.game != nil
}

// StartGame deals a new hand. Only the owner may start one, membership must
// be at least two, and a live hand blocks a restart.
func (r *Room) StartGame(playerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if playerID != r.OwnerID {
		return ErrOwnerOnly
	}
	if r.game != nil {
		return ErrGameInProgress
	}

	game, err := durak.NewGame(r.members)
	if err != nil {
		return err
	}
	r.game = game
	return nil
}

// Attack plays an attack card for the player.
func (r *Room) Attack(playerID string, card durak.Card) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.game == nil {
		return ErrNoGame
	}
	return r.game.Attack(playerID, card)
}

// Defend covers the open attack at attackIndex.
func (r *Room) Defend(playerID string, attackIndex int, card durak.Card) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.game == nil {
		return ErrNoGame
	}
	return r.game.Defend(playerID, attackIndex, card)
}

// EndTurn closes a fully defended round. A non-empty winner means the hand
// ended and the game state has been discarded.
func (r *Room) EndTurn(playerID string) (winner string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.game == nil {
		return "", ErrNoGame
	}
	if err := r.game.Beaten(playerID); err != nil {
		return "", err
	}
	return r.finishIfOver(), nil
}

// Take hands the table to the defender.
func (r *Room) Take(playerID string) (winner string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.game == nil {
		return "", ErrNoGame
	}
	if err := r.game.Take(playerID); err != nil {
		return "", err
	}
	return r.finishIfOver(), nil
}

func (r *Room) finishIfOver() string {
	if !r.game.Over() {
		return ""
	}
	winner := r.game.Winner
	r.game = nil
	return winner
}

// StateMessages builds the personalized state push for every member: the
// shared public view plus that member's own hand only. Built entirely under
// the room lock; sending happens outside it.
func (r *Room) StateMessages() map[string]StateMessage {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.game == nil {
		return nil
	}
	g := r.game

	counts := make(map[string]int, len(g.TurnOrder))
	for _, id := range g.TurnOrder {
		counts[id] = len(g.Hands[id])
	}

	table := make([]durak.AttackPair, len(g.Table))
	copy(table, g.Table)

	out := make(map[string]StateMessage, len(r.members))
	for _, memberID := range r.members {
		hand := slices.Clone(g.Hands[memberID])
		if hand == nil {
			hand = []durak.Card{} // members outside the hand see an empty one
		}
		out[memberID] = StateMessage{
			Type:       "state",
			RoomID:     r.ID,
			Hand:       hand,
			Counts:     counts,
			Trump:      g.Trump,
			TrumpSuit:  g.TrumpSuit.Code(),
			DeckLeft:   g.Deck.Count(),
			Table:      table,
			AttackerID: g.AttackerID,
			DefenderID: g.DefenderID,
		}
	}
	return out
}

// StateFor builds the personalized state push for one member, used when a
// player joins a room with a hand already in progress.
func (r *Room) StateFor(playerID string) (StateMessage, bool) {
	states := r.StateMessages()
	state, ok := states[playerID]
	return state, ok
}
