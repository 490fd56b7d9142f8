package server

import (
	"sync"

	"github.com/coder/websocket"
)

type ConnectionManager struct {
	connections map[string]*websocket.Conn // connectionID → socket
	players     map[string]Player          // connectionID → authenticated identity
	byPlayer    map[string]string          // playerID → connectionID
	mu          sync.RWMutex
}

func NewConnectionManager() *ConnectionManager {
	return &ConnectionManager{
		connections: make(map[string]*websocket.Conn),
		players:     make(map[string]Player),
		byPlayer:    make(map[string]string),
	}
}

func (cm *ConnectionManager) AddConnection(id string, conn *websocket.Conn) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.connections[id] = conn
}

func (cm *ConnectionManager) RemoveConnection(id string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if player, ok := cm.players[id]; ok && cm.byPlayer[player.ID] == id {
		delete(cm.byPlayer, player.ID)
	}
	delete(cm.players, id)
	delete(cm.connections, id)
}

// BindPlayer attaches an authenticated identity to a connection. If the
// player was already bound to another live connection, that connection's id
// is returned so the caller can evict it.
func (cm *ConnectionManager) BindPlayer(connectionID string, player Player) (previousConnectionID string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if old, ok := cm.byPlayer[player.ID]; ok && old != connectionID {
		previousConnectionID = old
	}
	cm.players[connectionID] = player
	cm.byPlayer[player.ID] = connectionID
	return previousConnectionID
}

// GetPlayer returns the identity bound to a connection, if authenticated.
func (cm *ConnectionManager) GetPlayer(connectionID string) (Player, bool) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	player, ok := cm.players[connectionID]
	return player, ok
}

func (cm *ConnectionManager) GetConnection(connectionID string) *websocket.Conn {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	return cm.connections[connectionID]
}

func (cm *ConnectionManager) GetConnectionByPlayer(playerID string) *websocket.Conn {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	connID, ok := cm.byPlayer[playerID]
	if !ok {
		return nil
	}
	return cm.connections[connID]
}

// Snapshot returns a copy of the live connection set so the liveness prober
// can ping without holding the manager lock.
func (cm *ConnectionManager) Snapshot() map[string]*websocket.Conn {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	out := make(map[string]*websocket.Conn, len(cm.connections))
	for id, conn := range cm.connections {
		out[id] = conn
	}
	return out
}
