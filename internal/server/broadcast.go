package server

import (
	"context"
	"log"
	"time"
)

// broadcastWriteTimeout bounds each outbound push so a slow or dead peer
// cannot stall the room it shares with healthy connections.
const broadcastWriteTimeout = 5 * time.Second

// broadcastRoom delivers one message to every member's live connection.
// Members without a connection are skipped; failed sends are logged and the
// peer is left to the liveness prober.
func (s *Server) broadcastRoom(room *Room, msg any) {
	for _, memberID := range room.Members() {
		conn := s.connectionManager.GetConnectionByPlayer(memberID)
		if conn == nil {
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), broadcastWriteTimeout)
		if err := s.sendMessage(conn, ctx, msg); err != nil {
			log.Printf("Failed to broadcast to %s: %v", memberID, err)
		}
		cancel()
	}
}

// pushGameState sends every member their personalized view: the shared
// public state plus their own exact hand, never anyone else's.
func (s *Server) pushGameState(room *Room) {
	states := room.StateMessages()
	if states == nil {
		return
	}

	for memberID, state := range states {
		conn := s.connectionManager.GetConnectionByPlayer(memberID)
		if conn == nil {
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), broadcastWriteTimeout)
		if err := s.sendMessage(conn, ctx, state); err != nil {
			log.Printf("Failed to push state to %s: %v", memberID, err)
		}
		cancel()
	}
}
