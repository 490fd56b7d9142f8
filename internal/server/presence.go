package server

import (
	"context"
	"log"
	"time"

	"github.com/coder/websocket"
)

// presenceTask probes every connection on a fixed interval. A peer that
// cannot answer a ping within the interval is closed, which unwinds its read
// loop and runs the normal leave path. The task stops on server shutdown.
func (s *Server) presenceTask() {
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.shutdown:
			return
		case <-ticker.C:
			for id, conn := range s.connectionManager.Snapshot() {
				go s.probeConnection(id, conn)
			}
		}
	}
}

func (s *Server) probeConnection(connectionID string, conn *websocket.Conn) {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.PingInterval)
	defer cancel()

	if err := conn.Ping(ctx); err != nil {
		log.Printf("Connection %s failed liveness probe: %v", connectionID, err)
		conn.Close(websocket.StatusGoingAway, "liveness probe failed")
	}
}
