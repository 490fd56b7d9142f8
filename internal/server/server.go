package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
)

type Server struct {
	cfg               Config
	auth              *Authenticator
	connectionManager *ConnectionManager
	roomRegistry      *RoomRegistry
	rateLimiter       *RateLimiter

	shutdown     chan struct{}
	shutdownOnce sync.Once
}

func NewServer() (*Server, *http.Server) {
	cfg := LoadConfig()

	s := &Server{
		cfg:               cfg,
		auth:              NewAuthenticator(cfg.BotToken, cfg.AllowAnonymous),
		connectionManager: NewConnectionManager(),
		roomRegistry:      NewRoomRegistry(),
		rateLimiter:       NewRateLimiter(cfg.RateLimit, time.Second),
		shutdown:          make(chan struct{}),
	}

	// Start background tasks
	go s.presenceTask()

	// Declare Server config
	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return s, httpServer
}

// Shutdown stops the background tasks and closes every live connection so
// their read loops unwind through the normal leave path.
func (s *Server) Shutdown(ctx context.Context) error {
	s.shutdownOnce.Do(func() {
		close(s.shutdown)
	})

	for _, conn := range s.connectionManager.Snapshot() {
		conn.Close(websocket.StatusGoingAway, "Server shutting down")
	}
	return nil
}
