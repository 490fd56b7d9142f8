package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"durak-server/internal/durak"
)

func (s *Server) RegisterRoutes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/", s.HelloWorldHandler)

	mux.HandleFunc("/health", s.healthHandler)

	mux.HandleFunc("/ws", s.websocketHandler)

	// Wrap the mux with CORS middleware
	return s.corsMiddleware(mux)
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Set CORS headers
		w.Header().Set("Access-Control-Allow-Origin", s.cfg.AllowedOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type")

		// Handle preflight OPTIONS requests
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		// Proceed with the next handler
		next.ServeHTTP(w, r)
	})
}

func (s *Server) HelloWorldHandler(w http.ResponseWriter, r *http.Request) {
	resp := map[string]string{"message": "durak session server"}
	jsonResp, err := json.Marshal(resp)
	if err != nil {
		http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(jsonResp); err != nil {
		log.Printf("Failed to write response: %v", err)
	}
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	resp, err := json.Marshal(map[string]bool{"ok": true})
	if err != nil {
		http.Error(w, "Failed to marshal health check response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(resp); err != nil {
		log.Printf("Failed to write response: %v", err)
	}
}

// originPattern converts the configured CORS origin into the host pattern
// websocket.AcceptOptions wants.
func originPattern(origin string) string {
	if origin == "*" {
		return "*"
	}
	if u, err := url.Parse(origin); err == nil && u.Host != "" {
		return u.Host
	}
	return origin
}

func (s *Server) websocketHandler(w http.ResponseWriter, r *http.Request) {
	socket, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{originPattern(s.cfg.AllowedOrigin)},
	})
	if err != nil {
		http.Error(w, "Failed to open websocket", http.StatusInternalServerError)
		return
	}
	defer socket.Close(websocket.StatusGoingAway, "Server closing")

	ctx := r.Context()

	connectionID := uuid.New().String()
	log.Printf("New connection: %s", connectionID)
	s.connectionManager.AddConnection(connectionID, socket)
	defer func() {
		player, authenticated := s.connectionManager.GetPlayer(connectionID)

		s.connectionManager.RemoveConnection(connectionID)
		s.rateLimiter.RemoveConnection(connectionID)
		log.Printf("Connection closed: %s", connectionID)

		// Transport close behaves exactly like an explicit leave.
		if authenticated {
			s.handleDeparture(player)
		}
	}()

	if err := s.sendMessage(socket, ctx, HelloMessage{Type: "hello", Msg: "connected"}); err != nil {
		log.Printf("Failed to send hello to %s: %v", connectionID, err)
		return
	}

	for {
		// Read from client
		msgType, data, err := socket.Read(ctx)

		if err != nil {
			log.Printf("Connection %s read error: %v", connectionID, err)
			return
		}

		if msgType != websocket.MessageText {
			log.Printf("Non-text input from %s", connectionID)
			continue
		}

		if !s.rateLimiter.Allow(connectionID) {
			s.sendError(socket, ctx, "RATE_LIMITED: too many messages, slow down")
			continue
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Printf("Invalid JSON from %s: %v", connectionID, err)
			s.sendError(socket, ctx, "MALFORMED_MESSAGE: could not decode message")
			continue
		}

		// Liveness probes and authentication are the only messages allowed
		// before an identity is bound.
		switch msg.Type {
		case "ping":
			s.handlePing(socket, ctx)
			continue
		case "auth":
			if closed := s.handleAuth(socket, ctx, connectionID, msg.InitData); closed {
				return
			}
			continue
		}

		player, authenticated := s.connectionManager.GetPlayer(connectionID)
		if !authenticated {
			s.sendError(socket, ctx, ErrAuthRequired.Error())
			continue
		}

		// Route the message
		switch msg.Type {
		case "list_rooms":
			s.handleListRooms(socket, ctx)

		case "create_room":
			s.handleCreateRoom(socket, ctx, player)

		case "join_room":
			s.handleJoinRoom(socket, ctx, player, msg.RoomID)

		case "leave_room":
			s.handleLeaveRoom(socket, ctx, player)

		case "start_game":
			s.handleStartGame(socket, ctx, player)

		case "attack":
			s.handleAttack(socket, ctx, player, msg.Card)

		case "defend":
			s.handleDefend(socket, ctx, player, msg.AttackIndex, msg.Card)

		case "end_turn":
			s.handleEndTurn(socket, ctx, player)

		case "take":
			s.handleTake(socket, ctx, player)

		default:
			log.Printf("Unknown message type '%s' from %s", msg.Type, connectionID)
			s.sendError(socket, ctx, fmt.Sprintf("MALFORMED_MESSAGE: unknown message type %q", msg.Type))
		}
	}
}

func (s *Server) handlePing(socket *websocket.Conn, ctx context.Context) {
	response := PongMessage{
		Type: "pong",
		T:    time.Now().UnixMilli(),
	}

	if err := s.sendMessage(socket, ctx, response); err != nil {
		log.Printf("Failed to send pong: %v", err)
	}
}

// handleAuth resolves the connection's identity. The returned flag reports
// whether the connection was closed and the read loop should stop.
func (s *Server) handleAuth(socket *websocket.Conn, ctx context.Context, connectionID, initData string) (closed bool) {
	if _, already := s.connectionManager.GetPlayer(connectionID); already {
		s.sendError(socket, ctx, "ALREADY_AUTHENTICATED: connection already has an identity")
		return false
	}

	player, err := s.auth.Authenticate(initData)
	if err != nil {
		// The one intentional close path: bad credentials with anonymous
		// access disabled gets a distinct close code.
		s.sendError(socket, ctx, err.Error())
		socket.Close(websocket.StatusPolicyViolation, "authentication failed")
		return true
	}

	if old := s.connectionManager.BindPlayer(connectionID, player); old != "" {
		// Same identity connected again; evict the stale connection.
		if oldConn := s.connectionManager.GetConnection(old); oldConn != nil {
			oldConn.Close(websocket.StatusNormalClosure, "Connected from another device")
		}
		s.connectionManager.RemoveConnection(old)
	}

	log.Printf("Connection %s authenticated as %s (%s)", connectionID, player.ID, player.Name)

	response := AuthOkMessage{
		Type: "auth_ok",
		User: player,
	}
	if err := s.sendMessage(socket, ctx, response); err != nil {
		log.Printf("Failed to send auth_ok to %s: %v", connectionID, err)
	}
	return false
}

func (s *Server) handleListRooms(socket *websocket.Conn, ctx context.Context) {
	response := RoomsMessage{
		Type: "rooms",
		List: s.roomRegistry.List(),
	}

	if err := s.sendMessage(socket, ctx, response); err != nil {
		log.Printf("Failed to send room list: %v", err)
	}
}

func (s *Server) handleCreateRoom(socket *websocket.Conn, ctx context.Context, player Player) {
	room, left, leftDestroyed := s.roomRegistry.Create(player.ID)
	log.Printf("Player %s created room %s", player.ID, room.ID)

	if err := s.sendMessage(socket, ctx, RoomMessage{Type: "room_created", Room: room.Summary()}); err != nil {
		log.Printf("Failed to send room_created: %v", err)
		return
	}

	if left != nil && !leftDestroyed {
		s.broadcastRoom(left, RoomMessage{Type: "room_update", Room: left.Summary()})
	}
	s.broadcastRoom(room, RoomMessage{Type: "room_update", Room: room.Summary()})
}

func (s *Server) handleJoinRoom(socket *websocket.Conn, ctx context.Context, player Player, roomID string) {
	if roomID == "" {
		s.sendError(socket, ctx, "MALFORMED_MESSAGE: join_room requires roomId")
		return
	}

	room, left, leftDestroyed, err := s.roomRegistry.Join(roomID, player.ID)
	if err != nil {
		s.sendError(socket, ctx, err.Error())
		return
	}
	log.Printf("Player %s joined room %s", player.ID, room.ID)

	if err := s.sendMessage(socket, ctx, RoomMessage{Type: "joined", Room: room.Summary()}); err != nil {
		log.Printf("Failed to send joined: %v", err)
		return
	}

	if left != nil && !leftDestroyed {
		s.broadcastRoom(left, RoomMessage{Type: "room_update", Room: left.Summary()})
	}
	s.broadcastRoom(room, RoomMessage{Type: "room_update", Room: room.Summary()})

	// A joiner mid-hand gets the current snapshot right away.
	if state, ok := room.StateFor(player.ID); ok {
		if err := s.sendMessage(socket, ctx, state); err != nil {
			log.Printf("Failed to send state snapshot to %s: %v", player.ID, err)
		}
	}
}

func (s *Server) handleLeaveRoom(socket *websocket.Conn, ctx context.Context, player Player) {
	room, destroyed, err := s.roomRegistry.Leave(player.ID)
	if err != nil {
		s.sendError(socket, ctx, err.Error())
		return
	}
	log.Printf("Player %s left room %s", player.ID, room.ID)

	if err := s.sendMessage(socket, ctx, LeftMessage{Type: "left"}); err != nil {
		log.Printf("Failed to send left: %v", err)
	}

	if !destroyed {
		s.broadcastRoom(room, RoomMessage{Type: "room_update", Room: room.Summary()})
	}
}

// handleDeparture is the shared cleanup for transport close: identical to an
// explicit leave, minus the reply nobody is left to read.
func (s *Server) handleDeparture(player Player) {
	room, destroyed, err := s.roomRegistry.Leave(player.ID)
	if err != nil {
		return // was not in a room
	}
	log.Printf("Player %s disconnected from room %s", player.ID, room.ID)

	if !destroyed {
		s.broadcastRoom(room, RoomMessage{Type: "room_update", Room: room.Summary()})
	}
}

func (s *Server) handleStartGame(socket *websocket.Conn, ctx context.Context, player Player) {
	room, err := s.roomRegistry.GetByPlayer(player.ID)
	if err != nil {
		s.sendError(socket, ctx, err.Error())
		return
	}

	if err := room.StartGame(player.ID); err != nil {
		s.sendError(socket, ctx, err.Error())
		return
	}
	log.Printf("Room %s: game started by %s", room.ID, player.ID)

	s.pushGameState(room)
}

func (s *Server) handleAttack(socket *websocket.Conn, ctx context.Context, player Player, cardToken string) {
	card, ok := s.parseCardOrReject(socket, ctx, cardToken)
	if !ok {
		return
	}

	room, err := s.roomRegistry.GetByPlayer(player.ID)
	if err != nil {
		s.sendError(socket, ctx, err.Error())
		return
	}

	if err := room.Attack(player.ID, card); err != nil {
		s.sendError(socket, ctx, err.Error())
		return
	}

	s.pushGameState(room)
}

func (s *Server) handleDefend(socket *websocket.Conn, ctx context.Context, player Player, attackIndex *int, cardToken string) {
	if attackIndex == nil {
		s.sendError(socket, ctx, "MALFORMED_MESSAGE: defend requires attackIndex")
		return
	}
	card, ok := s.parseCardOrReject(socket, ctx, cardToken)
	if !ok {
		return
	}

	room, err := s.roomRegistry.GetByPlayer(player.ID)
	if err != nil {
		s.sendError(socket, ctx, err.Error())
		return
	}

	if err := room.Defend(player.ID, *attackIndex, card); err != nil {
		s.sendError(socket, ctx, err.Error())
		return
	}

	s.pushGameState(room)
}

func (s *Server) handleEndTurn(socket *websocket.Conn, ctx context.Context, player Player) {
	room, err := s.roomRegistry.GetByPlayer(player.ID)
	if err != nil {
		s.sendError(socket, ctx, err.Error())
		return
	}

	winner, err := room.EndTurn(player.ID)
	if err != nil {
		s.sendError(socket, ctx, err.Error())
		return
	}

	s.finishRound(room, winner)
}

func (s *Server) handleTake(socket *websocket.Conn, ctx context.Context, player Player) {
	room, err := s.roomRegistry.GetByPlayer(player.ID)
	if err != nil {
		s.sendError(socket, ctx, err.Error())
		return
	}

	winner, err := room.Take(player.ID)
	if err != nil {
		s.sendError(socket, ctx, err.Error())
		return
	}

	s.finishRound(room, winner)
}

// finishRound pushes the state after a beaten/take, or announces the winner
// when the hand just ended.
func (s *Server) finishRound(room *Room, winner string) {
	if winner != "" {
		log.Printf("Room %s: game over, winner %s", room.ID, winner)
		s.broadcastRoom(room, GameOverMessage{Type: "game_over", Winner: winner})
		return
	}
	s.pushGameState(room)
}

func (s *Server) parseCardOrReject(socket *websocket.Conn, ctx context.Context, token string) (durak.Card, bool) {
	if token == "" {
		s.sendError(socket, ctx, "MALFORMED_MESSAGE: a card is required")
		return durak.Card{}, false
	}
	card, err := durak.ParseCard(token)
	if err != nil {
		s.sendError(socket, ctx, fmt.Sprintf("MALFORMED_MESSAGE: %v", err))
		return durak.Card{}, false
	}
	return card, true
}

func (s *Server) sendMessage(socket *websocket.Conn, ctx context.Context, msg any) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal error: %w", err)
	}

	return socket.Write(ctx, websocket.MessageText, data)
}

func (s *Server) sendError(socket *websocket.Conn, ctx context.Context, msg string) {
	response := ErrorMessage{
		Type: "error",
		Msg:  msg,
	}

	if err := s.sendMessage(socket, ctx, response); err != nil {
		log.Printf("Failed to send error message: %v", err)
	}
}
