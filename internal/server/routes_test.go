package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
)

func TestHandler(t *testing.T) {
	s := &Server{}
	server := httptest.NewServer(http.HandlerFunc(s.HelloWorldHandler))
	defer server.Close()
	resp, err := http.Get(server.URL)
	if err != nil {
		t.Fatalf("error making request to server. Err: %v", err)
	}
	defer resp.Body.Close()
	// Assertions
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected status OK; got %v", resp.Status)
	}
	expected := "{\"message\":\"durak session server\"}"
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("error reading response body. Err: %v", err)
	}
	if expected != string(body) {
		t.Errorf("expected response body to be %v; got %v", expected, string(body))
	}
}

func TestHealthHandler(t *testing.T) {
	s := &Server{}
	server := httptest.NewServer(http.HandlerFunc(s.healthHandler))
	defer server.Close()

	resp, err := http.Get(server.URL)
	if err != nil {
		t.Fatalf("error making request to server. Err: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected status OK; got %v", resp.Status)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "{\"ok\":true}" {
		t.Errorf("unexpected health body: %s", body)
	}
}

func TestWebSocketHelloGreeting(t *testing.T) {
	assert := assert.New(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, url, cleanup := setupTestServer()
	defer cleanup()

	conn, _, err := websocket.Dial(ctx, url, nil)
	assert.NoError(err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	// The server greets before the client sends anything.
	msgType, _ := readMessage(t, ctx, conn)
	assert.Equal("hello", msgType)
}

func TestWebSocketPingPong(t *testing.T) {
	assert := assert.New(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, url, cleanup := setupTestServer()
	defer cleanup()

	conn := dialAndGreet(t, ctx, url)
	defer conn.Close(websocket.StatusNormalClosure, "")

	// Ping works before authentication.
	writeMessage(t, ctx, conn, ClientMessage{Type: "ping"})

	msgType, data := readMessage(t, ctx, conn)
	assert.Equal("pong", msgType)

	var pong PongMessage
	err := json.Unmarshal(data, &pong)
	assert.NoError(err)
	assert.NotZero(pong.T)
}

func TestWebSocketInvalidJSON(t *testing.T) {
	assert := assert.New(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, url, cleanup := setupTestServer()
	defer cleanup()

	conn := dialAndGreet(t, ctx, url)
	defer conn.Close(websocket.StatusNormalClosure, "")

	err := conn.Write(ctx, websocket.MessageText, []byte("junk"))
	assert.NoErrorf(err, "Failed to send junk")

	msgType, data := readMessage(t, ctx, conn)
	assert.Equal("error", msgType)

	var response ErrorMessage
	json.Unmarshal(data, &response)
	assert.Contains(response.Msg, "MALFORMED_MESSAGE")

	// Ping to ensure the connection didn't close
	writeMessage(t, ctx, conn, ClientMessage{Type: "ping"})
	msgType, _ = readMessage(t, ctx, conn)
	assert.Equal("pong", msgType)
}

func TestWebSocketAuthRequired(t *testing.T) {
	assert := assert.New(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, url, cleanup := setupTestServer()
	defer cleanup()

	conn := dialAndGreet(t, ctx, url)
	defer conn.Close(websocket.StatusNormalClosure, "")

	// Game messages are rejected until an identity is bound.
	writeMessage(t, ctx, conn, ClientMessage{Type: "list_rooms"})

	msgType, data := readMessage(t, ctx, conn)
	assert.Equal("error", msgType)

	var response ErrorMessage
	json.Unmarshal(data, &response)
	assert.Contains(response.Msg, "AUTH_REQUIRED")
}

func TestWebsocketConnectionRegistration(t *testing.T) {
	assert := assert.New(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s, url, cleanup := setupTestServer()
	defer cleanup()

	s.connectionManager.mu.RLock()
	initialCount := len(s.connectionManager.connections)
	s.connectionManager.mu.RUnlock()
	assert.Equal(0, initialCount)

	conn := dialAndGreet(t, ctx, url)

	// The hello greeting is only sent after AddConnection, so the
	// connection is registered by the time we read it.
	s.connectionManager.mu.RLock()
	connectionCount := len(s.connectionManager.connections)
	s.connectionManager.mu.RUnlock()
	assert.Equal(1, connectionCount)

	// Disconnect
	conn.Close(websocket.StatusNormalClosure, "")

	// Give the defer cleanup a moment to run
	// Why: Close() returns before the handler's defer completes
	time.Sleep(10 * time.Millisecond)

	s.connectionManager.mu.RLock()
	finalCount := len(s.connectionManager.connections)
	s.connectionManager.mu.RUnlock()
	assert.Equal(0, finalCount)
}

func TestWebSocketMultipleConnections(t *testing.T) {
	assert := assert.New(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s, url, cleanup := setupTestServer()
	defer cleanup()

	connections := make([]*websocket.Conn, 4)
	for i := 0; i < 4; i++ {
		conn := dialAndGreet(t, ctx, url)
		connections[i] = conn
		defer conn.Close(websocket.StatusNormalClosure, "")
	}

	s.connectionManager.mu.RLock()
	count := len(s.connectionManager.connections)
	s.connectionManager.mu.RUnlock()
	assert.Equal(4, count, "All 4 connections should be registered")

	// Each connection works independently.
	for i, conn := range connections {
		writeMessage(t, ctx, conn, ClientMessage{Type: "ping"})
		msgType, _ := readMessage(t, ctx, conn)
		assert.Equal("pong", msgType, "Client %d should receive pong", i)
	}
}

// ============================================================================
// TEST HELPERS
// ============================================================================

func setupTestServer() (*Server, string, func()) {
	s := &Server{
		cfg: Config{
			Port:           0,
			AllowAnonymous: true,
			AllowedOrigin:  "*",
			PingInterval:   30 * time.Second,
		},
		connectionManager: NewConnectionManager(),
		roomRegistry:      NewRoomRegistry(),
		rateLimiter:       NewRateLimiter(100, time.Second),
		shutdown:          make(chan struct{}),
	}
	s.auth = NewAuthenticator("", s.cfg.AllowAnonymous)

	server := httptest.NewServer(http.HandlerFunc(s.websocketHandler))
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"

	cleanup := func() {
		s.Shutdown(context.Background())
		server.Close()
	}

	return s, url, cleanup
}

// dialAndGreet connects and consumes the hello greeting.
func dialAndGreet(t *testing.T, ctx context.Context, url string) *websocket.Conn {
	t.Helper()

	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("failed to dial: %v", err)
	}

	msgType, _ := readMessage(t, ctx, conn)
	if msgType != "hello" {
		t.Fatalf("expected hello greeting, got %q", msgType)
	}
	return conn
}

func writeMessage(t *testing.T, ctx context.Context, conn *websocket.Conn, msg ClientMessage) {
	t.Helper()

	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("failed to marshal message: %v", err)
	}
	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		t.Fatalf("failed to write message: %v", err)
	}
}

// readMessage reads the next frame and returns its type plus the raw bytes
// for decoding into a concrete message struct.
func readMessage(t *testing.T, ctx context.Context, conn *websocket.Conn) (string, []byte) {
	t.Helper()

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("failed to read message: %v", err)
	}

	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		t.Fatalf("failed to decode message %q: %v", data, err)
	}
	return envelope.Type, data
}
