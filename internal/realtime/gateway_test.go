package realtime_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"social-app-server/internal/config"
	"social-app-server/internal/models"
	"social-app-server/internal/realtime"
	"social-app-server/internal/utils"
)

func newGatewayServer(t *testing.T) (*httptest.Server, *realtime.Registry, *config.Config) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Origin:                 "http://localhost:4200",
		SocketTicketSecret:     "test-ticket-secret",
		SocketTicketTTLSeconds: 60,
	}
	registry := realtime.NewRegistry()
	gateway := realtime.NewGateway(registry, cfg)

	router := gin.New()
	router.GET("/ws", gateway.HandleWebSocket)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server, registry, cfg
}

func dial(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	if resp != nil && resp.StatusCode != http.StatusSwitchingProtocols {
		t.Fatalf("unexpected handshake status %d", resp.StatusCode)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func waitForOnline(t *testing.T, registry *realtime.Registry, userID string, want bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if registry.IsOnline(userID) == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for IsOnline(%s)=%v", userID, want)
}

func TestGatewayRegistersAfterValidTicket(t *testing.T) {
	server, registry, cfg := newGatewayServer(t)
	conn := dial(t, server)

	ticket, err := utils.GenerateSocketTicket("u1", models.RoleUser, cfg)
	if err != nil {
		t.Fatalf("failed to mint ticket: %v", err)
	}
	if err := conn.WriteJSON(map[string]string{"type": "auth", "token": ticket}); err != nil {
		t.Fatalf("failed to send auth frame: %v", err)
	}
	waitForOnline(t, registry, "u1", true)

	// Fan-out now reaches this connection.
	registry.FanOut([]string{"u1"}, realtime.Event{Type: realtime.EventMessageNew, Data: map[string]string{"content": "hi"}})
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var event realtime.Event
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("failed to read pushed event: %v", err)
	}
	if event.Type != realtime.EventMessageNew {
		t.Fatalf("unexpected event type %q", event.Type)
	}

	// Closing the connection unregisters it.
	_ = conn.Close()
	waitForOnline(t, registry, "u1", false)
}

func TestGatewayClosesOnInvalidTicket(t *testing.T) {
	server, registry, _ := newGatewayServer(t)
	conn := dial(t, server)

	if err := conn.WriteJSON(map[string]string{"type": "auth", "token": "garbage"}); err != nil {
		t.Fatalf("failed to send auth frame: %v", err)
	}

	// The server rejects the ticket and closes; the read fails and the
	// user never shows up in the registry.
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatalf("expected the server to close the connection")
	}
	if registry.IsOnline("u1") {
		t.Fatalf("invalid ticket must not register a connection")
	}
}

func TestGatewayIgnoresFramesBeforeAuth(t *testing.T) {
	server, registry, cfg := newGatewayServer(t)
	conn := dial(t, server)

	// Non-auth frames leave the connection inert but open.
	if err := conn.WriteJSON(map[string]string{"type": "chat", "content": "hi"}); err != nil {
		t.Fatalf("failed to send frame: %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	if registry.IsOnline("u1") {
		t.Fatalf("unauthenticated connection must not be registered")
	}

	// Auth still works afterwards.
	ticket, err := utils.GenerateSocketTicket("u1", models.RoleUser, cfg)
	if err != nil {
		t.Fatalf("failed to mint ticket: %v", err)
	}
	if err := conn.WriteJSON(map[string]string{"type": "auth", "token": ticket}); err != nil {
		t.Fatalf("failed to send auth frame: %v", err)
	}
	waitForOnline(t, registry, "u1", true)

	// Frames after auth are ignored; the channel stays healthy.
	if err := conn.WriteJSON(map[string]string{"type": "chat", "content": "ignored"}); err != nil {
		t.Fatalf("failed to send post-auth frame: %v", err)
	}
	registry.FanOut([]string{"u1"}, realtime.Event{Type: realtime.EventMessageNew})
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var event realtime.Event
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("push after ignored frames failed: %v", err)
	}
}
