package realtime

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"social-app-server/internal/config"
	"social-app-server/internal/models"
	"social-app-server/internal/utils"
)

// newShortTimeoutServer shrinks the gateway timings so liveness behavior is
// observable within a test run.
func newShortTimeoutServer(t *testing.T, readWait, pingEvery time.Duration) (*httptest.Server, *Registry, *config.Config) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Origin:                 "http://localhost:4200",
		SocketTicketSecret:     "test-ticket-secret",
		SocketTicketTTLSeconds: 60,
	}
	registry := NewRegistry()
	gateway := NewGateway(registry, cfg)
	gateway.readWait = readWait
	gateway.pingEvery = pingEvery

	router := gin.New()
	router.GET("/ws", gateway.HandleWebSocket)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server, registry, cfg
}

func dialAndAuth(t *testing.T, server *httptest.Server, registry *Registry, cfg *config.Config, userID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	ticket, err := utils.GenerateSocketTicket(userID, models.RoleUser, cfg)
	if err != nil {
		t.Fatalf("failed to mint ticket: %v", err)
	}
	if err := conn.WriteJSON(map[string]string{"type": "auth", "token": ticket}); err != nil {
		t.Fatalf("failed to send auth frame: %v", err)
	}
	pollOnline(t, registry, userID, true)
	return conn
}

func pollOnline(t *testing.T, registry *Registry, userID string, want bool) {
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

// A client that only listens must survive past the read window: the server's
// pings and the client's automatic pongs keep the deadline extended.
func TestQuietConnectionKeptAliveByPings(t *testing.T) {
	readWait := 400 * time.Millisecond
	server, registry, cfg := newShortTimeoutServer(t, readWait, 100*time.Millisecond)
	conn := dialAndAuth(t, server, registry, cfg, "u1")

	// Reading drives the default ping handler, which answers with pongs.
	received := make(chan []byte, 4)
	go func() {
		for {
			_, payload, err := conn.ReadMessage()
			if err != nil {
				return
			}
			received <- payload
		}
	}()

	time.Sleep(3 * readWait)
	if !registry.IsOnline("u1") {
		t.Fatalf("quiet connection was dropped despite pong replies")
	}

	registry.FanOut([]string{"u1"}, Event{Type: EventMessageNew})
	select {
	case <-received:
	case <-time.After(2 * time.Second):
		t.Fatalf("fan-out did not reach the long-lived connection")
	}
}

// A client that keeps sending frames must survive past the read window even
// when no pings are in flight.
func TestActiveConnectionOutlivesReadWindow(t *testing.T) {
	readWait := 400 * time.Millisecond
	server, registry, cfg := newShortTimeoutServer(t, readWait, time.Hour)
	conn := dialAndAuth(t, server, registry, cfg, "u1")

	stop := time.Now().Add(3 * readWait)
	for time.Now().Before(stop) {
		if err := conn.WriteJSON(map[string]string{"type": "noise"}); err != nil {
			t.Fatalf("client write failed mid-run: %v", err)
		}
		time.Sleep(100 * time.Millisecond)
	}
	if !registry.IsOnline("u1") {
		t.Fatalf("connection was dropped despite continuous client activity")
	}
}

// An authenticated peer that neither reads nor writes still times out.
func TestUnresponsivePeerIsDropped(t *testing.T) {
	server, registry, cfg := newShortTimeoutServer(t, 300*time.Millisecond, 100*time.Millisecond)
	dialAndAuth(t, server, registry, cfg, "u1")

	// No read loop, so pings go unanswered and the deadline expires.
	pollOnline(t, registry, "u1", false)
}
