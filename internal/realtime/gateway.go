package realtime

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"social-app-server/internal/config"
	"social-app-server/internal/utils"
)

const (
	authDeadline = 15 * time.Second // time allowed to present the auth frame
	readDeadline = 90 * time.Second // tolerates a few missed heartbeats
	pingPeriod   = 30 * time.Second // must be well under readDeadline
	writeTimeout = 10 * time.Second
	readLimit    = int64(4 << 10) // inbound frames are tiny control frames
)

// Gateway terminates inbound WebSocket connections, runs the auth handshake
// and bridges authenticated connections to the Presence Registry.
//
// Per-connection state machine: Connecting -> Authenticated -> Closed. The
// first frame must be {"type":"auth","token":"<socket ticket>"}; the ticket
// is a short-lived JWT minted over the HTTP surface, so the socket identity
// is verified, not client-asserted. Until then the connection is inert. Every
// frame after authentication is ignored: this channel is push-only, all
// client actions go through the HTTP surface.
type Gateway struct {
	registry *Registry
	cfg      *config.Config
	upgrader websocket.Upgrader

	// Timings live on the struct so tests can shrink them.
	authWait  time.Duration
	readWait  time.Duration
	pingEvery time.Duration
}

// NewGateway creates a Gateway bound to the given registry.
func NewGateway(registry *Registry, cfg *config.Config) *Gateway {
	return &Gateway{
		registry: registry,
		cfg:      cfg,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || origin == cfg.Origin
			},
		},
		authWait:  authDeadline,
		readWait:  readDeadline,
		pingEvery: pingPeriod,
	}
}

// authFrame is the only client->server frame the gateway interprets.
type authFrame struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

// HandleWebSocket upgrades the request and starts the connection's read loop.
func (g *Gateway) HandleWebSocket(c *gin.Context) {
	ws, err := g.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("realtime: websocket upgrade failed: %v", err)
		return
	}

	// Independent goroutine per connection; the read loop owns the
	// connection lifecycle from here.
	go g.readLoop(newWSConn(ws))
}

// readLoop drives the connection state machine until the peer goes away.
func (g *Gateway) readLoop(conn *wsConn) {
	authenticated := false
	defer func() {
		if authenticated {
			g.registry.Unregister(conn)
		}
		conn.close()
	}()

	conn.ws.SetReadLimit(readLimit)
	_ = conn.ws.SetReadDeadline(time.Now().Add(g.authWait))
	conn.ws.SetPongHandler(func(string) error {
		return conn.ws.SetReadDeadline(time.Now().Add(g.readWait))
	})

	for {
		_, payload, err := conn.ws.ReadMessage()
		if err != nil {
			return
		}

		if authenticated {
			// Push-only channel: inbound frames after auth are ignored,
			// but any frame proves the peer is alive.
			_ = conn.ws.SetReadDeadline(time.Now().Add(g.readWait))
			continue
		}

		var frame authFrame
		if err := json.Unmarshal(payload, &frame); err != nil || frame.Type != "auth" {
			continue
		}
		claims, err := utils.ValidateToken(frame.Token, g.cfg.SocketTicketSecret)
		if err != nil {
			log.Printf("realtime: rejected socket ticket: %v", err)
			return
		}

		authenticated = true
		g.registry.Register(conn, claims.UserID)
		_ = conn.ws.SetReadDeadline(time.Now().Add(g.readWait))
		go g.pingLoop(conn)
	}
}

// pingLoop keeps the read deadline honest for quiet peers: browser clients
// never send frames on their own, so the server pings and the pong handler
// extends the deadline. Exits when the connection closes or a write fails.
func (g *Gateway) pingLoop(conn *wsConn) {
	ticker := time.NewTicker(g.pingEvery)
	defer ticker.Stop()
	for {
		select {
		case <-conn.done:
			return
		case <-ticker.C:
			if err := conn.ping(); err != nil {
				return
			}
		}
	}
}

// wsConn adapts a gorilla connection to the registry's Conn interface.
// Writes are serialized so concurrent fan-outs never interleave frames.
type wsConn struct {
	mu     sync.Mutex
	ws     *websocket.Conn
	closed bool
	done   chan struct{}
}

func newWSConn(ws *websocket.Conn) *wsConn {
	return &wsConn{ws: ws, done: make(chan struct{})}
}

func (c *wsConn) Send(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return websocket.ErrCloseSent
	}
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.ws.WriteMessage(websocket.TextMessage, payload)
}

func (c *wsConn) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return websocket.ErrCloseSent
	}
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.ws.WriteMessage(websocket.PingMessage, nil)
}

func (c *wsConn) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.done)
		_ = c.ws.Close()
	}
}
