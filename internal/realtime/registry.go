package realtime

import (
	"encoding/json"
	"log"
	"sync"
)

// Conn is one live client connection the registry can push to. Send must be
// safe for concurrent use and must fail (not block) once the connection is
// closed.
type Conn interface {
	Send(payload []byte) error
}

// Event is one server->client frame on the realtime channel.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// EventMessageNew carries the full message projection for a new message.
const EventMessageNew = "message:new"

// Registry maps user identity to the set of currently-open realtime
// connections. A user may hold several connections (tabs, devices); the user
// entry is dropped as soon as its last connection unregisters, so IsOnline
// stays O(1) and accurate without sweeping.
type Registry struct {
	mu    sync.RWMutex
	users map[string]map[Conn]struct{}
	conns map[Conn]string
}

var (
	defaultRegistry *Registry
	registryOnce    sync.Once
)

// Default returns the process-wide registry, lazily initialized on first use.
func Default() *Registry {
	registryOnce.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		users: make(map[string]map[Conn]struct{}),
		conns: make(map[Conn]string),
	}
}

// Register adds a connection to the user's set, creating the set if absent.
// Subsequent fan-out to userID includes this connection.
func (r *Registry) Register(conn Conn, userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.users[userID]
	if !ok {
		set = make(map[Conn]struct{})
		r.users[userID] = set
	}
	set[conn] = struct{}{}
	r.conns[conn] = userID
}

// Unregister removes the connection from whatever user set it belongs to.
// Unknown connections are a no-op.
func (r *Registry) Unregister(conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	userID, ok := r.conns[conn]
	if !ok {
		return
	}
	delete(r.conns, conn)
	if set, ok := r.users[userID]; ok {
		delete(set, conn)
		if len(set) == 0 {
			delete(r.users, userID)
		}
	}
}

// IsOnline reports whether the user has at least one registered connection.
func (r *Registry) IsOnline(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users[userID]) > 0
}

// FanOut serializes event once and pushes it to every open connection of
// every listed user. Best-effort, at-most-once per connection: a failed send
// is logged and skipped, never retried, and never blocks the other sends.
func (r *Registry) FanOut(userIDs []string, event interface{}) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("realtime: failed to serialize event: %v", err)
		return
	}

	// Snapshot targets under the read lock, send outside it so a slow
	// client cannot stall register/unregister.
	r.mu.RLock()
	targets := make([]Conn, 0)
	for _, userID := range userIDs {
		for conn := range r.users[userID] {
			targets = append(targets, conn)
		}
	}
	r.mu.RUnlock()

	for _, conn := range targets {
		if err := conn.Send(payload); err != nil {
			// Closing connections prune themselves via Unregister on
			// their own close event.
			log.Printf("realtime: dropped fan-out frame: %v", err)
		}
	}
}
