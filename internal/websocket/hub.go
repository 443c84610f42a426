package websocket

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/satriahrh/voicerelay/domain/entities"
)

// Hub is the process-wide registry of live connections.
// Entries are added when a connection is accepted and removed at teardown;
// those are the only mutation points.
type Hub struct {
	mu          sync.RWMutex
	connections map[string]*entities.Connection
	logger      *zap.Logger
}

// NewHub creates an empty registry
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		connections: make(map[string]*entities.Connection),
		logger:      logger,
	}
}

// Register adds a connection. Registering the same ID twice is an error.
func (h *Hub) Register(conn *entities.Connection) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.connections[conn.ID]; exists {
		return fmt.Errorf("connection %s already registered", conn.ID)
	}
	stored := *conn
	h.connections[conn.ID] = &stored

	h.logger.Info("Client registered",
		zap.String("connectionID", conn.ID),
		zap.String("remoteAddr", conn.RemoteAddr),
		zap.Int("active", len(h.connections)))
	return nil
}

// AttachSession records the backend session bound to a connection
func (h *Hub) AttachSession(connectionID, sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if conn, ok := h.connections[connectionID]; ok {
		conn.SessionID = sessionID
	}
}

// Unregister removes a connection and reports whether it was present
func (h *Hub) Unregister(connectionID string) bool {
	h.mu.Lock()
	_, ok := h.connections[connectionID]
	delete(h.connections, connectionID)
	active := len(h.connections)
	h.mu.Unlock()

	if ok {
		h.logger.Info("Client unregistered",
			zap.String("connectionID", connectionID),
			zap.Int("active", active))
	}
	return ok
}

// Get returns a snapshot of one connection
func (h *Hub) Get(connectionID string) (entities.Connection, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	conn, ok := h.connections[connectionID]
	if !ok {
		return entities.Connection{}, false
	}
	return *conn, true
}

// ActiveConnections returns snapshots of all live connections, oldest first
func (h *Hub) ActiveConnections() []entities.Connection {
	h.mu.RLock()
	conns := make([]entities.Connection, 0, len(h.connections))
	for _, conn := range h.connections {
		conns = append(conns, *conn)
	}
	h.mu.RUnlock()

	sort.Slice(conns, func(i, j int) bool {
		return conns[i].CreatedAt.Before(conns[j].CreatedAt)
	})
	return conns
}

// Count returns the number of live connections
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}
