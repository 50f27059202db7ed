package realtime

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/rideloop/backend/pkg/logger"
)

// Named broadcast groups. Personal channels are keyed by user ID and need no
// explicit join.
const (
	GroupDrivers = "drivers"
	GroupAdmins  = "admins"
)

// Message is the envelope written to client sockets
type Message struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data,omitempty"`
}

// Hub is the connection registry. It maps authenticated principals to their
// live sessions and resolves direct and group sends against them. A principal
// may hold several concurrent sessions (multiple devices); a direct send fans
// out to all of them.
type Hub struct {
	mu          sync.RWMutex
	clients     map[*Client]bool
	sessions    map[uuid.UUID]map[*Client]bool
	groups      map[string]map[*Client]bool
	memberships map[*Client]map[string]bool
	logger      *logger.Logger
}

// NewHub creates the registry. One instance is constructed at process start
// and handed by reference to every consumer.
func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		clients:     make(map[*Client]bool),
		sessions:    make(map[uuid.UUID]map[*Client]bool),
		groups:      make(map[string]map[*Client]bool),
		memberships: make(map[*Client]map[string]bool),
		logger:      log,
	}
}

// Register admits an authenticated client. It reports whether this is the
// principal's first live session.
func (h *Hub) Register(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[c] = true
	if h.sessions[c.UserID] == nil {
		h.sessions[c.UserID] = make(map[*Client]bool)
	}
	h.sessions[c.UserID][c] = true
	first := len(h.sessions[c.UserID]) == 1

	h.logger.Info("Client registered",
		logger.String("client_id", c.ID),
		logger.String("user_id", c.UserID.String()),
		logger.String("role", string(c.Role)),
		logger.Bool("first_session", first),
	)
	return first
}

// Unregister removes a session and reports whether it was the principal's
// last live session. Safe to call more than once for the same client; later
// calls are no-ops returning false, so duplicate disconnect signals cannot
// double-fire presence side-effects.
func (h *Hub) Unregister(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.clients[c] {
		return false
	}
	delete(h.clients, c)
	close(c.send)

	for group := range h.memberships[c] {
		delete(h.groups[group], c)
		if len(h.groups[group]) == 0 {
			delete(h.groups, group)
		}
	}
	delete(h.memberships, c)

	delete(h.sessions[c.UserID], c)
	last := len(h.sessions[c.UserID]) == 0
	if last {
		delete(h.sessions, c.UserID)
	}

	h.logger.Info("Client unregistered",
		logger.String("client_id", c.ID),
		logger.String("user_id", c.UserID.String()),
		logger.Bool("last_session", last),
	)
	return last
}

// JoinGroup adds a session to a named broadcast group
func (h *Hub) JoinGroup(c *Client, group string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.joinLocked(c, group)
}

// LeaveGroup removes a session from a group
func (h *Hub) LeaveGroup(c *Client, group string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(c, group)
}

// SetGroupMember adds or removes every live session of a principal from a
// group. Voluntary availability changes use this: the sessions stay
// connected but group sends no longer reach them.
func (h *Hub) SetGroupMember(userID uuid.UUID, group string, member bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.sessions[userID] {
		if member {
			h.joinLocked(c, group)
		} else {
			h.leaveLocked(c, group)
		}
	}
}

func (h *Hub) joinLocked(c *Client, group string) {
	if !h.clients[c] {
		return
	}
	if h.groups[group] == nil {
		h.groups[group] = make(map[*Client]bool)
	}
	h.groups[group][c] = true
	if h.memberships[c] == nil {
		h.memberships[c] = make(map[string]bool)
	}
	h.memberships[c][group] = true
}

func (h *Hub) leaveLocked(c *Client, group string) {
	delete(h.groups[group], c)
	if len(h.groups[group]) == 0 {
		delete(h.groups, group)
	}
	delete(h.memberships[c], group)
}

// Groups returns the group names a session currently belongs to
func (h *Hub) Groups(c *Client) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	names := make([]string, 0, len(h.memberships[c]))
	for group := range h.memberships[c] {
		names = append(names, group)
	}
	return names
}

// NotifyUser delivers an event to every live session of a principal. Delivery
// is fire-and-forget: principals with no live session are silently skipped,
// and a full send buffer drops the message rather than blocking the caller.
func (h *Hub) NotifyUser(userID uuid.UUID, event string, payload interface{}) {
	data, err := json.Marshal(Message{Event: event, Data: payload})
	if err != nil {
		h.logger.Error("Failed to marshal message", logger.Err(err), logger.String("event", event))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.sessions[userID] {
		select {
		case c.send <- data:
		default:
			h.logger.Warn("Client send buffer full, dropping message",
				logger.String("client_id", c.ID),
				logger.String("event", event),
			)
		}
	}
}

// NotifyGroup delivers an event to every session in a named group
func (h *Hub) NotifyGroup(group, event string, payload interface{}) {
	data, err := json.Marshal(Message{Event: event, Data: payload})
	if err != nil {
		h.logger.Error("Failed to marshal group message", logger.Err(err), logger.String("event", event))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.groups[group] {
		select {
		case c.send <- data:
		default:
			h.logger.Warn("Client send buffer full, dropping group message",
				logger.String("client_id", c.ID),
				logger.String("group", group),
				logger.String("event", event),
			)
		}
	}
}

// SessionCount returns the number of live sessions for a principal
func (h *Hub) SessionCount(userID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[userID])
}

// GroupSize returns the number of sessions in a group
func (h *Hub) GroupSize(group string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups[group])
}

// ActiveConnections returns the number of live sessions
func (h *Hub) ActiveConnections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
