// Package server tracks the set of live client connections through the
// Registry type, the single source of truth for who receives broadcasts.
package server

import (
	"errors"
	"sync"
)

// ErrAlreadyRegistered is returned when the same connection handle is
// registered twice. This indicates a programming error in the session
// handler; it should never surface in normal operation.
var ErrAlreadyRegistered = errors.New("connection already registered")

// Registry holds the authoritative set of live client connections. A client
// is in the registry exactly while its read loop is active. All methods are
// safe for concurrent use; broadcasts never iterate the live set directly but
// work on snapshots.
type Registry struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
}

// NewRegistry creates an empty connection registry.
func NewRegistry() *Registry {
	return &Registry{
		clients: make(map[*Client]struct{}),
	}
}

// Register adds a connection to the live set. It fails with
// ErrAlreadyRegistered if the handle is already present.
func (r *Registry) Register(c *Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.clients[c]; exists {
		return ErrAlreadyRegistered
	}
	r.clients[c] = struct{}{}
	return nil
}

// Unregister removes a connection if present and reports whether this call
// removed it. Unregistering an absent connection is a no-op, so racing
// cleanup paths can both call it safely; only one caller sees true.
func (r *Registry) Unregister(c *Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.clients[c]; !exists {
		return false
	}
	delete(r.clients, c)
	return true
}

// Snapshot returns a point-in-time copy of the live set, safe to iterate
// while registrations change concurrently.
func (r *Registry) Snapshot() []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	clients := make([]*Client, 0, len(r.clients))
	for c := range r.clients {
		clients = append(clients, c)
	}
	return clients
}

// Count returns the current number of live connections. It is used for
// notice text only; a reader may observe a stale count by the time a notice
// is delivered.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// contains reports whether the connection is currently live.
func (r *Registry) contains(c *Client) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.clients[c]
	return exists
}
