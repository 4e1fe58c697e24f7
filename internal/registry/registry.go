// Package registry owns the process-local map of live client connections.
// It is rebuilt from scratch on restart; nothing here is persisted.
package registry

import "sync"

// Conn is an opaque handle to a live, addressable client connection. Handles
// are compared by identity: Unregister removes whichever entry currently maps
// to the given handle, because a disconnect only carries the handle.
type Conn interface {
	Send(event string, payload any) error
}

type Registry struct {
	mu    sync.RWMutex
	conns map[string]Conn
}

func New() *Registry {
	return &Registry{
		conns: make(map[string]Conn),
	}
}

// Register binds a user to a connection. A re-registration replaces the
// previous handle; the most recent Register wins.
func (r *Registry) Register(userID string, conn Conn) {
	if userID == "" || conn == nil {
		return
	}

	r.mu.Lock()
	r.conns[userID] = conn
	r.mu.Unlock()
}

// Unregister removes the entry currently mapped to conn, if any. A handle
// that was already replaced by a newer registration is left alone.
func (r *Registry) Unregister(conn Conn) {
	if conn == nil {
		return
	}

	r.mu.Lock()
	for userID, c := range r.conns {
		if c == conn {
			delete(r.conns, userID)
		}
	}
	r.mu.Unlock()
}

// Lookup returns the live connection for a user, if one is registered.
func (r *Registry) Lookup(userID string) (Conn, bool) {
	r.mu.RLock()
	conn, ok := r.conns[userID]
	r.mu.RUnlock()
	return conn, ok
}

// Len reports the number of registered connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
