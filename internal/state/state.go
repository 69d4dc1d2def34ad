// Package state holds the server's shared mutable state: the published
// snapshot and the per-principal login sessions. One mutex per container
// instance guards everything; the lock is held only for in-memory
// mutation, never across a call to an external gateway.
package state

import (
	"sync"
	"time"

	"github.com/obhonesty/server/internal/models"
	"github.com/obhonesty/server/internal/session"
)

// Container is the injected state holder. Not a package singleton.
type Container struct {
	mu       sync.RWMutex
	snap     *models.Snapshot
	sessions map[string]*session.Session
}

// NewContainer creates a container holding an empty snapshot.
func NewContainer() *Container {
	return &Container{
		snap:     models.EmptySnapshot(time.Time{}),
		sessions: make(map[string]*session.Session),
	}
}

// Snapshot returns the currently published snapshot. Callers must treat it
// as read-only.
func (c *Container) Snapshot() *models.Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap
}

// SetSnapshot atomically publishes a new snapshot. Readers observe either
// the old or the new one in full, never a mix.
func (c *Container) SetSnapshot(s *models.Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snap = s
}

// PatchServed mirrors an admin served toggle into the published snapshot
// without waiting for a reload. The snapshot stays immutable: a shallow
// copy with the patched order is swapped in.
func (c *Container) PatchServed(orderID, servedValue string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	orders := make([]models.Order, len(c.snap.Orders))
	copy(orders, c.snap.Orders)
	for i := range orders {
		if orders[i].OrderID == orderID {
			orders[i].Served = servedValue
			break
		}
	}
	next := *c.snap
	next.Orders = orders
	c.snap = &next
}

// Login opens a session for the principal, replacing any existing one.
// A new login resets the idle timer rather than stacking timers. With a
// positive timeout the principal is forcibly logged out unless a
// navigation cancels the countdown first.
func (c *Container) Login(nick string, idleTimeout time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if old, ok := c.sessions[nick]; ok {
		old.Close()
	}
	s := session.New(nick)
	c.sessions[nick] = s
	if idleTimeout > 0 {
		s.StartIdleTimer(idleTimeout, func() { c.Logout(nick) })
	}
}

// Logout closes and removes the principal's session.
func (c *Container) Logout(nick string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.sessions[nick]; ok {
		s.Close()
		delete(c.sessions, nick)
	}
}

// Active reports whether the principal has an open session.
func (c *Container) Active(nick string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.sessions[nick]
	return ok
}

// Touch records a navigation: it suppresses the pending forced logout.
func (c *Container) Touch(nick string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.sessions[nick]; ok {
		s.CancelIdleTimer()
	}
}

// WithSession runs fn on the principal's session under the lock. Returns
// false when no session is open. fn must not block or call out to a
// gateway.
func (c *Container) WithSession(nick string, fn func(*session.Session)) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.sessions[nick]
	if !ok {
		return false
	}
	fn(s)
	return true
}

// PaymentSession returns a copy of the principal's payment session state.
func (c *Container) PaymentSession(nick string) (models.PaymentSession, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.sessions[nick]
	if !ok {
		return models.PaymentSession{}, false
	}
	return s.Payment, true
}
