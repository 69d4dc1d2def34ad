// Package session tracks one kiosk login: the active principal, the idle
// logout timer and the single-flight payment session slot.
package session

import (
	"context"
	"time"

	"github.com/obhonesty/server/internal/models"
)

// Session is the per-login state. It is always manipulated under the state
// container's lock; the cancel funcs only signal goroutines, they never
// block.
type Session struct {
	Nick    string
	Payment models.PaymentSession

	idleCancel context.CancelFunc
	pollCancel context.CancelFunc
}

// New creates a session for the given principal.
func New(nick string) *Session {
	return &Session{Nick: nick}
}

// StartIdleTimer arms the forced-logout countdown, replacing any running
// timer. onExpire fires once unless a navigation cancels the timer first.
func (s *Session) StartIdleTimer(timeout time.Duration, onExpire func()) {
	s.CancelIdleTimer()
	ctx, cancel := context.WithCancel(context.Background())
	s.idleCancel = cancel
	go func() {
		select {
		case <-time.After(timeout):
			onExpire()
		case <-ctx.Done():
		}
	}()
}

// CancelIdleTimer suppresses the pending forced logout, if any.
func (s *Session) CancelIdleTimer() {
	if s.idleCancel != nil {
		s.idleCancel()
		s.idleCancel = nil
	}
}

// BeginPoll cancels any in-flight payment poll and returns a fresh context
// for the next one. Starting checkout B while checkout A is awaiting
// payment must leave exactly one active session.
func (s *Session) BeginPoll() context.Context {
	s.CancelPoll()
	ctx, cancel := context.WithCancel(context.Background())
	s.pollCancel = cancel
	return ctx
}

// CancelPoll stops the payment poll loop, if one is running.
func (s *Session) CancelPoll() {
	if s.pollCancel != nil {
		s.pollCancel()
		s.pollCancel = nil
	}
}

// ClearPayment cancels the poll and resets every session-scoped payment
// field. Mandatory before a new checkout may open.
func (s *Session) ClearPayment() {
	s.CancelPoll()
	s.Payment = models.PaymentSession{}
}

// Close tears the session down entirely.
func (s *Session) Close() {
	s.CancelIdleTimer()
	s.ClearPayment()
}
