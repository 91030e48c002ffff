// Package session tracks connected player sessions and the disconnect
// grace registry that lets an in-world character survive a dropped
// connection until the grace window expires.
package session

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/nymirith/adventure/internal/game/character"
	"github.com/nymirith/adventure/internal/game/command"
)

// Session is one live connection's game state: the character it controls
// and the dispatcher tracking its applicable command set.
type Session struct {
	// AccountID is the authenticated account. At most one live session
	// exists per account.
	AccountID int64
	// ConnID identifies the connection epoch. A stale disconnect for a
	// superseded connection must not tear down the successor's session.
	ConnID string

	Char       *character.Character
	Dispatcher *command.Dispatcher

	// Close tears down the session's transport. Set by the connection
	// owner; may be nil in tests.
	Close func()
}

// graceEntry holds a disconnected in-world character until it is reclaimed
// or evicted.
type graceEntry struct {
	char       *character.Character
	dispatcher *command.Dispatcher
	expiresAt  time.Time
}

// Manager tracks live sessions by account and the grace registry of
// disconnected in-world characters. All methods are safe for concurrent
// use; the characters themselves are still guarded by the engine's world
// lock.
type Manager struct {
	mu          sync.RWMutex
	graceWindow time.Duration
	live        map[int64]*Session
	grace       map[int64]*graceEntry
}

// NewManager creates an empty Manager with the given grace window.
//
// Precondition: graceWindow must be positive.
func NewManager(graceWindow time.Duration) *Manager {
	return &Manager{
		graceWindow: graceWindow,
		live:        make(map[int64]*Session),
		grace:       make(map[int64]*graceEntry),
	}
}

// Register adds a live session.
//
// Precondition: sess.AccountID and sess.ConnID must be set.
// Postcondition: Returns an error if the account already has a live
// session; the caller resolves that with Supersede first.
func (m *Manager) Register(sess *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.live[sess.AccountID]; exists {
		return fmt.Errorf("account %d already has a live session", sess.AccountID)
	}
	m.live[sess.AccountID] = sess
	return nil
}

// Reclaim removes and returns the account's grace entry, if one exists.
// Removal under the lock makes the eviction-versus-reconnect race resolve
// exactly once: either the reconnect gets the character or the sweep does,
// never both.
func (m *Manager) Reclaim(accountID int64) (*character.Character, *command.Dispatcher, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.grace[accountID]
	if !ok {
		return nil, nil, false
	}
	delete(m.grace, accountID)
	return entry.char, entry.dispatcher, true
}

// Supersede removes and returns the account's current live session so a
// new connection can take over.
func (m *Manager) Supersede(accountID int64) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.live[accountID]
	if !ok {
		return nil, false
	}
	delete(m.live, accountID)
	return sess, ok
}

// Disconnect removes the live session for the account if its connection
// epoch matches connID. An in-world character is parked in the grace
// registry; an intro-state character is discarded.
//
// Postcondition: Returns the removed session and whether it entered the
// grace registry. A connID mismatch is a stale disconnect and a no-op.
func (m *Manager) Disconnect(accountID int64, connID string, now time.Time) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.live[accountID]
	if !ok || sess.ConnID != connID {
		return nil, false
	}
	delete(m.live, accountID)

	if sess.Char.State != character.StateAdventure {
		return sess, false
	}
	m.grace[accountID] = &graceEntry{
		char:       sess.Char,
		dispatcher: sess.Dispatcher,
		expiresAt:  now.Add(m.graceWindow),
	}
	return sess, true
}

// SweepExpired removes every grace entry whose window has passed and
// returns the evicted characters for the caller to remove from the world
// and persist.
func (m *Manager) SweepExpired(now time.Time) []*character.Character {
	m.mu.Lock()
	defer m.mu.Unlock()
	var evicted []*character.Character
	for accountID, entry := range m.grace {
		if now.Before(entry.expiresAt) {
			continue
		}
		delete(m.grace, accountID)
		evicted = append(evicted, entry.char)
	}
	return evicted
}

// Get returns the live session for the account.
func (m *Manager) Get(accountID int64) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.live[accountID]
	return sess, ok
}

// Live returns a snapshot of the live sessions ordered by account id.
func (m *Manager) Live() []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Session, 0, len(m.live))
	for _, sess := range m.live {
		out = append(out, sess)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AccountID < out[j].AccountID })
	return out
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.live)
}

// GraceCount returns the number of characters held in the grace registry.
func (m *Manager) GraceCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.grace)
}
