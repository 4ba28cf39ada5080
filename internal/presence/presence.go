// Package presence tracks which users have live relay connections. A user is
// online exactly while they hold at least one connection, so presence is
// derived from connect/disconnect events rather than announced by clients.
package presence

import "sync"

type Tracker struct {
	mu    sync.Mutex
	conns map[int]map[string]struct{}
}

func NewTracker() *Tracker {
	return &Tracker{conns: make(map[int]map[string]struct{})}
}

// Add registers a connection for a user and reports whether it is their
// first, i.e. the user just came online.
func (t *Tracker) Add(userID int, connID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	set, ok := t.conns[userID]
	if !ok {
		set = make(map[string]struct{})
		t.conns[userID] = set
	}
	set[connID] = struct{}{}
	return len(set) == 1
}

// Remove drops a connection for a user and reports whether it was their
// last, i.e. the user just went offline. Unknown connections report false.
func (t *Tracker) Remove(userID int, connID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	set, ok := t.conns[userID]
	if !ok {
		return false
	}
	if _, ok := set[connID]; !ok {
		return false
	}
	delete(set, connID)
	if len(set) == 0 {
		delete(t.conns, userID)
		return true
	}
	return false
}

func (t *Tracker) Online(userID int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.conns[userID]) > 0
}

func (t *Tracker) OnlineUsers() []int {
	t.mu.Lock()
	defer t.mu.Unlock()

	users := make([]int, 0, len(t.conns))
	for userID := range t.conns {
		users = append(users, userID)
	}
	return users
}
