// Package inmemory tracks live connections per room participant in process memory.
package inmemory

import (
	"context"
	"sync"
)

// Tracker counts connections, so a participant with two tabs open stays
// online until both close.
type Tracker struct {
	mu    sync.Mutex
	rooms map[string]map[string]int
}

func NewTracker() *Tracker {
	return &Tracker{rooms: map[string]map[string]int{}}
}

func (t *Tracker) Connected(_ context.Context, code, participantID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	conns, ok := t.rooms[code]
	if !ok {
		conns = map[string]int{}
		t.rooms[code] = conns
	}
	conns[participantID]++
	return nil
}

func (t *Tracker) Disconnected(_ context.Context, code, participantID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	conns, ok := t.rooms[code]
	if !ok {
		return nil
	}
	if conns[participantID] <= 1 {
		delete(conns, participantID)
	} else {
		conns[participantID]--
	}
	if len(conns) == 0 {
		delete(t.rooms, code)
	}
	return nil
}

func (t *Tracker) IsOnline(_ context.Context, code, participantID string) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rooms[code][participantID] > 0, nil
}
