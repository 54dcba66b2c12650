package memory

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"duelarena/internal/app/shared/keyedmutex"
	"duelarena/internal/domain/duel"
)

// Store keeps rooms and turns in process memory. The map lock is held only for
// lookups; per-room exclusion comes from the keyed room locks.
type Store struct {
	mu    sync.RWMutex
	rooms map[string]duel.Room
	turns map[string]duel.Turn
	locks keyedmutex.Mutex
}

func NewStore() *Store {
	return &Store{
		rooms: make(map[string]duel.Room),
		turns: make(map[string]duel.Turn),
	}
}

func turnKey(code string, number int) string {
	return code + "#" + strconv.Itoa(number)
}

func (s *Store) SeedRoom(room duel.Room, turns ...duel.Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms[room.Code] = room
	for _, t := range turns {
		s.turns[turnKey(t.RoomCode, t.Number)] = t
	}
}

// IdleRoomCodes lists rooms whose last participant activity is before idleSince.
func (s *Store) IdleRoomCodes(_ context.Context, idleSince time.Time) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	codes := make([]string, 0)
	for code, room := range s.rooms {
		if room.ActiveAt.Before(idleSince) {
			codes = append(codes, code)
		}
	}
	sort.Strings(codes)
	return codes, nil
}

// EvictRoom drops the room and its turns if it is still idle.
func (s *Store) EvictRoom(ctx context.Context, code string, idleSince time.Time) (bool, error) {
	if !s.locks.Held(ctx, code) {
		unlock := s.locks.Lock(code)
		defer unlock()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[code]
	if !ok || !room.ActiveAt.Before(idleSince) {
		return false, nil
	}
	for n := 1; n <= room.Turn; n++ {
		delete(s.turns, turnKey(code, n))
	}
	delete(s.rooms, code)
	return true, nil
}
