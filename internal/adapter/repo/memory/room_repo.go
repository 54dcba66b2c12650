package memory

import (
	"context"
	"sort"

	"duelarena/internal/app/ports"
	"duelarena/internal/domain/duel"
)

type RoomRepo struct {
	store *Store
}

func NewRoomRepo(store *Store) RoomRepo {
	return RoomRepo{store: store}
}

func (r RoomRepo) GetRoom(_ context.Context, code string) (duel.Room, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	room, ok := r.store.rooms[code]
	if !ok {
		return duel.Room{}, ports.ErrNotFound
	}
	return room, nil
}

func (r RoomRepo) CreateRoom(_ context.Context, room duel.Room) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, exists := r.store.rooms[room.Code]; exists {
		return ports.ErrConflict
	}
	r.store.rooms[room.Code] = room
	return nil
}

func (r RoomRepo) SaveRoom(_ context.Context, room duel.Room) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, exists := r.store.rooms[room.Code]; !exists {
		return ports.ErrNotFound
	}
	r.store.rooms[room.Code] = room
	return nil
}

func (r RoomRepo) ListOpenRoomCodes(_ context.Context) ([]string, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	out := make([]string, 0, len(r.store.rooms))
	for code, room := range r.store.rooms {
		if !room.Finished {
			out = append(out, code)
		}
	}
	sort.Strings(out)
	return out, nil
}
