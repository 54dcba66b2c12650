package memory

import (
	"context"

	"duelarena/internal/app/ports"
	"duelarena/internal/domain/duel"
)

type TurnRepo struct {
	store *Store
}

func NewTurnRepo(store *Store) TurnRepo {
	return TurnRepo{store: store}
}

func (r TurnRepo) GetTurn(_ context.Context, code string, number int) (duel.Turn, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	t, ok := r.store.turns[turnKey(code, number)]
	if !ok {
		return duel.Turn{}, ports.ErrNotFound
	}
	return t, nil
}

func (r TurnRepo) CreateTurn(_ context.Context, turn duel.Turn) error {
	k := turnKey(turn.RoomCode, turn.Number)
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, exists := r.store.turns[k]; exists {
		return ports.ErrConflict
	}
	r.store.turns[k] = turn
	return nil
}

func (r TurnRepo) SaveTurn(_ context.Context, turn duel.Turn) error {
	k := turnKey(turn.RoomCode, turn.Number)
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, exists := r.store.turns[k]; !exists {
		return ports.ErrNotFound
	}
	r.store.turns[k] = turn
	return nil
}
