package memory

import "context"

// TxManager serializes each room's unit of work on the store's room locks.
// Memory writes apply immediately, so a failed fn is not rolled back.
type TxManager struct {
	store *Store
}

func NewTxManager(store *Store) TxManager {
	return TxManager{store: store}
}

func (t TxManager) RunInRoom(ctx context.Context, code string, fn func(ctx context.Context) error) error {
	if t.store.locks.Held(ctx, code) {
		return fn(ctx)
	}
	lockedCtx, unlock := t.store.locks.Enter(ctx, code)
	defer unlock()
	return fn(lockedCtx)
}
