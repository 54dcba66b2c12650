package keyedmutex

import "context"

type heldKey struct {
	m   *Mutex
	key string
}

// Held reports whether ctx was returned by Enter for key on this mutex.
func (m *Mutex) Held(ctx context.Context, key string) bool {
	held, _ := ctx.Value(heldKey{m: m, key: key}).(bool)
	return held
}

// Enter locks key and returns a context marking it held, so nested units of
// work for the same key can check Held instead of locking again.
func (m *Mutex) Enter(ctx context.Context, key string) (context.Context, func()) {
	unlock := m.Lock(key)
	return context.WithValue(ctx, heldKey{m: m, key: key}, true), unlock
}
