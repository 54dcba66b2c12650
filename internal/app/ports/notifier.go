package ports

import (
	"context"

	"duelarena/internal/domain/duel"
)

// Notifier receives core events after the room's unit of work has committed.
// Implementations must not call back into the room synchronously while holding locks.
type Notifier interface {
	TurnResolved(ctx context.Context, evt duel.TurnResolvedEvent)
	RoomChanged(ctx context.Context, code string, reason string)
	Log(ctx context.Context, code string, text string)
}

type PresenceTracker interface {
	Connected(ctx context.Context, code, participantID string) error
	Disconnected(ctx context.Context, code, participantID string) error
	IsOnline(ctx context.Context, code, participantID string) (bool, error)
}
