// Package notify combines several ports.Notifier sinks into one.
package notify

import (
	"context"

	"duelarena/internal/app/ports"
	"duelarena/internal/domain/duel"
)

// Fanout forwards every event to each sink in order. Nil sinks are skipped.
type Fanout []ports.Notifier

func (f Fanout) TurnResolved(ctx context.Context, evt duel.TurnResolvedEvent) {
	for _, n := range f {
		if n != nil {
			n.TurnResolved(ctx, evt)
		}
	}
}

func (f Fanout) RoomChanged(ctx context.Context, code string, reason string) {
	for _, n := range f {
		if n != nil {
			n.RoomChanged(ctx, code, reason)
		}
	}
}

func (f Fanout) Log(ctx context.Context, code string, text string) {
	for _, n := range f {
		if n != nil {
			n.Log(ctx, code, text)
		}
	}
}
