package turn

import (
	"context"
	"fmt"
	"strings"

	"duelarena/internal/app/ports"
	"duelarena/internal/app/roomstate"
	"duelarena/internal/domain/duel"

	"github.com/rs/zerolog"
)

// Attempt asks for the current turn of Code to be resolved. A non-zero Turn
// pins the attempt to that turn number; if another turn is open it is a no-op.
type Attempt struct {
	Code    string
	Turn    int
	Force   bool
	Trigger ports.Trigger
}

type Result struct {
	Performed bool
	Room      duel.Room
	Turn      duel.Turn
	Event     duel.TurnResolvedEvent
}

// Resolver moves the current turn of a room from open to resolved. The check
// of the resolved flag and the resolution write share one unit of work, so
// concurrent attempts on one turn resolve it exactly once.
type Resolver struct {
	Store    roomstate.Store
	Notifier ports.Notifier
	Metrics  ports.ResolutionMetrics
	Logger   zerolog.Logger
}

func (r Resolver) AttemptResolve(ctx context.Context, a Attempt) (Result, error) {
	if strings.TrimSpace(a.Code) == "" {
		return Result{}, roomstate.ErrInvalidRequest
	}
	if a.Trigger == "" {
		a.Trigger = ports.TriggerDeadline
	}

	var out Result
	err := r.Store.Tx.RunInRoom(ctx, a.Code, func(txCtx context.Context) error {
		room, turn, err := r.Store.LoadCurrentTurn(txCtx, a.Code)
		if err != nil {
			return err
		}
		out.Room, out.Turn = room, turn
		if turn.Resolved || (a.Turn > 0 && a.Turn != turn.Number) {
			return nil
		}
		now := r.Store.CurrentTime()
		if !a.Force && now.Before(turn.Deadline) && !turn.BothInput() {
			return nil
		}

		outcome := duel.Resolve(turn.P1Action, turn.P2Action, room.P1Tokens, room.P2Tokens)
		room, turn, err = r.Store.ApplyResolution(txCtx, room, turn, outcome)
		if err != nil {
			return err
		}
		out.Performed = true
		out.Room, out.Turn = room, turn
		out.Event = duel.TurnResolvedEvent{
			RoomCode:   room.Code,
			TurnNumber: turn.Number,
			Action1:    turn.P1Action,
			Action2:    turn.P2Action,
			Finished:   room.Finished,
			Winner:     room.Winner,
			ResolvedAt: now,
		}
		return nil
	})
	if err != nil {
		if r.Metrics != nil {
			r.Metrics.RecordFailure()
		}
		r.Logger.Error().Err(err).Str("room", a.Code).Str("trigger", string(a.Trigger)).Msg("resolve attempt failed")
		return Result{}, fmt.Errorf("attempt resolve %s: %w", a.Code, err)
	}

	if !out.Performed {
		if r.Metrics != nil {
			r.Metrics.RecordNoop(a.Trigger)
		}
		return out, nil
	}

	if r.Metrics != nil {
		r.Metrics.RecordResolved(a.Trigger)
		if out.Room.Finished {
			r.Metrics.RecordFinished(out.Room.Winner)
		}
	}
	r.Logger.Info().
		Str("room", a.Code).
		Int("turn", out.Event.TurnNumber).
		Str("trigger", string(a.Trigger)).
		Str("p1", string(out.Event.Action1)).
		Str("p2", string(out.Event.Action2)).
		Bool("finished", out.Room.Finished).
		Msg("turn resolved")
	if r.Notifier != nil {
		r.Notifier.TurnResolved(ctx, out.Event)
		r.Notifier.Log(ctx, a.Code, fmt.Sprintf("Turn %d resolved: P1=%s / P2=%s", out.Event.TurnNumber, out.Event.Action1, out.Event.Action2))
		r.Notifier.RoomChanged(ctx, a.Code, "resolved")
	}
	return out, nil
}
