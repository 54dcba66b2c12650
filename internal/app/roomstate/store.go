// Package roomstate owns the mutable state of every duel. All operations run
// inside the room's unit of work and join an enclosing one for the same room.
package roomstate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"duelarena/internal/app/ports"
	"duelarena/internal/domain/duel"
)

var ErrInvalidRequest = errors.New("invalid room state request")

type Store struct {
	Rooms ports.RoomRepository
	Turns ports.TurnRepository
	Tx    ports.RoomTxManager
	Rules duel.Rules
	Clock func() time.Time
}

// SetActionResult reports what SetAction recorded.
type SetActionResult struct {
	Seat     duel.Seat
	Action   duel.Action
	Turn     duel.Turn
	Accepted bool
	Stale    bool
}

func (s Store) CurrentTime() time.Time {
	if s.Clock == nil {
		return time.Now()
	}
	return s.Clock()
}

func (s Store) rules() duel.Rules {
	r := s.Rules
	def := duel.DefaultRules()
	if r.MaxHP <= 0 {
		r.MaxHP = def.MaxHP
	}
	if r.TurnDuration <= 0 {
		r.TurnDuration = def.TurnDuration
	}
	return r
}

// CreateRoom creates a fresh room with turn 1. It fails with ports.ErrConflict
// when the code is taken.
func (s Store) CreateRoom(ctx context.Context, code string) (duel.Room, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return duel.Room{}, ErrInvalidRequest
	}
	var out duel.Room
	err := s.Tx.RunInRoom(ctx, code, func(txCtx context.Context) error {
		room, err := s.createRoom(txCtx, code)
		out = room
		return err
	})
	return out, err
}

func (s Store) GetRoom(ctx context.Context, code string) (duel.Room, error) {
	var out duel.Room
	err := s.Tx.RunInRoom(ctx, code, func(txCtx context.Context) error {
		room, err := s.Rooms.GetRoom(txCtx, code)
		out = room
		return err
	})
	return out, err
}

// GetOrCreateRoom returns the room for code, creating it with default stats
// and an open turn 1 when it does not exist yet.
func (s Store) GetOrCreateRoom(ctx context.Context, code string) (duel.Room, bool, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return duel.Room{}, false, ErrInvalidRequest
	}
	var (
		out     duel.Room
		created bool
	)
	err := s.Tx.RunInRoom(ctx, code, func(txCtx context.Context) error {
		room, ok, err := s.getOrCreateRoom(txCtx, code)
		out, created = room, ok
		return err
	})
	return out, created, err
}

// GetOrCreateCurrentTurn returns the open turn of the room. An unresolved turn
// whose deadline already passed gets a fresh deadline, which revives rooms
// stalled by a restart.
func (s Store) GetOrCreateCurrentTurn(ctx context.Context, code string) (duel.Room, duel.Turn, error) {
	return s.loadCurrent(ctx, code, true)
}

// LoadCurrentTurn is GetOrCreateCurrentTurn without the deadline push. The
// resolver uses it so overdue turns stay overdue.
func (s Store) LoadCurrentTurn(ctx context.Context, code string) (duel.Room, duel.Turn, error) {
	return s.loadCurrent(ctx, code, false)
}

// AssignSeat seats participantID and counts as activity for seated
// participants, including ones reconnecting to a seat they already hold.
func (s Store) AssignSeat(ctx context.Context, code, participantID string) (duel.Seat, error) {
	participantID = strings.TrimSpace(participantID)
	if participantID == "" {
		return duel.SeatNone, ErrInvalidRequest
	}
	var seat duel.Seat
	err := s.Tx.RunInRoom(ctx, code, func(txCtx context.Context) error {
		room, _, err := s.getOrCreateRoom(txCtx, code)
		if err != nil {
			return err
		}
		assigned, _ := room.AssignSeat(participantID)
		seat = assigned
		if seat == duel.SeatNone {
			return nil
		}
		room.Touch(s.CurrentTime())
		return s.Rooms.SaveRoom(txCtx, room)
	})
	return seat, err
}

// SetAction records action for the participant's seat in the current turn.
// turnNumber 0 targets whatever turn is open; any other number that is not the
// open turn is treated as stale and dropped. Unseated participants are ignored.
func (s Store) SetAction(ctx context.Context, code, participantID string, action duel.Action, turnNumber int) (SetActionResult, error) {
	var out SetActionResult
	err := s.Tx.RunInRoom(ctx, code, func(txCtx context.Context) error {
		room, turn, err := s.currentTx(txCtx, code, false)
		if err != nil {
			return err
		}
		out.Turn = turn
		out.Seat = room.SeatOf(participantID)
		if out.Seat == duel.SeatNone {
			return nil
		}
		if room.Finished || turn.Resolved || (turnNumber > 0 && turnNumber != room.Turn) {
			out.Stale = true
			return nil
		}
		if !action.IsValid() {
			action = duel.ActionNone
		}
		out.Action = duel.GateAction(action, room.Tokens(out.Seat))
		turn.SetAction(out.Seat, out.Action)
		if err := s.Turns.SaveTurn(txCtx, turn); err != nil {
			return fmt.Errorf("save turn: %w", err)
		}
		room.Touch(s.CurrentTime())
		if err := s.Rooms.SaveRoom(txCtx, room); err != nil {
			return fmt.Errorf("save room: %w", err)
		}
		out.Turn = turn
		out.Accepted = true
		return nil
	})
	return out, err
}

// ApplyResolution marks turn resolved, applies outcome to the room and, unless
// the match ended, opens the next turn in the same unit of work. A turn that is
// already resolved in the store fails with ports.ErrConflict, whatever the
// caller's copy says.
func (s Store) ApplyResolution(ctx context.Context, room duel.Room, turn duel.Turn, outcome duel.Outcome) (duel.Room, duel.Turn, error) {
	if turn.Resolved {
		return room, turn, ports.ErrConflict
	}
	err := s.Tx.RunInRoom(ctx, room.Code, func(txCtx context.Context) error {
		stored, err := s.Turns.GetTurn(txCtx, room.Code, turn.Number)
		if err != nil {
			return fmt.Errorf("get turn %d: %w", turn.Number, err)
		}
		if stored.Resolved {
			return ports.ErrConflict
		}
		now := s.CurrentTime()
		room.ApplyOutcome(outcome)
		room.UpdatedAt = now
		turn.Resolved = true
		if err := s.Turns.SaveTurn(txCtx, turn); err != nil {
			return fmt.Errorf("save resolved turn: %w", err)
		}
		if !room.Finished {
			room.Advance(now, s.rules().TurnDuration)
			if err := s.Turns.CreateTurn(txCtx, duel.NewTurn(room)); err != nil {
				return fmt.Errorf("create turn %d: %w", room.Turn, err)
			}
		}
		if err := s.Rooms.SaveRoom(txCtx, room); err != nil {
			return fmt.Errorf("save room: %w", err)
		}
		return nil
	})
	return room, turn, err
}

// Project returns the read-only view of the room for participantID.
func (s Store) Project(ctx context.Context, code, participantID string) (duel.StateView, error) {
	room, err := s.GetRoom(ctx, code)
	if err != nil {
		return duel.StateView{}, err
	}
	return room.Project(participantID), nil
}

func (s Store) loadCurrent(ctx context.Context, code string, heal bool) (duel.Room, duel.Turn, error) {
	var (
		room duel.Room
		turn duel.Turn
	)
	err := s.Tx.RunInRoom(ctx, code, func(txCtx context.Context) error {
		var err error
		room, turn, err = s.currentTx(txCtx, code, heal)
		return err
	})
	return room, turn, err
}

func (s Store) currentTx(ctx context.Context, code string, heal bool) (duel.Room, duel.Turn, error) {
	room, _, err := s.getOrCreateRoom(ctx, code)
	if err != nil {
		return duel.Room{}, duel.Turn{}, err
	}
	now := s.CurrentTime()
	turn, err := s.Turns.GetTurn(ctx, code, room.Turn)
	switch {
	case errors.Is(err, ports.ErrNotFound):
		if room.Deadline.IsZero() {
			room.Deadline = now.Add(s.rules().TurnDuration)
		}
		turn = duel.NewTurn(room)
		if err := s.Turns.CreateTurn(ctx, turn); err != nil {
			return duel.Room{}, duel.Turn{}, fmt.Errorf("create turn %d: %w", turn.Number, err)
		}
	case err != nil:
		return duel.Room{}, duel.Turn{}, fmt.Errorf("get turn %d: %w", room.Turn, err)
	}

	if heal && !room.Finished && !turn.Resolved && turn.Deadline.Before(now) {
		turn.Deadline = now.Add(s.rules().TurnDuration)
		room.Deadline = turn.Deadline
		room.UpdatedAt = now
		if err := s.Turns.SaveTurn(ctx, turn); err != nil {
			return duel.Room{}, duel.Turn{}, fmt.Errorf("extend turn: %w", err)
		}
		if err := s.Rooms.SaveRoom(ctx, room); err != nil {
			return duel.Room{}, duel.Turn{}, fmt.Errorf("extend room: %w", err)
		}
	}
	return room, turn, nil
}

func (s Store) getOrCreateRoom(ctx context.Context, code string) (duel.Room, bool, error) {
	room, err := s.Rooms.GetRoom(ctx, code)
	if err == nil {
		return room, false, nil
	}
	if !errors.Is(err, ports.ErrNotFound) {
		return duel.Room{}, false, fmt.Errorf("get room: %w", err)
	}
	room, err = s.createRoom(ctx, code)
	if errors.Is(err, ports.ErrConflict) {
		room, err = s.Rooms.GetRoom(ctx, code)
		return room, false, err
	}
	if err != nil {
		return duel.Room{}, false, err
	}
	return room, true, nil
}

func (s Store) createRoom(ctx context.Context, code string) (duel.Room, error) {
	room := duel.NewRoom(code, s.rules(), s.CurrentTime())
	if err := s.Rooms.CreateRoom(ctx, room); err != nil {
		if errors.Is(err, ports.ErrConflict) {
			return duel.Room{}, err
		}
		return duel.Room{}, fmt.Errorf("create room: %w", err)
	}
	if err := s.Turns.CreateTurn(ctx, duel.NewTurn(room)); err != nil {
		return duel.Room{}, fmt.Errorf("create turn 1: %w", err)
	}
	return room, nil
}
