package session

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"duelarena/internal/app/ports"
	"duelarena/internal/app/roomstate"
	"duelarena/internal/app/turn"
	"duelarena/internal/domain/duel"

	"github.com/rs/zerolog"
)

const roomCodeDigits = 6

var (
	ErrInvalidRequest = errors.New("invalid session request")
	ErrNoSuchRoom     = errors.New("no such room")
)

type WatcherStarter interface {
	Ensure(code string) bool
}

type UseCase struct {
	Store      roomstate.Store
	Resolver   turn.Resolver
	Watchers   WatcherStarter
	Notifier   ports.Notifier
	Presence   ports.PresenceTracker
	StrictJoin bool
	Logger     zerolog.Logger
}

// CreateRoom allocates a fresh numeric room code and opens turn 1.
func (u UseCase) CreateRoom(ctx context.Context) (CreateRoomResponse, error) {
	for i := 0; i < 3; i++ {
		code, err := newRoomCode()
		if err != nil {
			return CreateRoomResponse{}, err
		}
		_, err = u.Store.CreateRoom(ctx, code)
		if errors.Is(err, ports.ErrConflict) {
			continue
		}
		if err != nil {
			return CreateRoomResponse{}, err
		}
		u.Logger.Info().Str("room", code).Msg("room created")
		return CreateRoomResponse{Code: code}, nil
	}
	return CreateRoomResponse{}, ports.ErrConflict
}

// Join seats the participant, makes sure the room has an open turn and a
// running deadline watcher. Seat 0 means the room is full.
func (u UseCase) Join(ctx context.Context, req JoinRequest) (JoinResponse, error) {
	req.Code = strings.TrimSpace(req.Code)
	req.ParticipantID = strings.TrimSpace(req.ParticipantID)
	if req.Code == "" || req.ParticipantID == "" {
		return JoinResponse{}, ErrInvalidRequest
	}

	if u.StrictJoin {
		if _, err := u.Store.GetRoom(ctx, req.Code); err != nil {
			if errors.Is(err, ports.ErrNotFound) {
				return JoinResponse{}, ErrNoSuchRoom
			}
			return JoinResponse{}, err
		}
	}

	seat, err := u.Store.AssignSeat(ctx, req.Code, req.ParticipantID)
	if err != nil {
		return JoinResponse{}, fmt.Errorf("assign seat: %w", err)
	}
	if _, _, err := u.Store.GetOrCreateCurrentTurn(ctx, req.Code); err != nil {
		return JoinResponse{}, fmt.Errorf("current turn: %w", err)
	}
	if u.Watchers != nil {
		u.Watchers.Ensure(req.Code)
	}

	u.Logger.Info().Str("room", req.Code).Str("participant", req.ParticipantID).Int("seat", int(seat)).Msg("participant joined")
	if u.Notifier != nil {
		if seat != duel.SeatNone {
			u.Notifier.Log(ctx, req.Code, fmt.Sprintf("Player%d joined.", seat))
		}
		u.Notifier.RoomChanged(ctx, req.Code, "joined")
	}

	state, err := u.GetState(ctx, StateRequest{Code: req.Code, ParticipantID: req.ParticipantID})
	if err != nil {
		return JoinResponse{}, err
	}
	return JoinResponse{Seat: seat, State: state}, nil
}

// SubmitAction records an action and immediately tries to resolve the turn.
// Unknown action names are recorded as none; submissions for a turn that is no
// longer open are dropped and reported as stale.
func (u UseCase) SubmitAction(ctx context.Context, req SubmitRequest) (SubmitResponse, error) {
	req.Code = strings.TrimSpace(req.Code)
	if req.Code == "" || strings.TrimSpace(req.ParticipantID) == "" || req.Turn < 0 {
		return SubmitResponse{}, ErrInvalidRequest
	}

	set, err := u.Store.SetAction(ctx, req.Code, req.ParticipantID, duel.NormalizeAction(req.Action), req.Turn)
	if err != nil {
		return SubmitResponse{}, fmt.Errorf("set action: %w", err)
	}
	if u.Watchers != nil {
		u.Watchers.Ensure(req.Code)
	}
	out := SubmitResponse{Accepted: set.Accepted, Stale: set.Stale, Seat: set.Seat, Action: set.Action}

	if set.Accepted {
		if u.Notifier != nil {
			u.Notifier.Log(ctx, req.Code, "Action received.")
		}
		res, err := u.Resolver.AttemptResolve(ctx, turn.Attempt{
			Code:    req.Code,
			Turn:    set.Turn.Number,
			Force:   set.Turn.BothInput(),
			Trigger: ports.TriggerSubmission,
		})
		if err != nil {
			return SubmitResponse{}, err
		}
		out.Resolved = res.Performed
		if !res.Performed && u.Notifier != nil {
			u.Notifier.RoomChanged(ctx, req.Code, "picked")
		}
	}

	out.State, err = u.GetState(ctx, StateRequest{Code: req.Code, ParticipantID: req.ParticipantID})
	if err != nil {
		return SubmitResponse{}, err
	}
	return out, nil
}

// GetState is the read-only projection for one participant.
func (u UseCase) GetState(ctx context.Context, req StateRequest) (duel.StateView, error) {
	if strings.TrimSpace(req.Code) == "" {
		return duel.StateView{}, ErrInvalidRequest
	}
	room, err := u.Store.GetRoom(ctx, req.Code)
	if err != nil {
		return duel.StateView{}, err
	}
	view := room.Project(req.ParticipantID)
	if u.Presence != nil {
		if opp := room.Opponent(req.ParticipantID); opp != "" {
			online, err := u.Presence.IsOnline(ctx, req.Code, opp)
			if err != nil {
				u.Logger.Warn().Err(err).Str("room", req.Code).Msg("presence lookup failed")
				online = false
			}
			view.Opponent.Online = online
		}
	}
	return view, nil
}

// Connected and Disconnected track live connections for presence.
func (u UseCase) Connected(ctx context.Context, code, participantID string) {
	if u.Presence == nil {
		return
	}
	if err := u.Presence.Connected(ctx, code, participantID); err != nil {
		u.Logger.Warn().Err(err).Str("room", code).Msg("presence connect failed")
	}
}

func (u UseCase) Disconnected(ctx context.Context, code, participantID string) {
	if u.Presence != nil {
		if err := u.Presence.Disconnected(ctx, code, participantID); err != nil {
			u.Logger.Warn().Err(err).Str("room", code).Msg("presence disconnect failed")
		}
	}
	if u.Notifier != nil {
		u.Notifier.RoomChanged(ctx, code, "left")
	}
}

type presenceToucher interface {
	Touch(ctx context.Context, code string) error
}

// Heartbeat keeps expiring presence records alive while a connection is open.
func (u UseCase) Heartbeat(ctx context.Context, code string) {
	t, ok := u.Presence.(presenceToucher)
	if !ok {
		return
	}
	if err := t.Touch(ctx, code); err != nil {
		u.Logger.Warn().Err(err).Str("room", code).Msg("presence heartbeat failed")
	}
}

func newRoomCode() (string, error) {
	limit := big.NewInt(1_000_000)
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", roomCodeDigits, n.Int64()), nil
}
