package httpadapter

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"duelarena/internal/app/session"
	"duelarena/internal/domain/duel"

	"github.com/rs/zerolog"
)

const clientSendBuffer = 32

// StateProjector renders the per-participant view pushed after room changes.
type StateProjector interface {
	GetState(ctx context.Context, req session.StateRequest) (duel.StateView, error)
}

type serverMessage struct {
	Type          string          `json:"type"`
	Text          string          `json:"text,omitempty"`
	State         *duel.StateView `json:"state,omitempty"`
	Seat          *duel.Seat      `json:"seat,omitempty"`
	ParticipantID string          `json:"participant_id,omitempty"`
	Token         string          `json:"token,omitempty"`
	Turn          int             `json:"turn,omitempty"`
	Action1       duel.Action     `json:"p1_action,omitempty"`
	Action2       duel.Action     `json:"p2_action,omitempty"`
	Finished      bool            `json:"finished,omitempty"`
	Winner        duel.Seat       `json:"winner,omitempty"`
	ResolvedAt    *time.Time      `json:"resolved_at,omitempty"`
	Code          string          `json:"code,omitempty"`
}

type client struct {
	code string
	pid  string
	send chan []byte
}

// Hub keeps the live connections of every room and implements ports.Notifier
// by pushing events to them. Slow clients lose messages instead of blocking
// the room.
type Hub struct {
	mu     sync.RWMutex
	rooms  map[string]map[*client]struct{}
	states StateProjector
	logger zerolog.Logger
}

func NewHub(states StateProjector, logger zerolog.Logger) *Hub {
	return &Hub{
		rooms:  map[string]map[*client]struct{}{},
		states: states,
		logger: logger.With().Str("component", "hub").Logger(),
	}
}

// SetStates wires the projector after construction, since the session use
// case itself notifies the hub.
func (h *Hub) SetStates(states StateProjector) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.states = states
}

func (h *Hub) register(code, pid string) *client {
	c := &client{code: code, pid: pid, send: make(chan []byte, clientSendBuffer)}
	h.mu.Lock()
	defer h.mu.Unlock()
	conns, ok := h.rooms[code]
	if !ok {
		conns = map[*client]struct{}{}
		h.rooms[code] = conns
	}
	conns[c] = struct{}{}
	return c
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	conns, ok := h.rooms[c.code]
	if !ok {
		return
	}
	if _, ok := conns[c]; !ok {
		return
	}
	delete(conns, c)
	close(c.send)
	if len(conns) == 0 {
		delete(h.rooms, c.code)
	}
}

// Connections reports how many live connections a room has.
func (h *Hub) Connections(code string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[code])
}

func (h *Hub) Log(_ context.Context, code string, text string) {
	h.broadcast(code, serverMessage{Type: "log", Text: text})
}

func (h *Hub) TurnResolved(_ context.Context, evt duel.TurnResolvedEvent) {
	at := evt.ResolvedAt
	h.broadcast(evt.RoomCode, serverMessage{
		Type:       "resolved",
		Turn:       evt.TurnNumber,
		Action1:    evt.Action1,
		Action2:    evt.Action2,
		Finished:   evt.Finished,
		Winner:     evt.Winner,
		ResolvedAt: &at,
	})
}

// RoomChanged pushes a fresh state to every connection, each projected for
// its own participant.
func (h *Hub) RoomChanged(ctx context.Context, code string, _ string) {
	h.mu.RLock()
	states := h.states
	targets := make([]*client, 0, len(h.rooms[code]))
	for c := range h.rooms[code] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()
	if states == nil || len(targets) == 0 {
		return
	}

	views := map[string]duel.StateView{}
	for _, c := range targets {
		view, ok := views[c.pid]
		if !ok {
			var err error
			view, err = states.GetState(ctx, session.StateRequest{Code: code, ParticipantID: c.pid})
			if err != nil {
				h.logger.Warn().Err(err).Str("room", code).Str("participant", c.pid).Msg("project state failed")
				continue
			}
			views[c.pid] = view
		}
		h.sendTo(c, serverMessage{Type: "state", State: &view})
	}
}

func (h *Hub) broadcast(code string, msg serverMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error().Err(err).Msg("marshal message failed")
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.rooms[code] {
		h.deliver(c, data)
	}
}

func (h *Hub) sendTo(c *client, msg serverMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error().Err(err).Msg("marshal message failed")
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.rooms[c.code][c]; !ok {
		return
	}
	h.deliver(c, data)
}

// deliver must run under h.mu so the channel cannot be closed concurrently.
func (h *Hub) deliver(c *client, data []byte) {
	select {
	case c.send <- data:
	default:
		h.logger.Warn().Str("room", c.code).Str("participant", c.pid).Msg("client send buffer full; dropping message")
	}
}
