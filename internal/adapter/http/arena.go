package httpadapter

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"duelarena/internal/app/identity"
	"duelarena/internal/app/session"
	"duelarena/internal/domain/duel"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/hertz-contrib/websocket"
	"golang.org/x/time/rate"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10

	spectatorNotice = "room is full; spectating is not supported"
)

var upgrader = websocket.HertzUpgrader{
	CheckOrigin: func(*app.RequestContext) bool { return true },
}

type clientMessage struct {
	Type   string `json:"type"`
	Action string `json:"action"`
	Turn   int    `json:"turn"`
}

// arena upgrades to a websocket. The participant is taken from the token
// query parameter; a missing or expired token gets a fresh identity which is
// sent back in the welcome message.
func (h Handler) arena(c context.Context, ctx *app.RequestContext) {
	code := strings.TrimSpace(ctx.Param("code"))
	if code == "" {
		writeErrorBody(ctx, consts.StatusBadRequest, "bad_request", "missing room code")
		return
	}
	ident, _, err := h.Identity.Resolve(participantToken(ctx))
	if err != nil {
		h.writeError(ctx, err)
		return
	}
	if h.Hub == nil {
		writeErrorBody(ctx, consts.StatusNotFound, "not_configured", "live channel not configured")
		return
	}

	connCtx := context.WithoutCancel(c)
	err = upgrader.Upgrade(ctx, func(conn *websocket.Conn) {
		h.serveArena(connCtx, conn, code, ident)
	})
	if err != nil {
		h.Logger.Warn().Err(err).Str("room", code).Msg("websocket upgrade failed")
	}
}

func (h Handler) serveArena(ctx context.Context, conn *websocket.Conn, code string, ident identity.Identity) {
	logger := h.Logger.With().Str("room", code).Str("participant", ident.ParticipantID).Logger()
	cl := h.Hub.register(code, ident.ParticipantID)
	h.Session.Connected(ctx, code, ident.ParticipantID)

	done := make(chan struct{})
	go h.writePump(ctx, conn, cl, done)
	defer func() {
		h.Hub.unregister(cl)
		<-done
		_ = conn.Close()
		h.Session.Disconnected(ctx, code, ident.ParticipantID)
		logger.Debug().Msg("connection closed")
	}()

	joined, err := h.Session.Join(ctx, session.JoinRequest{Code: code, ParticipantID: ident.ParticipantID})
	if err != nil {
		_, errCode, msg := classifyError(err)
		h.Hub.sendTo(cl, serverMessage{Type: "error", Code: errCode, Text: msg})
		return
	}
	seat := joined.Seat
	h.Hub.sendTo(cl, serverMessage{
		Type:          "welcome",
		ParticipantID: ident.ParticipantID,
		Token:         ident.Token,
		Seat:          &seat,
		State:         &joined.State,
	})
	if seat == duel.SeatNone {
		h.Hub.sendTo(cl, serverMessage{Type: "log", Text: spectatorNotice})
	}

	h.readPump(ctx, conn, cl)
}

func (h Handler) readPump(ctx context.Context, conn *websocket.Conn, cl *client) {
	limiter := rate.NewLimiter(h.submitRate(), h.submitBurst())
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.Logger.Debug().Err(err).Str("room", cl.code).Msg("read failed")
			}
			return
		}
		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			h.Hub.sendTo(cl, serverMessage{Type: "error", Code: "invalid_json", Text: "invalid json"})
			continue
		}
		switch msg.Type {
		case "action":
			if !limiter.Allow() {
				h.Hub.sendTo(cl, serverMessage{Type: "error", Code: "rate_limited", Text: "too many actions"})
				continue
			}
			res, err := h.Session.SubmitAction(ctx, session.SubmitRequest{
				Code:          cl.code,
				ParticipantID: cl.pid,
				Action:        msg.Action,
				Turn:          msg.Turn,
			})
			if err != nil {
				_, errCode, text := classifyError(err)
				if errCode == "internal_error" {
					h.Logger.Error().Err(err).Str("room", cl.code).Msg("submit action failed")
				}
				h.Hub.sendTo(cl, serverMessage{Type: "error", Code: errCode, Text: text})
				continue
			}
			if res.Stale {
				h.Hub.sendTo(cl, serverMessage{Type: "stale", Turn: res.State.Turn})
			}
		case "state":
			view, err := h.Session.GetState(ctx, session.StateRequest{Code: cl.code, ParticipantID: cl.pid})
			if err != nil {
				_, errCode, text := classifyError(err)
				h.Hub.sendTo(cl, serverMessage{Type: "error", Code: errCode, Text: text})
				continue
			}
			h.Hub.sendTo(cl, serverMessage{Type: "state", State: &view})
		default:
			h.Hub.sendTo(cl, serverMessage{Type: "error", Code: "unknown_type", Text: "unknown message type"})
		}
	}
}

func (h Handler) writePump(ctx context.Context, conn *websocket.Conn, cl *client, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case data, ok := <-cl.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				// unblock the reader; it unregisters and drains
				_ = conn.Close()
				drain(cl.send)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				_ = conn.Close()
				drain(cl.send)
				return
			}
			h.Session.Heartbeat(ctx, cl.code)
		}
	}
}

func drain(ch <-chan []byte) {
	for range ch {
	}
}

func (h Handler) submitRate() rate.Limit {
	if h.SubmitRate <= 0 {
		return rate.Limit(5)
	}
	return h.SubmitRate
}

func (h Handler) submitBurst() int {
	if h.SubmitBurst <= 0 {
		return 10
	}
	return h.SubmitBurst
}
