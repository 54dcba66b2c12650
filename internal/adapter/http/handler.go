package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"duelarena/internal/app/identity"
	"duelarena/internal/app/ports"
	"duelarena/internal/app/roomstate"
	"duelarena/internal/app/session"
	"duelarena/internal/domain/duel"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/cloudwego/hertz/pkg/route"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const participantTokenHeader = "X-Participant-Token"

type Handler struct {
	Session  session.UseCase
	Identity identity.Issuer
	Hub      *Hub
	KPI      kpiSnapshotProvider
	Logger   zerolog.Logger

	// SubmitRate and SubmitBurst bound how fast one live connection may send actions.
	SubmitRate  rate.Limit
	SubmitBurst int
}

func (h Handler) RegisterRoutes(r *route.Engine) {
	r.Use(corsMiddleware())

	r.POST("/api/rooms", h.createRoom)
	rooms := r.Group("/api/rooms")
	rooms.POST("/:code/join", h.join)
	rooms.POST("/:code/action", h.action)
	rooms.GET("/:code/state", h.state)

	r.GET("/ws/arena/:code", h.arena)
	r.GET("/ops/kpi", h.kpi)
	r.GET("/healthz", h.healthz)
}

type joinResponse struct {
	ParticipantID string         `json:"participant_id"`
	Token         string         `json:"token"`
	Seat          duel.Seat      `json:"seat"`
	State         duel.StateView `json:"state"`
}

type actionRequest struct {
	Action string `json:"action"`
	Turn   int    `json:"turn"`
}

func (h Handler) createRoom(c context.Context, ctx *app.RequestContext) {
	resp, err := h.Session.CreateRoom(c)
	if err != nil {
		h.writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusCreated, resp)
}

func (h Handler) join(c context.Context, ctx *app.RequestContext) {
	ident, _, err := h.Identity.Resolve(participantToken(ctx))
	if err != nil {
		h.writeError(ctx, err)
		return
	}
	resp, err := h.Session.Join(c, session.JoinRequest{Code: ctx.Param("code"), ParticipantID: ident.ParticipantID})
	if err != nil {
		h.writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, joinResponse{
		ParticipantID: ident.ParticipantID,
		Token:         ident.Token,
		Seat:          resp.Seat,
		State:         resp.State,
	})
}

func (h Handler) action(c context.Context, ctx *app.RequestContext) {
	pid, err := h.Identity.Verify(participantToken(ctx))
	if err != nil {
		h.writeError(ctx, err)
		return
	}
	var body actionRequest
	if err := decodeJSON(ctx, &body); err != nil {
		writeErrorBody(ctx, consts.StatusBadRequest, "invalid_json", "invalid json")
		return
	}
	resp, err := h.Session.SubmitAction(c, session.SubmitRequest{
		Code:          ctx.Param("code"),
		ParticipantID: pid,
		Action:        body.Action,
		Turn:          body.Turn,
	})
	if err != nil {
		h.writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, resp)
}

// state answers for anyone; without a valid token the caller sees the
// non-participant projection.
func (h Handler) state(c context.Context, ctx *app.RequestContext) {
	pid, _ := h.Identity.Verify(participantToken(ctx))
	view, err := h.Session.GetState(c, session.StateRequest{Code: ctx.Param("code"), ParticipantID: pid})
	if err != nil {
		h.writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, view)
}

type kpiSnapshotProvider interface {
	SnapshotAny() any
}

func (h Handler) kpi(_ context.Context, ctx *app.RequestContext) {
	if h.KPI == nil {
		writeErrorBody(ctx, consts.StatusNotFound, "not_configured", "kpi provider not configured")
		return
	}
	ctx.JSON(consts.StatusOK, h.KPI.SnapshotAny())
}

func (h Handler) healthz(_ context.Context, ctx *app.RequestContext) {
	ctx.JSON(consts.StatusOK, map[string]string{"status": "ok"})
}

func participantToken(ctx *app.RequestContext) string {
	if v := strings.TrimSpace(string(ctx.GetHeader(participantTokenHeader))); v != "" {
		return v
	}
	return strings.TrimSpace(ctx.Query("token"))
}

func decodeJSON(ctx *app.RequestContext, out any) error {
	body := ctx.Request.Body()
	if len(body) == 0 {
		return nil
	}
	return json.Unmarshal(body, out)
}

func (h Handler) writeError(ctx *app.RequestContext, err error) {
	status, code, message := classifyError(err)
	if status >= consts.StatusInternalServerError {
		h.Logger.Error().Err(err).Str("path", string(ctx.Path())).Msg("request failed")
	}
	writeErrorBody(ctx, status, code, message)
}

func classifyError(err error) (int, string, string) {
	switch {
	case errors.Is(err, identity.ErrInvalidToken):
		return consts.StatusUnauthorized, "invalid_token", err.Error()
	case errors.Is(err, session.ErrInvalidRequest),
		errors.Is(err, roomstate.ErrInvalidRequest),
		errors.Is(err, identity.ErrInvalidRequest):
		return consts.StatusBadRequest, "bad_request", err.Error()
	case errors.Is(err, session.ErrNoSuchRoom), errors.Is(err, ports.ErrNotFound):
		return consts.StatusNotFound, "not_found", err.Error()
	case errors.Is(err, ports.ErrConflict):
		return consts.StatusConflict, "conflict", err.Error()
	default:
		return consts.StatusInternalServerError, "internal_error", "internal error"
	}
}

func writeErrorBody(ctx *app.RequestContext, status int, code, message string) {
	ctx.JSON(status, map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}
