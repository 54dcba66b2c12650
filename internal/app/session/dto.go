package session

import "duelarena/internal/domain/duel"

type JoinRequest struct {
	Code          string
	ParticipantID string
}

type JoinResponse struct {
	Seat  duel.Seat      `json:"seat"`
	State duel.StateView `json:"state"`
}

type SubmitRequest struct {
	Code          string
	ParticipantID string
	Action        string
	Turn          int
}

type SubmitResponse struct {
	Accepted bool           `json:"accepted"`
	Stale    bool           `json:"stale"`
	Seat     duel.Seat      `json:"seat"`
	Action   duel.Action    `json:"action"`
	Resolved bool           `json:"resolved"`
	State    duel.StateView `json:"state"`
}

type StateRequest struct {
	Code          string
	ParticipantID string
}

type CreateRoomResponse struct {
	Code string `json:"code"`
}
