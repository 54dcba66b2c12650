package duel

import "time"

func NewRoom(code string, rules Rules, now time.Time) Room {
	return Room{
		Code:      code,
		P1HP:      rules.MaxHP,
		P2HP:      rules.MaxHP,
		Turn:      1,
		Deadline:  now.Add(rules.TurnDuration),
		CreatedAt: now,
		UpdatedAt: now,
		ActiveAt:  now,
	}
}

func NewTurn(room Room) Turn {
	return Turn{
		RoomCode:  room.Code,
		Number:    room.Turn,
		Deadline:  room.Deadline,
		P1Action:  ActionNone,
		P2Action:  ActionNone,
		CreatedAt: room.UpdatedAt,
	}
}

// Touch records participant activity at now.
func (r *Room) Touch(now time.Time) {
	r.UpdatedAt = now
	r.ActiveAt = now
}

func (r Room) SeatOf(participantID string) Seat {
	switch {
	case participantID == "":
		return SeatNone
	case r.P1ID == participantID:
		return Seat1
	case r.P2ID == participantID:
		return Seat2
	default:
		return SeatNone
	}
}

// AssignSeat is idempotent: a seated participant keeps their seat, otherwise
// seat 1 is filled before seat 2. It returns SeatNone when the room is full.
func (r *Room) AssignSeat(participantID string) (Seat, bool) {
	if participantID == "" {
		return SeatNone, false
	}
	if s := r.SeatOf(participantID); s != SeatNone {
		return s, false
	}
	switch {
	case r.P1ID == "":
		r.P1ID = participantID
		return Seat1, true
	case r.P2ID == "":
		r.P2ID = participantID
		return Seat2, true
	default:
		return SeatNone, false
	}
}

func (r Room) HP(s Seat) int {
	switch s {
	case Seat1:
		return r.P1HP
	case Seat2:
		return r.P2HP
	default:
		return 0
	}
}

func (r Room) Tokens(s Seat) int {
	switch s {
	case Seat1:
		return r.P1Tokens
	case Seat2:
		return r.P2Tokens
	default:
		return 0
	}
}

// ApplyOutcome floors HP at zero, clamps tokens at zero and records the result.
func (r *Room) ApplyOutcome(o Outcome) {
	r.P1HP = max(0, r.P1HP-o.DamageTo1)
	r.P2HP = max(0, r.P2HP-o.DamageTo2)
	r.P1Tokens = max(0, r.P1Tokens+o.TokenDelta1)
	r.P2Tokens = max(0, r.P2Tokens+o.TokenDelta2)
	r.Finished, r.Winner = DecideOutcome(r.P1HP, r.P2HP)
}

// Advance opens the next turn number with a fresh deadline.
func (r *Room) Advance(now time.Time, d time.Duration) {
	r.Turn++
	r.Deadline = now.Add(d)
	r.UpdatedAt = now
}

func (t Turn) Action(s Seat) Action {
	switch s {
	case Seat1:
		return t.P1Action
	case Seat2:
		return t.P2Action
	default:
		return ActionNone
	}
}

func (t *Turn) SetAction(s Seat, a Action) {
	switch s {
	case Seat1:
		t.P1Action = a
	case Seat2:
		t.P2Action = a
	}
}

func (t Turn) BothInput() bool {
	return t.P1Action != ActionNone && t.P2Action != ActionNone
}

// Project builds the view of the room for participantID. Non-participants see zeros.
func (r Room) Project(participantID string) StateView {
	self := r.SeatOf(participantID)
	opp := SeatNone
	switch self {
	case Seat1:
		opp = Seat2
	case Seat2:
		opp = Seat1
	}
	return StateView{
		RoomCode: r.Code,
		Turn:     r.Turn,
		Deadline: r.Deadline,
		Finished: r.Finished,
		Winner:   r.Winner,
		You:      PlayerView{Index: self, HP: r.HP(self), Tokens: r.Tokens(self)},
		Opponent: OpponentView{HP: r.HP(opp), Tokens: r.Tokens(opp)},
	}
}

func (r Room) Opponent(participantID string) string {
	switch r.SeatOf(participantID) {
	case Seat1:
		return r.P2ID
	case Seat2:
		return r.P1ID
	default:
		return ""
	}
}
