package duel

import "time"

const (
	DefaultMaxHP        = 40
	DefaultTurnDuration = 30 * time.Second

	AttackDamage  = 6
	ChargedDamage = 15
)

type Action string

const (
	ActionAttack        Action = "attack"
	ActionGuard         Action = "guard"
	ActionCharge        Action = "charge"
	ActionChargedAttack Action = "charged_attack"
	ActionNone          Action = "none"
)

// Seat is a participant's side in a room. SeatNone doubles as "no winner".
type Seat int

const (
	SeatNone Seat = 0
	Seat1    Seat = 1
	Seat2    Seat = 2
)

// Rules carries the tunable parts of a duel. Damage values are fixed.
type Rules struct {
	MaxHP        int
	TurnDuration time.Duration
}

func DefaultRules() Rules {
	return Rules{MaxHP: DefaultMaxHP, TurnDuration: DefaultTurnDuration}
}

type Room struct {
	Code      string    `json:"code"`
	P1ID      string    `json:"p1_id,omitempty"`
	P2ID      string    `json:"p2_id,omitempty"`
	P1HP      int       `json:"p1_hp"`
	P2HP      int       `json:"p2_hp"`
	P1Tokens  int       `json:"p1_tokens"`
	P2Tokens  int       `json:"p2_tokens"`
	Turn      int       `json:"turn"`
	Deadline  time.Time `json:"deadline"`
	Finished  bool      `json:"finished"`
	Winner    Seat      `json:"winner"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	// ActiveAt is the last join or accepted submission. Deadline-forced
	// resolutions move UpdatedAt but not ActiveAt.
	ActiveAt  time.Time `json:"active_at"`
}

type Turn struct {
	RoomCode  string    `json:"room_code"`
	Number    int       `json:"number"`
	Deadline  time.Time `json:"deadline"`
	P1Action  Action    `json:"p1_action"`
	P2Action  Action    `json:"p2_action"`
	Resolved  bool      `json:"resolved"`
	CreatedAt time.Time `json:"created_at"`
}

// Outcome is the result of running the combat rules on one turn.
type Outcome struct {
	DamageTo1   int `json:"damage_to_1"`
	DamageTo2   int `json:"damage_to_2"`
	TokenDelta1 int `json:"token_delta_1"`
	TokenDelta2 int `json:"token_delta_2"`
}

// TurnResolvedEvent is emitted once per resolved turn.
type TurnResolvedEvent struct {
	RoomCode   string    `json:"room_code"`
	TurnNumber int       `json:"turn_number"`
	Action1    Action    `json:"action1"`
	Action2    Action    `json:"action2"`
	Finished   bool      `json:"finished"`
	Winner     Seat      `json:"winner"`
	ResolvedAt time.Time `json:"resolved_at"`
}

type PlayerView struct {
	Index  Seat `json:"index"`
	HP     int  `json:"hp"`
	Tokens int  `json:"tokens"`
}

type OpponentView struct {
	HP     int  `json:"hp"`
	Tokens int  `json:"tokens"`
	Online bool `json:"online"`
}

// StateView is the read-only projection of a room for one participant.
type StateView struct {
	RoomCode string       `json:"room_code"`
	Turn     int          `json:"turn"`
	Deadline time.Time    `json:"deadline"`
	Finished bool         `json:"finished"`
	Winner   Seat         `json:"winner"`
	You      PlayerView   `json:"you"`
	Opponent OpponentView `json:"op"`
}
