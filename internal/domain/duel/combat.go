package duel

// Resolve computes both sides' effects from the same pre-turn snapshot.
// A side that guards takes no damage this turn whatever the opponent did.
func Resolve(action1, action2 Action, tokens1, tokens2 int) Outcome {
	a1 := GateAction(action1, tokens1)
	a2 := GateAction(action2, tokens2)

	out := Outcome{
		DamageTo1:   a2.damage(),
		DamageTo2:   a1.damage(),
		TokenDelta1: a1.tokenDelta(),
		TokenDelta2: a2.tokenDelta(),
	}
	if a1 == ActionGuard {
		out.DamageTo1 = 0
	}
	if a2 == ActionGuard {
		out.DamageTo2 = 0
	}
	return out
}

// DecideOutcome reports whether the match is over after a resolution and who won.
// Both sides at zero is a draw.
func DecideOutcome(hp1, hp2 int) (finished bool, winner Seat) {
	switch {
	case hp1 <= 0 && hp2 <= 0:
		return true, SeatNone
	case hp1 <= 0:
		return true, Seat2
	case hp2 <= 0:
		return true, Seat1
	default:
		return false, SeatNone
	}
}
