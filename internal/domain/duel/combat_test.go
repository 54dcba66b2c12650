package duel

import "testing"

func TestResolve_GuardProtectsGuarderOnly(t *testing.T) {
	for _, opp := range []Action{ActionAttack, ActionChargedAttack, ActionCharge, ActionNone, ActionGuard} {
		out := Resolve(ActionGuard, opp, 0, 3)
		if out.DamageTo1 != 0 {
			t.Fatalf("guard vs %s: expected damage to 1 = 0, got %d", opp, out.DamageTo1)
		}
		if out.DamageTo2 != 0 {
			t.Fatalf("guard vs %s: guard must deal no damage, got %d", opp, out.DamageTo2)
		}
	}
}

func TestResolve_DamageTable(t *testing.T) {
	cases := []struct {
		a1, a2 Action
		t1, t2 int
		want   Outcome
	}{
		{ActionAttack, ActionAttack, 0, 0, Outcome{DamageTo1: 6, DamageTo2: 6}},
		{ActionAttack, ActionNone, 0, 0, Outcome{DamageTo2: 6}},
		{ActionCharge, ActionAttack, 0, 0, Outcome{DamageTo1: 6, TokenDelta1: 1}},
		{ActionChargedAttack, ActionCharge, 1, 0, Outcome{DamageTo2: 15, TokenDelta1: -1, TokenDelta2: 1}},
		{ActionChargedAttack, ActionChargedAttack, 2, 1, Outcome{DamageTo1: 15, DamageTo2: 15, TokenDelta1: -1, TokenDelta2: -1}},
		{ActionAttack, ActionGuard, 0, 0, Outcome{}},
	}
	for _, tc := range cases {
		got := Resolve(tc.a1, tc.a2, tc.t1, tc.t2)
		if got != tc.want {
			t.Fatalf("Resolve(%s,%s,%d,%d)=%+v want %+v", tc.a1, tc.a2, tc.t1, tc.t2, got, tc.want)
		}
	}
}

func TestResolve_ChargedAttackWithoutTokensIsNone(t *testing.T) {
	got := Resolve(ActionChargedAttack, ActionNone, 0, 0)
	want := Resolve(ActionNone, ActionNone, 0, 0)
	if got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}

func TestDecideOutcome(t *testing.T) {
	cases := []struct {
		hp1, hp2 int
		finished bool
		winner   Seat
	}{
		{10, 10, false, SeatNone},
		{0, 0, true, SeatNone},
		{0, 5, true, Seat2},
		{5, 0, true, Seat1},
	}
	for _, tc := range cases {
		finished, winner := DecideOutcome(tc.hp1, tc.hp2)
		if finished != tc.finished || winner != tc.winner {
			t.Fatalf("DecideOutcome(%d,%d)=(%v,%d) want (%v,%d)", tc.hp1, tc.hp2, finished, winner, tc.finished, tc.winner)
		}
	}
}

func TestNormalizeAction(t *testing.T) {
	cases := map[string]Action{
		"attack":          ActionAttack,
		" Guard ":         ActionGuard,
		"charge":          ActionCharge,
		"charged_attack":  ActionChargedAttack,
		"none":            ActionNone,
		"":                ActionNone,
		"fireball":        ActionNone,
		"DROP TABLE turn": ActionNone,
	}
	for in, want := range cases {
		if got := NormalizeAction(in); got != want {
			t.Fatalf("NormalizeAction(%q)=%q want %q", in, got, want)
		}
	}
}

func TestGateAction(t *testing.T) {
	if got := GateAction(ActionChargedAttack, 0); got != ActionNone {
		t.Fatalf("expected none without tokens, got %s", got)
	}
	if got := GateAction(ActionChargedAttack, 1); got != ActionChargedAttack {
		t.Fatalf("expected charged_attack with a token, got %s", got)
	}
	if got := GateAction(ActionAttack, 0); got != ActionAttack {
		t.Fatalf("expected attack untouched, got %s", got)
	}
}
