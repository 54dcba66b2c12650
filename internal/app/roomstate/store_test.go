package roomstate

import (
	"context"
	"errors"
	"testing"
	"time"

	"duelarena/internal/adapter/repo/memory"
	"duelarena/internal/app/ports"
	"duelarena/internal/domain/duel"
)

func newTestStore(now *time.Time) Store {
	mem := memory.NewStore()
	return Store{
		Rooms: memory.NewRoomRepo(mem),
		Turns: memory.NewTurnRepo(mem),
		Tx:    memory.NewTxManager(mem),
		Rules: duel.DefaultRules(),
		Clock: func() time.Time { return *now },
	}
}

func TestGetOrCreateRoom_CreatesDefaultsAndTurnOne(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	s := newTestStore(&now)
	ctx := context.Background()

	room, created, err := s.GetOrCreateRoom(ctx, "123456")
	if err != nil {
		t.Fatalf("get or create: %v", err)
	}
	if !created {
		t.Fatalf("expected room to be created")
	}
	if room.P1HP != 40 || room.P2HP != 40 || room.Turn != 1 {
		t.Fatalf("unexpected defaults: %+v", room)
	}
	if !room.Deadline.Equal(now.Add(duel.DefaultTurnDuration)) {
		t.Fatalf("expected deadline now+30s, got %v", room.Deadline)
	}
	turn, err := s.Turns.GetTurn(ctx, "123456", 1)
	if err != nil {
		t.Fatalf("turn 1 missing: %v", err)
	}
	if turn.P1Action != duel.ActionNone || turn.P2Action != duel.ActionNone {
		t.Fatalf("expected default actions none, got %+v", turn)
	}

	_, created, err = s.GetOrCreateRoom(ctx, "123456")
	if err != nil || created {
		t.Fatalf("expected existing room, created=%v err=%v", created, err)
	}
}

func TestCreateRoom_ConflictOnTakenCode(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	s := newTestStore(&now)
	if _, err := s.CreateRoom(context.Background(), "111111"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.CreateRoom(context.Background(), "111111"); !errors.Is(err, ports.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestGetOrCreateCurrentTurn_PushesElapsedDeadline(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	s := newTestStore(&now)
	ctx := context.Background()
	if _, _, err := s.GetOrCreateRoom(ctx, "r"); err != nil {
		t.Fatalf("create: %v", err)
	}

	now = now.Add(5 * time.Minute)
	_, overdue, err := s.LoadCurrentTurn(ctx, "r")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !overdue.Deadline.Before(now) {
		t.Fatalf("LoadCurrentTurn must not extend the deadline")
	}

	room, turn, err := s.GetOrCreateCurrentTurn(ctx, "r")
	if err != nil {
		t.Fatalf("get current: %v", err)
	}
	want := now.Add(duel.DefaultTurnDuration)
	if !turn.Deadline.Equal(want) || !room.Deadline.Equal(want) {
		t.Fatalf("expected turn and room deadline %v, got %v / %v", want, turn.Deadline, room.Deadline)
	}
}

func TestAssignSeat_IdempotentJoin(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	s := newTestStore(&now)
	ctx := context.Background()

	first, err := s.AssignSeat(ctx, "r", "a")
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if _, err := s.AssignSeat(ctx, "r", "b"); err != nil {
		t.Fatalf("assign b: %v", err)
	}
	again, err := s.AssignSeat(ctx, "r", "a")
	if err != nil {
		t.Fatalf("assign again: %v", err)
	}
	if first != duel.Seat1 || again != duel.Seat1 {
		t.Fatalf("expected seat 1 twice, got %d then %d", first, again)
	}
	room, _ := s.GetRoom(ctx, "r")
	if room.P2ID != "b" {
		t.Fatalf("repeat join overwrote seat 2: %q", room.P2ID)
	}
	if seat, _ := s.AssignSeat(ctx, "r", "c"); seat != duel.SeatNone {
		t.Fatalf("expected no seat for third participant, got %d", seat)
	}
}

func TestSetAction_GatesAndDropsStaleOrUnseated(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	s := newTestStore(&now)
	ctx := context.Background()
	if _, err := s.AssignSeat(ctx, "r", "a"); err != nil {
		t.Fatalf("assign: %v", err)
	}

	res, err := s.SetAction(ctx, "r", "a", duel.ActionChargedAttack, 0)
	if err != nil {
		t.Fatalf("set: %v", err)
	}
	if !res.Accepted || res.Action != duel.ActionNone {
		t.Fatalf("expected charged_attack downgraded to none, got %+v", res)
	}

	res, err = s.SetAction(ctx, "r", "a", duel.Action("laser"), 0)
	if err != nil || res.Action != duel.ActionNone {
		t.Fatalf("expected unknown action stored as none, got %+v err=%v", res, err)
	}

	res, err = s.SetAction(ctx, "r", "a", duel.ActionAttack, 7)
	if err != nil {
		t.Fatalf("set stale: %v", err)
	}
	if res.Accepted || !res.Stale {
		t.Fatalf("expected stale drop, got %+v", res)
	}

	res, err = s.SetAction(ctx, "r", "nobody", duel.ActionAttack, 0)
	if err != nil {
		t.Fatalf("set unseated: %v", err)
	}
	if res.Accepted || res.Seat != duel.SeatNone {
		t.Fatalf("expected unseated submission ignored, got %+v", res)
	}
	turn, _ := s.Turns.GetTurn(ctx, "r", 1)
	if turn.P1Action != duel.ActionNone || turn.P2Action != duel.ActionNone {
		t.Fatalf("unexpected turn actions %+v", turn)
	}
}

func TestApplyResolution_RefusesResolvedTurn(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	s := newTestStore(&now)
	_, _, err := s.ApplyResolution(context.Background(), duel.Room{Code: "r"}, duel.Turn{Resolved: true}, duel.Outcome{})
	if !errors.Is(err, ports.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestApplyResolution_ChecksStoredTurnNotSnapshot(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	s := newTestStore(&now)
	ctx := context.Background()

	room, turn, err := s.GetOrCreateCurrentTurn(ctx, "r")
	if err != nil {
		t.Fatalf("load turn: %v", err)
	}
	outcome := duel.Resolve(duel.ActionAttack, duel.ActionAttack, 0, 0)
	if _, _, err := s.ApplyResolution(ctx, room, turn, outcome); err != nil {
		t.Fatalf("first resolution: %v", err)
	}
	// same unresolved snapshot again
	if _, _, err := s.ApplyResolution(ctx, room, turn, outcome); !errors.Is(err, ports.ErrConflict) {
		t.Fatalf("expected ErrConflict on second resolution, got %v", err)
	}

	got, err := s.GetRoom(ctx, "r")
	if err != nil {
		t.Fatalf("get room: %v", err)
	}
	if got.Turn != 2 || got.P1HP != 34 || got.P2HP != 34 {
		t.Fatalf("expected one resolution applied, got turn=%d hp=%d/%d", got.Turn, got.P1HP, got.P2HP)
	}
}

func TestProject_NotFound(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	s := newTestStore(&now)
	if _, err := s.Project(context.Background(), "missing", "a"); !errors.Is(err, ports.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
