package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"duelarena/internal/app/ports"
	"duelarena/internal/domain/duel"
)

func TestTurnRepo_OneTurnPerRoomAndNumber(t *testing.T) {
	store := NewStore()
	repo := NewTurnRepo(store)
	ctx := context.Background()
	turn := duel.Turn{RoomCode: "r1", Number: 1, P1Action: duel.ActionNone, P2Action: duel.ActionNone}

	if err := repo.CreateTurn(ctx, turn); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.CreateTurn(ctx, turn); !errors.Is(err, ports.ErrConflict) {
		t.Fatalf("expected ErrConflict on duplicate turn, got %v", err)
	}
	if _, err := repo.GetTurn(ctx, "r1", 2); !errors.Is(err, ports.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestTxManager_NestedSameRoomJoins(t *testing.T) {
	store := NewStore()
	tx := NewTxManager(store)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		done <- tx.RunInRoom(ctx, "r1", func(txCtx context.Context) error {
			return tx.RunInRoom(txCtx, "r1", func(context.Context) error { return nil })
		})
	}()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("nested run: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("nested RunInRoom deadlocked")
	}
}

func TestStore_EvictIdleRooms(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	old := time.Unix(1000, 0)
	fresh := time.Unix(5000, 0)
	cutoff := time.Unix(2000, 0)
	store.SeedRoom(duel.Room{Code: "old", Turn: 2, ActiveAt: old, UpdatedAt: fresh},
		duel.Turn{RoomCode: "old", Number: 1}, duel.Turn{RoomCode: "old", Number: 2})
	store.SeedRoom(duel.Room{Code: "fresh", Turn: 1, ActiveAt: fresh, UpdatedAt: fresh}, duel.Turn{RoomCode: "fresh", Number: 1})

	codes, err := store.IdleRoomCodes(ctx, cutoff)
	if err != nil {
		t.Fatalf("idle codes: %v", err)
	}
	if len(codes) != 1 || codes[0] != "old" {
		t.Fatalf("expected [old] idle, got %v", codes)
	}
	if removed, err := store.EvictRoom(ctx, "fresh", cutoff); err != nil || removed {
		t.Fatalf("expected fresh room kept, got removed=%v err=%v", removed, err)
	}
	if removed, err := store.EvictRoom(ctx, "old", cutoff); err != nil || !removed {
		t.Fatalf("expected old room removed, got removed=%v err=%v", removed, err)
	}
	if _, err := NewRoomRepo(store).GetRoom(ctx, "old"); !errors.Is(err, ports.ErrNotFound) {
		t.Fatalf("expected old room gone, got %v", err)
	}
	if _, err := NewTurnRepo(store).GetTurn(ctx, "old", 2); !errors.Is(err, ports.ErrNotFound) {
		t.Fatalf("expected old turns gone, got %v", err)
	}
	codes, _ = NewRoomRepo(store).ListOpenRoomCodes(ctx)
	if len(codes) != 1 || codes[0] != "fresh" {
		t.Fatalf("expected only fresh open, got %v", codes)
	}
}

func TestStore_EvictRoomInsideRoomUnitOfWork(t *testing.T) {
	store := NewStore()
	store.SeedRoom(duel.Room{Code: "r", Turn: 1, ActiveAt: time.Unix(1000, 0)})
	done := make(chan bool, 1)
	go func() {
		var removed bool
		_ = NewTxManager(store).RunInRoom(context.Background(), "r", func(ctx context.Context) error {
			var err error
			removed, err = store.EvictRoom(ctx, "r", time.Unix(2000, 0))
			return err
		})
		done <- removed
	}()
	select {
	case removed := <-done:
		if !removed {
			t.Fatalf("expected room removed")
		}
	case <-time.After(time.Second):
		t.Fatalf("EvictRoom deadlocked inside RunInRoom")
	}
}
