package ports

import (
	"context"
	"time"

	"duelarena/internal/domain/duel"
)

// RoomRepository is the registry of rooms keyed by code. Reads and writes made
// inside RoomTxManager.RunInRoom belong to that room's unit of work.
type RoomRepository interface {
	GetRoom(ctx context.Context, code string) (duel.Room, error)
	CreateRoom(ctx context.Context, room duel.Room) error
	SaveRoom(ctx context.Context, room duel.Room) error
	ListOpenRoomCodes(ctx context.Context) ([]string, error)
}

// TurnRepository stores at most one turn per (room, number).
type TurnRepository interface {
	GetTurn(ctx context.Context, code string, number int) (duel.Turn, error)
	CreateTurn(ctx context.Context, turn duel.Turn) error
	SaveTurn(ctx context.Context, turn duel.Turn) error
}

// RoomEvictor removes rooms with no participant activity since the cutoff.
// EvictRoom re-checks the cutoff inside the room's unit of work and reports
// whether the room and its turns were deleted.
type RoomEvictor interface {
	IdleRoomCodes(ctx context.Context, idleSince time.Time) ([]string, error)
	EvictRoom(ctx context.Context, code string, idleSince time.Time) (bool, error)
}
