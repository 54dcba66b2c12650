package ports

import "context"

// RoomTxManager serializes all work on one room. Calls nested inside fn for the
// same code join the outer unit of work instead of acquiring it again.
// Different rooms never contend.
type RoomTxManager interface {
	RunInRoom(ctx context.Context, code string, fn func(ctx context.Context) error) error
}
