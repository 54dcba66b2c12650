package watcher

import (
	"context"
	"errors"
	"time"

	"duelarena/internal/app/ports"

	"github.com/rs/zerolog"
)

// Janitor evicts rooms without participant activity for longer than
// IdleTimeout. Deadline-forced resolutions do not count as activity, so an
// abandoned room is evicted even while its watcher keeps resolving empty turns.
type Janitor struct {
	Evictor     ports.RoomEvictor
	Supervisor  *Supervisor
	IdleTimeout time.Duration
	Interval    time.Duration
	Now         func() time.Time
	Logger      zerolog.Logger
}

func (j Janitor) Run(ctx context.Context) error {
	interval := j.Interval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := j.Sweep(ctx); err != nil {
				j.Logger.Error().Err(err).Msg("evict idle rooms")
			}
		}
	}
}

// Sweep stops the watcher of each idle room before deleting it, so no tick can
// recreate a room that was just evicted. A room that saw activity between the
// listing and the delete is kept and gets its watcher back.
func (j Janitor) Sweep(ctx context.Context) ([]string, error) {
	nowFn := j.Now
	if nowFn == nil {
		nowFn = time.Now
	}
	cutoff := nowFn().Add(-j.IdleTimeout)
	codes, err := j.Evictor.IdleRoomCodes(ctx, cutoff)
	if err != nil {
		return nil, err
	}

	evicted := make([]string, 0, len(codes))
	var errs []error
	for _, code := range codes {
		watched := false
		if j.Supervisor != nil {
			watched = j.Supervisor.Stop(code)
		}
		removed, err := j.Evictor.EvictRoom(ctx, code, cutoff)
		if err != nil {
			errs = append(errs, err)
		}
		if !removed {
			if watched {
				j.Supervisor.Ensure(code)
			}
			continue
		}
		evicted = append(evicted, code)
		j.Logger.Info().Str("room", code).Msg("evicted idle room")
	}
	return evicted, errors.Join(errs...)
}
