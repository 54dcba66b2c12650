// Package watcher runs one deadline loop per active room.
package watcher

import (
	"context"
	"sync"
	"time"

	"duelarena/internal/app/ports"
	"duelarena/internal/app/turn"

	"github.com/rs/zerolog"
)

const DefaultInterval = time.Second

type Attempter interface {
	AttemptResolve(ctx context.Context, a turn.Attempt) (turn.Result, error)
}

type loop struct {
	id     uint64
	cancel context.CancelFunc
	done   chan struct{}
}

// Supervisor owns the per-room deadline loops. A loop ends on its own once the
// room is finished; Stop and Shutdown cancel loops from outside.
type Supervisor struct {
	resolver Attempter
	interval time.Duration
	logger   zerolog.Logger

	mu     sync.Mutex
	loops  map[string]loop
	nextID uint64
	closed bool
	wg     sync.WaitGroup
}

func NewSupervisor(resolver Attempter, interval time.Duration, logger zerolog.Logger) *Supervisor {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Supervisor{
		resolver: resolver,
		interval: interval,
		logger:   logger.With().Str("component", "watcher").Logger(),
		loops:    make(map[string]loop),
	}
}

// Ensure starts the loop for code unless one is already running. It reports
// whether a new loop was started.
func (s *Supervisor) Ensure(code string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	if _, ok := s.loops[code]; ok {
		return false
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.nextID++
	l := loop{id: s.nextID, cancel: cancel, done: make(chan struct{})}
	s.loops[code] = l
	s.wg.Add(1)
	go s.run(ctx, code, l)
	s.logger.Debug().Str("room", code).Msg("watcher started")
	return true
}

// Stop cancels the loop for code and waits until any tick in flight has
// returned. It must not be called from inside the room's unit of work. It
// reports whether a loop was running.
func (s *Supervisor) Stop(code string) bool {
	s.mu.Lock()
	l, ok := s.loops[code]
	delete(s.loops, code)
	s.mu.Unlock()
	if !ok {
		return false
	}
	l.cancel()
	<-l.done
	return true
}

func (s *Supervisor) Running(code string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.loops[code]
	return ok
}

func (s *Supervisor) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.loops)
}

// Resume starts loops for every unfinished room, e.g. after a restart.
func (s *Supervisor) Resume(ctx context.Context, rooms ports.RoomRepository) (int, error) {
	codes, err := rooms.ListOpenRoomCodes(ctx)
	if err != nil {
		return 0, err
	}
	started := 0
	for _, code := range codes {
		if s.Ensure(code) {
			started++
		}
	}
	return started, nil
}

// Shutdown cancels every loop and waits for them to return or ctx to end.
func (s *Supervisor) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	for code, l := range s.loops {
		l.cancel()
		delete(s.loops, code)
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Supervisor) run(ctx context.Context, code string, l loop) {
	defer s.wg.Done()
	defer close(l.done)
	defer s.release(code, l.id)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		res, err := s.resolver.AttemptResolve(ctx, turn.Attempt{Code: code, Trigger: ports.TriggerDeadline})
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logger.Warn().Err(err).Str("room", code).Msg("deadline tick failed")
			continue
		}
		if res.Room.Finished {
			s.logger.Info().Str("room", code).Int("winner", int(res.Room.Winner)).Msg("room finished; watcher exiting")
			return
		}
	}
}

func (s *Supervisor) release(code string, id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.loops[code]; ok && l.id == id {
		l.cancel()
		delete(s.loops, code)
	}
}
