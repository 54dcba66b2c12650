package turn

import (
	"context"
	"sync"
	"time"

	"duelarena/internal/adapter/repo/memory"
	"duelarena/internal/app/ports"
	"duelarena/internal/app/roomstate"
	"duelarena/internal/domain/duel"

	"github.com/rs/zerolog"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1700000000, 0).UTC()}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingNotifier struct {
	mu       sync.Mutex
	resolved []duel.TurnResolvedEvent
	changed  []string
	logs     []string
}

func (n *recordingNotifier) TurnResolved(_ context.Context, evt duel.TurnResolvedEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.resolved = append(n.resolved, evt)
}

func (n *recordingNotifier) RoomChanged(_ context.Context, _ string, reason string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.changed = append(n.changed, reason)
}

func (n *recordingNotifier) Log(_ context.Context, _ string, text string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.logs = append(n.logs, text)
}

type countingMetrics struct {
	mu       sync.Mutex
	resolved map[ports.Trigger]int
	noop     map[ports.Trigger]int
	finished []duel.Seat
	failures int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{resolved: map[ports.Trigger]int{}, noop: map[ports.Trigger]int{}}
}

func (m *countingMetrics) RecordResolved(t ports.Trigger) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resolved[t]++
}

func (m *countingMetrics) RecordNoop(t ports.Trigger) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.noop[t]++
}

func (m *countingMetrics) RecordFinished(w duel.Seat) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finished = append(m.finished, w)
}

func (m *countingMetrics) RecordFailure() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures++
}

type fixture struct {
	clock    *fakeClock
	store    roomstate.Store
	resolver Resolver
	notifier *recordingNotifier
	metrics  *countingMetrics
}

func newFixture(rules duel.Rules) fixture {
	clock := newFakeClock()
	mem := memory.NewStore()
	store := roomstate.Store{
		Rooms: memory.NewRoomRepo(mem),
		Turns: memory.NewTurnRepo(mem),
		Tx:    memory.NewTxManager(mem),
		Rules: rules,
		Clock: clock.Now,
	}
	notifier := &recordingNotifier{}
	metrics := newCountingMetrics()
	return fixture{
		clock:    clock,
		store:    store,
		notifier: notifier,
		metrics:  metrics,
		resolver: Resolver{Store: store, Notifier: notifier, Metrics: metrics, Logger: zerolog.Nop()},
	}
}

// seatPair creates room code with participants p1 and p2 seated.
func (f fixture) seatPair(ctx context.Context, code string) error {
	if _, err := f.store.AssignSeat(ctx, code, "p1"); err != nil {
		return err
	}
	_, err := f.store.AssignSeat(ctx, code, "p2")
	return err
}
