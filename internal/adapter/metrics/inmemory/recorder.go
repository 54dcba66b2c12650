package inmemory

import (
	"sync"

	"duelarena/internal/app/ports"
	"duelarena/internal/domain/duel"
)

type Snapshot struct {
	ResolvedTotal uint64            `json:"resolved_total"`
	ByTrigger     map[string]uint64 `json:"resolved_by_trigger"`
	NoopTotal     uint64            `json:"noop_total"`
	Failures      uint64            `json:"failures"`
	Finished      uint64            `json:"finished_total"`
	ByOutcome     map[string]uint64 `json:"finished_by_outcome"`
}

type Recorder struct {
	mu        sync.Mutex
	byTrigger map[ports.Trigger]uint64
	noop      uint64
	failure   uint64
	byOutcome map[string]uint64
}

func NewRecorder() *Recorder {
	return &Recorder{
		byTrigger: map[ports.Trigger]uint64{},
		byOutcome: map[string]uint64{},
	}
}

func (r *Recorder) RecordResolved(trigger ports.Trigger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byTrigger[trigger]++
}

func (r *Recorder) RecordNoop(ports.Trigger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.noop++
}

func (r *Recorder) RecordFinished(winner duel.Seat) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byOutcome[outcomeLabel(winner)]++
}

func (r *Recorder) RecordFailure() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failure++
}

func (r *Recorder) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := Snapshot{
		NoopTotal: r.noop,
		Failures:  r.failure,
		ByTrigger: make(map[string]uint64, len(r.byTrigger)),
		ByOutcome: make(map[string]uint64, len(r.byOutcome)),
	}
	for k, v := range r.byTrigger {
		out.ByTrigger[string(k)] = v
		out.ResolvedTotal += v
	}
	for k, v := range r.byOutcome {
		out.ByOutcome[k] = v
		out.Finished += v
	}
	return out
}

func (r *Recorder) SnapshotAny() any {
	return r.Snapshot()
}

func outcomeLabel(winner duel.Seat) string {
	switch winner {
	case duel.Seat1:
		return "p1"
	case duel.Seat2:
		return "p2"
	default:
		return "draw"
	}
}
