package ports

import "duelarena/internal/domain/duel"

type Trigger string

const (
	TriggerSubmission Trigger = "submission"
	TriggerDeadline   Trigger = "deadline"
)

type ResolutionMetrics interface {
	RecordResolved(trigger Trigger)
	RecordNoop(trigger Trigger)
	RecordFinished(winner duel.Seat)
	RecordFailure()
}
