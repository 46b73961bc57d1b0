package jobs

import (
	"context"
	"log/slog"
	"time"

	"planet/internal/repository"
)

const auditInterval = 5 * time.Minute

// CapacityAuditJob periodically re-checks that the sum of reservation
// quantities of every event equals maxAttendees - spotsLeft. It is read-only:
// a mismatch points at a bug or manual data edit and is logged for operators,
// never auto-repaired.
type CapacityAuditJob struct {
	reservations *repository.ReservationRepository
	ticker       *time.Ticker
	done         chan bool
}

func NewCapacityAuditJob(reservations *repository.ReservationRepository) *CapacityAuditJob {
	return &CapacityAuditJob{
		reservations: reservations,
		done:         make(chan bool),
	}
}

// Start begins the periodic audit, with one immediate run.
func (j *CapacityAuditJob) Start(ctx context.Context) {
	slog.Info("Starting capacity audit job", "interval", auditInterval.String())

	j.ticker = time.NewTicker(auditInterval)

	go j.runAudit(ctx)

	go func() {
		for {
			select {
			case <-j.ticker.C:
				go j.runAudit(ctx)
			case <-j.done:
				slog.Info("Capacity audit job stopped")
				return
			}
		}
	}()
}

// Stop gracefully stops the job.
func (j *CapacityAuditJob) Stop() {
	if j.ticker != nil {
		j.ticker.Stop()
	}
	close(j.done)
}

func (j *CapacityAuditJob) runAudit(ctx context.Context) {
	mismatches, err := j.reservations.AuditCapacity(ctx)
	if err != nil {
		slog.Error("Capacity audit failed", "error", err)
		return
	}

	if len(mismatches) == 0 {
		slog.Debug("Capacity audit clean")
		return
	}

	for _, m := range mismatches {
		slog.Error("Capacity invariant violated",
			"event_id", m.EventID,
			"max_attendees", m.MaxAttendees,
			"spots_left", m.SpotsLeft,
			"reserved_sum", m.ReservedSum)
	}
}
