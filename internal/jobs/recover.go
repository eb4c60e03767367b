package jobs

import (
	"context"
	"sort"

	"github.com/sirupsen/logrus"

	"sentiment_research/internal/domain"
	"sentiment_research/internal/store"
)

// RecoverySummary reports what a startup recovery pass did.
type RecoverySummary struct {
	Unfinished  int `json:"unfinished"`
	Selected    int `json:"selected"`
	Enqueued    int `json:"enqueued"`
	DroppedFull int `json:"dropped_full"`
	Deferred    int `json:"deferred"`
}

// SelectUnfinished returns up to limit pending or processing jobs, oldest
// first, together with a summary of the candidate set.
func SelectUnfinished(candidates []store.Job, limit int) ([]store.Job, RecoverySummary) {
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].CreatedAt.Before(candidates[j].CreatedAt)
	})
	selected := make([]store.Job, 0, len(candidates))
	for _, j := range candidates {
		if j.Status.Terminal() {
			continue
		}
		selected = append(selected, j)
	}
	summary := RecoverySummary{Unfinished: len(selected)}
	if limit >= 0 && limit < len(selected) {
		selected = selected[:limit]
	}
	summary.Selected = len(selected)
	return selected, summary
}

// Recover re-queues up to cfg.RecoveryLimit jobs left unfinished by a
// previous process, oldest first. Jobs that do not fit in the queue are failed
// with ErrQueueFull. Jobs past the limit keep their status for the next start.
func (r *Runner) Recover(ctx context.Context) (RecoverySummary, error) {
	candidates, err := r.store.UnfinishedJobs(ctx)
	if err != nil {
		return RecoverySummary{}, err
	}
	limit := r.cfg.RecoveryLimit
	if limit <= 0 {
		limit = len(candidates)
	}
	selected, summary := SelectUnfinished(candidates, limit)
	summary.Deferred = summary.Unfinished - summary.Selected
	for _, j := range selected {
		if r.enqueue(j.ID) {
			summary.Enqueued++
			r.publish(j.ID, domain.StatusPending, "")
			continue
		}
		summary.DroppedFull++
		r.fail(ctx, j.ID, ErrQueueFull)
	}
	r.log.WithFields(logrus.Fields{
		"unfinished":   summary.Unfinished,
		"enqueued":     summary.Enqueued,
		"dropped_full": summary.DroppedFull,
		"deferred":     summary.Deferred,
	}).Info("recovery summary")
	return summary, nil
}
