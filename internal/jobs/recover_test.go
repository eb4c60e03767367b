package jobs

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentiment_research/internal/config"
	"sentiment_research/internal/domain"
	"sentiment_research/internal/logging"
	"sentiment_research/internal/store"
)

func TestSelectUnfinishedRespectsLimitAndStatus(t *testing.T) {
	t0 := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	var candidates []store.Job
	for i := 9; i >= 0; i-- {
		status := domain.StatusPending
		if i%5 == 0 {
			status = domain.StatusCompleted
		}
		candidates = append(candidates, store.Job{
			ID:        fmt.Sprintf("job-%d", i),
			Status:    status,
			CreatedAt: t0.Add(time.Duration(i) * time.Minute),
		})
	}

	selected, summary := SelectUnfinished(candidates, 3)
	assert.Equal(t, 8, summary.Unfinished)
	assert.Equal(t, 3, summary.Selected)
	require.Len(t, selected, 3)
	assert.Equal(t, []string{"job-1", "job-2", "job-3"}, []string{selected[0].ID, selected[1].ID, selected[2].ID})
}

func TestRecoverRequeuesUnfinishedJobs(t *testing.T) {
	r, st := setupRunner(t, 0, &stubCollector{records: sampleRecords()}, nil)
	ctx := context.Background()
	t0 := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	for i, status := range []domain.JobStatus{domain.StatusPending, domain.StatusProcessing, domain.StatusCompleted, domain.StatusPending, domain.StatusPending, domain.StatusPending} {
		created := t0.Add(time.Duration(i) * time.Minute)
		require.NoError(t, st.CreateJob(ctx, &store.Job{
			ID: fmt.Sprintf("job-%d", i), Query: "q", Limit: 5, Status: status, CreatedAt: created, UpdatedAt: created,
		}))
	}

	summary, err := r.Recover(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, summary.Unfinished)
	assert.Equal(t, 4, summary.Enqueued)
	assert.Equal(t, 1, summary.DroppedFull)

	dropped, err := st.GetJob(ctx, "job-5")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, dropped.Status)
	require.NotNil(t, dropped.Message)
	assert.Equal(t, ErrQueueFull.Error(), *dropped.Message)

	require.NoError(t, r.Process(ctx, <-r.queue))
	first, err := st.GetJob(ctx, "job-0")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, first.Status)
}

func TestRecoverHonoursLimit(t *testing.T) {
	_, st := setupRunner(t, 0, &stubCollector{}, nil)
	ctx := context.Background()
	t0 := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		created := t0.Add(time.Duration(i) * time.Minute)
		require.NoError(t, st.CreateJob(ctx, &store.Job{
			ID: fmt.Sprintf("job-%d", i), Query: "q", Limit: 5, Status: domain.StatusPending, CreatedAt: created, UpdatedAt: created,
		}))
	}

	r := NewRunner(config.Config{QueueSize: 4, RecoveryLimit: 2}, st, Deps{Collector: &stubCollector{}, Logger: logging.Discard()})
	summary, err := r.Recover(ctx)
	require.NoError(t, err)
	assert.Equal(t, RecoverySummary{Unfinished: 3, Selected: 2, Enqueued: 2, Deferred: 1}, summary)
	assert.Equal(t, "job-0", <-r.queue)
	assert.Equal(t, "job-1", <-r.queue)

	deferred, err := st.GetJob(ctx, "job-2")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, deferred.Status)
}
