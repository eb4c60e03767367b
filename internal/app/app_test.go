package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentiment_research/internal/config"
	"sentiment_research/internal/domain"
	"sentiment_research/internal/logging"
)

func demoConfig(t *testing.T) config.Config {
	return config.Config{
		HTTPPort:    "0",
		DBPath:      filepath.Join(t.TempDir(), "app.db"),
		JobsDir:     filepath.Join(t.TempDir(), "jobs"),
		WorkerCount: 0,
		QueueSize:   8,
		Sources: config.SourcesConfig{
			Demo: config.DemoConfig{Enabled: true, Seed: 11},
		},
	}
}

func TestDemoPipelineEndToEnd(t *testing.T) {
	a, err := New(demoConfig(t), logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Store().Close() })
	ctx := context.Background()

	job, err := a.Runner().Submit(ctx, "golang", 40)
	require.NoError(t, err)
	require.NoError(t, a.Runner().Process(ctx, job.ID))

	stored, err := a.Store().GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, stored.Status)

	agg, err := a.Store().GetAnalysis(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, 40, agg.TotalCount)
	assert.Equal(t, agg.TotalCount, agg.PositiveCount+agg.NeutralCount+agg.NegativeCount)
	assert.LessOrEqual(t, len(agg.TopLocations), 5)

	rr := httptest.NewRecorder()
	a.Mux().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/jobs/"+job.ID+"/export/csv", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, strings.Split(strings.TrimSpace(rr.Body.String()), "\n"), 41)
}

func TestNoConfiguredSourcesFailsJob(t *testing.T) {
	cfg := demoConfig(t)
	cfg.Sources.Demo.Enabled = false
	cfg.Sources.News.Enabled = true
	a, err := New(cfg, logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Store().Close() })
	ctx := context.Background()

	job, err := a.Runner().Submit(ctx, "golang", 10)
	require.NoError(t, err)
	err = a.Runner().Process(ctx, job.ID)
	require.ErrorIs(t, err, domain.ErrNoDataCollected)

	stored, err := a.Store().GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, stored.Status)
	require.NotNil(t, stored.Message)
	assert.Contains(t, *stored.Message, "no posts collected")
}
