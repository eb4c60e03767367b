package httpapi

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentiment_research/internal/config"
	"sentiment_research/internal/domain"
	"sentiment_research/internal/jobs"
	"sentiment_research/internal/logging"
	"sentiment_research/internal/pipeline"
	"sentiment_research/internal/store"
)

type stubCollector struct {
	records []domain.NormalizedRecord
	err     error
}

func (s stubCollector) Collect(context.Context, domain.JobDescriptor) ([]domain.NormalizedRecord, error) {
	return s.records, s.err
}

func sampleRecords() []domain.NormalizedRecord {
	ts := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	return []domain.NormalizedRecord{
		{Text: "great, really\ngreat", Source: "Twitter", AuthorLocation: "Paris", Timestamp: ts, Label: domain.LabelPositive, Score: 0.6667},
		{Text: "bad", Source: "NewsAPI", AuthorLocation: "Unknown", Timestamp: ts.Add(time.Hour), Label: domain.LabelNegative, Score: -1},
	}
}

func setupTest(t *testing.T, c pipeline.Collector) (*http.ServeMux, *store.Store, *jobs.Runner) {
	t.Helper()
	cfg := config.Config{WorkerCount: 0, QueueSize: 8}
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	log := logging.Discard()
	runner := jobs.NewRunner(cfg, st, jobs.Deps{Collector: c, Logger: log})
	mux := http.NewServeMux()
	NewRouter(cfg, st, runner, log).Register(mux)
	return mux, st, runner
}

func serve(mux http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	return rr
}

func completedJob(t *testing.T, runner *jobs.Runner) string {
	t.Helper()
	job, err := runner.Submit(context.Background(), "golang", 10)
	require.NoError(t, err)
	require.NoError(t, runner.Process(context.Background(), job.ID))
	return job.ID
}

func TestSubmitFormRedirects(t *testing.T) {
	mux, st, _ := setupTest(t, stubCollector{})
	form := url.Values{"query": {"  climate  "}, "limit": {""}}
	req := httptest.NewRequest(http.MethodPost, "/jobs", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := serve(mux, req)

	require.Equal(t, http.StatusSeeOther, rr.Code)
	loc := rr.Header().Get("Location")
	require.True(t, strings.HasPrefix(loc, "/jobs/"))

	job, err := st.GetJob(context.Background(), strings.TrimPrefix(loc, "/jobs/"))
	require.NoError(t, err)
	assert.Equal(t, "climate", job.Query)
	assert.Equal(t, domain.DefaultLimit, job.Limit)
	assert.Equal(t, domain.StatusPending, job.Status)
}

func TestSubmitJSON(t *testing.T) {
	mux, _, _ := setupTest(t, stubCollector{})
	req := httptest.NewRequest(http.MethodPost, "/jobs", bytes.NewBufferString(`{"query":"ai","limit":25}`))
	req.Header.Set("Content-Type", "application/json")
	rr := serve(mux, req)

	require.Equal(t, http.StatusAccepted, rr.Code)
	var job store.Job
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&job))
	assert.Equal(t, "ai", job.Query)
	assert.Equal(t, 25, job.Limit)
	assert.Equal(t, "/jobs/"+job.ID, rr.Header().Get("Location"))
}

func TestSubmitRejectsEmptyQuery(t *testing.T) {
	mux, _, _ := setupTest(t, stubCollector{})
	req := httptest.NewRequest(http.MethodPost, "/jobs", bytes.NewBufferString(`{"query":"   "}`))
	req.Header.Set("Content-Type", "application/json")
	assert.Equal(t, http.StatusBadRequest, serve(mux, req).Code)
}

func TestJobDetailAndList(t *testing.T) {
	mux, _, runner := setupTest(t, stubCollector{records: sampleRecords()})
	id := completedJob(t, runner)

	rr := serve(mux, httptest.NewRequest(http.MethodGet, "/jobs/"+id, nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var detail struct {
		Job          store.Job                 `json:"job"`
		Analysis     *domain.AggregateResult   `json:"analysis"`
		PostsPreview []domain.NormalizedRecord `json:"posts_preview"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&detail))
	assert.Equal(t, domain.StatusCompleted, detail.Job.Status)
	require.NotNil(t, detail.Analysis)
	assert.Equal(t, 2, detail.Analysis.TotalCount)
	require.Len(t, detail.PostsPreview, 2)
	assert.Equal(t, "bad", detail.PostsPreview[0].Text, "newest first")

	rr = serve(mux, httptest.NewRequest(http.MethodGet, "/jobs", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), id)

	rr = serve(mux, httptest.NewRequest(http.MethodGet, "/jobs/unknown", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestExports(t *testing.T) {
	mux, _, runner := setupTest(t, stubCollector{records: sampleRecords()})
	id := completedJob(t, runner)

	rr := serve(mux, httptest.NewRequest(http.MethodGet, "/jobs/"+id+"/export/csv", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/csv", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "job-"+id+"-data.csv")
	lines := strings.Split(strings.TrimSpace(rr.Body.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "source,location,sentiment,score,content", lines[0])
	assert.Equal(t, "Twitter,Paris,positive,0.67,great  really great", lines[1])

	rr = serve(mux, httptest.NewRequest(http.MethodGet, "/jobs/"+id+"/export/pdf", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/pdf", rr.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rr.Body.Bytes(), []byte("%PDF-")))

	rr = serve(mux, httptest.NewRequest(http.MethodGet, "/jobs/"+id+"/export/chart/sentiment", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "image/png", rr.Header().Get("Content-Type"))
	_, err := png.Decode(rr.Body)
	require.NoError(t, err)

	rr = serve(mux, httptest.NewRequest(http.MethodGet, "/jobs/"+id+"/export/chart/radar", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "Chart not found", strings.TrimSpace(rr.Body.String()))
}

func TestExportsBeforeAnalysis(t *testing.T) {
	mux, _, runner := setupTest(t, stubCollector{})
	job, err := runner.Submit(context.Background(), "golang", 10)
	require.NoError(t, err)

	rr := serve(mux, httptest.NewRequest(http.MethodGet, "/jobs/"+job.ID+"/export/csv", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "No posts found for export", strings.TrimSpace(rr.Body.String()))

	rr = serve(mux, httptest.NewRequest(http.MethodGet, "/jobs/"+job.ID+"/export/pdf", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "Analysis not ready", strings.TrimSpace(rr.Body.String()))

	rr = serve(mux, httptest.NewRequest(http.MethodGet, "/jobs/"+job.ID+"/export/chart/sentiment", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "Analysis not ready", strings.TrimSpace(rr.Body.String()))

	rr = serve(mux, httptest.NewRequest(http.MethodGet, "/jobs/missing/export/pdf", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestJobEventsStream(t *testing.T) {
	mux, _, runner := setupTest(t, stubCollector{records: sampleRecords()})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	job, err := runner.Submit(context.Background(), "golang", 10)
	require.NoError(t, err)

	resp, err := http.Get(srv.URL + "/jobs/" + job.ID + "/events")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	readStatus := func() domain.JobStatus {
		for {
			line, err := reader.ReadString('\n')
			require.NoError(t, err)
			if strings.HasPrefix(line, "data: ") {
				var ev struct {
					Status domain.JobStatus `json:"status"`
				}
				require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev))
				return ev.Status
			}
		}
	}
	assert.Equal(t, domain.StatusPending, readStatus())

	go func() { _ = runner.Process(context.Background(), job.ID) }()
	assert.Equal(t, domain.StatusProcessing, readStatus())
	assert.Equal(t, domain.StatusCompleted, readStatus())
}

func TestHealthAndMetrics(t *testing.T) {
	mux, _, _ := setupTest(t, stubCollector{})
	assert.Equal(t, http.StatusNoContent, serve(mux, httptest.NewRequest(http.MethodGet, "/health", nil)).Code)

	rr := serve(mux, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "go_goroutines")
}
