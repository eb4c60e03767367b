package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"sentiment_research/internal/config"
	"sentiment_research/internal/domain"
	"sentiment_research/internal/jobs"
	"sentiment_research/internal/report"
	"sentiment_research/internal/store"
)

const (
	recentJobs   = 5
	postsPreview = 10
)

// Router builds HTTP handlers for job submission, status and exports.
type Router struct {
	cfg    config.Config
	store  *store.Store
	runner *jobs.Runner
	log    logrus.FieldLogger
}

func NewRouter(cfg config.Config, st *store.Store, runner *jobs.Runner, log logrus.FieldLogger) *Router {
	return &Router{cfg: cfg, store: st, runner: runner, log: log.WithField("component", "http")}
}

func (r *Router) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /jobs", r.submit)
	mux.HandleFunc("GET /jobs", r.jobs)
	mux.HandleFunc("GET /jobs/{id}", r.jobDetail)
	mux.HandleFunc("GET /jobs/{id}/events", r.jobEvents)
	mux.HandleFunc("GET /jobs/{id}/export/csv", r.exportCSV)
	mux.HandleFunc("GET /jobs/{id}/export/pdf", r.exportPDF)
	mux.HandleFunc("GET /jobs/{id}/export/chart/{name}", r.exportChart)
	mux.HandleFunc("GET /health", r.health)
	mux.Handle("GET /metrics", promhttp.Handler())
}

type submitRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

func (r *Router) submit(w http.ResponseWriter, req *http.Request) {
	isJSON := false
	if ct, _, err := mime.ParseMediaType(req.Header.Get("Content-Type")); err == nil && ct == "application/json" {
		isJSON = true
	}

	var body submitRequest
	if isJSON {
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	} else {
		if err := req.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		body.Query = req.PostForm.Get("query")
		if raw := strings.TrimSpace(req.PostForm.Get("limit")); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				http.Error(w, "limit must be an integer", http.StatusBadRequest)
				return
			}
			body.Limit = n
		}
	}

	job, err := r.runner.Submit(req.Context(), body.Query, body.Limit)
	switch {
	case errors.Is(err, domain.ErrEmptyQuery):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case errors.Is(err, jobs.ErrQueueFull):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	case err != nil:
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if !isJSON {
		http.Redirect(w, req, "/jobs/"+job.ID, http.StatusSeeOther)
		return
	}
	w.Header().Set("Location", "/jobs/"+job.ID)
	respondJSONStatus(w, http.StatusAccepted, job)
}

func (r *Router) jobs(w http.ResponseWriter, req *http.Request) {
	list, err := r.store.ListJobs(req.Context(), recentJobs)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, map[string]any{"jobs": list, "default_limit": domain.DefaultLimit})
}

func (r *Router) jobDetail(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	job, ok := r.loadJob(w, req)
	if !ok {
		return
	}
	agg, err := r.store.GetAnalysis(ctx, job.ID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	preview, err := r.store.RecentPosts(ctx, job.ID, postsPreview)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, map[string]any{"job": job, "analysis": agg, "posts_preview": preview})
}

func (r *Router) exportCSV(w http.ResponseWriter, req *http.Request) {
	id := req.PathValue("id")
	posts, err := r.store.Posts(req.Context(), id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if len(posts) == 0 {
		http.Error(w, "No posts found for export", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=job-%s-data.csv", id))
	if err := report.WriteCSV(w, posts); err != nil {
		r.log.WithError(err).WithField("job_id", id).Warn("write csv")
	}
}

func (r *Router) exportPDF(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	id := req.PathValue("id")
	job, err := r.store.GetJob(ctx, id)
	var agg *domain.AggregateResult
	if err == nil {
		agg, err = r.store.GetAnalysis(ctx, id)
	}
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "Analysis not ready", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	charts, err := r.store.Charts(ctx, id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=job-%s-report.pdf", id))
	in := report.ReportInput{Query: job.Query, Aggregate: *agg, Charts: report.Charts(charts)}
	if err := report.WritePDF(w, in); err != nil {
		r.log.WithError(err).WithField("job_id", id).Warn("write pdf")
	}
}

func (r *Router) exportChart(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	id, name := req.PathValue("id"), req.PathValue("name")
	if _, err := r.store.GetAnalysis(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "Analysis not ready", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	png, err := r.store.GetChart(ctx, id, name)
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "Chart not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s-job-%s.png", name, id))
	_, _ = w.Write(png)
}

func (r *Router) health(w http.ResponseWriter, req *http.Request) {
	if err := r.store.Health(req.Context()); err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (r *Router) loadJob(w http.ResponseWriter, req *http.Request) (*store.Job, bool) {
	job, err := r.store.GetJob(req.Context(), req.PathValue("id"))
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "Job not found", http.StatusNotFound)
		return nil, false
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return nil, false
	}
	return job, true
}

func respondJSON(w http.ResponseWriter, payload any) {
	respondJSONStatus(w, http.StatusOK, payload)
}

func respondJSONStatus(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logrus.WithError(err).Warn("write json")
	}
}
