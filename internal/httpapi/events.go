package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"sentiment_research/internal/events"
)

// jobEvents streams status changes for one job as server-sent events. The
// current status is sent first; the stream ends at a terminal status.
func (r *Router) jobEvents(w http.ResponseWriter, req *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	// subscribe before reading the job so no transition is missed
	ch, cancel := r.runner.Bus().Subscribe()
	defer cancel()

	job, ok := r.loadJob(w, req)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	current := events.JobEvent{JobID: job.ID, Status: job.Status, At: job.UpdatedAt}
	if job.Message != nil {
		current.Message = *job.Message
	}
	writeEvent(w, current)
	flusher.Flush()
	if job.Status.Terminal() {
		return
	}

	for {
		select {
		case <-req.Context().Done():
			return
		case ev, open := <-ch:
			if !open {
				return
			}
			if ev.JobID != job.ID {
				continue
			}
			writeEvent(w, ev)
			flusher.Flush()
			if ev.Status.Terminal() {
				return
			}
		}
	}
}

func writeEvent(w http.ResponseWriter, ev events.JobEvent) {
	data, _ := json.Marshal(ev)
	fmt.Fprintf(w, "event: status\ndata: %s\n\n", data)
}
