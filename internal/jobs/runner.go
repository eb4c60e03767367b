package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"

	"sentiment_research/internal/config"
	"sentiment_research/internal/domain"
	"sentiment_research/internal/events"
	"sentiment_research/internal/metrics"
	"sentiment_research/internal/notify"
	"sentiment_research/internal/pipeline"
	"sentiment_research/internal/report"
	"sentiment_research/internal/store"
)

// ErrQueueFull is returned when a job cannot be queued.
var ErrQueueFull = errors.New("queue full")

// Pipeline produces and persists the results of one job.
type Pipeline interface {
	Run(ctx context.Context, jobID string, job domain.JobDescriptor) (*pipeline.Run, error)
}

// Deps bundles the collaborators a Runner drives. When Pipeline is nil one is
// built from Collector and Renderer over the runner's store.
type Deps struct {
	Pipeline  Pipeline
	Collector pipeline.Collector
	Renderer  pipeline.Renderer
	Bus       *events.Bus
	Notifier  notify.Notifier
	Clock     clockwork.Clock
	Logger    logrus.FieldLogger
}

// Runner executes jobs using worker pool.
type Runner struct {
	cfg      config.Config
	store    *store.Store
	pipeline Pipeline
	bus      *events.Bus
	notifier notify.Notifier
	clock    clockwork.Clock
	log      logrus.FieldLogger
	queue    chan string
	wg       sync.WaitGroup
	cancel   context.CancelFunc
}

// NewRunner constructs a runner.
func NewRunner(cfg config.Config, st *store.Store, deps Deps) *Runner {
	if deps.Bus == nil {
		deps.Bus = events.NewBus()
	}
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	if deps.Logger == nil {
		deps.Logger = logrus.StandardLogger()
	}
	if deps.Notifier == nil {
		deps.Notifier = notify.LogNotifier{Log: deps.Logger}
	}
	if deps.Pipeline == nil {
		if deps.Renderer == nil {
			deps.Renderer = report.NewRenderer()
		}
		deps.Pipeline = pipeline.New(pipeline.Deps{
			Collector: deps.Collector,
			Renderer:  deps.Renderer,
			Saver:     st,
			Clock:     deps.Clock,
			Logger:    deps.Logger,
		})
	}
	return &Runner{
		cfg:      cfg,
		store:    st,
		pipeline: deps.Pipeline,
		bus:      deps.Bus,
		notifier: deps.Notifier,
		clock:    deps.Clock,
		log:      deps.Logger.WithField("component", "runner"),
		queue:    make(chan string, max(cfg.QueueSize, 1)),
	}
}

// Start spins worker pool.
func (r *Runner) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	for i := 0; i < r.cfg.WorkerCount; i++ {
		r.wg.Add(1)
		go r.worker(ctx)
	}
}

// Stop cancels in-flight jobs and waits for workers to finish.
func (r *Runner) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()
}

// Bus exposes job status events.
func (r *Runner) Bus() *events.Bus { return r.bus }

// Submit records a pending job and queues it for processing.
func (r *Runner) Submit(ctx context.Context, query string, limit int) (*store.Job, error) {
	desc, err := domain.NewJobDescriptor(query, limit)
	if err != nil {
		return nil, err
	}
	now := r.clock.Now().UTC()
	job := &store.Job{
		ID:        uuid.NewString(),
		Query:     desc.Query,
		Limit:     desc.Limit,
		Status:    domain.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.store.CreateJob(ctx, job); err != nil {
		return nil, err
	}
	metrics.JobsTotal.WithLabelValues(string(domain.StatusPending)).Inc()
	r.publish(job.ID, domain.StatusPending, "")

	if !r.enqueue(job.ID) {
		r.fail(context.WithoutCancel(ctx), job.ID, ErrQueueFull)
		return nil, ErrQueueFull
	}
	return job, nil
}

func (r *Runner) enqueue(id string) bool {
	select {
	case r.queue <- id:
		metrics.QueueDepth.Inc()
		return true
	default:
		return false
	}
}

func (r *Runner) worker(ctx context.Context) {
	defer r.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case id := <-r.queue:
			metrics.QueueDepth.Dec()
			if err := r.Process(ctx, id); err != nil && ctx.Err() == nil {
				r.log.WithError(err).WithField("job_id", id).Warn("job failed")
			}
		}
	}
}

// Process runs the collect, analyze and render pipeline for one job and
// records the terminal status. The returned error is also stored as the
// job's message, unless ctx was cancelled, in which case the job is left
// processing.
func (r *Runner) Process(ctx context.Context, id string) error {
	job, err := r.store.GetJob(ctx, id)
	if err != nil {
		return fmt.Errorf("load job %s: %w", id, err)
	}
	log      := r.log.WithFields(logrus.Fields{"job_id": id, "query": job.Query})

	if err := r.store.MarkJobStarted(ctx, id, r.clock.Now().UTC()); err != nil {
		return err
	}
	metrics.JobsTotal.WithLabelValues(string(domain.StatusProcessing)).Inc()
	metrics.JobsInFlight.Inc()
	defer metrics.JobsInFlight.Dec()
	r.publish(id, domain.StatusProcessing, "")
	log.Info("job processing")

	start := r.clock.Now()
	if _, err := r.pipeline.Run(ctx, id, job.Descriptor()); err != nil {
		if ctx.Err() != nil {
			// Interrupted by shutdown: the job stays processing so Recover picks it up.
			metrics.PipelineDuration.WithLabelValues("interrupted").Observe(r.clock.Since(start).Seconds())
			log.WithError(err).Info("job interrupted")
			return ctx.Err()
		}
		metrics.PipelineDuration.WithLabelValues("failed").Observe(r.clock.Since(start).Seconds())
		r.fail(context.WithoutCancel(ctx), id, err)
		return err
	}
	metrics.PipelineDuration.WithLabelValues("completed").Observe(r.clock.Since(start).Seconds())

	if err := r.store.MarkJobCompleted(ctx, id, r.clock.Now().UTC()); err != nil {
		return err
	}
	metrics.JobsTotal.WithLabelValues(string(domain.StatusCompleted)).Inc()
	r.publish(id, domain.StatusCompleted, "")
	log.Info("job completed")

	msg := notify.Message{Destination: "user", Text: notify.ReadyMessage(job.Query)}
	if err := r.notifier.Notify(ctx, msg); err != nil {
		log.WithError(err).Warn("notify failed")
	}
	return nil
}

func (r *Runner) fail(ctx context.Context, id string, cause error) {
	if err := r.store.MarkJobFailed(ctx, id, cause.Error(), r.clock.Now().UTC()); err != nil {
		r.log.WithError(err).WithField("job_id", id).Error("mark job failed")
	}
	metrics.JobsTotal.WithLabelValues(string(domain.StatusFailed)).Inc()
	r.publish(id, domain.StatusFailed, cause.Error())
}

func (r *Runner) publish(id string, status domain.JobStatus, message string) {
	r.bus.Publish(events.JobEvent{JobID: id, Status: status, Message: message, At: r.clock.Now().UTC()})
}
