// Package pipeline runs one job through collection, aggregation, chart
// rendering and persistence.
package pipeline

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"

	"sentiment_research/internal/analysis"
	"sentiment_research/internal/domain"
	"sentiment_research/internal/metrics"
	"sentiment_research/internal/report"
)

// Stage represents pipeline phases.
type Stage string

const (
	StageCollect Stage = "COLLECT"
	StageAnalyze Stage = "ANALYZE"
	StageRender  Stage = "RENDER"
	StagePersist Stage = "PERSIST"
)

// Collector gathers normalized records for a job.
type Collector interface {
	Collect(ctx context.Context, job domain.JobDescriptor) ([]domain.NormalizedRecord, error)
}

// Renderer turns chart series into images.
type Renderer interface {
	Render(series domain.ChartSeries) (report.Charts, error)
}

// ResultSaver persists the output of a run.
type ResultSaver interface {
	SaveResults(ctx context.Context, jobID string, records []domain.NormalizedRecord, agg domain.AggregateResult, charts map[string][]byte, ts time.Time) error
}

// Run carries one job's state between stages.
type Run struct {
	JobID     string
	Job       domain.JobDescriptor
	Records   []domain.NormalizedRecord
	Aggregate domain.AggregateResult
	Charts    report.Charts
}

// StageFunc is one step of a run.
type StageFunc func(ctx context.Context, run *Run) error

type step struct {
	stage Stage
	fn    StageFunc
}

// Pipeline executes stages in a fixed order and stops at the first error.
// Stage errors are returned unwrapped so the job message stays readable.
type Pipeline struct {
	steps []step
	clock clockwork.Clock
	log   logrus.FieldLogger
}

// Deps bundles the collaborators the stages use.
type Deps struct {
	Collector Collector
	Renderer  Renderer
	Saver     ResultSaver
	Clock     clockwork.Clock
	Logger    logrus.FieldLogger
}

func New(deps Deps) *Pipeline {
	if deps.Renderer == nil {
		deps.Renderer = report.NewRenderer()
	}
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	if deps.Logger == nil {
		deps.Logger = logrus.StandardLogger()
	}
	p := &Pipeline{clock: deps.Clock, log: deps.Logger.WithField("component", "pipeline")}
	p.steps = []step{
		{StageCollect, collectStage(deps.Collector)},
		{StageAnalyze, analyzeStage()},
		{StageRender, renderStage(deps.Renderer)},
		{StagePersist, persistStage(deps.Saver, deps.Clock)},
	}
	return p
}

// Run executes every stage for job and returns the finished state.
func (p *Pipeline) Run(ctx context.Context, jobID string, job domain.JobDescriptor) (*Run, error) {
	run := &Run{JobID: jobID, Job: job}
	for _, s := range p.steps {
		if err := ctx.Err(); err != nil {
			return run, err
		}
		start := p.clock.Now()
		err := s.fn(ctx, run)
		elapsed := p.clock.Since(start)
		metrics.StageDuration.WithLabelValues(string(s.stage)).Observe(elapsed.Seconds())
		log := p.log.WithFields(logrus.Fields{"job_id": jobID, "stage": s.stage, "elapsed": elapsed})
		if err != nil {
			log.WithError(err).Warn("stage failed")
			return run, err
		}
		log.Debug("stage done")
	}
	return run, nil
}

func collectStage(c Collector) StageFunc {
	return func(ctx context.Context, run *Run) error {
		records, err := c.Collect(ctx, run.Job)
		if err != nil {
			return err
		}
		run.Records = records
		return nil
	}
}

func analyzeStage() StageFunc {
	return func(_ context.Context, run *Run) error {
		agg, err := analysis.Analyze(run.Records)
		if err != nil {
			return err
		}
		run.Aggregate = agg
		return nil
	}
}

func renderStage(r Renderer) StageFunc {
	return func(_ context.Context, run *Run) error {
		charts, err := r.Render(run.Aggregate.Series)
		if err != nil {
			return err
		}
		run.Charts = charts
		return nil
	}
}

func persistStage(s ResultSaver, clock clockwork.Clock) StageFunc {
	return func(ctx context.Context, run *Run) error {
		if s == nil {
			return nil
		}
		return s.SaveResults(ctx, run.JobID, run.Records, run.Aggregate, run.Charts, clock.Now().UTC())
	}
}
