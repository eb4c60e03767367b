package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"

	"sentiment_research/internal/collector"
	"sentiment_research/internal/config"
	"sentiment_research/internal/events"
	"sentiment_research/internal/httpapi"
	"sentiment_research/internal/jobs"
	"sentiment_research/internal/notify"
	"sentiment_research/internal/pipeline"
	"sentiment_research/internal/report"
	"sentiment_research/internal/sentiment"
	"sentiment_research/internal/sources"
	"sentiment_research/internal/store"
	"sentiment_research/internal/watch"
)

// App wires the research pipeline, HTTP surface and drop-directory watcher.
type App struct {
	cfg     config.Config
	log     logrus.FieldLogger
	store   *store.Store
	runner  *jobs.Runner
	watcher *watch.Watcher
	mux     *http.ServeMux
}

func New(cfg config.Config, log logrus.FieldLogger) (*App, error) {
	if cfg.LoadErr != nil {
		log.WithError(cfg.LoadErr).WithField("path", cfg.ConfigPath).Warn("config overlay ignored")
	}
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	clock := clockwork.NewRealClock()
	adapters := sources.Build(cfg.Sources, clock, log)
	scorer := sentiment.NewScorer(
		sentiment.WithPositive(cfg.Lexicon.Positive...),
		sentiment.WithNegative(cfg.Lexicon.Negative...),
	)
	pipe := pipeline.New(pipeline.Deps{
		Collector: collector.New(adapters, scorer, log),
		Renderer:  report.NewRenderer(),
		Saver:     st,
		Clock:     clock,
		Logger:    log,
	})
	runner := jobs.NewRunner(cfg, st, jobs.Deps{
		Pipeline: pipe,
		Bus:      events.NewBus(),
		Notifier: notify.New(cfg.NotifyURL, log),
		Clock:    clock,
		Logger:   log,
	})
	watcher := watch.New(cfg, runner, log)
	mux := http.NewServeMux()
	httpapi.NewRouter(cfg, st, runner, log).Register(mux)
	return &App{cfg: cfg, log: log, store: st, runner: runner, watcher: watcher, mux: mux}, nil
}

// Run starts workers, watcher, and HTTP server, and blocks until ctx ends.
func (a *App) Run(ctx context.Context) error {
	defer a.store.Close()
	a.runner.Start(ctx)
	defer a.runner.Stop()

	if _, err := a.runner.Recover(ctx); err != nil {
		a.log.WithError(err).Warn("job recovery failed")
	}

	if err := a.watcher.Start(ctx); err != nil {
		return err
	}
	srv := &http.Server{Addr: ":" + a.cfg.HTTPPort, Handler: a.mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	a.log.WithField("port", a.cfg.HTTPPort).Info("http listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (a *App) Runner() *jobs.Runner { return a.runner }
func (a *App) Store() *store.Store  { return a.store }
func (a *App) Mux() *http.ServeMux  { return a.mux }
