package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"sentiment_research/internal/config"
	"sentiment_research/internal/store"
)

// Suffixes appended to job files once they have been handled.
const (
	SubmittedSuffix = ".submitted"
	FailedSuffix    = ".failed"
)

// Submitter queues a research job.
type Submitter interface {
	Submit(ctx context.Context, query string, limit int) (*store.Job, error)
}

// jobFile is the YAML shape of a dropped job request.
type jobFile struct {
	Query string `yaml:"query"`
	Limit int    `yaml:"limit"`
}

var errIncomplete = errors.New("job file has no query yet")

// Watcher monitors JobsDir for YAML job files and submits them.
type Watcher struct {
	cfg       config.Config
	submitter Submitter
	log       logrus.FieldLogger
}

func New(cfg config.Config, submitter Submitter, log logrus.FieldLogger) *Watcher {
	return &Watcher{cfg: cfg, submitter: submitter, log: log.WithField("component", "watcher")}
}

func (w *Watcher) Start(ctx context.Context) error {
	if !w.cfg.EnableWatcher {
		w.log.Info("watcher disabled")
		return nil
	}
	if err := os.MkdirAll(w.cfg.JobsDir, 0o755); err != nil {
		return err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(w.cfg.JobsDir); err != nil {
		_ = watcher.Close()
		return err
	}
	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-watcher.Events:
				if !ok {
					return
				}
				if evt.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 && isJobFile(evt.Name) {
					w.handle(ctx, evt.Name)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				w.log.WithError(err).Warn("watcher error")
			}
		}
	}()
	w.log.WithField("dir", w.cfg.JobsDir).Info("watching for job files")
	return w.Backfill(ctx)
}

// Backfill submits job files already present in JobsDir.
func (w *Watcher) Backfill(ctx context.Context) error {
	entries, err := filepath.Glob(filepath.Join(w.cfg.JobsDir, "*"))
	if err != nil {
		return err
	}
	for _, e := range entries {
		if isJobFile(e) {
			w.handle(ctx, e)
		}
	}
	return nil
}

func (w *Watcher) handle(ctx context.Context, path string) {
	log := w.log.WithField("file", filepath.Base(path))
	if err := w.submitFile(ctx, path); err != nil {
		if errors.Is(err, errIncomplete) || errors.Is(err, os.ErrNotExist) {
			log.WithError(err).Debug("job file skipped")
			return
		}
		log.WithError(err).Warn("job file rejected")
	}
}

func (w *Watcher) submitFile(ctx context.Context, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var jf jobFile
	if err := yaml.Unmarshal(raw, &jf); err != nil {
		return fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	if strings.TrimSpace(jf.Query) == "" {
		return errIncomplete
	}
	// claim the file first so repeated write events cannot submit it twice
	claimed := path + SubmittedSuffix
	if err := os.Rename(path, claimed); err != nil {
		return err
	}
	job, err := w.submitter.Submit(ctx, jf.Query, jf.Limit)
	if err != nil {
		if rerr := os.Rename(claimed, path+FailedSuffix); rerr != nil {
			return errors.Join(err, rerr)
		}
		return fmt.Errorf("submit %s: %w", filepath.Base(path), err)
	}
	w.log.WithFields(logrus.Fields{"job_id": job.ID, "query": job.Query}).Info("job file submitted")
	return nil
}

func isJobFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	default:
		return false
	}
}
