// Package collector drives the source adapters under a shared record budget.
package collector

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"sentiment_research/internal/domain"
	"sentiment_research/internal/metrics"
	"sentiment_research/internal/sentiment"
	"sentiment_research/internal/sources"
)

// Collector queries adapters in priority order. Earlier adapters may consume
// the whole budget, in which case later ones are never called.
type Collector struct {
	adapters []sources.Adapter
	scorer   *sentiment.Scorer
	log      logrus.FieldLogger
}

func New(adapters []sources.Adapter, scorer *sentiment.Scorer, log logrus.FieldLogger) *Collector {
	if scorer == nil {
		scorer = sentiment.NewScorer()
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Collector{
		adapters: adapters,
		scorer:   scorer,
		log:      log.WithField("component", "collector"),
	}
}

// Collect returns at most job.Limit normalized records. A failing adapter is
// logged and skipped; an empty result is always domain.ErrNoDataCollected.
func (c *Collector) Collect(ctx context.Context, job domain.JobDescriptor) ([]domain.NormalizedRecord, error) {
	remaining := job.Limit
	var out []domain.NormalizedRecord

	for _, adapter := range c.adapters {
		if remaining <= 0 {
			break
		}
		if !adapter.Configured() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		log := c.log.WithFields(logrus.Fields{"adapter": adapter.Name(), "query": job.Query, "remaining": remaining})
		raw, err := adapter.Fetch(ctx, job.Query, remaining)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			metrics.AdapterFetches.WithLabelValues(adapter.Name(), "error").Inc()
			log.WithError(err).Warn("adapter failed, skipping")
			continue
		}
		if len(raw) == 0 {
			metrics.AdapterFetches.WithLabelValues(adapter.Name(), "empty").Inc()
		} else {
			metrics.AdapterFetches.WithLabelValues(adapter.Name(), "ok").Inc()
		}

		taken := 0
		for _, rec := range raw {
			if remaining <= 0 {
				break
			}
			out = append(out, c.normalize(rec))
			metrics.RecordsCollected.WithLabelValues(rec.Source).Inc()
			remaining--
			taken++
		}
		log.WithField("records", taken).Info("adapter fetched")
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("%w: ensure API credentials are configured and the query returns data", domain.ErrNoDataCollected)
	}
	return out, nil
}

func (c *Collector) normalize(rec domain.RawRecord) domain.NormalizedRecord {
	label, score := c.scorer.Evaluate(rec.Text, rec.SentimentLabel, rec.SentimentScore)
	location := domain.UnknownLocation
	if rec.AuthorLocation != nil && *rec.AuthorLocation != "" {
		location = *rec.AuthorLocation
	}
	return domain.NormalizedRecord{
		Text:           rec.Text,
		Source:         rec.Source,
		AuthorLocation: location,
		Timestamp:      rec.Timestamp,
		Label:          label,
		Score:          score,
	}
}
