package sources

import (
	"math/rand"
	"net/http"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"

	"sentiment_research/internal/config"
)

// Build constructs the enabled adapters in priority order: Twitter, Reddit,
// NewsAPI, then the demo generator. Credentials are read once here; a missing
// credential leaves the adapter unconfigured.
func Build(cfg config.SourcesConfig, clock clockwork.Clock, logger logrus.FieldLogger) []Adapter {
	opts := Options{
		Client:         &http.Client{Timeout: cfg.RequestTimeout},
		Clock:          clock,
		Logger:         logger,
		RequestsPerSec: cfg.RequestsPerSec,
	}.withDefaults()

	var adapters []Adapter
	if cfg.Twitter.Enabled {
		adapters = append(adapters, NewTwitterAdapter(cfg.Twitter, opts))
	}
	if cfg.Reddit.Enabled {
		adapters = append(adapters, NewRedditAdapter(cfg.Reddit, opts))
	}
	if cfg.News.Enabled {
		adapters = append(adapters, NewNewsAdapter(cfg.News, opts))
	}
	if cfg.Demo.Enabled {
		adapters = append(adapters, NewDemoAdapter(true, rand.New(rand.NewSource(cfg.Demo.Seed)), opts.Clock))
	}

	for _, a := range adapters {
		opts.Logger.WithFields(logrus.Fields{"adapter": a.Name(), "configured": a.Configured()}).Info("source adapter ready")
	}
	return adapters
}
