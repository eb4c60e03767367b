// Package sources wraps external post providers behind one fetch contract.
package sources

import (
	"context"
	"net/http"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"sentiment_research/internal/domain"
)

// Adapter fetches posts for a query from one provider.
//
// Fetch returns nil, nil when the adapter is unconfigured or limit <= 0 and
// never returns more than limit records. Rate-limited requests are retried
// after a cooldown; any other provider failure is an *domain.AdapterFetchError.
type Adapter interface {
	Name() string
	Configured() bool
	Fetch(ctx context.Context, query string, limit int) ([]domain.RawRecord, error)
}

// Options carries the collaborators shared by the HTTP adapters.
type Options struct {
	Client         *http.Client
	Clock          clockwork.Clock
	Logger         logrus.FieldLogger
	RequestsPerSec float64
}

func (o Options) withDefaults() Options {
	if o.Client == nil {
		o.Client = http.DefaultClient
	}
	if o.Clock == nil {
		o.Clock = clockwork.NewRealClock()
	}
	if o.Logger == nil {
		o.Logger = logrus.StandardLogger()
	}
	return o
}

func (o Options) limiter() *rate.Limiter {
	if o.RequestsPerSec <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Limit(o.RequestsPerSec), 1)
}

func strPtr(s string) *string { return &s }
