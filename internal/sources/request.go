package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"sentiment_research/internal/domain"
	"sentiment_research/internal/metrics"
)

// requester issues paced JSON requests for one adapter and absorbs 429s.
type requester struct {
	adapter  string
	client   *http.Client
	limiter  *rate.Limiter
	clock    clockwork.Clock
	cooldown time.Duration
	log      logrus.FieldLogger
}

func newRequester(adapter string, cooldown time.Duration, opts Options) *requester {
	return &requester{
		adapter:  adapter,
		client:   opts.Client,
		limiter:  opts.limiter(),
		clock:    opts.Clock,
		cooldown: cooldown,
		log:      opts.Logger.WithField("adapter", adapter),
	}
}

// doJSON sends the request built by build and decodes a 2xx body into out.
// build is called again for every retry so request bodies can be replayed.
func (r *requester) doJSON(ctx context.Context, build func(context.Context) (*http.Request, error), out any) error {
	for {
		if err := r.limiter.Wait(ctx); err != nil {
			return err
		}
		req, err := build(ctx)
		if err != nil {
			return &domain.AdapterFetchError{Adapter: r.adapter, Err: err}
		}
		resp, err := r.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return &domain.AdapterFetchError{Adapter: r.adapter, Err: err}
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			metrics.RateLimitRetries.WithLabelValues(r.adapter).Inc()
			r.log.WithField("cooldown", r.cooldown).Warn("rate limited, retrying")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-r.clock.After(r.cooldown):
			}
			continue
		}

		err = decodeResponse(resp, out)
		resp.Body.Close()
		if err != nil {
			return &domain.AdapterFetchError{Adapter: r.adapter, StatusCode: resp.StatusCode, Err: err}
		}
		return nil
	}
}

func decodeResponse(resp *http.Response, out any) error {
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected response: %s", snippet)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}
