package sources

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"sentiment_research/internal/domain"
)

// SourceDemo is the source name stamped on synthetic records.
const SourceDemo = "Demo"

var (
	demoTemplates = []struct {
		text  string
		label domain.Label
		score float64
	}{
		{"Really excited about where %s is heading", domain.LabelPositive, 0.6},
		{"%s had a great quarter, strong growth all round", domain.LabelPositive, 0.45},
		{"Not sure what to make of the latest %s news", domain.LabelNeutral, 0},
		{"Reading up on %s this morning", domain.LabelNeutral, 0.02},
		{"Some real concern about %s after this week", domain.LabelNegative, -0.35},
		{"The %s rollout was awful, worried about the decline", domain.LabelNegative, -0.55},
	}
	demoLocations = []string{"London", "New York", "Berlin", "Toronto", "Sydney", "Singapore", ""}
)

// DemoAdapter produces synthetic posts for local runs. Records carry a
// precomputed sentiment so they pass through the scorer untouched.
type DemoAdapter struct {
	enabled bool
	clock   clockwork.Clock

	mu  sync.Mutex
	rng *rand.Rand
}

// NewDemoAdapter uses rng as its only randomness; the caller owns the seed.
func NewDemoAdapter(enabled bool, rng *rand.Rand, clock clockwork.Clock) *DemoAdapter {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &DemoAdapter{enabled: enabled && rng != nil, rng: rng, clock: clock}
}

func (a *DemoAdapter) Name() string     { return SourceDemo }
func (a *DemoAdapter) Configured() bool { return a.enabled }

// Fetch returns up to min(limit, 200) records spread over the last week.
func (a *DemoAdapter) Fetch(ctx context.Context, query string, limit int) ([]domain.RawRecord, error) {
	if !a.Configured() || limit <= 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	n := min(limit, 200)
	now := a.clock.Now().UTC()
	out := make([]domain.RawRecord, 0, n)
	for i := 0; i < n; i++ {
		tpl := demoTemplates[a.rng.Intn(len(demoTemplates))]
		label := tpl.label
		score := tpl.score
		rec := domain.RawRecord{
			Text:           fmt.Sprintf(tpl.text, query),
			Source:         SourceDemo,
			Timestamp:      now.Add(-time.Duration(a.rng.Int63n(int64(7 * 24 * time.Hour)))),
			SentimentLabel: &label,
			SentimentScore: &score,
		}
		if loc := demoLocations[a.rng.Intn(len(demoLocations))]; loc != "" {
			rec.AuthorLocation = strPtr(loc)
		}
		out = append(out, rec)
	}
	return out, nil
}
