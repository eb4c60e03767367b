// Package analysis folds normalized records into summary statistics and
// chart series.
package analysis

import (
	"sort"

	"sentiment_research/internal/domain"
)

// TopN bounds the location and source tables.
const TopN = 5

const dayLayout = "2006-01-02"

// counter keeps counts with first-seen order for stable tie breaks.
type counter struct {
	order  []string
	counts map[string]int
}

func newCounter() *counter { return &counter{counts: make(map[string]int)} }

func (c *counter) add(key string) {
	if _, ok := c.counts[key]; !ok {
		c.order = append(c.order, key)
	}
	c.counts[key]++
}

// all returns every key in first-seen order.
func (c *counter) all() []domain.Count {
	out := make([]domain.Count, 0, len(c.order))
	for _, k := range c.order {
		out = append(out, domain.Count{Key: k, Value: c.counts[k]})
	}
	return out
}

// top returns the n largest counts, ties kept in first-seen order.
func (c *counter) top(n int) []domain.Count {
	out := c.all()
	sort.SliceStable(out, func(i, j int) bool { return out[i].Value > out[j].Value })
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// Analyze computes the aggregate for a non-empty record set in one pass.
func Analyze(records []domain.NormalizedRecord) (domain.AggregateResult, error) {
	if len(records) == 0 {
		return domain.AggregateResult{}, domain.ErrEmptyAggregationInput
	}

	labels := make(map[domain.Label]int, 3)
	locations := newCounter()
	sources := newCounter()
	days := make(map[string]int)
	var sum float64

	for _, rec := range records {
		if !rec.Label.Valid() {
			return domain.AggregateResult{}, &domain.InvalidLabelError{Label: rec.Label}
		}
		labels[rec.Label]++
		locations.add(rec.AuthorLocation)
		sources.add(rec.Source)
		days[rec.Timestamp.UTC().Format(dayLayout)]++
		sum += rec.Score
	}

	res := domain.AggregateResult{
		TotalCount:    len(records),
		PositiveCount: labels[domain.LabelPositive],
		NeutralCount:  labels[domain.LabelNeutral],
		NegativeCount: labels[domain.LabelNegative],
		AverageScore:  sum / float64(len(records)),
		TopLocations:  locations.top(TopN),
		TopSources:    sources.top(TopN),
		DayHistogram:  days,
	}
	res.Series = domain.ChartSeries{
		Sentiment: sentimentSeries(labels),
		Sources:   points(sources.all()),
		Locations: points(res.TopLocations),
		Timeline:  timelineSeries(days),
	}
	return res, nil
}

func sentimentSeries(labels map[domain.Label]int) []domain.Point {
	var out []domain.Point
	for _, l := range []domain.Label{domain.LabelPositive, domain.LabelNeutral, domain.LabelNegative} {
		if n := labels[l]; n > 0 {
			out = append(out, domain.Point{Label: string(l), Value: n})
		}
	}
	return out
}

func timelineSeries(days map[string]int) []domain.Point {
	keys := make([]string, 0, len(days))
	for k := range days {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]domain.Point, 0, len(keys))
	for _, k := range keys {
		out = append(out, domain.Point{Label: k, Value: days[k]})
	}
	return out
}

func points(counts []domain.Count) []domain.Point {
	out := make([]domain.Point, 0, len(counts))
	for _, c := range counts {
		out = append(out, domain.Point{Label: c.Key, Value: c.Value})
	}
	return out
}
