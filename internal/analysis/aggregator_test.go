package analysis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentiment_research/internal/domain"
)

func rec(label domain.Label, score float64, loc, source string, ts time.Time) domain.NormalizedRecord {
	return domain.NormalizedRecord{Text: "x", Label: label, Score: score, AuthorLocation: loc, Source: source, Timestamp: ts}
}

var day1 = time.Date(2024, 3, 1, 23, 30, 0, 0, time.UTC)

func TestAnalyzeScenario(t *testing.T) {
	records := []domain.NormalizedRecord{
		rec(domain.LabelPositive, 0.8, "Paris", "Twitter", day1),
		rec(domain.LabelNegative, -0.6, "Paris", "Twitter", day1),
		rec(domain.LabelNeutral, 0.0, "Unknown", "NewsAPI", day1),
	}
	res, err := Analyze(records)
	require.NoError(t, err)
	assert.Equal(t, 3, res.TotalCount)
	assert.Equal(t, 1, res.PositiveCount)
	assert.Equal(t, 1, res.NegativeCount)
	assert.Equal(t, 1, res.NeutralCount)
	assert.InDelta(t, 0.0667, res.AverageScore, 1e-4)
	assert.InDelta(t, 0.2/3, res.AverageScore, 1e-12)
}

func TestAnalyzeEmpty(t *testing.T) {
	_, err := Analyze(nil)
	assert.ErrorIs(t, err, domain.ErrEmptyAggregationInput)
}

func TestAnalyzeInvalidLabel(t *testing.T) {
	_, err := Analyze([]domain.NormalizedRecord{rec("mixed", 0, "x", "y", day1)})
	var ile *domain.InvalidLabelError
	require.ErrorAs(t, err, &ile)
	assert.Equal(t, domain.Label("mixed"), ile.Label)
}

func TestAnalyzeCountsSumToTotal(t *testing.T) {
	labels := []domain.Label{domain.LabelPositive, domain.LabelNeutral, domain.LabelNegative}
	var records []domain.NormalizedRecord
	var sum float64
	for i := 0; i < 37; i++ {
		score := float64(i%7)/10 - 0.3
		sum += score
		records = append(records, rec(labels[i%3], score, "L", "S", day1))
	}
	res, err := Analyze(records)
	require.NoError(t, err)
	assert.Equal(t, res.TotalCount, res.PositiveCount+res.NeutralCount+res.NegativeCount)
	assert.InDelta(t, sum/37, res.AverageScore, 1e-12)
}

func TestAnalyzeTopFiveStableOrder(t *testing.T) {
	locs := []string{"A", "B", "C", "B", "D", "E", "F", "G", "C", "G"}
	var records []domain.NormalizedRecord
	for _, l := range locs {
		records = append(records, rec(domain.LabelNeutral, 0, l, "src-"+l, day1))
	}
	res, err := Analyze(records)
	require.NoError(t, err)

	want := []domain.Count{{Key: "B", Value: 2}, {Key: "C", Value: 2}, {Key: "G", Value: 2}, {Key: "A", Value: 1}, {Key: "D", Value: 1}}
	assert.Equal(t, want, res.TopLocations)
	assert.Len(t, res.TopSources, TopN)
	for i := 1; i < len(res.TopSources); i++ {
		assert.GreaterOrEqual(t, res.TopSources[i-1].Value, res.TopSources[i].Value)
	}

	assert.Len(t, res.Series.Locations, TopN)
	assert.Len(t, res.Series.Sources, 7, "source series keeps every source")
	assert.Equal(t, "src-A", res.Series.Sources[0].Label)
}

func TestAnalyzeDayHistogram(t *testing.T) {
	offset := time.FixedZone("UTC+5", 5*3600)
	records := []domain.NormalizedRecord{
		rec(domain.LabelPositive, 0.1, "x", "s", time.Date(2024, 3, 3, 1, 0, 0, 0, time.UTC)),
		rec(domain.LabelPositive, 0.1, "x", "s", day1),
		// 2024-03-02 02:00 at UTC+5 is still March 1st in UTC
		rec(domain.LabelPositive, 0.1, "x", "s", time.Date(2024, 3, 2, 2, 0, 0, 0, offset)),
		rec(domain.LabelPositive, 0.1, "x", "s", time.Date(2024, 3, 3, 22, 0, 0, 0, time.UTC)),
	}
	res, err := Analyze(records)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"2024-03-01": 2, "2024-03-03": 2}, res.DayHistogram)
	assert.Equal(t, []domain.Point{{Label: "2024-03-01", Value: 2}, {Label: "2024-03-03", Value: 2}}, res.Series.Timeline)
}

func TestAnalyzeSentimentSeriesOnlyPresentLabels(t *testing.T) {
	records := []domain.NormalizedRecord{
		rec(domain.LabelNegative, -0.5, "x", "s", day1),
		rec(domain.LabelPositive, 0.5, "x", "s", day1),
		rec(domain.LabelNegative, -0.5, "x", "s", day1),
	}
	res, err := Analyze(records)
	require.NoError(t, err)
	assert.Equal(t, []domain.Point{{Label: "positive", Value: 1}, {Label: "negative", Value: 2}}, res.Series.Sentiment)
}
