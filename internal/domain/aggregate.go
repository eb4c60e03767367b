package domain

// Chart names understood by the report renderer.
const (
	ChartSentiment = "sentiment"
	ChartSources   = "sources"
	ChartLocations = "locations"
	ChartTimeline  = "timeline"
)

// Count is one entry of an ordered frequency table.
type Count struct {
	Key   string `json:"key"`
	Value int    `json:"value"`
}

// Point is one labelled value of a chart series.
type Point struct {
	Label string `json:"label"`
	Value int    `json:"value"`
}

// ChartSeries holds renderer-agnostic data for every chart of a report.
type ChartSeries struct {
	Sentiment []Point `json:"sentiment"`
	Sources   []Point `json:"sources"`
	Locations []Point `json:"locations"`
	Timeline  []Point `json:"timeline"`
}

// Named returns the series keyed by chart name.
func (s ChartSeries) Named() map[string][]Point {
	return map[string][]Point{
		ChartSentiment: s.Sentiment,
		ChartSources:   s.Sources,
		ChartLocations: s.Locations,
		ChartTimeline:  s.Timeline,
	}
}

// AggregateResult summarizes the records of one job. It always describes at
// least one record.
type AggregateResult struct {
	TotalCount    int            `json:"total_count"`
	PositiveCount int            `json:"positive_count"`
	NeutralCount  int            `json:"neutral_count"`
	NegativeCount int            `json:"negative_count"`
	AverageScore  float64        `json:"average_score"`
	TopLocations  []Count        `json:"top_locations"`
	TopSources    []Count        `json:"top_sources"`
	DayHistogram  map[string]int `json:"day_histogram"`
	Series        ChartSeries    `json:"chart_series"`
}
