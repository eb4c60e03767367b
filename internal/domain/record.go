package domain

import (
	"strings"
	"time"
)

// DefaultLimit is used when a job is submitted without a positive record limit.
const DefaultLimit = 50000

// UnknownLocation replaces missing author locations during normalization.
const UnknownLocation = "Unknown"

// Label is a coarse sentiment class.
type Label string

const (
	LabelPositive Label = "positive"
	LabelNeutral  Label = "neutral"
	LabelNegative Label = "negative"
)

// Valid reports whether l is one of the three known labels.
func (l Label) Valid() bool {
	switch l {
	case LabelPositive, LabelNeutral, LabelNegative:
		return true
	}
	return false
}

// JobDescriptor is the caller-owned request to collect and analyze records.
type JobDescriptor struct {
	Query string
	Limit int
}

// NewJobDescriptor trims the query and applies DefaultLimit when limit <= 0.
func NewJobDescriptor(query string, limit int) (JobDescriptor, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return JobDescriptor{}, ErrEmptyQuery
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	return JobDescriptor{Query: query, Limit: limit}, nil
}

// RawRecord is one post as returned by a source adapter. Optional fields are nil
// when the provider did not supply them.
type RawRecord struct {
	Text           string
	Source         string
	Timestamp      time.Time
	AuthorLocation *string
	SentimentLabel *Label
	SentimentScore *float64
}

// NormalizedRecord is a RawRecord with location defaulted and sentiment filled in.
type NormalizedRecord struct {
	Text           string    `json:"text"`
	Source         string    `json:"source"`
	AuthorLocation string    `json:"author_location"`
	Timestamp      time.Time `json:"timestamp"`
	Label          Label     `json:"sentiment_label"`
	Score          float64   `json:"sentiment_score"`
}
