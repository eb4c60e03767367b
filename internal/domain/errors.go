package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNoDataCollected is returned when every adapter was exhausted without a record.
	ErrNoDataCollected = errors.New("no posts collected")
	// ErrEmptyAggregationInput is returned when aggregation is asked to run over nothing.
	ErrEmptyAggregationInput = errors.New("no posts to analyze")
	// ErrEmptyQuery rejects job descriptors whose query is blank after trimming.
	ErrEmptyQuery = errors.New("query must not be empty")
)

// AdapterFetchError wraps a hard (non rate-limit) provider failure.
type AdapterFetchError struct {
	Adapter    string
	StatusCode int
	Err        error
}

func (e *AdapterFetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s fetch failed (status %d): %v", e.Adapter, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s fetch failed: %v", e.Adapter, e.Err)
}

func (e *AdapterFetchError) Unwrap() error { return e.Err }

// InvalidLabelError reports a record whose label is outside the three known classes.
type InvalidLabelError struct {
	Label Label
}

func (e *InvalidLabelError) Error() string {
	return fmt.Sprintf("invalid sentiment label %q", string(e.Label))
}
