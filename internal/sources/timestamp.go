package sources

import (
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
)

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseTimestamp reads an ISO-8601 timestamp as UTC. Anything unparseable
// becomes the clock's current time so the record is kept.
func parseTimestamp(raw string, clock clockwork.Clock) time.Time {
	raw = strings.TrimSpace(raw)
	if raw != "" {
		for _, layout := range timestampLayouts {
			if ts, err := time.Parse(layout, raw); err == nil {
				return ts.UTC()
			}
		}
	}
	return clock.Now().UTC()
}

// unixTimestamp converts fractional epoch seconds.
func unixTimestamp(sec float64, clock clockwork.Clock) time.Time {
	if sec <= 0 {
		return clock.Now().UTC()
	}
	whole := int64(sec)
	nanos := int64((sec - float64(whole)) * float64(time.Second))
	return time.Unix(whole, nanos).UTC()
}
