// FilePath: internal/dates/dates.go

// Package dates normalizes caller-supplied date parameters. Clients send
// either Unix epoch seconds or ISO-8601 strings; both forms resolve to a
// single UTC instant.
package dates

import (
	"strconv"
	"strings"
	"time"

	"github.com/gridsense/telemetry-hub/internal/errors"
)

// Layouts tried after the epoch-integer form, in order. Offsetless
// layouts are interpreted as UTC.
var isoLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Parse converts a date parameter into a UTC instant. An input that
// parses fully as an integer is a Unix timestamp in seconds; otherwise
// ISO-8601 forms are attempted. Anything else fails with an
// invalid_date_format error carrying the original input.
func Parse(input string) (time.Time, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return time.Time{}, errors.NewInvalidDateError(input)
	}

	if epoch, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return time.Unix(epoch, 0).UTC(), nil
	}

	for _, layout := range isoLayouts {
		if t, err := time.ParseInLocation(layout, trimmed, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}

	return time.Time{}, errors.NewInvalidDateError(input)
}
