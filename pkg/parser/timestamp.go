package parser

import (
	"fmt"
	"time"
)

// TimestampLayout is the fixed MM-DD-YY HH:MM:SS format the Qmodem script
// stamps on every marker line.
const TimestampLayout = "01-02-06 15:04:05"

// ParseTimestamp parses a marker timestamp. A mismatch means the capture line
// is corrupted; callers skip the line rather than aborting the run.
func ParseTimestamp(s string) (time.Time, error) {
	ts, err := time.Parse(TimestampLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", s, err)
	}
	return ts, nil
}
