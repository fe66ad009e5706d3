package pricing

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

var intervalLabels = map[int]string{
	15:  "15m",
	30:  "30m",
	45:  "45m",
	60:  "1h",
	75:  "1h 15m",
	90:  "1h 30m",
	105: "1h 45m",
	120: "2h",
	135: "2h 15m",
	150: "2h 30m",
	165: "2h 45m",
	180: "3h",
	195: "3h 15m",
	210: "3h 30m",
	225: "3h 45m",
	240: "4h",
}

// IntervalLabel maps a session length in minutes to the label used as the
// row key of a course price-range table.
func IntervalLabel(minutes int) string {
	if label, ok := intervalLabels[minutes]; ok {
		return label
	}
	return fmt.Sprintf("%dm", minutes)
}

// ParseClock parses "HH:MM" or "HH:MM:SS" into an offset from midnight.
func ParseClock(value string) (time.Duration, error) {
	parts := strings.Split(strings.TrimSpace(value), ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, fmt.Errorf("malformed time %q", value)
	}

	limits := []int{23, 59, 59}
	units := []time.Duration{time.Hour, time.Minute, time.Second}

	var total time.Duration
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil {
			return 0, fmt.Errorf("malformed time %q: %w", value, err)
		}
		if n < 0 || n > limits[i] {
			return 0, fmt.Errorf("malformed time %q: component out of range", value)
		}
		total += time.Duration(n) * units[i]
	}
	return total, nil
}

// SessionMinutes returns the length of a session. An end before the start
// is taken to wrap past midnight.
func SessionMinutes(start, end string) (int, error) {
	from, err := ParseClock(start)
	if err != nil {
		return 0, err
	}
	to, err := ParseClock(end)
	if err != nil {
		return 0, err
	}
	if to < from {
		to += 24 * time.Hour
	}
	return int((to - from) / time.Minute), nil
}
