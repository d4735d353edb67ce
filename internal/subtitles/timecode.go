package subtitles

import (
	"fmt"
	"strconv"
	"strings"
)

// FormatTimestamp renders a millisecond offset as HH:MM:SS.mmm. Hours wrap
// at 24.
func FormatTimestamp(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	hours := (ms / 3_600_000) % 24
	minutes := (ms / 60_000) % 60
	seconds := (ms / 1000) % 60
	millis := ms % 1000
	return fmt.Sprintf("%02d:%02d:%02d.%03d", hours, minutes, seconds, millis)
}

// ParseTimestamp converts an HH:MM:SS.mmm timestamp back to milliseconds.
func ParseTimestamp(value string) (int64, error) {
	clock, fraction, ok := strings.Cut(strings.TrimSpace(value), ".")
	if !ok || len(fraction) != 3 {
		return 0, fmt.Errorf("timestamp %q: expected HH:MM:SS.mmm", value)
	}
	parts := strings.Split(clock, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("timestamp %q: expected HH:MM:SS.mmm", value)
	}
	limits := []int64{-1, 60, 60}
	var total int64
	for i, part := range parts {
		n, err := strconv.ParseInt(part, 10, 64)
		if err != nil || n < 0 || len(part) < 2 || (limits[i] > 0 && n >= limits[i]) {
			return 0, fmt.Errorf("timestamp %q: bad field %q", value, part)
		}
		total = total*60 + n
	}
	millis, err := strconv.ParseInt(fraction, 10, 64)
	if err != nil || millis < 0 {
		return 0, fmt.Errorf("timestamp %q: bad milliseconds %q", value, fraction)
	}
	return total*1000 + millis, nil
}
