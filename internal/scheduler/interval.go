package scheduler

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseInterval parses "500ms", "1s", "15m", "1h", "1d", "1w" into a duration.
func ParseInterval(interval string) (time.Duration, error) {
	raw := interval
	interval = strings.ToLower(strings.TrimSpace(interval))
	if interval == "" {
		return 0, fmt.Errorf("empty interval")
	}
	unit := interval[len(interval)-1:]
	numStr := interval[:len(interval)-1]
	if strings.HasSuffix(interval, "ms") {
		unit = "ms"
		numStr = interval[:len(interval)-2]
	}
	n, err := strconv.Atoi(strings.TrimSpace(numStr))
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid interval %q", raw)
	}
	switch unit {
	case "ms":
		return time.Duration(n) * time.Millisecond, nil
	case "s":
		return time.Duration(n) * time.Second, nil
	case "m":
		return time.Duration(n) * time.Minute, nil
	case "h":
		return time.Duration(n) * time.Hour, nil
	case "d":
		return time.Duration(n) * 24 * time.Hour, nil
	case "w":
		return time.Duration(n) * 7 * 24 * time.Hour, nil
	default:
		return 0, fmt.Errorf("invalid interval unit in %q", raw)
	}
}
