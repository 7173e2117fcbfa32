// Package schedule does the clock arithmetic behind availability windows.
// Times of day are zero-padded "HH:MM" strings, so ordinary string
// comparison orders them correctly.
package schedule

import (
	"fmt"     // Clock formatting
	"regexp"  // HH:MM pattern
	"strings" // Date parsing
	"time"    // Calendar days
)

var clockPattern = regexp.MustCompile(`^([0-1]\d|2[0-3]):([0-5]\d)$`)

// ValidClock reports whether s is a 24h "HH:MM" time
func ValidClock(s string) bool {
	return clockPattern.MatchString(s)
}

// Within reports start <= clock < end
func Within(clock, start, end string) bool {
	return clock >= start && clock < end
}

// Minutes converts "HH:MM" to minutes past midnight
func Minutes(clock string) (int, error) {
	if !ValidClock(clock) {
		return 0, fmt.Errorf("invalid time %q", clock)
	}
	var h, m int
	if _, err := fmt.Sscanf(clock, "%d:%d", &h, &m); err != nil {
		return 0, err
	}
	return h*60 + m, nil
}

// Clock formats minutes past midnight as "HH:MM"
func Clock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// Slots divides [start, end) into step-minute slot start times
func Slots(start, end string, step int) ([]string, error) {
	from, err := Minutes(start)
	if err != nil {
		return nil, err
	}
	to, err := Minutes(end)
	if err != nil {
		return nil, err
	}
	if step <= 0 {
		return nil, fmt.Errorf("invalid slot length %d", step)
	}
	slots := []string{}
	for m := from; m+step <= to; m += step {
		slots = append(slots, Clock(m))
	}
	return slots, nil
}

// OnGrid reports whether clock is one of the slot start times of [start, end)
func OnGrid(clock, start, end string, step int) bool {
	at, err := Minutes(clock)
	if err != nil {
		return false
	}
	from, err := Minutes(start)
	if err != nil {
		return false
	}
	to, err := Minutes(end)
	if err != nil || step <= 0 {
		return false
	}
	return at >= from && at+step <= to && (at-from)%step == 0
}

// Free removes taken clocks from slots, keeping order
func Free(slots []string, taken []string) []string {
	busy := make(map[string]struct{}, len(taken))
	for _, t := range taken {
		busy[t] = struct{}{}
	}
	free := make([]string, 0, len(slots))
	for _, s := range slots {
		if _, ok := busy[s]; !ok {
			free = append(free, s)
		}
	}
	return free
}

// ParseDate accepts "2006-01-02" or an RFC 3339 timestamp
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	return t, nil
}

// Day truncates t to midnight UTC of its UTC calendar day
func Day(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
