// Package nwduration parses the task-period duration literal defined by
// spec.md §3: an integer count with an optional s/m/h/d unit suffix, a
// bare integer meaning seconds.
package nwduration

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

var literal = regexp.MustCompile(`^([0-9]+)([smhd])?$`)

var unitToDuration = map[string]time.Duration{
	"s": time.Second,
	"m": time.Minute,
	"h": time.Hour,
	"d": 24 * time.Hour,
}

// Parse converts a duration literal such as "10s", "2m", "1h", "1d", or
// a bare "5" (seconds) into a time.Duration. Empty or malformed input is
// rejected.
func Parse(s string) (time.Duration, error) {
	m := literal.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("nwduration: %q is not a valid duration literal", s)
	}
	count, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("nwduration: %q has an unparseable count: %w", s, err)
	}
	unit := unitToDuration["s"]
	if m[2] != "" {
		unit = unitToDuration[m[2]]
	}
	return time.Duration(count) * unit, nil
}

// Format renders a duration back to its canonical literal, always using
// the largest unit that divides evenly, falling back to seconds.
func Format(d time.Duration) string {
	switch {
	case d > 0 && d%(24*time.Hour) == 0:
		return fmt.Sprintf("%dd", d/(24*time.Hour))
	case d > 0 && d%time.Hour == 0:
		return fmt.Sprintf("%dh", d/time.Hour)
	case d > 0 && d%time.Minute == 0:
		return fmt.Sprintf("%dm", d/time.Minute)
	default:
		return fmt.Sprintf("%ds", d/time.Second)
	}
}
