package config

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Day and Week extend the units time.ParseDuration understands.
const (
	Day  = 24 * time.Hour
	Week = 7 * Day
)

var durationTermRe = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*([a-zµ]+)`)

var longUnits = map[string]time.Duration{
	"d": Day, "day": Day, "days": Day,
	"w": Week, "wk": Week, "week": Week, "weeks": Week,
	"h": time.Hour, "hr": time.Hour, "hour": time.Hour, "hours": time.Hour,
	"m": time.Minute, "min": time.Minute, "minute": time.Minute, "minutes": time.Minute,
	"s": time.Second, "sec": time.Second, "second": time.Second, "seconds": time.Second,
	"ms": time.Millisecond,
}

// ParseDuration parses human durations such as "30d", "2 weeks" or
// "1w2d12h" in addition to everything time.ParseDuration accepts.
func ParseDuration(s string) (time.Duration, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return 0, fmt.Errorf("empty duration")
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}

	matches := durationTermRe.FindAllStringSubmatchIndex(s, -1)
	if len(matches) == 0 {
		return 0, fmt.Errorf("invalid duration %q", s)
	}

	var total time.Duration
	end := 0
	for _, m := range matches {
		if strings.TrimSpace(s[end:m[0]]) != "" {
			return 0, fmt.Errorf("invalid duration %q", s)
		}
		end = m[1]

		value, err := strconv.ParseFloat(s[m[2]:m[3]], 64)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q: %w", s, err)
		}
		unit, ok := longUnits[s[m[4]:m[5]]]
		if !ok {
			return 0, fmt.Errorf("invalid duration %q: unknown unit %q", s, s[m[4]:m[5]])
		}
		total += time.Duration(value * float64(unit))
	}
	if strings.TrimSpace(s[end:]) != "" {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	return total, nil
}

// Duration is a time.Duration that unmarshals from human strings.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// String returns the Go duration representation.
func (d Duration) String() string {
	return time.Duration(d).String()
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}
