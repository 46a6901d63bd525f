// Package format provides human-readable formatting utilities.
package format

import (
	"fmt"
	"math"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Binary size thresholds.
const (
	kib = 1024
	mib = kib * 1024
	gib = mib * 1024
	tib = gib * 1024
)

// Size formats a byte count for track listings. Values below one MB are
// reported in bytes; larger values in MB, GB or TB, always with two decimals.
//
// Example: Size(1572864) => "1.50 MB"
func Size(bytes int64) string {
	b := float64(bytes)
	switch {
	case bytes < mib:
		return fmt.Sprintf("%.2f bytes", b)
	case bytes < gib:
		return fmt.Sprintf("%.2f MB", b/mib)
	case bytes < tib:
		return fmt.Sprintf("%.2f GB", b/gib)
	default:
		return fmt.Sprintf("%.2f TB", b/tib)
	}
}

// maxClockSeconds is the longest span a time.Duration can hold.
const maxClockSeconds = math.MaxInt64 / 1e9

// Clock renders a number of seconds as "HHh MMm SSs". Non-finite or
// negative input renders as zero; larger spans than a time.Duration can
// hold are clamped.
//
// Example: Clock(3661) => "01h 01m 01s"
func Clock(seconds float64) string {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 {
		seconds = 0
	}
	if seconds > maxClockSeconds {
		seconds = maxClockSeconds
	}
	total := int64(seconds)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	return fmt.Sprintf("%02dh %02dm %02ds", h, m, s)
}

// ClockDuration is Clock for a time.Duration.
func ClockDuration(d time.Duration) string {
	return Clock(d.Seconds())
}

var printer = message.NewPrinter(language.English)

// Number formats a number with thousand separators.
// Example: Number(1234567) => "1,234,567"
func Number(n int64) string {
	return printer.Sprintf("%d", n)
}

// Timemark parses an encoder timemark ("HH:MM:SS.cc") into seconds.
// Returns false when the value is not a timemark.
func Timemark(mark string) (float64, bool) {
	var h, m int
	var s float64
	if _, err := fmt.Sscanf(mark, "%d:%d:%f", &h, &m, &s); err != nil {
		return 0, false
	}
	if h < 0 || m < 0 || s < 0 {
		return 0, false
	}
	return float64(h)*3600 + float64(m)*60 + s, true
}
