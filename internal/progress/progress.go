// Package progress normalises raw encoder progress samples into snapshots
// with a clamped percentage, a presentation band and an ETA.
package progress

import (
	"math"
	"sync"
	"time"

	"github.com/jmylchreest/streamsift/pkg/format"
)

// CompletionThreshold is the percentage above which progress reports as done.
// The encoder's own rounding is unreliable close to the end of a job.
const CompletionThreshold = 98.0

// Band is a presentation-only severity derived from the percentage.
type Band string

// Band values.
const (
	BandCritical Band = "critical"
	BandWarning  Band = "warning"
	BandNominal  Band = "nominal"
)

// Normalize coerces a raw percentage into [0, 100]. NaN and negative values
// become 0; anything above CompletionThreshold becomes 100.
func Normalize(percent float64) float64 {
	switch {
	case math.IsNaN(percent) || percent < 0:
		return 0
	case percent > CompletionThreshold:
		return 100
	default:
		return percent
	}
}

// BandFor returns the presentation band for a normalised percentage.
func BandFor(percent float64) Band {
	switch {
	case percent < 25:
		return BandCritical
	case percent < 50:
		return BandWarning
	default:
		return BandNominal
	}
}

// ETA estimates the remaining time from the elapsed time and the completed
// percentage. ok is false when no estimate is possible.
func ETA(start, now time.Time, percent float64) (remaining time.Duration, ok bool) {
	if !(percent > 0) || math.IsInf(percent, 0) {
		return 0, false
	}
	elapsed := now.Sub(start)
	if elapsed < 0 {
		elapsed = 0
	}
	seconds := elapsed.Seconds() * (100 - percent) / percent
	if math.IsNaN(seconds) || seconds < 0 {
		return 0, true
	}
	return time.Duration(seconds * float64(time.Second)), true
}

// Sample is one raw progress reading from the encoder.
type Sample struct {
	Percent    float64 // NaN when unknown
	Timemark   string
	Frames     int64
	CurrentFPS float64
	TargetSize int64 // kilobytes written so far
	Bitrate    string
	Speed      string
}

// ProcessStats are optional resource figures for the encoder process.
type ProcessStats struct {
	CPUPercent float64 `json:"cpuPercent"`
	RSSBytes   uint64  `json:"rssBytes"`
}

// Snapshot is a normalised view of a job's progress at one point in time.
type Snapshot struct {
	Percent    float64       `json:"percent"`
	Band       Band          `json:"band"`
	Timemark   string        `json:"timemark"`
	Frames     int64         `json:"frames"`
	CurrentFPS float64       `json:"currentFps"`
	TargetSize int64         `json:"targetSize"`
	Bitrate    string        `json:"bitrate,omitempty"`
	Speed      string        `json:"speed,omitempty"`
	Elapsed    time.Duration `json:"elapsed"`
	ETA        time.Duration `json:"eta"`
	ETAKnown   bool          `json:"etaKnown"`
	ETAText    string        `json:"etaText"`
	Process    *ProcessStats `json:"process,omitempty"`
}

// Tracker accumulates samples for a single job. It is safe for concurrent use.
type Tracker struct {
	start time.Time
	now   func() time.Time

	mu       sync.Mutex
	duration float64
	last     Snapshot
	stats    *ProcessStats
}

// NewTracker creates a tracker for a job that started at start. duration is
// the media length in seconds and is used to derive a percentage from the
// timemark when the sample carries none.
func NewTracker(start time.Time, duration float64) *Tracker {
	return &Tracker{start: start, duration: duration, now: time.Now}
}

// Start returns the job start time.
func (t *Tracker) Start() time.Time {
	return t.start
}

// SetDuration sets the media length in seconds when it was unknown at
// construction. A known duration is never replaced.
func (t *Tracker) SetDuration(seconds float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.duration <= 0 && seconds > 0 {
		t.duration = seconds
	}
}

// SetProcessStats attaches resource figures to subsequent snapshots.
func (t *Tracker) SetProcessStats(stats ProcessStats) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := stats
	t.stats = &s
}

// Update folds a sample into the tracker and returns the new snapshot.
func (t *Tracker) Update(s Sample) Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	percent := s.Percent
	if math.IsNaN(percent) {
		percent = t.percentFromTimemark(s.Timemark)
	}
	percent = Normalize(percent)

	now := t.now()
	eta, known := ETA(t.start, now, percent)
	etaText := format.ClockDuration(eta)
	if !known {
		etaText = format.Clock(math.NaN())
	}

	snap := Snapshot{
		Percent:    percent,
		Band:       BandFor(percent),
		Timemark:   s.Timemark,
		Frames:     s.Frames,
		CurrentFPS: s.CurrentFPS,
		TargetSize: s.TargetSize,
		Bitrate:    s.Bitrate,
		Speed:      s.Speed,
		Elapsed:    now.Sub(t.start),
		ETA:        eta,
		ETAKnown:   known,
		ETAText:    etaText,
	}
	if t.stats != nil {
		stats := *t.stats
		snap.Process = &stats
	}
	t.last = snap
	return snap
}

// Last returns the most recent snapshot.
func (t *Tracker) Last() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last
}

// Complete records the terminal snapshot of a successful job.
func (t *Tracker) Complete() Snapshot {
	t.mu.Lock()
	timemark := t.last.Timemark
	t.mu.Unlock()
	return t.Update(Sample{Percent: 100, Timemark: timemark})
}

func (t *Tracker) percentFromTimemark(mark string) float64 {
	if t.duration <= 0 {
		return math.NaN()
	}
	seconds, ok := format.Timemark(mark)
	if !ok {
		return math.NaN()
	}
	return seconds / t.duration * 100
}
