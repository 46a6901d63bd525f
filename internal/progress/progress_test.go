package progress

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    float64
		expected float64
	}{
		{"nan", math.NaN(), 0},
		{"negative", -5, 0},
		{"zero", 0, 0},
		{"mid", 42.5, 42.5},
		{"threshold", 98, 98},
		{"above threshold", 98.01, 100},
		{"over hundred", 140, 100},
		{"positive infinity", math.Inf(1), 100},
		{"negative infinity", math.Inf(-1), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.input)
			assert.Equal(t, tt.expected, got)
			assert.GreaterOrEqual(t, got, 0.0)
			assert.LessOrEqual(t, got, 100.0)
		})
	}
}

func TestBandFor(t *testing.T) {
	tests := []struct {
		percent  float64
		expected Band
	}{
		{0, BandCritical},
		{24.9, BandCritical},
		{25, BandWarning},
		{49.9, BandWarning},
		{50, BandNominal},
		{100, BandNominal},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, BandFor(tt.percent), "percent %v", tt.percent)
	}
}

func TestETA(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("quarter done", func(t *testing.T) {
		eta, ok := ETA(start, start.Add(10*time.Second), 25)
		require.True(t, ok)
		assert.Equal(t, 30*time.Second, eta)
	})

	t.Run("done", func(t *testing.T) {
		eta, ok := ETA(start, start.Add(10*time.Second), 100)
		require.True(t, ok)
		assert.Equal(t, time.Duration(0), eta)
	})

	t.Run("zero percent", func(t *testing.T) {
		_, ok := ETA(start, start.Add(10*time.Second), 0)
		assert.False(t, ok)
	})

	t.Run("nan percent", func(t *testing.T) {
		_, ok := ETA(start, start.Add(10*time.Second), math.NaN())
		assert.False(t, ok)
	})
}

func TestTracker_Update(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tr := NewTracker(start, 100)
	tr.now = func() time.Time { return start.Add(20 * time.Second) }

	snap := tr.Update(Sample{Percent: math.NaN(), Timemark: "00:00:50.00", Frames: 1200, CurrentFPS: 60, TargetSize: 512})

	assert.InDelta(t, 50.0, snap.Percent, 0.0001)
	assert.Equal(t, BandNominal, snap.Band)
	assert.Equal(t, int64(1200), snap.Frames)
	assert.Equal(t, 60.0, snap.CurrentFPS)
	assert.Equal(t, int64(512), snap.TargetSize)
	assert.True(t, snap.ETAKnown)
	assert.Equal(t, 20*time.Second, snap.ETA)
	assert.Equal(t, "00h 00m 20s", snap.ETAText)
	assert.Equal(t, snap, tr.Last())
}

func TestTracker_UnknownProgress(t *testing.T) {
	start := time.Now()
	tr := NewTracker(start, 0)

	snap := tr.Update(Sample{Percent: math.NaN(), Timemark: "00:00:01.00"})

	assert.Equal(t, 0.0, snap.Percent)
	assert.Equal(t, BandCritical, snap.Band)
	assert.False(t, snap.ETAKnown)
	assert.Equal(t, "00h 00m 00s", snap.ETAText)
}

func TestTracker_ClampsNearCompletion(t *testing.T) {
	start := time.Now()
	tr := NewTracker(start, 100)

	snap := tr.Update(Sample{Percent: math.NaN(), Timemark: "00:01:39.00"})
	assert.Equal(t, 100.0, snap.Percent)
}

func TestTracker_ProcessStats(t *testing.T) {
	tr := NewTracker(time.Now(), 10)

	assert.Nil(t, tr.Update(Sample{Percent: 10}).Process)

	tr.SetProcessStats(ProcessStats{CPUPercent: 12.5, RSSBytes: 4096})
	snap := tr.Update(Sample{Percent: 20})
	require.NotNil(t, snap.Process)
	assert.Equal(t, 12.5, snap.Process.CPUPercent)
	assert.Equal(t, uint64(4096), snap.Process.RSSBytes)
}

func TestTracker_Complete(t *testing.T) {
	tr := NewTracker(time.Now(), 10)
	tr.Update(Sample{Percent: 40, Timemark: "00:00:04.00"})

	snap := tr.Complete()
	assert.Equal(t, 100.0, snap.Percent)
	assert.Equal(t, "00:00:04.00", snap.Timemark)
}

func TestTracker_SetDuration(t *testing.T) {
	tr := NewTracker(time.Now(), 0)
	assert.Equal(t, 0.0, tr.Update(Sample{Percent: math.NaN(), Timemark: "00:00:10.00"}).Percent)

	tr.SetDuration(40)
	assert.Equal(t, 25.0, tr.Update(Sample{Percent: math.NaN(), Timemark: "00:00:10.00"}).Percent)

	tr.SetDuration(10)
	assert.Equal(t, 25.0, tr.Update(Sample{Percent: math.NaN(), Timemark: "00:00:10.00"}).Percent)
}
