package engine

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sampleProbe mirrors the shape of a real prober dump: audio notes, video
// notes, DRC and HDR variants, manifest-only tracks and a storyboard.
const sampleProbe = `{
  "id": "abc123",
  "title": "Sample Clip",
  "channel": "Example Channel",
  "channel_id": "UC123",
  "uploader": "example",
  "duration": 3661,
  "view_count": 1200,
  "like_count": 34,
  "webpage_url": "https://www.example.com/watch?v=abc123",
  "original_url": "https://www.example.com/watch?v=abc123",
  "upload_date": "20240102",
  "categories": ["Music"],
  "tags": ["a", "b"],
  "formats": [
    {"format_id": "sb0", "format_note": "storyboard", "protocol": "mhtml", "tbr": 0.1},
    {"format_id": "233", "format_note": "Default", "protocol": "m3u8_native", "tbr": 12},
    {"format_id": "91", "format": "91 - 256x144", "format_note": "144p", "protocol": "m3u8_native", "tbr": 290, "resolution": "256x144", "url": "https://m/91.m3u8"},
    {"format_id": "95", "format": "95 - 1280x720", "format_note": "720p", "protocol": "m3u8_native", "tbr": 2700, "resolution": "1280x720", "url": "https://m/95.m3u8"},
    {"format_id": "300", "format": "300 - 1280x720", "format_note": "720p", "protocol": "m3u8_native", "tbr": 2500, "resolution": "1280x720", "url": "https://m/300.m3u8"},
    {"format_id": "139", "format": "139 - audio only (low)", "format_note": "low", "filesize": 1000, "protocol": "https", "acodec": "mp4a.40.5", "vcodec": "none", "abr": 48, "asr": 22050, "audio_channels": 2, "url": "https://a/139"},
    {"format_id": "140", "format": "140 - audio only (medium)", "format_note": "medium", "filesize": 3000, "protocol": "https", "acodec": "mp4a.40.2", "vcodec": "none", "abr": 129, "asr": 44100, "audio_channels": 2, "url": "https://a/140"},
    {"format_id": "251-drc", "format": "251-drc - audio only (medium, DRC)", "format_note": "medium, DRC", "filesize": 5000, "protocol": "https", "acodec": "opus", "url": "https://a/251-drc"},
    {"format_id": "140-drc", "format": "140-drc - audio only (medium, DRC)", "format_note": "medium, DRC", "filesize": 3100, "protocol": "https", "acodec": "mp4a.40.2", "url": "https://a/140-drc"},
    {"format_id": "251", "format": "251 - audio only (medium)", "format_note": "medium", "filesize": 3500, "protocol": "https", "acodec": "opus", "url": "https://a/251"},
    {"format_id": "160", "format": "160 - 256x144 (144p)", "format_note": "144p", "filesize": 2000, "protocol": "https", "vcodec": "avc1", "acodec": "none", "height": 144, "width": 256, "resolution": "256x144", "url": "https://v/160"},
    {"format_id": "136", "format": "136 - 1280x720 (720p)", "format_note": "720p", "filesize": 100, "protocol": "https", "vcodec": "avc1", "height": 720, "width": 1280, "resolution": "1280x720", "fps": 30, "url": "https://v/136"},
    {"format_id": "247", "format": "247 - 1280x720 (720p)", "format_note": "720p", "filesize": 50, "protocol": "https", "vcodec": "vp9", "height": 720, "width": 1280, "resolution": "1280x720", "url": "https://v/247"},
    {"format_id": "334", "format": "334 - 1280x720 (720p60 HDR)", "format_note": "720p60 HDR", "filesize": 9000, "protocol": "https", "vcodec": "vp9.2", "dynamic_range": "HDR10", "url": "https://v/334"},
    {"format_id": "137", "format": "137 - 1920x1080 (1080p)", "format_note": "1080p", "filesize": 50000, "protocol": "https", "vcodec": "avc1", "height": 1080, "width": 1920, "resolution": "1920x1080", "url": "https://v/137"},
    {"format_id": "nosize", "format_note": "2160p", "protocol": "https", "vcodec": "vp9", "url": "https://v/nosize"}
  ]
}`

func mustResolve(t *testing.T, data string) *Catalogue {
	t.Helper()
	cat, err := New(nil).Resolve([]byte(data), "203.0.113.7")
	require.NoError(t, err)
	return cat
}

func TestResolve_PerNoteExtremes(t *testing.T) {
	cat := mustResolve(t, sampleProbe)

	require.Contains(t, cat.VideoLowByNote, "720p")
	require.Contains(t, cat.VideoHighByNote, "720p")
	assert.Equal(t, int64(50), cat.VideoLowByNote["720p"].Size)
	assert.Equal(t, int64(100), cat.VideoHighByNote["720p"].Size)

	assert.Equal(t, "139", cat.AudioLowByNote["low"].ID)
	assert.Equal(t, "140", cat.AudioLowByNote["medium"].ID)
	assert.Equal(t, "251", cat.AudioHighByNote["medium"].ID)
}

func TestResolve_CrossNoteReduction(t *testing.T) {
	cat := mustResolve(t, sampleProbe)

	require.NotNil(t, cat.AudioLow)
	require.NotNil(t, cat.AudioHigh)
	require.NotNil(t, cat.VideoLow)
	require.NotNil(t, cat.VideoHigh)

	assert.Equal(t, "139", cat.AudioLow.ID)
	assert.Equal(t, "251", cat.AudioHigh.ID)
	assert.Equal(t, "247", cat.VideoLow.ID)
	assert.Equal(t, "137", cat.VideoHigh.ID)
}

func TestResolve_VariantsKeptApart(t *testing.T) {
	cat := mustResolve(t, sampleProbe)

	// the last DRC track seen for a note replaces earlier ones regardless of size
	require.Contains(t, cat.AudioHighDRC, "medium, DRC")
	assert.Len(t, cat.AudioHighDRC, 1)
	assert.Equal(t, "140-drc", cat.AudioHighDRC["medium, DRC"].ID)
	assert.Equal(t, "140-drc", cat.AudioLowDRC["medium, DRC"].ID)

	require.Contains(t, cat.VideoHighHDR, "720p60 HDR")
	assert.Equal(t, "HDR10", cat.VideoHighHDR["720p60 HDR"].DynamicRange)

	for _, pick := range []string{cat.AudioLow.Note, cat.AudioHigh.Note, cat.VideoLow.Note, cat.VideoHigh.Note} {
		assert.NotContains(t, pick, "DRC")
		assert.NotContains(t, pick, "HDR")
	}
	for note := range cat.AudioHighByNote {
		assert.NotContains(t, note, "DRC")
	}
	for note := range cat.VideoHighByNote {
		assert.NotContains(t, note, "HDR")
	}
}

func TestResolve_DRCLastSeenWins(t *testing.T) {
	tests := []struct {
		name     string
		formats  string
		expected string
	}{
		{
			name: "larger then smaller",
			formats: `[
				{"format_id": "251-drc", "format_note": "medium, DRC", "filesize": 100},
				{"format_id": "140-drc", "format_note": "medium, DRC", "filesize": 50}
			]`,
			expected: "140-drc",
		},
		{
			name: "smaller then larger",
			formats: `[
				{"format_id": "140-drc", "format_note": "medium, DRC", "filesize": 50},
				{"format_id": "251-drc", "format_note": "medium, DRC", "filesize": 100}
			]`,
			expected: "251-drc",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cat := mustResolve(t, `{"formats": `+tt.formats+`}`)

			require.Contains(t, cat.AudioLowDRC, "medium, DRC")
			require.Contains(t, cat.AudioHighDRC, "medium, DRC")
			assert.Equal(t, tt.expected, cat.AudioLowDRC["medium, DRC"].ID)
			assert.Equal(t, tt.expected, cat.AudioHighDRC["medium, DRC"].ID)
			assert.Nil(t, cat.AudioLow)
		})
	}
}

func TestResolve_Manifests(t *testing.T) {
	cat := mustResolve(t, sampleProbe)

	assert.Len(t, cat.ManifestHigh, 2)
	assert.NotContains(t, cat.ManifestHigh, "Default")
	assert.NotContains(t, cat.ManifestHigh, "storyboard")

	require.Contains(t, cat.ManifestHigh, "1280x720")
	assert.Equal(t, "95", cat.ManifestHigh["1280x720"].ID)
	assert.Equal(t, "300", cat.ManifestLow["1280x720"].ID)
	assert.Equal(t, 2700.0, cat.ManifestHigh["1280x720"].Bitrate)
}

func TestResolve_UnsizedTracksIgnored(t *testing.T) {
	cat := mustResolve(t, sampleProbe)

	assert.NotContains(t, cat.VideoHighByNote, "2160p")
	for _, tr := range cat.VideoHighByNote {
		assert.NotEqual(t, "nosize", tr.ID)
	}
}

func TestResolve_Metadata(t *testing.T) {
	cat := mustResolve(t, sampleProbe)

	assert.Equal(t, "203.0.113.7", cat.IPAddress)
	assert.Equal(t, "abc123", cat.Metadata.ID)
	assert.Equal(t, "Sample Clip", cat.Metadata.Title)
	assert.Equal(t, "01h 01m 01s", cat.Metadata.DurationText)
	assert.Equal(t, int64(1200), cat.Metadata.ViewCount)
	assert.Equal(t, []string{"Music"}, cat.Metadata.Categories)
}

func TestResolve_SizeText(t *testing.T) {
	cat := mustResolve(t, sampleProbe)

	assert.Equal(t, "1000.00 bytes", cat.AudioLow.SizeText)
	assert.Equal(t, "50.00 bytes", cat.VideoLow.SizeText)
}

func TestResolve_TieKeepsFirstSeen(t *testing.T) {
	data := `{"formats": [
		{"format_id": "a", "format_note": "480p", "filesize": 10},
		{"format_id": "b", "format_note": "480p", "filesize": 10},
		{"format_id": "c", "format_note": "360p", "filesize": 10}
	]}`
	cat := mustResolve(t, data)

	assert.Equal(t, "a", cat.VideoLowByNote["480p"].ID)
	assert.Equal(t, "a", cat.VideoHighByNote["480p"].ID)
	assert.Equal(t, "a", cat.VideoLow.ID)
	assert.Equal(t, "a", cat.VideoHigh.ID)
}

func TestResolve_NoAudio(t *testing.T) {
	data := `{"formats": [{"format_id": "v", "format_note": "720p", "filesize": 10}]}`
	cat := mustResolve(t, data)

	assert.Nil(t, cat.AudioLow)
	assert.Nil(t, cat.AudioHigh)
	assert.NotNil(t, cat.VideoHigh)
}

func TestResolve_PicksBoundedBySizedTracks(t *testing.T) {
	tests := []struct {
		name    string
		formats string
	}{
		{"empty sizes", `[{"format_id": "1", "format_note": "720p"}]`},
		{"single audio", `[{"format_id": "1", "format_note": "low", "filesize": 5}]`},
		{"single video", `[{"format_id": "1", "format_note": "720p", "filesize": 5}]`},
		{"mixed", `[
			{"format_id": "1", "format_note": "low", "filesize": 5},
			{"format_id": "2", "format_note": "high", "filesize": 9},
			{"format_id": "3", "format_note": "720p", "filesize": 7},
			{"format_id": "4", "format_note": "1080p"},
			{"format_id": "5", "format_note": "medium, DRC", "filesize": 8}
		]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cat := mustResolve(t, `{"formats": `+tt.formats+`}`)

			var doc Document
			require.NoError(t, json.Unmarshal([]byte(`{"formats": `+tt.formats+`}`), &doc))
			sized := 0
			for _, f := range doc.Formats {
				if f.Filesize != nil {
					sized++
				}
			}

			ids := map[string]bool{}
			if cat.AudioLow != nil {
				ids[cat.AudioLow.ID] = true
			}
			if cat.AudioHigh != nil {
				ids[cat.AudioHigh.ID] = true
			}
			if cat.VideoLow != nil {
				ids[cat.VideoLow.ID] = true
			}
			if cat.VideoHigh != nil {
				ids[cat.VideoHigh.ID] = true
			}
			assert.LessOrEqual(t, len(ids), sized)
		})
	}
}

func TestResolve_Idempotent(t *testing.T) {
	first := mustResolve(t, sampleProbe)
	second := mustResolve(t, sampleProbe)

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestResolve_Errors(t *testing.T) {
	t.Run("invalid json", func(t *testing.T) {
		_, err := Resolve([]byte(`{"formats": [`), "")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrProbeParse)

		var parseErr *ProbeParseError
		require.True(t, errors.As(err, &parseErr))
		assert.True(t, strings.HasPrefix(err.Error(), "parsing probe output"))
	})

	t.Run("empty formats", func(t *testing.T) {
		_, err := Resolve([]byte(`{"id": "x", "formats": []}`), "")
		assert.ErrorIs(t, err, ErrNoFormats)
	})

	t.Run("missing formats", func(t *testing.T) {
		_, err := Resolve([]byte(`{"id": "x"}`), "")
		assert.ErrorIs(t, err, ErrNoFormats)
	})
}

func TestExtremes_StrictReplacement(t *testing.T) {
	e := newExtremes[string]()
	e.offer("k", "first", 5)
	e.offer("k", "same", 5)
	e.offer("k", "lower", 3)
	e.offer("k", "higher", 8)
	e.offer("j", "other", 1)

	assert.Equal(t, "lower", e.low["k"])
	assert.Equal(t, "higher", e.high["k"])
	assert.Equal(t, []string{"k", "j"}, e.order)

	low := reduce(e.order, e.low, e.lowV, less)
	require.NotNil(t, low)
	assert.Equal(t, "other", *low)
}
