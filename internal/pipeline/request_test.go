package pipeline

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptions_Resolve(t *testing.T) {
	tests := []struct {
		name     string
		opts     Options
		expected Request
	}{
		{
			name:     "defaults",
			opts:     Options{},
			expected: Request{Kind: KindAudioVideo, Tier: TierHighest, Mode: ModeSave},
		},
		{
			name:     "case insensitive",
			opts:     Options{Kind: "VIDEO", Tier: "Custom", Resolution: "720P", Stream: true},
			expected: Request{Kind: KindVideo, Tier: TierCustom, Resolution: "720p", Mode: ModeStream},
		},
		{
			name:     "audio custom note",
			opts:     Options{Kind: "audio", Tier: "custom", Resolution: "medium", Container: "Opus"},
			expected: Request{Kind: KindAudio, Tier: TierCustom, Resolution: "medium", Container: "opus", Mode: ModeSave},
		},
		{
			name:     "metadata",
			opts:     Options{Kind: "av", Tier: "lowest", Metadata: true},
			expected: Request{Kind: KindAudioVideo, Tier: TierLowest, Mode: ModeMetadata},
		},
		{
			name:     "save with filter and output",
			opts:     Options{Kind: "video", Filter: "invert", Output: "/tmp/out"},
			expected: Request{Kind: KindVideo, Tier: TierHighest, Filter: "invert", OutputDir: "/tmp/out", Mode: ModeSave},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.opts.Resolve()
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestOptions_ResolveCombinationErrors(t *testing.T) {
	tests := []struct {
		name      string
		opts      Options
		option    string
		conflicts []string
	}{
		{"metadata with output", Options{Metadata: true, Output: "x"}, "metadata", []string{"output"}},
		{"metadata with stream", Options{Metadata: true, Stream: true}, "metadata", []string{"stream"}},
		{"metadata with filter", Options{Metadata: true, Filter: "invert"}, "metadata", []string{"filter"}},
		{"metadata with everything", Options{Metadata: true, Output: "x", Stream: true, Filter: "invert"}, "metadata", []string{"output", "stream", "filter"}},
		{"stream with output", Options{Stream: true, Output: "x"}, "stream", []string{"output"}},
		// combination errors win over malformed values
		{"precedes validation", Options{Metadata: true, Output: "x", Kind: "bogus"}, "metadata", []string{"output"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.opts.Resolve()
			var combo *InvalidOptionCombinationError
			require.ErrorAs(t, err, &combo)
			assert.Equal(t, tt.option, combo.Option)
			assert.Equal(t, tt.conflicts, combo.Conflicts)
		})
	}
}

func TestOptions_ResolveValidationErrors(t *testing.T) {
	tests := []struct {
		name  string
		opts  Options
		field string
	}{
		{"unknown kind", Options{Kind: "hologram"}, "kind"},
		{"unknown tier", Options{Tier: "best"}, "tier"},
		{"resolution without custom", Options{Resolution: "720p"}, "resolution"},
		{"custom video missing resolution", Options{Kind: "video", Tier: "custom"}, "resolution"},
		{"custom video malformed", Options{Kind: "video", Tier: "custom", Resolution: "hd"}, "resolution"},
		{"custom video too short", Options{Kind: "av", Tier: "custom", Resolution: "72p"}, "resolution"},
		{"custom audio unknown note", Options{Kind: "audio", Tier: "custom", Resolution: "720p"}, "resolution"},
		{"unknown filter", Options{Kind: "video", Filter: "sepia"}, "filter"},
		{"filter on audio", Options{Kind: "audio", Filter: "invert"}, "filter"},
		{"video container for audio", Options{Kind: "audio", Container: "mkv"}, "container"},
		{"audio container for video", Options{Kind: "video", Container: "mp3"}, "container"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.opts.Resolve()
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestFilters(t *testing.T) {
	expected := map[string]string{
		"grayscale":      "colorchannelmixer=.3:.4:.3:0:.3:.4:.3:0:.3:.4:.3",
		"invert":         "negate",
		"rotate90":       "rotate=PI/2",
		"rotate180":      "rotate=PI",
		"rotate270":      "rotate=3*PI/2",
		"flipHorizontal": "hflip",
		"flipVertical":   "vflip",
	}
	for name, want := range expected {
		got, ok := FilterExpression(name)
		require.True(t, ok, name)
		assert.Equal(t, want, got)
	}
	assert.Len(t, FilterNames(), len(expected))
	assert.IsNonDecreasing(t, FilterNames())
}

func TestRequest_ValidateDirect(t *testing.T) {
	tests := []struct {
		name      string
		req       Request
		conflicts []string
	}{
		{"output only", Request{Kind: KindVideo, Tier: TierHighest, Mode: ModeMetadata, OutputDir: "x"}, []string{"output"}},
		{"filter only", Request{Kind: KindVideo, Tier: TierHighest, Mode: ModeMetadata, Filter: "invert"}, []string{"filter"}},
		{"both", Request{Kind: KindVideo, Tier: TierHighest, Mode: ModeMetadata, OutputDir: "x", Filter: "invert"}, []string{"output", "filter"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var combo *InvalidOptionCombinationError
			require.True(t, errors.As(tt.req.Validate(), &combo))
			assert.Equal(t, "metadata", combo.Option)
			assert.Equal(t, tt.conflicts, combo.Conflicts)
		})
	}

	assert.NoError(t, Request{Kind: KindAudio, Tier: TierLowest, Mode: ModeStream}.Validate())
	assert.NoError(t, Request{Kind: KindVideo, Tier: TierHighest, Mode: ModeMetadata}.Validate())
}
