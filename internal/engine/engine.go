// Package engine turns raw prober output into a deduplicated catalogue of
// audio, video and manifest candidates.
//
// Resolution is a single fold over the format list into an accumulator that
// is local to the call, followed by a cross-note reduction. Nothing is shared
// between calls, so resolving the same input twice yields identical results.
package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jmylchreest/streamsift/pkg/format"
)

// ErrNoFormats is returned when the probe output lists no formats.
var ErrNoFormats = errors.New("probe output contains no formats")

// ErrProbeParse is matched by every ProbeParseError via errors.Is.
var ErrProbeParse = errors.New("probe output is not valid JSON")

// ProbeParseError wraps a JSON decoding failure of the probe output.
type ProbeParseError struct {
	Err error
}

func (e *ProbeParseError) Error() string {
	return fmt.Sprintf("parsing probe output: %v", e.Err)
}

func (e *ProbeParseError) Unwrap() error { return e.Err }

// Is reports ErrProbeParse as a match.
func (e *ProbeParseError) Is(target error) bool { return target == ErrProbeParse }

// Format notes with special handling.
const (
	noteStoryboard = "storyboard"
	noteDefault    = "Default"
	markerDRC      = "DRC"
	markerHDR      = "HDR"
	markerVideo    = "p"
)

// manifestProtocols are the adaptive-manifest transports.
var manifestProtocols = map[string]bool{
	"m3u8":               true,
	"m3u8_native":        true,
	"http_dash_segments": true,
}

// Engine resolves probe output into catalogues.
type Engine struct {
	logger *slog.Logger
}

// New creates an engine. A nil logger uses slog.Default().
func New(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{logger: logger.With(slog.String("component", "engine"))}
}

// Parse decodes raw probe JSON.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &ProbeParseError{Err: err}
	}
	return &doc, nil
}

// Resolve parses raw probe JSON and builds its catalogue. ipAddress is the
// network identity the probe ran under.
func (e *Engine) Resolve(data []byte, ipAddress string) (*Catalogue, error) {
	doc, err := Parse(data)
	if err != nil {
		return nil, err
	}
	cat, err := Build(doc, ipAddress)
	if err != nil {
		return nil, err
	}

	e.logger.Debug("catalogue resolved",
		slog.String("video_id", cat.Metadata.ID),
		slog.Int("formats", len(doc.Formats)),
		slog.Int("audio_notes", len(cat.AudioHighByNote)),
		slog.Int("video_notes", len(cat.VideoHighByNote)),
		slog.Int("drc_notes", len(cat.AudioHighDRC)),
		slog.Int("hdr_notes", len(cat.VideoHighHDR)),
		slog.Int("manifests", len(cat.ManifestHigh)),
	)
	return cat, nil
}

// Resolve is Engine.Resolve with the default logger.
func Resolve(data []byte, ipAddress string) (*Catalogue, error) {
	return New(nil).Resolve(data, ipAddress)
}

// Build folds a decoded document into a catalogue.
func Build(doc *Document, ipAddress string) (*Catalogue, error) {
	if len(doc.Formats) == 0 {
		return nil, ErrNoFormats
	}

	acc := newAccumulator()
	for i := range doc.Formats {
		acc.add(&doc.Formats[i])
	}

	return acc.catalogue(doc, ipAddress), nil
}

// accumulator holds the per-note extremes collected during the fold.
type accumulator struct {
	audio    *extremes[AudioTrack]
	video    *extremes[VideoTrack]
	drc      *extremes[AudioTrack]
	hdr      *extremes[VideoTrack]
	manifest *extremes[ManifestTrack]
}

func newAccumulator() *accumulator {
	return &accumulator{
		audio:    newExtremes[AudioTrack](),
		video:    newExtremes[VideoTrack](),
		drc:      newExtremes[AudioTrack](),
		hdr:      newExtremes[VideoTrack](),
		manifest: newExtremes[ManifestTrack](),
	}
}

func (a *accumulator) add(t *RawTrack) {
	note := t.FormatNote

	if isManifestCandidate(t) {
		a.manifest.offer(manifestKey(t), newManifestTrack(t), deref(t.TBR))
	}

	if t.Filesize == nil {
		return
	}
	size := int64(*t.Filesize)

	switch {
	case strings.Contains(note, markerDRC):
		a.drc.set(note, newAudioTrack(t, size), float64(size))
	case strings.Contains(note, markerHDR):
		a.hdr.offer(note, newVideoTrack(t, size), float64(size))
	case strings.Contains(note, markerVideo):
		a.video.offer(note, newVideoTrack(t, size), float64(size))
	default:
		a.audio.offer(note, newAudioTrack(t, size), float64(size))
	}
}

func (a *accumulator) catalogue(doc *Document, ipAddress string) *Catalogue {
	audioLow := withoutVariants(a.audio.low, func(t AudioTrack) string { return t.Note })
	audioHigh := withoutVariants(a.audio.high, func(t AudioTrack) string { return t.Note })
	videoLow := withoutVariants(a.video.low, func(t VideoTrack) string { return t.Note })
	videoHigh := withoutVariants(a.video.high, func(t VideoTrack) string { return t.Note })

	cat := &Catalogue{
		AudioLowByNote:  audioLow,
		AudioHighByNote: audioHigh,
		VideoLowByNote:  videoLow,
		VideoHighByNote: videoHigh,
		AudioLowDRC:     a.drc.low,
		AudioHighDRC:    a.drc.high,
		VideoLowHDR:     a.hdr.low,
		VideoHighHDR:    a.hdr.high,
		ManifestLow:     a.manifest.low,
		ManifestHigh:    a.manifest.high,
		IPAddress:       ipAddress,
		Metadata:        newMetadata(doc),
	}

	cat.AudioLow = reduce(a.audio.order, audioLow, a.audio.lowV, less)
	cat.AudioHigh = reduce(a.audio.order, audioHigh, a.audio.highV, greater)
	cat.VideoLow = reduce(a.video.order, videoLow, a.video.lowV, less)
	cat.VideoHigh = reduce(a.video.order, videoHigh, a.video.highV, greater)

	return cat
}

// extremes tracks the lowest and highest value seen per key. Replacement is
// strict, so the first track seen wins a tie.
type extremes[T any] struct {
	low   map[string]T
	high  map[string]T
	lowV  map[string]float64
	highV map[string]float64
	order []string
}

func newExtremes[T any]() *extremes[T] {
	return &extremes[T]{
		low:   make(map[string]T),
		high:  make(map[string]T),
		lowV:  make(map[string]float64),
		highV: make(map[string]float64),
	}
}

func (e *extremes[T]) offer(key string, track T, value float64) {
	if _, seen := e.lowV[key]; !seen {
		e.low[key], e.lowV[key] = track, value
		e.high[key], e.highV[key] = track, value
		e.order = append(e.order, key)
		return
	}
	if value < e.lowV[key] {
		e.low[key], e.lowV[key] = track, value
	}
	if value > e.highV[key] {
		e.high[key], e.highV[key] = track, value
	}
}

// set records track as both extremes for key, replacing whatever was there.
func (e *extremes[T]) set(key string, track T, value float64) {
	if _, seen := e.lowV[key]; !seen {
		e.order = append(e.order, key)
	}
	e.low[key], e.lowV[key] = track, value
	e.high[key], e.highV[key] = track, value
}

func less(a, b float64) bool    { return a < b }
func greater(a, b float64) bool { return a > b }

// reduce picks one track across all keys, visiting keys in first-seen order
// and replacing only when better strictly beats the current pick.
func reduce[T any](order []string, picks map[string]T, values map[string]float64, better func(a, b float64) bool) *T {
	var best *T
	var bestV float64
	for _, key := range order {
		track, ok := picks[key]
		if !ok {
			continue
		}
		if best == nil || better(values[key], bestV) {
			t := track
			best, bestV = &t, values[key]
		}
	}
	return best
}

// withoutVariants copies m, dropping any entry whose note marks a DRC or HDR variant.
func withoutVariants[T any](m map[string]T, note func(T) string) map[string]T {
	out := make(map[string]T, len(m))
	for k, v := range m {
		n := note(v)
		if strings.Contains(n, markerDRC) || strings.Contains(n, markerHDR) {
			continue
		}
		out[k] = v
	}
	return out
}

func isManifestCandidate(t *RawTrack) bool {
	if t.FormatNote == noteStoryboard || t.FormatNote == noteDefault {
		return false
	}
	return manifestProtocols[t.Protocol] && deref(t.TBR) != 0
}

func manifestKey(t *RawTrack) string {
	if t.Resolution != "" {
		return t.Resolution
	}
	return t.FormatNote
}

func newAudioTrack(t *RawTrack, size int64) AudioTrack {
	return AudioTrack{
		ID:         t.FormatID,
		Note:       t.FormatNote,
		Descriptor: t.Format,
		Size:       size,
		SizeText:   format.Size(size),
		URL:        t.URL,
		Ext:        t.Ext,
		Container:  t.Container,
		Protocol:   t.Protocol,
		Codec:      t.ACodec,
		Bitrate:    deref(t.ABR),
		SampleRate: deref(t.ASR),
		Channels:   derefInt(t.AudioChannels),
		Language:   t.Language,
	}
}

func newVideoTrack(t *RawTrack, size int64) VideoTrack {
	return VideoTrack{
		ID:           t.FormatID,
		Note:         t.FormatNote,
		Descriptor:   t.Format,
		Size:         size,
		SizeText:     format.Size(size),
		URL:          t.URL,
		Ext:          t.Ext,
		Container:    t.Container,
		Protocol:     t.Protocol,
		Codec:        t.VCodec,
		Bitrate:      deref(t.VBR),
		FPS:          deref(t.FPS),
		Width:        derefInt(t.Width),
		Height:       derefInt(t.Height),
		Resolution:   t.Resolution,
		AspectRatio:  deref(t.AspectRatio),
		DynamicRange: t.DynamicRange,
	}
}

func newManifestTrack(t *RawTrack) ManifestTrack {
	return ManifestTrack{
		ID:           t.FormatID,
		Note:         t.FormatNote,
		Descriptor:   t.Format,
		URL:          t.URL,
		Protocol:     t.Protocol,
		Bitrate:      deref(t.TBR),
		Resolution:   t.Resolution,
		Width:        derefInt(t.Width),
		Height:       derefInt(t.Height),
		FPS:          deref(t.FPS),
		VideoCodec:   t.VCodec,
		AudioCodec:   t.ACodec,
		DynamicRange: t.DynamicRange,
	}
}

func newMetadata(doc *Document) Metadata {
	return Metadata{
		ID:            doc.ID,
		Title:         doc.Title,
		Channel:       doc.Channel,
		ChannelID:     doc.ChannelID,
		ChannelURL:    doc.ChannelURL,
		Uploader:      doc.Uploader,
		UploaderURL:   doc.UploaderURL,
		Duration:      doc.Duration,
		DurationText:  format.Clock(doc.Duration),
		ViewCount:     doc.ViewCount,
		LikeCount:     doc.LikeCount,
		CommentCount:  doc.CommentCount,
		FollowerCount: doc.ChannelFollowerCount,
		WebpageURL:    doc.WebpageURL,
		OriginalURL:   doc.OriginalURL,
		Thumbnail:     doc.Thumbnail,
		UploadDate:    doc.UploadDate,
		Description:   doc.Description,
		Categories:    doc.Categories,
		Tags:          doc.Tags,
		LiveStatus:    doc.LiveStatus,
	}
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func derefInt(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}
