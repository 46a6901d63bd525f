package pipeline

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
)

// Mode is the operating mode of a job. Exactly one mode is active per job.
type Mode uint8

// Modes.
const (
	ModeSave Mode = iota
	ModeStream
	ModeMetadata
)

func (m Mode) String() string {
	switch m {
	case ModeSave:
		return "save"
	case ModeStream:
		return "stream"
	case ModeMetadata:
		return "metadata"
	default:
		return "unknown"
	}
}

// Kind is the media kind a job delivers.
type Kind string

// Kinds.
const (
	KindAudio      Kind = "Audio"
	KindVideo      Kind = "Video"
	KindAudioVideo Kind = "AudioVideo"
)

// HasVideo reports whether the kind carries a video stream.
func (k Kind) HasVideo() bool {
	return k == KindVideo || k == KindAudioVideo
}

// Tier is a named quality selector.
type Tier string

// Tiers.
const (
	TierLowest  Tier = "Lowest"
	TierHighest Tier = "Highest"
	TierCustom  Tier = "Custom"
)

var (
	videoResolutionRe = regexp.MustCompile(`^\d{3,4}p$`)
	audioNotes        = map[string]bool{"ultralow": true, "low": true, "medium": true, "high": true}
	folder            = cases.Fold()
)

// ParseKind parses a media kind case-insensitively.
func ParseKind(s string) (Kind, error) {
	switch folder.String(strings.TrimSpace(s)) {
	case "audio":
		return KindAudio, nil
	case "video":
		return KindVideo, nil
	case "audiovideo", "audio+video", "av", "":
		return KindAudioVideo, nil
	default:
		return "", &ValidationError{Field: "kind", Value: s, Reason: "must be audio, video or audiovideo"}
	}
}

// ParseTier parses a quality tier case-insensitively.
func ParseTier(s string) (Tier, error) {
	switch folder.String(strings.TrimSpace(s)) {
	case "highest", "":
		return TierHighest, nil
	case "lowest":
		return TierLowest, nil
	case "custom":
		return TierCustom, nil
	default:
		return "", &ValidationError{Field: "tier", Value: s, Reason: "must be highest, lowest or custom"}
	}
}

// Options are the raw flags of a request as a command line supplies them.
type Options struct {
	Kind       string
	Tier       string
	Resolution string
	Filter     string
	Container  string
	Output     string
	Stream     bool
	Metadata   bool
}

// Request is a validated job request.
type Request struct {
	Kind       Kind
	Tier       Tier
	Resolution string
	Filter     string
	Container  string // empty selects the configured default
	OutputDir  string // save mode only; empty selects the configured default
	Mode       Mode
}

// Resolve validates the options and converts them into a request. Mode flag
// conflicts are reported before any other validation.
func (o Options) Resolve() (Request, error) {
	mode, err := o.mode()
	if err != nil {
		return Request{}, err
	}

	kind, err := ParseKind(o.Kind)
	if err != nil {
		return Request{}, err
	}
	tier, err := ParseTier(o.Tier)
	if err != nil {
		return Request{}, err
	}

	req := Request{
		Kind:      kind,
		Tier:      tier,
		Filter:    strings.TrimSpace(o.Filter),
		Container: folder.String(strings.TrimSpace(o.Container)),
		OutputDir: o.Output,
		Mode:      mode,
	}

	if tier == TierCustom {
		req.Resolution = folder.String(strings.TrimSpace(o.Resolution))
	} else if o.Resolution != "" {
		return Request{}, &ValidationError{Field: "resolution", Value: o.Resolution, Reason: "only allowed with the custom tier"}
	}

	if err := req.Validate(); err != nil {
		return Request{}, err
	}
	return req, nil
}

func (o Options) mode() (Mode, error) {
	if o.Metadata {
		if conflicts := metadataConflicts(o.Output, o.Stream, o.Filter); len(conflicts) > 0 {
			return 0, &InvalidOptionCombinationError{Option: "metadata", Conflicts: conflicts}
		}
		return ModeMetadata, nil
	}
	if o.Stream {
		if o.Output != "" {
			return 0, &InvalidOptionCombinationError{Option: "stream", Conflicts: []string{"output"}}
		}
		return ModeStream, nil
	}
	return ModeSave, nil
}

// metadataConflicts lists the options set alongside metadata, in the order
// output, stream, filter.
func metadataConflicts(output string, stream bool, filter string) []string {
	var conflicts []string
	if output != "" {
		conflicts = append(conflicts, "output")
	}
	if stream {
		conflicts = append(conflicts, "stream")
	}
	if filter != "" {
		conflicts = append(conflicts, "filter")
	}
	return conflicts
}

// Validate checks a request built directly rather than through Options.
func (r Request) Validate() error {
	if r.Mode > ModeMetadata {
		return &ValidationError{Field: "mode", Value: r.Mode.String(), Reason: "unknown mode"}
	}
	if r.Mode == ModeMetadata {
		if conflicts := metadataConflicts(r.OutputDir, false, r.Filter); len(conflicts) > 0 {
			return &InvalidOptionCombinationError{Option: "metadata", Conflicts: conflicts}
		}
	}
	if r.Mode == ModeStream && r.OutputDir != "" {
		return &InvalidOptionCombinationError{Option: "stream", Conflicts: []string{"output"}}
	}

	switch r.Kind {
	case KindAudio, KindVideo, KindAudioVideo:
	default:
		return &ValidationError{Field: "kind", Value: string(r.Kind), Reason: "unknown kind"}
	}

	switch r.Tier {
	case TierHighest, TierLowest:
	case TierCustom:
		if r.Kind == KindAudio {
			if !audioNotes[r.Resolution] {
				return &ValidationError{Field: "resolution", Value: r.Resolution, Reason: "audio resolution must be ultralow, low, medium or high"}
			}
		} else if !videoResolutionRe.MatchString(r.Resolution) {
			return &ValidationError{Field: "resolution", Value: r.Resolution, Reason: "must look like 720p"}
		}
	default:
		return &ValidationError{Field: "tier", Value: string(r.Tier), Reason: "unknown tier"}
	}

	if r.Filter != "" {
		if !r.Kind.HasVideo() {
			return &ValidationError{Field: "filter", Value: r.Filter, Reason: "filters apply to video only"}
		}
		if _, ok := filters[r.Filter]; !ok {
			return &ValidationError{Field: "filter", Value: r.Filter, Reason: "unknown filter, expected one of " + strings.Join(FilterNames(), ", ")}
		}
	}

	if r.Container != "" {
		if _, ok := containerFor(r.Kind, r.Container); !ok {
			return &ValidationError{Field: "container", Value: r.Container, Reason: "unsupported for " + string(r.Kind)}
		}
	}
	return nil
}
