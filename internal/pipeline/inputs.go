package pipeline

import (
	"sort"
	"strings"

	"github.com/jmylchreest/streamsift/internal/engine"
)

// Role says which stream an input contributes.
type Role string

// Input roles.
const (
	RoleAudio Role = "audio"
	RoleVideo Role = "video"
)

// Source is one encoder input chosen from a catalogue.
type Source struct {
	Role       Role   `json:"role"`
	ID         string `json:"id"`
	Note       string `json:"note"`
	Descriptor string `json:"descriptor"`
	URL        string `json:"url"`
	Protocol   string `json:"protocol"`
	Manifest   bool   `json:"manifest"`
}

func audioSource(t engine.AudioTrack) Source {
	return Source{Role: RoleAudio, ID: t.ID, Note: t.Note, Descriptor: t.Descriptor, URL: t.URL, Protocol: t.Protocol}
}

func videoSource(t engine.VideoTrack) Source {
	return Source{Role: RoleVideo, ID: t.ID, Note: t.Note, Descriptor: t.Descriptor, URL: t.URL, Protocol: t.Protocol}
}

func manifestSource(t engine.ManifestTrack) Source {
	return Source{Role: RoleVideo, ID: t.ID, Note: t.Note, Descriptor: t.Descriptor, URL: t.URL, Protocol: t.Protocol, Manifest: true}
}

// SelectInputs picks the encoder inputs for a request. Audio comes before
// video for audio+video jobs.
func SelectInputs(cat *engine.Catalogue, req Request) ([]Source, error) {
	switch req.Kind {
	case KindAudio:
		a, err := selectAudio(cat, req)
		if err != nil {
			return nil, err
		}
		return []Source{a}, nil

	case KindVideo:
		v, err := selectVideo(cat, req)
		if err != nil {
			return nil, err
		}
		return []Source{v}, nil

	default:
		v, err := selectVideo(cat, req)
		if err != nil {
			return nil, err
		}
		var audio *engine.AudioTrack
		switch req.Tier {
		case TierLowest:
			audio = cat.AudioLow
		default:
			audio = cat.AudioHigh
		}
		if audio == nil {
			return []Source{v}, nil
		}
		return []Source{audioSource(*audio), v}, nil
	}
}

func selectAudio(cat *engine.Catalogue, req Request) (Source, error) {
	switch req.Tier {
	case TierLowest:
		if cat.AudioLow != nil {
			return audioSource(*cat.AudioLow), nil
		}
	case TierHighest:
		if cat.AudioHigh != nil {
			return audioSource(*cat.AudioHigh), nil
		}
	case TierCustom:
		if t, ok := cat.AudioHighByNote[req.Resolution]; ok {
			return audioSource(t), nil
		}
		return Source{}, &ResolutionNotAvailableError{Resolution: req.Resolution}
	}
	return Source{}, &ResolutionNotAvailableError{Resolution: strings.ToLower(string(req.Tier))}
}

func selectVideo(cat *engine.Catalogue, req Request) (Source, error) {
	switch req.Tier {
	case TierLowest:
		if cat.VideoLow != nil {
			return videoSource(*cat.VideoLow), nil
		}
	case TierHighest:
		if cat.VideoHigh != nil {
			return videoSource(*cat.VideoHigh), nil
		}
	case TierCustom:
		return matchResolution(cat, req.Resolution)
	}
	return Source{}, &ResolutionNotAvailableError{Resolution: strings.ToLower(string(req.Tier))}
}

// matchResolution finds a video track for a resolution such as "720p". An
// exact note match wins; otherwise the number must appear in a track's
// descriptor or resolution, searching sized tracks before manifest tracks.
func matchResolution(cat *engine.Catalogue, resolution string) (Source, error) {
	if t, ok := cat.VideoHighByNote[resolution]; ok {
		return videoSource(t), nil
	}

	number := strings.TrimSuffix(resolution, "p")

	for _, note := range sortedKeys(cat.VideoHighByNote) {
		t := cat.VideoHighByNote[note]
		if strings.Contains(t.Descriptor, number) || strings.Contains(t.Resolution, number) {
			return videoSource(t), nil
		}
	}
	for _, key := range sortedKeys(cat.ManifestHigh) {
		t := cat.ManifestHigh[key]
		if strings.Contains(t.Descriptor, number) || strings.Contains(t.Resolution, number) {
			return manifestSource(t), nil
		}
	}
	return Source{}, &ResolutionNotAvailableError{Resolution: resolution}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
