package pipeline

import (
	"regexp"
	"strings"
)

var unsafeFilenameRe = regexp.MustCompile(`[^A-Za-z0-9_]+`)

// SanitizeTitle replaces every run of characters outside [A-Za-z0-9_] with
// a single underscore.
func SanitizeTitle(title string) string {
	return unsafeFilenameRe.ReplaceAllString(title, "_")
}

// Filename builds the output name for a request:
// <prefix>_(<Kind><Tier><Resolution>[_<filter>])_<title>.<ext>
func Filename(prefix string, req Request, title, fallback, ext string) string {
	var tag strings.Builder
	tag.WriteString(string(req.Kind))
	tag.WriteString(string(req.Tier))
	if req.Tier == TierCustom {
		tag.WriteString(req.Resolution)
	}
	if req.Filter != "" {
		tag.WriteString("_")
		tag.WriteString(req.Filter)
	}

	name := SanitizeTitle(strings.TrimSpace(title))
	if strings.Trim(name, "_") == "" {
		name = SanitizeTitle(fallback)
	}
	if name == "" {
		name = "untitled"
	}

	out := "(" + tag.String() + ")_" + name
	if prefix != "" {
		out = prefix + "_" + out
	}
	return out + "." + ext
}
