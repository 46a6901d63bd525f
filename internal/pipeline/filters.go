package pipeline

import "sort"

// filters maps a filter name to its encoder video filter expression.
var filters = map[string]string{
	"grayscale":      "colorchannelmixer=.3:.4:.3:0:.3:.4:.3:0:.3:.4:.3",
	"invert":         "negate",
	"rotate90":       "rotate=PI/2",
	"rotate180":      "rotate=PI",
	"rotate270":      "rotate=3*PI/2",
	"flipHorizontal": "hflip",
	"flipVertical":   "vflip",
}

// FilterNames returns the supported filter names in sorted order.
func FilterNames() []string {
	names := make([]string, 0, len(filters))
	for name := range filters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FilterExpression returns the encoder expression for a filter name.
func FilterExpression(name string) (string, bool) {
	expr, ok := filters[name]
	return expr, ok
}
