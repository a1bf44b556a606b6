package strategy

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/sells-group/esg-extract/internal/model"
	"github.com/sells-group/esg-extract/internal/registry"
)

// UnknownUnit marks a candidate whose value window held no recognizable unit.
const UnknownUnit = "unknown"

var (
	numberBeforeRe = regexp.MustCompile(`(-?\d+(?:,\d{3})*(?:\.\d+)?)\s*$`)
	anyNumberRe    = regexp.MustCompile(`-?\d+(?:,\d{3})*(?:\.\d+)?`)
	percentRe      = regexp.MustCompile(`(-?\d+(?:,\d{3})*(?:\.\d+)?)\s*%`)
)

// ParsedValue is the numeric observation recovered near a strategy match.
type ParsedValue struct {
	Value *float64
	Unit  string
}

// parseValue scans a text window for a number with a recognizable unit from
// the definition's unit categories. When no unit is found the first number
// in the window is kept with UnknownUnit; when no number is found the
// value stays nil.
func parseValue(window string, cats []model.UnitCategory) ParsedValue {
	if len(cats) == 0 {
		cats = registry.AllCategories()
	}

	for _, cat := range cats {
		pattern := registry.UnitPattern(cat)
		if pattern == nil {
			continue
		}
		for _, loc := range pattern.FindAllStringIndex(window, -1) {
			before := strings.TrimSpace(window[:loc[0]])
			m := numberBeforeRe.FindStringSubmatch(before)
			if m == nil {
				continue
			}
			if v, ok := parseNumber(m[1]); ok {
				return ParsedValue{Value: &v, Unit: window[loc[0]:loc[1]]}
			}
		}
	}

	// Percent form binds the unit directly to the number.
	if m := percentRe.FindStringSubmatch(window); m != nil {
		if v, ok := parseNumber(m[1]); ok {
			return ParsedValue{Value: &v, Unit: "%"}
		}
	}

	if m := anyNumberRe.FindString(window); m != "" {
		if v, ok := parseNumber(m); ok {
			return ParsedValue{Value: &v, Unit: UnknownUnit}
		}
	}

	return ParsedValue{Unit: UnknownUnit}
}

func parseNumber(s string) (float64, bool) {
	s = strings.ReplaceAll(s, ",", "")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// window returns the text surrounding [start,end) clipped to radius
// characters on each side.
func window(text string, start, end, radius int) string {
	lo := start - radius
	if lo < 0 {
		lo = 0
	}
	hi := end + radius
	if hi > len(text) {
		hi = len(text)
	}
	return text[lo:hi]
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
