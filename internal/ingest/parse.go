package ingest

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	missingRe     = regexp.MustCompile(`(?i)^(?:-|--|n/?a|na|none|null)?$`)
	leadingAlphRe = regexp.MustCompile(`^[A-Za-z$]+`)
	parenRe       = regexp.MustCompile(`\(.*?\)`)
	spaceRe       = regexp.MustCompile(`\s+`)
	labelCharRe   = regexp.MustCompile(`[^a-z0-9/% ]`)
	yearLabelRe   = regexp.MustCompile(`(?i)^(?:FY\s*)?(20\d{2})$`)
)

// parseNumeric turns one upstream table cell into a number. Cells carry
// thousands separators, currency prefixes, percent suffixes, multiplication
// signs and assorted missing-value markers. Returns nil when no usable
// number is present.
func parseNumeric(raw string) *float64 {
	// NFKC folds non-breaking spaces and fullwidth characters picked up
	// from the scraped markup into their plain equivalents.
	text := strings.TrimSpace(norm.NFKC.String(raw))
	if missingRe.MatchString(text) {
		return nil
	}

	cleaned := strings.NewReplacer(",", "", "×", "", " ", "").Replace(text)
	cleaned = leadingAlphRe.ReplaceAllString(cleaned, "")
	cleaned = strings.TrimRight(cleaned, "%")

	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return nil
	}
	return &v
}

// parsePeriodLabel canonicalizes a column header into "Current", "FY <year>",
// or the trimmed original when it matches neither. Empty headers map to "".
func parsePeriodLabel(label string) string {
	text := strings.TrimSpace(label)
	if text == "" {
		return ""
	}
	if strings.EqualFold(text, "current") {
		return "Current"
	}
	if m := yearLabelRe.FindStringSubmatch(text); m != nil {
		return "FY " + m[1]
	}
	return text
}

// normalizeLabel reduces a row label to a comparable form for alias lookup:
// lowercase, parentheticals and punctuation stripped, trailing " ratio"
// removed.
func normalizeLabel(label string) string {
	text := strings.ToLower(norm.NFKC.String(label))
	text = parenRe.ReplaceAllString(text, "")
	text = spaceRe.ReplaceAllString(text, " ")
	text = labelCharRe.ReplaceAllString(text, "")
	text = strings.TrimSuffix(strings.TrimSpace(text), " ratio")
	return strings.TrimSpace(text)
}
