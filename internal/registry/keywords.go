package registry

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stopWords are excluded from keyword sets. English plus the French
// function words that show up in the bilingual definition names.
var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "with": {},
	"rate": {}, "total": {}, "number": {}, "percentage": {}, "per": {},
	"les": {}, "des": {}, "une": {}, "dans": {}, "pour": {}, "par": {},
	"sur": {}, "aux": {}, "est": {}, "taux": {}, "nombre": {},
}

var wordRe = regexp.MustCompile(`\w+`)

// foldMarks strips combining marks after NFD decomposition, so accented
// French keywords match their unaccented spellings in report text.
var foldMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Fold lowercases s and strips diacritics.
func Fold(s string) string {
	out, _, err := transform.String(foldMarks, strings.ToLower(s))
	if err != nil {
		return strings.ToLower(s)
	}
	return out
}

// FoldTokens splits s into folded word tokens.
func FoldTokens(s string) []string {
	return wordRe.FindAllString(Fold(s), -1)
}

// extractKeywords derives the keyword set for a definition name: folded,
// stopword-filtered, and longer than two characters.
func extractKeywords(names ...string) map[string]struct{} {
	keywords := make(map[string]struct{})
	for _, name := range names {
		for _, w := range wordRe.FindAllString(Fold(name), -1) {
			if len(w) <= 2 {
				continue
			}
			if _, stop := stopWords[w]; stop {
				continue
			}
			keywords[w] = struct{}{}
		}
	}
	return keywords
}
