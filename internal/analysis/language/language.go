// Package language holds cheap heuristics for deciding whether generated
// text still reads like casual English.
package language

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// commonBigrams are the most frequent letter pairs in English prose.
var commonBigrams = map[string]struct{}{
	"th": {}, "he": {}, "in": {}, "er": {}, "an": {}, "re": {}, "on": {}, "at": {},
	"en": {}, "nd": {}, "ti": {}, "es": {}, "or": {}, "te": {}, "of": {}, "ed": {},
	"is": {}, "it": {}, "al": {}, "ar": {}, "st": {}, "to": {}, "nt": {}, "ng": {},
	"se": {}, "ha": {}, "as": {}, "ou": {}, "io": {}, "le": {}, "ve": {}, "co": {},
	"me": {}, "de": {}, "hi": {}, "ri": {}, "ro": {}, "ic": {}, "ne": {}, "ea": {},
	"ra": {}, "ce": {}, "li": {}, "ch": {}, "ll": {}, "be": {}, "ma": {}, "si": {},
	"om": {}, "ur": {}, "yo": {}, "ho": {}, "wh": {}, "ya": {}, "lo": {}, "no": {},
}

// WordCount counts whitespace separated words.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

// ForeignLetterRatio returns the share of non-space characters that are
// letters outside the basic Latin alphabet. Digits, punctuation and emoji
// are neutral: they count towards the length but never as foreign.
func ForeignLetterRatio(text string) float64 {
	var total, foreign int
	for _, r := range text {
		if unicode.IsSpace(r) {
			continue
		}
		total++
		if unicode.IsLetter(r) && !isLatinLetter(r) {
			foreign++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(foreign) / float64(total)
}

// BigramDensity returns the number of common English bigram occurrences per
// character of text. Bigrams overlap, so "the" contributes "th" and "he".
func BigramDensity(text string) float64 {
	// Casers carry state, so each call gets its own.
	runes := []rune(cases.Lower(language.English).String(text))
	if len(runes) == 0 {
		return 0
	}

	hits := 0
	for i := 0; i+1 < len(runes); i++ {
		a, b := runes[i], runes[i+1]
		if !isLatinLetter(a) || !isLatinLetter(b) {
			continue
		}
		if _, ok := commonBigrams[string([]rune{a, b})]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(runes))
}

// Check reports whether text passes both heuristics. failed names the first
// heuristic that tripped, empty when the text is plausible.
func Check(text string, maxForeignRatio, minBigramDensity float64) (ok bool, failed string) {
	if ForeignLetterRatio(text) >= maxForeignRatio {
		return false, "alphabet"
	}
	if BigramDensity(text) <= minBigramDensity {
		return false, "bigram"
	}
	return true, ""
}

func isLatinLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}
