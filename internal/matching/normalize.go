// package matching canonicalizes noisy track metadata and resolves source
// tracks against the destination catalog.
package matching

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// DefaultOverlapThreshold is the word-overlap score at or above which two
// titles are considered the same track.
const DefaultOverlapThreshold = 0.7

var (
	parenRe   = regexp.MustCompile(`\([^)]*\)`)
	featRe    = regexp.MustCompile(`\b(feat|featuring|ft)\.?\s`)
	versionRe = regexp.MustCompile(`\b(remix|remaster|remastered)\b`)
	punctRe   = regexp.MustCompile(`[^\w\s]`)
	spaceRe   = regexp.MustCompile(`\s+`)
)

// stripDiacritics decomposes to NFD and drops combining marks, so
// "KUČKA" and "KUCKA" compare equal.
func stripDiacritics(s string) string {
	decomposed := norm.NFD.String(s)
	out := make([]rune, 0, len(decomposed))
	for _, r := range decomposed {
		if unicode.IsMark(r) {
			continue
		}
		out = append(out, r)
	}
	return string(out)
}

// Normalize canonicalizes free text for comparison: diacritics dropped,
// lowercased, parenthesized substrings removed, featuring/remix/remaster
// tokens removed, punctuation stripped, whitespace collapsed.
// Empty input yields the empty string.
func Normalize(text string) string {
	if text == "" {
		return ""
	}

	s := stripDiacritics(text)
	s = strings.ToLower(s)
	s = parenRe.ReplaceAllString(s, "")
	s = featRe.ReplaceAllString(s, "")
	s = versionRe.ReplaceAllString(s, "")
	s = punctRe.ReplaceAllString(s, "")
	s = spaceRe.ReplaceAllString(s, " ")

	return strings.TrimSpace(s)
}

// CleanTitle is the narrow transform: parenthesized substrings and
// diacritics are removed, but case and punctuation survive. Used where the
// resolver needs a search query closer to the original title.
func CleanTitle(text string) string {
	if text == "" {
		return ""
	}

	cleaned := parenRe.ReplaceAllString(text, "")
	cleaned = stripDiacritics(cleaned)

	return strings.TrimSpace(cleaned)
}

// artistSeparators is ordered: the first separator in this list that occurs
// anywhere in the string wins, regardless of position.
var artistSeparators = []string{
	", ", " & ", " and ", " feat. ", " feat ", " featuring ", " ft. ", " ft ",
}

// PrimaryArtist extracts the first artist from a multi-artist string.
func PrimaryArtist(artists string) string {
	if artists == "" {
		return ""
	}

	lower := strings.ToLower(artists)
	for _, sep := range artistSeparators {
		if i := strings.Index(lower, sep); i >= 0 {
			return strings.TrimSpace(artists[:i])
		}
	}

	return strings.TrimSpace(artists)
}

func tokenSet(normalized string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(normalized) {
		set[w] = struct{}{}
	}
	return set
}

// WordOverlap returns the overlap score between two texts: the token sets of
// their normalized forms intersected, divided by the size of the larger set.
// The max denominator is deliberately conservative: a short title fully
// contained in a long one still scores low.
func WordOverlap(a, b string) float64 {
	aw := tokenSet(Normalize(a))
	bw := tokenSet(Normalize(b))

	if len(aw) == 0 || len(bw) == 0 {
		return 0
	}

	common := 0
	for w := range aw {
		if _, ok := bw[w]; ok {
			common++
		}
	}

	denom := len(aw)
	if len(bw) > denom {
		denom = len(bw)
	}

	return float64(common) / float64(denom)
}

// WordOverlapMatch reports whether two texts overlap at or above the given
// threshold. Texts that normalize to an empty token set never match.
func WordOverlapMatch(a, b string, threshold float64) bool {
	if len(tokenSet(Normalize(a))) == 0 || len(tokenSet(Normalize(b))) == 0 {
		return false
	}
	return WordOverlap(a, b) >= threshold
}
