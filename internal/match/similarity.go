package match

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/adrg/strutil/metrics"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// TitleSimilarity returns a similarity in [0,1] between two titles,
// compared case-insensitively. A title contained in the other scores the
// ratio of their lengths; otherwise the score is one minus the normalized
// Levenshtein distance.
func TitleSimilarity(a, b string) float64 {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == b {
		return 1.0
	}
	if a == "" || b == "" {
		return 0.0
	}

	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	shorter, longer := a, b
	ls, ll := la, lb
	if la > lb {
		shorter, longer = b, a
		ls, ll = lb, la
	}
	if strings.Contains(longer, shorter) {
		return float64(ls) / float64(ll)
	}

	lev := metrics.NewLevenshtein()
	d := lev.Distance(a, b)
	return 1 - float64(d)/float64(ll)
}

// CanonicalArtist reduces an artist name to a comparison key: accents and
// case are dropped, "&" reads as "and", a leading "the" is ignored, and
// only letters and digits are kept.
func CanonicalArtist(name string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))
	s, _, err := transform.String(t, name)
	if err != nil {
		s = name
	}
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "&", " and ")
	s = collapseSpace(s)
	s = strings.TrimPrefix(s, "the ")

	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// IsSameArtist reports whether two artist names denote the same artist.
// Names with an empty canonical form never match.
func IsSameArtist(a, b string) bool {
	ca := CanonicalArtist(a)
	return ca != "" && ca == CanonicalArtist(b)
}
