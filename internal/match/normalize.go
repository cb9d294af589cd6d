// Package match turns noisy (title, artist) observations into catalog
// queries and decides which catalog candidate, if any, is the same recording.
package match

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// noiseWords mark a bracketed group or dash suffix as version noise rather
// than part of the title.
var noiseWords = map[string]bool{
	"remix": true, "remixed": true, "mix": true, "edit": true, "version": true,
	"remaster": true, "remastered": true, "live": true, "acoustic": true,
	"instrumental": true, "radio": true, "extended": true, "mono": true,
	"stereo": true, "demo": true, "feat": true, "ft": true, "featuring": true,
	"with": true,
}

var (
	bracketGroup = regexp.MustCompile(`\s*[\(\[]([^\)\]]*)[\)\]]`)
	dashSuffix   = regexp.MustCompile(`\s+[-–—]\s+(.+)$`)
	inlineFeat   = regexp.MustCompile(`(?i)\s+(?:feat\.?|ft\.?|featuring)\s+.*$`)

	// Word-like join phrases only split when surrounded by whitespace, so
	// "Maxwell" or "Vsevolod" stay whole. Lower-case "x" only: "Malcolm X"
	// is a name, "A x B" is a collaboration.
	artistSeparator = regexp.MustCompile(`\s*[,;]\s*|\s+(?:&|/|\+|x|×|(?i:vs\.?|feat\.?|ft\.?|featuring|with))\s+`)
)

var unknownArtists = map[string]bool{
	"":                true,
	"unknown":         true,
	"unknown artist":  true,
	"<unknown>":       true,
	"[unknown]":       true,
	"various artists": true,
	"n/a":             true,
	"-":               true,
}

func hasNoise(s string) bool {
	words := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		if noiseWords[w] {
			return true
		}
	}
	return false
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// CleanTitle strips remix/version/featuring noise from a raw track title.
// A title that would be reduced to nothing is returned whitespace-collapsed
// but otherwise intact.
func CleanTitle(raw string) string {
	s := norm.NFC.String(raw)
	original := collapseSpace(s)

	s = bracketGroup.ReplaceAllStringFunc(s, func(group string) string {
		inner := bracketGroup.FindStringSubmatch(group)[1]
		if hasNoise(inner) {
			return ""
		}
		return group
	})
	if m := dashSuffix.FindStringSubmatchIndex(s); m != nil {
		if hasNoise(s[m[2]:m[3]]) {
			s = s[:m[0]]
		}
	}
	s = inlineFeat.ReplaceAllString(s, "")

	if cleaned := collapseSpace(s); cleaned != "" {
		return cleaned
	}
	return original
}

// SplitArtists parses a composite credit such as "A, B & C" or "A feat. B"
// into individual names. The first element is the primary artist. Names are
// de-duplicated by their canonical form, keeping the first spelling seen.
func SplitArtists(raw string) []string {
	s := norm.NFC.String(raw)
	s = strings.NewReplacer("(", " ", ")", " ", "[", " ", "]", " ").Replace(s)
	s = collapseSpace(s)
	if s == "" {
		return nil
	}

	var out []string
	seen := make(map[string]bool)
	for _, part := range artistSeparator.Split(s, -1) {
		name := strings.TrimSpace(part)
		if name == "" {
			continue
		}
		key := CanonicalArtist(name)
		if key == "" {
			key = strings.ToLower(name)
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, name)
	}
	return out
}

// IsUnknownArtist reports whether raw is blank or a placeholder such as
// "Unknown Artist". Such tracks are skipped until upstream metadata settles.
func IsUnknownArtist(raw string) bool {
	return unknownArtists[strings.ToLower(collapseSpace(raw))]
}
