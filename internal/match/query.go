package match

import (
	"strings"
	"unicode/utf8"
)

// QueryOptions bounds which query strategies BuildQueries emits.
type QueryOptions struct {
	// MaxSecondaryArtists caps the title+secondary-artist queries.
	MaxSecondaryArtists int
	// FuzzyMinTitleLen is the rune length a title must exceed before a
	// fuzzy query is emitted.
	FuzzyMinTitleLen int
	// TitleOnlyMinLen is the rune length a title must exceed before a
	// title-only query is emitted.
	TitleOnlyMinLen int
}

// DefaultQueryOptions returns the standard strategy bounds.
func DefaultQueryOptions() QueryOptions {
	return QueryOptions{
		MaxSecondaryArtists: 2,
		FuzzyMinTitleLen:    4,
		TitleOnlyMinLen:     10,
	}
}

// luceneSpecial holds every rune with meaning in Lucene query syntax.
// "&&" and "||" are covered by escaping each '&' and '|'.
const luceneSpecial = `+-&|!(){}[]^"~*?:\/`

// EscapeLucene backslash-escapes Lucene query syntax in s.
func EscapeLucene(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if strings.ContainsRune(luceneSpecial, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// BuildQueries returns de-duplicated catalog queries for a cleaned title
// and its artists, ordered from most to least precise:
//
//  1. exact title and primary artist
//  2. exact title and each secondary artist
//  3. fuzzy title terms and primary artist
//  4. exact title alone
func BuildQueries(title string, artists []string, opts QueryOptions) []string {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil
	}

	var queries []string
	seen := make(map[string]bool)
	add := func(q string) {
		if !seen[q] {
			seen[q] = true
			queries = append(queries, q)
		}
	}

	exactTitle := `recording:"` + EscapeLucene(title) + `"`
	titleLen := utf8.RuneCountInString(title)

	var primary string
	if len(artists) > 0 {
		primary = strings.TrimSpace(artists[0])
	}

	if primary != "" {
		add(exactTitle + ` AND artist:"` + EscapeLucene(primary) + `"`)

		added := 0
		for _, a := range artists[1:] {
			if added >= opts.MaxSecondaryArtists {
				break
			}
			a = strings.TrimSpace(a)
			if a == "" || IsSameArtist(a, primary) {
				continue
			}
			add(exactTitle + ` AND artist:"` + EscapeLucene(a) + `"`)
			added++
		}

		if titleLen > opts.FuzzyMinTitleLen {
			terms := strings.Fields(title)
			for i, t := range terms {
				terms[i] = EscapeLucene(t) + "~"
			}
			add(`recording:(` + strings.Join(terms, " ") + `) AND artist:"` + EscapeLucene(primary) + `"`)
		}
	}

	if titleLen > opts.TitleOnlyMinLen {
		add(exactTitle)
	}

	return queries
}
