package match

import (
	"context"
	"fmt"
)

// Candidate is a single search hit from a catalog, not yet confirmed as the
// observed recording.
type Candidate struct {
	ID           string
	Title        string
	Artists      []string
	Score        int // catalog confidence or popularity, 0-100
	ReleaseID    string
	ReleaseTitle string
	PreviewURL   string // short audio clip, when the catalog offers one
}

// Thresholds are the acceptance bounds for the strict and relaxed passes.
type Thresholds struct {
	StrictMinScore  int
	StrictMinTitle  float64
	RelaxedMinScore int
	RelaxedMinTitle float64
}

// DefaultThresholds returns the standard acceptance bounds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		StrictMinScore:  80,
		StrictMinTitle:  0.85,
		RelaxedMinScore: 65,
		RelaxedMinTitle: 0.70,
	}
}

// PopularityThresholds are the bounds for catalogs whose score is a
// popularity figure rather than a match confidence. Score only ranks.
func PopularityThresholds() Thresholds {
	return Thresholds{
		StrictMinTitle:  0.85,
		RelaxedMinTitle: 0.70,
	}
}

// Pass identifies which acceptance pass selected a candidate.
type Pass string

// Acceptance passes.
const (
	PassStrict  Pass = "strict"
	PassRelaxed Pass = "relaxed"
)

// Selection is the accepted candidate together with how it was found.
type Selection struct {
	Candidate       Candidate
	Query           string
	Pass            Pass
	TitleSimilarity float64
}

// SearchFunc runs one catalog query.
type SearchFunc func(ctx context.Context, query string) ([]Candidate, error)

// Selector picks the candidate that is the observed recording. A candidate
// must clear a catalog score floor and a title similarity floor, and at
// least one of its credited artists must be one of the searched artists.
// The artist requirement is never relaxed.
type Selector struct {
	thresholds Thresholds
}

// NewSelector creates a Selector with the given thresholds.
func NewSelector(t Thresholds) *Selector {
	return &Selector{thresholds: t}
}

// Thresholds returns the selector's acceptance bounds.
func (s *Selector) Thresholds() Thresholds {
	return s.thresholds
}

// Select runs the queries in order and evaluates the candidates of the first
// query that returns any. It returns nil, nil when nothing is accepted. A
// search error stops the walk and is returned as is.
func (s *Selector) Select(ctx context.Context, title string, artists []string, queries []string, search SearchFunc) (*Selection, error) {
	for _, q := range queries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		candidates, err := search(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("searching %q: %w", q, err)
		}
		if len(candidates) == 0 {
			continue
		}
		sel := s.Pick(title, artists, candidates)
		if sel != nil {
			sel.Query = q
		}
		return sel, nil
	}
	return nil, nil
}

// Pick applies the strict pass, then the relaxed pass, to one candidate set.
func (s *Selector) Pick(title string, artists []string, candidates []Candidate) *Selection {
	if sel := pick(title, artists, candidates, s.thresholds.StrictMinScore, s.thresholds.StrictMinTitle); sel != nil {
		sel.Pass = PassStrict
		return sel
	}
	if sel := pick(title, artists, candidates, s.thresholds.RelaxedMinScore, s.thresholds.RelaxedMinTitle); sel != nil {
		sel.Pass = PassRelaxed
		return sel
	}
	return nil
}

// pick ranks accepted candidates by score, then cleaned title similarity,
// then similarity of the titles as given, so "Song" prefers "Song" over
// "Song (Remix)" when both clean to the same string.
func pick(title string, artists []string, candidates []Candidate, minScore int, minTitle float64) *Selection {
	cleaned := CleanTitle(title)

	var best *Selection
	var bestRaw float64
	for _, c := range candidates {
		if c.Score < minScore {
			continue
		}
		sim := TitleSimilarity(cleaned, CleanTitle(c.Title))
		if sim < minTitle {
			continue
		}
		if !creditsAnyArtist(c.Artists, artists) {
			continue
		}
		raw := TitleSimilarity(title, c.Title)
		if best == nil ||
			c.Score > best.Candidate.Score ||
			(c.Score == best.Candidate.Score && sim > best.TitleSimilarity) ||
			(c.Score == best.Candidate.Score && sim == best.TitleSimilarity && raw > bestRaw) {
			best = &Selection{Candidate: c, TitleSimilarity: sim}
			bestRaw = raw
		}
	}
	return best
}

func creditsAnyArtist(credited, searched []string) bool {
	for _, c := range credited {
		for _, a := range searched {
			if IsSameArtist(c, a) {
				return true
			}
		}
	}
	return false
}
