package match

import (
	"math"
	"testing"
)

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestTitleSimilarity_Identity(t *testing.T) {
	for _, s := range []string{"", "x", "Hello World", "Ünïcödé", "  padded  ", "Paracetamol (Remix)"} {
		if got := TitleSimilarity(s, s); got != 1.0 {
			t.Errorf("TitleSimilarity(%q, %q) = %v, want 1.0", s, s, got)
		}
	}
}

func TestTitleSimilarity_DisjointBelowHalf(t *testing.T) {
	pairs := [][2]string{
		{"abc", "xyz"},
		{"hello", "xyz"},
		{"a", "bcdefg"},
		{"Yesterday", "QUJ"},
		{"ひらがな", "abc"},
	}
	for _, p := range pairs {
		if got := TitleSimilarity(p[0], p[1]); got >= 0.5 {
			t.Errorf("TitleSimilarity(%q, %q) = %v, want < 0.5", p[0], p[1], got)
		}
	}
}

func TestTitleSimilarity(t *testing.T) {
	tests := []struct {
		a, b string
		want float64
	}{
		{"Hello", "hello", 1.0},
		{" Hello ", "hello", 1.0},
		{"", "a", 0.0},
		{"a", "", 0.0},
		{"Paracetamol", "Paracetamol Remix", 11.0 / 17.0},
		{"kitten", "sitting", 1 - 3.0/7.0},
		{"héllo", "hallo", 1 - 1.0/5.0},
	}
	for _, tt := range tests {
		if got := TitleSimilarity(tt.a, tt.b); !approx(got, tt.want) {
			t.Errorf("TitleSimilarity(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestTitleSimilarity_Symmetric(t *testing.T) {
	pairs := [][2]string{{"kitten", "sitting"}, {"Paracetamol", "Paracetamol Remix"}, {"abc", ""}}
	for _, p := range pairs {
		if a, b := TitleSimilarity(p[0], p[1]), TitleSimilarity(p[1], p[0]); !approx(a, b) {
			t.Errorf("asymmetric similarity for %q/%q: %v vs %v", p[0], p[1], a, b)
		}
	}
}

func TestTitleSimilarity_VersionSuffixAfterCleaning(t *testing.T) {
	got := TitleSimilarity(CleanTitle("Paracetamol"), CleanTitle("Paracetamol (Remix)"))
	if got < 0.70 {
		t.Errorf("expected cleaned version suffix to score >= 0.70, got %v", got)
	}
}

func TestIsSameArtist(t *testing.T) {
	same := [][2]string{
		{"Beyoncé", "beyonce"},
		{"The Beatles", "Beatles"},
		{"Simon & Garfunkel", "Simon and Garfunkel"},
		{"AC/DC", "ACDC"},
		{"  Daft   Punk ", "daft punk"},
		{"Sigur Rós", "Sigur Ros"},
	}
	for _, p := range same {
		if !IsSameArtist(p[0], p[1]) {
			t.Errorf("expected %q and %q to be the same artist", p[0], p[1])
		}
	}

	different := [][2]string{
		{"Adele", "Adele Adkins"},
		{"Declan McKenna", "Other Artist"},
		{"", ""},
		{"!!!", "!!!"},
	}
	for _, p := range different {
		if IsSameArtist(p[0], p[1]) {
			t.Errorf("expected %q and %q to be different artists", p[0], p[1])
		}
	}
}

func TestCanonicalArtist(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"The Beatles", "beatles"},
		{"Simon & Garfunkel", "simonandgarfunkel"},
		{"Motörhead", "motorhead"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := CanonicalArtist(tt.in); got != tt.want {
			t.Errorf("CanonicalArtist(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
