package suggest

import (
	"math"
	"testing"
)

func TestDistance(t *testing.T) {
	tests := map[string]struct {
		a, b string
		want int
	}{
		"identical":     {a: "hello", b: "hello", want: 0},
		"both empty":    {a: "", b: "", want: 0},
		"one empty":     {a: "hello", b: "", want: 5},
		"substitution":  {a: "cat", b: "bat", want: 1},
		"insertion":     {a: "cat", b: "cats", want: 1},
		"multiple":      {a: "kitten", b: "sitting", want: 3},
		"unicode":       {a: "café", b: "cafe", want: 1},
		"transposition": {a: "tech", b: "tehc", want: 2},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			if got := distance([]rune(tt.a), []rune(tt.b)); got != tt.want {
				t.Errorf("distance(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
			if got := distance([]rune(tt.b), []rune(tt.a)); got != tt.want {
				t.Errorf("distance(%q, %q) = %d, want %d (symmetry)", tt.b, tt.a, got, tt.want)
			}
		})
	}
}

func TestJaroWinkler(t *testing.T) {
	tests := map[string]struct {
		a, b string
		want float64
	}{
		"identical":       {a: "news", b: "news", want: 1},
		"classic example": {a: "martha", b: "marhta", want: 0.9611},
		"no overlap":      {a: "abc", b: "xyz", want: 0},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got := jaroWinkler([]rune(tt.a), []rune(tt.b))
			if math.Abs(got-tt.want) > 0.001 {
				t.Errorf("jaroWinkler(%q, %q) = %.4f, want %.4f", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	tests := map[string]string{
		"Tech News":      "tech news",
		"tech--news":     "tech news",
		"  Science!  ":   "science",
		"a/b.c_d":        "a b c d",
		"Überschriften ": "überschriften",
	}
	for in, want := range tests {
		if got := normalize(in); got != want {
			t.Errorf("normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestScore(t *testing.T) {
	if got := Score("Tech News", "tech-news"); got != 1 {
		t.Errorf("normalized names should be identical, got %f", got)
	}
	if got := Score("", "tech"); got != 0 {
		t.Errorf("empty name should score 0, got %f", got)
	}
	if got := Score("Tehc", "Tech"); got < 0.9 {
		t.Errorf("swapped letters should score high, got %f", got)
	}
}

func TestClosest(t *testing.T) {
	got := Closest("guide", []string{"other", "guid", "guides"}, Options{Threshold: 0.5, Limit: 2})
	if len(got) != 2 {
		t.Fatalf("Closest() returned %d matches, want 2: %v", len(got), got)
	}
	if got[0].Candidate != "guides" || got[1].Candidate != "guid" {
		t.Errorf("Closest() = %v, want guides then guid", got)
	}

	if got := Closest("zzz", []string{"Tech", "News"}, DefaultOptions()); len(got) != 0 {
		t.Errorf("Closest() = %v, want none", got)
	}

	// An invalid threshold falls back to the default.
	if got := Closest("Tehc", []string{"Tech"}, Options{Threshold: 3}); len(got) != 1 {
		t.Errorf("Closest() = %v, want Tech", got)
	}
}

func TestDidYouMean(t *testing.T) {
	tests := map[string]struct {
		target string
		want   string
	}{
		"typo":      {target: "Nwes", want: ` (did you mean "News"?)`},
		"case only": {target: "tech", want: ` (did you mean "Tech"?)`},
		"nothing":   {target: "zzz", want: ""},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			if got := DidYouMean(tt.target, []string{"Tech", "News"}); got != tt.want {
				t.Errorf("DidYouMean(%q) = %q, want %q", tt.target, got, tt.want)
			}
		})
	}
}
