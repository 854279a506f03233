// Package suggest finds near matches for names the user typed, such as
// guide titles or backup ids.
package suggest

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"unicode"
)

// Match is a candidate with its similarity to the target.
type Match struct {
	Candidate string
	Score     float64
}

// Options tune Closest.
type Options struct {
	// Threshold is the lowest score (0-1) reported.
	Threshold float64
	// Limit caps the number of matches. Zero means no cap.
	Limit int
}

// DefaultOptions returns the options used for "did you mean" hints.
func DefaultOptions() Options {
	return Options{Threshold: 0.75, Limit: 3}
}

// Closest returns the candidates similar to target, best first. Ties keep
// the order of candidates.
func Closest(target string, candidates []string, opts Options) []Match {
	if opts.Threshold <= 0 || opts.Threshold > 1 {
		opts.Threshold = DefaultOptions().Threshold
	}

	var matches []Match
	for _, c := range candidates {
		if s := Score(target, c); s >= opts.Threshold {
			matches = append(matches, Match{Candidate: c, Score: s})
		}
	}
	slices.SortStableFunc(matches, func(a, b Match) int {
		return cmp.Compare(b.Score, a.Score)
	})
	if opts.Limit > 0 && len(matches) > opts.Limit {
		matches = matches[:opts.Limit]
	}
	return matches
}

// DidYouMean renders the best match as a hint suffix, or "" when nothing
// is close enough.
func DidYouMean(target string, candidates []string) string {
	opts := DefaultOptions()
	opts.Limit = 1
	m := Closest(target, candidates, opts)
	if len(m) == 0 {
		return ""
	}
	return fmt.Sprintf(" (did you mean %q?)", m[0].Candidate)
}

// Score compares two names after normalization and returns the better of
// the edit-distance and Jaro-Winkler similarities.
func Score(a, b string) float64 {
	ra, rb := []rune(normalize(a)), []rune(normalize(b))
	if slices.Equal(ra, rb) {
		return 1
	}
	if len(ra) == 0 || len(rb) == 0 {
		return 0
	}
	edit := 1 - float64(distance(ra, rb))/float64(max(len(ra), len(rb)))
	return max(edit, jaroWinkler(ra, rb))
}

// normalize lowercases s, keeps letters and digits, and folds runs of
// separators into one space.
func normalize(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	sep := false
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			sb.WriteRune(r)
			sep = false
		case unicode.IsSpace(r) || r == '-' || r == '_' || r == '.' || r == '/':
			if !sep {
				sb.WriteRune(' ')
				sep = true
			}
		}
	}
	return strings.TrimSpace(sb.String())
}

// distance is the Levenshtein distance, computed with two rows.
func distance(a, b []rune) int {
	if len(a) < len(b) {
		a, b = b, a
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			sub := prev[j-1]
			if a[i-1] != b[j-1] {
				sub++
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, sub)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func jaro(a, b []rune) float64 {
	window := max(0, max(len(a), len(b))/2-1)
	usedA := make([]bool, len(a))
	usedB := make([]bool, len(b))

	matches := 0
	for i := range a {
		for j := max(0, i-window); j < min(len(b), i+window+1); j++ {
			if !usedB[j] && a[i] == b[j] {
				usedA[i], usedB[j] = true, true
				matches++
				break
			}
		}
	}
	if matches == 0 {
		return 0
	}

	half := 0
	k := 0
	for i := range a {
		if !usedA[i] {
			continue
		}
		for !usedB[k] {
			k++
		}
		if a[i] != b[k] {
			half++
		}
		k++
	}

	m := float64(matches)
	return (m/float64(len(a)) + m/float64(len(b)) + (m-float64(half/2))/m) / 3
}

// jaroWinkler boosts the Jaro score for a shared prefix of up to four runes.
func jaroWinkler(a, b []rune) float64 {
	j := jaro(a, b)
	prefix := 0
	for prefix < min(4, len(a), len(b)) && a[prefix] == b[prefix] {
		prefix++
	}
	return j + float64(prefix)*0.1*(1-j)
}
