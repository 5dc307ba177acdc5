package quiz

import (
	"context"
	"fmt"
	"strings"
	"unicode"
)

// TextMatchOracle is a deterministic fallback grader used when no model
// provider is configured. It normalizes both answers and accepts exact
// matches, near matches within a small edit distance, and answers that
// cover most of the reference's words.
type TextMatchOracle struct {
	MaxEditDistance int // for short single-token answers
	MinWordCoverage float64
}

func NewTextMatchOracle() *TextMatchOracle {
	return &TextMatchOracle{MaxEditDistance: 1, MinWordCoverage: 0.6}
}

func (o *TextMatchOracle) Grade(_ context.Context, q Question, submitted string, _ []Turn) (Judgment, error) {
	ref := normalize(q.Reference)
	got := normalize(submitted)

	if got != "" && got == ref {
		return Judgment{Correct: true, Reply: "Correct, well done."}, nil
	}

	refWords := strings.Fields(ref)
	gotWords := strings.Fields(got)

	// Short answers tolerate a typo.
	if len(refWords) == 1 && len(gotWords) == 1 &&
		o.MaxEditDistance > 0 && levenshtein(ref, got) <= o.MaxEditDistance {
		return Judgment{Correct: true, Reply: fmt.Sprintf("Close enough — the exact answer is %q.", q.Reference)}, nil
	}

	if len(refWords) > 1 && coverage(refWords, gotWords) >= o.MinWordCoverage {
		return Judgment{Correct: true, Reply: fmt.Sprintf("That covers it. Full answer: %s", q.Reference)}, nil
	}

	return Judgment{
		Correct: false,
		Reply:   fmt.Sprintf("Not quite. The answer is: %s", q.Reference),
	}, nil
}

// coverage is the fraction of reference words present in the answer.
func coverage(ref, got []string) float64 {
	if len(ref) == 0 {
		return 0
	}
	set := make(map[string]struct{}, len(got))
	for _, w := range got {
		set[w] = struct{}{}
	}
	hits := 0
	for _, w := range ref {
		if _, ok := set[w]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(ref))
}

// normalize casefolds and strips punctuation and extra spaces.
func normalize(s string) string {
	out := make([]rune, 0, len(s))
	space := false
	for _, r := range s {
		switch {
		case unicode.IsSpace(r):
			space = true
		case unicode.IsPunct(r):
			// skip
		default:
			if space && len(out) > 0 {
				out = append(out, ' ')
			}
			space = false
			out = append(out, unicode.ToLower(r))
		}
	}
	return string(out)
}

// levenshtein computes edit distance (insertion, deletion, substitution cost 1).
func levenshtein(a, b string) int {
	ar := []rune(a)
	br := []rune(b)
	n, m := len(ar), len(br)
	if n == 0 {
		return m
	}
	if m == 0 {
		return n
	}
	dp := make([]int, m+1)
	for j := 0; j <= m; j++ {
		dp[j] = j
	}
	for i := 1; i <= n; i++ {
		prev := dp[0]
		dp[0] = i
		for j := 1; j <= m; j++ {
			tmp := dp[j]
			cost := 0
			if ar[i-1] != br[j-1] {
				cost = 1
			}
			ins := dp[j] + 1
			del := dp[j-1] + 1
			sub := prev + cost
			dp[j] = min3(ins, del, sub)
			prev = tmp
		}
	}
	return dp[m]
}

func min3(a, b, c int) int {
	if a < b {
		if a < c {
			return a
		}
		return c
	}
	if b < c {
		return b
	}
	return c
}
