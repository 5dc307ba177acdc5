package quiz

import (
	"context"
	"testing"
)

func TestTextMatchOracle(t *testing.T) {
	o := NewTextMatchOracle()
	ctx := context.Background()

	cases := []struct {
		name      string
		reference string
		submitted string
		correct   bool
	}{
		{"exact", "Paris", "Paris", true},
		{"case and punctuation", "Paris", "paris!", true},
		{"single typo", "Paris", "Pariz", true},
		{"too far off", "Paris", "Lyon", false},
		{"empty answer", "Paris", "", false},
		{"phrase coverage", "the mitochondria is the powerhouse of the cell", "mitochondria is the cell powerhouse", true},
		{"phrase too sparse", "the mitochondria is the powerhouse of the cell", "something about energy", false},
		{"whitespace normalization", "New   York", "new york", true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			j, err := o.Grade(ctx, Question{Prompt: "q", Reference: tc.reference}, tc.submitted, nil)
			if err != nil {
				t.Fatalf("Grade: %v", err)
			}
			if j.Correct != tc.correct {
				t.Fatalf("Grade(%q vs %q).Correct = %v, want %v", tc.submitted, tc.reference, j.Correct, tc.correct)
			}
			if j.Reply == "" {
				t.Fatal("empty feedback")
			}
		})
	}
}

func TestLevenshtein(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"a", "", 1},
		{"", "abc", 3},
		{"kitten", "sitting", 3},
		{"paris", "pariz", 1},
	}
	for _, tc := range cases {
		if got := levenshtein(tc.a, tc.b); got != tc.want {
			t.Errorf("levenshtein(%q, %q) = %d, want %d", tc.a, tc.b, got, tc.want)
		}
	}
}
