package classifier

import (
	"context"
	"strings"
	"unicode"
)

// Static scores labels by word overlap with the query. It needs no model and
// is deterministic, which makes it the offline and test backend.
type Static struct{}

// NewStatic returns a Static classifier.
func NewStatic() *Static { return &Static{} }

// Name returns "static".
func (s *Static) Name() string { return KindStatic }

// Classify scores each label by the fraction of its words found in the query,
// then normalizes the scores into one distribution. With no overlap at all
// every label gets the same score.
func (s *Static) Classify(_ context.Context, query string, labels []string) (*Result, error) {
	words := make(map[string]struct{})
	for _, w := range tokenize(query) {
		words[w] = struct{}{}
	}

	scores := make([]float64, len(labels))
	var total float64
	for i, label := range labels {
		terms := tokenize(label)
		if len(terms) == 0 {
			continue
		}
		hits := 0
		for _, t := range terms {
			if _, ok := words[t]; ok {
				hits++
			}
		}
		scores[i] = float64(hits) / float64(len(terms))
		total += scores[i]
	}

	if total == 0 {
		for i := range scores {
			scores[i] = 1 / float64(len(labels))
		}
	} else {
		for i := range scores {
			scores[i] /= total
		}
	}

	return &Result{Labels: append([]string(nil), labels...), Scores: scores}, nil
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
