package router

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/zen-systems/routerd/pkg/classifier"
)

// Match is one ranked candidate.
type Match struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

type ranked struct {
	Match
	order int
}

// Rank classifies query against the candidates' descriptions and returns at
// most n candidates scoring at least threshold, best first. Equal scores keep
// candidate order. An empty result is not an error.
func Rank(ctx context.Context, c classifier.Classifier, candidates CandidateSet, query string, n int, threshold float64) ([]Match, error) {
	if err := ValidateTuning(n, threshold); err != nil {
		return nil, err
	}
	if candidates.Len() == 0 {
		return nil, &ConfigurationError{Field: "candidates", Err: ErrNoCandidates}
	}
	if c == nil {
		return nil, &ConfigurationError{Field: "classifier", Err: fmt.Errorf("no classifier bound")}
	}

	labels := candidates.Descriptions()
	res, err := c.Classify(ctx, query, labels)
	if err != nil {
		var invErr *classifier.InvocationError
		if errors.As(err, &invErr) {
			return nil, err
		}
		return nil, &classifier.InvocationError{Classifier: c.Name(), Err: err}
	}
	if err := classifier.Validate(res, labels); err != nil {
		return nil, &classifier.InvocationError{Classifier: c.Name(), Err: fmt.Errorf("malformed result: %w", err)}
	}

	scored := make([]ranked, 0, len(res.Labels))
	for i, label := range res.Labels {
		idx, _ := candidates.lookup(label)
		scored = append(scored, ranked{
			Match: Match{Name: candidates.items[idx].Name, Score: res.Scores[i]},
			order: idx,
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score == scored[j].Score {
			return scored[i].order < scored[j].order
		}
		return scored[i].Score > scored[j].Score
	})

	matches := make([]Match, 0, minInt(n, len(scored)))
	for _, s := range scored {
		if s.Score < threshold {
			// Sorted descending, so nothing after this passes either.
			break
		}
		matches = append(matches, s.Match)
		if len(matches) == n {
			break
		}
	}
	return matches, nil
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
