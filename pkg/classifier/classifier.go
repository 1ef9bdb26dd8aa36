// Package classifier defines the zero-shot classification gateway consumed by
// routers, plus the concrete backends routerd can bind a router to.
//
// A Classifier scores every candidate label against a query. Results are
// index aligned (Labels[i] scored Scores[i]) and carry no ordering guarantee.
package classifier

import (
	"context"
	"fmt"
	"math"
)

// Classifier scores candidate labels against a query.
type Classifier interface {
	// Classify returns one score per label it recognized.
	Classify(ctx context.Context, query string, labels []string) (*Result, error)

	// Name identifies the backend and model, e.g. "zero-shot-classification:facebook/bart-large-mnli".
	Name() string
}

// Warmer is implemented by classifiers that can verify their backend is
// reachable before the first query.
type Warmer interface {
	Warm(ctx context.Context) error
}

// Result is the raw output of a classification call.
type Result struct {
	Labels []string  `json:"labels"`
	Scores []float64 `json:"scores"`
}

// Func adapts a plain function to the Classifier interface.
type Func func(ctx context.Context, query string, labels []string) (*Result, error)

// Classify calls f.
func (f Func) Classify(ctx context.Context, query string, labels []string) (*Result, error) {
	return f(ctx, query, labels)
}

// Name returns "func".
func (f Func) Name() string { return "func" }

// InvocationError reports a failed or malformed classification call.
type InvocationError struct {
	Classifier string
	Err        error
}

func (e *InvocationError) Error() string {
	if e == nil {
		return "classifier invocation error"
	}
	if e.Classifier == "" {
		return fmt.Sprintf("classifier invocation failed: %v", e.Err)
	}
	return fmt.Sprintf("classifier %s invocation failed: %v", e.Classifier, e.Err)
}

func (e *InvocationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Validate checks that res is well formed for the labels it was asked about.
// Every requested label must be scored exactly once with a score in [0,1].
func Validate(res *Result, labels []string) error {
	if res == nil {
		return fmt.Errorf("empty result")
	}
	if len(res.Labels) != len(res.Scores) {
		return fmt.Errorf("result has %d labels but %d scores", len(res.Labels), len(res.Scores))
	}
	if len(res.Labels) != len(labels) {
		return fmt.Errorf("result scored %d of %d labels", len(res.Labels), len(labels))
	}

	requested := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		requested[l] = struct{}{}
	}

	seen := make(map[string]struct{}, len(res.Labels))
	for i, label := range res.Labels {
		if _, ok := requested[label]; !ok {
			return fmt.Errorf("result label %q was not requested", label)
		}
		if _, dup := seen[label]; dup {
			return fmt.Errorf("result label %q repeated", label)
		}
		seen[label] = struct{}{}

		score := res.Scores[i]
		if math.IsNaN(score) || score < 0 || score > 1 {
			return fmt.Errorf("score %v for label %q out of range", score, label)
		}
	}
	return nil
}
