package registry

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/zen-systems/routerd/pkg/classifier"
	"github.com/zen-systems/routerd/pkg/router"
)

// ErrNotFound is returned for operations on an unknown router id.
var ErrNotFound = errors.New("router not found")

// ErrNotInitialized is returned when a router exists but has no live instance.
var ErrNotInitialized = errors.New("router not initialized")

// Settings are the tunable fields of a router.
type Settings struct {
	Enabled    bool    `json:"enabled" yaml:"enabled"`
	Classifier string  `json:"classifier" yaml:"classifier"`
	Model      string  `json:"model" yaml:"model"`
	N          int     `json:"n" yaml:"n"`
	Threshold  float64 `json:"threshold" yaml:"threshold"`
}

// DefaultSettings returns the values a settings payload starts from before
// the caller's fields are applied.
func DefaultSettings() Settings {
	return Settings{
		Enabled:    false,
		Classifier: classifier.KindZeroShot,
		Model:      "",
		N:          1,
		Threshold:  0.1,
	}
}

// Validate checks settings invariants.
func (s Settings) Validate() error {
	if err := router.ValidateTuning(s.N, s.Threshold); err != nil {
		return err
	}
	kind := strings.TrimSpace(s.Classifier)
	for _, k := range classifier.Kinds() {
		if kind == k {
			return nil
		}
	}
	return &router.ConfigurationError{
		Field: "classifier",
		Err:   fmt.Errorf("unknown classifier %q (want one of %s)", s.Classifier, strings.Join(classifier.Kinds(), ", ")),
	}
}

// RouterConfig is one stored router configuration.
type RouterConfig struct {
	ID       string      `json:"id" yaml:"id"`
	Name     string      `json:"name" yaml:"name"`
	Kind     router.Kind `json:"kind" yaml:"kind"`
	Settings Settings    `json:"settings" yaml:"settings"`
}

// DefaultConfigs returns the routers a fresh registry starts with.
func DefaultConfigs() []RouterConfig {
	return []RouterConfig{
		{
			ID:   "1",
			Name: "Model Router",
			Kind: router.KindModel,
			Settings: Settings{
				Enabled:    true,
				Classifier: classifier.KindZeroShot,
				Model:      router.DefaultModel,
				N:          1,
				Threshold:  0.1,
			},
		},
		{
			ID:   "2",
			Name: "Tool Router",
			Kind: router.KindTool,
			Settings: Settings{
				Enabled:    true,
				Classifier: classifier.KindZeroShot,
				Model:      router.DefaultModel,
				N:          3,
				Threshold:  0.08,
			},
		},
		{
			ID:   "3",
			Name: "Guardrail Router",
			Kind: router.KindGuardrail,
			Settings: Settings{
				Enabled:    true,
				Classifier: classifier.KindZeroShot,
				Model:      router.DefaultModel,
				N:          1,
				Threshold:  0.169,
			},
		},
	}
}

// Init statuses recorded per router.
const (
	StatusReady    = "ready"
	StatusFailed   = "failed"
	StatusDisabled = "disabled"
)

// InitResult is the outcome of building one router.
type InitResult struct {
	Status     string `json:"status"`
	Classifier string `json:"classifier,omitempty"`
	Candidates int    `json:"candidates,omitempty"`
	Error      string `json:"error,omitempty"`
}

// InitReport records one InitializeAll run.
type InitReport struct {
	StartedAt  time.Time             `json:"started_at"`
	DurationMs int64                 `json:"duration_ms"`
	Applied    bool                  `json:"applied"`
	Results    map[string]InitResult `json:"results"`
}

func (r *InitReport) clone() *InitReport {
	if r == nil {
		return nil
	}
	out := *r
	out.Results = make(map[string]InitResult, len(r.Results))
	for id, res := range r.Results {
		out.Results[id] = res
	}
	return &out
}

// InitializationError aggregates every router that failed to build.
type InitializationError struct {
	Failures map[string]error
}

func (e *InitializationError) Error() string {
	if e == nil || len(e.Failures) == 0 {
		return "router initialization failed"
	}
	ids := make([]string, 0, len(e.Failures))
	for id := range e.Failures {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, fmt.Sprintf("%s: %v", id, e.Failures[id]))
	}
	return fmt.Sprintf("failed to initialize %d router(s): %s", len(ids), strings.Join(parts, "; "))
}

// Unwrap exposes the individual failures to errors.Is and errors.As.
func (e *InitializationError) Unwrap() []error {
	if e == nil {
		return nil
	}
	errs := make([]error, 0, len(e.Failures))
	for _, err := range e.Failures {
		errs = append(errs, err)
	}
	return errs
}
