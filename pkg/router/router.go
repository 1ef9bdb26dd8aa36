package router

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/zen-systems/routerd/pkg/classifier"
	"go.uber.org/zap"
)

// DefaultTimeout bounds a single classifier call.
const DefaultTimeout = 30 * time.Second

// Config holds the settings a Router is built from.
type Config struct {
	ID         string
	Kind       Kind
	Classifier string
	Model      string
	N          int
	Threshold  float64
}

// Opener opens a classifier bound to a kind and model.
type Opener interface {
	Open(ctx context.Context, kind, model string) (classifier.Classifier, error)
}

// Router ranks a fixed candidate set against queries. It is immutable after
// construction and safe for concurrent use.
type Router struct {
	cfg        Config
	candidates CandidateSet
	classifier classifier.Classifier
	timeout    time.Duration
	logger     *zap.Logger
}

// Option configures a Router.
type Option func(*Router)

// WithLogger sets the router logger.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Router) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithTimeout bounds each classifier call. Zero keeps DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(r *Router) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// ApplyDefaults fills empty fields of cfg from its kind's defaults.
func ApplyDefaults(cfg Config) Config {
	d, ok := DefaultsFor(cfg.Kind)
	if !ok {
		return cfg
	}
	if strings.TrimSpace(cfg.Classifier) == "" {
		cfg.Classifier = d.Classifier
	}
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = d.Model
	}
	if cfg.N == 0 {
		cfg.N = d.N
	}
	return cfg
}

// New creates a router around an already opened classifier.
func New(cfg Config, candidates CandidateSet, c classifier.Classifier, opts ...Option) (*Router, error) {
	if _, ok := DefaultsFor(cfg.Kind); !ok {
		return nil, &ConfigurationError{Field: "kind", Err: fmt.Errorf("unknown router kind %q", cfg.Kind)}
	}
	if err := ValidateTuning(cfg.N, cfg.Threshold); err != nil {
		return nil, err
	}
	if candidates.Len() == 0 {
		return nil, &ConfigurationError{Field: "candidates", Err: ErrNoCandidates}
	}
	if c == nil {
		return nil, &ConfigurationError{Field: "classifier", Err: fmt.Errorf("no classifier bound")}
	}

	r := &Router{
		cfg:        cfg,
		candidates: candidates,
		classifier: c,
		timeout:    DefaultTimeout,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With(zap.String("router_id", cfg.ID), zap.String("kind", string(cfg.Kind)))
	return r, nil
}

// Open applies kind defaults, opens the classifier through opener and builds
// the router. Configuration problems are reported before any classifier is
// opened.
func Open(ctx context.Context, opener Opener, cfg Config, candidates CandidateSet, opts ...Option) (*Router, error) {
	cfg = ApplyDefaults(cfg)
	if _, ok := DefaultsFor(cfg.Kind); !ok {
		return nil, &ConfigurationError{Field: "kind", Err: fmt.Errorf("unknown router kind %q", cfg.Kind)}
	}
	if err := ValidateTuning(cfg.N, cfg.Threshold); err != nil {
		return nil, err
	}
	if candidates.Len() == 0 {
		return nil, &ConfigurationError{Field: "candidates", Err: ErrNoCandidates}
	}

	c, err := opener.Open(ctx, cfg.Classifier, cfg.Model)
	if err != nil {
		return nil, fmt.Errorf("open classifier %s/%s: %w", cfg.Classifier, cfg.Model, err)
	}
	return New(cfg, candidates, c, opts...)
}

// ID returns the router id.
func (r *Router) ID() string { return r.cfg.ID }

// Kind returns the router kind.
func (r *Router) Kind() Kind { return r.cfg.Kind }

// Config returns the settings the router was built with.
func (r *Router) Config() Config { return r.cfg }

// Candidates returns the router's candidate set.
func (r *Router) Candidates() CandidateSet { return r.candidates }

// Route ranks the candidates for query.
func (r *Router) Route(ctx context.Context, query string) ([]Match, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	matches, err := Rank(ctx, r.classifier, r.candidates, query, r.cfg.N, r.cfg.Threshold)
	if err != nil {
		r.logger.Warn("route failed", zap.Error(err))
		return nil, err
	}
	r.logger.Debug("routed query", zap.Int("matches", len(matches)), zap.Any("results", matches))
	return matches, nil
}

// RouteWithDecision ranks the candidates for query and describes the result.
func (r *Router) RouteWithDecision(ctx context.Context, query string) (*Decision, error) {
	start := time.Now()
	matches, err := r.Route(ctx, query)
	if err != nil {
		return nil, err
	}

	decision := &Decision{
		RouterID:   r.cfg.ID,
		Kind:       r.cfg.Kind,
		Matches:    matches,
		Classifier: r.classifier.Name(),
		Model:      r.cfg.Model,
		LatencyMs:  time.Since(start).Milliseconds(),
	}
	if len(matches) > 0 {
		decision.Selected = matches[0].Name
		decision.Confidence = matches[0].Score
		decision.Reasons = append(decision.Reasons, fmt.Sprintf("top_score=%.3f threshold=%.3f", matches[0].Score, r.cfg.Threshold))
	} else {
		decision.Reasons = append(decision.Reasons, fmt.Sprintf("no %s scored above threshold %.3f", r.noun(), r.cfg.Threshold))
	}
	return decision, nil
}

func (r *Router) noun() string {
	d, _ := DefaultsFor(r.cfg.Kind)
	return d.Noun
}
