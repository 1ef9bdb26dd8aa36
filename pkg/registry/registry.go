// Package registry holds router configurations and the live routers built
// from them.
//
// Configurations change through List/Get/Create/Update/Delete. Live routers
// change only through InitializeAll, which rebuilds every enabled router and
// swaps the whole set at once; a failed run leaves the previous set in place.
package registry

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/zen-systems/routerd/pkg/catalog"
	"github.com/zen-systems/routerd/pkg/router"
	"go.uber.org/zap"
)

// ModelResolver maps model aliases to canonical model identifiers.
type ModelResolver interface {
	Resolve(modelOrAlias string) string
}

// Registry is the shared router store. All methods are safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	configs []RouterConfig
	live    map[string]*router.Router
	report  *InitReport

	opener   router.Opener
	catalogs *catalog.Catalogs
	resolver ModelResolver
	timeout  time.Duration
	logger   *zap.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the registry logger.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithResolver resolves model aliases before classifiers are opened.
func WithResolver(resolver ModelResolver) Option {
	return func(r *Registry) {
		r.resolver = resolver
	}
}

// WithRouteTimeout bounds classifier calls made by the routers it builds.
func WithRouteTimeout(d time.Duration) Option {
	return func(r *Registry) {
		r.timeout = d
	}
}

// New creates a registry seeded with configs. Seed ids must be unique and
// every seed must pass validation.
func New(opener router.Opener, catalogs *catalog.Catalogs, seed []RouterConfig, opts ...Option) (*Registry, error) {
	if opener == nil {
		return nil, fmt.Errorf("registry requires a classifier opener")
	}
	if catalogs == nil {
		return nil, fmt.Errorf("registry requires catalogs")
	}

	r := &Registry{
		live:     make(map[string]*router.Router),
		opener:   opener,
		catalogs: catalogs,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}

	seen := make(map[string]struct{}, len(seed))
	for _, cfg := range seed {
		cfg, err := normalize(cfg)
		if err != nil {
			return nil, fmt.Errorf("seed router %q: %w", cfg.ID, err)
		}
		if cfg.ID == "" {
			return nil, fmt.Errorf("seed router %q has no id", cfg.Name)
		}
		if _, dup := seen[cfg.ID]; dup {
			return nil, fmt.Errorf("duplicate seed router id %q", cfg.ID)
		}
		seen[cfg.ID] = struct{}{}
		r.configs = append(r.configs, cfg)
	}
	return r, nil
}

// normalize fills an inferred kind and validates cfg.
func normalize(cfg RouterConfig) (RouterConfig, error) {
	cfg.ID = strings.TrimSpace(cfg.ID)
	cfg.Name = strings.TrimSpace(cfg.Name)
	if cfg.Kind == "" {
		cfg.Kind = router.KindFromName(cfg.Name)
	}
	kind, err := router.ParseKind(string(cfg.Kind))
	if err != nil {
		return cfg, err
	}
	cfg.Kind = kind
	if err := cfg.Settings.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// List returns every configuration in insertion order.
func (r *Registry) List() []RouterConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]RouterConfig(nil), r.configs...)
}

// Get returns the configuration with id.
func (r *Registry) Get(id string) (RouterConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	idx := r.indexOf(id)
	if idx < 0 {
		return RouterConfig{}, fmt.Errorf("router %q: %w", id, ErrNotFound)
	}
	return r.configs[idx], nil
}

// Update replaces the settings of the router with id. The live router, if
// any, keeps its old settings until the next InitializeAll.
func (r *Registry) Update(id string, settings Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	idx := r.indexOf(id)
	if idx < 0 {
		return fmt.Errorf("router %q: %w", id, ErrNotFound)
	}
	r.configs[idx].Settings = settings
	r.logger.Info("router settings updated",
		zap.String("router_id", id),
		zap.Bool("enabled", settings.Enabled),
		zap.String("classifier", settings.Classifier),
		zap.String("model", settings.Model),
		zap.Int("n", settings.N),
		zap.Float64("threshold", settings.Threshold),
	)
	return nil
}

// Create adds a router and returns it with its new id. An empty kind is
// inferred from the name.
func (r *Registry) Create(name string, kind router.Kind, settings Settings) (RouterConfig, error) {
	if strings.TrimSpace(name) == "" {
		return RouterConfig{}, &router.ConfigurationError{Field: "name", Err: fmt.Errorf("must not be empty")}
	}
	cfg, err := normalize(RouterConfig{
		ID:       uuid.NewString(),
		Name:     name,
		Kind:     kind,
		Settings: settings,
	})
	if err != nil {
		return RouterConfig{}, err
	}

	r.mu.Lock()
	r.configs = append(r.configs, cfg)
	r.mu.Unlock()

	r.logger.Info("router created", zap.String("router_id", cfg.ID), zap.String("name", cfg.Name), zap.String("kind", string(cfg.Kind)))
	return cfg, nil
}

// Delete removes the router with id along with its live instance.
func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	idx := r.indexOf(id)
	if idx < 0 {
		return fmt.Errorf("router %q: %w", id, ErrNotFound)
	}
	r.configs = append(r.configs[:idx], r.configs[idx+1:]...)
	delete(r.live, id)
	r.logger.Info("router deleted", zap.String("router_id", id))
	return nil
}

// Router returns the live router with id.
func (r *Registry) Router(id string) (*router.Router, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.indexOf(id) < 0 {
		return nil, fmt.Errorf("router %q: %w", id, ErrNotFound)
	}
	inst, ok := r.live[id]
	if !ok {
		return nil, fmt.Errorf("router %q: %w", id, ErrNotInitialized)
	}
	return inst, nil
}

// LiveCount returns the number of live routers.
func (r *Registry) LiveCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.live)
}

// Report returns a copy of the most recent initialization report, or nil.
func (r *Registry) Report() *InitReport {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.report.clone()
}

func (r *Registry) indexOf(id string) int {
	for i := range r.configs {
		if r.configs[i].ID == id {
			return i
		}
	}
	return -1
}

// InitializeAll builds a router for every enabled configuration. Either all
// of them build and replace the live set, or the live set is left unchanged
// and an *InitializationError names every router that failed. The report is
// recorded either way.
func (r *Registry) InitializeAll(ctx context.Context) (*InitReport, error) {
	snapshot := r.List()

	report := &InitReport{
		StartedAt: time.Now().UTC(),
		Results:   make(map[string]InitResult, len(snapshot)),
	}
	built := make(map[string]*router.Router, len(snapshot))
	failures := make(map[string]error)

	for _, cfg := range snapshot {
		if !cfg.Settings.Enabled {
			report.Results[cfg.ID] = InitResult{Status: StatusDisabled}
			continue
		}

		inst, err := r.build(ctx, cfg)
		if err != nil {
			r.logger.Error("router initialization failed",
				zap.String("router_id", cfg.ID),
				zap.String("name", cfg.Name),
				zap.Error(err),
			)
			failures[cfg.ID] = err
			report.Results[cfg.ID] = InitResult{Status: StatusFailed, Error: err.Error()}
			continue
		}

		built[cfg.ID] = inst
		report.Results[cfg.ID] = InitResult{
			Status:     StatusReady,
			Classifier: inst.Config().Classifier + ":" + inst.Config().Model,
			Candidates: inst.Candidates().Len(),
		}
	}
	report.DurationMs = time.Since(report.StartedAt).Milliseconds()
	report.Applied = len(failures) == 0

	r.mu.Lock()
	r.report = report
	live := len(r.live)
	if report.Applied {
		// Drop routers deleted while this run was building.
		for id := range built {
			if r.indexOf(id) < 0 {
				delete(built, id)
			}
		}
		r.live = built
		live = len(built)
	}
	r.mu.Unlock()

	if !report.Applied {
		return report.clone(), &InitializationError{Failures: failures}
	}
	r.logger.Info("routers initialized", zap.Int("live", live), zap.Int64("duration_ms", report.DurationMs))
	return report.clone(), nil
}

func (r *Registry) build(ctx context.Context, cfg RouterConfig) (*router.Router, error) {
	cat, err := r.catalogs.For(cfg.Kind)
	if err != nil {
		return nil, err
	}
	candidates, err := cat.Candidates(ctx)
	if err != nil {
		return nil, fmt.Errorf("load %s candidates: %w", cfg.Kind, err)
	}

	model := cfg.Settings.Model
	if r.resolver != nil && model != "" {
		model = r.resolver.Resolve(model)
	}

	return router.Open(ctx, r.opener, router.Config{
		ID:         cfg.ID,
		Kind:       cfg.Kind,
		Classifier: cfg.Settings.Classifier,
		Model:      model,
		N:          cfg.Settings.N,
		Threshold:  cfg.Settings.Threshold,
	}, candidates,
		router.WithLogger(r.logger),
		router.WithTimeout(r.timeout),
	)
}
