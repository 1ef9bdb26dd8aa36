// Package catalog supplies the candidate sets routers classify against:
// tools for tool routers, models for model routers, actions for guardrail
// routers.
package catalog

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/zen-systems/routerd/pkg/adapter"
	"github.com/zen-systems/routerd/pkg/router"
	"gopkg.in/yaml.v3"
)

// Catalog lists the candidates for one router kind.
type Catalog interface {
	Candidates(ctx context.Context) (router.CandidateSet, error)
}

// Static is a fixed candidate list.
type Static []router.Candidate

// Candidates returns the list as a candidate set.
func (s Static) Candidates(_ context.Context) (router.CandidateSet, error) {
	return router.NewCandidateSet(s...)
}

// AdapterModels lists every model served by the configured LLM adapters,
// named "adapter/model".
type AdapterModels struct {
	adapters map[string]adapter.Adapter
}

// NewAdapterModels creates a model catalog over adapters.
func NewAdapterModels(adapters map[string]adapter.Adapter) *AdapterModels {
	return &AdapterModels{adapters: adapters}
}

// Candidates returns one candidate per adapter model, ordered by adapter name.
func (a *AdapterModels) Candidates(_ context.Context) (router.CandidateSet, error) {
	names := make([]string, 0, len(a.adapters))
	for name := range a.adapters {
		names = append(names, name)
	}
	sort.Strings(names)

	var candidates []router.Candidate
	for _, name := range names {
		for _, info := range adapter.DescribeModels(a.adapters[name]) {
			candidates = append(candidates, router.Candidate{
				Name:        name + "/" + info.ID,
				Description: info.Description,
			})
		}
	}
	return router.NewCandidateSet(candidates...)
}

// Catalogs groups the catalog of every router kind.
type Catalogs struct {
	Tools   Catalog
	Models  Catalog
	Actions Catalog
}

// For returns the catalog that feeds routers of kind.
func (c *Catalogs) For(kind router.Kind) (Catalog, error) {
	var cat Catalog
	switch kind {
	case router.KindTool:
		cat = c.Tools
	case router.KindModel:
		cat = c.Models
	case router.KindGuardrail:
		cat = c.Actions
	default:
		return nil, fmt.Errorf("no catalog for router kind %q", kind)
	}
	if cat == nil {
		return nil, fmt.Errorf("no catalog configured for router kind %q", kind)
	}
	return cat, nil
}

// FileConfig is the structure of catalogs.yaml.
type FileConfig struct {
	Tools   []router.Candidate `yaml:"tools"`
	Models  []router.Candidate `yaml:"models"`
	Actions []router.Candidate `yaml:"actions"`
}

// Load reads catalogs from a YAML file. Sections the file leaves empty fall
// back to Defaults.
func Load(path string, adapters map[string]adapter.Adapter) (*Catalogs, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var file FileConfig
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse catalogs %s: %w", path, err)
	}

	cats := Defaults(adapters)
	if len(file.Tools) > 0 {
		cats.Tools = Static(file.Tools)
	}
	if len(file.Models) > 0 {
		cats.Models = Static(file.Models)
	}
	if len(file.Actions) > 0 {
		cats.Actions = Static(file.Actions)
	}
	return cats, nil
}

// LoadOrDefault loads path when it exists and returns Defaults otherwise.
func LoadOrDefault(path string, adapters map[string]adapter.Adapter) (*Catalogs, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return Load(path, adapters)
		}
	}
	return Defaults(adapters), nil
}

// Defaults returns the built-in catalogs. The model catalog lists the
// configured adapters' models, or DefaultModels when none are configured.
func Defaults(adapters map[string]adapter.Adapter) *Catalogs {
	var models Catalog = DefaultModels()
	if len(adapters) > 0 {
		models = NewAdapterModels(adapters)
	}
	return &Catalogs{
		Tools:   DefaultTools(),
		Models:  models,
		Actions: DefaultActions(),
	}
}

// DefaultTools returns the featured tools.
func DefaultTools() Static {
	return Static{
		{Name: "web_search", Description: "search the web"},
		{Name: "code_interpreter", Description: "interpret or execute code"},
		{Name: "image_generation", Description: "generate images"},
	}
}

// DefaultModels returns a model list used when no adapter is configured.
func DefaultModels() Static {
	return Static{
		{Name: "openai/gpt-4o-mini", Description: "fast and inexpensive answers to short everyday questions"},
		{Name: "anthropic/claude-sonnet-4-20250514", Description: "writing and debugging code across a repository"},
		{Name: "deepseek/deepseek-reasoner", Description: "deliberate multi step deduction and proofs"},
	}
}

// DefaultActions returns the guardrail actions.
func DefaultActions() Static {
	return Static{
		{Name: "allow", Description: "an ordinary, harmless request"},
		{Name: "block", Description: "a request for harmful or dangerous content"},
		{Name: "redact", Description: "a message containing personal or sensitive information"},
		{Name: "escalate", Description: "a request that needs review by a human"},
	}
}
