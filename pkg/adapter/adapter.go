package adapter

import (
	"context"
)

// Adapter defines the interface for LLM provider adapters.
type Adapter interface {
	// Generate sends a prompt to the model and returns its completion.
	Generate(ctx context.Context, model string, prompt string) (*Response, error)

	// Name returns the adapter's identifier.
	Name() string

	// Models returns the list of supported models.
	Models() []string
}

// Describer is implemented by adapters that can describe their models.
// The model catalog uses these descriptions as classifier labels.
type Describer interface {
	Describe() []ModelInfo
}

// ModelInfo holds metadata about a model.
type ModelInfo struct {
	ID          string `json:"id" yaml:"id"`
	Description string `json:"description" yaml:"description"`
}

// DescribeModels returns model metadata for an adapter. Adapters that do
// not implement Describer get a generic description per model.
func DescribeModels(a Adapter) []ModelInfo {
	if a == nil {
		return nil
	}
	if d, ok := a.(Describer); ok {
		return d.Describe()
	}
	models := a.Models()
	infos := make([]ModelInfo, 0, len(models))
	for _, m := range models {
		infos = append(infos, ModelInfo{ID: m, Description: m + " served by " + a.Name()})
	}
	return infos
}
