package classifier

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/zen-systems/routerd/pkg/adapter"
	"go.uber.org/zap"
)

// Classifier kinds accepted in router settings.
const (
	KindZeroShot = "zero-shot-classification"
	KindLLM      = "llm-zero-shot"
	KindStatic   = "static"
)

// Kinds lists every classifier kind a Factory can open.
func Kinds() []string {
	return []string{KindZeroShot, KindLLM, KindStatic}
}

// FactoryOptions configures how classifiers are opened.
type FactoryOptions struct {
	HuggingFaceURL   string
	HuggingFaceToken string
	HTTPClient       *http.Client
	Adapters         map[string]adapter.Adapter
	Cache            *Cache
	// Warmup makes Open verify the backend before returning it.
	Warmup bool
	Logger *zap.Logger
}

// Factory opens classifiers bound to a (kind, model) pair.
type Factory struct {
	opts   FactoryOptions
	logger *zap.Logger
}

// NewFactory creates a classifier factory.
func NewFactory(opts FactoryOptions) *Factory {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Factory{opts: opts, logger: logger}
}

// Open returns a classifier of the given kind bound to model.
//
// For KindLLM the model is "adapter/model", e.g. "anthropic/claude-sonnet-4-20250514".
func (f *Factory) Open(ctx context.Context, kind, model string) (Classifier, error) {
	var (
		c   Classifier
		err error
	)

	switch strings.TrimSpace(kind) {
	case KindZeroShot:
		c, err = NewHuggingFace(model,
			WithBaseURL(f.opts.HuggingFaceURL),
			WithToken(f.opts.HuggingFaceToken),
			WithHTTPClient(f.opts.HTTPClient),
		)
	case KindLLM:
		c, err = f.openLLM(model)
	case KindStatic:
		c = NewStatic()
	default:
		err = fmt.Errorf("unknown classifier kind %q", kind)
	}
	if err != nil {
		return nil, err
	}

	if f.opts.Warmup {
		if w, ok := c.(Warmer); ok {
			if err := w.Warm(ctx); err != nil {
				return nil, err
			}
		}
	}

	f.logger.Debug("classifier opened", zap.String("classifier", c.Name()))
	return f.opts.Cache.Wrap(c), nil
}

func (f *Factory) openLLM(model string) (Classifier, error) {
	adapterName, modelName, ok := strings.Cut(model, "/")
	if !ok || adapterName == "" || modelName == "" {
		return nil, fmt.Errorf("llm classifier model must be adapter/model, got %q", model)
	}
	a, ok := f.opts.Adapters[adapterName]
	if !ok || a == nil {
		return nil, fmt.Errorf("adapter %q not configured", adapterName)
	}
	return NewLLM(a, modelName)
}
