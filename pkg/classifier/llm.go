package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/zen-systems/routerd/pkg/adapter"
)

// LLM performs zero-shot classification by prompting a chat model to score
// each candidate label.
type LLM struct {
	adapter adapter.Adapter
	model   string
}

// NewLLM binds an adapter and one of its models.
func NewLLM(a adapter.Adapter, model string) (*LLM, error) {
	if a == nil {
		return nil, fmt.Errorf("llm classifier requires an adapter")
	}
	model = strings.TrimSpace(model)
	if model == "" {
		return nil, fmt.Errorf("llm classifier requires a model")
	}
	return &LLM{adapter: a, model: model}, nil
}

// Name returns the backend and model identifier.
func (l *LLM) Name() string {
	return KindLLM + ":" + l.adapter.Name() + "/" + l.model
}

// Warm checks that the adapter serves the bound model.
func (l *LLM) Warm(_ context.Context) error {
	for _, m := range l.adapter.Models() {
		if m == l.model {
			return nil
		}
	}
	return fmt.Errorf("adapter %s does not serve model %q", l.adapter.Name(), l.model)
}

type llmScore struct {
	ID    int     `json:"id"`
	Score float64 `json:"score"`
}

type llmScores struct {
	Scores []llmScore `json:"scores"`
}

// Classify asks the model for a probability per label and normalizes the
// answer into one distribution. Labels the model leaves out score zero.
func (l *LLM) Classify(ctx context.Context, query string, labels []string) (*Result, error) {
	resp, err := l.adapter.Generate(ctx, l.model, buildScoringPrompt(query, labels))
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, fmt.Errorf("classifier returned empty response")
	}

	parsed, err := parseScoringResponse(resp.Content)
	if err != nil {
		return nil, fmt.Errorf("classifier response invalid: %w", err)
	}

	scores := make([]float64, len(labels))
	seen := make(map[int]bool, len(parsed.Scores))
	var total float64
	for _, s := range parsed.Scores {
		idx := s.ID - 1
		if idx < 0 || idx >= len(labels) {
			return nil, fmt.Errorf("classifier referenced unknown candidate %d", s.ID)
		}
		if seen[idx] {
			return nil, fmt.Errorf("classifier scored candidate %d twice", s.ID)
		}
		if s.Score < 0 || s.Score > 1 {
			return nil, fmt.Errorf("classifier returned score %v for candidate %d, want 0 to 1", s.Score, s.ID)
		}
		seen[idx] = true
		scores[idx] = s.Score
		total += s.Score
	}
	if total > 0 {
		for i := range scores {
			scores[i] /= total
		}
	}

	return &Result{Labels: append([]string(nil), labels...), Scores: scores}, nil
}

func buildScoringPrompt(query string, labels []string) string {
	var sb strings.Builder
	sb.WriteString("You are a zero-shot text classifier. Score how well each candidate describes the request.\n")
	sb.WriteString("Return ONLY JSON: {\"scores\":[{\"id\":1,\"score\":0.0}]} with one entry per candidate, scores between 0 and 1.\n\n")
	sb.WriteString("Request:\n")
	sb.WriteString(query)
	sb.WriteString("\n\nCandidates:\n")
	for i, label := range labels {
		sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, label))
	}
	return sb.String()
}

func parseScoringResponse(content string) (*llmScores, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	var out llmScores
	if err := json.Unmarshal([]byte(content), &out); err != nil {
		return nil, err
	}
	if len(out.Scores) == 0 {
		return nil, fmt.Errorf("missing scores")
	}
	return &out, nil
}
