package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/zen-systems/routerd/pkg/adapter"
)

// DefaultHuggingFaceURL is the hosted inference endpoint for zero-shot models.
const DefaultHuggingFaceURL = "https://router.huggingface.co/hf-inference/models"

// HuggingFace calls a zero-shot-classification pipeline served over the
// Hugging Face inference protocol.
type HuggingFace struct {
	baseURL    string
	token      string
	model      string
	multiLabel bool
	httpClient *http.Client
}

// HuggingFaceOption configures a HuggingFace classifier.
type HuggingFaceOption func(*HuggingFace)

// WithBaseURL points the classifier at a self-hosted endpoint.
func WithBaseURL(url string) HuggingFaceOption {
	return func(h *HuggingFace) {
		if url != "" {
			h.baseURL = strings.TrimRight(url, "/")
		}
	}
}

// WithToken sets the bearer token sent with each request.
func WithToken(token string) HuggingFaceOption {
	return func(h *HuggingFace) {
		h.token = token
	}
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) HuggingFaceOption {
	return func(h *HuggingFace) {
		if client != nil {
			h.httpClient = client
		}
	}
}

// WithMultiLabel scores labels independently instead of as one distribution.
func WithMultiLabel(multi bool) HuggingFaceOption {
	return func(h *HuggingFace) {
		h.multiLabel = multi
	}
}

// NewHuggingFace creates a classifier bound to model.
func NewHuggingFace(model string, opts ...HuggingFaceOption) (*HuggingFace, error) {
	model = strings.TrimSpace(model)
	if model == "" {
		return nil, fmt.Errorf("huggingface model is required")
	}
	h := &HuggingFace{
		baseURL:    DefaultHuggingFaceURL,
		model:      model,
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Name returns the backend and model identifier.
func (h *HuggingFace) Name() string {
	return KindZeroShot + ":" + h.model
}

type hfRequest struct {
	Inputs     string       `json:"inputs"`
	Parameters hfParameters `json:"parameters"`
}

type hfParameters struct {
	CandidateLabels []string `json:"candidate_labels"`
	MultiLabel      bool     `json:"multi_label"`
}

type hfLabelScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

type hfError struct {
	Error         string  `json:"error"`
	EstimatedTime float64 `json:"estimated_time,omitempty"`
}

// Classify sends one zero-shot request.
func (h *HuggingFace) Classify(ctx context.Context, query string, labels []string) (*Result, error) {
	body, err := json.Marshal(hfRequest{
		Inputs:     query,
		Parameters: hfParameters{CandidateLabels: labels, MultiLabel: h.multiLabel},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+"/"+h.model, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if h.token != "" {
		req.Header.Set("Authorization", "Bearer "+h.token)
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, &adapter.AdapterError{Provider: "huggingface", Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr hfError
		msg := strings.TrimSpace(string(data))
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			msg = apiErr.Error
		}
		return nil, &adapter.AdapterError{
			Provider: "huggingface",
			Status:   resp.StatusCode,
			// 503 with estimated_time means the model is still loading.
			Temporary: apiErr.EstimatedTime > 0,
			Err:       fmt.Errorf("status %d: %s", resp.StatusCode, msg),
		}
	}

	return decodeHFResult(data)
}

// Warm sends a single-label request so an unknown model or an unreachable
// endpoint fails at initialization rather than on the first query.
func (h *HuggingFace) Warm(ctx context.Context) error {
	labels := []string{"ping"}
	res, err := h.Classify(ctx, "ping", labels)
	if err != nil {
		return fmt.Errorf("warm %s: %w", h.Name(), err)
	}
	if err := Validate(res, labels); err != nil {
		return fmt.Errorf("warm %s: %w", h.Name(), err)
	}
	return nil
}

// decodeHFResult accepts both the pipeline shape ({labels, scores}) and the
// list shape ([{label, score}]) served by newer inference providers.
func decodeHFResult(data []byte) (*Result, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty response body")
	}

	if trimmed[0] == '[' {
		var pairs []hfLabelScore
		if err := json.Unmarshal(trimmed, &pairs); err != nil {
			return nil, fmt.Errorf("failed to parse response: %w", err)
		}
		res := &Result{
			Labels: make([]string, 0, len(pairs)),
			Scores: make([]float64, 0, len(pairs)),
		}
		for _, p := range pairs {
			res.Labels = append(res.Labels, p.Label)
			res.Scores = append(res.Scores, p.Score)
		}
		return res, nil
	}

	var res Result
	if err := json.Unmarshal(trimmed, &res); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &res, nil
}
