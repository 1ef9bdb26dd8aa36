package adapter

import (
	"context"
	"fmt"
	"sync"
)

// MockAdapter returns deterministic responses for local runs and tests.
type MockAdapter struct {
	mu              sync.Mutex
	responses       map[string]string
	defaultResponse string
	err             error
	calls           int
	Usage           *Usage
}

// NewMockAdapter creates a mock adapter with a default response.
func NewMockAdapter() *MockAdapter {
	return &MockAdapter{
		responses:       make(map[string]string),
		defaultResponse: "mock response:",
	}
}

// NewMockAdapterWithResponses creates a mock adapter with predefined responses.
func NewMockAdapterWithResponses(responses map[string]string, defaultResponse string) *MockAdapter {
	if defaultResponse == "" {
		defaultResponse = "mock response:"
	}
	return &MockAdapter{responses: responses, defaultResponse: defaultResponse}
}

// NewFailingMockAdapter creates a mock adapter whose every call fails with err.
func NewFailingMockAdapter(err error) *MockAdapter {
	return &MockAdapter{responses: make(map[string]string), err: err}
}

// Name returns the adapter identifier.
func (a *MockAdapter) Name() string {
	return "mock"
}

// Models returns the list of supported mock models.
func (a *MockAdapter) Models() []string {
	return []string{"mock-1"}
}

// Calls reports how many times Generate was invoked.
func (a *MockAdapter) Calls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

// Generate returns a deterministic response for the prompt.
func (a *MockAdapter) Generate(_ context.Context, model string, prompt string) (*Response, error) {
	a.mu.Lock()
	a.calls++
	a.mu.Unlock()

	if a.err != nil {
		return nil, a.err
	}
	if model == "" {
		model = "mock-1"
	}
	if response, ok := a.responses[prompt]; ok {
		return &Response{Content: response, Adapter: a.Name(), Model: model, Usage: a.Usage}, nil
	}
	content := fmt.Sprintf("%s\n%s", a.defaultResponse, prompt)
	return &Response{Content: content, Adapter: a.Name(), Model: model, Usage: a.Usage}, nil
}
