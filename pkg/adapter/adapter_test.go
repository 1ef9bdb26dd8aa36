package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestDeepSeekGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer key" {
			t.Errorf("unexpected auth header %q", got)
		}
		var req deepseekRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Model != "deepseek-chat" || len(req.Messages) != 1 {
			t.Errorf("unexpected request: %+v", req)
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"hello"}}],"usage":{"prompt_tokens":3,"completion_tokens":1,"total_tokens":4}}`))
	}))
	defer srv.Close()

	a, err := NewDeepSeekAdapterWithURL("key", srv.URL, srv.Client())
	if err != nil {
		t.Fatalf("new adapter: %v", err)
	}
	resp, err := a.Generate(context.Background(), "deepseek-chat", "hi")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if resp.Content != "hello" || resp.Adapter != "deepseek" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.Usage == nil || resp.Usage.TotalTokens != 4 {
		t.Fatalf("unexpected usage: %+v", resp.Usage)
	}
}

func TestDeepSeekStatusErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("overloaded"))
	}))
	defer srv.Close()

	a, err := NewDeepSeekAdapterWithURL("key", srv.URL, srv.Client())
	if err != nil {
		t.Fatalf("new adapter: %v", err)
	}
	_, err = a.Generate(context.Background(), "deepseek-chat", "hi")
	if err == nil {
		t.Fatalf("expected error")
	}
	var adapterErr *AdapterError
	if !errors.As(err, &adapterErr) || adapterErr.Status != http.StatusServiceUnavailable {
		t.Fatalf("expected AdapterError with status 503, got %v", err)
	}
	if !IsTransient(err) {
		t.Fatalf("expected 503 to be transient")
	}
}

func TestIsTransient(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"deadline", context.DeadlineExceeded, true},
		{"canceled", context.Canceled, false},
		{"rate limited", &AdapterError{Status: 429}, true},
		{"bad request", &AdapterError{Status: 400}, false},
		{"temporary", &AdapterError{Temporary: true}, true},
		{"plain", errors.New("boom"), false},
	}
	for _, tc := range cases {
		if got := IsTransient(tc.err); got != tc.want {
			t.Errorf("%s: IsTransient=%v want %v", tc.name, got, tc.want)
		}
	}
}

func TestMockAdapter(t *testing.T) {
	m := NewMockAdapterWithResponses(map[string]string{"ping": "pong"}, "")
	resp, err := m.Generate(context.Background(), "", "ping")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if resp.Content != "pong" || resp.Model != "mock-1" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if m.Calls() != 1 {
		t.Fatalf("expected 1 call, got %d", m.Calls())
	}

	failing := NewFailingMockAdapter(errors.New("down"))
	if _, err := failing.Generate(context.Background(), "", "ping"); err == nil {
		t.Fatalf("expected failure")
	}
}

func TestDescribeModelsFallback(t *testing.T) {
	infos := DescribeModels(NewMockAdapter())
	if len(infos) != 1 || infos[0].ID != "mock-1" || infos[0].Description != "mock-1 served by mock" {
		t.Fatalf("unexpected infos: %+v", infos)
	}

	ds, _ := NewDeepSeekAdapter("key")
	if got := DescribeModels(ds); len(got) != len(ds.Models()) {
		t.Fatalf("expected described models to match list, got %+v", got)
	}
}
