package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/zen-systems/routerd/pkg/adapter"
)

func TestValidate(t *testing.T) {
	labels := []string{"alpha", "beta"}
	cases := []struct {
		name    string
		res     *Result
		wantErr bool
	}{
		{"ok", &Result{Labels: []string{"beta", "alpha"}, Scores: []float64{0.9, 0.1}}, false},
		{"subset", &Result{Labels: []string{"beta"}, Scores: []float64{0.9}}, true},
		{"empty", &Result{}, true},
		{"nil", nil, true},
		{"misaligned", &Result{Labels: []string{"beta", "alpha"}, Scores: []float64{0.9}}, true},
		{"foreign", &Result{Labels: []string{"gamma"}, Scores: []float64{0.9}}, true},
		{"repeat", &Result{Labels: []string{"beta", "beta"}, Scores: []float64{0.5, 0.5}}, true},
		{"nan", &Result{Labels: []string{"beta", "alpha"}, Scores: []float64{math.NaN(), 0}}, true},
		{"above one", &Result{Labels: []string{"beta", "alpha"}, Scores: []float64{1.5, 0}}, true},
	}
	for _, tc := range cases {
		err := Validate(tc.res, labels)
		if (err != nil) != tc.wantErr {
			t.Errorf("%s: err=%v wantErr=%v", tc.name, err, tc.wantErr)
		}
	}
}

func TestHuggingFacePipelineShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/facebook/bart-large-mnli" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("unexpected auth %q", got)
		}
		var req hfRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		if req.Inputs != "draw a cat" || len(req.Parameters.CandidateLabels) != 2 {
			t.Errorf("unexpected request %+v", req)
		}
		_, _ = w.Write([]byte(`{"sequence":"draw a cat","labels":["generate images","search the web"],"scores":[0.8,0.2]}`))
	}))
	defer srv.Close()

	h, err := NewHuggingFace("facebook/bart-large-mnli", WithBaseURL(srv.URL), WithToken("tok"), WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	res, err := h.Classify(context.Background(), "draw a cat", []string{"search the web", "generate images"})
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if res.Labels[0] != "generate images" || res.Scores[0] != 0.8 {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestHuggingFaceListShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req hfRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || !req.Parameters.MultiLabel {
			t.Errorf("expected multi_label request, got %+v (%v)", req, err)
		}
		_, _ = w.Write([]byte(`[{"label":"b","score":0.7},{"label":"a","score":0.3}]`))
	}))
	defer srv.Close()

	h, _ := NewHuggingFace("m", WithBaseURL(srv.URL), WithMultiLabel(true))
	res, err := h.Classify(context.Background(), "q", []string{"a", "b"})
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if len(res.Labels) != 2 || res.Labels[0] != "b" || res.Scores[1] != 0.3 {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestHuggingFaceErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":"Model is currently loading","estimated_time":20}`))
	}))
	defer srv.Close()

	h, _ := NewHuggingFace("m", WithBaseURL(srv.URL))
	_, err := h.Classify(context.Background(), "q", []string{"a"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "currently loading") {
		t.Fatalf("expected api message in error, got %v", err)
	}
	if !adapter.IsTransient(err) {
		t.Fatalf("expected loading model to be transient")
	}
	if err := h.Warm(context.Background()); err == nil {
		t.Fatalf("expected warm to fail")
	}
}

func TestHuggingFaceEmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	h, _ := NewHuggingFace("m", WithBaseURL(srv.URL))
	labels := []string{"a", "b"}
	res, err := h.Classify(context.Background(), "q", labels)
	if err == nil {
		if err := Validate(res, labels); err == nil {
			t.Fatalf("expected empty response to be rejected, got %+v", res)
		}
	}
	if err := h.Warm(context.Background()); err == nil {
		t.Fatalf("expected warm to fail on empty response")
	}
}

func TestNewHuggingFaceRequiresModel(t *testing.T) {
	if _, err := NewHuggingFace("  "); err == nil {
		t.Fatalf("expected error for empty model")
	}
}

func TestLLMClassify(t *testing.T) {
	labels := []string{"search the web", "generate images"}
	prompt := buildScoringPrompt("draw a cat", labels)
	mock := adapter.NewMockAdapterWithResponses(map[string]string{
		prompt: "```json\n{\"scores\":[{\"id\":2,\"score\":0.6},{\"id\":1,\"score\":0.2}]}\n```",
	}, "")

	l, err := NewLLM(mock, "mock-1")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	res, err := l.Classify(context.Background(), "draw a cat", labels)
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if err := Validate(res, labels); err != nil {
		t.Fatalf("invalid result: %v", err)
	}
	if math.Abs(res.Scores[1]-0.75) > 1e-9 || math.Abs(res.Scores[0]-0.25) > 1e-9 {
		t.Fatalf("expected normalized scores, got %+v", res.Scores)
	}
	if err := l.Warm(context.Background()); err != nil {
		t.Fatalf("warm: %v", err)
	}
}

func TestLLMClassifyRejectsUnknownCandidate(t *testing.T) {
	labels := []string{"a"}
	mock := adapter.NewMockAdapterWithResponses(map[string]string{
		buildScoringPrompt("q", labels): `{"scores":[{"id":7,"score":1}]}`,
	}, "")
	l, _ := NewLLM(mock, "mock-1")
	if _, err := l.Classify(context.Background(), "q", labels); err == nil {
		t.Fatalf("expected error for unknown candidate")
	}
}

func TestLLMClassifyRejectsOutOfRangeScore(t *testing.T) {
	labels := []string{"a", "b"}
	for _, raw := range []string{
		`{"scores":[{"id":1,"score":1e308},{"id":2,"score":1e308}]}`,
		`{"scores":[{"id":1,"score":1.5},{"id":2,"score":0}]}`,
	} {
		mock := adapter.NewMockAdapterWithResponses(map[string]string{
			buildScoringPrompt("q", labels): raw,
		}, "")
		l, _ := NewLLM(mock, "mock-1")
		if res, err := l.Classify(context.Background(), "q", labels); err == nil {
			t.Fatalf("expected error for %s, got %+v", raw, res)
		}
	}
}

func TestLLMWarmUnknownModel(t *testing.T) {
	l, _ := NewLLM(adapter.NewMockAdapter(), "gpt-unknown")
	if err := l.Warm(context.Background()); err == nil {
		t.Fatalf("expected warm to fail for unserved model")
	}
}

func TestStaticClassify(t *testing.T) {
	labels := []string{"search the web", "generate images", "interpret or execute code"}
	res, err := NewStatic().Classify(context.Background(), "please generate some images of cats", labels)
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if err := Validate(res, labels); err != nil {
		t.Fatalf("invalid: %v", err)
	}
	if res.Scores[1] <= res.Scores[0] || res.Scores[1] <= res.Scores[2] {
		t.Fatalf("expected images label to win, got %+v", res.Scores)
	}

	res, _ = NewStatic().Classify(context.Background(), "zzz", labels)
	for _, s := range res.Scores {
		if math.Abs(s-1.0/3) > 1e-9 {
			t.Fatalf("expected uniform scores, got %+v", res.Scores)
		}
	}
}

func TestCacheWrap(t *testing.T) {
	var calls int32
	inner := Func(func(_ context.Context, _ string, labels []string) (*Result, error) {
		atomic.AddInt32(&calls, 1)
		return &Result{Labels: labels, Scores: make([]float64, len(labels))}, nil
	})

	cache, err := NewCache(time.Minute, 0, nil)
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}
	defer cache.Close()

	c := cache.Wrap(inner)
	for i := 0; i < 3; i++ {
		if _, err := c.Classify(context.Background(), "q", []string{"a", "b"}); err != nil {
			t.Fatalf("classify: %v", err)
		}
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("expected 1 backend call, got %d", got)
	}
	if _, err := c.Classify(context.Background(), "q", []string{"a"}); err != nil {
		t.Fatalf("classify: %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Fatalf("expected different labels to miss the cache, got %d calls", got)
	}
	if cache.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", cache.Len())
	}
}

func TestCacheSkipsErrorsAndMalformed(t *testing.T) {
	var calls int32
	inner := Func(func(_ context.Context, _ string, _ []string) (*Result, error) {
		n := atomic.AddInt32(&calls, 1)
		if n == 1 {
			return nil, errors.New("down")
		}
		return &Result{Labels: []string{"foreign"}, Scores: []float64{1}}, nil
	})
	cache, _ := NewCache(time.Minute, 0, nil)
	defer cache.Close()
	c := cache.Wrap(inner)

	if _, err := c.Classify(context.Background(), "q", []string{"a"}); err == nil {
		t.Fatalf("expected error")
	}
	_, _ = c.Classify(context.Background(), "q", []string{"a"})
	_, _ = c.Classify(context.Background(), "q", []string{"a"})
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Fatalf("expected nothing cached, got %d calls", got)
	}
}

func TestCacheSkipsEmptyResult(t *testing.T) {
	var calls int32
	inner := Func(func(_ context.Context, _ string, _ []string) (*Result, error) {
		atomic.AddInt32(&calls, 1)
		return &Result{}, nil
	})
	cache, _ := NewCache(time.Minute, 0, nil)
	defer cache.Close()
	c := cache.Wrap(inner)

	labels := []string{"a", "b"}
	for i := 0; i < 2; i++ {
		res, err := c.Classify(context.Background(), "q", labels)
		if err != nil {
			t.Fatalf("classify: %v", err)
		}
		if Validate(res, labels) == nil {
			t.Fatalf("expected empty result to fail validation")
		}
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Fatalf("expected empty result not cached, got %d calls", got)
	}
}

func TestNilCacheWrapIsIdentity(t *testing.T) {
	var c *Cache
	s := NewStatic()
	if c.Wrap(s) != Classifier(s) {
		t.Fatalf("expected nil cache to return classifier unchanged")
	}
}

func TestFactoryOpen(t *testing.T) {
	f := NewFactory(FactoryOptions{
		Adapters: map[string]adapter.Adapter{"mock": adapter.NewMockAdapter()},
		Warmup:   true,
	})

	c, err := f.Open(context.Background(), KindStatic, "")
	if err != nil || c.Name() != KindStatic {
		t.Fatalf("open static: %v %v", c, err)
	}

	c, err = f.Open(context.Background(), KindLLM, "mock/mock-1")
	if err != nil {
		t.Fatalf("open llm: %v", err)
	}
	if c.Name() != "llm-zero-shot:mock/mock-1" {
		t.Fatalf("unexpected name %s", c.Name())
	}

	for _, tc := range []struct{ kind, model string }{
		{"nope", "m"},
		{KindLLM, "mock"},
		{KindLLM, "missing/model"},
		{KindLLM, "mock/unknown-model"},
		{KindZeroShot, ""},
	} {
		if _, err := f.Open(context.Background(), tc.kind, tc.model); err == nil {
			t.Errorf("expected error opening %s %q", tc.kind, tc.model)
		}
	}
}

func TestFactoryWarmupUnreachableModel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"Model not found"}`))
	}))
	defer srv.Close()

	f := NewFactory(FactoryOptions{HuggingFaceURL: srv.URL, HTTPClient: srv.Client(), Warmup: true})
	if _, err := f.Open(context.Background(), KindZeroShot, "no/such-model"); err == nil {
		t.Fatalf("expected warmup to fail")
	}

	f = NewFactory(FactoryOptions{HuggingFaceURL: srv.URL, HTTPClient: srv.Client()})
	if _, err := f.Open(context.Background(), KindZeroShot, "no/such-model"); err != nil {
		t.Fatalf("expected lazy open without warmup: %v", err)
	}
}
