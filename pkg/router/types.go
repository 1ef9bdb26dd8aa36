package router

import (
	"fmt"
	"strings"
)

// Kind names a router variant. Variants differ only in defaults and in what
// their candidates represent.
type Kind string

const (
	KindTool      Kind = "tool"
	KindModel     Kind = "model"
	KindGuardrail Kind = "guardrail"
)

// Kinds lists every router kind in display order.
func Kinds() []Kind {
	return []Kind{KindModel, KindTool, KindGuardrail}
}

// Defaults holds the per-kind settings used when a config leaves them empty.
type Defaults struct {
	// Noun describes the candidates: "tools", "models" or "actions".
	Noun       string
	Classifier string
	Model      string
	N          int
	Threshold  float64
}

// DefaultModel is the zero-shot model every kind uses unless configured.
const DefaultModel = "facebook/bart-large-mnli"

var kindDefaults = map[Kind]Defaults{
	KindTool:      {Noun: "tools", Classifier: "zero-shot-classification", Model: DefaultModel, N: 3, Threshold: 0.08},
	KindModel:     {Noun: "models", Classifier: "zero-shot-classification", Model: DefaultModel, N: 1, Threshold: 0.1},
	KindGuardrail: {Noun: "actions", Classifier: "zero-shot-classification", Model: DefaultModel, N: 3, Threshold: 0.08},
}

// DefaultsFor returns the defaults of a kind.
func DefaultsFor(kind Kind) (Defaults, bool) {
	d, ok := kindDefaults[kind]
	return d, ok
}

// ParseKind validates a kind string.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := kindDefaults[k]; !ok {
		return "", &ConfigurationError{Field: "kind", Err: fmt.Errorf("unknown router kind %q", s)}
	}
	return k, nil
}

// KindFromName infers a kind from a display name such as "Tool Router".
// It returns "" when the name does not mention a kind.
func KindFromName(name string) Kind {
	lower := strings.ToLower(name)
	for _, k := range Kinds() {
		if strings.Contains(lower, string(k)) {
			return k
		}
	}
	return ""
}

// Decision captures a routing decision and how it was reached.
type Decision struct {
	RouterID   string   `json:"router_id"`
	Kind       Kind     `json:"kind"`
	Selected   string   `json:"selected,omitempty"`
	Confidence float64  `json:"confidence"`
	Matches    []Match  `json:"matches"`
	Classifier string   `json:"classifier"`
	Model      string   `json:"model"`
	LatencyMs  int64    `json:"latency_ms"`
	Reasons    []string `json:"reasons,omitempty"`
}
