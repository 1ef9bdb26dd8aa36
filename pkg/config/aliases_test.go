package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolve(t *testing.T) {
	aliases := &ModelAliases{
		Aliases: map[string]string{
			"bart":   "facebook/bart-large-mnli",
			"claude": "anthropic/claude-sonnet-4-20250514",
		},
	}

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "resolve zero-shot alias",
			input:    "bart",
			expected: "facebook/bart-large-mnli",
		},
		{
			name:     "resolve llm alias",
			input:    "claude",
			expected: "anthropic/claude-sonnet-4-20250514",
		},
		{
			name:     "unknown alias returns input unchanged",
			input:    "org/other-model",
			expected: "org/other-model",
		},
		{
			name:     "canonical model returns unchanged",
			input:    "facebook/bart-large-mnli",
			expected: "facebook/bart-large-mnli",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := aliases.Resolve(tt.input)
			if result != tt.expected {
				t.Errorf("Resolve(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestResolve_NilAliases(t *testing.T) {
	var aliases *ModelAliases
	if result := aliases.Resolve("bart"); result != "bart" {
		t.Errorf("Resolve on nil should return input, got %q", result)
	}
	if aliases.IsAlias("bart") {
		t.Error("IsAlias on nil should be false")
	}
}

func TestIsAlias(t *testing.T) {
	aliases := &ModelAliases{
		Aliases: map[string]string{
			"bart": "facebook/bart-large-mnli",
		},
	}

	if !aliases.IsAlias("bart") {
		t.Error("IsAlias should return true for known alias")
	}
	if aliases.IsAlias("facebook/bart-large-mnli") {
		t.Error("IsAlias should return false for canonical model name")
	}
}

func TestLoadAliases(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "models.yaml")
	content := `aliases:
  nli: cross-encoder/nli-deberta-v3-base
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	aliases, err := LoadAliases(path)
	if err != nil {
		t.Fatalf("LoadAliases() error = %v", err)
	}
	if aliases.Resolve("nli") != "cross-encoder/nli-deberta-v3-base" {
		t.Error("alias 'nli' should resolve from file")
	}

	empty := filepath.Join(dir, "empty.yaml")
	if err := os.WriteFile(empty, []byte("{}\n"), 0644); err != nil {
		t.Fatal(err)
	}
	aliases, err = LoadAliases(empty)
	if err != nil {
		t.Fatalf("LoadAliases(empty) error = %v", err)
	}
	if aliases.Aliases == nil {
		t.Error("empty file should yield an initialized map")
	}
}

func TestLoadAliasesOrDefault(t *testing.T) {
	aliases, err := LoadAliasesOrDefault(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadAliasesOrDefault() error = %v", err)
	}
	if aliases.Resolve("bart") != "facebook/bart-large-mnli" {
		t.Error("missing file should fall back to default aliases")
	}
}

func TestListAliases(t *testing.T) {
	aliases := DefaultAliases()
	list := aliases.ListAliases()
	if len(list) != len(aliases.Aliases) {
		t.Errorf("expected %d aliases, got %d", len(aliases.Aliases), len(list))
	}

	list["new"] = "value"
	if aliases.Aliases["new"] == "value" {
		t.Error("ListAliases should return a copy, not the original")
	}
}
