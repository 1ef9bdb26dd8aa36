package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// ModelAliases maps short names to classifier model identifiers, so router
// settings can say "bart" instead of "facebook/bart-large-mnli".
type ModelAliases struct {
	Aliases map[string]string `yaml:"aliases"`
}

// LoadAliases reads model aliases from a YAML file.
func LoadAliases(path string) (*ModelAliases, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var aliases ModelAliases
	if err := yaml.Unmarshal(data, &aliases); err != nil {
		return nil, err
	}
	if aliases.Aliases == nil {
		aliases.Aliases = make(map[string]string)
	}
	return &aliases, nil
}

// LoadAliasesOrDefault loads path when it exists and returns DefaultAliases
// otherwise.
func LoadAliasesOrDefault(path string) (*ModelAliases, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return LoadAliases(path)
		}
	}
	return DefaultAliases(), nil
}

// Resolve returns the canonical model name for an alias.
// If the input is not an alias, it returns the input unchanged.
func (a *ModelAliases) Resolve(modelOrAlias string) string {
	if a == nil || a.Aliases == nil {
		return modelOrAlias
	}
	if canonical, ok := a.Aliases[modelOrAlias]; ok {
		return canonical
	}
	return modelOrAlias
}

// IsAlias returns true if the given string is a known alias.
func (a *ModelAliases) IsAlias(name string) bool {
	if a == nil || a.Aliases == nil {
		return false
	}
	_, ok := a.Aliases[name]
	return ok
}

// ListAliases returns a copy of the aliases map.
func (a *ModelAliases) ListAliases() map[string]string {
	if a == nil || a.Aliases == nil {
		return make(map[string]string)
	}
	result := make(map[string]string, len(a.Aliases))
	for k, v := range a.Aliases {
		result[k] = v
	}
	return result
}

// DefaultAliases returns the built-in classifier model aliases.
func DefaultAliases() *ModelAliases {
	return &ModelAliases{
		Aliases: map[string]string{
			// Hugging Face zero-shot models
			"bart":         "facebook/bart-large-mnli",
			"deberta":      "MoritzLaurer/deberta-v3-large-zeroshot-v2.0",
			"distilbart":   "valhalla/distilbart-mnli-12-3",
			"multilingual": "joeddav/xlm-roberta-large-xnli",
			// LLM zero-shot, adapter/model
			"claude":   "anthropic/claude-sonnet-4-20250514",
			"gpt":      "openai/gpt-4o-mini",
			"gemini":   "google/gemini-2.0-flash",
			"deepseek": "deepseek/deepseek-chat",
		},
	}
}
