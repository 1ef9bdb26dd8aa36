package registry

import (
	"fmt"
	"os"
	"strings"

	"github.com/zen-systems/routerd/pkg/router"
	"gopkg.in/yaml.v3"
)

// LoadSeedFile reads router configurations from a routers.yaml file. Settings a seed
// leaves out take DefaultSettings values.
func LoadSeedFile(path string) ([]RouterConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var raw struct {
		Routers []struct {
			ID       string    `yaml:"id"`
			Name     string    `yaml:"name"`
			Kind     string    `yaml:"kind"`
			Settings yaml.Node `yaml:"settings"`
		} `yaml:"routers"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	configs := make([]RouterConfig, 0, len(raw.Routers))
	for i, entry := range raw.Routers {
		settings := DefaultSettings()
		if entry.Settings.Kind != 0 {
			if err := entry.Settings.Decode(&settings); err != nil {
				return nil, fmt.Errorf("router %d settings: %w", i, err)
			}
		}
		if violations, err := ValidateSettingsDocument(settings); err != nil {
			return nil, err
		} else if len(violations) > 0 {
			return nil, fmt.Errorf("router %q settings: %s", entry.ID, strings.Join(violations, "; "))
		}
		configs = append(configs, RouterConfig{
			ID:       entry.ID,
			Name:     entry.Name,
			Kind:     router.Kind(entry.Kind),
			Settings: settings,
		})
	}
	return configs, nil
}

// LoadSeedOrDefault loads path when it exists and returns DefaultConfigs otherwise.
func LoadSeedOrDefault(path string) ([]RouterConfig, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return LoadSeedFile(path)
		}
	}
	return DefaultConfigs(), nil
}
