package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration.
type Config struct {
	AnthropicAPIKey  string
	OpenAIAPIKey     string
	GoogleAPIKey     string
	DeepSeekAPIKey   string
	HuggingFaceToken string

	Server     ServerConfig
	Logging    LoggingConfig
	Classifier ClassifierConfig

	// RoutersFile, CatalogsFile and ModelsFile are absolute paths. They need
	// not exist; callers fall back to built-in defaults.
	RoutersFile  string
	CatalogsFile string
	ModelsFile   string

	ConfigDir string
}

// ServerConfig configures the admin HTTP server.
type ServerConfig struct {
	Addr string `yaml:"addr"`
	// RateLimit is the sustained route requests per second allowed per
	// client. Zero disables limiting.
	RateLimit float64 `yaml:"rate_limit"`
	Burst     int     `yaml:"burst"`
}

// LoggingConfig configures pkg/logging.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// ClassifierConfig configures classifier backends.
type ClassifierConfig struct {
	HuggingFaceURL string        `yaml:"huggingface_url"`
	Timeout        time.Duration `yaml:"timeout"`
	// Warmup makes initialization call each classifier once so unreachable
	// models fail the build instead of the first query.
	Warmup         bool          `yaml:"warmup"`
	CacheTTL       time.Duration `yaml:"cache_ttl"`
	CacheSizeMB    int           `yaml:"cache_size_mb"`
}

// FileConfig represents the structure of ~/.routerd/config.yaml
type FileConfig struct {
	APIKeys    APIKeysConfig    `yaml:"api_keys"`
	Server     ServerConfig     `yaml:"server"`
	Logging    LoggingConfig    `yaml:"logging"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Files      FilesConfig      `yaml:"files"`
}

// APIKeysConfig holds API key configuration from file.
type APIKeysConfig struct {
	Anthropic   string `yaml:"anthropic"`
	OpenAI      string `yaml:"openai"`
	Google      string `yaml:"google"`
	DeepSeek    string `yaml:"deepseek"`
	HuggingFace string `yaml:"huggingface"`
}

// FilesConfig names the data files. Relative paths are resolved against the
// config directory.
type FilesConfig struct {
	Routers  string `yaml:"routers"`
	Catalogs string `yaml:"catalogs"`
	Models   string `yaml:"models"`
}

// Default returns the configuration used when no file is present.
func Default() FileConfig {
	return FileConfig{
		Server: ServerConfig{
			Addr:      ":8080",
			RateLimit: 10,
			Burst:     20,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Classifier: ClassifierConfig{
			Timeout:     30 * time.Second,
			Warmup:      true,
			CacheTTL:    10 * time.Minute,
			CacheSizeMB: 64,
		},
		Files: FilesConfig{
			Routers:  "routers.yaml",
			Catalogs: "catalogs.yaml",
			Models:   "models.yaml",
		},
	}
}

// Load reads ~/.routerd/config.yaml, or path when it is non-empty, and
// applies environment overrides. Environment variables take precedence over
// file configuration. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	configDir, err := getConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}
	if path == "" {
		path = filepath.Join(configDir, "config.yaml")
	} else {
		configDir = filepath.Dir(path)
	}

	fileConfig, err := loadFileConfig(path)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		AnthropicAPIKey:  getEnvOrDefault("ANTHROPIC_API_KEY", fileConfig.APIKeys.Anthropic),
		OpenAIAPIKey:     getEnvOrDefault("OPENAI_API_KEY", fileConfig.APIKeys.OpenAI),
		GoogleAPIKey:     getEnvOrDefault("GOOGLE_API_KEY", fileConfig.APIKeys.Google),
		DeepSeekAPIKey:   getEnvOrDefault("DEEPSEEK_API_KEY", fileConfig.APIKeys.DeepSeek),
		HuggingFaceToken: getEnvOrDefault("HF_API_TOKEN", fileConfig.APIKeys.HuggingFace),
		Server:           fileConfig.Server,
		Logging:          fileConfig.Logging,
		Classifier:       fileConfig.Classifier,
		RoutersFile:      resolvePath(configDir, fileConfig.Files.Routers),
		CatalogsFile:     resolvePath(configDir, fileConfig.Files.Catalogs),
		ModelsFile:       resolvePath(configDir, fileConfig.Files.Models),
		ConfigDir:        configDir,
	}
	cfg.Server.Addr = getEnvOrDefault("ROUTERD_ADDR", cfg.Server.Addr)
	cfg.Logging.Level = getEnvOrDefault("ROUTERD_LOG_LEVEL", cfg.Logging.Level)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values a file could set out of range.
func (c *Config) Validate() error {
	if c.Server.RateLimit < 0 {
		return fmt.Errorf("server.rate_limit must not be negative")
	}
	if c.Server.RateLimit > 0 && c.Server.Burst < 1 {
		return fmt.Errorf("server.burst must be at least 1 when rate limiting")
	}
	if c.Classifier.Timeout < 0 || c.Classifier.CacheTTL < 0 {
		return fmt.Errorf("classifier durations must not be negative")
	}
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	return nil
}

// HasAdapter returns true if the API key for the given adapter is configured.
func (c *Config) HasAdapter(name string) bool {
	switch name {
	case "anthropic":
		return c.AnthropicAPIKey != ""
	case "openai":
		return c.OpenAIAPIKey != ""
	case "google":
		return c.GoogleAPIKey != ""
	case "deepseek":
		return c.DeepSeekAPIKey != ""
	default:
		return false
	}
}

// loadFileConfig reads the config file over Default. A missing file is not
// an error; a malformed one is.
func loadFileConfig(path string) (FileConfig, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// getEnvOrDefault returns the environment variable value if set,
// otherwise returns the default value.
func getEnvOrDefault(envVar, defaultValue string) string {
	if val := os.Getenv(envVar); val != "" {
		return val
	}
	return defaultValue
}

func resolvePath(dir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}

func getConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	configDir := filepath.Join(home, ".routerd")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return "", err
	}
	return configDir, nil
}
