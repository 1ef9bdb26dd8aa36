package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	home := t.TempDir()
	setHomeEnv(t, home)
	clearEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ConfigDir != filepath.Join(home, ".routerd") {
		t.Fatalf("unexpected config dir %s", cfg.ConfigDir)
	}
	if cfg.Server.Addr != ":8080" || cfg.Classifier.Timeout != 30*time.Second {
		t.Fatalf("expected defaults, got %+v %+v", cfg.Server, cfg.Classifier)
	}
	if !cfg.Classifier.Warmup {
		t.Fatalf("expected warmup on by default")
	}
	if cfg.RoutersFile != filepath.Join(cfg.ConfigDir, "routers.yaml") {
		t.Fatalf("expected routers file in config dir, got %s", cfg.RoutersFile)
	}
}

func TestLoadFileValues(t *testing.T) {
	home := t.TempDir()
	setHomeEnv(t, home)
	clearEnv(t)

	configDir := filepath.Join(home, ".routerd")
	if err := os.MkdirAll(configDir, 0700); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	data := []byte(`api_keys:
  anthropic: file-ant
  huggingface: file-hf
server:
  addr: ":9000"
  rate_limit: 2.5
  burst: 5
logging:
  level: debug
  format: json
classifier:
  timeout: 5s
  warmup: true
  cache_ttl: 1m
files:
  routers: /etc/routerd/routers.yaml
  catalogs: custom.yaml
`)
	if err := os.WriteFile(filepath.Join(configDir, "config.yaml"), data, 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.AnthropicAPIKey != "file-ant" || cfg.HuggingFaceToken != "file-hf" {
		t.Fatalf("expected file API keys, got %q %q", cfg.AnthropicAPIKey, cfg.HuggingFaceToken)
	}
	if cfg.Server.Addr != ":9000" || cfg.Server.RateLimit != 2.5 || cfg.Server.Burst != 5 {
		t.Fatalf("unexpected server config %+v", cfg.Server)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.MaxBackups != 3 {
		t.Fatalf("expected file values merged over defaults, got %+v", cfg.Logging)
	}
	if cfg.Classifier.Timeout != 5*time.Second || !cfg.Classifier.Warmup || cfg.Classifier.CacheTTL != time.Minute {
		t.Fatalf("unexpected classifier config %+v", cfg.Classifier)
	}
	if cfg.RoutersFile != "/etc/routerd/routers.yaml" {
		t.Fatalf("absolute path should be kept, got %s", cfg.RoutersFile)
	}
	if cfg.CatalogsFile != filepath.Join(configDir, "custom.yaml") {
		t.Fatalf("relative path should resolve against config dir, got %s", cfg.CatalogsFile)
	}
}

func TestConfigUsesEnvOverrides(t *testing.T) {
	home := t.TempDir()
	setHomeEnv(t, home)

	t.Setenv("ANTHROPIC_API_KEY", "env-ant")
	t.Setenv("OPENAI_API_KEY", "env-openai")
	t.Setenv("GOOGLE_API_KEY", "env-google")
	t.Setenv("DEEPSEEK_API_KEY", "env-deepseek")
	t.Setenv("HF_API_TOKEN", "env-hf")
	t.Setenv("ROUTERD_ADDR", "127.0.0.1:7000")
	t.Setenv("ROUTERD_LOG_LEVEL", "warn")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.AnthropicAPIKey != "env-ant" || cfg.OpenAIAPIKey != "env-openai" || cfg.GoogleAPIKey != "env-google" || cfg.DeepSeekAPIKey != "env-deepseek" {
		t.Fatalf("expected env API keys to be used")
	}
	if cfg.HuggingFaceToken != "env-hf" || cfg.Server.Addr != "127.0.0.1:7000" || cfg.Logging.Level != "warn" {
		t.Fatalf("expected env overrides, got %+v", cfg)
	}
	if !cfg.HasAdapter("deepseek") || cfg.HasAdapter("mistral") {
		t.Fatalf("unexpected HasAdapter result")
	}
}

func TestLoadExplicitPath(t *testing.T) {
	setHomeEnv(t, t.TempDir())
	clearEnv(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "routerd.yaml")
	if err := os.WriteFile(path, []byte("server:\n  addr: \":1234\"\n"), 0600); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Addr != ":1234" || cfg.ModelsFile != filepath.Join(dir, "models.yaml") {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func TestLoadRejectsInvalidFile(t *testing.T) {
	setHomeEnv(t, t.TempDir())
	clearEnv(t)

	dir := t.TempDir()
	cases := map[string]string{
		"malformed.yaml": "server: [",
		"format.yaml":    "logging:\n  format: xml\n",
		"burst.yaml":     "server:\n  rate_limit: 1\n  burst: 0\n",
	}
	for name, body := range cases {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(body), 0600); err != nil {
			t.Fatalf("write: %v", err)
		}
		if _, err := Load(path); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"ANTHROPIC_API_KEY", "OPENAI_API_KEY", "GOOGLE_API_KEY", "DEEPSEEK_API_KEY",
		"HF_API_TOKEN", "ROUTERD_ADDR", "ROUTERD_LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
}

func setHomeEnv(t *testing.T, home string) {
	t.Helper()
	t.Setenv("HOME", home)
	if runtime.GOOS == "windows" {
		t.Setenv("USERPROFILE", home)
	}
}
