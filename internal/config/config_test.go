package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("missing file must not error: %v", err)
	}
	if cfg.Explore.RecursionLimit != 200 {
		t.Errorf("recursion limit default = %d", cfg.Explore.RecursionLimit)
	}
	if cfg.Explore.DuplicateLimit != 5 {
		t.Errorf("duplicate limit default = %d", cfg.Explore.DuplicateLimit)
	}
	if cfg.LLM.Provider != "anthropic" || cfg.LLM.Temperature != 0.1 {
		t.Errorf("llm defaults = %+v", cfg.LLM)
	}
	if !cfg.Browser.IsHeadless() {
		t.Error("headless must default to true")
	}
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cartograph.yaml")
	yaml := `
start_url: https://demo.example.com
llm:
  provider: gemini
  model: gemini-2.5-flash
  api_key: key-from-file
browser:
  headless: false
explore:
  recursion_limit: 50
auth:
  username: admin
  password: hunter2
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.StartURL != "https://demo.example.com" {
		t.Errorf("start_url = %q", cfg.StartURL)
	}
	if cfg.LLM.Provider != "gemini" || cfg.LLM.APIKey != "key-from-file" {
		t.Errorf("llm = %+v", cfg.LLM)
	}
	if cfg.Browser.IsHeadless() {
		t.Error("headless override ignored")
	}
	if cfg.Explore.RecursionLimit != 50 {
		t.Errorf("recursion_limit = %d", cfg.Explore.RecursionLimit)
	}
	if !cfg.Auth.HasCredentials() {
		t.Error("credentials not loaded")
	}
}

func TestEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cartograph.yaml")
	yaml := `
start_url: https://demo.example.com
llm:
  provider: gemini
  api_key: key-from-file
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("GEMINI_API_KEY", "key-from-env")
	t.Setenv("OPENAI_API_KEY", "wrong-provider-key")
	t.Setenv("CARTOGRAPH_PASSWORD", "env-pass")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LLM.APIKey != "key-from-env" {
		t.Errorf("env key not applied: %q", cfg.LLM.APIKey)
	}
	if cfg.Auth.Password != "env-pass" {
		t.Errorf("auth env not applied: %q", cfg.Auth.Password)
	}
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err == nil {
		t.Error("empty start_url must fail validation")
	}
	cfg.StartURL = "https://demo.example.com"
	if err := cfg.Validate(); err == nil {
		t.Error("missing api key must fail validation")
	}
	cfg.LLM.APIKey = "k"
	if err := cfg.Validate(); err != nil {
		t.Errorf("complete config rejected: %v", err)
	}
}

func TestLLMTimeoutParsing(t *testing.T) {
	c := LLMConfig{Timeout: "90s"}
	if c.ParsedTimeout().Seconds() != 90 {
		t.Errorf("timeout = %v", c.ParsedTimeout())
	}
	if (LLMConfig{Timeout: "soon"}).ParsedTimeout() != 0 {
		t.Error("invalid duration must yield zero")
	}
	if (LLMConfig{}).ParsedTimeout() != 0 {
		t.Error("empty duration must yield zero")
	}
}
