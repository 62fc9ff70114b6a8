// Package config loads the exploration configuration from YAML with
// environment variable overrides for secrets.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all cartograph configuration.
type Config struct {
	// StartURL is where exploration begins.
	StartURL string `yaml:"start_url"`

	LLM       LLMConfig       `yaml:"llm"`
	Browser   BrowserConfig   `yaml:"browser"`
	Graph     GraphConfig     `yaml:"graph"`
	Auth      AuthConfig      `yaml:"auth"`
	Explore   ExploreConfig   `yaml:"explore"`
	Logging   LoggingConfig   `yaml:"logging"`
	Workspace WorkspaceConfig `yaml:"workspace"`
}

// LLMConfig selects the decision model.
type LLMConfig struct {
	Provider    string  `yaml:"provider"` // anthropic, openai, gemini
	Model       string  `yaml:"model"`
	APIKey      string  `yaml:"api_key"`
	Temperature float32 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
	Timeout     string  `yaml:"timeout"`
}

// ParsedTimeout returns the request timeout, zero when unset or invalid.
func (c LLMConfig) ParsedTimeout() time.Duration {
	if c.Timeout == "" {
		return 0
	}
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 0
	}
	return d
}

// BrowserConfig tunes the Chrome driver.
type BrowserConfig struct {
	Headless            *bool `yaml:"headless"`
	NavigationTimeoutMs int   `yaml:"navigation_timeout_ms"`
	StabilizeTimeoutMs  int   `yaml:"stabilize_timeout_ms"`
}

// IsHeadless defaults to true.
func (c BrowserConfig) IsHeadless() bool {
	return c.Headless == nil || *c.Headless
}

// GraphConfig locates the graph store.
type GraphConfig struct {
	Path string `yaml:"path"`
}

// AuthConfig holds optional credentials offered on detected login forms.
type AuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// HasCredentials reports whether both halves are present.
func (c AuthConfig) HasCredentials() bool {
	return c.Username != "" && c.Password != ""
}

// ExploreConfig tunes the loop.
type ExploreConfig struct {
	RecursionLimit    int      `yaml:"recursion_limit"`
	DuplicateLimit    int      `yaml:"duplicate_limit"`
	IntraBatchDelayMs int      `yaml:"intra_batch_delay_ms"`
	IgnoreSelectors   []string `yaml:"ignore_selectors"`
}

// LoggingConfig tunes the category logger.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// WorkspaceConfig locates run artifacts.
type WorkspaceConfig struct {
	// Dir is the root under which .cartograph/ is created. Defaults to the
	// working directory.
	Dir string `yaml:"dir"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:    "anthropic",
			Temperature: 0.1,
		},
		Graph: GraphConfig{
			Path: ".cartograph/graph.db",
		},
		Explore: ExploreConfig{
			RecursionLimit: 200,
			DuplicateLimit: 5,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Workspace: WorkspaceConfig{
			Dir: ".",
		},
	}
}

// Load reads a YAML config file, falling back to defaults when the file does
// not exist, then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// applyEnvOverrides lets secrets live outside the config file. A provider
// key is applied only when it matches the selected provider, so having
// several keys exported is harmless.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" && c.LLM.Provider == "anthropic" {
		c.LLM.APIKey = key
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" && c.LLM.Provider == "openai" {
		c.LLM.APIKey = key
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" && c.LLM.Provider == "gemini" {
		c.LLM.APIKey = key
	}
	if user := os.Getenv("CARTOGRAPH_USERNAME"); user != "" {
		c.Auth.Username = user
	}
	if pass := os.Getenv("CARTOGRAPH_PASSWORD"); pass != "" {
		c.Auth.Password = pass
	}
	if path := os.Getenv("CARTOGRAPH_GRAPH"); path != "" {
		c.Graph.Path = path
	}
}

// Validate checks the fields a run cannot start without.
func (c *Config) Validate() error {
	if c.StartURL == "" {
		return fmt.Errorf("start_url is required")
	}
	if c.LLM.Provider == "" {
		return fmt.Errorf("llm.provider is required")
	}
	if c.LLM.APIKey == "" {
		return fmt.Errorf("llm.api_key is required (or set the provider's env var)")
	}
	return nil
}
