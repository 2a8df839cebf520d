package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type ProviderConfig struct {
	APIKey   string `yaml:"api_key"`
	Endpoint string `yaml:"endpoint,omitempty"`
}

// Config is the immutable configuration of one engine invocation. Loaded
// once, never mutated during a run.
type Config struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`

	Providers map[string]ProviderConfig `yaml:"providers"`

	TimeoutSeconds int `yaml:"timeout_seconds"`
	RetryCount     int `yaml:"retry_count"`

	PerTierFindings    int `yaml:"per_tier_findings"`
	MessageChars       int `yaml:"message_chars"`
	EvidenceBytes      int `yaml:"evidence_bytes"`
	HighBlockThreshold int `yaml:"high_block_threshold"`

	// SeverityMap overrides the built-in classification table, keyed
	// "tool.native", e.g. "semgrep.error": "critical".
	SeverityMap map[string]string `yaml:"severity_map,omitempty"`

	OutputDir string `yaml:"output_dir,omitempty"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Provider:       "openai",
		Model:          "gpt-4o-mini",
		Providers:      make(map[string]ProviderConfig),
		TimeoutSeconds: 60,
		RetryCount:     1,
	}
}

func GetConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	configDir := filepath.Join(home, ".guardrail")
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.yaml"), nil
}

func LoadConfig() (*Config, error) {
	path, err := GetConfigPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if cfg.Providers == nil {
		cfg.Providers = make(map[string]ProviderConfig)
	}
	return cfg, nil
}

func SaveConfig(cfg *Config) error {
	path, err := GetConfigPath()
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	// 0600 permissions for security (api keys)
	return os.WriteFile(path, data, 0600)
}

func (c *Config) SetAPIKey(provider, key string) {
	p := c.Providers[provider]
	p.APIKey = key
	c.Providers[provider] = p
}

// APIKeyFor resolves a provider's key from the config file, falling back to
// the conventional environment variables used in CI.
func (c *Config) APIKeyFor(provider string) string {
	if key := c.Providers[provider].APIKey; key != "" {
		return key
	}
	switch provider {
	case "openai":
		return os.Getenv("OPENAI_API_KEY")
	case "gemini":
		return os.Getenv("GOOGLE_API_KEY")
	}
	return ""
}

// EndpointFor returns a custom endpoint for the provider, if configured.
func (c *Config) EndpointFor(provider string) string {
	return c.Providers[provider].Endpoint
}
