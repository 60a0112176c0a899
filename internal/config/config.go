// Package config holds all AID-D engine configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all engine configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Engine behavior
	Engine EngineConfig `yaml:"engine"`

	// Data file locations (item registry, outcome tables)
	Data DataConfig `yaml:"data"`

	// LLM planner configuration
	LLM LLMConfig `yaml:"llm"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// EngineConfig configures the effect engine and turn pipeline.
type EngineConfig struct {
	// TransactionMode is the default apply mode: strict, partial, best_effort.
	TransactionMode string `yaml:"transaction_mode"`

	// MaxClarificationsPerTurn caps ask_clarifying per round before the
	// hesitation fallback fires.
	MaxClarificationsPerTurn int `yaml:"max_clarifications_per_turn"`

	// SeedOverride forces a fixed seed for every turn (replay/debug).
	// Zero means derive per turn.
	SeedOverride int64 `yaml:"seed_override"`
}

// DataConfig locates external data files.
type DataConfig struct {
	ItemsDir    string `yaml:"items_dir"`    // yaml item registry files
	OutcomesDir string `yaml:"outcomes_dir"` // social + consequence tables
	SaveDir     string `yaml:"save_dir"`     // save directories live under here
	HotReload   bool   `yaml:"hot_reload"`   // fsnotify watch on items/outcomes
}

// LLMConfig configures the external planner.
type LLMConfig struct {
	Provider string `yaml:"provider"` // gemini, none
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
	Timeout  string `yaml:"timeout"`
}

// LoggingConfig configures the logging backend.
type LoggingConfig struct {
	Level      string          `yaml:"level"`
	Categories map[string]bool `yaml:"categories"`
	JSONFormat bool            `yaml:"json_format"`
	OutputPath string          `yaml:"output_path"`
}

// Default returns a Config with sane defaults.
func Default() *Config {
	return &Config{
		Name:    "aidd",
		Version: "0.1.0",
		Engine: EngineConfig{
			TransactionMode:          "strict",
			MaxClarificationsPerTurn: 3,
		},
		Data: DataConfig{
			ItemsDir:    "data/items",
			OutcomesDir: "data/outcomes",
			SaveDir:     "saves",
			HotReload:   false,
		},
		LLM: LLMConfig{
			Provider: "none",
			Model:    "gemini-2.0-flash",
			Timeout:  "30s",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from a yaml file, applying defaults for any
// missing sections and environment overrides for secrets.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// No config file is fine; run on defaults.
			cfg.ApplyEnv()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	cfg.applyDefaults()
	cfg.ApplyEnv()
	return cfg, nil
}

// ApplyEnv overrides secrets and the provider from the environment.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("AIDD_LLM_API_KEY"); v != "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" && c.LLM.APIKey == "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv("AIDD_LLM_PROVIDER"); v != "" {
		c.LLM.Provider = v
	}
	if v := os.Getenv("AIDD_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

func (c *Config) applyDefaults() {
	d := Default()
	if c.Engine.TransactionMode == "" {
		c.Engine.TransactionMode = d.Engine.TransactionMode
	}
	if c.Engine.MaxClarificationsPerTurn == 0 {
		c.Engine.MaxClarificationsPerTurn = d.Engine.MaxClarificationsPerTurn
	}
	if c.Data.ItemsDir == "" {
		c.Data.ItemsDir = d.Data.ItemsDir
	}
	if c.Data.OutcomesDir == "" {
		c.Data.OutcomesDir = d.Data.OutcomesDir
	}
	if c.Data.SaveDir == "" {
		c.Data.SaveDir = d.Data.SaveDir
	}
	if c.LLM.Model == "" {
		c.LLM.Model = d.LLM.Model
	}
	if c.LLM.Timeout == "" {
		c.LLM.Timeout = d.LLM.Timeout
	}
	if c.Logging.Level == "" {
		c.Logging.Level = d.Logging.Level
	}
}

// LLMTimeout parses the configured timeout, defaulting to 30s.
func (c *Config) LLMTimeout() time.Duration {
	d, err := time.ParseDuration(c.LLM.Timeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// SavePath returns the directory for a named save.
func (c *Config) SavePath(name string) string {
	return filepath.Join(c.Data.SaveDir, name)
}

// Validate checks configuration coherence.
func (c *Config) Validate() error {
	switch c.Engine.TransactionMode {
	case "strict", "partial", "best_effort":
	default:
		return fmt.Errorf("invalid transaction_mode: %q", c.Engine.TransactionMode)
	}
	if c.Engine.MaxClarificationsPerTurn < 1 {
		return fmt.Errorf("max_clarifications_per_turn must be >= 1")
	}
	return nil
}
