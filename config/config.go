// ABOUTME: YAML configuration for the server, LLM provider, workflow budgets, and store.
// ABOUTME: Environment variables override file values so secrets stay out of config files.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration decodes YAML strings like "30s" or "2m" via time.ParseDuration.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the full application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	LLM      LLMConfig      `yaml:"llm"`
	Workflow WorkflowConfig `yaml:"workflow"`
	Store    StoreConfig    `yaml:"store"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// LLMConfig configures the completion provider.
type LLMConfig struct {
	APIKey  string `yaml:"apiKey"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"baseUrl"`

	MaxRetries int      `yaml:"maxRetries"`
	Timeout    Duration `yaml:"timeout"`
}

// WorkflowConfig carries the engine budgets.
type WorkflowConfig struct {
	MaxRetries       int     `yaml:"maxRetries"`
	VerifyThreshold  float64 `yaml:"verifyThreshold"`
	VerifyMaxRetries int     `yaml:"verifyMaxRetries"`

	StepTimeout Duration `yaml:"stepTimeout"`
}

// StoreConfig configures run persistence.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// Default returns the configuration used when no file is supplied.
func Default() Config {
	return Config{
		Server: ServerConfig{Addr: ":8787"},
		LLM: LLMConfig{
			Model:      "gpt-4o",
			MaxRetries: 2,
			Timeout:    Duration(2 * time.Minute),
		},
		Workflow: WorkflowConfig{
			MaxRetries:       3,
			VerifyThreshold:  0.8,
			VerifyMaxRetries: 1,
			StepTimeout:      Duration(2 * time.Minute),
		},
		Store: StoreConfig{Path: "canvasflow.db"},
	}
}

// Load reads a YAML config file over the defaults, then applies environment
// overrides. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

// applyEnv overrides file values from the environment.
func applyEnv(cfg *Config) {
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("CANVASFLOW_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("CANVASFLOW_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("CANVASFLOW_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("CANVASFLOW_DB"); v != "" {
		cfg.Store.Path = v
	}
}

// Validate reports configuration errors that would only surface at run time.
func (c Config) Validate() error {
	if c.LLM.APIKey == "" {
		return fmt.Errorf("llm.apiKey is required (or set OPENAI_API_KEY)")
	}
	if c.Workflow.VerifyThreshold <= 0 || c.Workflow.VerifyThreshold > 1 {
		return fmt.Errorf("workflow.verifyThreshold must be in (0, 1], got %v", c.Workflow.VerifyThreshold)
	}
	return nil
}
