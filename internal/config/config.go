// Package config loads service configuration from a YAML file on disk,
// with a small set of environment-variable overrides.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// GeneralConfig holds process-wide settings.
type GeneralConfig struct {
	DBURL    string `yaml:"db_url"`
	LogLevel string `yaml:"log_level"`
}

// ContextConfig controls the hot retrieval/formatting path.
type ContextConfig struct {
	MaxContextTokens int           `yaml:"max_context_tokens"`
	RetrieveTimeout  time.Duration `yaml:"retrieve_timeout"`
	HookTimeout      time.Duration `yaml:"hook_timeout"`
}

// SkillsConfig controls the skill engine.
type SkillsConfig struct {
	AutoGenerate       bool     `yaml:"auto_generate"`
	MinQualityScore    float64  `yaml:"min_quality_score"`
	InstalledPath       string   `yaml:"installed_path"`
	ConfirmationTokens []string `yaml:"confirmation_tokens"`
	ModelName           string   `yaml:"model_name"`
}

// WorkerConfig controls the cold-path claim/dispatch loop.
type WorkerConfig struct {
	Parallelism     int           `yaml:"parallelism"`
	LeaseSeconds    int           `yaml:"lease_seconds"`
	MaxAttempts     int           `yaml:"max_attempts"`
	SoftQueueCap    int           `yaml:"soft_queue_cap"`
	PollBackoffMax  time.Duration `yaml:"poll_backoff_max"`
}

// MCPConfig controls the optional read-mostly MCP tool surface.
type MCPConfig struct {
	DisabledTools []string `yaml:"disabled_tools"`
}

// Config is the fully-merged, ready-to-use configuration.
type Config struct {
	General GeneralConfig `yaml:"general"`
	Context ContextConfig `yaml:"context"`
	Skills  SkillsConfig  `yaml:"skills"`
	Worker  WorkerConfig  `yaml:"worker"`
	MCP     MCPConfig     `yaml:"mcp"`

	// AnthropicAPIKey is never read from the YAML file — it is only ever
	// set via the FOCUS_ANTHROPIC_API_KEY environment override, per the
	// configuration table's explicit env-override list.
	AnthropicAPIKey string `yaml:"-"`
}

// envOverrides is the narrow set of values that may come from the
// environment instead of the config file.
type envOverrides struct {
	DBURL           string `envconfig:"FOCUS_DB_URL"`
	AnthropicAPIKey string `envconfig:"FOCUS_ANTHROPIC_API_KEY"`
}

// Default returns the built-in defaults, applied before the file and
// environment are layered on top.
func Default() *Config {
	return &Config{
		General: GeneralConfig{LogLevel: "info"},
		Context: ContextConfig{
			MaxContextTokens: 1500,
			RetrieveTimeout:  1500 * time.Millisecond,
			HookTimeout:      2 * time.Second,
		},
		Skills: SkillsConfig{
			AutoGenerate:       true,
			MinQualityScore:    0.6,
			InstalledPath:      "~/.focusd/skills",
			ConfirmationTokens: []string{"thanks", "thank you", "works", "perfect", "great", "lgtm"},
			ModelName:          "claude-3-5-haiku-20241022",
		},
		Worker: WorkerConfig{
			Parallelism:    2,
			LeaseSeconds:   60,
			MaxAttempts:    10,
			SoftQueueCap:   500,
			PollBackoffMax: 5 * time.Second,
		},
	}
}

// Load reads path as YAML, merges it over Default, then applies the
// FOCUS_DB_URL / FOCUS_ANTHROPIC_API_KEY environment overrides. A missing
// file is not an error — Default alone (plus env) is used — but
// general.db_url has no default, so Load fails unless the file or
// FOCUS_DB_URL sets it.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	var env envOverrides
	if err := envconfig.Process("", &env); err != nil {
		return nil, fmt.Errorf("reading environment overrides: %w", err)
	}
	if env.DBURL != "" {
		cfg.General.DBURL = env.DBURL
	}
	if env.AnthropicAPIKey != "" {
		cfg.AnthropicAPIKey = env.AnthropicAPIKey
	}

	if cfg.General.DBURL == "" {
		return nil, fmt.Errorf("general.db_url is required (config file or FOCUS_DB_URL)")
	}
	return cfg, nil
}
