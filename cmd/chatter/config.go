package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

// Config represents the chatter configuration file (~/.config/chatter/config.yaml).
// Pointer fields distinguish "not set" from zero values.
type Config struct {
	// Sampling defaults
	TopP             *float64 `yaml:"top_p"`
	Temperature      *float64 `yaml:"temperature"`
	PresencePenalty  *float64 `yaml:"presence_penalty"`
	FrequencyPenalty *float64 `yaml:"frequency_penalty"`
	Seed             *int64   `yaml:"seed"`
	LegacyCounts     *bool    `yaml:"legacy_counts"`

	// Generation
	MaxTokens      *int64 `yaml:"max_tokens"`
	MaxStepRetries *int64 `yaml:"max_step_retries"`
	UserLabel      string `yaml:"user_label"`
	AssistantLabel string `yaml:"assistant_label"`

	// Model
	Vocab     string `yaml:"vocab"`
	Hidden    *int64 `yaml:"hidden"`
	ModelSeed *int64 `yaml:"model_seed"`

	// Output
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// Server
	ServerAddress string `yaml:"server_address"`
	QueueSize     *int64 `yaml:"queue_size"`
	MaxRuns       *int64 `yaml:"max_runs"`
}

// configPath returns override when set, else the per-user default.
func configPath(override string) string {
	if override != "" {
		return override
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "chatter", "config.yaml")
}

// LoadConfig reads the config file at path. A missing file yields a zero Config.
func LoadConfig(path string) (Config, error) {
	if path == "" {
		return Config{}, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Config{}, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

func (cfg Config) applyLogging(c *cli.Command) {
	if cfg.LogLevel != "" && !c.IsSet("log-level") {
		logLevel = cfg.LogLevel
	}
	if cfg.LogFormat != "" && !c.IsSet("log-format") {
		logFormat = cfg.LogFormat
	}
}

// applyGeneration copies config defaults into s for every flag the user did
// not set explicitly.
func (cfg Config) applyGeneration(c *cli.Command, s *genSettings) {
	if cfg.TopP != nil && !c.IsSet("top-p") {
		s.topP = *cfg.TopP
	}
	if cfg.Temperature != nil && !c.IsSet("temp") {
		s.temp = *cfg.Temperature
	}
	if cfg.PresencePenalty != nil && !c.IsSet("presence-penalty") {
		s.presencePenalty = *cfg.PresencePenalty
	}
	if cfg.FrequencyPenalty != nil && !c.IsSet("frequency-penalty") {
		s.frequencyPenalty = *cfg.FrequencyPenalty
	}
	if cfg.Seed != nil && !c.IsSet("seed") {
		s.seed = *cfg.Seed
	}
	if cfg.LegacyCounts != nil && !c.IsSet("legacy-counts") {
		s.legacyCounts = *cfg.LegacyCounts
	}
	if cfg.MaxTokens != nil && !c.IsSet("max-tokens") {
		s.maxTokens = *cfg.MaxTokens
	}
	if cfg.MaxStepRetries != nil && !c.IsSet("max-step-retries") {
		s.maxStepRetries = *cfg.MaxStepRetries
	}
	if cfg.UserLabel != "" && !c.IsSet("user-label") {
		s.userLabel = cfg.UserLabel
	}
	if cfg.AssistantLabel != "" && !c.IsSet("assistant-label") {
		s.assistantLabel = cfg.AssistantLabel
	}
	if cfg.Vocab != "" && !c.IsSet("vocab") {
		s.vocabPath = cfg.Vocab
	}
	if cfg.Hidden != nil && !c.IsSet("hidden") {
		s.hidden = *cfg.Hidden
	}
	if cfg.ModelSeed != nil && !c.IsSet("model-seed") {
		s.modelSeed = *cfg.ModelSeed
	}
}

func (cfg Config) applyServe(c *cli.Command, addr *string, queueSize, maxRuns *int64) {
	if cfg.ServerAddress != "" && !c.IsSet("addr") {
		*addr = cfg.ServerAddress
	}
	if cfg.QueueSize != nil && !c.IsSet("queue-size") {
		*queueSize = *cfg.QueueSize
	}
	if cfg.MaxRuns != nil && !c.IsSet("max-runs") {
		*maxRuns = *cfg.MaxRuns
	}
}
