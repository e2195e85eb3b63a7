package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/pelletier/go-toml/v2"
)

type LLMConfig struct {
	Provider string `toml:"provider"`
	Model    string `toml:"model"`
	APIKey   string `toml:"api_key"`
	BaseURL  string `toml:"base_url"`
}

type DetectConfig struct {
	// Providers selects which detectors participate. Known values:
	// "zerogpt", "originality".
	Providers []string `toml:"providers"`
}

type SearchConfig struct {
	// Candidates is the number of whole-document rewrites tried per round.
	Candidates int `toml:"candidates"`
	// TargetScore stops the run once the aggregate score drops to or below it.
	TargetScore float64 `toml:"target_score"`
	// MaxRollbacks stops the run after this many consecutive failed rounds.
	MaxRollbacks int `toml:"max_rollbacks"`
	// MaxRounds is an optional safety cap; 0 means unbounded.
	MaxRounds int `toml:"max_rounds"`
}

type BatchConfig struct {
	Size          int     `toml:"size"`
	PacingSeconds float64 `toml:"pacing_seconds"`
}

type Config struct {
	LLM    LLMConfig    `toml:"llm"`
	Detect DetectConfig `toml:"detect"`
	Search SearchConfig `toml:"search"`
	Batch  BatchConfig  `toml:"batch"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return &cfg, nil
}

// Default returns a config without reading any file, for runs driven purely
// by env vars and flags.
func Default() *Config {
	var cfg Config
	cfg.applyEnv()
	cfg.applyDefaults()
	return &cfg
}

func (c *Config) applyEnv() {
	if v := os.Getenv("REDRAFT_LLM_PROVIDER"); v != "" {
		c.LLM.Provider = v
	}
	if v := os.Getenv("REDRAFT_LLM_MODEL"); v != "" {
		c.LLM.Model = v
	}
	if v := os.Getenv("REDRAFT_LLM_API_KEY"); v != "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv("REDRAFT_LLM_BASE_URL"); v != "" {
		c.LLM.BaseURL = v
	}
	if v := os.Getenv("REDRAFT_TARGET_SCORE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Search.TargetScore = f
		}
	}
	if v := os.Getenv("REDRAFT_CANDIDATES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Search.Candidates = n
		}
	}
}

func (c *Config) applyDefaults() {
	if c.LLM.Provider == "" {
		c.LLM.Provider = "openai"
	}
	if c.LLM.Model == "" {
		c.LLM.Model = "gemini-2.5-flash"
	}
	if len(c.Detect.Providers) == 0 {
		c.Detect.Providers = []string{"zerogpt"}
	}
	if c.Search.Candidates <= 0 {
		c.Search.Candidates = 7
	}
	if c.Search.TargetScore <= 0 {
		c.Search.TargetScore = 30
	}
	if c.Search.MaxRollbacks <= 0 {
		c.Search.MaxRollbacks = 3
	}
	if c.Batch.Size <= 0 {
		c.Batch.Size = 40
	}
	if c.Batch.PacingSeconds <= 0 {
		c.Batch.PacingSeconds = 2
	}
}
