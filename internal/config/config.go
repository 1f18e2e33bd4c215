package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all anima configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Memory    MemoryConfig    `yaml:"memory"`
	Compiler  CompilerConfig  `yaml:"compiler"`
	Evolution EvolutionConfig `yaml:"evolution"`
	Heartbeat HeartbeatConfig `yaml:"heartbeat"`
}

type ServerConfig struct {
	Bind string `yaml:"bind"`
	Port int    `yaml:"port"`
}

type MemoryConfig struct {
	// Root is the directory holding all documents, state, and snapshots.
	// Empty means ~/.anima, overridable via ANIMA_HOME.
	Root string `yaml:"root"`
}

type CompilerConfig struct {
	BudgetTokens      int     `yaml:"budget_tokens"`
	CharsPerToken     float64 `yaml:"chars_per_token"`
	SkeletonThreshold int     `yaml:"skeleton_threshold"` // chars
	TokenCounter      string  `yaml:"token_counter"`      // "ratio" or "tiktoken"
	AttentionBoost    float64 `yaml:"attention_boost"`
	AttentionDecay    float64 `yaml:"attention_decay"`
}

type EvolutionConfig struct {
	CooldownHours int     `yaml:"cooldown_hours"`
	MinConfidence float64 `yaml:"min_confidence"`
	MinPatterns   int     `yaml:"min_patterns"`
	SimilarityBar float64 `yaml:"similarity_bar"`
	LogWindowDays int     `yaml:"log_window_days"`
}

type HeartbeatConfig struct {
	IntervalMinutes  int   `yaml:"interval_minutes"`
	DistillThreshold int64 `yaml:"distill_threshold"` // daily log bytes
}

// Default returns a Config with sensible defaults. The evolution tuning
// constants (confidence, cooldown, similarity) are hand-tuned; they live
// in config rather than buried in code.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Bind: "127.0.0.1",
			Port: 37911,
		},
		Compiler: CompilerConfig{
			BudgetTokens:      4096,
			CharsPerToken:     4.0,
			SkeletonThreshold: 200,
			TokenCounter:      "ratio",
			AttentionBoost:    0.1,
			AttentionDecay:    0.95,
		},
		Evolution: EvolutionConfig{
			CooldownHours: 24,
			MinConfidence: 0.75,
			MinPatterns:   2,
			SimilarityBar: 0.6,
			LogWindowDays: 7,
		},
		Heartbeat: HeartbeatConfig{
			IntervalMinutes:  30,
			DistillThreshold: 16 * 1024,
		},
	}
}

// Load reads config.yaml from the memory root if present, merged over
// defaults. A missing file is not an error.
func Load(root string) (Config, error) {
	cfg := Default()
	cfg.Memory.Root = root

	path := filepath.Join(root, "config.yaml")
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	cfg.Memory.Root = root
	return cfg, nil
}

// DefaultRoot returns the default memory root: $ANIMA_HOME or ~/.anima.
func DefaultRoot() (string, error) {
	if env := os.Getenv("ANIMA_HOME"); env != "" {
		return env, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".anima"), nil
}

// ListenAddr returns the bind:port address string.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Bind, c.Server.Port)
}
