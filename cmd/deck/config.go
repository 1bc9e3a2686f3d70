package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// Config is the resolved configuration. Values come from the YAML file,
// then from flags that were set explicitly.
type Config struct {
	Provider  string  `yaml:"provider"`
	Model     string  `yaml:"model"`
	APIKey    string  `yaml:"api_key"`
	DB        string  `yaml:"db"`
	LogLevel  string  `yaml:"log_level"`
	LogFile   string  `yaml:"log_file"`
	Metrics   bool    `yaml:"metrics"`
	Addr      string  `yaml:"addr"`
	MaxSteps  int     `yaml:"max_steps"`
	RateLimit float64 `yaml:"rate_limit"`
	RateBurst int     `yaml:"rate_burst"`
}

// Env holds the environment values the CLI reads. Only main reads the
// environment.
type Env struct {
	Home         string
	AnthropicKey string
	GeminiKey    string
}

func readEnv() Env {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return Env{
		Home:         home,
		AnthropicKey: os.Getenv("ANTHROPIC_API_KEY"),
		GeminiKey:    os.Getenv("GEMINI_API_KEY"),
	}
}

func configDir(home string) string {
	return filepath.Join(home, ".deck")
}

func defaultConfigPath(home string) string {
	return filepath.Join(configDir(home), "config.yaml")
}

func defaultConfig(home string) Config {
	return Config{
		DB:        filepath.Join(configDir(home), "deck.db"),
		LogLevel:  "info",
		Addr:      ":8080",
		RateLimit: 0.5,
		RateBurst: 2,
	}
}

// parseConfig overlays YAML data on base.
func parseConfig(data []byte, base Config) (Config, error) {
	cfg := base
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// loadConfig reads the config file at path. A missing file is an error
// only when the path was given explicitly.
func loadConfig(path string, explicit bool, base Config) (Config, error) {
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		return parseConfig(data, base)
	case errors.Is(err, os.ErrNotExist) && !explicit:
		return base, nil
	}
	return Config{}, fmt.Errorf("read config: %w", err)
}

// applyFlags overrides cfg with the persistent flags the user set.
func applyFlags(cfg Config, fs *pflag.FlagSet) Config {
	str := func(name string, dst *string) {
		if fs.Changed(name) {
			*dst, _ = fs.GetString(name)
		}
	}
	str("db", &cfg.DB)
	str("log-level", &cfg.LogLevel)
	str("log-file", &cfg.LogFile)
	str("provider", &cfg.Provider)
	str("model", &cfg.Model)
	str("api-key", &cfg.APIKey)
	if fs.Changed("metrics") {
		cfg.Metrics, _ = fs.GetBool("metrics")
	}
	return cfg
}
