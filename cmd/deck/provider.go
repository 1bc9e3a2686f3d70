package main

import (
	"context"
	"fmt"

	"github.com/fwojciec/deck"
	"github.com/fwojciec/deck/anthropic"
	"github.com/fwojciec/deck/gemini"
	"github.com/sirupsen/logrus"
)

// resolveProvider selects and constructs the provider. Without an explicit
// provider it is picked by which API key is present.
func resolveProvider(ctx context.Context, cfg Config, env Env, logger logrus.FieldLogger) (deck.Provider, error) {
	provider := cfg.Provider
	if provider == "" {
		hasAnthropic := env.AnthropicKey != ""
		hasGemini := env.GeminiKey != ""
		switch {
		case hasAnthropic && hasGemini:
			return nil, fmt.Errorf("multiple API keys found (ANTHROPIC_API_KEY, GEMINI_API_KEY): use --provider to select")
		case hasAnthropic:
			provider = "anthropic"
		case hasGemini:
			provider = "gemini"
		case cfg.APIKey != "":
			return nil, fmt.Errorf("api key given without a provider: use --provider")
		default:
			return nil, fmt.Errorf("no API key found: set ANTHROPIC_API_KEY or GEMINI_API_KEY")
		}
	}

	key := cfg.APIKey
	switch provider {
	case "anthropic":
		if key == "" {
			key = env.AnthropicKey
		}
		if key == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY not set")
		}
		opts := []anthropic.Option{anthropic.WithLogger(logger)}
		if cfg.Model != "" {
			opts = append(opts, anthropic.WithModel(cfg.Model))
		}
		return anthropic.New(key, opts...), nil
	case "gemini":
		if key == "" {
			key = env.GeminiKey
		}
		if key == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY not set")
		}
		var opts []gemini.Option
		if cfg.Model != "" {
			opts = append(opts, gemini.WithModel(cfg.Model))
		}
		client, err := gemini.New(ctx, key, opts...)
		if err != nil {
			return nil, fmt.Errorf("gemini: %w", err)
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown provider %q: must be \"anthropic\" or \"gemini\"", provider)
	}
}
