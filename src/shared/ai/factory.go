package ai

import "fmt"

// FactoryConfig captures the inputs required to construct a provider client.
type FactoryConfig struct {
	Provider  string // "openai" or "claude"
	OpenAIKey string
	ClaudeKey string

	// Defaults applied when per-call Options leave them unset.
	Model           string
	Temperature     float64
	MaxOutputTokens int
	SystemPrompt    string
}

// NewClient returns a provider-agnostic research client.
func NewClient(cfg FactoryConfig) (Client, error) {
	switch cfg.Provider {
	case "claude":
		if cfg.ClaudeKey == "" {
			return nil, fmt.Errorf("ai: claude provider requires an API key")
		}
		return newClaudeClient(cfg), nil
	case "", "openai":
		if cfg.OpenAIKey == "" {
			return nil, fmt.Errorf("ai: openai provider requires an API key")
		}
		return newOpenAIClient(cfg), nil
	default:
		return nil, fmt.Errorf("ai: unknown provider %q", cfg.Provider)
	}
}

func valueOrDefault(val, def string) string {
	if val != "" {
		return val
	}
	return def
}

func orInt(v, d int) int {
	if v != 0 {
		return v
	}
	return d
}

func orFloat(v, d float64) float64 {
	if v != 0 {
		return v
	}
	return d
}
