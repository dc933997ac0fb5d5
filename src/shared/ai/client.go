package ai

import "context"

// Options controls model behavior; fields are optional per provider.
type Options struct {
	Model           string
	Temperature     float64
	MaxOutputTokens int
	SystemPrompt    string
	EnableWebSearch bool
	// Search localization hint, honored by providers that support it.
	SearchCity   string
	SearchRegion string
}

// Client is a provider-agnostic interface for the research calls we need.
type Client interface {
	// Research sends a natural-language research instruction and returns the
	// synthesized answer. Providers that support it back the answer with a
	// live web search.
	Research(ctx context.Context, instruction string, opts Options) (string, error)
}
