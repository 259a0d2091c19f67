package embedder

import (
	"fmt"
	"strings"
)

// Config holds embedder configuration
type Config struct {
	Provider          string // openai, jina, local; empty auto-detects
	OpenAIAPIKey      string
	JinaAPIKey        string
	Model             string
	Dimension         int
	Endpoint          string
	RequestsPerSecond float64
}

// New creates the provider selected by cfg.
// Without an explicit provider, the first configured API key wins
// (Jina, then OpenAI); with neither, the local provider is used.
func New(cfg Config) (Provider, error) {
	switch DetectProvider(cfg) {
	case ProviderJina:
		p, err := NewJinaProvider(cfg.providerConfig(cfg.JinaAPIKey))
		if err != nil {
			return nil, err
		}
		return p, nil
	case ProviderOpenAI:
		p, err := NewOpenAIProvider(cfg.providerConfig(cfg.OpenAIAPIKey))
		if err != nil {
			return nil, err
		}
		return p, nil
	case ProviderLocal:
		return NewLocalProvider(cfg.Dimension), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProvider, cfg.Provider)
	}
}

// DetectProvider returns the provider New would create for cfg
func DetectProvider(cfg Config) string {
	if cfg.Provider != "" {
		return strings.ToLower(strings.TrimSpace(cfg.Provider))
	}
	if cfg.JinaAPIKey != "" {
		return ProviderJina
	}
	if cfg.OpenAIAPIKey != "" {
		return ProviderOpenAI
	}
	return ProviderLocal
}

func (cfg Config) providerConfig(apiKey string) ProviderConfig {
	return ProviderConfig{
		APIKey:            apiKey,
		Model:             cfg.Model,
		Dimension:         cfg.Dimension,
		Endpoint:          cfg.Endpoint,
		RequestsPerSecond: cfg.RequestsPerSecond,
	}
}
