package providers

import (
	"context"
	"fmt"
	"strings"
)

// Supported provider names
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Completer is the capability shared by every provider client
type Completer interface {
	Complete(ctx context.Context, model string, prompt string) (string, error)
}

type ProviderParams struct {
	BaseURL string
	APIKey  string
}

type ProviderOption func(*ProviderParams)

func WithBaseURL(baseURL string) ProviderOption {
	return func(p *ProviderParams) {
		p.BaseURL = baseURL
	}
}

func WithAPIKey(apiKey string) ProviderOption {
	return func(p *ProviderParams) {
		p.APIKey = apiKey
	}
}

// New returns the client for the named provider
func New(ctx context.Context, name string, opts ...ProviderOption) (Completer, error) {
	switch strings.ToLower(name) {
	case ProviderOpenAI:
		return OpenAi(ctx, opts...), nil
	case ProviderGemini:
		params := ProviderParams{}
		for _, opt := range opts {
			opt(&params)
		}
		client, err := Gemini(ctx, params)
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown provider %q", name)
	}
}
