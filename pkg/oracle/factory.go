package oracle

import (
	"context"
	"fmt"
)

// NewProvider constructs a reasoning backend by name.
func NewProvider(ctx context.Context, name, apiKey, model, endpoint string) (Provider, error) {
	switch name {
	case "openai":
		return NewOpenAIProvider(apiKey, model, endpoint), nil
	case "gemini":
		return NewGeminiProvider(ctx, apiKey, model)
	default:
		return nil, fmt.Errorf("unknown oracle provider: %s", name)
	}
}
