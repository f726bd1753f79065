package llmadapter

import (
	"fmt"

	"github.com/codeready-toolchain/thoughtflow/pkg/config"
)

// New builds the Adapter implementation matching cfg.Type. The pipeline
// never branches on provider type itself; this is the one place that does.
func New(cfg *config.LLMProviderConfig) (Adapter, error) {
	switch cfg.Type {
	case config.LLMProviderAnthropicLike:
		return NewAnthropicLike(cfg)
	case config.LLMProviderOpenAILike:
		return NewOpenAILike(cfg)
	case config.LLMProviderGeminiLike:
		return NewGeminiLike(cfg)
	default:
		return nil, fmt.Errorf("unsupported LLM provider type: %s", cfg.Type)
	}
}
