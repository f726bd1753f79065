package llmadapter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/thoughtflow/pkg/config"
)

func TestNewDispatchesOnProviderType(t *testing.T) {
	anthropic, err := New(&config.LLMProviderConfig{
		Type:             config.LLMProviderAnthropicLike,
		Model:            "claude-like-1",
		GRPCTarget:       "localhost:50051",
		MaxOutputTokens:  1024,
		MaxContextTokens: 100000,
	})
	require.NoError(t, err)
	defer anthropic.Close()
	assert.IsType(t, &AnthropicLike{}, anthropic)

	openai, err := New(&config.LLMProviderConfig{
		Type:             config.LLMProviderOpenAILike,
		Model:            "gpt-like-1",
		BaseURL:          "https://example.test/v1",
		MaxOutputTokens:  1024,
		MaxContextTokens: 100000,
	})
	require.NoError(t, err)
	defer openai.Close()
	assert.IsType(t, &OpenAILike{}, openai)

	gemini, err := New(&config.LLMProviderConfig{
		Type:             config.LLMProviderGeminiLike,
		Model:            "gemini-like-1",
		BaseURL:          "https://example.test/v1beta",
		MaxOutputTokens:  1024,
		MaxContextTokens: 100000,
	})
	require.NoError(t, err)
	defer gemini.Close()
	assert.IsType(t, &GeminiLike{}, gemini)
}

func TestNewRejectsUnknownProviderType(t *testing.T) {
	_, err := New(&config.LLMProviderConfig{Type: config.LLMProviderType("unknown-like")})
	assert.Error(t, err)
}

func TestCapabilitiesReflectConfig(t *testing.T) {
	cfg := &config.LLMProviderConfig{
		Type:                config.LLMProviderOpenAILike,
		Model:               "gpt-like-1",
		BaseURL:             "https://example.test/v1",
		MaxOutputTokens:     1024,
		MaxContextTokens:    100000,
		SupportsPromptCache: true,
	}
	adapter, err := New(cfg)
	require.NoError(t, err)
	defer adapter.Close()

	caps := adapter.Capabilities()
	assert.True(t, caps.SupportsPromptCache)
	assert.Equal(t, 100000, caps.MaxContextTokens)
}

func TestEffectiveMaxTokensPrefersSmallerRequested(t *testing.T) {
	assert.Equal(t, 256, effectiveMaxTokens(256, 1024))
	assert.Equal(t, 1024, effectiveMaxTokens(0, 1024))
	assert.Equal(t, 1024, effectiveMaxTokens(2048, 1024))
}
