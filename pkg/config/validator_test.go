package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Broker:    DefaultBrokerConfig(),
		Fanout:    DefaultFanoutConfig(),
		Cache:     DefaultCacheConfig(),
		Pipeline:  DefaultPipelineConfig(),
		Embedding: DefaultEmbeddingConfig(),
		LLMProviderRegistry: NewLLMProviderRegistry(map[string]*LLMProviderConfig{
			"claude-primary": {
				Type:             LLMProviderAnthropicLike,
				Model:            "claude-opus",
				GRPCTarget:       "localhost:9443",
				MaxOutputTokens:  4096,
				MaxContextTokens: 200000,
			},
		}),
	}
}

func TestValidateAllAcceptsDefaults(t *testing.T) {
	require.NoError(t, NewValidator(validConfig()).ValidateAll())
}

func TestValidateBrokerRejectsMissingTopicsWhenEnabled(t *testing.T) {
	cfg := validConfig()
	cfg.Broker.WorkTopic = ""

	err := NewValidator(cfg).ValidateAll()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "work_topic")
}

func TestValidateBrokerSkipsWhenDisabled(t *testing.T) {
	cfg := validConfig()
	cfg.Broker.Enabled = false
	cfg.Broker.WorkTopic = ""
	cfg.Broker.BootstrapServers = nil

	require.NoError(t, NewValidator(cfg).ValidateAll())
}

func TestValidateBrokerRejectsSameTopicAsDLQ(t *testing.T) {
	cfg := validConfig()
	cfg.Broker.DLQTopic = cfg.Broker.WorkTopic

	err := NewValidator(cfg).ValidateAll()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dlq_topic")
}

func TestValidateCacheRejectsOutOfRangeThreshold(t *testing.T) {
	cfg := validConfig()
	cfg.Cache.SimilarityThreshold = 1.5

	err := NewValidator(cfg).ValidateAll()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "similarity_threshold")
}

func TestValidatePipelineRejectsTooSmallGraceWindow(t *testing.T) {
	cfg := validConfig()
	cfg.Pipeline.StuckGraceMinutes = 1

	err := NewValidator(cfg).ValidateAll()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stuck_grace_minutes")
}

func TestValidateLLMProvidersRequiresAtLeastOne(t *testing.T) {
	cfg := validConfig()
	cfg.LLMProviderRegistry = NewLLMProviderRegistry(nil)

	err := NewValidator(cfg).ValidateAll()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "llm_provider")
}

func TestValidateEmbeddingRequiresMatchingDimension(t *testing.T) {
	cfg := validConfig()
	cfg.Embedding.Backend = "openai-like"
	cfg.Embedding.Dimension = 1536
	cfg.Cache.EmbeddingDimension = 768

	err := NewValidator(cfg).ValidateAll()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dimension")
}
