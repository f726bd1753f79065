package config

import (
	"fmt"
	"os"
)

// Validator validates configuration comprehensively with clear error
// messages, mirroring the teacher's fail-fast ValidateAll idiom.
type Validator struct {
	cfg *Config
}

// NewValidator creates a validator for the given configuration.
func NewValidator(cfg *Config) *Validator {
	return &Validator{cfg: cfg}
}

// ValidateAll performs comprehensive validation (fail-fast — stops at the
// first error).
func (v *Validator) ValidateAll() error {
	if err := v.validateBroker(); err != nil {
		return fmt.Errorf("broker validation failed: %w", err)
	}
	if err := v.validateFanout(); err != nil {
		return fmt.Errorf("fanout validation failed: %w", err)
	}
	if err := v.validateCache(); err != nil {
		return fmt.Errorf("cache validation failed: %w", err)
	}
	if err := v.validatePipeline(); err != nil {
		return fmt.Errorf("pipeline validation failed: %w", err)
	}
	if err := v.validateLLMProviders(); err != nil {
		return fmt.Errorf("LLM provider validation failed: %w", err)
	}
	if err := v.validateEmbedding(); err != nil {
		return fmt.Errorf("embedding validation failed: %w", err)
	}
	return nil
}

func (v *Validator) validateBroker() error {
	b := v.cfg.Broker
	if b == nil {
		return fmt.Errorf("broker configuration is nil")
	}

	if !b.Enabled {
		// Fallback mode: nothing else needs validating — the sweeper is
		// the sole path back to pending [orig §4.1].
		return nil
	}
	if len(b.BootstrapServers) == 0 {
		return NewValidationError("broker", "", "bootstrap_servers", fmt.Errorf("at least one bootstrap server required when enabled"))
	}
	if b.WorkTopic == "" {
		return NewValidationError("broker", "", "work_topic", fmt.Errorf("required"))
	}
	if b.DLQTopic == "" {
		return NewValidationError("broker", "", "dlq_topic", fmt.Errorf("required"))
	}
	if b.DLQTopic == b.WorkTopic {
		return NewValidationError("broker", "", "dlq_topic", fmt.Errorf("must differ from work_topic"))
	}
	if b.ConsumerGroup == "" {
		return NewValidationError("broker", "", "consumer_group", fmt.Errorf("required"))
	}
	if b.Partitions < 1 {
		return NewValidationError("broker", "", "partitions", fmt.Errorf("must be at least 1, got %d", b.Partitions))
	}
	if b.ReplicationFactor < 1 {
		return NewValidationError("broker", "", "replication_factor", fmt.Errorf("must be at least 1, got %d", b.ReplicationFactor))
	}
	if b.MaxRetries < 0 {
		return NewValidationError("broker", "", "max_retries", fmt.Errorf("must be non-negative"))
	}
	if b.RetryBackoff <= 0 {
		return NewValidationError("broker", "", "retry_backoff_ms", fmt.Errorf("must be positive"))
	}
	if b.BatchSize < 1 {
		return NewValidationError("broker", "", "batch_size", fmt.Errorf("must be at least 1"))
	}
	if b.SessionTimeout <= 0 {
		return NewValidationError("broker", "", "session_timeout", fmt.Errorf("must be positive"))
	}
	return nil
}

func (v *Validator) validateFanout() error {
	f := v.cfg.Fanout
	if f == nil {
		return fmt.Errorf("fanout configuration is nil")
	}
	if f.ChannelPrefix == "" {
		return NewValidationError("fanout", "", "channel_prefix", fmt.Errorf("required"))
	}
	if f.HeartbeatInterval <= 0 {
		return NewValidationError("fanout", "", "heartbeat_interval_seconds", fmt.Errorf("must be positive"))
	}
	if f.MaxConnectionsPerInstance < 1 {
		return NewValidationError("fanout", "", "max_connections_per_instance", fmt.Errorf("must be at least 1"))
	}
	return nil
}

func (v *Validator) validateCache() error {
	c := v.cfg.Cache
	if c == nil {
		return fmt.Errorf("cache configuration is nil")
	}
	if c.SimilarityThreshold < 0 || c.SimilarityThreshold > 1 {
		return NewValidationError("cache", "", "similarity_threshold", fmt.Errorf("must be in [0,1], got %v", c.SimilarityThreshold))
	}
	if c.TTLDays < 1 {
		return NewValidationError("cache", "", "ttl_days", fmt.Errorf("must be at least 1"))
	}
	if c.EmbeddingDimension < 1 {
		return NewValidationError("cache", "", "embedding_dimension", fmt.Errorf("must be at least 1"))
	}
	return nil
}

func (v *Validator) validatePipeline() error {
	p := v.cfg.Pipeline
	if p == nil {
		return fmt.Errorf("pipeline configuration is nil")
	}
	if p.AgentInternalRetries < 0 {
		return NewValidationError("pipeline", "", "agent_internal_retries", fmt.Errorf("must be non-negative"))
	}
	if p.PipelineMaxAttempts < 1 {
		return NewValidationError("pipeline", "", "pipeline_max_attempts", fmt.Errorf("must be at least 1"))
	}
	if p.StuckGraceMinutes < 10 {
		return NewValidationError("pipeline", "", "stuck_grace_minutes", fmt.Errorf("must be at least 10 (minimum grace window)"))
	}
	if p.GracefulShutdownTimeout <= 0 {
		return NewValidationError("pipeline", "", "graceful_shutdown_timeout", fmt.Errorf("must be positive"))
	}
	if p.SweepInterval <= 0 {
		return NewValidationError("pipeline", "", "sweep_interval", fmt.Errorf("must be positive"))
	}
	return nil
}

func (v *Validator) validateLLMProviders() error {
	providers := v.cfg.LLMProviderRegistry.GetAll()
	if len(providers) == 0 {
		return fmt.Errorf("at least one llm_provider must be configured")
	}

	for name, p := range providers {
		if !p.Type.IsValid() {
			return NewValidationError("llm_provider", name, "type", fmt.Errorf("invalid provider type: %s", p.Type))
		}
		if p.Model == "" {
			return NewValidationError("llm_provider", name, "model", fmt.Errorf("required"))
		}
		if p.MaxOutputTokens < 1 {
			return NewValidationError("llm_provider", name, "max_output_tokens", fmt.Errorf("must be at least 1"))
		}
		if p.MaxContextTokens < 1 {
			return NewValidationError("llm_provider", name, "max_context_tokens", fmt.Errorf("must be at least 1"))
		}
		if p.Type != LLMProviderAnthropicLike && p.APIKeyEnv != "" {
			if os.Getenv(p.APIKeyEnv) == "" {
				return NewValidationError("llm_provider", name, "api_key_env", fmt.Errorf("environment variable %s is not set", p.APIKeyEnv))
			}
		}
	}
	return nil
}

func (v *Validator) validateEmbedding() error {
	e := v.cfg.Embedding
	if e == nil {
		return fmt.Errorf("embedding configuration is nil")
	}
	switch e.Backend {
	case "none":
		return nil
	case "openai-like", "gemini-like":
		if e.Dimension < 1 {
			return NewValidationError("embedding", "", "dimension", fmt.Errorf("must be at least 1"))
		}
		if e.Dimension != v.cfg.Cache.EmbeddingDimension {
			return NewValidationError("embedding", "", "dimension", fmt.Errorf("must match cache.embedding_dimension (%d), got %d", v.cfg.Cache.EmbeddingDimension, e.Dimension))
		}
		if e.APIKeyEnv != "" && os.Getenv(e.APIKeyEnv) == "" {
			return NewValidationError("embedding", "", "api_key_env", fmt.Errorf("environment variable %s is not set", e.APIKeyEnv))
		}
		return nil
	default:
		return NewValidationError("embedding", "", "backend", fmt.Errorf("unknown backend: %s", e.Backend))
	}
}
