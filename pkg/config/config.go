// Package config loads, merges, validates, and exposes thoughtflow's
// statically typed runtime configuration.
package config

// Config is the umbrella configuration object returned by Initialize and
// threaded explicitly into every component at process start — no global
// singleton.
type Config struct {
	configDir string

	Broker    *BrokerConfig
	Fanout    *FanoutConfig
	Cache     *CacheConfig
	Pipeline  *PipelineConfig
	Embedding *EmbeddingConfig

	LLMProviderRegistry *LLMProviderRegistry
}

// ConfigDir returns the configuration directory path.
func (c *Config) ConfigDir() string {
	return c.configDir
}

// Stats summarizes loaded configuration for startup logging and the
// /health endpoint.
type Stats struct {
	LLMProviders     int
	EmbeddingBackend string
	WorkTopic        string
	ConsumerGroup    string
}

// Stats returns configuration statistics for logging/monitoring.
func (c *Config) Stats() Stats {
	return Stats{
		LLMProviders:     c.LLMProviderRegistry.Len(),
		EmbeddingBackend: c.Embedding.Backend,
		WorkTopic:        c.Broker.WorkTopic,
		ConsumerGroup:    c.Broker.ConsumerGroup,
	}
}

// GetLLMProvider retrieves an LLM provider configuration by name.
func (c *Config) GetLLMProvider(name string) (*LLMProviderConfig, error) {
	return c.LLMProviderRegistry.Get(name)
}
