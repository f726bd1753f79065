package config

import "time"

// CacheConfig configures the semantic cache [orig §4.8, §6.5].
type CacheConfig struct {
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
	TTLDays             int     `yaml:"ttl_days"`
	EmbeddingDimension  int     `yaml:"embedding_dimension"`
}

// TTL returns the entry lifetime as a time.Duration.
func (c *CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLDays) * 24 * time.Hour
}

// DefaultCacheConfig returns the built-in cache defaults.
func DefaultCacheConfig() *CacheConfig {
	return &CacheConfig{
		SimilarityThreshold: 0.92,
		TTLDays:             7,
		EmbeddingDimension:  768,
	}
}
