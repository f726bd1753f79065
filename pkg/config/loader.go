package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// ThoughtflowYAMLConfig represents the complete thoughtflow.yaml file
// structure.
type ThoughtflowYAMLConfig struct {
	Broker   *BrokerConfig   `yaml:"broker"`
	Fanout   *FanoutConfig   `yaml:"fanout"`
	Cache    *CacheConfig    `yaml:"cache"`
	Pipeline *PipelineConfig `yaml:"pipeline"`
}

// LLMProvidersYAMLConfig represents the complete llm-providers.yaml file
// structure.
type LLMProvidersYAMLConfig struct {
	LLMProviders map[string]LLMProviderConfig `yaml:"llm_providers"`
	Embedding    *EmbeddingConfig             `yaml:"embedding"`
}

// Initialize loads, validates, and returns ready-to-use configuration. This
// is the primary entry point for configuration loading.
//
// Steps performed:
//  1. Load YAML files from configDir
//  2. Expand {{.VAR}} environment references
//  3. Strictly decode YAML into structs, rejecting unknown keys
//  4. Merge user-defined configuration over built-in defaults
//  5. Validate all configuration
//  6. Return Config ready for use
func Initialize(_ context.Context, configDir string) (*Config, error) {
	log := slog.With("config_dir", configDir)
	log.Info("initializing configuration")

	cfg, err := load(configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := NewValidator(cfg).ValidateAll(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	stats := cfg.Stats()
	log.Info("configuration initialized",
		"llm_providers", stats.LLMProviders,
		"embedding_backend", stats.EmbeddingBackend,
		"work_topic", stats.WorkTopic,
		"consumer_group", stats.ConsumerGroup)

	return cfg, nil
}

func load(configDir string) (*Config, error) {
	loader := &configLoader{configDir: configDir}

	thoughtflowCfg, err := loader.loadThoughtflowYAML()
	if err != nil {
		return nil, NewLoadError("thoughtflow.yaml", err)
	}

	llmCfg, err := loader.loadLLMProvidersYAML()
	if err != nil {
		return nil, NewLoadError("llm-providers.yaml", err)
	}

	broker := DefaultBrokerConfig()
	if thoughtflowCfg.Broker != nil {
		if err := mergo.Merge(broker, thoughtflowCfg.Broker, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge broker config: %w", err)
		}
	}

	fanout := DefaultFanoutConfig()
	if thoughtflowCfg.Fanout != nil {
		if err := mergo.Merge(fanout, thoughtflowCfg.Fanout, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge fanout config: %w", err)
		}
	}

	cache := DefaultCacheConfig()
	if thoughtflowCfg.Cache != nil {
		if err := mergo.Merge(cache, thoughtflowCfg.Cache, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge cache config: %w", err)
		}
	}

	pipeline := DefaultPipelineConfig()
	if thoughtflowCfg.Pipeline != nil {
		if err := mergo.Merge(pipeline, thoughtflowCfg.Pipeline, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge pipeline config: %w", err)
		}
	}

	embedding := DefaultEmbeddingConfig()
	if llmCfg.Embedding != nil {
		if err := mergo.Merge(embedding, llmCfg.Embedding, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge embedding config: %w", err)
		}
	}

	providers := make(map[string]*LLMProviderConfig, len(llmCfg.LLMProviders))
	for name, p := range llmCfg.LLMProviders {
		p := p
		providers[name] = &p
	}

	return &Config{
		configDir:           configDir,
		Broker:              broker,
		Fanout:              fanout,
		Cache:               cache,
		Pipeline:            pipeline,
		Embedding:           embedding,
		LLMProviderRegistry: NewLLMProviderRegistry(providers),
	}, nil
}

type configLoader struct {
	configDir string
}

// loadYAML reads, expands, and strictly decodes a YAML file into target.
// KnownFields(true) rejects any key target doesn't declare, satisfying
// "unknown config options must be rejected at startup" [orig §6.5].
func (l *configLoader) loadYAML(filename string, target any) error {
	path := filepath.Join(l.configDir, filename)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return err
	}

	data = ExpandEnv(data)

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(target); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}

	return nil
}

func (l *configLoader) loadThoughtflowYAML() (*ThoughtflowYAMLConfig, error) {
	var cfg ThoughtflowYAMLConfig
	if err := l.loadYAML("thoughtflow.yaml", &cfg); err != nil {
		if errors.Is(err, ErrConfigNotFound) {
			return &cfg, nil
		}
		return nil, err
	}
	return &cfg, nil
}

func (l *configLoader) loadLLMProvidersYAML() (*LLMProvidersYAMLConfig, error) {
	cfg := &LLMProvidersYAMLConfig{LLMProviders: make(map[string]LLMProviderConfig)}
	if err := l.loadYAML("llm-providers.yaml", cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
