package config

import "time"

// BrokerConfig configures the Kafka-backed job broker [orig §6.5].
type BrokerConfig struct {
	// Enabled gates the producer; when false, submit_thought degrades to
	// "deferred" mode and the recovery sweeper is solely responsible for
	// picking up pending thoughts [orig §4.1].
	Enabled bool `yaml:"enabled"`

	BootstrapServers []string `yaml:"bootstrap_servers"`
	WorkTopic        string   `yaml:"work_topic"`
	DLQTopic         string   `yaml:"dlq_topic"`
	ConsumerGroup    string   `yaml:"consumer_group"`
	Partitions       int      `yaml:"partitions"`
	ReplicationFactor int     `yaml:"replication_factor"`

	MaxRetries      int           `yaml:"max_retries"`
	RetryBackoff    time.Duration `yaml:"retry_backoff_ms"`
	BatchSize       int           `yaml:"batch_size"`
	LingerMs        time.Duration `yaml:"linger_ms"`

	// SessionTimeout is the consumer group session/heartbeat timeout; it
	// must exceed P99 pipeline latency or long work triggers rebalances
	// [orig §4.2].
	SessionTimeout time.Duration `yaml:"session_timeout"`
}

// DefaultBrokerConfig returns the built-in broker defaults.
func DefaultBrokerConfig() *BrokerConfig {
	return &BrokerConfig{
		Enabled:           true,
		BootstrapServers:  []string{"localhost:9092"},
		WorkTopic:         "thought-processing",
		DLQTopic:          "thought-processing-dlq",
		ConsumerGroup:     "thoughtflow",
		Partitions:        3,
		ReplicationFactor: 1,
		MaxRetries:        3,
		RetryBackoff:      200 * time.Millisecond,
		BatchSize:         16,
		LingerMs:          5 * time.Millisecond,
		SessionTimeout:    45 * time.Second,
	}
}
