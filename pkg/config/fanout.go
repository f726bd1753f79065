package config

import "time"

// FanoutConfig configures the progress fan-out pub/sub bus and SSE endpoint
// [orig §4.9, §6.5].
type FanoutConfig struct {
	// BusURL is the Postgres DSN the fan-out bus dedicates a LISTEN
	// connection to (separate from the pooled ent connection, matching
	// pkg/events/listener.go's dedicated-conn pattern).
	BusURL                   string        `yaml:"bus_url"`
	ChannelPrefix            string        `yaml:"channel_prefix"`
	HeartbeatInterval        time.Duration `yaml:"heartbeat_interval_seconds"`
	MaxConnectionsPerInstance int          `yaml:"max_connections_per_instance"`
}

// DefaultFanoutConfig returns the built-in fan-out defaults.
func DefaultFanoutConfig() *FanoutConfig {
	return &FanoutConfig{
		ChannelPrefix:             "updates",
		HeartbeatInterval:         30 * time.Second,
		MaxConnectionsPerInstance: 1000,
	}
}
