package config

import "time"

// PipelineConfig configures the orchestrator and agent stages [orig §4.3,
// §4.4, §4.10, §6.5].
type PipelineConfig struct {
	// AgentInternalRetries bounds each stage's own retry loop on transient
	// or validation failures before it bubbles up as permanent [orig §4.4].
	AgentInternalRetries int `yaml:"agent_internal_retries"`

	// PipelineMaxAttempts is the delivery budget the sweeper and consumer
	// compare the thought's attempt_count against [orig §4.10].
	PipelineMaxAttempts int `yaml:"pipeline_max_attempts"`

	// StuckGraceMinutes is the minimum time a thought may remain
	// "processing" before the sweeper is allowed to act on it.
	StuckGraceMinutes int `yaml:"stuck_grace_minutes"`

	// GracefulShutdownTimeout bounds how long in-flight pipeline runs are
	// given to finish during a graceful shutdown [orig §5].
	GracefulShutdownTimeout time.Duration `yaml:"graceful_shutdown_timeout"`

	// SweepInterval is how often the recovery sweeper scans for stuck
	// thoughts [orig §4.10].
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

// StuckGrace returns the grace window as a time.Duration.
func (p *PipelineConfig) StuckGrace() time.Duration {
	return time.Duration(p.StuckGraceMinutes) * time.Minute
}

// DefaultPipelineConfig returns the built-in pipeline defaults.
func DefaultPipelineConfig() *PipelineConfig {
	return &PipelineConfig{
		AgentInternalRetries:    2,
		PipelineMaxAttempts:     3,
		StuckGraceMinutes:       10,
		GracefulShutdownTimeout: 60 * time.Second,
		SweepInterval:           2 * time.Minute,
	}
}
