package api

import (
	"time"

	"github.com/codeready-toolchain/thoughtflow/pkg/database"
)

// SubmitThoughtResponse is returned by POST /thoughts [orig §6.4].
type SubmitThoughtResponse struct {
	ThoughtID string `json:"thought_id"`
	Accepted  bool   `json:"accepted"`
	// Mode is "stream" when the broker accepted the submission for
	// immediate dispatch, "deferred" when the broker is in fallback mode
	// and the recovery sweeper will pick the thought up instead.
	Mode string `json:"mode"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status        string                 `json:"status"`
	Version       string                 `json:"version"`
	Database      *database.HealthStatus `json:"database,omitempty"`
	Broker        BrokerStats            `json:"broker"`
	Sweeper       *SweeperStats          `json:"sweeper,omitempty"`
	Configuration ConfigurationStats     `json:"configuration"`
}

// BrokerStats surfaces broker connectivity for the health endpoint.
type BrokerStats struct {
	Connected bool `json:"connected"`
}

// SweeperStats surfaces the recovery sweeper's cumulative activity.
type SweeperStats struct {
	LastScan    time.Time `json:"last_scan"`
	Republished int       `json:"republished"`
	MarkedStuck int       `json:"marked_stuck"`
}

// ConfigurationStats surfaces a subset of loaded configuration for
// unauthenticated health checks.
type ConfigurationStats struct {
	LLMProviders     int    `json:"llm_providers"`
	EmbeddingBackend string `json:"embedding_backend"`
	WorkTopic        string `json:"work_topic"`
	ConsumerGroup    string `json:"consumer_group"`
}

// ErrorResponse is the body of any non-2xx API response.
type ErrorResponse struct {
	Error string `json:"error"`
}
