// Package events defines the wire envelope shared by the broker and the
// progress fan-out. The same JSON encoding travels both paths unchanged —
// there is no schema translation between Kafka and the pub/sub bus.
package events

// Type enumerates the recognized event_type values. A consumer that does
// not recognize a Type should treat the envelope as undecodable, not as a
// zero-value event.
type Type string

const (
	TypeCreated        Type = "thought_created"
	TypeProcessing     Type = "thought_processing"
	TypeAgentCompleted Type = "thought_agent_completed"
	TypeCompleted      Type = "thought_completed"
	TypeFailed         Type = "thought_failed"
)

// CurrentSchemaVersion is the only schema_version this build understands.
// Consumers MUST reject envelopes with any other value rather than guess
// at forward-compatible decoding.
const CurrentSchemaVersion = 1

// Envelope is the canonical event shape: common routing fields plus exactly
// one populated variant, selected by Type. Only one of the Created/
// Processing/AgentCompleted/Completed/Failed pointers is non-nil for a
// given Type; the others are always nil.
type Envelope struct {
	EventID       string `json:"event_id"`
	EventType     Type   `json:"event_type"`
	SchemaVersion int    `json:"schema_version"`
	OccurredAt    string `json:"occurred_at"` // RFC3339
	ThoughtID     string `json:"thought_id"`
	UserID        string `json:"user_id"`

	Created        *CreatedFields        `json:"-"`
	Processing     *ProcessingFields     `json:"-"`
	AgentCompleted *AgentCompletedFields `json:"-"`
	Completed      *CompletedFields      `json:"-"`
	Failed         *FailedFields         `json:"-"`
}

// CreatedFields is the thought_created variant payload.
type CreatedFields struct {
	Text         string `json:"text"`
	PriorityHint string `json:"priority_hint,omitempty"`
}

// ProcessingFields is the thought_processing variant payload. It carries
// no fields beyond the envelope's common ones.
type ProcessingFields struct{}

// AgentCompletedFields is the thought_agent_completed variant payload.
type AgentCompletedFields struct {
	AgentName       string         `json:"agent_name"`
	AgentNumber     int            `json:"agent_number"` // 1..5
	TotalAgents     int            `json:"total_agents"` // always 5
	ProgressPercent int            `json:"progress_percent"`
	AgentOutput     map[string]any `json:"agent_output,omitempty"` // omitted if large
}

// CompletedFields is the thought_completed variant payload.
type CompletedFields struct {
	ProcessingTimeSeconds float64 `json:"processing_time_seconds"`
	CacheHit              bool    `json:"cache_hit"`
}

// FailedFields is the thought_failed variant payload.
type FailedFields struct {
	ErrorKind   string `json:"error_kind"`
	ErrorMessage string `json:"error_message"`
	RetryCount  int    `json:"retry_count"`
}
