package events

import (
	"encoding/json"
	"fmt"

	"github.com/codeready-toolchain/thoughtflow/pkg/taxonomy"
)

// wireEnvelope is the flattened-on-the-wire shape: common fields plus
// whichever variant fields apply to EventType, all siblings in one JSON
// object (matching the envelope documented for the broker and fan-out).
type wireEnvelope struct {
	EventID       string `json:"event_id"`
	EventType     Type   `json:"event_type"`
	SchemaVersion int    `json:"schema_version"`
	OccurredAt    string `json:"occurred_at"`
	ThoughtID     string `json:"thought_id"`
	UserID        string `json:"user_id"`

	Text         string `json:"text,omitempty"`
	PriorityHint string `json:"priority_hint,omitempty"`

	AgentName       string         `json:"agent_name,omitempty"`
	AgentNumber     int            `json:"agent_number,omitempty"`
	TotalAgents     int            `json:"total_agents,omitempty"`
	ProgressPercent *int           `json:"progress_percent,omitempty"`
	AgentOutput     map[string]any `json:"agent_output,omitempty"`

	ProcessingTimeSeconds *float64 `json:"processing_time_seconds,omitempty"`
	CacheHit              *bool   `json:"cache_hit,omitempty"`

	ErrorKind    string `json:"error_kind,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
	RetryCount   int    `json:"retry_count,omitempty"`
}

// Marshal flattens an Envelope into the canonical single-object wire form.
func Marshal(e *Envelope) ([]byte, error) {
	w := wireEnvelope{
		EventID:       e.EventID,
		EventType:     e.EventType,
		SchemaVersion: e.SchemaVersion,
		OccurredAt:    e.OccurredAt,
		ThoughtID:     e.ThoughtID,
		UserID:        e.UserID,
	}
	switch e.EventType {
	case TypeCreated:
		if e.Created == nil {
			return nil, fmt.Errorf("thought_created envelope missing Created fields")
		}
		w.Text = e.Created.Text
		w.PriorityHint = e.Created.PriorityHint
	case TypeProcessing:
		// no variant fields
	case TypeAgentCompleted:
		if e.AgentCompleted == nil {
			return nil, fmt.Errorf("thought_agent_completed envelope missing AgentCompleted fields")
		}
		w.AgentName = e.AgentCompleted.AgentName
		w.AgentNumber = e.AgentCompleted.AgentNumber
		w.TotalAgents = e.AgentCompleted.TotalAgents
		w.ProgressPercent = &e.AgentCompleted.ProgressPercent
		w.AgentOutput = e.AgentCompleted.AgentOutput
	case TypeCompleted:
		if e.Completed == nil {
			return nil, fmt.Errorf("thought_completed envelope missing Completed fields")
		}
		w.ProcessingTimeSeconds = &e.Completed.ProcessingTimeSeconds
		w.CacheHit = &e.Completed.CacheHit
	case TypeFailed:
		if e.Failed == nil {
			return nil, fmt.Errorf("thought_failed envelope missing Failed fields")
		}
		w.ErrorKind = e.Failed.ErrorKind
		w.ErrorMessage = e.Failed.ErrorMessage
		w.RetryCount = e.Failed.RetryCount
	default:
		return nil, fmt.Errorf("unrecognized event_type %q", e.EventType)
	}
	return json.Marshal(w)
}

// Unmarshal decodes the canonical wire form into an Envelope, validating
// schema_version and dispatching the correct variant. A schema_version
// mismatch or an unrecognized event_type is a permanent/invalid_payload
// error — the broker consumer routes it straight to the DLQ rather than
// retrying.
func Unmarshal(data []byte) (*Envelope, error) {
	var w wireEnvelope
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, taxonomy.Wrap(taxonomy.KindInvalidPayload, "malformed envelope JSON", err)
	}

	if w.SchemaVersion != CurrentSchemaVersion {
		return nil, taxonomy.New(taxonomy.KindInvalidPayload,
			fmt.Sprintf("unrecognized schema_version %d (expected %d)", w.SchemaVersion, CurrentSchemaVersion))
	}

	e := &Envelope{
		EventID:       w.EventID,
		EventType:     w.EventType,
		SchemaVersion: w.SchemaVersion,
		OccurredAt:    w.OccurredAt,
		ThoughtID:     w.ThoughtID,
		UserID:        w.UserID,
	}

	switch w.EventType {
	case TypeCreated:
		e.Created = &CreatedFields{Text: w.Text, PriorityHint: w.PriorityHint}
	case TypeProcessing:
		e.Processing = &ProcessingFields{}
	case TypeAgentCompleted:
		progress := 0
		if w.ProgressPercent != nil {
			progress = *w.ProgressPercent
		}
		e.AgentCompleted = &AgentCompletedFields{
			AgentName:       w.AgentName,
			AgentNumber:     w.AgentNumber,
			TotalAgents:     w.TotalAgents,
			ProgressPercent: progress,
			AgentOutput:     w.AgentOutput,
		}
	case TypeCompleted:
		var seconds float64
		var hit bool
		if w.ProcessingTimeSeconds != nil {
			seconds = *w.ProcessingTimeSeconds
		}
		if w.CacheHit != nil {
			hit = *w.CacheHit
		}
		e.Completed = &CompletedFields{ProcessingTimeSeconds: seconds, CacheHit: hit}
	case TypeFailed:
		e.Failed = &FailedFields{ErrorKind: w.ErrorKind, ErrorMessage: w.ErrorMessage, RetryCount: w.RetryCount}
	default:
		return nil, taxonomy.New(taxonomy.KindInvalidPayload, fmt.Sprintf("unrecognized event_type %q", w.EventType))
	}

	return e, nil
}
