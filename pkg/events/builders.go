package events

import "time"

func common(eventID string, eventType Type, occurredAt time.Time, thoughtID, userID string) Envelope {
	return Envelope{
		EventID:       eventID,
		EventType:     eventType,
		SchemaVersion: CurrentSchemaVersion,
		OccurredAt:    occurredAt.UTC().Format(time.RFC3339Nano),
		ThoughtID:     thoughtID,
		UserID:        userID,
	}
}

// NewCreated builds a thought_created envelope.
func NewCreated(eventID string, occurredAt time.Time, thoughtID, userID, text, priorityHint string) *Envelope {
	e := common(eventID, TypeCreated, occurredAt, thoughtID, userID)
	e.Created = &CreatedFields{Text: text, PriorityHint: priorityHint}
	return &e
}

// NewProcessing builds a thought_processing envelope.
func NewProcessing(eventID string, occurredAt time.Time, thoughtID, userID string) *Envelope {
	e := common(eventID, TypeProcessing, occurredAt, thoughtID, userID)
	e.Processing = &ProcessingFields{}
	return &e
}

// NewAgentCompleted builds a thought_agent_completed envelope.
func NewAgentCompleted(eventID string, occurredAt time.Time, thoughtID, userID string, agentName string, agentNumber, totalAgents, progressPercent int, agentOutput map[string]any) *Envelope {
	e := common(eventID, TypeAgentCompleted, occurredAt, thoughtID, userID)
	e.AgentCompleted = &AgentCompletedFields{
		AgentName:       agentName,
		AgentNumber:     agentNumber,
		TotalAgents:     totalAgents,
		ProgressPercent: progressPercent,
		AgentOutput:     agentOutput,
	}
	return &e
}

// NewCompleted builds a thought_completed envelope.
func NewCompleted(eventID string, occurredAt time.Time, thoughtID, userID string, processingTimeSeconds float64, cacheHit bool) *Envelope {
	e := common(eventID, TypeCompleted, occurredAt, thoughtID, userID)
	e.Completed = &CompletedFields{ProcessingTimeSeconds: processingTimeSeconds, CacheHit: cacheHit}
	return &e
}

// NewFailed builds a thought_failed envelope.
func NewFailed(eventID string, occurredAt time.Time, thoughtID, userID string, errorKind, errorMessage string, retryCount int) *Envelope {
	e := common(eventID, TypeFailed, occurredAt, thoughtID, userID)
	e.Failed = &FailedFields{ErrorKind: errorKind, ErrorMessage: errorMessage, RetryCount: retryCount}
	return &e
}
