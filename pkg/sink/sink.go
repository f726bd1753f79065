// Package sink is the sole point where thought status transitions are
// enforced [orig §4.7]. Every other component treats the thought row as
// opaque and goes through this interface.
package sink

import (
	"context"
	"fmt"
	"time"

	"github.com/codeready-toolchain/thoughtflow/ent"
	"github.com/codeready-toolchain/thoughtflow/ent/thought"
	"github.com/codeready-toolchain/thoughtflow/pkg/taxonomy"
)

// Sink persists thought lifecycle transitions.
type Sink struct {
	client *ent.Client
	grace  time.Duration
}

// New builds a Sink. grace is the processing grace window past which a
// thought is no longer considered "busy" by BeginProcessing.
func New(client *ent.Client, grace time.Duration) *Sink {
	return &Sink{client: client, grace: grace}
}

// Create inserts a new pending thought row, the entry point for every
// thought's lifecycle. The caller supplies thoughtID (generated at the
// ingest boundary) so it can be returned to the submitter before the pipeline
// has run.
func (s *Sink) Create(ctx context.Context, thoughtID, userID, text string) error {
	err := s.client.Thought.Create().
		SetID(thoughtID).
		SetUserID(userID).
		SetText(text).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("create: %w", err)
	}
	return nil
}

// Get loads the thought row unchanged, for callers that only need to read
// its current state (status, text, user_id) before deciding what to do.
func (s *Sink) Get(ctx context.Context, thoughtID string) (*ent.Thought, error) {
	th, err := s.client.Thought.Get(ctx, thoughtID)
	if err != nil {
		if ent.IsNotFound(err) {
			return nil, taxonomy.New(taxonomy.KindInvariant, "thought not found")
		}
		return nil, fmt.Errorf("get: %w", err)
	}
	return th, nil
}

// SetUserContextVersion records the user context version the pipeline ran
// against, once per run, before agents are dispatched.
func (s *Sink) SetUserContextVersion(ctx context.Context, thoughtID string, version int) error {
	if err := s.client.Thought.UpdateOneID(thoughtID).SetUserContextVersion(version).Exec(ctx); err != nil {
		if ent.IsNotFound(err) {
			return taxonomy.New(taxonomy.KindInvariant, "thought not found")
		}
		return fmt.Errorf("set_user_context_version: %w", err)
	}
	return nil
}

// BeginProcessing atomically transitions pending|failed -> processing and
// bumps attempt_count. Returns ErrBusy if the row is already processing
// within the grace window.
func (s *Sink) BeginProcessing(ctx context.Context, thoughtID string) error {
	tx, err := s.client.Tx(ctx)
	if err != nil {
		return fmt.Errorf("begin_processing: start tx: %w", err)
	}
	defer tx.Rollback()

	th, err := tx.Thought.Get(ctx, thoughtID)
	if err != nil {
		if ent.IsNotFound(err) {
			return taxonomy.New(taxonomy.KindInvariant, "thought not found")
		}
		return fmt.Errorf("begin_processing: get thought: %w", err)
	}

	if th.Status == thought.StatusProcessing {
		if th.ProcessingStartedAt != nil && time.Since(*th.ProcessingStartedAt) < s.grace {
			return ErrBusy
		}
		// Past the grace window: the sweeper or a redelivery is reclaiming
		// this thought; fall through and re-stamp processing_started_at.
	} else if th.Status != thought.StatusPending && th.Status != thought.StatusFailed {
		return taxonomy.New(taxonomy.KindInvariant, fmt.Sprintf("cannot begin_processing from status %s", th.Status))
	}

	now := time.Now()
	_, err = tx.Thought.UpdateOneID(thoughtID).
		SetStatus(thought.StatusProcessing).
		SetProcessingStartedAt(now).
		AddAttemptCount(1).
		Save(ctx)
	if err != nil {
		return fmt.Errorf("begin_processing: update: %w", err)
	}

	return tx.Commit()
}

// WriteStage sets the named stage field if it is not already set. A
// no-op on an already-written field implements first-writer-wins under
// at-least-once redelivery.
func (s *Sink) WriteStage(ctx context.Context, thoughtID string, stage StageName, output map[string]any) error {
	th, err := s.client.Thought.Get(ctx, thoughtID)
	if err != nil {
		if ent.IsNotFound(err) {
			return taxonomy.New(taxonomy.KindInvariant, "thought not found")
		}
		return fmt.Errorf("write_stage: get thought: %w", err)
	}

	if stageAlreadySet(th, stage) {
		return nil
	}

	update := s.client.Thought.UpdateOneID(thoughtID)
	switch stage {
	case StageClassification:
		update = update.SetClassification(output)
	case StageAnalysis:
		update = update.SetAnalysis(output)
	case StageValueImpact:
		update = update.SetValueImpact(output)
	case StageActionPlan:
		update = update.SetActionPlan(output)
	case StagePriority:
		update = update.SetPriority(output)
	default:
		return taxonomy.New(taxonomy.KindInvariant, fmt.Sprintf("unknown stage %q", stage))
	}

	if err := update.Exec(ctx); err != nil {
		return fmt.Errorf("write_stage: update: %w", err)
	}
	return nil
}

func stageAlreadySet(th *ent.Thought, stage StageName) bool {
	switch stage {
	case StageClassification:
		return th.Classification != nil
	case StageAnalysis:
		return th.Analysis != nil
	case StageValueImpact:
		return th.ValueImpact != nil
	case StageActionPlan:
		return th.ActionPlan != nil
	case StagePriority:
		return th.Priority != nil
	default:
		return false
	}
}

// Complete transitions the thought to completed and persists its
// embedding. Returns ErrIncompleteStages if any of the five stage fields
// is still null.
func (s *Sink) Complete(ctx context.Context, thoughtID string, embedding []float32) error {
	th, err := s.client.Thought.Get(ctx, thoughtID)
	if err != nil {
		if ent.IsNotFound(err) {
			return taxonomy.New(taxonomy.KindInvariant, "thought not found")
		}
		return fmt.Errorf("complete: get thought: %w", err)
	}

	if th.Classification == nil || th.Analysis == nil || th.ValueImpact == nil ||
		th.ActionPlan == nil || th.Priority == nil {
		return ErrIncompleteStages
	}

	err = s.client.Thought.UpdateOneID(thoughtID).
		SetStatus(thought.StatusCompleted).
		SetProcessedAt(time.Now()).
		SetEmbedding(embedding).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("complete: update: %w", err)
	}
	return nil
}

// Fail transitions the thought to failed, idempotently.
func (s *Sink) Fail(ctx context.Context, thoughtID string, kind taxonomy.Kind, message string) error {
	err := s.client.Thought.UpdateOneID(thoughtID).
		SetStatus(thought.StatusFailed).
		SetProcessedAt(time.Now()).
		SetErrorKind(string(kind)).
		SetErrorMessage(message).
		Exec(ctx)
	if err != nil {
		if ent.IsNotFound(err) {
			return taxonomy.New(taxonomy.KindInvariant, "thought not found")
		}
		return fmt.Errorf("fail: update: %w", err)
	}
	return nil
}
