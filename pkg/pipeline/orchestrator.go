package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	entthought "github.com/codeready-toolchain/thoughtflow/ent/thought"
	"github.com/codeready-toolchain/thoughtflow/pkg/agents"
	"github.com/codeready-toolchain/thoughtflow/pkg/events"
	"github.com/codeready-toolchain/thoughtflow/pkg/llmadapter"
	"github.com/codeready-toolchain/thoughtflow/pkg/masking"
	"github.com/codeready-toolchain/thoughtflow/pkg/semanticcache"
	"github.com/codeready-toolchain/thoughtflow/pkg/sink"
	"github.com/codeready-toolchain/thoughtflow/pkg/taxonomy"
	"github.com/codeready-toolchain/thoughtflow/pkg/usercontext"
)

// Orchestrator runs the nine-step pipeline for a single thought [orig
// §4.3]. It is stateless between calls; every call re-derives everything
// it needs from the sink and its collaborators.
type Orchestrator struct {
	sink         *sink.Sink
	cache        *semanticcache.Cache
	userContexts *usercontext.Store
	adapter      llmadapter.Adapter
	stages       []agents.Stage
	publisher    Publisher
	logger       *slog.Logger
}

// New builds an Orchestrator. stages defaults to agents.All() when nil,
// which callers should always prefer; an explicit slice exists only so
// tests can substitute fakes.
func New(s *sink.Sink, cache *semanticcache.Cache, userContexts *usercontext.Store, adapter llmadapter.Adapter, stages []agents.Stage, publisher Publisher, logger *slog.Logger) *Orchestrator {
	if stages == nil {
		stages = agents.All()
	}
	return &Orchestrator{
		sink:         s,
		cache:        cache,
		userContexts: userContexts,
		adapter:      adapter,
		stages:       stages,
		publisher:    publisher,
		logger:       logger,
	}
}

// Run implements broker.Orchestrator.
func (o *Orchestrator) Run(ctx context.Context, thoughtID, userID string) error {
	log := o.logger.With("thought_id", thoughtID, "user_id", userID)
	started := time.Now()

	// Step 1: idempotent re-delivery of an already-completed thought.
	th, err := o.sink.Get(ctx, thoughtID)
	if err != nil {
		return err
	}
	if th.Status == entthought.StatusCompleted {
		return nil
	}

	// Step 2: pending|failed -> processing, or transient_fail(in_progress).
	if err := o.sink.BeginProcessing(ctx, thoughtID); err != nil {
		if errors.Is(err, sink.ErrBusy) {
			return taxonomy.New(taxonomy.KindInProgress, "thought is already being processed")
		}
		return err
	}

	// Step 3: publish thought_processing.
	o.publish(ctx, log, userID, events.NewProcessing(uuid.New().String(), time.Now(), thoughtID, userID))

	// Step 4: load user context.
	uctx, err := o.userContexts.Get(ctx, userID)
	if err != nil {
		return o.failPermanent(ctx, log, thoughtID, userID, err)
	}
	if err := o.sink.SetUserContextVersion(ctx, thoughtID, uctx.Version); err != nil {
		return err
	}

	// Step 5: cache check.
	result, vec, hit := o.cache.Lookup(ctx, userID, th.Text)
	if hit {
		if err := o.writeBundle(ctx, thoughtID, result.Outputs); err != nil {
			return err
		}
		if err := o.sink.Complete(ctx, thoughtID, vec); err != nil {
			return o.failPermanent(ctx, log, thoughtID, userID, taxonomy.Wrap(taxonomy.KindInvariant, "complete after cache hit", err))
		}
		o.publish(ctx, log, userID, events.NewCompleted(uuid.New().String(), time.Now(), thoughtID, userID, time.Since(started).Seconds(), true))
		return nil
	}

	// Step 6: cache miss, run agents A1..A5 in sequence.
	prior := make(map[sink.StageName]map[string]any, len(o.stages))
	in := agents.Input{ThoughtText: th.Text, UserContext: uctx, Prior: prior}
	total := len(o.stages)
	for i, stage := range o.stages {
		out, err := stage.Run(ctx, o.adapter, in)
		if err != nil {
			kind, ok := taxonomy.KindOf(err)
			if ok && kind.IsPermanent() {
				return o.failPermanent(ctx, log, thoughtID, userID, err)
			}
			log.Warn("stage failed transiently, bubbling up for redelivery", "stage", stage.Name(), "error", err)
			return err
		}

		if err := o.sink.WriteStage(ctx, thoughtID, stage.Name(), out); err != nil {
			return err
		}
		prior[stage.Name()] = out

		progress := ((i + 1) * 100) / total
		o.publish(ctx, log, userID, events.NewAgentCompleted(uuid.New().String(), time.Now(), thoughtID, userID, string(stage.Name()), i+1, total, progress, out))
	}

	// Step 7: completion.
	o.cache.Store(ctx, userID, th.Text, vec, bundleFromPrior(prior))
	if err := o.sink.Complete(ctx, thoughtID, vec); err != nil {
		return o.failPermanent(ctx, log, thoughtID, userID, taxonomy.Wrap(taxonomy.KindInvariant, "complete after agent pipeline", err))
	}
	o.publish(ctx, log, userID, events.NewCompleted(uuid.New().String(), time.Now(), thoughtID, userID, time.Since(started).Seconds(), false))
	return nil
}

// failPermanent transitions the thought to failed, publishes thought_failed,
// and returns the original error unchanged so the caller's classification
// (and the broker's DLQ routing) still sees the right Kind.
func (o *Orchestrator) failPermanent(ctx context.Context, log *slog.Logger, thoughtID, userID string, err error) error {
	kind, ok := taxonomy.KindOf(err)
	if !ok {
		kind = taxonomy.KindInvariant
	}
	message := masking.Redact(err.Error())
	if sinkErr := o.sink.Fail(ctx, thoughtID, kind, message); sinkErr != nil {
		log.Error("failed to persist failure", "error", sinkErr)
	}
	o.publish(ctx, log, userID, events.NewFailed(uuid.New().String(), time.Now(), thoughtID, userID, string(kind), message, 0))
	return err
}

func (o *Orchestrator) writeBundle(ctx context.Context, thoughtID string, outputs map[string]any) error {
	for _, stage := range sink.Stages {
		v, ok := outputs[string(stage)]
		if !ok {
			continue
		}
		m, ok := v.(map[string]any)
		if !ok {
			continue
		}
		if err := o.sink.WriteStage(ctx, thoughtID, stage, m); err != nil {
			return err
		}
	}
	return nil
}

func bundleFromPrior(prior map[sink.StageName]map[string]any) map[string]any {
	bundle := make(map[string]any, len(prior))
	for k, v := range prior {
		bundle[string(k)] = v
	}
	return bundle
}

func (o *Orchestrator) publish(ctx context.Context, log *slog.Logger, userID string, env *events.Envelope) {
	if o.publisher == nil {
		return
	}
	if err := o.publisher.Publish(ctx, userID, env); err != nil {
		log.Warn("fan-out publish failed; progress events are best-effort", "event_type", env.EventType, "error", err)
	}
}
