// Package sweeper implements the recovery sweeper [orig §4.10]: the sole
// safeguard against a consumer crash that happens after begin_processing
// but before any terminal state is reached.
package sweeper

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/codeready-toolchain/thoughtflow/ent"
	"github.com/codeready-toolchain/thoughtflow/ent/thought"
	"github.com/codeready-toolchain/thoughtflow/pkg/broker"
	"github.com/codeready-toolchain/thoughtflow/pkg/config"
	"github.com/codeready-toolchain/thoughtflow/pkg/events"
	"github.com/codeready-toolchain/thoughtflow/pkg/sink"
	"github.com/codeready-toolchain/thoughtflow/pkg/taxonomy"
)

// Publisher is the narrow fan-out dependency the sweeper needs: publishing
// thought_failed when it gives up on a stuck thought. Kept local rather
// than importing pkg/pipeline so sweeper doesn't depend on the orchestrator
// package for an unrelated concern.
type Publisher interface {
	Publish(ctx context.Context, userID string, env *events.Envelope) error
}

// Sweeper periodically scans for thoughts stuck in "processing" and either
// republishes them for redelivery or marks them permanently failed,
// depending on how much of the delivery budget remains.
type Sweeper struct {
	client    *ent.Client
	sink      *sink.Sink
	producer  *broker.Producer
	publisher Publisher
	cfg       *config.PipelineConfig
	logger    *slog.Logger

	mu          sync.Mutex
	lastScan    time.Time
	republished int
	markedStuck int
}

// New builds a Sweeper. publisher may be nil, in which case thought_failed
// events for swept thoughts are simply not published (the terminal status
// itself is still persisted).
func New(client *ent.Client, snk *sink.Sink, producer *broker.Producer, publisher Publisher, cfg *config.PipelineConfig, logger *slog.Logger) *Sweeper {
	return &Sweeper{client: client, sink: snk, producer: producer, publisher: publisher, cfg: cfg, logger: logger}
}

// Run blocks, scanning every cfg.SweepInterval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.sweep(ctx, time.Now().Add(-s.cfg.StuckGrace())); err != nil {
				s.logger.Error("sweep failed", "error", err)
			}
		}
	}
}

// Stats is a point-in-time snapshot of sweeper activity for the health
// endpoint [orig §5 supplemented features, mirroring queue.PoolHealth].
type Stats struct {
	LastScan    time.Time
	Republished int
	MarkedStuck int
}

// Stats reports the sweeper's cumulative activity and last-scan time.
func (s *Sweeper) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{LastScan: s.lastScan, Republished: s.republished, MarkedStuck: s.markedStuck}
}

// RecoverStartupOrphans runs a single immediate scan with no grace window,
// for the one-time pass at process start [orig §5 supplemented features]:
// any thought left "processing" by a previous crash of this consumer group
// member is orphaned the instant the process restarts, so there is no
// reason to wait out the usual stuck_grace window before acting on it.
func (s *Sweeper) RecoverStartupOrphans(ctx context.Context) error {
	return s.sweep(ctx, time.Now())
}

func (s *Sweeper) sweep(ctx context.Context, threshold time.Time) error {
	stuck, err := s.client.Thought.Query().
		Where(
			thought.StatusEQ(thought.StatusProcessing),
			thought.ProcessingStartedAtNotNil(),
			thought.ProcessingStartedAtLT(threshold),
		).
		All(ctx)
	if err != nil {
		return fmt.Errorf("sweep: query stuck thoughts: %w", err)
	}

	var republished, markedStuck int
	for _, th := range stuck {
		if withinDeliveryBudget(th.AttemptCount, s.cfg.PipelineMaxAttempts) {
			if err := s.republish(ctx, th); err != nil {
				s.logger.Error("sweep: republish failed", "thought_id", th.ID, "error", err)
				continue
			}
			republished++
			continue
		}
		if err := s.markStuck(ctx, th); err != nil {
			s.logger.Error("sweep: mark stuck failed", "thought_id", th.ID, "error", err)
			continue
		}
		markedStuck++
	}

	s.mu.Lock()
	s.lastScan = time.Now()
	s.republished += republished
	s.markedStuck += markedStuck
	s.mu.Unlock()

	if len(stuck) > 0 {
		s.logger.Warn("sweep completed", "stuck", len(stuck), "republished", republished, "marked_stuck", markedStuck)
	}
	return nil
}

// withinDeliveryBudget reports whether a stuck thought still has attempts
// left under the delivery budget and should be republished rather than
// given up on.
func withinDeliveryBudget(attemptCount, maxAttempts int) bool {
	return attemptCount < maxAttempts
}

// republish re-enqueues a thought_created event so the broker redelivers
// it. The thought row itself is left in "processing" — begin_processing's
// grace-window check lets the redelivered consumer reclaim it.
func (s *Sweeper) republish(ctx context.Context, th *ent.Thought) error {
	env := events.NewCreated(uuid.New().String(), time.Now(), th.ID, th.UserID, th.Text, "")
	return s.producer.Submit(ctx, env)
}

// markStuck exhausts the delivery budget: the thought is permanently
// failed with kind permanent/stuck, the only Kind the sweeper itself
// produces rather than bubbling up from the pipeline.
func (s *Sweeper) markStuck(ctx context.Context, th *ent.Thought) error {
	msg := fmt.Sprintf("exceeded delivery budget (%d attempts) while stuck in processing", th.AttemptCount)
	if err := s.sink.Fail(ctx, th.ID, taxonomy.KindStuck, msg); err != nil {
		return err
	}
	if s.publisher != nil {
		env := events.NewFailed(uuid.New().String(), time.Now(), th.ID, th.UserID, string(taxonomy.KindStuck), msg, th.AttemptCount)
		if err := s.publisher.Publish(ctx, th.UserID, env); err != nil {
			s.logger.Warn("sweep: publish thought_failed failed", "thought_id", th.ID, "error", err)
		}
	}
	return nil
}
