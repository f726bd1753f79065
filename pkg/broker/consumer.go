package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/codeready-toolchain/thoughtflow/pkg/config"
	"github.com/codeready-toolchain/thoughtflow/pkg/events"
	"github.com/codeready-toolchain/thoughtflow/pkg/taxonomy"
)

// Orchestrator is the subset of pipeline.Orchestrator the consumer depends
// on, kept narrow so broker tests can stub it without importing pipeline.
type Orchestrator interface {
	Run(ctx context.Context, thoughtID, userID string) error
}

// Consumer belongs to a named consumer group and dispatches thought_created
// envelopes to the pipeline orchestrator, committing offsets only after the
// orchestrator (and, on failure, the DLQ publish) has acknowledged the
// message — manual commit discipline per [orig §4.2].
type Consumer struct {
	client       *kgo.Client
	dlq          *kgo.Client
	cfg          *config.BrokerConfig
	orchestrator Orchestrator

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewConsumer constructs a Consumer. orchestrator.Run classifies its
// returned error via taxonomy.KindOf — transient kinds cause redelivery,
// permanent kinds route to the DLQ.
func NewConsumer(cfg *config.BrokerConfig, orchestrator Orchestrator) (*Consumer, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.BootstrapServers...),
		kgo.ConsumeTopics(cfg.WorkTopic),
		kgo.ConsumerGroup(cfg.ConsumerGroup),
		kgo.DisableAutoCommit(),
		kgo.SessionTimeout(cfg.SessionTimeout),
		kgo.FetchMaxWait(500*time.Millisecond),
		kgo.BlockRebalanceOnPoll(),
	)
	if err != nil {
		return nil, fmt.Errorf("broker consumer client: %w", err)
	}

	dlq, err := kgo.NewClient(kgo.SeedBrokers(cfg.BootstrapServers...))
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("broker DLQ client: %w", err)
	}

	return &Consumer{
		client:       client,
		dlq:          dlq,
		cfg:          cfg,
		orchestrator: orchestrator,
		stopCh:       make(chan struct{}),
		doneCh:       make(chan struct{}),
	}, nil
}

// Run polls the work topic until ctx is cancelled or Stop is called.
// Records are fetched in batches of cfg.BatchSize and processed strictly
// in the order PollRecords returns them, preserving the per-partition
// ordering the broker guarantees for a given user_id key.
func (c *Consumer) Run(ctx context.Context) error {
	defer close(c.doneCh)
	log := slog.With("consumer_group", c.cfg.ConsumerGroup, "topic", c.cfg.WorkTopic)
	log.Info("broker consumer started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.stopCh:
			return nil
		default:
		}

		fetches := c.client.PollRecords(ctx, c.cfg.BatchSize)
		if fetches.IsClientClosed() {
			return nil
		}

		fetches.EachError(func(topic string, partition int32, err error) {
			log.Error("fetch error", "topic", topic, "partition", partition, "error", err)
		})

		fetches.EachRecord(func(rec *kgo.Record) {
			c.processRecord(ctx, rec)
		})

		c.client.AllowRebalance()
	}
}

// Stop signals Run to exit and waits for it to return.
func (c *Consumer) Stop() {
	close(c.stopCh)
	<-c.doneCh
}

// Close releases the consumer's and DLQ's underlying clients.
func (c *Consumer) Close() {
	c.client.Close()
	c.dlq.Close()
}

func (c *Consumer) processRecord(ctx context.Context, rec *kgo.Record) {
	log := slog.With("topic", rec.Topic, "partition", rec.Partition, "offset", rec.Offset)

	env, err := events.Unmarshal(rec.Value)
	if err != nil {
		log.Error("undecodable envelope, routing to DLQ", "error", err)
		c.publishToDLQ(ctx, rec.Value, err.Error())
		c.commit(ctx, rec)
		return
	}

	if env.EventType != events.TypeCreated {
		// Informational fan-out events are not work orders.
		c.commit(ctx, rec)
		return
	}

	err = c.orchestrator.Run(ctx, env.ThoughtID, env.UserID)
	if err == nil {
		c.commit(ctx, rec)
		return
	}

	kind, ok := taxonomy.KindOf(err)
	if ok && kind.IsTransient() {
		log.Warn("orchestrator reported transient failure; leaving uncommitted for redelivery",
			"thought_id", env.ThoughtID, "kind", kind, "error", err)
		return
	}

	reason := err.Error()
	if ok {
		reason = fmt.Sprintf("%s: %s", kind, err)
	}
	log.Error("orchestrator reported permanent failure; routing to DLQ",
		"thought_id", env.ThoughtID, "error", err)
	c.publishToDLQ(ctx, rec.Value, reason)
	c.commit(ctx, rec)
}

func (c *Consumer) commit(ctx context.Context, rec *kgo.Record) {
	if err := c.client.CommitRecords(ctx, rec); err != nil {
		slog.Error("failed to commit offset", "topic", rec.Topic, "partition", rec.Partition, "offset", rec.Offset, "error", err)
	}
}

// dlqEnvelope wraps the original (possibly undecodable) payload with the
// reason it was dead-lettered, per [orig §6.2].
type dlqEnvelope struct {
	Envelope      json.RawMessage `json:"envelope"`
	FailureReason string          `json:"failure_reason"`
}

func (c *Consumer) publishToDLQ(ctx context.Context, original []byte, reason string) {
	payload, err := json.Marshal(dlqEnvelope{Envelope: original, FailureReason: reason})
	if err != nil {
		slog.Error("failed to marshal DLQ envelope", "error", err)
		return
	}
	res := c.dlq.ProduceSync(ctx, &kgo.Record{Topic: c.cfg.DLQTopic, Value: payload})
	if err := res.FirstErr(); err != nil {
		slog.Error("failed to publish to DLQ", "error", err)
	}
}
