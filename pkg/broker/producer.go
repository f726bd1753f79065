package broker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/codeready-toolchain/thoughtflow/pkg/config"
	"github.com/codeready-toolchain/thoughtflow/pkg/events"
	"github.com/codeready-toolchain/thoughtflow/pkg/taxonomy"
)

// Producer publishes thought_created envelopes to the work topic, keyed by
// user_id so every event for a user lands on the same partition — the sole
// ordering guarantee the system relies on [orig §4.1].
type Producer struct {
	client  *kgo.Client
	cfg     *config.BrokerConfig
	enabled bool
}

// NewProducer constructs a Producer. When cfg.Enabled is false, Submit
// degrades to ErrProducerDisabled without touching the network — the
// fallback-mode contract the sweeper depends on.
func NewProducer(cfg *config.BrokerConfig) (*Producer, error) {
	if !cfg.Enabled {
		return &Producer{cfg: cfg, enabled: false}, nil
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.BootstrapServers...),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
		kgo.ProduceRequestTimeout(10*time.Second),
		kgo.RecordPartitioner(kgo.UniformBytesPartitioner(1<<20, false, false, nil)),
	)
	if err != nil {
		return nil, fmt.Errorf("broker producer client: %w", err)
	}

	return &Producer{client: client, cfg: cfg, enabled: true}, nil
}

// Submit serializes env and produces it to the work topic, waiting for
// broker durability acknowledgement before returning. It retries up to
// cfg.MaxRetries times on transient errors with exponential backoff and
// +/-25% jitter, per [orig §4.1].
func (p *Producer) Submit(ctx context.Context, env *events.Envelope) error {
	if !p.enabled {
		return ErrProducerDisabled
	}

	payload, err := events.Marshal(env)
	if err != nil {
		return taxonomy.Wrap(taxonomy.KindInvalidPayload, "marshal thought_created envelope", err)
	}

	record := &kgo.Record{
		Topic: p.cfg.WorkTopic,
		Key:   []byte(env.UserID),
		Value: payload,
	}

	backoff := p.cfg.RetryBackoff
	var lastErr error
	for attempt := 0; attempt <= p.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := sleepWithJitter(ctx, backoff); err != nil {
				return err
			}
			backoff *= 2
		}

		result := p.client.ProduceSync(ctx, record)
		if err := result.FirstErr(); err == nil {
			return nil
		} else {
			lastErr = err
			if !isTransientProduceErr(err) {
				return taxonomy.Wrap(taxonomy.KindNetwork, "produce thought_created (permanent)", err)
			}
			slog.Warn("broker produce attempt failed, retrying",
				"thought_id", env.ThoughtID, "attempt", attempt, "error", err)
		}
	}

	return fmt.Errorf("%w: %v", ErrRetriesExhausted, lastErr)
}

// Close releases the underlying client. Safe to call on a disabled producer.
func (p *Producer) Close() {
	if p.client != nil {
		p.client.Close()
	}
}

// Healthy reports broker connectivity for the /health endpoint. A disabled
// producer (deferred mode) is reported healthy since it has nothing to
// connect to by design.
func (p *Producer) Healthy(ctx context.Context) bool {
	if !p.enabled {
		return true
	}
	return p.client.Ping(ctx) == nil
}

func sleepWithJitter(ctx context.Context, base time.Duration) error {
	jitterFrac := (rand.Float64()*2 - 1) * 0.25 // +/-25%
	d := time.Duration(float64(base) * (1 + jitterFrac))
	if d < 0 {
		d = 0
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// isTransientProduceErr classifies connection errors, timeouts, and
// leader-not-available as transient; everything else is fatal, matching
// [orig §4.1]'s "any other error is fatal" rule exactly.
func isTransientProduceErr(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	if errors.Is(err, kgo.ErrRecordTimeout) {
		return true
	}
	return false
}
