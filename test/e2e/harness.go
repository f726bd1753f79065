// Package e2e drives the real pipeline.Orchestrator, broker.Producer/Consumer
// and fanout.Bus against a Postgres testcontainer and an in-process fake
// Kafka cluster, exercising the scenarios a live deployment would see
// without requiring an external broker.
package e2e

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kfake"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/codeready-toolchain/thoughtflow/ent"
	"github.com/codeready-toolchain/thoughtflow/pkg/broker"
	"github.com/codeready-toolchain/thoughtflow/pkg/config"
	"github.com/codeready-toolchain/thoughtflow/pkg/database"
	"github.com/codeready-toolchain/thoughtflow/pkg/events"
	"github.com/codeready-toolchain/thoughtflow/pkg/fanout"
	"github.com/codeready-toolchain/thoughtflow/pkg/pipeline"
	"github.com/codeready-toolchain/thoughtflow/pkg/semanticcache"
	"github.com/codeready-toolchain/thoughtflow/pkg/sink"
	"github.com/codeready-toolchain/thoughtflow/pkg/sweeper"
	testdb "github.com/codeready-toolchain/thoughtflow/test/database"
	testutil "github.com/codeready-toolchain/thoughtflow/test/util"
	"github.com/codeready-toolchain/thoughtflow/pkg/usercontext"
)

// TestApp wires the real pipeline against test infrastructure: a Postgres
// testcontainer (db, cache, fanout) and an in-process fake Kafka cluster
// (broker), so scenario tests see the same component graph cmd/thoughtflow
// assembles at startup.
type TestApp struct {
	t *testing.T

	DB           *database.Client
	Sink         *sink.Sink
	UserContexts *usercontext.Store
	Cache        *semanticcache.Cache
	Bus          *fanout.Bus
	Orchestrator *pipeline.Orchestrator
	Producer     *broker.Producer
	Consumer     *broker.Consumer
	Sweeper      *sweeper.Sweeper

	Adapter  *FakeAdapter
	Embedder *FakeEmbedder

	cfg    *config.BrokerConfig
	cancel context.CancelFunc
}

// NewTestApp builds a TestApp. adapter and embedder let each scenario
// script LLM responses and failures independently; pass nil to use
// NewFakeAdapter()/NewFakeEmbedder() defaults.
func NewTestApp(t *testing.T, adapter *FakeAdapter, embedder *FakeEmbedder) *TestApp {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())

	dbClient := testdb.NewTestClient(t)

	if adapter == nil {
		adapter = NewFakeAdapter()
	}
	if embedder == nil {
		embedder = NewFakeEmbedder()
	}

	cluster, err := kfake.NewCluster(kfake.NumBrokers(1))
	require.NoError(t, err)
	t.Cleanup(cluster.Close)
	addrs := cluster.ListenAddrs()

	suffix := fmt.Sprintf("%d", time.Now().UnixNano())
	brokerCfg := &config.BrokerConfig{
		Enabled:           true,
		BootstrapServers:  addrs,
		WorkTopic:         "thought-processing-" + suffix,
		DLQTopic:          "thought-processing-dlq-" + suffix,
		ConsumerGroup:     "thoughtflow-test-" + suffix,
		Partitions:        3,
		ReplicationFactor: 1,
		MaxRetries:        1,
		RetryBackoff:      50 * time.Millisecond,
		BatchSize:         16,
		LingerMs:          1 * time.Millisecond,
		SessionTimeout:    10 * time.Second,
	}

	fanoutCfg := &config.FanoutConfig{
		BusURL:                    testutil.GetBaseConnectionString(t),
		ChannelPrefix:             "updates",
		HeartbeatInterval:         30 * time.Second,
		MaxConnectionsPerInstance: 100,
	}

	cacheCfg := &config.CacheConfig{
		SimilarityThreshold: 0.92,
		TTLDays:             7,
		EmbeddingDimension:  embedder.Dimension(),
	}

	pipelineCfg := &config.PipelineConfig{
		AgentInternalRetries: 2,
		PipelineMaxAttempts:  3,
		// Zero grace lets a scenario test immediately reclaim a thought
		// left "processing" by a simulated crash or consumer restart,
		// instead of waiting out the production default; the grace
		// window's own enforcement is covered by pkg/sink's unit tests.
		StuckGraceMinutes:       0,
		GracefulShutdownTimeout: 5 * time.Second,
		SweepInterval:           time.Hour, // scenario tests drive sweeps manually
	}

	thoughtSink := sink.New(dbClient.Client, pipelineCfg.StuckGrace())
	userContexts := usercontext.New(dbClient.Client)
	cache := semanticcache.New(dbClient.Client, embedder, cacheCfg, testLogger())

	bus, err := fanout.New(ctx, dbClient.DB(), fanoutCfg)
	require.NoError(t, err)
	t.Cleanup(func() { bus.Close(context.Background()) })

	orchestrator := pipeline.New(thoughtSink, cache, userContexts, adapter, nil, bus, testLogger())

	producer, err := broker.NewProducer(brokerCfg)
	require.NoError(t, err)
	t.Cleanup(producer.Close)

	consumer, err := broker.NewConsumer(brokerCfg, orchestrator)
	require.NoError(t, err)
	t.Cleanup(consumer.Close)

	sweep := sweeper.New(dbClient.Client, thoughtSink, producer, bus, pipelineCfg, testLogger())

	app := &TestApp{
		t:            t,
		DB:           dbClient,
		Sink:         thoughtSink,
		UserContexts: userContexts,
		Cache:        cache,
		Bus:          bus,
		Orchestrator: orchestrator,
		Producer:     producer,
		Consumer:     consumer,
		Sweeper:      sweep,
		Adapter:      adapter,
		Embedder:     embedder,
		cfg:          brokerCfg,
		cancel:       cancel,
	}

	t.Cleanup(func() {
		consumer.Stop()
		cancel()
	})

	return app
}

// StartConsumer runs the broker consumer in the background until the test
// ends or StopConsumer is called.
func (a *TestApp) StartConsumer(ctx context.Context) {
	go func() {
		_ = a.Consumer.Run(ctx)
	}()
}

// StopConsumer stops the broker consumer, for scenarios that need to
// inspect in-flight state before a redelivery would otherwise occur.
func (a *TestApp) StopConsumer() {
	a.Consumer.Stop()
}

// RestartConsumer closes the current consumer and joins a fresh one to the
// same consumer group, simulating a process crash and restart: the new
// member resumes from the last committed offset, naturally redelivering
// any message the previous member never committed.
func (a *TestApp) RestartConsumer(ctx context.Context) {
	a.Consumer.Stop()
	a.Consumer.Close()

	consumer, err := broker.NewConsumer(a.cfg, a.Orchestrator)
	require.NoError(a.t, err)
	a.t.Cleanup(consumer.Close)
	a.Consumer = consumer
	a.StartConsumer(ctx)
}

// Submit creates a pending thought row and hands it to the broker, mirroring
// pkg/api's submitThoughtHandler.
func (a *TestApp) Submit(ctx context.Context, thoughtID, userID, text string) {
	require.NoError(a.t, a.Sink.Create(ctx, thoughtID, userID, text))
	env := events.NewCreated(mustUUID(), time.Now(), thoughtID, userID, text, "")
	require.NoError(a.t, a.Producer.Submit(ctx, env))
}

// CreateUserContext inserts a user_context row the pipeline can read.
func (a *TestApp) CreateUserContext(ctx context.Context, userID string, version int, profile map[string]any) {
	err := a.DB.Client.UserContext.Create().
		SetUserID(userID).
		SetVersion(version).
		SetProfile(profile).
		Exec(ctx)
	require.NoError(a.t, err)
}

// DLQMessageCount drains the DLQ topic from its start with a short
// deadline and returns how many messages landed there, for scenarios that
// assert a permanent failure (or its absence) was routed to the DLQ.
func (a *TestApp) DLQMessageCount(ctx context.Context) int {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(a.cfg.BootstrapServers...),
		kgo.ConsumeTopics(a.cfg.DLQTopic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(a.t, err)
	defer client.Close()

	pollCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	count := 0
	for {
		fetches := client.PollFetches(pollCtx)
		if fetches.IsClientClosed() || pollCtx.Err() != nil {
			return count
		}
		if errs := fetches.Errors(); len(errs) > 0 {
			return count
		}
		n := 0
		fetches.EachRecord(func(*kgo.Record) { n++ })
		if n == 0 {
			return count
		}
		count += n
	}
}

// AwaitStatus polls the thought row until it reaches one of the wanted
// terminal statuses or timeout elapses.
func (a *TestApp) AwaitStatus(ctx context.Context, thoughtID string, timeout time.Duration, wanted ...string) *ent.Thought {
	deadline := time.Now().Add(timeout)
	for {
		th, err := a.DB.Client.Thought.Get(ctx, thoughtID)
		require.NoError(a.t, err)
		for _, w := range wanted {
			if string(th.Status) == w {
				return th
			}
		}
		if time.Now().After(deadline) {
			a.t.Fatalf("thought %s did not reach status %v within %s (currently %s)", thoughtID, wanted, timeout, th.Status)
		}
		time.Sleep(20 * time.Millisecond)
	}
}
