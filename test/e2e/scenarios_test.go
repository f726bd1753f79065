package e2e

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/thoughtflow/pkg/events"
	"github.com/codeready-toolchain/thoughtflow/pkg/sink"
	"github.com/codeready-toolchain/thoughtflow/pkg/taxonomy"
)

const awaitTimeout = 15 * time.Second

// eventRecorder collects envelopes delivered to a subscription under a
// mutex, so a running test can snapshot them concurrently with delivery.
type eventRecorder struct {
	mu       sync.Mutex
	envelopes []*events.Envelope
}

func (r *eventRecorder) add(env *events.Envelope) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.envelopes = append(r.envelopes, env)
}

func (r *eventRecorder) snapshot() []*events.Envelope {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*events.Envelope, len(r.envelopes))
	copy(out, r.envelopes)
	return out
}

// collectEvents subscribes to userID's updates channel and returns a
// recorder that fills in as envelopes arrive, plus the unsubscribe func.
func collectEvents(t *testing.T, ctx context.Context, app *TestApp, userID string) (*eventRecorder, func()) {
	t.Helper()
	ch, cancel, err := app.Bus.Subscribe(ctx, userID)
	require.NoError(t, err)

	rec := &eventRecorder{}
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case env := <-ch:
				rec.add(env)
			case <-stop:
				return
			}
		}
	}()

	return rec, func() {
		close(stop)
		<-done
		cancel()
	}
}

func eventTypes(envs []*events.Envelope) []events.Type {
	types := make([]events.Type, len(envs))
	for i, e := range envs {
		types[i] = e.EventType
	}
	return types
}

// S1: happy path, cache miss.
func TestScenarioHappyPathCacheMiss(t *testing.T) {
	app := NewTestApp(t, nil, nil)
	ctx := context.Background()
	app.StartConsumer(ctx)

	const userID = "u1"
	app.CreateUserContext(ctx, userID, 1, map[string]any{"value_ranking": map[string]any{}})

	received, stop := collectEvents(t, ctx, app, userID)
	defer stop()

	thoughtID := uuid.New().String()
	app.Submit(ctx, thoughtID, userID, "Should I learn Rust?")

	th := app.AwaitStatus(ctx, thoughtID, awaitTimeout, "completed", "failed")
	require.Equal(t, "completed", string(th.Status))

	assert.NotNil(t, th.Classification)
	assert.NotNil(t, th.Analysis)
	assert.NotNil(t, th.ValueImpact)
	assert.NotNil(t, th.ActionPlan)
	assert.NotNil(t, th.Priority)
	assert.NotNil(t, th.Embedding)

	time.Sleep(200 * time.Millisecond) // let the last fan-out notify land
	types := eventTypes(received.snapshot())
	require.Contains(t, types, events.TypeProcessing)
	require.Contains(t, types, events.TypeCompleted)
	agentEvents := 0
	for _, ty := range types {
		if ty == events.TypeAgentCompleted {
			agentEvents++
		}
	}
	assert.Equal(t, 5, agentEvents)

	envs := received.snapshot()
	last := envs[len(envs)-1]
	require.Equal(t, events.TypeCompleted, last.EventType)
	assert.False(t, last.Completed.CacheHit)

	count, err := app.DB.Client.CacheEntry.Query().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

// S2: happy path, cache hit. Depends on S1-equivalent priming within the
// same test so it is self-contained rather than order-dependent.
func TestScenarioHappyPathCacheHit(t *testing.T) {
	app := NewTestApp(t, nil, nil)
	ctx := context.Background()
	app.StartConsumer(ctx)

	const userID = "u1-cache"
	app.CreateUserContext(ctx, userID, 1, map[string]any{})

	const text = "Should I learn Rust?"

	first := uuid.New().String()
	app.Submit(ctx, first, userID, text)
	app.AwaitStatus(ctx, first, awaitTimeout, "completed", "failed")

	callsBefore := app.Adapter.CallCount()

	received, stop := collectEvents(t, ctx, app, userID)
	defer stop()

	second := uuid.New().String()
	app.Submit(ctx, second, userID, text)
	th := app.AwaitStatus(ctx, second, awaitTimeout, "completed", "failed")
	require.Equal(t, "completed", string(th.Status))

	assert.Equal(t, callsBefore, app.Adapter.CallCount(), "cache hit must not invoke the LLM adapter")

	firstThought, err := app.DB.Client.Thought.Get(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, firstThought.Classification, th.Classification)
	assert.Equal(t, firstThought.ValueImpact, th.ValueImpact)

	time.Sleep(200 * time.Millisecond)
	types := eventTypes(received.snapshot())
	assert.Contains(t, types, events.TypeProcessing)
	for _, ty := range types {
		assert.NotEqual(t, events.TypeAgentCompleted, ty, "cache hit must not emit per-agent progress")
	}
	envs := received.snapshot()
	last := envs[len(envs)-1]
	require.Equal(t, events.TypeCompleted, last.EventType)
	assert.True(t, last.Completed.CacheHit)
}

// S3: a transient failure exhausts a stage's internal retries and bubbles
// up, leaving the message uncommitted; a consumer restart (simulating
// redelivery after a crash) completes it on the second delivery.
func TestScenarioTransientRetrySucceedsOnRedelivery(t *testing.T) {
	app := NewTestApp(t, nil, nil)
	ctx := context.Background()

	const userID = "u2"
	app.CreateUserContext(ctx, userID, 1, map[string]any{})

	// agent_internal_retries=2 means 3 total attempts per stage; fail all
	// three so the error bubbles past pkg/agents' withRetry.
	app.Adapter.FailCalls(3, taxonomy.KindTimeout, "simulated timeout")

	app.StartConsumer(ctx)
	thoughtID := uuid.New().String()
	app.Submit(ctx, thoughtID, userID, "Should I change careers?")

	require.Eventually(t, func() bool {
		th, err := app.DB.Client.Thought.Get(ctx, thoughtID)
		require.NoError(t, err)
		return string(th.Status) == "processing" && th.AttemptCount >= 1 && th.Classification == nil
	}, awaitTimeout, 20*time.Millisecond)

	app.RestartConsumer(ctx)

	th := app.AwaitStatus(ctx, thoughtID, awaitTimeout, "completed", "failed")
	require.Equal(t, "completed", string(th.Status))
	assert.Equal(t, 2, th.AttemptCount)
	assert.NotNil(t, th.Classification)

	dlqCount := app.DLQMessageCount(ctx)
	assert.Equal(t, 0, dlqCount)
}

// S4: a thought for an unknown user fails permanently and is routed to the
// DLQ with the original envelope and a failure reason.
func TestScenarioPermanentFailureRoutesToDLQ(t *testing.T) {
	app := NewTestApp(t, nil, nil)
	ctx := context.Background()
	app.StartConsumer(ctx)

	const userID = "unknown-user"
	received, stop := collectEvents(t, ctx, app, userID)
	defer stop()

	thoughtID := uuid.New().String()
	app.Submit(ctx, thoughtID, userID, "Anything")

	th := app.AwaitStatus(ctx, thoughtID, awaitTimeout, "completed", "failed")
	require.Equal(t, "failed", string(th.Status))
	require.NotNil(t, th.ErrorKind)
	assert.Equal(t, string(taxonomy.KindUnknownUser), *th.ErrorKind)

	time.Sleep(200 * time.Millisecond)
	types := eventTypes(received.snapshot())
	require.Contains(t, types, events.TypeFailed)

	assert.Equal(t, 1, app.DLQMessageCount(ctx))
}

// S5: a thought crashes after A2's output is persisted, leaving it stuck in
// "processing"; the recovery sweeper republishes it, and the redelivered
// run continues from A3 through completion.
func TestScenarioCrashBetweenStagesSweeperRecovery(t *testing.T) {
	app := NewTestApp(t, nil, nil)
	ctx := context.Background()

	const userID = "u3"
	app.CreateUserContext(ctx, userID, 1, map[string]any{})

	thoughtID := uuid.New().String()
	require.NoError(t, app.Sink.Create(ctx, thoughtID, userID, "Should I move cities?"))
	require.NoError(t, app.Sink.BeginProcessing(ctx, thoughtID))
	require.NoError(t, app.Sink.WriteStage(ctx, thoughtID, sink.StageClassification, map[string]any{
		"type": "decision", "urgency": "low", "entities": []string{}, "emotional_tone": "neutral", "implied_needs": []string{},
	}))
	require.NoError(t, app.Sink.WriteStage(ctx, thoughtID, sink.StageAnalysis, map[string]any{
		"goal_alignment": "unclear", "underlying_needs": []string{}, "pattern_connections": []string{},
		"realistic_assessment": "uncertain", "unspoken_factors": []string{},
	}))

	stuck, err := app.DB.Client.Thought.Get(ctx, thoughtID)
	require.NoError(t, err)
	require.Equal(t, "processing", string(stuck.Status))
	require.NotNil(t, stuck.Classification)
	require.NotNil(t, stuck.Analysis)
	require.Nil(t, stuck.ValueImpact)
	require.Nil(t, stuck.ActionPlan)
	require.Nil(t, stuck.Priority)

	app.StartConsumer(ctx)
	require.NoError(t, app.Sweeper.RecoverStartupOrphans(ctx))

	th := app.AwaitStatus(ctx, thoughtID, awaitTimeout, "completed", "failed")
	require.Equal(t, "completed", string(th.Status))
	assert.NotNil(t, th.Classification)
	assert.NotNil(t, th.Analysis)
	assert.NotNil(t, th.ValueImpact)
	assert.NotNil(t, th.ActionPlan)
	assert.NotNil(t, th.Priority)

	count, err := app.DB.Client.CacheEntry.Query().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

// S6: submitting several thoughts in rapid succession for two different
// users preserves per-user completion order, with no ordering constraint
// across users.
func TestScenarioOrderingUnderTwoParallelUsers(t *testing.T) {
	app := NewTestApp(t, nil, nil)
	ctx := context.Background()
	app.StartConsumer(ctx)

	const u4, u5 = "u4", "u5"
	app.CreateUserContext(ctx, u4, 1, map[string]any{})
	app.CreateUserContext(ctx, u5, 1, map[string]any{})

	submitThree := func(userID string) []string {
		ids := make([]string, 3)
		for i := range ids {
			ids[i] = uuid.New().String()
			app.Submit(ctx, ids[i], userID, "thought")
		}
		return ids
	}

	u4Events, stop4 := collectEvents(t, ctx, app, u4)
	defer stop4()
	u5Events, stop5 := collectEvents(t, ctx, app, u5)
	defer stop5()

	u4IDs := submitThree(u4)
	u5IDs := submitThree(u5)

	for _, id := range append(append([]string{}, u4IDs...), u5IDs...) {
		app.AwaitStatus(ctx, id, awaitTimeout, "completed", "failed")
	}
	time.Sleep(300 * time.Millisecond)

	assertCompletedOrder(t, u4Events.snapshot(), u4IDs)
	assertCompletedOrder(t, u5Events.snapshot(), u5IDs)
}

func assertCompletedOrder(t *testing.T, envs []*events.Envelope, wantOrder []string) {
	t.Helper()
	var gotOrder []string
	for _, e := range envs {
		if e.EventType == events.TypeCompleted {
			gotOrder = append(gotOrder, e.ThoughtID)
		}
	}
	assert.Equal(t, wantOrder, gotOrder)
}
