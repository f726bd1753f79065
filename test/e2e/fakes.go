package e2e

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"log/slog"
	"math"
	"sync"

	"github.com/google/uuid"

	"github.com/codeready-toolchain/thoughtflow/pkg/llmadapter"
	"github.com/codeready-toolchain/thoughtflow/pkg/taxonomy"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(devNull{}, nil))
}

type devNull struct{}

func (devNull) Write(p []byte) (int, error) { return len(p), nil }

func mustUUID() string { return uuid.New().String() }

// FakeEmbedder deterministically hashes text into a fixed-dimension unit
// vector: identical text always produces an identical vector (so the
// semantic cache's cosine-similarity match is exact), and distinct text
// produces, with overwhelming probability, a near-orthogonal vector (so
// unrelated thoughts never spuriously hit the cache).
type FakeEmbedder struct {
	dim int
}

// NewFakeEmbedder builds a FakeEmbedder with a 16-dimensional vector space.
func NewFakeEmbedder() *FakeEmbedder {
	return &FakeEmbedder{dim: 16}
}

func (e *FakeEmbedder) Dimension() int { return e.dim }

func (e *FakeEmbedder) Close() error { return nil }

func (e *FakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vec := make([]float32, e.dim)
	seed := fnv.New64a()
	for i := 0; i < e.dim; i++ {
		seed.Reset()
		fmt.Fprintf(seed, "%s:%d", text, i)
		// Fold the 64-bit hash into a value in [-1, 1] via a stable LCG step.
		h := seed.Sum64()
		h = h*6364136223846793005 + 1442695040888963407
		vec[i] = float32(int64(h>>11)%2000-1000) / 1000
	}
	normalize(vec)
	return vec, nil
}

func normalize(vec []float32) {
	var sumSq float64
	for _, v := range vec {
		sumSq += float64(v) * float64(v)
	}
	if sumSq == 0 {
		return
	}
	norm := float32(math.Sqrt(sumSq))
	for i := range vec {
		vec[i] /= norm
	}
}

// FakeAdapter returns scripted per-stage-call responses so scenario tests
// can drive the pipeline deterministically [grounded on
// pkg/agents/fakeadapter_test.go's fakeAdapter, exported and extended with
// scriptable transient failures for redelivery scenarios].
type FakeAdapter struct {
	mu    sync.Mutex
	calls int

	// failRemaining counts down the next N Generate calls to fail with
	// failKind before the adapter reverts to succeeding. Set it to
	// agent_internal_retries+1 to exhaust a stage's own retry budget and
	// force the failure to bubble up to the orchestrator, rather than
	// being absorbed by pkg/agents' withRetry.
	failRemaining int
	failKind      taxonomy.Kind
	failMsg       string
}

// NewFakeAdapter builds a FakeAdapter that succeeds on every stage.
func NewFakeAdapter() *FakeAdapter {
	return &FakeAdapter{}
}

// FailCalls scripts the adapter's next n Generate calls to fail with kind,
// after which it reverts to succeeding. n must exceed a stage's internal
// retry budget for the failure to bubble up past pkg/agents' withRetry
// rather than being absorbed by it.
func (f *FakeAdapter) FailCalls(n int, kind taxonomy.Kind, msg string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failRemaining = n
	f.failKind = kind
	f.failMsg = msg
}

func (f *FakeAdapter) Generate(ctx context.Context, in llmadapter.GenerateInput) (llmadapter.GenerateOutput, error) {
	f.mu.Lock()
	f.calls++
	shouldFail := f.failRemaining > 0
	if shouldFail {
		f.failRemaining--
	}
	kind, msg := f.failKind, f.failMsg
	f.mu.Unlock()

	if shouldFail {
		return llmadapter.GenerateOutput{}, taxonomy.New(kind, msg)
	}

	// Stage order is fixed (agents.All()): classification, analysis,
	// value_impact, action_plan, priority. The system prompt names the
	// stage so the fake can script a response without importing pkg/agents.
	content, err := stageResponse(in.System)
	if err != nil {
		return llmadapter.GenerateOutput{}, err
	}
	return llmadapter.GenerateOutput{Content: content}, nil
}

func (f *FakeAdapter) Capabilities() llmadapter.Capabilities {
	return llmadapter.Capabilities{MaxContextTokens: 100000}
}

func (f *FakeAdapter) Close() error { return nil }

// CallCount reports how many Generate calls the adapter has handled so
// far, for scenarios that assert a cache hit skips the LLM entirely.
func (f *FakeAdapter) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// stageResponse picks the canned JSON body matching the stage that built
// this system prompt, identified by a distinctive substring of its prompt
// text (each stage's system prompt names its own output shape).
func stageResponse(system string) (string, error) {
	switch {
	case contains(system, "classification stage"):
		return toJSON(map[string]any{
			"type":            "decision",
			"urgency":         "medium",
			"entities":        []string{"Rust"},
			"emotional_tone":  "curious",
			"implied_needs":   []string{"skill growth"},
		})
	case contains(system, "analysis stage"):
		return toJSON(map[string]any{
			"goal_alignment":       "aligns with stated growth goals",
			"underlying_needs":     []string{"mastery"},
			"pattern_connections":  []string{"prior interest in systems programming"},
			"realistic_assessment": "feasible with consistent practice",
			"unspoken_factors":     []string{"time availability"},
		})
	case contains(system, "value-impact stage"):
		dim := func(score float64, reasoning string) map[string]any {
			return map[string]any{"score": score, "reasoning": reasoning}
		}
		return toJSON(map[string]any{
			"economic":   dim(4, "moderate career upside"),
			"relational": dim(2, "minimal social impact"),
			"legacy":     dim(3, "modest long-term contribution"),
			"health":     dim(1, "no health relevance"),
			"growth":     dim(8, "strong skill-building opportunity"),
		})
	case contains(system, "action-plan stage"):
		return toJSON(map[string]any{
			"quick_wins":               []string{"complete the official Rust book chapter 1"},
			"main_actions":             []string{"build a small CLI project"},
			"delegation_opportunities": []string{},
			"success_metrics":          []string{"ship one working tool"},
		})
	case contains(system, "prioritization stage"):
		return toJSON(map[string]any{
			"priority_level":        "medium",
			"urgency_reasoning":     "no external deadline",
			"strategic_fit":         "supports long-term growth value",
			"recommended_timeline":  "next_quarter",
			"final_recommendation":  "proceed at a measured pace",
		})
	default:
		return "", fmt.Errorf("fake adapter: unrecognized stage prompt")
	}
}

func contains(haystack, needle string) bool {
	return len(haystack) >= len(needle) && indexOf(haystack, needle) >= 0
}

func indexOf(haystack, needle string) int {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return i
		}
	}
	return -1
}

func toJSON(v map[string]any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
