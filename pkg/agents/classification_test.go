package agents

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/thoughtflow/pkg/sink"
	"github.com/codeready-toolchain/thoughtflow/pkg/taxonomy"
	"github.com/codeready-toolchain/thoughtflow/pkg/usercontext"
)

func TestClassificationName(t *testing.T) {
	assert.Equal(t, sink.StageClassification, Classification{}.Name())
}

func TestClassificationParsesWellFormedOutput(t *testing.T) {
	adapter := &fakeAdapter{responses: []string{
		`{"type": "task", "urgency": "soon", "entities": {"people": [], "dates": [], "places": [], "topics": []}, "emotional_tone": "neutral", "implied_needs": ["rest"]}`,
	}}
	in := Input{
		ThoughtText: "need to call the plumber",
		UserContext: &usercontext.Context{UserID: "u1", Profile: map[string]any{}},
		Prior:       map[sink.StageName]map[string]any{},
	}
	out, err := Classification{}.Run(context.Background(), adapter, in)
	require.NoError(t, err)
	assert.Equal(t, "task", out["type"])
	assert.Equal(t, "soon", out["urgency"])
}

func TestClassificationRetriesOnMissingField(t *testing.T) {
	adapter := &fakeAdapter{responses: []string{
		`{"type": "task"}`,
		`{"type": "task", "urgency": "soon", "entities": {}, "emotional_tone": "neutral", "implied_needs": []}`,
	}}
	in := Input{
		ThoughtText: "thought",
		UserContext: &usercontext.Context{UserID: "u1", Profile: map[string]any{}},
		Prior:       map[sink.StageName]map[string]any{},
	}
	out, err := Classification{}.Run(context.Background(), adapter, in)
	require.NoError(t, err)
	assert.Equal(t, 2, adapter.calls)
	assert.Equal(t, "task", out["type"])
}

func TestClassificationExhaustsRetriesAsInvariant(t *testing.T) {
	adapter := &fakeAdapter{responses: []string{`{"type": "task"}`}}
	in := Input{
		ThoughtText: "thought",
		UserContext: &usercontext.Context{UserID: "u1", Profile: map[string]any{}},
		Prior:       map[sink.StageName]map[string]any{},
	}
	_, err := Classification{}.Run(context.Background(), adapter, in)
	require.Error(t, err)
	kind, ok := taxonomy.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, taxonomy.KindInvariant, kind)
}
