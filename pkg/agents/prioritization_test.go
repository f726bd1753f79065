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

func TestPrioritizationName(t *testing.T) {
	assert.Equal(t, sink.StagePriority, Prioritization{}.Name())
}

func TestPrioritizationAcceptsFixedLevel(t *testing.T) {
	adapter := &fakeAdapter{responses: []string{
		`{"priority_level": "High", "urgency_reasoning": "string", "strategic_fit": "string", "recommended_timeline": {"start": "today", "duration": "1d", "checkpoints": []}, "final_recommendation": "do it"}`,
	}}
	in := Input{
		ThoughtText: "need to call the plumber",
		UserContext: &usercontext.Context{UserID: "u1", Profile: map[string]any{}},
		Prior:       map[sink.StageName]map[string]any{},
	}
	out, err := Prioritization{}.Run(context.Background(), adapter, in)
	require.NoError(t, err)
	assert.Equal(t, "High", out["priority_level"])
}

func TestPrioritizationRejectsLevelOutsideFixedSet(t *testing.T) {
	adapter := &fakeAdapter{responses: []string{
		`{"priority_level": "Urgent", "urgency_reasoning": "string", "strategic_fit": "string", "recommended_timeline": {}, "final_recommendation": "do it"}`,
	}}
	in := Input{
		ThoughtText: "thought",
		UserContext: &usercontext.Context{UserID: "u1", Profile: map[string]any{}},
		Prior:       map[sink.StageName]map[string]any{},
	}
	_, err := Prioritization{}.Run(context.Background(), adapter, in)
	require.Error(t, err)
	kind, ok := taxonomy.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, taxonomy.KindInvariant, kind)
}
