package agents

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/thoughtflow/pkg/sink"
	"github.com/codeready-toolchain/thoughtflow/pkg/usercontext"
)

func TestActionPlanName(t *testing.T) {
	assert.Equal(t, sink.StageActionPlan, ActionPlan{}.Name())
}

func TestActionPlanParsesWellFormedOutput(t *testing.T) {
	adapter := &fakeAdapter{responses: []string{
		`{"quick_wins": ["call today"], "main_actions": [{"action": "schedule", "duration": "15m", "prerequisites": [], "obstacles": [], "mitigation": "", "timing_hint": "morning"}], "delegation_opportunities": [], "success_metrics": []}`,
	}}
	in := Input{
		ThoughtText: "need to call the plumber",
		UserContext: &usercontext.Context{UserID: "u1", Profile: map[string]any{}},
		Prior:       map[sink.StageName]map[string]any{},
	}
	out, err := ActionPlan{}.Run(context.Background(), adapter, in)
	require.NoError(t, err)
	assert.Contains(t, out, "quick_wins")
	assert.Contains(t, out, "main_actions")
}
