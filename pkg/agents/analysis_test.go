package agents

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/thoughtflow/pkg/sink"
	"github.com/codeready-toolchain/thoughtflow/pkg/usercontext"
)

func TestAnalysisName(t *testing.T) {
	assert.Equal(t, sink.StageAnalysis, Analysis{}.Name())
}

func TestAnalysisParsesWellFormedOutputAndSeesPriorStage(t *testing.T) {
	adapter := &fakeAdapter{responses: []string{
		`{"goal_alignment": "high", "underlying_needs": [], "pattern_connections": [], "realistic_assessment": "string", "unspoken_factors": []}`,
	}}
	in := Input{
		ThoughtText: "need to call the plumber",
		UserContext: &usercontext.Context{UserID: "u1", Profile: map[string]any{}},
		Prior: map[sink.StageName]map[string]any{
			sink.StageClassification: {"type": "task"},
		},
	}
	out, err := Analysis{}.Run(context.Background(), adapter, in)
	require.NoError(t, err)
	assert.Equal(t, "high", out["goal_alignment"])
}
