package sink

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/codeready-toolchain/thoughtflow/ent"
)

func TestStageAlreadySetReflectsNonNilField(t *testing.T) {
	th := &ent.Thought{Classification: map[string]any{"type": "task"}}
	assert.True(t, stageAlreadySet(th, StageClassification))
	assert.False(t, stageAlreadySet(th, StageAnalysis))
}

func TestStagesListsAllFiveInPipelineOrder(t *testing.T) {
	assert.Equal(t, []StageName{
		StageClassification,
		StageAnalysis,
		StageValueImpact,
		StageActionPlan,
		StagePriority,
	}, Stages)
}
