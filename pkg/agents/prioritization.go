package agents

import (
	"context"
	"fmt"

	"github.com/codeready-toolchain/thoughtflow/pkg/llmadapter"
	"github.com/codeready-toolchain/thoughtflow/pkg/sink"
	"github.com/codeready-toolchain/thoughtflow/pkg/taxonomy"
)

// priorityLevels is the fixed set A5 may emit for priority_level
// [orig §4.4 A5].
var priorityLevels = map[string]bool{
	"Critical": true, "High": true, "Medium": true, "Low": true, "Defer": true,
}

// Prioritization is agent A5: the final priority level, reasoning,
// strategic fit, a recommended timeline, and the final recommendation
// [orig §4.4 A5].
type Prioritization struct{}

func (Prioritization) Name() sink.StageName { return sink.StagePriority }

func (Prioritization) Run(ctx context.Context, adapter llmadapter.Adapter, in Input) (map[string]any, error) {
	system := fmt.Sprintf(
		`You are the prioritization stage of a personal-thought analysis pipeline, the final stage.
Given the user's profile, the raw thought, and all four prior stage outputs, emit ONLY a JSON object with this exact shape:
{"priority_level": "Critical|High|Medium|Low|Defer", "urgency_reasoning": "string", "strategic_fit": "string", "recommended_timeline": {"start": "string", "duration": "string", "checkpoints": []}, "final_recommendation": "string"}
User profile: %s
Prior stage outputs: %s`,
		userContextJSON(in.UserContext.Profile),
		priorOutputsJSON(in.Prior),
	)
	user := in.ThoughtText

	return withRetry(ctx, 2, func(ctx context.Context) (map[string]any, error) {
		out, err := callAndParseJSON(ctx, adapter, system, user)
		if err != nil {
			return nil, err
		}
		if err := requireFields(out, "priority_level", "urgency_reasoning", "strategic_fit", "recommended_timeline", "final_recommendation"); err != nil {
			return nil, err
		}
		level, _ := out["priority_level"].(string)
		if !priorityLevels[level] {
			return nil, taxonomy.New(taxonomy.KindValidationRetry, fmt.Sprintf("priority_level %q is not one of the fixed levels", level))
		}
		return out, nil
	})
}
