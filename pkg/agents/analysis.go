package agents

import (
	"context"
	"fmt"

	"github.com/codeready-toolchain/thoughtflow/pkg/llmadapter"
	"github.com/codeready-toolchain/thoughtflow/pkg/sink"
)

// Analysis is agent A2: surfaces goal alignment, underlying needs, pattern
// connections, a realistic assessment, and unspoken factors [orig §4.4 A2].
type Analysis struct{}

func (Analysis) Name() sink.StageName { return sink.StageAnalysis }

func (Analysis) Run(ctx context.Context, adapter llmadapter.Adapter, in Input) (map[string]any, error) {
	system := fmt.Sprintf(
		`You are the analysis stage of a personal-thought analysis pipeline.
Given the user's profile, the raw thought, and its classification, emit ONLY a JSON object with this exact shape:
{"goal_alignment": {"aligned_goals": [], "conflicting_goals": [], "reasoning": "string"}, "underlying_needs": [], "pattern_connections": [], "realistic_assessment": {}, "unspoken_factors": []}
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
		if err := requireFields(out, "goal_alignment", "underlying_needs", "pattern_connections", "realistic_assessment", "unspoken_factors"); err != nil {
			return nil, err
		}
		return out, nil
	})
}
