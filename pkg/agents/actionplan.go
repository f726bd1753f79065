package agents

import (
	"context"
	"fmt"

	"github.com/codeready-toolchain/thoughtflow/pkg/llmadapter"
	"github.com/codeready-toolchain/thoughtflow/pkg/sink"
)

// ActionPlan is agent A4: quick wins, main actions (each with duration,
// prerequisites, obstacles, mitigation, and a timing hint drawn from the
// user's energy/time constraints), delegation opportunities, and success
// metrics [orig §4.4 A4].
type ActionPlan struct{}

func (ActionPlan) Name() sink.StageName { return sink.StageActionPlan }

func (ActionPlan) Run(ctx context.Context, adapter llmadapter.Adapter, in Input) (map[string]any, error) {
	system := fmt.Sprintf(
		`You are the action-plan stage of a personal-thought analysis pipeline.
Given the user's profile, the raw thought, and prior stage outputs, emit ONLY a JSON object with this exact shape:
{"quick_wins": [], "main_actions": [{"action": "string", "duration": "string", "prerequisites": [], "obstacles": [], "mitigation": "string", "timing_hint": "string"}], "delegation_opportunities": [], "success_metrics": []}
Draw each main action's timing_hint from the user's stated energy levels and time constraints in their profile.
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
		if err := requireFields(out, "quick_wins", "main_actions", "delegation_opportunities", "success_metrics"); err != nil {
			return nil, err
		}
		return out, nil
	})
}
