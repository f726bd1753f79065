package agents

import (
	"context"
	"fmt"

	"github.com/codeready-toolchain/thoughtflow/pkg/llmadapter"
	"github.com/codeready-toolchain/thoughtflow/pkg/sink"
)

// Classification is agent A1: classifies the thought's type, urgency,
// entities, emotional tone, and implied needs [orig §4.4 A1].
type Classification struct{}

func (Classification) Name() sink.StageName { return sink.StageClassification }

func (Classification) Run(ctx context.Context, adapter llmadapter.Adapter, in Input) (map[string]any, error) {
	system := fmt.Sprintf(
		`You are the classification stage of a personal-thought analysis pipeline.
Given the user's profile and a raw thought, emit ONLY a JSON object with this exact shape:
{"type": "task|problem|idea|question|observation|emotion", "urgency": "immediate|soon|eventually|never", "entities": {"people": [], "dates": [], "places": [], "topics": []}, "emotional_tone": "string", "implied_needs": ["string"]}
User profile: %s`,
		userContextJSON(in.UserContext.Profile),
	)
	user := in.ThoughtText

	return withRetry(ctx, 2, func(ctx context.Context) (map[string]any, error) {
		out, err := callAndParseJSON(ctx, adapter, system, user)
		if err != nil {
			return nil, err
		}
		if err := requireFields(out, "type", "urgency", "entities", "emotional_tone", "implied_needs"); err != nil {
			return nil, err
		}
		return out, nil
	})
}
