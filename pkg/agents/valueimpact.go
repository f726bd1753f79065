package agents

import (
	"context"
	"fmt"

	"github.com/codeready-toolchain/thoughtflow/pkg/llmadapter"
	"github.com/codeready-toolchain/thoughtflow/pkg/sink"
	"github.com/codeready-toolchain/thoughtflow/pkg/taxonomy"
)

// valueDimensions is the fixed score order A3 emits and the tie-break order
// used when the top score is shared across dimensions [orig §4.4 A3].
var valueDimensions = []string{"economic", "relational", "legacy", "health", "growth"}

// ValueImpact is agent A3: five numeric scores plus a user-context-weighted
// total [orig §4.4 A3].
type ValueImpact struct{}

func (ValueImpact) Name() sink.StageName { return sink.StageValueImpact }

func (ValueImpact) Run(ctx context.Context, adapter llmadapter.Adapter, in Input) (map[string]any, error) {
	system := fmt.Sprintf(
		`You are the value-impact stage of a personal-thought analysis pipeline.
Given the user's profile, the raw thought, and prior stage outputs, score the thought's impact in [0, 10] across exactly these five dimensions: economic, relational, legacy, health, growth.
Emit ONLY a JSON object with this exact shape:
{"economic": {"score": 0, "reasoning": "string"}, "relational": {"score": 0, "reasoning": "string"}, "legacy": {"score": 0, "reasoning": "string"}, "health": {"score": 0, "reasoning": "string"}, "growth": {"score": 0, "reasoning": "string"}}
Do not include a weighted_total field; it is computed downstream.
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
		if err := requireFields(out, valueDimensions...); err != nil {
			return nil, err
		}

		scores, err := extractScores(out)
		if err != nil {
			return nil, err
		}

		weights := valueWeights(in.UserContext.Profile)
		out["weighted_total"] = weightedTotal(scores, weights)
		return out, nil
	})
}

// extractScores pulls the numeric score out of each dimension's object,
// failing validation if any score is missing, non-numeric, or out of range.
func extractScores(out map[string]any) (map[string]float64, error) {
	scores := make(map[string]float64, len(valueDimensions))
	for _, dim := range valueDimensions {
		entry, ok := out[dim].(map[string]any)
		if !ok {
			return nil, taxonomy.New(taxonomy.KindValidationRetry, fmt.Sprintf("dimension %q is not an object", dim))
		}
		score, ok := entry["score"].(float64)
		if !ok {
			return nil, taxonomy.New(taxonomy.KindValidationRetry, fmt.Sprintf("dimension %q has no numeric score", dim))
		}
		if score < 0 || score > 10 {
			return nil, taxonomy.New(taxonomy.KindValidationRetry, fmt.Sprintf("dimension %q score %v out of [0,10]", dim, score))
		}
		scores[dim] = score
	}
	return scores, nil
}

// valueWeights reads the user's value-ranking weights from their profile,
// defaulting every dimension to an equal weight of 1 if the profile omits
// the ranking or a given dimension.
func valueWeights(profile map[string]any) map[string]float64 {
	weights := make(map[string]float64, len(valueDimensions))
	for _, dim := range valueDimensions {
		weights[dim] = 1
	}

	ranking, ok := profile["value_ranking"].(map[string]any)
	if !ok {
		return weights
	}
	for _, dim := range valueDimensions {
		if w, ok := ranking[dim].(float64); ok && w > 0 {
			weights[dim] = w
		}
	}
	return weights
}

// weightedTotal computes the sum of each score times its matching weight,
// divided by the sum of weights [orig §4.4 A3].
func weightedTotal(scores, weights map[string]float64) float64 {
	var weightedSum, totalWeight float64
	for _, dim := range valueDimensions {
		weightedSum += scores[dim] * weights[dim]
		totalWeight += weights[dim]
	}
	if totalWeight == 0 {
		return 0
	}
	return weightedSum / totalWeight
}

// TopDimension returns the dimension with the highest score, breaking ties
// on the fixed valueDimensions order [orig §4.4 A3].
func TopDimension(scores map[string]float64) string {
	top := valueDimensions[0]
	for _, dim := range valueDimensions[1:] {
		if scores[dim] > scores[top] {
			top = dim
		}
	}
	return top
}
