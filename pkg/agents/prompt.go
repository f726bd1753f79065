package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/codeready-toolchain/thoughtflow/pkg/llmadapter"
	"github.com/codeready-toolchain/thoughtflow/pkg/sink"
	"github.com/codeready-toolchain/thoughtflow/pkg/taxonomy"
)

// callAndParseJSON sends a single generation request with system and user
// turns, then decodes the model's response as JSON into a map. Malformed
// JSON is a validation_retry failure, reparseable within the stage's
// internal retry budget [orig §4.4].
func callAndParseJSON(ctx context.Context, adapter llmadapter.Adapter, system, user string) (map[string]any, error) {
	out, err := adapter.Generate(ctx, llmadapter.GenerateInput{
		System:   system,
		Messages: []llmadapter.Message{{Role: "user", Content: user}},
	})
	if err != nil {
		return nil, err
	}

	var parsed map[string]any
	if err := json.Unmarshal([]byte(extractJSON(out.Content)), &parsed); err != nil {
		return nil, taxonomy.Wrap(taxonomy.KindValidationRetry, "stage output was not valid JSON", err)
	}
	return parsed, nil
}

// extractJSON strips a markdown code fence around a JSON body, if present.
// Providers frequently wrap structured output in ```json ... ``` even when
// instructed not to.
func extractJSON(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	return strings.TrimSpace(trimmed)
}

// requireFields returns a validation_retry failure if any of the named
// top-level keys is missing from out.
func requireFields(out map[string]any, fields ...string) error {
	for _, f := range fields {
		if _, ok := out[f]; !ok {
			return taxonomy.New(taxonomy.KindValidationRetry, fmt.Sprintf("missing required field %q", f))
		}
	}
	return nil
}

// userContextJSON renders the user context profile as a compact JSON blob
// for inclusion in a stage's system prompt.
func userContextJSON(profile map[string]any) string {
	b, err := json.Marshal(profile)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// priorOutputsJSON renders the stage outputs produced so far as JSON, for
// stages that build on earlier stages' results.
func priorOutputsJSON(prior map[sink.StageName]map[string]any) string {
	b, err := json.Marshal(prior)
	if err != nil {
		return "{}"
	}
	return string(b)
}
