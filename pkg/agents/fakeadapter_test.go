package agents

import (
	"context"

	"github.com/codeready-toolchain/thoughtflow/pkg/llmadapter"
)

// fakeAdapter returns a fixed sequence of responses, one per call, and then
// repeats the last response for any further call.
type fakeAdapter struct {
	responses []string
	calls     int
}

func (f *fakeAdapter) Generate(ctx context.Context, in llmadapter.GenerateInput) (llmadapter.GenerateOutput, error) {
	idx := f.calls
	if idx >= len(f.responses) {
		idx = len(f.responses) - 1
	}
	f.calls++
	return llmadapter.GenerateOutput{Content: f.responses[idx]}, nil
}

func (f *fakeAdapter) Capabilities() llmadapter.Capabilities {
	return llmadapter.Capabilities{MaxContextTokens: 100000}
}

func (f *fakeAdapter) Close() error { return nil }
