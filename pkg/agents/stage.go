// Package agents implements the five fixed pipeline stages [orig §4.4].
// Each stage shares a uniform shape: it receives the thought text, the
// user context, and all prior stage outputs, and returns a
// stage-specific structured object validated against a fixed shape.
package agents

import (
	"context"

	"github.com/codeready-toolchain/thoughtflow/pkg/llmadapter"
	"github.com/codeready-toolchain/thoughtflow/pkg/sink"
	"github.com/codeready-toolchain/thoughtflow/pkg/usercontext"
)

// Input is what every stage receives.
type Input struct {
	ThoughtText string
	UserContext *usercontext.Context
	Prior       map[sink.StageName]map[string]any
}

// Stage produces one of the five fixed pipeline outputs.
type Stage interface {
	Name() sink.StageName
	Run(ctx context.Context, adapter llmadapter.Adapter, in Input) (map[string]any, error)
}
