// Package pipeline implements the orchestrator: the single place that
// drives a thought from submission through the five agent stages to a
// terminal state, short-circuiting on a semantic cache hit [orig §4.3].
package pipeline

import (
	"context"

	"github.com/codeready-toolchain/thoughtflow/pkg/events"
)

// Publisher is the narrow slice of the fan-out bus the orchestrator
// depends on, kept separate from pkg/fanout so pipeline tests can stub it
// without importing the Postgres LISTEN/NOTIFY transport.
type Publisher interface {
	Publish(ctx context.Context, userID string, env *events.Envelope) error
}
