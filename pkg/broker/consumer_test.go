package broker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/codeready-toolchain/thoughtflow/pkg/taxonomy"
)

type stubOrchestrator struct {
	err error
}

func (s *stubOrchestrator) Run(ctx context.Context, thoughtID, userID string) error {
	return s.err
}

func TestTransientFailureIsNotPermanent(t *testing.T) {
	err := taxonomy.New(taxonomy.KindInProgress, "already processing")
	kind, ok := taxonomy.KindOf(err)
	assert.True(t, ok)
	assert.True(t, kind.IsTransient())
	assert.False(t, kind.IsPermanent())
}

func TestPermanentFailureRoutesToDLQByKind(t *testing.T) {
	err := taxonomy.New(taxonomy.KindUnknownUser, "no such user")
	kind, ok := taxonomy.KindOf(err)
	assert.True(t, ok)
	assert.True(t, kind.IsPermanent())
	assert.False(t, kind.IsTransient())
}
