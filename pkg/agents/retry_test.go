package agents

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/codeready-toolchain/thoughtflow/pkg/taxonomy"
)

func TestWithRetrySucceedsOnFirstAttempt(t *testing.T) {
	calls := 0
	out, err := withRetry(context.Background(), 2, func(ctx context.Context) (map[string]any, error) {
		calls++
		return map[string]any{"ok": true}, nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, map[string]any{"ok": true}, out)
}

func TestWithRetryRecoversAfterTransientFailures(t *testing.T) {
	calls := 0
	out, err := withRetry(context.Background(), 2, func(ctx context.Context) (map[string]any, error) {
		calls++
		if calls < 3 {
			return nil, taxonomy.New(taxonomy.KindValidationRetry, "bad output")
		}
		return map[string]any{"ok": true}, nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, map[string]any{"ok": true}, out)
}

func TestWithRetryBubblesPermanentFailureImmediately(t *testing.T) {
	calls := 0
	_, err := withRetry(context.Background(), 2, func(ctx context.Context) (map[string]any, error) {
		calls++
		return nil, taxonomy.New(taxonomy.KindContentPolicy, "refused")
	})
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
	kind, ok := taxonomy.KindOf(err)
	assert.True(t, ok)
	assert.Equal(t, taxonomy.KindContentPolicy, kind)
}

func TestWithRetryExhaustedValidationBecomesPermanent(t *testing.T) {
	_, err := withRetry(context.Background(), 2, func(ctx context.Context) (map[string]any, error) {
		return nil, taxonomy.New(taxonomy.KindValidationRetry, "still bad")
	})
	assert.Error(t, err)
	kind, ok := taxonomy.KindOf(err)
	assert.True(t, ok)
	assert.Equal(t, taxonomy.KindInvariant, kind)
}

func TestWithRetryExhaustedTransientStaysTransient(t *testing.T) {
	_, err := withRetry(context.Background(), 2, func(ctx context.Context) (map[string]any, error) {
		return nil, taxonomy.New(taxonomy.KindNetwork, "still down")
	})
	assert.Error(t, err)
	kind, ok := taxonomy.KindOf(err)
	assert.True(t, ok)
	assert.Equal(t, taxonomy.KindNetwork, kind)
}
