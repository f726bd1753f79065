package embedding

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/codeready-toolchain/thoughtflow/pkg/config"
	"github.com/codeready-toolchain/thoughtflow/pkg/taxonomy"
)

func TestNewReturnsNoopForNoneBackend(t *testing.T) {
	adapter := New(&config.EmbeddingConfig{Backend: "none"})
	assert.IsType(t, Noop{}, adapter)
}

func TestNewReturnsNoopForUnrecognizedBackend(t *testing.T) {
	adapter := New(&config.EmbeddingConfig{Backend: "unknown-vendor"})
	assert.IsType(t, Noop{}, adapter)
}

func TestNoopEmbedReturnsCacheUnavailable(t *testing.T) {
	_, err := Noop{}.Embed(context.Background(), "some thought text")
	kind, ok := taxonomy.KindOf(err)
	assert.True(t, ok)
	assert.Equal(t, taxonomy.KindCacheUnavailable, kind)
}

func TestNewReturnsHTTPBackendForHTTPBackend(t *testing.T) {
	adapter := New(&config.EmbeddingConfig{Backend: "http", Dimension: 768, BaseURL: "https://example.test/v1"})
	assert.IsType(t, &HTTPBackend{}, adapter)
	assert.Equal(t, 768, adapter.Dimension())
}
