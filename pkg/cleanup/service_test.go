package cleanup

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/thoughtflow/ent"
	testdb "github.com/codeready-toolchain/thoughtflow/test/database"
)

func createCacheEntry(t *testing.T, ctx context.Context, client *ent.Client, expiresAt time.Time) string {
	t.Helper()
	id := uuid.New().String()
	err := client.CacheEntry.Create().
		SetID(id).
		SetUserID("user-1").
		SetText("some thought").
		SetEmbedding([]float32{0.1, 0.2}).
		SetOutputs(map[string]any{}).
		SetExpiresAt(expiresAt).
		Exec(ctx)
	require.NoError(t, err)
	return id
}

func TestPurgeExpiredDeletesOnlyExpiredEntries(t *testing.T) {
	client := testdb.NewTestClient(t)
	ctx := context.Background()

	expired := createCacheEntry(t, ctx, client.Client, time.Now().Add(-time.Hour))
	live := createCacheEntry(t, ctx, client.Client, time.Now().Add(time.Hour))

	svc := NewService(client.Client, slog.Default())
	svc.purgeExpired(ctx)

	_, err := client.Client.CacheEntry.Get(ctx, expired)
	assert.Error(t, err)

	_, err = client.Client.CacheEntry.Get(ctx, live)
	assert.NoError(t, err)
}
