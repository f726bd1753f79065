// Package semanticcache implements the per-user vector-similarity cache
// that guards the pipeline from repeat work [orig §4.8]. Every operation
// is best-effort: any internal error is swallowed and downgraded to a miss,
// never surfaced as a thought failure.
package semanticcache

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/codeready-toolchain/thoughtflow/ent"
	"github.com/codeready-toolchain/thoughtflow/ent/cacheentry"
	"github.com/codeready-toolchain/thoughtflow/pkg/config"
	"github.com/codeready-toolchain/thoughtflow/pkg/embedding"
)

// Result is what a successful lookup returns on a hit.
type Result struct {
	Outputs map[string]any
}

// Cache is the semantic cache over a per-user collection of cache entries.
type Cache struct {
	client    *ent.Client
	embedder  embedding.Adapter
	threshold float64
	ttl       time.Duration
	logger    *slog.Logger
}

// New builds a Cache. embedder may be embedding.Noop{}, in which case every
// lookup and store call is a no-op miss.
func New(client *ent.Client, embedder embedding.Adapter, cfg *config.CacheConfig, logger *slog.Logger) *Cache {
	return &Cache{
		client:    client,
		embedder:  embedder,
		threshold: cfg.SimilarityThreshold,
		ttl:       cfg.TTL(),
		logger:    logger,
	}
}

// Lookup embeds text and searches for a similar, non-expired entry
// belonging to userID. Any internal error (including embedder failure)
// produces a miss, never an error return.
func (c *Cache) Lookup(ctx context.Context, userID, text string) (*Result, []float32, bool) {
	vec, err := c.embedder.Embed(ctx, text)
	if err != nil {
		c.logger.Debug("semantic cache lookup: embedding unavailable, treating as miss", "error", err)
		return nil, nil, false
	}

	entries, err := c.client.CacheEntry.Query().
		Where(
			cacheentry.UserID(userID),
			cacheentry.ExpiresAtGT(time.Now()),
		).
		All(ctx)
	if err != nil {
		c.logger.Debug("semantic cache lookup: query failed, treating as miss", "error", err)
		return nil, vec, false
	}

	best, bestSim, ok := bestMatch(entries, vec, c.threshold)
	if !ok {
		return nil, vec, false
	}

	_, err = c.client.CacheEntry.UpdateOne(best).
		AddHitCount(1).
		SetLastHitAt(time.Now()).
		Save(ctx)
	if err != nil {
		c.logger.Debug("semantic cache lookup: hit-count update failed", "error", err)
	}

	c.logger.Debug("semantic cache hit", "user_id", userID, "similarity", bestSim)
	return &Result{Outputs: best.Outputs}, vec, true
}

// bestMatch returns the highest-similarity entry at or above threshold,
// breaking ties on the most recent created_at.
func bestMatch(entries []*ent.CacheEntry, query []float32, threshold float64) (*ent.CacheEntry, float64, bool) {
	var best *ent.CacheEntry
	var bestSim float64

	for _, e := range entries {
		sim := cosineSimilarity(query, e.Embedding)
		if sim < threshold {
			continue
		}
		if best == nil || sim > bestSim || (sim == bestSim && e.CreatedAt.After(best.CreatedAt)) {
			best = e
			bestSim = sim
		}
	}
	if best == nil {
		return nil, 0, false
	}
	return best, bestSim, true
}

// Store writes a new entry for userID. Never deduplicates against existing
// entries; any failure is logged and swallowed.
func (c *Cache) Store(ctx context.Context, userID, text string, vec []float32, outputs map[string]any) {
	if vec == nil {
		return
	}
	_, err := c.client.CacheEntry.Create().
		SetID(uuid.New().String()).
		SetUserID(userID).
		SetText(text).
		SetEmbedding(vec).
		SetOutputs(outputs).
		SetExpiresAt(time.Now().Add(c.ttl)).
		Save(ctx)
	if err != nil {
		c.logger.Debug("semantic cache store failed", "user_id", userID, "error", err)
	}
}

// ReapExpired deletes expired entries for userID. Called lazily on store
// and by the background sweeper; errors are logged, never returned as
// fatal, since a missed reap only costs storage, not correctness.
func (c *Cache) ReapExpired(ctx context.Context, userID string) {
	n, err := c.client.CacheEntry.Delete().
		Where(
			cacheentry.UserID(userID),
			cacheentry.ExpiresAtLTE(time.Now()),
		).
		Exec(ctx)
	if err != nil {
		c.logger.Debug("semantic cache reap failed", "user_id", userID, "error", err)
		return
	}
	if n > 0 {
		c.logger.Debug("semantic cache reaped expired entries", "user_id", userID, "count", n)
	}
}
