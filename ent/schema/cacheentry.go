package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// CacheEntry holds the schema definition for the CacheEntry entity: a
// per-user semantic-cache row guarding the pipeline from repeat work.
type CacheEntry struct {
	ent.Schema
}

// Fields of the CacheEntry.
func (CacheEntry) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("cache_id").
			Unique().
			Immutable(),
		field.String("user_id").
			Immutable().
			Comment("Entries are never shared across users"),
		field.Text("text").
			Immutable().
			Comment("Raw thought text the entry was keyed on"),
		field.JSON("embedding", []float32{}).
			Immutable().
			Comment("Embedding of text at store time"),
		field.JSON("outputs", map[string]interface{}{}).
			Immutable().
			Comment("The full five-stage output bundle a prior run produced"),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
		field.Time("expires_at").
			Comment("Fixed TTL from creation; expired entries are invisible to lookup"),
		field.Int("hit_count").
			Default(0).
			NonNegative(),
		field.Time("last_hit_at").
			Optional().
			Nillable(),
	}
}

// Indexes of the CacheEntry.
func (CacheEntry) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("user_id", "expires_at"),
	}
}
