package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Thought holds the schema definition for the Thought entity: the unit of
// work the broker dispatches and the pipeline fills in stage by stage.
type Thought struct {
	ent.Schema
}

// Fields of the Thought.
func (Thought) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("thought_id").
			Unique().
			Immutable(),
		field.String("user_id").
			Immutable().
			Comment("Opaque user identifier; broker partitioning key"),
		field.Text("text").
			Immutable().
			Comment("Original submitted thought text"),
		field.Enum("status").
			Values("pending", "processing", "completed", "failed").
			Default("pending"),
		field.Int("attempt_count").
			Default(0).
			NonNegative().
			Comment("Incremented on each begin_processing call; never decreases"),
		field.JSON("classification", map[string]interface{}{}).
			Optional().
			Nillable().
			Comment("A1 output, immutable once set"),
		field.JSON("analysis", map[string]interface{}{}).
			Optional().
			Nillable().
			Comment("A2 output, immutable once set"),
		field.JSON("value_impact", map[string]interface{}{}).
			Optional().
			Nillable().
			Comment("A3 output, immutable once set"),
		field.JSON("action_plan", map[string]interface{}{}).
			Optional().
			Nillable().
			Comment("A4 output, immutable once set"),
		field.JSON("priority", map[string]interface{}{}).
			Optional().
			Nillable().
			Comment("A5 output, immutable once set"),
		field.JSON("embedding", []float32{}).
			Optional().
			Nillable().
			Comment("Fixed-dimension embedding of text, set at cache step of a successful run"),
		field.Int("user_context_version").
			Optional().
			Nillable().
			Comment("User context version the pipeline ran against"),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
		field.Time("processing_started_at").
			Optional().
			Nillable().
			Comment("Set by begin_processing; drives the sweeper's grace-window scan"),
		field.Time("processed_at").
			Optional().
			Nillable().
			Comment("Set on terminal transition to completed or failed"),
		field.String("error_kind").
			Optional().
			Nillable().
			Comment("taxonomy.Kind string, set only when status=failed"),
		field.String("error_message").
			Optional().
			Nillable().
			Comment("Informational only; must never echo raw LLM content"),
	}
}

// Indexes of the Thought.
func (Thought) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("status"),
		index.Fields("user_id"),
		index.Fields("status", "processing_started_at").
			Annotations(entsql.IndexWhere("status = 'processing'")),
	}
}
