package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/field"
)

// UserContext holds the schema definition for the UserContext entity. It is
// read-only to the core: an external profile service owns writes, the
// pipeline only reads it to ground every agent stage in the user's
// demographics, goals, constraints, and value ranking.
type UserContext struct {
	ent.Schema
}

// Fields of the UserContext.
func (UserContext) Fields() []ent.Field {
	return []ent.Field{
		field.String("user_id").
			StorageKey("user_id").
			Unique().
			Immutable(),
		field.Int("version").
			NonNegative().
			Comment("Monotonically increasing; recorded on the thought at pipeline run time"),
		field.JSON("profile", map[string]interface{}{}).
			Comment("Opaque bounded blob (~4KB) read verbatim by every agent stage"),
	}
}
