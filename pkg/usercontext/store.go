// Package usercontext is a read-only accessor over the user profile an
// external service owns; the pipeline only ever reads it [orig §3
// "User Context"].
package usercontext

import (
	"context"
	"fmt"

	"github.com/codeready-toolchain/thoughtflow/ent"
	entusercontext "github.com/codeready-toolchain/thoughtflow/ent/usercontext"
	"github.com/codeready-toolchain/thoughtflow/pkg/taxonomy"
)

// Context is the bounded profile blob every agent stage grounds its output
// in, plus the version the orchestrator stamps onto the thought.
type Context struct {
	UserID  string
	Version int
	Profile map[string]any
}

// Store reads user context by user_id.
type Store struct {
	client *ent.Client
}

// New builds a Store.
func New(client *ent.Client) *Store {
	return &Store{client: client}
}

// Get returns the current context for userID. A missing row maps to
// permanent_fail(unknown_user) [orig §4.3 step 4].
func (s *Store) Get(ctx context.Context, userID string) (*Context, error) {
	row, err := s.client.UserContext.Query().
		Where(entusercontext.UserID(userID)).
		Only(ctx)
	if err != nil {
		if ent.IsNotFound(err) {
			return nil, taxonomy.New(taxonomy.KindUnknownUser, fmt.Sprintf("no user context for %s", userID))
		}
		return nil, fmt.Errorf("get user context: %w", err)
	}

	return &Context{UserID: row.UserID, Version: row.Version, Profile: row.Profile}, nil
}
