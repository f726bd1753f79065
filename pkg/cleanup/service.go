// Package cleanup periodically purges expired semantic-cache entries,
// adapted from the teacher's session/event retention service to this
// domain's single cache_entry table [orig §4.8's TTL, §2].
package cleanup

import (
	"context"
	"log/slog"
	"time"

	"github.com/codeready-toolchain/thoughtflow/ent"
	"github.com/codeready-toolchain/thoughtflow/ent/cacheentry"
)

// Interval is how often the purge loop runs. Purging is an optimization,
// not a correctness requirement — semanticcache.Lookup already filters
// expired rows out of its own queries — so a generous fixed interval is
// enough to keep the table from growing without bound.
const Interval = 1 * time.Hour

// Service periodically deletes cache_entry rows past their expires_at.
type Service struct {
	client *ent.Client
	logger *slog.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

// NewService builds a Service.
func NewService(client *ent.Client, logger *slog.Logger) *Service {
	return &Service{client: client, logger: logger}
}

// Start launches the background purge loop.
func (s *Service) Start(ctx context.Context) {
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go s.run(ctx)
	s.logger.Info("cache cleanup service started", "interval", Interval)
}

// Stop signals the purge loop to exit and waits for it to finish.
func (s *Service) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.logger.Info("cache cleanup service stopped")
}

func (s *Service) run(ctx context.Context) {
	defer close(s.done)

	s.purgeExpired(ctx)

	ticker := time.NewTicker(Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.purgeExpired(ctx)
		}
	}
}

func (s *Service) purgeExpired(ctx context.Context) {
	count, err := s.client.CacheEntry.Delete().
		Where(cacheentry.ExpiresAtLT(time.Now())).
		Exec(ctx)
	if err != nil {
		s.logger.Error("cache cleanup: purge failed", "error", err)
		return
	}
	if count > 0 {
		s.logger.Info("cache cleanup: purged expired entries", "count", count)
	}
}
