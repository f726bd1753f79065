package fanout

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/codeready-toolchain/thoughtflow/pkg/config"
	"github.com/codeready-toolchain/thoughtflow/pkg/events"
)

// notifyPayloadLimit is PostgreSQL's NOTIFY payload ceiling (8000 bytes);
// envelopes that would exceed it have their agent_output dropped before
// publish, mirroring the teacher's truncate-on-overflow NOTIFY behavior.
const notifyPayloadLimit = 7900

// subscriber is one SSE connection's delivery channel.
type subscriber struct {
	id string
	ch chan *events.Envelope
}

// Bus is the fan-out pub/sub bus [orig §4.9]: Publish sends a pg_notify on
// this instance's pooled connection, and every instance's Bus independently
// LISTENs and re-delivers to its own local subscribers only.
type Bus struct {
	db       *sql.DB
	listener *notifyListener
	prefix   string

	mu          sync.Mutex
	subscribers map[string]map[string]*subscriber // channel -> subscriber id -> subscriber
}

// New builds a Bus. db is used for publish (pg_notify); busURL is a
// dedicated DSN for the LISTEN connection, separate from the pooled
// connection, matching [orig §4.9].
func New(ctx context.Context, db *sql.DB, cfg *config.FanoutConfig) (*Bus, error) {
	b := &Bus{
		db:          db,
		prefix:      cfg.ChannelPrefix,
		subscribers: make(map[string]map[string]*subscriber),
	}
	b.listener = newNotifyListener(cfg.BusURL, b.dispatch, b.resubscribeAll)
	if err := b.listener.Start(ctx); err != nil {
		return nil, fmt.Errorf("fanout: start listener: %w", err)
	}
	return b, nil
}

// Close stops the dedicated LISTEN connection.
func (b *Bus) Close(ctx context.Context) {
	b.listener.Stop(ctx)
}

// Publish implements pipeline.Publisher.
func (b *Bus) Publish(ctx context.Context, userID string, env *events.Envelope) error {
	payload, err := events.Marshal(env)
	if err != nil {
		return fmt.Errorf("fanout: marshal envelope: %w", err)
	}
	if len(payload) > notifyPayloadLimit {
		payload = dropAgentOutput(payload)
	}

	channel := events.UpdatesChannel(b.prefix, userID)
	_, err = b.db.ExecContext(ctx, "SELECT pg_notify($1, $2)", channel, string(payload))
	if err != nil {
		return fmt.Errorf("fanout: pg_notify: %w", err)
	}
	return nil
}

// Subscribe registers a new subscriber for userID's channel, LISTENing on
// first subscriber for that channel. The returned channel receives every
// envelope published for userID until ctx is cancelled or unsubscribe is
// called; callers MUST call the returned cancel function exactly once.
func (b *Bus) Subscribe(ctx context.Context, userID string) (<-chan *events.Envelope, func(), error) {
	channel := events.UpdatesChannel(b.prefix, userID)
	sub := &subscriber{id: uuid.New().String(), ch: make(chan *events.Envelope, 16)}

	b.mu.Lock()
	subs, exists := b.subscribers[channel]
	if !exists {
		subs = make(map[string]*subscriber)
		b.subscribers[channel] = subs
	}
	subs[sub.id] = sub
	b.mu.Unlock()

	if !exists {
		if err := b.listener.Subscribe(ctx, channel); err != nil {
			b.mu.Lock()
			delete(b.subscribers[channel], sub.id)
			if len(b.subscribers[channel]) == 0 {
				delete(b.subscribers, channel)
			}
			b.mu.Unlock()
			return nil, nil, fmt.Errorf("fanout: LISTEN %s: %w", channel, err)
		}
	}

	cancel := func() { b.unsubscribe(channel, sub.id) }
	return sub.ch, cancel, nil
}

func (b *Bus) unsubscribe(channel, id string) {
	b.mu.Lock()
	subs, ok := b.subscribers[channel]
	if ok {
		delete(subs, id)
		if len(subs) == 0 {
			delete(b.subscribers, channel)
		}
	}
	b.mu.Unlock()

	if !ok || len(subs) > 0 {
		return
	}
	if err := b.listener.Unsubscribe(context.Background(), channel); err != nil {
		slog.Warn("fanout UNLISTEN failed", "channel", channel, "error", err)
	}
}

// dispatch decodes a NOTIFY payload and fans it out to this channel's local
// subscribers, dropping it on decode failure (the envelope is republished
// periodically by the pipeline's own progress events; a single lost
// notification is not fatal).
func (b *Bus) dispatch(channel string, payload []byte) {
	env, err := events.Unmarshal(payload)
	if err != nil {
		slog.Warn("fanout: undecodable NOTIFY payload", "channel", channel, "error", err)
		return
	}

	b.mu.Lock()
	subs := make([]*subscriber, 0, len(b.subscribers[channel]))
	for _, s := range b.subscribers[channel] {
		subs = append(subs, s)
	}
	b.mu.Unlock()

	for _, s := range subs {
		select {
		case s.ch <- env:
		default:
			slog.Warn("fanout: subscriber channel full, dropping event", "channel", channel, "subscriber_id", s.id)
		}
	}
}

// resubscribeAll re-issues LISTEN for every channel with at least one active
// subscriber, directly on the freshly reconnected conn. Called by
// notifyListener from inside its own receive-loop goroutine after a
// reconnect, so it bypasses the command queue entirely.
func (b *Bus) resubscribeAll(ctx context.Context, conn *pgx.Conn) {
	b.mu.Lock()
	channels := make([]string, 0, len(b.subscribers))
	for ch := range b.subscribers {
		channels = append(channels, ch)
	}
	b.mu.Unlock()

	for _, ch := range channels {
		if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{ch}.Sanitize()); err != nil {
			slog.Error("fanout: re-LISTEN after reconnect failed", "channel", ch, "error", err)
		}
	}
}

// dropAgentOutput removes the agent_output field from an over-limit
// envelope payload so it still fits PostgreSQL's NOTIFY size limit and
// still decodes via events.Unmarshal; SSE clients that need the full
// stage output fall back to the REST thought resource.
func dropAgentOutput(payload []byte) []byte {
	var m map[string]any
	if err := json.Unmarshal(payload, &m); err != nil {
		return payload
	}
	delete(m, "agent_output")
	truncated, err := json.Marshal(m)
	if err != nil {
		return payload
	}
	return truncated
}
