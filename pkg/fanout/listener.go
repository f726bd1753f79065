// Package fanout implements the progress pub/sub bus [orig §4.9]: Postgres
// LISTEN/NOTIFY as the process-external transport, fanning out decoded
// envelopes to local SSE subscribers. Multiple front-end instances each run
// their own Bus, LISTEN independently, and serve only their own connected
// clients — no instance needs to know about another's subscribers.
package fanout

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5"
)

// listenCmd is a LISTEN/UNLISTEN request executed by the receive loop, the
// sole goroutine that touches the dedicated pgx connection.
type listenCmd struct {
	sql    string
	result chan error
}

// notifyListener owns a dedicated Postgres connection used only for
// LISTEN/UNLISTEN/WaitForNotification, kept separate from the pooled ent
// connection per [orig §4.9]. Adapted from the teacher's NotifyListener,
// dropping the cross-pod internal-handler dispatch and the per-channel
// generation bookkeeping it needs for rapid unsubscribe/resubscribe races
// that don't arise here (a Bus subscribes once per SSE connection and
// unsubscribes once on disconnect).
type notifyListener struct {
	connString string
	conn       *pgx.Conn
	connMu     sync.Mutex

	onNotify func(channel string, payload []byte)
	// onReconnect is invoked with the freshly-established connection so the
	// caller can re-LISTEN its active channels directly. It MUST NOT go
	// through Subscribe/exec: this runs on the receive-loop goroutine itself
	// (inside reconnect), so routing through cmdCh would deadlock waiting
	// for the very loop that is blocked calling it.
	onReconnect func(ctx context.Context, conn *pgx.Conn)

	cmdCh   chan listenCmd
	running atomic.Bool

	cancelLoop context.CancelFunc
	loopDone   chan struct{}
}

func newNotifyListener(connString string, onNotify func(channel string, payload []byte), onReconnect func(ctx context.Context, conn *pgx.Conn)) *notifyListener {
	return &notifyListener{
		connString:  connString,
		onNotify:    onNotify,
		onReconnect: onReconnect,
		cmdCh:       make(chan listenCmd, 16),
	}
}

func (l *notifyListener) Start(ctx context.Context) error {
	conn, err := pgx.Connect(ctx, l.connString)
	if err != nil {
		return fmt.Errorf("fanout: connect for LISTEN: %w", err)
	}

	l.connMu.Lock()
	l.conn = conn
	l.connMu.Unlock()
	l.running.Store(true)

	loopCtx, cancel := context.WithCancel(ctx)
	l.cancelLoop = cancel
	l.loopDone = make(chan struct{})
	go func() {
		defer close(l.loopDone)
		l.receiveLoop(loopCtx)
	}()

	slog.Info("fanout notify listener started")
	return nil
}

func (l *notifyListener) Subscribe(ctx context.Context, channel string) error {
	return l.exec(ctx, "LISTEN "+pgx.Identifier{channel}.Sanitize())
}

func (l *notifyListener) Unsubscribe(ctx context.Context, channel string) error {
	return l.exec(ctx, "UNLISTEN "+pgx.Identifier{channel}.Sanitize())
}

func (l *notifyListener) exec(ctx context.Context, sql string) error {
	if !l.running.Load() {
		return fmt.Errorf("fanout: LISTEN connection not established")
	}
	cmd := listenCmd{sql: sql, result: make(chan error, 1)}
	select {
	case l.cmdCh <- cmd:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-cmd.result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *notifyListener) receiveLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		l.processPendingCmds(ctx)

		l.connMu.Lock()
		conn := l.conn
		l.connMu.Unlock()

		if conn == nil {
			l.reconnect(ctx)
			continue
		}

		waitCtx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
		notification, err := conn.WaitForNotification(waitCtx)
		cancel()

		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if waitCtx.Err() != nil {
				continue
			}
			slog.Error("fanout NOTIFY receive error", "error", err)
			l.reconnect(ctx)
			continue
		}

		l.onNotify(notification.Channel, []byte(notification.Payload))
	}
}

func (l *notifyListener) processPendingCmds(ctx context.Context) {
	for {
		select {
		case cmd := <-l.cmdCh:
			l.connMu.Lock()
			conn := l.conn
			l.connMu.Unlock()
			if conn == nil {
				cmd.result <- fmt.Errorf("fanout: LISTEN connection not established")
				continue
			}
			_, err := conn.Exec(ctx, cmd.sql)
			cmd.result <- err
		default:
			return
		}
	}
}

func (l *notifyListener) reconnect(ctx context.Context) {
	l.connMu.Lock()
	defer l.connMu.Unlock()

	if l.conn != nil {
		_ = l.conn.Close(ctx)
		l.conn = nil
	}

	backoff := time.Second
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}

		conn, err := pgx.Connect(ctx, l.connString)
		if err != nil {
			slog.Error("fanout LISTEN reconnect failed", "error", err, "backoff", backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		l.conn = conn
		slog.Info("fanout notify listener reconnected")
		if l.onReconnect != nil {
			l.onReconnect(ctx, conn)
		}
		return
	}
}

func (l *notifyListener) Stop(ctx context.Context) {
	l.running.Store(false)
	if l.cancelLoop != nil {
		l.cancelLoop()
	}
	if l.loopDone != nil {
		<-l.loopDone
	}
	l.connMu.Lock()
	defer l.connMu.Unlock()
	if l.conn != nil {
		_ = l.conn.Close(ctx)
		l.conn = nil
	}
}
