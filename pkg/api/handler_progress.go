package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"

	"github.com/codeready-toolchain/thoughtflow/pkg/events"
)

// streamProgressHandler handles GET /thoughts/:user_id/stream [orig §6.4]:
// subscribes to the caller's fan-out channel and relays every envelope as
// an SSE event, interleaved with heartbeats, until the client disconnects.
func (s *Server) streamProgressHandler(c *gin.Context) {
	userID := c.Param("user_id")

	if s.activeStreams.Add(1) > int64(s.cfg.Fanout.MaxConnectionsPerInstance) {
		s.activeStreams.Add(-1)
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "too many active streams on this instance"})
		return
	}
	defer s.activeStreams.Add(-1)

	ch, cancel, err := s.bus.Subscribe(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	defer cancel()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.WriteHeader(http.StatusOK)
	c.Writer.Flush()

	heartbeat := time.NewTicker(s.cfg.Fanout.HeartbeatInterval)
	defer heartbeat.Stop()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeat.C:
			if err := sse.Encode(c.Writer, sse.Event{Event: "heartbeat"}); err != nil {
				return
			}
			c.Writer.Flush()
		case env, ok := <-ch:
			if !ok {
				return
			}
			if err := writeEnvelope(c.Writer, env); err != nil {
				return
			}
			c.Writer.Flush()
		}
	}
}

func writeEnvelope(w http.ResponseWriter, env *events.Envelope) error {
	payload, err := events.Marshal(env)
	if err != nil {
		return err
	}
	return sse.Encode(w, sse.Event{Event: string(env.EventType), Data: json.RawMessage(payload)})
}
