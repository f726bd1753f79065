package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/codeready-toolchain/thoughtflow/pkg/broker"
	"github.com/codeready-toolchain/thoughtflow/pkg/events"
)

// submitThoughtHandler handles POST /thoughts [orig §6.4]: persists a new
// pending thought and hands it to the broker. The broker being unavailable
// is not an error the submitter sees — the thought is accepted either way,
// and the recovery sweeper picks up anything the broker couldn't take.
func (s *Server) submitThoughtHandler(c *gin.Context) {
	var req SubmitThoughtRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	thoughtID := uuid.New().String()
	if err := s.sink.Create(c.Request.Context(), thoughtID, req.UserID, req.Text); err != nil {
		writeError(c, err)
		return
	}

	env := events.NewCreated(uuid.New().String(), time.Now(), thoughtID, req.UserID, req.Text, req.PriorityHint)
	mode := "stream"
	if err := s.producer.Submit(c.Request.Context(), env); err != nil {
		if !errors.Is(err, broker.ErrProducerDisabled) {
			writeError(c, err)
			return
		}
		mode = "deferred"
	}

	c.JSON(http.StatusAccepted, SubmitThoughtResponse{
		ThoughtID: thoughtID,
		Accepted:  true,
		Mode:      mode,
	})
}
