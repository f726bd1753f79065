package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/codeready-toolchain/thoughtflow/pkg/broker"
	"github.com/codeready-toolchain/thoughtflow/pkg/taxonomy"
)

// writeError maps err to an HTTP status via its taxonomy.Kind, logging
// anything that doesn't carry one as unexpected.
func writeError(c *gin.Context, err error) {
	if errors.Is(err, broker.ErrProducerDisabled) {
		c.JSON(http.StatusOK, ErrorResponse{Error: "accepted in deferred mode"})
		return
	}

	kind, ok := taxonomy.KindOf(err)
	if !ok {
		slog.Error("unexpected api error", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	status := http.StatusInternalServerError
	switch {
	case kind == taxonomy.KindUnknownUser:
		status = http.StatusNotFound
	case kind == taxonomy.KindInvalidPayload:
		status = http.StatusBadRequest
	case kind == taxonomy.KindInProgress:
		status = http.StatusConflict
	case kind.IsTransient():
		status = http.StatusServiceUnavailable
	case kind.IsPermanent():
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, ErrorResponse{Error: err.Error()})
}
