package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/codeready-toolchain/thoughtflow/pkg/database"
	"github.com/codeready-toolchain/thoughtflow/pkg/version"
)

// healthHandler handles GET /health, reporting DB reachability, broker
// connectivity, configuration stats, and the recovery sweeper's last scan
// [orig §5 supplemented features, mirroring queue.PoolHealth/WorkerHealth
// and cmd/tarsy/main.go's /health handler].
func (s *Server) healthHandler(c *gin.Context) {
	reqCtx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	dbHealth, err := database.Health(reqCtx, s.dbClient.DB())
	status := "healthy"
	httpStatus := http.StatusOK
	if err != nil {
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}

	brokerHealthy := s.producer.Healthy(reqCtx)
	if !brokerHealthy {
		status = "degraded"
	}

	stats := s.cfg.Stats()
	resp := &HealthResponse{
		Status:   status,
		Version:  version.Full(),
		Database: dbHealth,
		Broker: BrokerStats{
			Connected: brokerHealthy,
		},
		Configuration: ConfigurationStats{
			LLMProviders:     stats.LLMProviders,
			EmbeddingBackend: stats.EmbeddingBackend,
			WorkTopic:        stats.WorkTopic,
			ConsumerGroup:    stats.ConsumerGroup,
		},
	}
	if s.sweeper != nil {
		sweepStats := s.sweeper.Stats()
		resp.Sweeper = &SweeperStats{
			LastScan:    sweepStats.LastScan,
			Republished: sweepStats.Republished,
			MarkedStuck: sweepStats.MarkedStuck,
		}
	}

	c.JSON(httpStatus, resp)
}
