// Package api exposes thoughtflow's external HTTP surface: submitting a
// thought, streaming its progress, and reporting health [orig §6.4].
package api

import (
	"context"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/codeready-toolchain/thoughtflow/pkg/broker"
	"github.com/codeready-toolchain/thoughtflow/pkg/config"
	"github.com/codeready-toolchain/thoughtflow/pkg/database"
	"github.com/codeready-toolchain/thoughtflow/pkg/fanout"
	"github.com/codeready-toolchain/thoughtflow/pkg/sink"
	"github.com/codeready-toolchain/thoughtflow/pkg/sweeper"
)

// requestBodyLimit bounds a submitted thought's JSON body; set well above
// any realistic thought text while still rejecting multi-MB payloads at
// the HTTP layer.
const requestBodyLimit = 256 * 1024

// Server is the HTTP API server.
type Server struct {
	engine     *gin.Engine
	httpServer *http.Server

	cfg      *config.Config
	dbClient *database.Client
	sink     *sink.Sink
	producer *broker.Producer
	bus      *fanout.Bus
	sweeper  *sweeper.Sweeper

	activeStreams atomic.Int64
}

// NewServer builds a Server and registers its routes. sweep may be nil in
// tests that don't exercise the health endpoint's sweeper stats.
func NewServer(cfg *config.Config, dbClient *database.Client, snk *sink.Sink, producer *broker.Producer, bus *fanout.Bus, sweep *sweeper.Sweeper) *Server {
	gin.SetMode(gin.ReleaseMode)
	e := gin.New()
	e.Use(gin.Recovery())

	s := &Server{
		engine:   e,
		cfg:      cfg,
		dbClient: dbClient,
		sink:     snk,
		producer: producer,
		bus:      bus,
		sweeper:  sweep,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.engine.Use(func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, requestBodyLimit)
		c.Next()
	})

	s.engine.GET("/health", s.healthHandler)
	s.engine.POST("/thoughts", s.submitThoughtHandler)
	s.engine.GET("/thoughts/:user_id/stream", s.streamProgressHandler)
}

// Start starts the HTTP server on addr (blocking).
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{Addr: addr, Handler: s.engine}
	return s.httpServer.ListenAndServe()
}

// StartWithListener starts the HTTP server on a pre-created listener. Used
// by test infrastructure to serve on a random OS-assigned port.
func (s *Server) StartWithListener(ln net.Listener) error {
	s.httpServer = &http.Server{Handler: s.engine}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

const healthCheckTimeout = 5 * time.Second
