// Package server wires the HTTP surface: REST endpoints for scan
// lifecycle and history, the websocket event gateway, and health.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/Alexzafra13/echo-sub000/internal/config"
	"github.com/Alexzafra13/echo-sub000/internal/logger"
	"github.com/Alexzafra13/echo-sub000/internal/realtime"
	"github.com/Alexzafra13/echo-sub000/internal/scanner"
)

// Server hosts the REST API and the websocket gateway.
type Server struct {
	cfg         *config.Config
	db          *gorm.DB
	coordinator *scanner.Coordinator
	gateway     *realtime.Gateway

	httpServer *http.Server
}

// New builds the router and returns a server ready to start.
func New(cfg *config.Config, db *gorm.DB, coordinator *scanner.Coordinator, gateway *realtime.Gateway) *Server {
	s := &Server{
		cfg:         cfg,
		db:          db,
		coordinator: coordinator,
		gateway:     gateway,
	}

	r := gin.Default()

	if cfg.Server.EnableCORS {
		// CORS middleware for development
		r.Use(func(c *gin.Context) {
			c.Header("Access-Control-Allow-Origin", "*")
			c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

			if c.Request.Method == "OPTIONS" {
				c.AbortWithStatus(204)
				return
			}

			c.Next()
		})
	}

	s.setupRoutes(r)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	return s
}

// Start serves HTTP until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	logger.Info("Starting server on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests with a bounded grace period.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}
