package server

import (
	"github.com/gin-gonic/gin"

	"github.com/Alexzafra13/echo-sub000/internal/server/handlers"
)

// setupRoutes configures all API routes
func (s *Server) setupRoutes(r *gin.Engine) {
	scans := handlers.NewScanHandler(s.coordinator)
	health := handlers.NewHealthHandler(s.db, s.cfg.Library.Root)

	api := r.Group("/api")
	{
		api.GET("/health", health.Health)

		api.POST("/scans", scans.StartScan)
		api.GET("/scans", scans.ListScans)
		api.GET("/scans/:id", scans.GetScan)

		api.GET("/events/ws", s.gateway.Handle)
	}
}
