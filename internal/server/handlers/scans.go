// Package handlers contains HTTP request handlers organized by functionality.
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "github.com/Alexzafra13/echo-sub000/internal/errors"
	"github.com/Alexzafra13/echo-sub000/internal/logger"
	"github.com/Alexzafra13/echo-sub000/internal/scanner"
)

// ScanHandler exposes scan lifecycle operations over REST.
type ScanHandler struct {
	coordinator *scanner.Coordinator
}

// NewScanHandler creates a scan handler backed by the coordinator.
func NewScanHandler(coordinator *scanner.Coordinator) *ScanHandler {
	return &ScanHandler{coordinator: coordinator}
}

// StartScanRequest is the body for POST /api/scans. All fields are
// optional; omitted fields fall back to the configured library defaults.
type StartScanRequest struct {
	RootPath     string `json:"rootPath"`
	Recursive    *bool  `json:"recursive"`
	PruneDeleted bool   `json:"pruneDeleted"`
}

// StartScan launches a new scan run. Returns 202 with the pending run,
// 409 when another run is already active, 400 for an unusable root.
func (h *ScanHandler) StartScan(c *gin.Context) {
	var req StartScanRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			apperrors.HandleValidationError(c, "Invalid scan request: "+err.Error(), "body")
			return
		}
	}

	opts := scanner.StartOptions{
		RootPath:     req.RootPath,
		Recursive:    true,
		PruneDeleted: req.PruneDeleted,
	}
	if req.Recursive != nil {
		opts.Recursive = *req.Recursive
	}

	scan, err := h.coordinator.Start(opts)
	if err != nil {
		switch {
		case errors.Is(err, scanner.ErrScanConflict):
			apperrors.HandleConflict(c, err.Error())
		case errors.Is(err, scanner.ErrInvalidRoot):
			apperrors.HandleValidationError(c, err.Error(), "rootPath")
		default:
			apperrors.HandleInternalError(c, "Failed to start scan", err)
		}
		return
	}

	logger.Info("Scan %s accepted for %s", scan.ID, scan.RootPath)
	c.JSON(http.StatusAccepted, scan)
}

// GetScan returns one run with live progress when the run is active.
func (h *ScanHandler) GetScan(c *gin.Context) {
	id := c.Param("id")

	status, err := h.coordinator.GetStatus(id)
	if err != nil {
		if errors.Is(err, scanner.ErrScanNotFound) {
			apperrors.HandleNotFound(c, "scan", id)
			return
		}
		apperrors.HandleInternalError(c, "Failed to load scan", err)
		return
	}

	c.JSON(http.StatusOK, status)
}

// ListScans returns the scan history, newest first.
func (h *ScanHandler) ListScans(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	scans, total, err := h.coordinator.ListHistory(page, limit)
	if err != nil {
		apperrors.HandleInternalError(c, "Failed to list scans", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"scans": scans,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}
