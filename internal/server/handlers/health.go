package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"
	"gorm.io/gorm"
)

// HealthHandler reports service liveness plus basic host metrics.
type HealthHandler struct {
	db          *gorm.DB
	libraryRoot string
}

// NewHealthHandler creates a health handler for the given database and
// library root (used for the disk usage probe).
func NewHealthHandler(db *gorm.DB, libraryRoot string) *HealthHandler {
	return &HealthHandler{db: db, libraryRoot: libraryRoot}
}

// Health returns the service status, database connectivity, and a
// snapshot of host CPU, memory, and library disk usage.
func (h *HealthHandler) Health(c *gin.Context) {
	status := "ok"
	dbStatus := "connected"

	sqlDB, err := h.db.DB()
	if err != nil {
		status = "degraded"
		dbStatus = "error: " + err.Error()
	} else if err := sqlDB.Ping(); err != nil {
		status = "degraded"
		dbStatus = "error: " + err.Error()
	}

	system := gin.H{}
	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		system["cpuPercent"] = percents[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		system["memoryPercent"] = vm.UsedPercent
	}
	if usage, err := disk.Usage(h.libraryRoot); err == nil {
		system["libraryDiskPercent"] = usage.UsedPercent
		system["libraryDiskFree"] = usage.Free
	}

	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"status":   status,
		"service":  "echosub",
		"database": dbStatus,
		"system":   system,
	})
}
