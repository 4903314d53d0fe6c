package server

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/ankitjgd/xirrcalc/internal/database"
	"github.com/ankitjgd/xirrcalc/internal/modules/history"
)

// SystemHandlers serves health and resource monitoring endpoints.
type SystemHandlers struct {
	log             zerolog.Logger
	dataDir         string
	historyDB       *database.DB
	cacheDB         *database.DB
	historyRepo     *history.Repository
	benchmarkSymbol string
	startedAt       time.Time
}

// NewSystemHandlers creates the system monitoring handlers.
func NewSystemHandlers(
	log zerolog.Logger,
	dataDir string,
	historyDB *database.DB,
	cacheDB *database.DB,
	historyRepo *history.Repository,
	benchmarkSymbol string,
) *SystemHandlers {
	return &SystemHandlers{
		log:             log.With().Str("component", "system").Logger(),
		dataDir:         dataDir,
		historyDB:       historyDB,
		cacheDB:         cacheDB,
		historyRepo:     historyRepo,
		benchmarkSymbol: benchmarkSymbol,
		startedAt:       time.Now(),
	}
}

// HealthResponse is returned from GET /health.
type HealthResponse struct {
	Status    string            `json:"status"`
	UptimeSec int64             `json:"uptime_seconds"`
	Databases map[string]string `json:"databases"`
}

// SystemStatusResponse is returned from GET /api/system/status.
type SystemStatusResponse struct {
	Status          string  `json:"status"`
	UptimeSec       int64   `json:"uptime_seconds"`
	CPUPercent      float64 `json:"cpu_percent"`
	MemoryPercent   float64 `json:"memory_percent"`
	BenchmarkSymbol string  `json:"benchmark_symbol"`
	PriceCount      int     `json:"price_count"`
}

// DatabaseStatsResponse is returned from GET /api/system/database/stats.
type DatabaseStatsResponse struct {
	Databases []DatabaseStat `json:"databases"`
}

// DatabaseStat describes one SQLite database file.
type DatabaseStat struct {
	Name    string  `json:"name"`
	Path    string  `json:"path"`
	SizeMB  float64 `json:"size_mb"`
	Healthy bool    `json:"healthy"`
}

// DiskUsageResponse is returned from GET /api/system/disk.
type DiskUsageResponse struct {
	DataDirMB   float64 `json:"data_dir_mb"`
	ReportsMB   float64 `json:"reports_mb"`
	TotalMB     float64 `json:"total_mb"`
	DiskFreeMB  float64 `json:"disk_free_mb"`
	DiskUsedPct float64 `json:"disk_used_pct"`
}

// HandleHealth reports the liveness of the process and its databases.
// GET /health
func (h *SystemHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	dbs := map[string]string{}
	status := "ok"
	for _, db := range []*database.DB{h.historyDB, h.cacheDB} {
		if db == nil {
			continue
		}
		if err := db.HealthCheck(r.Context()); err != nil {
			dbs[db.Name()] = err.Error()
			status = "degraded"
		} else {
			dbs[db.Name()] = "ok"
		}
	}

	response := HealthResponse{
		Status:    status,
		UptimeSec: int64(time.Since(h.startedAt).Seconds()),
		Databases: dbs,
	}

	w.Header().Set("Content-Type", "application/json")
	if status != "ok" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(response)
}

// HandleSystemStatus reports process resource usage and price store depth.
// GET /api/system/status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	cpuPct, memPct := h.getSystemStats()

	priceCount := 0
	if h.historyRepo != nil {
		if n, err := h.historyRepo.Count(h.benchmarkSymbol); err == nil {
			priceCount = n
		} else {
			h.log.Warn().Err(err).Msg("Failed to count stored prices")
		}
	}

	response := SystemStatusResponse{
		Status:          "ok",
		UptimeSec:       int64(time.Since(h.startedAt).Seconds()),
		CPUPercent:      cpuPct,
		MemoryPercent:   memPct,
		BenchmarkSymbol: h.benchmarkSymbol,
		PriceCount:      priceCount,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// HandleDatabaseStats reports per-database file sizes and health.
// GET /api/system/database/stats
func (h *SystemHandlers) HandleDatabaseStats(w http.ResponseWriter, r *http.Request) {
	var stats []DatabaseStat
	for _, db := range []*database.DB{h.historyDB, h.cacheDB} {
		if db == nil {
			continue
		}
		stats = append(stats, DatabaseStat{
			Name:    db.Name(),
			Path:    db.Path(),
			SizeMB:  float64(db.SizeBytes()) / 1024 / 1024,
			Healthy: db.HealthCheck(r.Context()) == nil,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(DatabaseStatsResponse{Databases: stats})
}

// HandleDiskUsage reports data directory sizes and volume headroom.
// GET /api/system/disk
func (h *SystemHandlers) HandleDiskUsage(w http.ResponseWriter, r *http.Request) {
	dataSize := h.getDirSize(h.dataDir)
	reportsSize := h.getDirSize(filepath.Join(h.dataDir, "reports"))

	response := DiskUsageResponse{
		DataDirMB: dataSize,
		ReportsMB: reportsSize,
		TotalMB:   dataSize,
	}

	if usage, err := disk.Usage(h.dataDir); err == nil {
		response.DiskFreeMB = float64(usage.Free) / 1024 / 1024
		response.DiskUsedPct = usage.UsedPercent
	} else {
		h.log.Warn().Err(err).Msg("Failed to get disk usage")
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// getDirSize calculates total size of a directory in MB
func (h *SystemHandlers) getDirSize(dirPath string) float64 {
	var totalSize int64

	err := filepath.Walk(dirPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip errors
		}
		if !info.IsDir() {
			totalSize += info.Size()
		}
		return nil
	})

	if err != nil {
		h.log.Warn().Err(err).Str("dir", dirPath).Msg("Failed to calculate directory size")
		return 0
	}

	return float64(totalSize) / 1024 / 1024
}

// getSystemStats calculates CPU and RAM usage percentages. A short sampling
// interval keeps the status endpoint responsive.
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	return cpuAvg, memStat.UsedPercent
}
