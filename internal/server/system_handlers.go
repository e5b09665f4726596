package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/opto-ai/opto/internal/database"
	"github.com/opto-ai/opto/internal/modules/reference"
	"github.com/opto-ai/opto/internal/scheduler"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// SystemHandlers handles system-wide monitoring and operations endpoints
type SystemHandlers struct {
	log         zerolog.Logger
	startupTime time.Time
	store       *reference.Store
	scheduler   *scheduler.Scheduler
	databases   []*database.DB
}

// NewSystemHandlers creates a new system handlers instance. scheduler and
// databases may be nil.
func NewSystemHandlers(
	log zerolog.Logger,
	store *reference.Store,
	sched *scheduler.Scheduler,
	databases ...*database.DB,
) *SystemHandlers {
	var dbs []*database.DB
	for _, db := range databases {
		if db != nil {
			dbs = append(dbs, db)
		}
	}
	return &SystemHandlers{
		log:         log.With().Str("handler", "system").Logger(),
		startupTime: time.Now(),
		store:       store,
		scheduler:   sched,
		databases:   dbs,
	}
}

// SystemStatusResponse represents system status
type SystemStatusResponse struct {
	Status           string  `json:"status"`
	UptimeSeconds    int64   `json:"uptime_seconds"`
	StartedAt        string  `json:"started_at"`
	ReferenceVersion string  `json:"reference_version"`
	ReferenceSource  string  `json:"reference_source"`
	CPUPercent       float64 `json:"cpu_percent"`
	MemoryPercent    float64 `json:"memory_percent"`
	MemoryUsedMB     float64 `json:"memory_used_mb"`
	ProcessID        int     `json:"pid"`
	Jobs             int     `json:"jobs"`
}

// JobsStatusResponse lists registered background jobs
type JobsStatusResponse struct {
	Jobs        []scheduler.JobStatus `json:"jobs"`
	LastUpdated string                `json:"last_updated"`
}

// DBInfo is the status of one database
type DBInfo struct {
	Name   string          `json:"name"`
	Path   string          `json:"path"`
	Stats  *database.Stats `json:"stats,omitempty"`
	Error  string          `json:"error,omitempty"`
	SizeMB float64         `json:"size_mb"`
}

// DatabaseStatsResponse represents database statistics
type DatabaseStatsResponse struct {
	Databases   []DBInfo `json:"databases"`
	TotalSizeMB float64  `json:"total_size_mb"`
	LastChecked string   `json:"last_checked"`
}

// HandleSystemStatus returns process and host status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting system status")

	cpuPercent, memPercent, memUsedMB := h.getSystemStats()
	table := h.store.Current()

	source := "embedded"
	if path := h.store.Path(); path != "" {
		source = path
	}

	jobs := 0
	if h.scheduler != nil {
		jobs = len(h.scheduler.Status())
	}

	h.writeJSON(w, http.StatusOK, SystemStatusResponse{
		Status:           "healthy",
		UptimeSeconds:    int64(time.Since(h.startupTime).Seconds()),
		StartedAt:        h.startupTime.Format(time.RFC3339),
		ReferenceVersion: table.Version(),
		ReferenceSource:  source,
		CPUPercent:       cpuPercent,
		MemoryPercent:    memPercent,
		MemoryUsedMB:     memUsedMB,
		ProcessID:        os.Getpid(),
		Jobs:             jobs,
	})
}

// HandleJobsStatus returns the registered jobs with their last outcome
func (h *SystemHandlers) HandleJobsStatus(w http.ResponseWriter, r *http.Request) {
	jobs := []scheduler.JobStatus{}
	if h.scheduler != nil {
		jobs = h.scheduler.Status()
	}

	h.writeJSON(w, http.StatusOK, JobsStatusResponse{
		Jobs:        jobs,
		LastUpdated: time.Now().Format(time.RFC3339),
	})
}

// HandleTriggerJob runs a registered job immediately
// POST /api/system/jobs/{name}
func (h *SystemHandlers) HandleTriggerJob(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if h.scheduler == nil {
		h.writeError(w, http.StatusServiceUnavailable, "scheduler not running")
		return
	}

	if err := h.scheduler.RunByName(name); err != nil {
		if errors.Is(err, scheduler.ErrUnknownJob) {
			h.writeError(w, http.StatusNotFound, err.Error())
			return
		}
		h.log.Error().Err(err).Str("job", name).Msg("Manually triggered job failed")
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.log.Info().Str("job", name).Msg("Job triggered manually")
	h.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": name + " completed",
	})
}

// HandleDatabaseStats returns database statistics
func (h *SystemHandlers) HandleDatabaseStats(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting database stats")

	response := DatabaseStatsResponse{
		Databases:   make([]DBInfo, 0, len(h.databases)),
		LastChecked: time.Now().Format(time.RFC3339),
	}

	for _, db := range h.databases {
		info := DBInfo{Name: db.Name(), Path: db.Path()}
		stats, err := db.GetStats(r.Context())
		if err != nil {
			h.log.Warn().Err(err).Str("database", db.Name()).Msg("Failed to get database stats")
			info.Error = err.Error()
		} else {
			info.Stats = stats
			info.SizeMB = float64(stats.SizeBytes+stats.WALSizeBytes) / 1024 / 1024
		}
		response.TotalSizeMB += info.SizeMB
		response.Databases = append(response.Databases, info)
	}

	h.writeJSON(w, http.StatusOK, response)
}

// getSystemStats samples CPU over a short window and reads memory usage
func (h *SystemHandlers) getSystemStats() (float64, float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return cpuAvg, 0, 0
	}

	return cpuAvg, memStat.UsedPercent, float64(memStat.Used) / 1024 / 1024
}

func (h *SystemHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *SystemHandlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
