package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/aristath/folio/internal/database"
	"github.com/aristath/folio/internal/reliability"
	"github.com/aristath/folio/internal/scheduler"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// QuoteCache reports how many quotes are held in memory.
type QuoteCache interface {
	Len() int
}

// BackupRunner creates an off-site ledger backup.
type BackupRunner interface {
	Enabled() bool
	CreateAndUpload(ctx context.Context) (*reliability.BackupResult, error)
}

// SystemStatusResponse is returned by GET /api/system/status.
type SystemStatusResponse struct {
	Status        string                `json:"status"`
	UptimeSeconds int64                 `json:"uptime_seconds"`
	CPUPercent    float64               `json:"cpu_percent"`
	MemoryPercent float64               `json:"memory_percent"`
	CachedQuotes  int                   `json:"cached_quotes"`
	BackupEnabled bool                  `json:"backup_enabled"`
	Databases     []DatabaseStatus      `json:"databases"`
	Jobs          []scheduler.JobStatus `json:"jobs"`
}

// DatabaseStatus describes one database.
type DatabaseStatus struct {
	Name string `json:"name"`
	*database.Stats
	Error string `json:"error,omitempty"`
}

// SystemHandlers serves operational endpoints.
type SystemHandlers struct {
	databases []*database.DB
	quotes    QuoteCache
	backup    BackupRunner
	sched     *scheduler.Scheduler
	jobs      map[string]scheduler.Job
	startedAt time.Time
	stats     func() (cpuPercent, memPercent float64)
	log       zerolog.Logger
}

// NewSystemHandlers creates system handlers. sched may be nil.
func NewSystemHandlers(
	log zerolog.Logger,
	databases []*database.DB,
	quotes QuoteCache,
	backup BackupRunner,
	sched *scheduler.Scheduler,
	jobs []scheduler.Job,
) *SystemHandlers {
	h := &SystemHandlers{
		databases: databases,
		quotes:    quotes,
		backup:    backup,
		sched:     sched,
		jobs:      make(map[string]scheduler.Job, len(jobs)),
		startedAt: time.Now(),
		log:       log.With().Str("handler", "system").Logger(),
	}
	for _, job := range jobs {
		h.jobs[job.Name()] = job
	}
	h.stats = h.getSystemStats
	return h
}

// RegisterRoutes registers system routes
func (h *SystemHandlers) RegisterRoutes(r chi.Router) {
	r.Route("/system", func(r chi.Router) {
		r.Get("/status", h.HandleSystemStatus)
		r.Post("/backup", h.HandleBackup)
		r.Post("/jobs/{name}", h.HandleRunJob)
	})
}

// HandleSystemStatus handles GET /api/system/status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	cpuPercent, memPercent := h.stats()

	resp := SystemStatusResponse{
		Status:        "ok",
		UptimeSeconds: int64(time.Since(h.startedAt).Seconds()),
		CPUPercent:    cpuPercent,
		MemoryPercent: memPercent,
		BackupEnabled: h.backup != nil && h.backup.Enabled(),
		Databases:     make([]DatabaseStatus, 0, len(h.databases)),
		Jobs:          []scheduler.JobStatus{},
	}
	if h.quotes != nil {
		resp.CachedQuotes = h.quotes.Len()
	}
	if h.sched != nil {
		resp.Jobs = h.sched.Status()
	}

	for _, db := range h.databases {
		stats, err := db.GetStats()
		status := DatabaseStatus{Name: db.Name(), Stats: stats}
		if err != nil {
			status.Error = err.Error()
			resp.Status = "degraded"
		}
		resp.Databases = append(resp.Databases, status)
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// HandleBackup handles POST /api/system/backup
func (h *SystemHandlers) HandleBackup(w http.ResponseWriter, r *http.Request) {
	if h.backup == nil || !h.backup.Enabled() {
		h.writeError(w, http.StatusServiceUnavailable, reliability.ErrBackupDisabled.Error())
		return
	}

	result, err := h.backup.CreateAndUpload(r.Context())
	if err != nil {
		if errors.Is(err, reliability.ErrBackupDisabled) {
			h.writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		h.log.Error().Err(err).Msg("Manual backup failed")
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}

// HandleRunJob handles POST /api/system/jobs/{name}
func (h *SystemHandlers) HandleRunJob(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	job, ok := h.jobs[name]
	if !ok {
		h.writeError(w, http.StatusNotFound, "unknown job: "+name)
		return
	}

	var err error
	if h.sched != nil {
		err = h.sched.RunNow(job)
	} else {
		err = job.Run()
	}
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"job": name, "status": "completed"})
}

// getSystemStats samples CPU over 100ms and reads memory usage.
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
