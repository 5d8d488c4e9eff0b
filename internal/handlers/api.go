package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/shirou/gopsutil/disk"
	"github.com/shirou/gopsutil/mem"

	"releasewatch/internal/config"
	"releasewatch/internal/core"
	"releasewatch/internal/database/models"
	"releasewatch/internal/utils"
)

type APIHandler struct {
	config    *config.Config
	monitor   *core.Monitor
	history   *models.HistoryRepository
	logger    *utils.Logger
	startedAt time.Time
}

func NewAPIHandler(cfg *config.Config, monitor *core.Monitor, history *models.HistoryRepository, logger *utils.Logger) *APIHandler {
	return &APIHandler{
		config:    cfg,
		monitor:   monitor,
		history:   history,
		logger:    logger,
		startedAt: time.Now(),
	}
}

type systemStatus struct {
	Monitor       core.Status `json:"monitor"`
	Uptime        string      `json:"uptime"`
	DataDiskFree  uint64      `json:"data_disk_free,omitempty"`
	DataDiskTotal uint64      `json:"data_disk_total,omitempty"`
	MemoryUsed    uint64      `json:"memory_used,omitempty"`
	MemoryTotal   uint64      `json:"memory_total,omitempty"`
}

func (h *APIHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	status := systemStatus{
		Monitor: h.monitor.Status(),
		Uptime:  time.Since(h.startedAt).Round(time.Second).String(),
	}

	if usage, err := disk.Usage(h.config.App.DataPath); err == nil {
		status.DataDiskFree = usage.Free
		status.DataDiskTotal = usage.Total
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		status.MemoryUsed = vm.Used
		status.MemoryTotal = vm.Total
	}

	respondJSON(w, http.StatusOK, status)
}

func (h *APIHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		respondError(w, http.StatusNotFound, "Change history is not enabled")
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}

	events, err := h.history.Recent(limit)
	if err != nil {
		h.logger.Error("Failed to load change history:", err)
		respondError(w, http.StatusInternalServerError, "Failed to load change history")
		return
	}
	if events == nil {
		events = []models.ChangeEvent{}
	}
	respondJSON(w, http.StatusOK, events)
}

// TriggerCheck kicks off a poll pass in the background. A pass already in
// flight turns into a conflict instead of piling up.
func (h *APIHandler) TriggerCheck(w http.ResponseWriter, r *http.Request) {
	if h.monitor.Status().Running {
		respondError(w, http.StatusConflict, "A poll pass is already running")
		return
	}

	go func() {
		// Detached from the request context; the pass outlives it.
		if err := h.monitor.RunOnce(context.Background()); err != nil {
			h.logger.Error("Triggered poll pass failed:", err)
		}
	}()

	respondJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

func respondJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, code int, message string) {
	respondJSON(w, code, map[string]string{"error": message})
}
