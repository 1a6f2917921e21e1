package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"training-launcher/core/logger"
	"training-launcher/core/models"

	"github.com/gorilla/mux"
)

// RunStore is the run history the status API reads
type RunStore interface {
	GetRun(ctx context.Context, id string) (*models.Run, error)
	GetRunByJobName(ctx context.Context, jobName string) (*models.Run, error)
	ListRuns(ctx context.Context, status *models.JobStatus, limit int) ([]*models.Run, error)
}

// EventStore returns the transitions recorded for a run
type EventStore interface {
	GetRunEvents(ctx context.Context, runID string, limit int) ([]models.JobEvent, error)
}

const (
	defaultListLimit = 50
	maxListLimit     = 500
	eventsLimit      = 100
)

// RunHandler handles run history requests
type RunHandler struct {
	runs   RunStore
	events EventStore
}

// NewRunHandler creates a new run handler
func NewRunHandler(runs RunStore, events EventStore) *RunHandler {
	return &RunHandler{
		runs:   runs,
		events: events,
	}
}

// ListRuns handles GET /v1/runs
func (h *RunHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if limitParam := r.URL.Query().Get("limit"); limitParam != "" {
		n, err := strconv.Atoi(limitParam)
		if err != nil || n <= 0 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = min(n, maxListLimit)
	}

	var status *models.JobStatus
	if statusParam := r.URL.Query().Get("status"); statusParam != "" {
		s := models.JobStatus(statusParam)
		if !validStatus(s) {
			http.Error(w, "Invalid status: "+statusParam, http.StatusBadRequest)
			return
		}
		status = &s
	}

	runs, err := h.runs.ListRuns(r.Context(), status, limit)
	if err != nil {
		logger.WithError(err).Error("Failed to list runs")
		http.Error(w, "Failed to list runs", http.StatusInternalServerError)
		return
	}

	items := make([]map[string]interface{}, len(runs))
	for i, run := range runs {
		items[i] = map[string]interface{}{
			"id":         run.ID,
			"job_name":   run.JobName,
			"status":     run.Status,
			"created_at": run.CreatedAt,
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"items": items})
}

// GetRun handles GET /v1/runs/{id}. The id may also be a training job name.
func (h *RunHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	run, ok := h.lookup(w, r)
	if !ok {
		return
	}

	response := map[string]interface{}{
		"id":             run.ID,
		"job_name":       run.JobName,
		"status":         run.Status,
		"dataset_id":     run.DatasetID,
		"model_name":     run.ModelName,
		"checkpoint_uri": run.CheckpointURI,
		"instance": map[string]interface{}{
			"type":  run.InstanceType,
			"count": run.InstanceCount,
		},
		"timestamps": map[string]interface{}{
			"created_at": run.CreatedAt,
			"updated_at": run.UpdatedAt,
		},
	}
	if run.FailureReason != "" {
		response["failure_reason"] = run.FailureReason
	}
	if run.PricePerHourUSD != nil {
		response["price_per_hour_usd"] = *run.PricePerHourUSD * float64(run.InstanceCount)
	}

	writeJSON(w, http.StatusOK, response)
}

// GetRunEvents handles GET /v1/runs/{id}/events
func (h *RunHandler) GetRunEvents(w http.ResponseWriter, r *http.Request) {
	run, ok := h.lookup(w, r)
	if !ok {
		return
	}

	events, err := h.events.GetRunEvents(r.Context(), run.ID, eventsLimit)
	if err != nil {
		logger.WithField("run_id", run.ID).WithError(err).Error("Failed to fetch run events")
		http.Error(w, "Failed to fetch events", http.StatusInternalServerError)
		return
	}

	items := make([]map[string]interface{}, len(events))
	for i, event := range events {
		item := map[string]interface{}{
			"at":        event.At,
			"to_status": event.ToStatus,
			"reason":    event.Reason,
		}
		if event.FromStatus != nil {
			item["from_status"] = *event.FromStatus
		}
		if len(event.MetaJSON) > 0 {
			item["meta"] = event.MetaJSON
		}
		items[i] = item
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"items": items})
}

func (h *RunHandler) lookup(w http.ResponseWriter, r *http.Request) (*models.Run, bool) {
	id := mux.Vars(r)["id"]

	run, err := h.runs.GetRun(r.Context(), id)
	if errors.Is(err, models.ErrRunNotFound) {
		run, err = h.runs.GetRunByJobName(r.Context(), id)
	}
	if errors.Is(err, models.ErrRunNotFound) {
		http.Error(w, "Run not found", http.StatusNotFound)
		return nil, false
	}
	if err != nil {
		logger.WithField("run", id).WithError(err).Error("Failed to fetch run")
		http.Error(w, "Failed to fetch run", http.StatusInternalServerError)
		return nil, false
	}
	return run, true
}

func validStatus(s models.JobStatus) bool {
	switch s {
	case models.JobStatusSubmitted, models.JobStatusRunning, models.JobStatusSucceeded, models.JobStatusFailed:
		return true
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
