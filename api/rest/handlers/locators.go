package handlers

import (
	"errors"
	"net/http"

	"training-launcher/core/logger"
	"training-launcher/core/models"
	"training-launcher/storage"

	"github.com/gorilla/mux"
)

// LocatorHandler serves stored locators to downstream workflows
type LocatorHandler struct {
	store storage.LocatorStore
}

func NewLocatorHandler(store storage.LocatorStore) *LocatorHandler {
	return &LocatorHandler{store: store}
}

// GetLocator handles GET /v1/locators/{name}
func (h *LocatorHandler) GetLocator(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	loc, err := h.store.GetLocator(r.Context(), name)
	if errors.Is(err, models.ErrLocatorNotFound) {
		http.Error(w, "Locator not found", http.StatusNotFound)
		return
	}
	if err != nil {
		logger.WithField("name", name).WithError(err).Error("Failed to read locator")
		http.Error(w, "Failed to read locator", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"name":       loc.Name,
		"value":      loc.Value,
		"job_name":   loc.JobName,
		"updated_at": loc.UpdatedAt,
	})
}
