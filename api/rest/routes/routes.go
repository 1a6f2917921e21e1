package routes

import (
	"net/http"

	"training-launcher/api/rest/handlers"
	"training-launcher/storage"

	"github.com/gorilla/mux"
)

// Deps are the stores behind the status API. Runs and Events are nil when no
// database is configured; the run endpoints are then not registered.
type Deps struct {
	Runs     handlers.RunStore
	Events   handlers.EventStore
	Locators storage.LocatorStore
	Metrics  handlers.MetricsSource
}

// SetupRoutes configures all API routes
func SetupRoutes(r *mux.Router, deps Deps) {
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	if deps.Metrics != nil {
		r.HandleFunc("/metrics", handlers.NewMetricsHandler(deps.Metrics).GetMetrics).Methods("GET")
	}

	api := r.PathPrefix("/v1").Subrouter()

	locatorHandler := handlers.NewLocatorHandler(deps.Locators)
	api.HandleFunc("/locators/{name}", locatorHandler.GetLocator).Methods("GET")

	if deps.Runs != nil && deps.Events != nil {
		runHandler := handlers.NewRunHandler(deps.Runs, deps.Events)
		api.HandleFunc("/runs", runHandler.ListRuns).Methods("GET")
		api.HandleFunc("/runs/{id}", runHandler.GetRun).Methods("GET")
		api.HandleFunc("/runs/{id}/events", runHandler.GetRunEvents).Methods("GET")
	}
}
