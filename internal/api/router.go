package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"timecompliance.service/internal/api/handler"
	"timecompliance.service/internal/core"
)

// NewRouter sets up the gorilla/mux router and defines all API routes.
func NewRouter(evaluations *core.EvaluationService, simulations *core.SimulationService) *mux.Router {

	complianceHandler := handler.ComplianceHandler{
		Evaluations: evaluations,
		Simulations: simulations,
	}

	r := mux.NewRouter()

	api := r.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/compliance/evaluate", complianceHandler.Evaluate).Methods(http.MethodPost)
	api.HandleFunc("/templates/simulate", complianceHandler.Simulate).Methods(http.MethodPost)
	api.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("Service is operational."))
	}).Methods(http.MethodGet)

	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	return r
}
