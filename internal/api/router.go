package api

import (
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/sebastiankruger/truck-telemetry-simulator/internal/health"
)

// NewRouter wires the API, health probes, metrics and the embedded UI
func NewRouter(h *Handler, hh *health.Handler, metrics http.Handler) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/health", hh.HandleHealth).Methods(http.MethodGet)
	r.HandleFunc("/health/live", hh.HandleLive).Methods(http.MethodGet)
	r.HandleFunc("/health/ready", hh.HandleReady).Methods(http.MethodGet)
	if metrics != nil {
		r.Handle("/metrics", metrics).Methods(http.MethodGet)
	}

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", h.HandleHealth).Methods(http.MethodGet)
	api.HandleFunc("/summary", h.HandleSummary).Methods(http.MethodGet)
	api.HandleFunc("/trucks/{id:[0-9]+}", h.HandleTruck).Methods(http.MethodGet)
	api.HandleFunc("/trucks/{id:[0-9]+}/days/{day:[0-9]+}", h.HandleTruckDay).Methods(http.MethodGet)
	api.HandleFunc("/stream/{id:[0-9]+}/{day:[0-9]+}", h.HandleStream).Methods(http.MethodGet)
	api.HandleFunc("/replay", h.HandleReplayGet).Methods(http.MethodGet)
	api.HandleFunc("/replay", h.HandleReplayUpdate).Methods(http.MethodPut)
	api.HandleFunc("/replay/live", h.HandleReplayLive).Methods(http.MethodGet)

	r.PathPrefix("/").Handler(GetUIFileServer())

	return handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPut, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
	)(r)
}
