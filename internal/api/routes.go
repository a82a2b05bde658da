package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter wires the handler onto its routes. Only the Send flow is exposed;
// requests and approvals stay internal to the ledger.
func NewRouter(h *Handler) *mux.Router {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	r.HandleFunc("/health", h.HealthCheckHandler).Methods(http.MethodGet)

	apiV1 := r.PathPrefix("/api/v1").Subrouter()
	apiV1.Use(h.instrument)
	apiV1.HandleFunc("/transfers", h.CreateTransferHandler).Methods(http.MethodPost)
	apiV1.HandleFunc("/transfers/{id}", h.GetTransferHandler).Methods(http.MethodGet)
	apiV1.HandleFunc("/accounts", h.SearchAccountsHandler).Methods(http.MethodGet)
	apiV1.HandleFunc("/accounts/{id}/transfers", h.GetAccountTransfersHandler).Methods(http.MethodGet)
	apiV1.HandleFunc("/accounts/{id}/username", h.GetAccountUsernameHandler).Methods(http.MethodGet)
	apiV1.HandleFunc("/users/{id}/account", h.GetUserAccountHandler).Methods(http.MethodGet)
	apiV1.HandleFunc("/users/{id}/balance", h.GetUserBalanceHandler).Methods(http.MethodGet)

	return r
}
