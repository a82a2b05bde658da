package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/punchamoorthee/tenmo/internal/directory"
	"github.com/punchamoorthee/tenmo/internal/domain"
	"github.com/punchamoorthee/tenmo/internal/service"
	"github.com/punchamoorthee/tenmo/internal/store"
)

// Metrics
var (
	httpReqTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tenmo_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "endpoint", "status"})

	httpLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tenmo_http_request_duration_seconds",
		Help:    "Request latency",
		Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1},
	}, []string{"method", "endpoint"})
)

const requestIDHeader = "X-Request-ID"

type Handler struct {
	ledger    *service.TransferLedger
	queries   *service.QueryService
	directory directory.Directory
	logger    *zap.Logger
}

func NewHandler(ledger *service.TransferLedger, queries *service.QueryService, dir directory.Directory, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{ledger: ledger, queries: queries, directory: dir, logger: logger.Named("api")}
}

// instrument times each routed request and tags it with a request id.
func (h *Handler) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)

		timer := prometheus.NewTimer(httpLatency.WithLabelValues(r.Method, endpoint(r)))
		defer timer.ObserveDuration()

		h.logger.Debug("request", zap.String("request_id", id), zap.String("method", r.Method), zap.String("path", r.URL.Path))
		next.ServeHTTP(w, r)
	})
}

func endpoint(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}

// Helpers
func (h *Handler) respondJSON(w http.ResponseWriter, r *http.Request, code int, payload interface{}) {
	httpReqTotal.WithLabelValues(r.Method, endpoint(r), strconv.Itoa(code)).Inc()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	h.respondJSON(w, r, code, map[string]string{"error": msg})
}

// respondFailure turns a core failure into the status and message the client sees.
func (h *Handler) respondFailure(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidAmount):
		h.respondError(w, r, http.StatusUnprocessableEntity, "Amount must be greater than 0.00 with at most two decimal places")
	case errors.Is(err, domain.ErrSelfTransferNotAllowed):
		h.respondError(w, r, http.StatusUnprocessableEntity, "Cannot transfer to self")
	case errors.Is(err, domain.ErrInsufficientFunds):
		h.respondError(w, r, http.StatusUnprocessableEntity, "Insufficient funds")
	case errors.Is(err, domain.ErrAccountNotFound):
		h.respondError(w, r, http.StatusNotFound, "Account not found")
	case errors.Is(err, domain.ErrNotFound):
		h.respondError(w, r, http.StatusNotFound, "Transfer not found")
	case errors.Is(err, domain.ErrUserNotFound):
		h.respondError(w, r, http.StatusNotFound, "User not found")
	case errors.Is(err, domain.ErrInvalidTransition):
		h.respondError(w, r, http.StatusConflict, "Transfer can no longer change state")
	case errors.Is(err, store.ErrConflict):
		h.respondError(w, r, http.StatusConflict, "Request conflicted with a concurrent transfer")
	default:
		h.logger.Error("request failed",
			zap.String("request_id", w.Header().Get(requestIDHeader)),
			zap.String("endpoint", endpoint(r)),
			zap.Error(err))
		h.respondError(w, r, http.StatusInternalServerError, "Internal Server Error")
	}
}

// pathID parses the {name} route variable as an id, answering 400 when it is not one.
func (h *Handler) pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil || id <= 0 {
		h.respondError(w, r, http.StatusBadRequest, "Invalid "+name)
		return 0, false
	}
	return id, true
}
