package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/aigoflow/news-classifier/internal/audit"
	"github.com/aigoflow/news-classifier/internal/models"
	"github.com/aigoflow/news-classifier/internal/repository"
	"github.com/aigoflow/news-classifier/internal/services"
)

const maxBodyBytes = 1 << 20

type PredictHandler struct {
	predict  audit.PredictFunc
	labels   []string
	stats    *services.Stats
	requests repository.RequestRepositoryInterface
}

// NewPredictHandler serves predict (already wrapped for auditing). requests may
// be nil when the sqlite mirror is disabled.
func NewPredictHandler(predict audit.PredictFunc, labels []string, stats *services.Stats, requests repository.RequestRepositoryInterface) *PredictHandler {
	return &PredictHandler{
		predict:  predict,
		labels:   labels,
		stats:    stats,
		requests: requests,
	}
}

func (h *PredictHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.handleRoot)
	mux.HandleFunc("POST /predict", h.handlePredict)
	mux.HandleFunc("GET /healthz", h.handleHealth)
	mux.HandleFunc("GET /logs", h.handleLogs)
}

func (h *PredictHandler) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"Hello": "World"})
}

func (h *PredictHandler) handlePredict(w http.ResponseWriter, r *http.Request) {
	reqID := r.Header.Get("X-Request-ID")
	if reqID == "" {
		reqID = ulid.Make().String()
	}
	w.Header().Set("X-Request-ID", reqID)

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		h.stats.Reject()
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "could not read body: "+err.Error())
		return
	}

	req, err := models.DecodePredictRequest(body)
	if err != nil {
		h.stats.Reject()
		slog.Debug("Rejected predict request", "req_id", reqID, "error", err)
		writeValidationError(w, err)
		return
	}

	start := time.Now()
	done := h.stats.Begin()
	resp, err := h.predict(audit.WithRequestMeta(r.Context(), reqID, "http"), req)
	done(err)
	if err != nil {
		slog.Error("Prediction failed", "req_id", reqID, "transport", "http", "error", err)
		writeError(w, http.StatusInternalServerError, errorType(err), "internal server error")
		return
	}

	slog.Info("Prediction served",
		"req_id", reqID,
		"label", resp.Label,
		"lang", services.DetectLanguage(req),
		"duration_ms", time.Since(start).Milliseconds())

	writeJSON(w, http.StatusOK, resp)
}

func (h *PredictHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("verbose") == "" {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"labels": h.labels,
		"stats":  h.stats.Snapshot(),
	})
}

func (h *PredictHandler) handleLogs(w http.ResponseWriter, r *http.Request) {
	if h.requests == nil {
		writeError(w, http.StatusServiceUnavailable, "unavailable", "request log database is disabled")
		return
	}

	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			limit = n
		}
	}

	logs, err := h.requests.GetRequestLogs(r.Context(), limit)
	if err != nil {
		slog.Error("Failed to get request logs", "error", err)
		writeError(w, http.StatusInternalServerError, "storage_error", "failed to get logs")
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

func errorType(err error) string {
	var lwErr *models.LogWriteError
	if errors.As(err, &lwErr) {
		return "log_write_error"
	}
	return "inference_error"
}

func writeValidationError(w http.ResponseWriter, err error) {
	var vErr *models.ValidationError
	if !errors.As(err, &vErr) {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", err.Error())
		return
	}
	writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
		"error": map[string]interface{}{
			"message": vErr.Error(),
			"type":    "validation_error",
			"fields":  vErr.Fields,
		},
	})
}

func writeError(w http.ResponseWriter, status int, typ, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"message": message,
			"type":    typ,
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
