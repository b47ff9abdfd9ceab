package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	optionssvc "minerva/internal/services/options"
	"minerva/pkg/errors"
	"minerva/pkg/logger"
)

// OptionsHandler exposes the options service over JSON endpoints
type OptionsHandler struct {
	service *optionssvc.Service
	log     *logger.Logger
}

// NewOptionsHandler creates the options API handler
func NewOptionsHandler(service *optionssvc.Service, log *logger.Logger) *OptionsHandler {
	return &OptionsHandler{
		service: service,
		log:     log.With("component", "options_api"),
	}
}

// Register mounts all options routes on the mux
func (h *OptionsHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /v1/options/search", h.handleSearch)
	mux.HandleFunc("POST /v1/options/search/batch", h.handleBatchSearch)
	mux.HandleFunc("POST /v1/options/snapshots", h.handleStore)
	mux.HandleFunc("GET /v1/options/snapshots/{id}", h.handleGetSnapshot)
	mux.HandleFunc("GET /v1/options/history", h.handleHistory)
	mux.HandleFunc("POST /v1/options/similar", h.handleSimilar)
	mux.HandleFunc("POST /v1/options/anomaly", h.handleAnomaly)
}

func (h *OptionsHandler) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	refresh, _ := strconv.ParseBool(q.Get("refresh"))

	result, err := h.service.SearchOptions(r.Context(), q.Get("ticker"), q.Get("date"), limit, refresh)
	if err != nil {
		// A partial write still produced a usable snapshot
		var partial *errors.PartialWriteError
		if errors.As(err, &partial) && result != nil {
			h.log.Warnw("Serving snapshot from partial write",
				"snapshot_id", partial.SnapshotID, "stage", partial.Stage)
			h.writeJSON(w, http.StatusOK, map[string]interface{}{
				"result":  result,
				"warning": partial.Error(),
			})
			return
		}
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"result": result})
}

type batchSearchRequest struct {
	Tickers []string `json:"tickers"`
	Date    string   `json:"date"`
	Limit   int      `json:"limit"`
}

func (h *OptionsHandler) handleBatchSearch(w http.ResponseWriter, r *http.Request) {
	var req batchSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, errors.Wrap(errors.ErrInvalidInput, "invalid request body"))
		return
	}

	result, err := h.service.BatchSearchOptions(r.Context(), req.Tickers, req.Date, req.Limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

type storeSnapshotRequest struct {
	Ticker string          `json:"ticker"`
	Date   string          `json:"date"`
	Data   json.RawMessage `json:"data"`
}

func (h *OptionsHandler) handleStore(w http.ResponseWriter, r *http.Request) {
	var req storeSnapshotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, errors.Wrap(errors.ErrInvalidInput, "invalid request body"))
		return
	}

	snapshot, err := h.service.StoreSnapshot(r.Context(), req.Data, req.Ticker, req.Date)
	if err != nil {
		var partial *errors.PartialWriteError
		if errors.As(err, &partial) && snapshot != nil {
			h.writeJSON(w, http.StatusCreated, map[string]interface{}{
				"snapshot": snapshot,
				"warning":  partial.Error(),
			})
			return
		}
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, map[string]interface{}{"snapshot": snapshot})
}

func (h *OptionsHandler) handleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.service.GetSnapshot(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"snapshot": snapshot})
}

func (h *OptionsHandler) handleHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))

	snapshots, err := h.service.GetHistory(r.Context(), q.Get("ticker"), q.Get("from"), q.Get("to"), limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"snapshots": snapshots,
		"count":     len(snapshots),
	})
}

type similarRequest struct {
	Query  string `json:"query"`
	Ticker string `json:"ticker"`
	Limit  int    `json:"limit"`
}

func (h *OptionsHandler) handleSimilar(w http.ResponseWriter, r *http.Request) {
	var req similarRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, errors.Wrap(errors.ErrInvalidInput, "invalid request body"))
		return
	}

	hits, err := h.service.SearchSimilar(r.Context(), req.Query, req.Ticker, req.Limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"hits":  hits,
		"count": len(hits),
	})
}

type anomalyRequest struct {
	Ticker          string   `json:"ticker"`
	ReferenceDate   string   `json:"reference_date"`
	ComparisonDates []string `json:"comparison_dates"`
	MinSimilarity   float64  `json:"min_similarity"`
	MaxResults      int      `json:"max_results"`
}

func (h *OptionsHandler) handleAnomaly(w http.ResponseWriter, r *http.Request) {
	var req anomalyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, errors.Wrap(errors.ErrInvalidInput, "invalid request body"))
		return
	}

	report, err := h.service.DetectAnomaly(r.Context(),
		req.Ticker, req.ReferenceDate, req.ComparisonDates, req.MinSimilarity, req.MaxResults)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, report)
}

func (h *OptionsHandler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.log.Errorw("Failed to encode response", "error", err)
	}
}

func (h *OptionsHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, errors.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, errors.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, errors.ErrRateLimited):
		status = http.StatusTooManyRequests
	case errors.Is(err, errors.ErrUpstream):
		status = http.StatusBadGateway
	case errors.Is(err, errors.ErrTimeout):
		status = http.StatusGatewayTimeout
	}

	if status >= http.StatusInternalServerError {
		h.log.Errorw("Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}

	h.writeJSON(w, status, map[string]string{"error": err.Error()})
}
