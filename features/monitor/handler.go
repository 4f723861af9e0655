package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"newswatch/internal/adapter/newsapi"
	"newswatch/internal/adapter/pushover"
	"newswatch/internal/middleware"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	status := h.service.Status(r.Context())

	w.Header().Set("Content-Type", "application/json")
	resp := map[string]interface{}{
		"data": map[string]interface{}{
			"enabled":       status.Enabled,
			"last_run":      formatLastRun(status.LastRun),
			"last_items":    status.LastItems,
			"interval_secs": int(status.Interval / time.Second),
			"preview_only":  status.PreviewOnly,
			"seen_count":    status.SeenCount,
		},
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	h.service.Start(r.Context())
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": "monitor started"}); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) Stop(w http.ResponseWriter, r *http.Request) {
	h.service.Stop(r.Context())
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": "monitor stopped"}); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) Run(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	results, err := h.service.RunOnce(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "manual poll cycle failed", "error", err)
		h.writeError(ctx, w, "UPSTREAM_ERROR", err.Error(), http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{
		"data": results,
		"meta": map[string]int{"count": len(results)},
	}); err != nil {
		slog.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (h *Handler) Results(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil {
			limit = parsed
		}
	}

	deliveries, err := h.service.Results(r.Context(), limit)
	if err != nil {
		h.writeError(r.Context(), w, "INTERNAL_ERROR", err.Error(), http.StatusInternalServerError)
		return
	}
	if deliveries == nil {
		deliveries = []Delivery{}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{
		"data": deliveries,
		"meta": map[string]int{"count": len(deliveries)},
	}); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) Test(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	article, err := h.service.Test(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "notification test failed", "error", err)
		switch {
		case errors.Is(err, newsapi.ErrNotConfigured), errors.Is(err, pushover.ErrNotConfigured):
			h.writeError(ctx, w, "NOT_CONFIGURED", err.Error(), http.StatusPreconditionFailed)
		case errors.Is(err, ErrNoMatch):
			h.writeError(ctx, w, "NOT_FOUND", err.Error(), http.StatusNotFound)
		default:
			h.writeError(ctx, w, "UPSTREAM_ERROR", err.Error(), http.StatusBadGateway)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": article}); err != nil {
		slog.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func formatLastRun(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, code, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
		"correlationId": middleware.GetCorrelationID(ctx),
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}
