package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/md-rashed-zaman/cabook/libs/auth"
	"github.com/md-rashed-zaman/cabook/libs/httpx"
	"github.com/md-rashed-zaman/cabook/services/availability-service/internal/metrics"
	"github.com/md-rashed-zaman/cabook/services/availability-service/internal/model"
	"github.com/md-rashed-zaman/cabook/services/availability-service/internal/planner"
)

// Invalidator drops cached snapshots.
type Invalidator interface {
	InvalidateDate(ctx context.Context, date string) error
	InvalidateSettings(ctx context.Context) error
}

// Notifier tells live sessions that their inputs changed.
type Notifier interface {
	NotifyDate(date string)
	NotifySettings()
}

type AdminHandler struct {
	businessID  string
	planner     *planner.Planner
	invalidator Invalidator
	notifier    Notifier
	logger      *slog.Logger
	metrics     *metrics.Metrics
}

func NewAdminHandler(businessID string, p *planner.Planner, inv Invalidator, n Notifier, logger *slog.Logger, m *metrics.Metrics) *AdminHandler {
	return &AdminHandler{businessID: businessID, planner: p, invalidator: inv, notifier: n, logger: logger, metrics: m}
}

type invalidateRequest struct {
	Date string `json:"date"`
}

// Invalidate handles POST {"date": "YYYY-MM-DD"} for one date's ledger, or an
// empty body for the settings snapshot. Must sit behind auth.RequireAuth.
func (h *AdminHandler) Invalidate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpx.WriteError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if claims, ok := auth.ClaimsFromContext(r.Context()); ok && claims.BusinessID != "" && claims.BusinessID != h.businessID {
		httpx.WriteError(w, r, http.StatusForbidden, "token is for another business")
		return
	}

	var req invalidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		httpx.WriteError(w, r, http.StatusBadRequest, "invalid json body")
		return
	}

	date := strings.TrimSpace(req.Date)
	kind := "settings"
	var err error
	if date != "" {
		d, perr := h.planner.ParseDate(date)
		if perr != nil {
			httpx.WriteError(w, r, http.StatusBadRequest, perr.Error())
			return
		}
		date = d.Format(model.DateLayout)
		kind = "date"
		err = h.invalidator.InvalidateDate(r.Context(), date)
	} else {
		err = h.invalidator.InvalidateSettings(r.Context())
	}
	if err != nil {
		h.logger.Error("cache invalidation failed", "kind", kind, "date", date, "err", err)
		httpx.WriteError(w, r, http.StatusServiceUnavailable, "cache unavailable")
		return
	}

	h.metrics.Invalidated(kind)
	if kind == "date" {
		h.notifier.NotifyDate(date)
	} else {
		h.notifier.NotifySettings()
	}
	h.logger.Info("cache invalidated", "kind", kind, "date", date, "request_id", httpx.RequestIDFromContext(r.Context()))
	httpx.WriteJSON(w, http.StatusAccepted, map[string]string{"invalidated": kind, "date": date})
}
