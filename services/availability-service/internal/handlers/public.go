package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/md-rashed-zaman/cabook/libs/httpx"
	"github.com/md-rashed-zaman/cabook/services/availability-service/internal/planner"
)

type PublicHandler struct {
	planner *planner.Planner
	logger  *slog.Logger
}

func NewPublicHandler(p *planner.Planner, logger *slog.Logger) *PublicHandler {
	return &PublicHandler{planner: p, logger: logger}
}

func (h *PublicHandler) Calendar(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpx.WriteError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	cal, err := h.planner.Calendar(r.Context())
	if err != nil {
		httpx.WriteError(w, r, http.StatusServiceUnavailable, "request cancelled")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, cal)
}

// Slots answers GET /slots?date=YYYY-MM-DD[&professional_id=]. A backend outage
// is a 200 with status "unavailable" and no slots.
func (h *PublicHandler) Slots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpx.WriteError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	q := r.URL.Query()
	date := strings.TrimSpace(q.Get("date"))
	if date == "" {
		httpx.WriteError(w, r, http.StatusBadRequest, "date is required")
		return
	}
	professionalID := strings.TrimSpace(q.Get("professional_id"))
	if professionalID == "" {
		professionalID = strings.TrimSpace(q.Get("ca_id"))
	}

	out, err := h.planner.Slots(r.Context(), date, professionalID)
	if err != nil {
		h.writePlannerError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (h *PublicHandler) Professionals(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpx.WriteError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	list, err := h.planner.Professionals(r.Context())
	if err != nil {
		h.logger.Warn("list professionals failed", "request_id", httpx.RequestIDFromContext(r.Context()), "err", err)
		httpx.WriteError(w, r, http.StatusBadGateway, "professionals unavailable")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"professionals": list})
}

func (h *PublicHandler) writePlannerError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, planner.ErrInvalidDate):
		httpx.WriteError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, planner.ErrUnknownProfessional):
		httpx.WriteError(w, r, http.StatusNotFound, "unknown professional")
	case errors.Is(err, planner.ErrScheduleData):
		h.logger.Error("schedule data is malformed", "request_id", httpx.RequestIDFromContext(r.Context()), "err", err)
		httpx.WriteError(w, r, http.StatusInternalServerError, "schedule configuration is invalid")
	default:
		httpx.WriteError(w, r, http.StatusServiceUnavailable, "availability unavailable")
	}
}
