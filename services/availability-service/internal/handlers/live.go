package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/websocket"

	"github.com/md-rashed-zaman/cabook/services/availability-service/internal/metrics"
	"github.com/md-rashed-zaman/cabook/services/availability-service/internal/model"
	"github.com/md-rashed-zaman/cabook/services/availability-service/internal/planner"
	"github.com/md-rashed-zaman/cabook/services/availability-service/internal/snapshot"
)

const liveWriteTimeout = 5 * time.Second

// LiveInbound is what the booking widget sends.
type LiveInbound struct {
	Type           string `json:"type"` // "select", "ping"
	Date           string `json:"date,omitempty"`
	ProfessionalID string `json:"professional_id,omitempty"`
}

// LiveOutbound is what the widget receives.
type LiveOutbound struct {
	Type      string            `json:"type"` // "session", "slots", "error", "pong"
	SessionID string            `json:"session_id,omitempty"`
	Error     string            `json:"error,omitempty"`
	Slots     *planner.DaySlots `json:"result,omitempty"`
}

// LiveHub tracks open live sessions so booking events can push fresh grids.
type LiveHub struct {
	planner *planner.Planner
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu       sync.RWMutex
	sessions map[string]*liveSession
}

type liveSession struct {
	id     string
	ctx    context.Context
	cancel context.CancelFunc

	sendMu  sync.Mutex
	write   func(LiveOutbound) error
	tracker snapshot.Tracker

	mu             sync.Mutex
	cfg            *model.ScheduleConfig
	date           string
	professionalID string
}

func NewLiveHub(p *planner.Planner, logger *slog.Logger, m *metrics.Metrics) *LiveHub {
	return &LiveHub{planner: p, logger: logger, metrics: m, sessions: map[string]*liveSession{}}
}

func (h *LiveHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	websocket.Handler(h.serve).ServeHTTP(w, r)
}

func (h *LiveHub) serve(conn *websocket.Conn) {
	ctx, cancel := context.WithCancel(conn.Request().Context())
	defer cancel()

	s := &liveSession{id: uuid.NewString(), ctx: ctx, cancel: cancel, write: jsonWriter(conn)}
	h.mu.Lock()
	h.sessions[s.id] = s
	h.mu.Unlock()
	h.metrics.LiveSessionOpened()
	defer func() {
		s.tracker.Stop()
		h.mu.Lock()
		delete(h.sessions, s.id)
		h.mu.Unlock()
		h.metrics.LiveSessionClosed()
	}()

	h.logger.Debug("live session opened", "session_id", s.id)
	h.send(s, LiveOutbound{Type: "session", SessionID: s.id})

	for {
		var msg LiveInbound
		if err := websocket.JSON.Receive(conn, &msg); err != nil {
			h.logger.Debug("live session closed", "session_id", s.id, "err", err)
			return
		}
		switch msg.Type {
		case "ping":
			h.send(s, LiveOutbound{Type: "pong"})
		case "select":
			date := strings.TrimSpace(msg.Date)
			if _, err := h.planner.ParseDate(date); err != nil {
				h.send(s, LiveOutbound{Type: "error", Error: err.Error()})
				continue
			}
			s.mu.Lock()
			s.date, s.professionalID = date, strings.TrimSpace(msg.ProfessionalID)
			h.recomputeLocked(s)
			s.mu.Unlock()
		default:
			h.send(s, LiveOutbound{Type: "error", Error: "unknown message type"})
		}
	}
}

// recomputeLocked supersedes any in-flight computation for the session. s.mu must
// be held, so whatever changed the selection or cleared the settings is ticketed
// in the same critical section and an older computation can no longer store state.
func (h *LiveHub) recomputeLocked(s *liveSession) {
	if s.date == "" {
		return
	}
	ctx, ticket := s.tracker.Begin(s.ctx)
	go h.compute(ctx, s, ticket, s.date, s.professionalID, s.cfg)
}

func (h *LiveHub) compute(ctx context.Context, s *liveSession, ticket uint64, date, professionalID string, cfg *model.ScheduleConfig) {
	if cfg == nil {
		loaded, err := h.planner.Settings(ctx)
		if err != nil {
			if ctx.Err() != nil {
				h.metrics.StaleDiscarded()
				return
			}
			h.deliver(s, ticket, LiveOutbound{Type: "slots", Slots: &planner.DaySlots{
				Date: date, ProfessionalID: professionalID, Status: planner.StatusUnavailable, Slots: []model.Slot{},
			}})
			return
		}
		cfg = &loaded
		s.mu.Lock()
		if s.tracker.Current(ticket) {
			s.cfg = cfg
		}
		s.mu.Unlock()
	}

	out, err := h.planner.SlotsWith(ctx, *cfg, date, professionalID)
	if ctx.Err() != nil {
		h.metrics.StaleDiscarded()
		return
	}
	if err != nil {
		h.logger.Warn("live recompute failed", "session_id", s.id, "date", date, "err", err)
		h.deliver(s, ticket, LiveOutbound{Type: "error", Error: err.Error()})
		return
	}
	h.deliver(s, ticket, LiveOutbound{Type: "slots", Slots: &out})
}

func (h *LiveHub) deliver(s *liveSession, ticket uint64, msg LiveOutbound) {
	if !s.tracker.Deliver(ticket, func() { h.send(s, msg) }) {
		h.metrics.StaleDiscarded()
	}
}

// NotifyDate recomputes every session watching date.
func (h *LiveHub) NotifyDate(date string) {
	for _, s := range h.snapshotSessions() {
		s.mu.Lock()
		if s.date == date {
			h.recomputeLocked(s)
		}
		s.mu.Unlock()
	}
}

// NotifySettings drops every session's settings and recomputes.
func (h *LiveHub) NotifySettings() {
	for _, s := range h.snapshotSessions() {
		s.mu.Lock()
		s.cfg = nil
		h.recomputeLocked(s)
		s.mu.Unlock()
	}
}

func (h *LiveHub) Sessions() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

func (h *LiveHub) snapshotSessions() []*liveSession {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*liveSession, 0, len(h.sessions))
	for _, s := range h.sessions {
		out = append(out, s)
	}
	return out
}

func jsonWriter(conn *websocket.Conn) func(LiveOutbound) error {
	return func(msg LiveOutbound) error {
		if err := conn.SetWriteDeadline(time.Now().Add(liveWriteTimeout)); err != nil {
			return err
		}
		return websocket.JSON.Send(conn, msg)
	}
}

// send ends the session on a failed write so its in-flight computations stop.
func (h *LiveHub) send(s *liveSession, msg LiveOutbound) {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	if err := s.write(msg); err != nil {
		h.logger.Debug("live write failed", "session_id", s.id, "type", msg.Type, "err", err)
		s.cancel()
	}
}
