package handlers

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/net/websocket"

	"github.com/md-rashed-zaman/cabook/services/availability-service/internal/model"
	"github.com/md-rashed-zaman/cabook/services/availability-service/internal/planner"
	"github.com/md-rashed-zaman/cabook/services/availability-service/internal/snapshot"
)

func dialLive(t *testing.T, hub *LiveHub) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(hub)
	t.Cleanup(srv.Close)
	ws, err := websocket.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), "", "http://localhost/")
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = ws.Close() })
	return ws
}

func receive(t *testing.T, ws *websocket.Conn) LiveOutbound {
	t.Helper()
	_ = ws.SetReadDeadline(time.Now().Add(5 * time.Second))
	var msg LiveOutbound
	if err := websocket.JSON.Receive(ws, &msg); err != nil {
		t.Fatalf("receive: %v", err)
	}
	return msg
}

func send(t *testing.T, ws *websocket.Conn, msg LiveInbound) {
	t.Helper()
	if err := websocket.JSON.Send(ws, msg); err != nil {
		t.Fatalf("send: %v", err)
	}
}

func TestLiveSelectAndPush(t *testing.T) {
	f := &fakeBackend{cfg: schedule()}
	hub := NewLiveHub(newTestPlanner(f), discardLogger(), nil)
	ws := dialLive(t, hub)

	if msg := receive(t, ws); msg.Type != "session" || msg.SessionID == "" {
		t.Fatalf("expected session greeting, got %+v", msg)
	}

	send(t, ws, LiveInbound{Type: "select", Date: "2026-02-02"})
	msg := receive(t, ws)
	if msg.Type != "slots" || msg.Slots == nil || msg.Slots.Status != planner.StatusOpen || msg.Slots.Available != 4 {
		t.Fatalf("expected four open slots, got %+v", msg)
	}

	f.setAppointments([]model.Appointment{{ID: "a1", TimeSlot: "10:00", Status: model.StatusConfirmed}})
	hub.NotifyDate("2026-02-03")
	hub.NotifyDate("2026-02-02")
	msg = receive(t, ws)
	if msg.Slots == nil || msg.Slots.Date != "2026-02-02" || msg.Slots.Available != 3 {
		t.Fatalf("expected pushed grid with one booking, got %+v", msg)
	}
}

func TestLiveDropsSupersededSelection(t *testing.T) {
	f := &fakeBackend{cfg: schedule(), block: map[string]bool{"2026-02-03": true}}
	hub := NewLiveHub(newTestPlanner(f), discardLogger(), nil)
	ws := dialLive(t, hub)
	receive(t, ws)

	// Prime settings so the blocked selection is stuck on its ledger fetch.
	send(t, ws, LiveInbound{Type: "select", Date: "2026-02-02"})
	receive(t, ws)

	send(t, ws, LiveInbound{Type: "select", Date: "2026-02-03"})
	send(t, ws, LiveInbound{Type: "select", Date: "2026-02-04", ProfessionalID: ""})
	msg := receive(t, ws)
	if msg.Slots == nil || msg.Slots.Date != "2026-02-04" {
		t.Fatalf("expected only the newest selection, got %+v", msg)
	}

	send(t, ws, LiveInbound{Type: "ping"})
	if msg := receive(t, ws); msg.Type != "pong" {
		t.Fatalf("expected pong with no stale result in between, got %+v", msg)
	}
}

func TestLiveRejectsBadInput(t *testing.T) {
	hub := NewLiveHub(newTestPlanner(&fakeBackend{cfg: schedule()}), discardLogger(), nil)
	ws := dialLive(t, hub)
	receive(t, ws)

	send(t, ws, LiveInbound{Type: "select", Date: "soon"})
	if msg := receive(t, ws); msg.Type != "error" {
		t.Fatalf("expected error for bad date, got %+v", msg)
	}
	send(t, ws, LiveInbound{Type: "dance"})
	if msg := receive(t, ws); msg.Type != "error" {
		t.Fatalf("expected error for unknown type, got %+v", msg)
	}
	if hub.Sessions() != 1 {
		t.Fatalf("expected one session, got %d", hub.Sessions())
	}
}

// slowSettings holds its first answer until release is closed and then returns
// the schedule it saw when the call started.
type slowSettings struct {
	mu      sync.Mutex
	cfg     model.ScheduleConfig
	gated   bool
	entered chan struct{}
	release chan struct{}
}

func (g *slowSettings) Settings(context.Context) (model.ScheduleConfig, error) {
	g.mu.Lock()
	cfg, gated := g.cfg, g.gated
	g.gated = false
	g.mu.Unlock()
	if gated {
		close(g.entered)
		<-g.release
	}
	return cfg, nil
}

func TestLiveSettingsUpdateWinsOverSlowerFetch(t *testing.T) {
	f := &fakeBackend{}
	settings := &slowSettings{cfg: schedule(), gated: true, entered: make(chan struct{}), release: make(chan struct{})}
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	p := planner.New(settings, f, snapshot.NewLoader(settings, f, f, nil),
		planner.Options{Location: time.UTC, Now: func() time.Time { return now }}, discardLogger(), nil)
	hub := NewLiveHub(p, discardLogger(), nil)
	ws := dialLive(t, hub)
	receive(t, ws)

	send(t, ws, LiveInbound{Type: "select", Date: "2026-02-02"})
	<-settings.entered

	updated := schedule()
	updated.Weekly[time.Monday].End = "10:00"
	settings.mu.Lock()
	settings.cfg = updated
	settings.mu.Unlock()
	hub.NotifySettings()

	msg := receive(t, ws)
	if msg.Slots == nil || msg.Slots.Available != 2 {
		t.Fatalf("expected the updated two-slot day, got %+v", msg)
	}

	close(settings.release)
	send(t, ws, LiveInbound{Type: "ping"})
	if msg := receive(t, ws); msg.Type != "pong" {
		t.Fatalf("expected the superseded fetch to stay silent, got %+v", msg)
	}

	hub.NotifyDate("2026-02-02")
	msg = receive(t, ws)
	if msg.Slots == nil || msg.Slots.Available != 2 {
		t.Fatalf("expected cached settings to stay updated, got %+v", msg)
	}
}

func TestLiveWriteFailureEndsSession(t *testing.T) {
	hub := NewLiveHub(newTestPlanner(&fakeBackend{cfg: schedule()}), discardLogger(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	writes := 0
	s := &liveSession{id: "s-1", ctx: ctx, cancel: cancel, write: func(LiveOutbound) error {
		writes++
		return errors.New("broken pipe")
	}}
	hub.send(s, LiveOutbound{Type: "pong"})

	if writes != 1 {
		t.Fatalf("expected one write attempt, got %d", writes)
	}
	if ctx.Err() == nil {
		t.Fatal("expected session context cancelled after a failed write")
	}

	fetchCtx, _ := s.tracker.Begin(s.ctx)
	if fetchCtx.Err() == nil {
		t.Fatal("expected computations of a dead session to start cancelled")
	}
}
