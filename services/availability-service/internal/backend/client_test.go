package backend

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/md-rashed-zaman/cabook/libs/httpx"
	"github.com/md-rashed-zaman/cabook/services/availability-service/internal/model"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(Options{BaseURL: srv.URL, BusinessID: "biz-1", Timeout: time.Second, Transport: http.DefaultTransport})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestSettings(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/settings" || r.URL.Query().Get("business_id") != "biz-1" {
			t.Errorf("unexpected request %s", r.URL)
		}
		if r.Header.Get("X-Business-Id") != "biz-1" || r.Header.Get(httpx.RequestIDHeader) != "req-7" {
			t.Errorf("missing propagation headers: %v", r.Header)
		}
		_, _ = w.Write([]byte(`{
			"off_days": ["2026-12-25", "2026-12-26T00:00:00Z"],
			"weekly_schedule": {
				"monday": {"enabled": true, "start": "09:00", "end": "17:00"},
				"Saturday": {"enabled": false, "start": "10:00", "end": "12:00"},
				"someday": {"enabled": true, "start": "00:00", "end": "23:00"}
			},
			"advance_booking_days": "30"
		}`))
	})

	ctx := httpx.ContextWithRequestID(context.Background(), "req-7")
	cfg, err := c.Settings(ctx)
	if err != nil {
		t.Fatalf("Settings: %v", err)
	}
	if !cfg.Weekly[time.Monday].Enabled || cfg.Weekly[time.Monday].Start != "09:00" {
		t.Fatalf("unexpected monday %+v", cfg.Weekly[time.Monday])
	}
	if cfg.Weekly[time.Tuesday].Enabled || cfg.Weekly[time.Saturday].Enabled {
		t.Fatal("expected missing and disabled days closed")
	}
	if !cfg.IsOffDate("2026-12-25") || !cfg.IsOffDate("2026-12-26") {
		t.Fatalf("unexpected off days %v", cfg.OffDays)
	}
	if cfg.AdvanceBookingDays != 30 {
		t.Fatalf("expected horizon 30, got %d", cfg.AdvanceBookingDays)
	}
}

func TestSettingsDefaults(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})
	cfg, err := c.Settings(context.Background())
	if err != nil {
		t.Fatalf("Settings: %v", err)
	}
	for d := time.Sunday; d <= time.Saturday; d++ {
		if cfg.Weekly[d].Enabled {
			t.Fatalf("expected %s closed", d)
		}
	}
	if len(cfg.OffDays) != 0 || cfg.AdvanceBookingDays != model.DefaultAdvanceBookingDays {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
}

func TestLedgerBareArrayAndIDShim(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("date") != "2026-02-02" || r.URL.Query().Get("ca_id") != "ca-1" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`[
			{"_id": "a1", "date": "2026-02-02", "time_slot": "10:00", "duration": 60, "status": "Confirmed", "assigned_ca": {"_id": "ca-1"}},
			{"id": 2, "date": "2026-02-02", "time_slot": "11:00", "assigned_professional_id": "ca-2"},
			{"id": "a3", "date": "2026-02-02", "time_slot": "12:00", "duration": "90", "ca_id": {"id": "ca-3"}},
			{"id": "a4", "date": "2026-02-02", "time_slot": "13:00", "professional_id": "ca-4", "status": "cancelled"},
			{"id": "a5", "date": "2026-02-02", "time_slot": "14:00", "assigned_ca": null}
		]`))
	})

	ledger, err := c.Ledger(context.Background(), "2026-02-02", "ca-1")
	if err != nil {
		t.Fatalf("Ledger: %v", err)
	}
	want := []model.Appointment{
		{ID: "a1", Date: "2026-02-02", TimeSlot: "10:00", DurationMinutes: 60, Status: model.StatusConfirmed, ProfessionalID: "ca-1"},
		{ID: "2", Date: "2026-02-02", TimeSlot: "11:00", ProfessionalID: "ca-2"},
		{ID: "a3", Date: "2026-02-02", TimeSlot: "12:00", DurationMinutes: 90, ProfessionalID: "ca-3"},
		{ID: "a4", Date: "2026-02-02", TimeSlot: "13:00", Status: model.StatusCancelled, ProfessionalID: "ca-4"},
		{ID: "a5", Date: "2026-02-02", TimeSlot: "14:00"},
	}
	if len(ledger.Appointments) != len(want) {
		t.Fatalf("expected %d appointments, got %d", len(want), len(ledger.Appointments))
	}
	for i := range want {
		if ledger.Appointments[i] != want[i] {
			t.Fatalf("appointment %d: expected %+v, got %+v", i, want[i], ledger.Appointments[i])
		}
	}
}

func TestLedgerWrappedWithUnavailability(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Has("ca_id") {
			t.Errorf("expected no ca_id without a professional")
		}
		_, _ = w.Write([]byte(`{
			"appointments": [{"id": "a1", "date": "2026-02-02", "time_slot": "09:00"}],
			"ca_unavailable_slots": [{"date": "2026-02-02", "start_time": "13:00", "end_time": "14:00", "reason": "court"}]
		}`))
	})
	ledger, err := c.Ledger(context.Background(), "2026-02-02", "")
	if err != nil {
		t.Fatalf("Ledger: %v", err)
	}
	if len(ledger.Appointments) != 1 || len(ledger.Unavailable) != 1 {
		t.Fatalf("unexpected ledger %+v", ledger)
	}
	if ledger.Unavailable[0].StartTime != "13:00" || ledger.Unavailable[0].Reason != "court" {
		t.Fatalf("unexpected window %+v", ledger.Unavailable[0])
	}
}

func TestProfessionals(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/professionals":
			_, _ = w.Write([]byte(`{"professionals": [
				{"_id": "ca-1", "name": "Rina", "status": "active", "experience": 7},
				{"id": "ca-2", "name": "Omar", "status": "inactive"},
				{"id": "ca-3", "name": "Lee", "is_active": false, "status": "active"}
			]}`))
		case "/api/professionals/ca-1":
			_, _ = w.Write([]byte(`{"_id": "ca-1", "name": "Rina", "specialization": "tax",
				"unavailable_slots": [{"date": "2026-02-02", "start_time": "13:00", "end_time": "14:00"}]}`))
		default:
			http.NotFound(w, r)
		}
	})

	list, err := c.Professionals(context.Background())
	if err != nil {
		t.Fatalf("Professionals: %v", err)
	}
	if len(list) != 3 || !list[0].Active || list[1].Active || list[2].Active || list[0].ExperienceYears != 7 {
		t.Fatalf("unexpected professionals %+v", list)
	}

	p, err := c.Professional(context.Background(), "ca-1")
	if err != nil {
		t.Fatalf("Professional: %v", err)
	}
	if !p.Active || len(p.WindowsOn("2026-02-02")) != 1 {
		t.Fatalf("unexpected professional %+v", p)
	}

	if _, err := c.Professional(context.Background(), "ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStatusError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "db down", http.StatusBadGateway)
	})
	_, err := c.Settings(context.Background())
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusBadGateway || se.Body != "db down" {
		t.Fatalf("expected StatusError 502, got %v", err)
	}
}

func TestNewRejectsBadURL(t *testing.T) {
	if _, err := New(Options{BaseURL: "not a url"}); err == nil {
		t.Fatal("expected error")
	}
}

func TestLedgerConvertsInstantsToBusinessDate(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"appointments": [
				{"id": "a1", "date": "2026-02-01T18:30:00Z", "time_slot": "10:00"},
				{"id": "a2", "date": "2026-02-02T00:00:00Z", "time_slot": "11:00"},
				{"id": "a3", "date": "2026-02-02T09:00:00+05:30", "time_slot": "12:00"},
				{"id": "a4", "date": "2026-02-02 08:00:00", "time_slot": "13:00"}
			],
			"ca_unavailable_slots": [
				{"date": "2026-02-01T20:00:00Z", "start_time": "13:00", "end_time": "14:00"}
			]
		}`))
	}))
	t.Cleanup(srv.Close)
	c, err := New(Options{BaseURL: srv.URL, BusinessID: "biz-1", Location: loc, Transport: http.DefaultTransport})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ledger, err := c.Ledger(context.Background(), "2026-02-02", "")
	if err != nil {
		t.Fatalf("Ledger: %v", err)
	}
	if len(ledger.Appointments) != 4 || len(ledger.Unavailable) != 1 {
		t.Fatalf("unexpected ledger %+v", ledger)
	}
	for _, a := range ledger.Appointments {
		if a.Date != "2026-02-02" {
			t.Fatalf("appointment %s: expected business date 2026-02-02, got %s", a.ID, a.Date)
		}
	}
	if ledger.Unavailable[0].Date != "2026-02-02" {
		t.Fatalf("expected window on 2026-02-02, got %s", ledger.Unavailable[0].Date)
	}
}
