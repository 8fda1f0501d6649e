package model

import (
	"testing"
	"time"
)

func TestStatusOccupies(t *testing.T) {
	cases := map[Status]bool{
		"":              true,
		StatusPending:   true,
		StatusConfirmed: true,
		StatusCompleted: false,
		StatusCancelled: false,
		"no_show":       false,
	}
	for status, want := range cases {
		if got := status.Occupies(); got != want {
			t.Fatalf("status %q: expected %v, got %v", status, want, got)
		}
	}
}

func TestMissingWeekdayIsClosed(t *testing.T) {
	var w WeeklySchedule
	w[time.Monday] = DayHours{Enabled: true, Start: "09:00", End: "17:00"}
	if w.For(time.Tuesday).Enabled {
		t.Fatal("expected unconfigured weekday to be closed")
	}
	if w.For(time.Weekday(9)).Enabled {
		t.Fatal("expected out of range weekday to be closed")
	}
	if !w.For(time.Monday).Enabled {
		t.Fatal("expected monday open")
	}
}

func TestWeekdayFromName(t *testing.T) {
	d, ok := WeekdayFromName(" Wednesday ")
	if !ok || d != time.Wednesday {
		t.Fatalf("expected wednesday, got %v (ok=%v)", d, ok)
	}
	if _, ok := WeekdayFromName("funday"); ok {
		t.Fatal("expected unknown name to fail")
	}
	if WeekdayName(time.Saturday) != "saturday" {
		t.Fatalf("unexpected name %q", WeekdayName(time.Saturday))
	}
}

func TestDefaults(t *testing.T) {
	if (ScheduleConfig{}).Horizon() != DefaultAdvanceBookingDays {
		t.Fatal("expected default horizon")
	}
	if (Appointment{}).Duration() != SlotMinutes {
		t.Fatal("expected default duration of one slot")
	}
	cfg := ScheduleConfig{OffDays: NewOffDays("2026-12-25", " ")}
	if !cfg.IsOffDate("2026-12-25") || len(cfg.OffDays) != 1 {
		t.Fatalf("unexpected off days %v", cfg.OffDays)
	}
}

func TestWindowsOn(t *testing.T) {
	p := Professional{Unavailable: []UnavailabilityWindow{
		{Date: "2026-02-02", StartTime: "13:00", EndTime: "14:00"},
		{Date: "2026-02-03", StartTime: "09:00", EndTime: "10:00"},
	}}
	got := p.WindowsOn("2026-02-02")
	if len(got) != 1 || got[0].StartTime != "13:00" {
		t.Fatalf("unexpected windows %+v", got)
	}
}
