package availability

import (
	"fmt"
	"time"

	"github.com/md-rashed-zaman/cabook/services/availability-service/internal/model"
)

// SlotQuery is one fully resolved snapshot for a single date.
type SlotQuery struct {
	// Date is the selected day in the business location; only its calendar date is used.
	Date time.Time
	// ProfessionalID scopes bookings and enables unavailability checks. Empty means any professional.
	ProfessionalID string
	Appointments   []model.Appointment
	Unavailable    []model.UnavailabilityWindow
	Now            time.Time
}

// IsDayOff reports whether day is an explicit off day or its weekday is closed.
// Horizon and past checks belong to the calendar, not here.
func IsDayOff(day time.Time, cfg model.ScheduleConfig) bool {
	if cfg.IsOffDate(day.Format(model.DateLayout)) {
		return true
	}
	return !cfg.Weekly.For(day.Weekday()).Enabled
}

// GenerateSlots lays the 30 minute grid over the day's opening hours and flags
// each slot past, booked or professional-unavailable. Closed days yield an empty
// grid. Unparseable times fail the whole day.
func GenerateSlots(cfg model.ScheduleConfig, q SlotQuery) ([]model.Slot, error) {
	slots := []model.Slot{}
	if IsDayOff(q.Date, cfg) {
		return slots, nil
	}

	day := q.Date.Weekday()
	hours := cfg.Weekly.For(day)
	open, err := ParseClock(hours.Start)
	if err != nil {
		return nil, fmt.Errorf("%s opening: %w", model.WeekdayName(day), err)
	}
	closing, err := ParseClock(hours.End)
	if err != nil {
		return nil, fmt.Errorf("%s closing: %w", model.WeekdayName(day), err)
	}
	if open >= closing {
		return nil, fmt.Errorf("%s %s-%s: %w", model.WeekdayName(day), hours.Start, hours.End, ErrInvalidHours)
	}

	date := q.Date.Format(model.DateLayout)
	booked, err := bookedSpans(date, q.ProfessionalID, q.Appointments)
	if err != nil {
		return nil, err
	}
	var blocked []span
	if q.ProfessionalID != "" {
		if blocked, err = windowSpans(date, q.Unavailable); err != nil {
			return nil, err
		}
	}
	pastUntil := pastCutoff(date, q.Now.In(q.Date.Location()))

	for m := open; m < closing; m += model.SlotMinutes {
		slot := span{start: m, end: m + model.SlotMinutes}
		s := model.Slot{
			Time:                      FormatClock(m),
			Display:                   DisplayClock(m),
			IsPast:                    m <= pastUntil,
			IsBooked:                  overlapsAny(slot, booked),
			IsProfessionalUnavailable: overlapsAny(slot, blocked),
		}
		s.IsDisabled = s.IsPast || s.IsBooked || s.IsProfessionalUnavailable
		slots = append(slots, s)
	}
	return slots, nil
}

// pastCutoff returns the last minute that counts as past on date: none for
// future dates, the whole day for earlier dates, and "now" for today so the
// slot already in progress cannot be booked.
func pastCutoff(date string, now time.Time) int {
	today := now.Format(model.DateLayout)
	switch {
	case date > today:
		return -1
	case date < today:
		return 24 * 60
	default:
		return now.Hour()*60 + now.Minute()
	}
}

func bookedSpans(date, professionalID string, appts []model.Appointment) ([]span, error) {
	out := make([]span, 0, len(appts))
	for _, a := range appts {
		if a.Date != "" && a.Date != date {
			continue
		}
		if !a.Status.Occupies() {
			continue
		}
		// Unassigned bookings hold the slot for everyone.
		if professionalID != "" && a.ProfessionalID != "" && a.ProfessionalID != professionalID {
			continue
		}
		start, err := ParseClock(a.TimeSlot)
		if err != nil {
			return nil, fmt.Errorf("appointment %s: %w", a.ID, err)
		}
		out = append(out, span{start: start, end: start + a.Duration()})
	}
	return out, nil
}

func windowSpans(date string, windows []model.UnavailabilityWindow) ([]span, error) {
	out := make([]span, 0, len(windows))
	for _, w := range windows {
		if w.Date != "" && w.Date != date {
			continue
		}
		start, err := ParseClock(w.StartTime)
		if err != nil {
			return nil, fmt.Errorf("unavailability on %s: %w", w.Date, err)
		}
		end, err := ParseClock(w.EndTime)
		if err != nil {
			return nil, fmt.Errorf("unavailability on %s: %w", w.Date, err)
		}
		out = append(out, span{start: start, end: end})
	}
	return out, nil
}
