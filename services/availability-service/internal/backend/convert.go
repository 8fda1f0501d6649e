package backend

import (
	"strings"
	"time"

	"github.com/md-rashed-zaman/cabook/services/availability-service/internal/model"
)

func (w settingsWire) toModel(loc *time.Location) model.ScheduleConfig {
	cfg := model.ScheduleConfig{
		OffDays:            make(map[string]struct{}, len(w.OffDays)),
		AdvanceBookingDays: int(w.AdvanceBookingDays),
	}
	for _, d := range w.OffDays {
		if d = normalizeDate(d, loc); d != "" {
			cfg.OffDays[d] = struct{}{}
		}
	}
	for name, hours := range w.WeeklySchedule {
		day, ok := model.WeekdayFromName(name)
		if !ok {
			continue
		}
		cfg.Weekly[day] = model.DayHours{Enabled: hours.Enabled, Start: hours.Start, End: hours.End}
	}
	if cfg.AdvanceBookingDays <= 0 {
		cfg.AdvanceBookingDays = model.DefaultAdvanceBookingDays
	}
	return cfg
}

// toModel collapses the professional reference to the single canonical id.
func (w appointmentWire) toModel(loc *time.Location) model.Appointment {
	return model.Appointment{
		ID:              string(firstID(w.ID, w.MongoID)),
		Date:            normalizeDate(w.Date, loc),
		TimeSlot:        strings.TrimSpace(w.TimeSlot),
		DurationMinutes: int(w.Duration),
		Status:          model.Status(strings.ToLower(strings.TrimSpace(w.Status))),
		ProfessionalID:  string(firstID(w.AssignedCA, w.AssignedProfessionalID, w.CAID, w.ProfessionalID)),
	}
}

func (w windowWire) toModel(loc *time.Location) model.UnavailabilityWindow {
	return model.UnavailabilityWindow{
		Date:      normalizeDate(w.Date, loc),
		StartTime: strings.TrimSpace(w.StartTime),
		EndTime:   strings.TrimSpace(w.EndTime),
		Reason:    w.Reason,
	}
}

func (w professionalWire) toModel(loc *time.Location) model.Professional {
	active := true
	switch {
	case w.IsActive != nil:
		active = *w.IsActive
	case w.Status != "":
		active = strings.EqualFold(strings.TrimSpace(w.Status), "active")
	}
	experience := w.ExperienceYears
	if experience == 0 {
		experience = w.Experience
	}
	p := model.Professional{
		ID:              string(firstID(w.ID, w.MongoID)),
		Name:            w.Name,
		Specialization:  w.Specialization,
		ExperienceYears: int(experience),
		Active:          active,
	}
	for _, win := range w.UnavailableSlots {
		p.Unavailable = append(p.Unavailable, win.toModel(loc))
	}
	return p
}
