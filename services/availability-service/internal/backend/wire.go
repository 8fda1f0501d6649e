package backend

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/md-rashed-zaman/cabook/services/availability-service/internal/model"
)

// flexID accepts the id shapes the backend has shipped over time: a string,
// a number, or an embedded object carrying id/_id.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || bytes.Equal(b, []byte("null")):
		*f = ""
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexID(strings.TrimSpace(s))
	case b[0] == '{':
		var obj struct {
			ID      flexID `json:"id"`
			MongoID flexID `json:"_id"`
		}
		if err := json.Unmarshal(b, &obj); err != nil {
			return err
		}
		*f = firstID(obj.ID, obj.MongoID)
	default:
		*f = flexID(string(b))
	}
	return nil
}

func firstID(ids ...flexID) flexID {
	for _, id := range ids {
		if id != "" {
			return id
		}
	}
	return ""
}

// flexInt accepts numbers and numeric strings; anything else is zero.
type flexInt int

func (f *flexInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		*f = flexInt(n)
	} else {
		*f = 0
	}
	return nil
}

type dayWire struct {
	Enabled bool   `json:"enabled"`
	Start   string `json:"start"`
	End     string `json:"end"`
}

type settingsWire struct {
	OffDays            []string           `json:"off_days"`
	WeeklySchedule     map[string]dayWire `json:"weekly_schedule"`
	AdvanceBookingDays flexInt            `json:"advance_booking_days"`
}

type appointmentWire struct {
	ID                     flexID  `json:"id"`
	MongoID                flexID  `json:"_id"`
	Date                   string  `json:"date"`
	TimeSlot               string  `json:"time_slot"`
	Duration               flexInt `json:"duration"`
	Status                 string  `json:"status"`
	AssignedCA             flexID  `json:"assigned_ca"`
	AssignedProfessionalID flexID  `json:"assigned_professional_id"`
	CAID                   flexID  `json:"ca_id"`
	ProfessionalID         flexID  `json:"professional_id"`
}

type windowWire struct {
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Reason    string `json:"reason"`
}

type ledgerWire struct {
	Appointments []appointmentWire `json:"appointments"`
	Unavailable  []windowWire      `json:"ca_unavailable_slots"`
}

type professionalWire struct {
	ID               flexID       `json:"id"`
	MongoID          flexID       `json:"_id"`
	Name             string       `json:"name"`
	Specialization   string       `json:"specialization"`
	Experience       flexInt      `json:"experience"`
	ExperienceYears  flexInt      `json:"experience_years"`
	Status           string       `json:"status"`
	IsActive         *bool        `json:"is_active"`
	UnavailableSlots []windowWire `json:"unavailable_slots"`
}

// decodeList accepts a bare JSON array or an object wrapping it under key.
func decodeList[T any](raw json.RawMessage, key string) ([]T, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	if raw[0] == '[' {
		var out []T
		err := json.Unmarshal(raw, &out)
		return out, err
	}
	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, err
	}
	inner, ok := wrapped[key]
	if !ok {
		return nil, nil
	}
	var out []T
	err := json.Unmarshal(inner, &out)
	return out, err
}

// normalizeDate reduces a date or timestamp to a calendar date in loc. Instants
// are converted ("2026-02-01T18:30:00Z" is 2 Feb in Asia/Kolkata); an exact UTC
// midnight is a date-only value serialised as a timestamp and keeps its date.
// Timestamps without a zone are already local.
func normalizeDate(s string, loc *time.Location) string {
	s = strings.TrimSpace(s)
	if len(s) <= len(model.DateLayout) {
		return s
	}
	if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
		_, offset := ts.Zone()
		if offset == 0 && ts.Hour() == 0 && ts.Minute() == 0 && ts.Second() == 0 && ts.Nanosecond() == 0 {
			return ts.Format(model.DateLayout)
		}
		return ts.In(loc).Format(model.DateLayout)
	}
	if s[10] == 'T' || s[10] == ' ' {
		return s[:10]
	}
	return s
}
