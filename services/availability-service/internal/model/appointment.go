package model

// SlotMinutes is the width of one bookable slot.
const SlotMinutes = 30

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Occupies reports whether an appointment in this status holds its slot.
// An absent status counts as occupying; completed and cancelled do not.
func (s Status) Occupies() bool {
	switch s {
	case "", StatusPending, StatusConfirmed:
		return true
	default:
		return false
	}
}

type Appointment struct {
	ID              string
	Date            string
	TimeSlot        string
	DurationMinutes int
	Status          Status
	// ProfessionalID is empty when nobody is assigned yet.
	ProfessionalID string
}

func (a Appointment) Duration() int {
	if a.DurationMinutes <= 0 {
		return SlotMinutes
	}
	return a.DurationMinutes
}

type UnavailabilityWindow struct {
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Reason    string `json:"reason,omitempty"`
}

type Professional struct {
	ID              string                 `json:"id"`
	Name            string                 `json:"name"`
	Specialization  string                 `json:"specialization,omitempty"`
	ExperienceYears int                    `json:"experience_years,omitempty"`
	Active          bool                   `json:"active"`
	Unavailable     []UnavailabilityWindow `json:"-"`
}

func (p Professional) WindowsOn(date string) []UnavailabilityWindow {
	var out []UnavailabilityWindow
	for _, w := range p.Unavailable {
		if w.Date == date {
			out = append(out, w)
		}
	}
	return out
}

// Ledger is one date's booking snapshot as the booking service reports it.
type Ledger struct {
	Appointments []Appointment
	Unavailable  []UnavailabilityWindow
}
