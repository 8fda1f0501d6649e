package model

import (
	"strings"
	"time"
)

// DefaultAdvanceBookingDays applies when settings carry no positive horizon.
const DefaultAdvanceBookingDays = 15

// DateLayout is the ISO calendar date used on the wire and as map keys.
const DateLayout = "2006-01-02"

type DayHours struct {
	Enabled bool
	Start   string // "HH:MM"
	End     string // "HH:MM"
}

// WeeklySchedule is indexed by time.Weekday. A weekday nobody configured is the
// zero DayHours, which is closed.
type WeeklySchedule [7]DayHours

func (w WeeklySchedule) For(day time.Weekday) DayHours {
	if day < time.Sunday || day > time.Saturday {
		return DayHours{}
	}
	return w[day]
}

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

func WeekdayFromName(name string) (time.Weekday, bool) {
	d, ok := weekdayNames[strings.ToLower(strings.TrimSpace(name))]
	return d, ok
}

func WeekdayName(day time.Weekday) string {
	return strings.ToLower(day.String())
}

type ScheduleConfig struct {
	Weekly             WeeklySchedule
	OffDays            map[string]struct{}
	AdvanceBookingDays int
}

func (c ScheduleConfig) IsOffDate(date string) bool {
	_, ok := c.OffDays[date]
	return ok
}

func (c ScheduleConfig) Horizon() int {
	if c.AdvanceBookingDays <= 0 {
		return DefaultAdvanceBookingDays
	}
	return c.AdvanceBookingDays
}

// NewOffDays builds the off-day set, ignoring blanks.
func NewOffDays(dates ...string) map[string]struct{} {
	out := make(map[string]struct{}, len(dates))
	for _, d := range dates {
		if d = strings.TrimSpace(d); d != "" {
			out[d] = struct{}{}
		}
	}
	return out
}
