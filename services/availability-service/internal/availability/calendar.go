package availability

import (
	"time"

	"github.com/md-rashed-zaman/cabook/services/availability-service/internal/model"
)

// BuildCalendar covers the booking horizon [today, today+N-1] padded out to whole
// Sunday..Saturday weeks.
func BuildCalendar(cfg model.ScheduleConfig, today time.Time) []model.CalendarDay {
	first := midnight(today)
	last := first.AddDate(0, 0, cfg.Horizon()-1)
	gridStart := first.AddDate(0, 0, -int(first.Weekday()))
	gridEnd := last.AddDate(0, 0, int(time.Saturday-last.Weekday()))

	var days []model.CalendarDay
	for d := gridStart; !d.After(gridEnd); d = d.AddDate(0, 0, 1) {
		day := model.CalendarDay{
			Date:    d.Format(model.DateLayout),
			Weekday: model.WeekdayName(d.Weekday()),
			InRange: !d.Before(first) && !d.After(last),
			IsOff:   IsDayOff(d, cfg),
			IsPast:  d.Before(first),
		}
		day.Selectable = day.InRange && !day.IsOff && !day.IsPast
		days = append(days, day)
	}
	return days
}

// IsSelectable applies the calendar rules to a single day.
func IsSelectable(cfg model.ScheduleConfig, day, today time.Time) bool {
	first := midnight(today)
	d := midnight(day.In(first.Location()))
	last := first.AddDate(0, 0, cfg.Horizon()-1)
	if d.Before(first) || d.After(last) {
		return false
	}
	return !IsDayOff(d, cfg)
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
