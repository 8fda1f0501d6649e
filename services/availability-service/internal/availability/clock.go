package availability

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrMalformedTime = errors.New("malformed time of day")
	ErrInvalidHours  = errors.New("opening time must be before closing time")
)

// ParseClock turns "HH:MM" (seconds tolerated) into minutes since midnight.
func ParseClock(s string) (int, error) {
	s = strings.TrimSpace(s)
	t, err := time.Parse("15:04", s)
	if err != nil {
		t, err = time.Parse("15:04:05", s)
	}
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrMalformedTime, s)
	}
	return t.Hour()*60 + t.Minute(), nil
}

func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// DisplayClock renders minutes since midnight as "9:30 AM".
func DisplayClock(minutes int) string {
	return time.Date(2000, 1, 1, 0, minutes, 0, 0, time.UTC).Format("3:04 PM")
}

// span is a half-open [start,end) range in minutes since midnight.
type span struct {
	start int
	end   int
}

func (s span) overlaps(o span) bool {
	return s.start < o.end && s.end > o.start
}

func overlapsAny(s span, others []span) bool {
	for _, o := range others {
		if s.overlaps(o) {
			return true
		}
	}
	return false
}
