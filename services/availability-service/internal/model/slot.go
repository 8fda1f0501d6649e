package model

type Slot struct {
	Time                      string `json:"time"`
	Display                   string `json:"display"`
	IsPast                    bool   `json:"is_past"`
	IsBooked                  bool   `json:"is_booked"`
	IsProfessionalUnavailable bool   `json:"is_professional_unavailable"`
	IsDisabled                bool   `json:"is_disabled"`
}

type CalendarDay struct {
	Date       string `json:"date"`
	Weekday    string `json:"weekday"`
	InRange    bool   `json:"in_range"`
	IsOff      bool   `json:"is_off"`
	IsPast     bool   `json:"is_past"`
	Selectable bool   `json:"selectable"`
}
