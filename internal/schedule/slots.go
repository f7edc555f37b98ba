package schedule

import (
	"fmt"
	"time"
)

// Working hours are fixed clinic-wide: consultations run on a 15 minute grid
// between 08:00 and 17:00 local time.
const (
	WorkDayStartHour = 8
	WorkDayEndHour   = 17
	SlotMinutes      = 15

	SlotDuration = SlotMinutes * time.Minute
)

// Slot is a candidate booking window within working hours. Slots are derived,
// never persisted; the grid is regenerated from the constants on each request.
type Slot struct {
	StartHour   int
	StartMinute int
	EndHour     int
	EndMinute   int
}

func (s Slot) Label() string {
	return fmt.Sprintf("%02d:%02d - %02d:%02d", s.StartHour, s.StartMinute, s.EndHour, s.EndMinute)
}

// StartOn anchors the slot's start time-of-day onto the given calendar day.
func (s Slot) StartOn(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), s.StartHour, s.StartMinute, 0, 0, day.Location())
}

// Slots returns the ordered sequence of bookable windows for one working day.
// A slot whose end would cross the end-of-day boundary is never emitted, so
// the final slot always ends exactly at the closing hour.
func Slots() []Slot {
	var out []Slot
	for h := WorkDayStartHour; h < WorkDayEndHour; h++ {
		for m := 0; m < 60; m += SlotMinutes {
			eh, em := h, m+SlotMinutes
			if em >= 60 {
				em -= 60
				eh++
			}
			if eh > WorkDayEndHour || (eh == WorkDayEndHour && em > 0) {
				continue
			}
			out = append(out, Slot{StartHour: h, StartMinute: m, EndHour: eh, EndMinute: em})
		}
	}
	return out
}
