package schedule

import (
	"errors"
	"time"
)

var (
	ErrStartInPast         = errors.New("appointment start is in the past")
	ErrOutsideWorkingHours = errors.New("appointment start is outside working hours")
	ErrOffSlotGrid         = errors.New("appointment start is not aligned to the slot grid")
)

// ValidateStart checks a proposed appointment start against the clock and the
// working-hours grid. It runs before any store access; conflict checking
// against existing bookings is a separate, transactional step.
func ValidateStart(proposed, now time.Time) error {
	if proposed.Before(now) {
		return ErrStartInPast
	}
	if !withinWorkingHours(proposed) {
		return ErrOutsideWorkingHours
	}
	if proposed.Minute()%SlotMinutes != 0 || proposed.Second() != 0 || proposed.Nanosecond() != 0 {
		return ErrOffSlotGrid
	}
	return nil
}

// withinWorkingHours reports whether a full slot starting at t fits inside
// the working day. The last admissible start is SlotMinutes before closing.
func withinWorkingHours(t time.Time) bool {
	h, m := t.Hour(), t.Minute()
	if h < WorkDayStartHour {
		return false
	}
	end := h*60 + m + SlotMinutes
	return end <= WorkDayEndHour*60
}

// Overlaps reports whether two slot-length windows starting at a and b
// intersect. Adjacent windows (b starting exactly where a ends) do not
// overlap.
func Overlaps(a, b time.Time) bool {
	return a.Before(b.Add(SlotDuration)) && b.Before(a.Add(SlotDuration))
}

// ConflictsAny reports whether the proposed start overlaps any of the
// existing appointment starts.
func ConflictsAny(proposed time.Time, existing []time.Time) bool {
	for _, e := range existing {
		if Overlaps(proposed, e) {
			return true
		}
	}
	return false
}
