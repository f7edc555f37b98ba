package schedule

import "time"

// MeetingPolicy fixes how long an online consultation runs and when it may be
// started relative to its scheduled time.
type MeetingPolicy struct {
	// Duration of the consultation itself.
	Duration time.Duration
	// Gap kept free between consecutive consultations for the same doctor.
	Gap time.Duration
	// StartCutoff bounds how late after the scheduled time a meeting may
	// still be started. Zero means no cutoff: a meeting can be started
	// arbitrarily late. This is a deliberate policy knob, not an enforced
	// clinical rule.
	StartCutoff time.Duration
}

func DefaultMeetingPolicy() MeetingPolicy {
	return MeetingPolicy{
		Duration:    15 * time.Minute,
		Gap:         5 * time.Minute,
		StartCutoff: 0,
	}
}

// Availability is the computed permission state for starting a meeting. It is
// advisory display logic; nothing here terminates an in-progress meeting.
type Availability struct {
	CanStartNow       bool
	AvailableFrom     time.Time
	AvailableUntil    time.Time
	NextFreeAt        time.Time
	MinutesUntilStart int
}

// AvailabilityAt computes the start-permission state for an appointment
// scheduled at the given instant, evaluated at now. CanStartNow flips to true
// at exactly the scheduled instant.
func (p MeetingPolicy) AvailabilityAt(scheduled, now time.Time) Availability {
	a := Availability{
		AvailableFrom:  scheduled,
		AvailableUntil: scheduled.Add(p.Duration),
		NextFreeAt:     scheduled.Add(p.Duration + p.Gap),
	}

	if now.Before(scheduled) {
		remaining := scheduled.Sub(now)
		a.MinutesUntilStart = int((remaining + time.Minute - 1) / time.Minute)
		return a
	}

	a.CanStartNow = true
	if p.StartCutoff > 0 && !now.Before(scheduled.Add(p.StartCutoff)) {
		a.CanStartNow = false
	}
	return a
}
