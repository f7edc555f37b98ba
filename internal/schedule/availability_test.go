package schedule

import (
	"testing"
	"time"
)

func TestAvailabilityBoundary(t *testing.T) {
	policy := DefaultMeetingPolicy()
	scheduled := at(14, 0)

	tests := []struct {
		name        string
		now         time.Time
		canStart    bool
		minutesLeft int
	}{
		{"an hour early", at(13, 0), false, 60},
		{"one minute early", at(13, 59), false, 1},
		{"thirty seconds early rounds up", scheduled.Add(-30 * time.Second), false, 1},
		{"exactly on time", scheduled, true, 0},
		{"one minute late", at(14, 1), true, 0},
		{"hours late with no cutoff", at(16, 30), true, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			a := policy.AvailabilityAt(scheduled, tc.now)
			if a.CanStartNow != tc.canStart {
				t.Errorf("CanStartNow = %v, want %v", a.CanStartNow, tc.canStart)
			}
			if a.MinutesUntilStart != tc.minutesLeft {
				t.Errorf("MinutesUntilStart = %d, want %d", a.MinutesUntilStart, tc.minutesLeft)
			}
		})
	}
}

func TestAvailabilityWindowBounds(t *testing.T) {
	policy := DefaultMeetingPolicy()
	scheduled := at(14, 0)

	a := policy.AvailabilityAt(scheduled, at(13, 0))

	if !a.AvailableFrom.Equal(scheduled) {
		t.Errorf("AvailableFrom = %v, want %v", a.AvailableFrom, scheduled)
	}
	if want := at(14, 15); !a.AvailableUntil.Equal(want) {
		t.Errorf("AvailableUntil = %v, want %v", a.AvailableUntil, want)
	}
	if want := at(14, 20); !a.NextFreeAt.Equal(want) {
		t.Errorf("NextFreeAt = %v, want %v", a.NextFreeAt, want)
	}
}

func TestAvailabilityStartCutoff(t *testing.T) {
	policy := MeetingPolicy{
		Duration:    15 * time.Minute,
		Gap:         5 * time.Minute,
		StartCutoff: 30 * time.Minute,
	}
	scheduled := at(14, 0)

	if a := policy.AvailabilityAt(scheduled, at(14, 29)); !a.CanStartNow {
		t.Error("start inside cutoff window should be permitted")
	}
	if a := policy.AvailabilityAt(scheduled, at(14, 30)); a.CanStartNow {
		t.Error("start at cutoff boundary should be refused")
	}
	if a := policy.AvailabilityAt(scheduled, at(16, 0)); a.CanStartNow {
		t.Error("start long after cutoff should be refused")
	}
}
