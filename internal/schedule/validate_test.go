package schedule

import (
	"errors"
	"testing"
	"time"
)

var day = time.Date(2026, time.March, 9, 0, 0, 0, 0, time.UTC)

func at(h, m int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), h, m, 0, 0, time.UTC)
}

func TestValidateStart(t *testing.T) {
	now := at(9, 0)

	tests := []struct {
		name     string
		proposed time.Time
		wantErr  error
	}{
		{"first slot of the day", at(10, 0), nil},
		{"last slot of the day", at(16, 45), nil},
		{"in the past", at(8, 30), ErrStartInPast},
		{"before opening", at(7, 45).AddDate(0, 0, 1), ErrOutsideWorkingHours},
		{"at closing", at(17, 0), ErrOutsideWorkingHours},
		{"slot would cross closing", at(16, 50), ErrOutsideWorkingHours},
		{"off the grid", at(10, 7), ErrOffSlotGrid},
		{"exactly now", now, nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateStart(tc.proposed, now)
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("ValidateStart(%v) = %v, want %v", tc.proposed, err, tc.wantErr)
			}
		})
	}
}

func TestOverlaps(t *testing.T) {
	existing := at(10, 0) // occupies 10:00 - 10:15

	tests := []struct {
		name     string
		proposed time.Time
		want     bool
	}{
		{"same start", at(10, 0), true},
		{"one minute in", at(10, 1), true},
		{"last covered minute", at(10, 14), true},
		{"adjacent after", at(10, 15), false},
		{"adjacent before", at(9, 45), false},
		{"proposed window spills into existing", at(9, 50), true},
		{"far away", at(14, 0), false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Overlaps(tc.proposed, existing); got != tc.want {
				t.Errorf("Overlaps(%v, %v) = %v, want %v", tc.proposed, existing, got, tc.want)
			}
			// The overlap relation is symmetric.
			if got := Overlaps(existing, tc.proposed); got != tc.want {
				t.Errorf("Overlaps(%v, %v) = %v, want %v", existing, tc.proposed, got, tc.want)
			}
		})
	}
}

func TestConflictsAny(t *testing.T) {
	existing := []time.Time{at(10, 0), at(11, 30)}

	if !ConflictsAny(at(10, 5), existing) {
		t.Error("expected conflict inside 10:00 window")
	}
	if !ConflictsAny(at(11, 30), existing) {
		t.Error("expected conflict at exact 11:30 start")
	}
	if ConflictsAny(at(10, 15), existing) {
		t.Error("adjacent 10:15 start should not conflict")
	}
	if ConflictsAny(at(10, 5), nil) {
		t.Error("no existing appointments should never conflict")
	}
}
