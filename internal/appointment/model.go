package appointment

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	// StatusPending means the slot is reserved but payment has not been
	// confirmed yet. Pending appointments expire.
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

type Patient struct {
	ID        uuid.UUID
	Name      string
	Email     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Doctor struct {
	ID        uuid.UUID
	Name      string
	Specialty *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Appointment is one scheduled consultation. StartAt plus the fixed slot
// duration defines the window that must not overlap any other non-cancelled
// appointment for the same doctor.
type Appointment struct {
	ID           uuid.UUID
	DoctorID     uuid.UUID
	PatientID    uuid.UUID
	StartAt      time.Time
	Status       Status
	Notes        *string
	MeetingLink  *string
	RecordingURL *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	ExpiresAt    *time.Time
}

type EventLog struct {
	ID            int64
	EventType     string
	AppointmentID *uuid.UUID
	Payload       []byte
	CreatedAt     time.Time
}

type AppointmentDetail struct {
	Appointment
	Patient *Patient
	Doctor  *Doctor
}
