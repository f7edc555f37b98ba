package appointment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrPatientNotFound     = errors.New("patient not found")
	ErrDoctorNotFound      = errors.New("doctor not found")
	ErrAppointmentNotFound = errors.New("appointment not found")

	// ErrSlotTaken is returned by CreateIfSlotFree when the proposed start
	// overlaps an existing non-cancelled appointment for the doctor.
	ErrSlotTaken = errors.New("slot unavailable")
)

// Repository contains all DB interactions needed by the service.
type Repository interface {
	GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error)

	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	GetAppointmentDetail(ctx context.Context, id uuid.UUID) (*AppointmentDetail, error)

	// CreateIfSlotFree atomically checks for an overlapping non-cancelled
	// appointment and inserts the new record in the same transaction. It
	// returns ErrSlotTaken if the window is occupied. Callers must not
	// perform a separate read-then-write; this is the only safe insert path.
	CreateIfSlotFree(ctx context.Context, doctorID, patientID uuid.UUID, startAt time.Time, status Status, notes *string, expiresAt *time.Time) (*Appointment, error)

	UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Appointment, error)
	SetMeetingLink(ctx context.Context, id uuid.UUID, url string) error
	SetRecordingURL(ctx context.Context, id uuid.UUID, url string) error

	// For day schedules and availability windows.
	ListByDoctorBetween(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]Appointment, error)

	ListDetailsByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]AppointmentDetail, error)
	ListDetailsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]AppointmentDetail, error)

	// Expiry worker
	FindExpiredPending(ctx context.Context, now time.Time) ([]Appointment, error)

	// Event logging
	InsertEvent(ctx context.Context, ev EventLog) error
}
