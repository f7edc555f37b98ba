package notify

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
)

type Kind string

const (
	KindBooked    Kind = "appointment_booked"
	KindConfirmed Kind = "appointment_confirmed"
	KindCancelled Kind = "appointment_cancelled"
)

// Message carries everything a delivery channel needs; the scheduling core
// fires these and never waits on delivery.
type Message struct {
	Kind          Kind
	AppointmentID uuid.UUID
	PatientName   string
	PatientEmail  string
	DoctorName    string
	StartAt       time.Time
}

type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// LogNotifier writes notifications to the process log. It stands in for the
// email/SMS gateway in dev and in tests.
type LogNotifier struct{}

func (LogNotifier) Send(_ context.Context, msg Message) error {
	log.Printf("notify kind=%s appointment=%s patient=%q doctor=%q start=%s",
		msg.Kind, msg.AppointmentID, msg.PatientName, msg.DoctorName, msg.StartAt.Format(time.RFC3339))
	return nil
}
