package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/carelink/telehealth-scheduling/internal/appointment"
	"github.com/carelink/telehealth-scheduling/internal/meeting"
)

type BookAppointmentRequest struct {
	DoctorID  string  `json:"doctor_id"`
	PatientID string  `json:"patient_id"`
	StartAt   string  `json:"start_at"` // RFC 3339
	Notes     *string `json:"notes,omitempty"`
}

type AppointmentResponse struct {
	ID           uuid.UUID  `json:"id"`
	DoctorID     uuid.UUID  `json:"doctor_id"`
	PatientID    uuid.UUID  `json:"patient_id"`
	StartAt      time.Time  `json:"start_at"`
	Status       string     `json:"status"`
	Notes        *string    `json:"notes,omitempty"`
	MeetingLink  *string    `json:"meeting_link,omitempty"`
	RecordingURL *string    `json:"recording_url,omitempty"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
}

type AppointmentDetailResponse struct {
	AppointmentResponse
	PatientName string  `json:"patient_name"`
	DoctorName  string  `json:"doctor_name"`
	Specialty   *string `json:"doctor_specialty,omitempty"`
}

type DaySlotResponse struct {
	Label     string    `json:"label"`
	StartAt   time.Time `json:"start_at"`
	Available bool      `json:"available"`
}

type MeetingWindowResponse struct {
	AppointmentID     uuid.UUID `json:"appointment_id"`
	CanStartNow       bool      `json:"can_start_now"`
	AvailableFrom     time.Time `json:"available_from"`
	AvailableUntil    time.Time `json:"available_until"`
	MinutesUntilStart int       `json:"minutes_until_start"`
}

type SessionResponse struct {
	ID            uuid.UUID  `json:"id"`
	AppointmentID uuid.UUID  `json:"appointment_id"`
	Status        string     `json:"status"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
	EndedAt       *time.Time `json:"ended_at,omitempty"`
	CaptureMode   string     `json:"capture_mode"`
	RecordingURL  *string    `json:"recording_url,omitempty"`
}

type MeetingEventRequest struct {
	Type    string `json:"type"`    // joined, left, closed, recording_status
	Role    string `json:"role"`    // doctor, patient
	Capture string `json:"capture"` // composite, local-only (recording_status only)
}

type RecordingUploadResponse struct {
	URL string `json:"url"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func toAppointmentResponse(a *appointment.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:           a.ID,
		DoctorID:     a.DoctorID,
		PatientID:    a.PatientID,
		StartAt:      a.StartAt,
		Status:       string(a.Status),
		Notes:        a.Notes,
		MeetingLink:  a.MeetingLink,
		RecordingURL: a.RecordingURL,
		ExpiresAt:    a.ExpiresAt,
	}
}

func toDetailResponse(d *appointment.AppointmentDetail) AppointmentDetailResponse {
	return AppointmentDetailResponse{
		AppointmentResponse: toAppointmentResponse(&d.Appointment),
		PatientName:         d.Patient.Name,
		DoctorName:          d.Doctor.Name,
		Specialty:           d.Doctor.Specialty,
	}
}

func toWindowResponse(w *appointment.MeetingWindow) MeetingWindowResponse {
	return MeetingWindowResponse{
		AppointmentID:     w.Appointment.ID,
		CanStartNow:       w.Availability.CanStartNow,
		AvailableFrom:     w.Availability.AvailableFrom,
		AvailableUntil:    w.Availability.AvailableUntil,
		MinutesUntilStart: w.Availability.MinutesUntilStart,
	}
}

func toSessionResponse(s *meeting.Session) SessionResponse {
	return SessionResponse{
		ID:            s.ID,
		AppointmentID: s.AppointmentID,
		Status:        string(s.Status),
		StartedAt:     s.StartedAt,
		EndedAt:       s.EndedAt,
		CaptureMode:   string(s.CaptureMode),
		RecordingURL:  s.RecordingURL,
	}
}

func toDaySlotResponse(d appointment.DaySlot) DaySlotResponse {
	return DaySlotResponse{
		Label:     d.Slot.Label(),
		StartAt:   d.StartAt,
		Available: !d.Booked,
	}
}
