package appointment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/carelink/telehealth-scheduling/internal/config"
	"github.com/carelink/telehealth-scheduling/internal/notify"
	redisclient "github.com/carelink/telehealth-scheduling/internal/redis"
	"github.com/carelink/telehealth-scheduling/internal/schedule"
)

const (
	EventAppointmentCreated   = "APPOINTMENT_CREATED"
	EventAppointmentConfirmed = "APPOINTMENT_CONFIRMED"
	EventAppointmentCancelled = "APPOINTMENT_CANCELLED"
	EventAppointmentCompleted = "APPOINTMENT_COMPLETED"
	EventAppointmentExpired   = "APPOINTMENT_EXPIRED"
	EventRecordingAttached    = "RECORDING_ATTACHED"
)

var (
	ErrSlotBeingBooked         = errors.New("slot is currently being booked, please retry")
	ErrBookingExpired          = errors.New("booking has expired")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
)

type Service struct {
	repo     Repository
	locker   redisclient.Locker
	notifier notify.Notifier
	cfg      config.Config
	policy   schedule.MeetingPolicy
	now      func() time.Time
}

func NewService(repo Repository, locker redisclient.Locker, notifier notify.Notifier, cfg config.Config) *Service {
	return &Service{
		repo:     repo,
		locker:   locker,
		notifier: notifier,
		cfg:      cfg,
		policy:   cfg.MeetingPolicy(),
		now:      time.Now,
	}
}

// Book reserves a slot for a patient with a doctor. Validation that needs no
// store access runs first; the conflict check and insert then run inside a
// per doctor+slot lock so concurrent requests for the same window cannot
// both create a booking.
func (s *Service) Book(ctx context.Context, doctorID, patientID uuid.UUID, startAt time.Time, notes *string) (*Appointment, error) {
	// Pure validation first, before any store access.
	if err := schedule.ValidateStart(startAt, s.now()); err != nil {
		return nil, err
	}

	patient, err := s.repo.GetPatientByID(ctx, patientID)
	if err != nil {
		if errors.Is(err, ErrPatientNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load patient: %w", err)
	}

	doctor, err := s.repo.GetDoctorByID(ctx, doctorID)
	if err != nil {
		if errors.Is(err, ErrDoctorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load doctor: %w", err)
	}

	var created *Appointment

	err = s.locker.WithBookingLock(ctx, doctorID, startAt, func(lockCtx context.Context) error {
		expiresAt := s.now().Add(s.cfg.PendingTTL)
		appt, err := s.repo.CreateIfSlotFree(lockCtx, doctorID, patientID, startAt, StatusPending, notes, &expiresAt)
		if err != nil {
			return err
		}

		created = appt

		payload := map[string]any{
			"doctor_id":  doctorID.String(),
			"patient_id": patientID.String(),
			"start_at":   startAt,
			"expires_at": expiresAt,
		}
		s.logEvent(lockCtx, appt.ID, EventAppointmentCreated, payload)

		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrSlotBeingBooked
		}
		return nil, err
	}

	s.dispatch(notify.Message{
		Kind:          notify.KindBooked,
		AppointmentID: created.ID,
		PatientName:   patient.Name,
		PatientEmail:  emailOf(patient),
		DoctorName:    doctor.Name,
		StartAt:       created.StartAt,
	})

	return created, nil
}

// Confirm moves a pending appointment to confirmed. This is the payment
// success hook: a booking that was never paid for stays pending until the
// expiry worker cancels it.
func (s *Service) Confirm(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load appointment: %w", err)
	}

	now := s.now()

	if appt.Status == StatusPending && appt.ExpiresAt != nil && appt.ExpiresAt.Before(now) {
		_, updErr := s.repo.UpdateAppointmentStatus(ctx, appt.ID, StatusPending, StatusCancelled)
		if updErr != nil && !errors.Is(updErr, ErrAppointmentNotFound) {
			log.Printf("failed to cancel appointment %s during confirm after expiry: %v", appt.ID, updErr)
		}
		s.logEvent(ctx, appt.ID, EventAppointmentExpired, map[string]any{
			"reason": "confirm_after_expiry",
		})
		return nil, ErrBookingExpired
	}

	if appt.Status != StatusPending {
		return nil, ErrInvalidStatusTransition
	}

	updated, err := s.repo.UpdateAppointmentStatus(ctx, appt.ID, StatusPending, StatusConfirmed)
	if err != nil {
		return nil, fmt.Errorf("confirm appointment: %w", err)
	}

	s.logEvent(ctx, updated.ID, EventAppointmentConfirmed, map[string]any{})
	s.notifyFor(ctx, updated, notify.KindConfirmed)

	return updated, nil
}

// Cancel releases a pending or confirmed booking; the freed window becomes
// bookable again immediately.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load appointment: %w", err)
	}

	if appt.Status != StatusPending && appt.Status != StatusConfirmed {
		return nil, ErrInvalidStatusTransition
	}

	updated, err := s.repo.UpdateAppointmentStatus(ctx, appt.ID, appt.Status, StatusCancelled)
	if err != nil {
		return nil, fmt.Errorf("cancel appointment: %w", err)
	}

	s.logEvent(ctx, updated.ID, EventAppointmentCancelled, map[string]any{
		"previous_status": string(appt.Status),
	})
	s.notifyFor(ctx, updated, notify.KindCancelled)

	return updated, nil
}

// Complete marks a confirmed appointment as completed. The meeting lifecycle
// calls this when the consultation ends.
func (s *Service) Complete(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	updated, err := s.repo.UpdateAppointmentStatus(ctx, id, StatusConfirmed, StatusCompleted)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, ErrInvalidStatusTransition
		}
		return nil, fmt.Errorf("complete appointment: %w", err)
	}

	s.logEvent(ctx, updated.ID, EventAppointmentCompleted, map[string]any{})

	return updated, nil
}

// DaySlot is one generated grid slot annotated with whether the doctor
// already has a non-cancelled booking in that window.
type DaySlot struct {
	Slot    schedule.Slot
	StartAt time.Time
	Booked  bool
}

// DaySchedule annotates the full slot grid for one doctor and calendar day.
// The grid itself is regenerated from constants; only the booked flags come
// from the store.
func (s *Service) DaySchedule(ctx context.Context, doctorID uuid.UUID, day time.Time) ([]DaySlot, error) {
	if _, err := s.repo.GetDoctorByID(ctx, doctorID); err != nil {
		return nil, err
	}

	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	existing, err := s.repo.ListByDoctorBetween(ctx, doctorID, dayStart, dayStart.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("list appointments for day: %w", err)
	}

	var taken []time.Time
	for _, a := range existing {
		if a.Status != StatusCancelled {
			taken = append(taken, a.StartAt)
		}
	}

	var out []DaySlot
	for _, slot := range schedule.Slots() {
		startAt := slot.StartOn(dayStart)
		out = append(out, DaySlot{
			Slot:    slot,
			StartAt: startAt,
			Booked:  schedule.ConflictsAny(startAt, taken),
		})
	}

	return out, nil
}

// MeetingWindow pairs an appointment with its computed start permission.
type MeetingWindow struct {
	Appointment  Appointment
	Availability schedule.Availability
}

// MeetingWindow computes the start-permission state for one appointment.
// Only confirmed appointments have a meeting to start.
func (s *Service) MeetingWindow(ctx context.Context, id uuid.UUID) (*MeetingWindow, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load appointment: %w", err)
	}

	if appt.Status != StatusConfirmed {
		return nil, ErrInvalidStatusTransition
	}

	return &MeetingWindow{
		Appointment:  *appt,
		Availability: s.policy.AvailabilityAt(appt.StartAt, s.now()),
	}, nil
}

// MeetingWindows computes start permissions for all of a doctor's confirmed
// appointments on one calendar day, for the doctor's dashboard.
func (s *Service) MeetingWindows(ctx context.Context, doctorID uuid.UUID, day time.Time) ([]MeetingWindow, error) {
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	appts, err := s.repo.ListByDoctorBetween(ctx, doctorID, dayStart, dayStart.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("list appointments for day: %w", err)
	}

	now := s.now()
	var out []MeetingWindow
	for _, a := range appts {
		if a.Status != StatusConfirmed {
			continue
		}
		out = append(out, MeetingWindow{
			Appointment:  a,
			Availability: s.policy.AvailabilityAt(a.StartAt, now),
		})
	}

	return out, nil
}

// AttachMeetingLink stores the join link minted when a meeting session is
// created, so clients listing the appointment can reach the call.
func (s *Service) AttachMeetingLink(ctx context.Context, id uuid.UUID, link string) error {
	if err := s.repo.SetMeetingLink(ctx, id, link); err != nil {
		return fmt.Errorf("attach meeting link: %w", err)
	}
	return nil
}

// AttachRecording stores the uploaded recording artifact's URL against the
// appointment. Recording loss never blocks the encounter, so callers treat a
// failure here as a warning.
func (s *Service) AttachRecording(ctx context.Context, id uuid.UUID, url string) error {
	if err := s.repo.SetRecordingURL(ctx, id, url); err != nil {
		return fmt.Errorf("attach recording: %w", err)
	}
	s.logEvent(ctx, id, EventRecordingAttached, map[string]any{
		"recording_url": url,
	})
	return nil
}

// ExpirePendingAppointments is intended to be called by the worker
// periodically. Pending bookings whose payment window lapsed are cancelled so
// their slots free up.
func (s *Service) ExpirePendingAppointments(ctx context.Context) error {
	now := s.now()
	expiredCandidates, err := s.repo.FindExpiredPending(ctx, now)
	if err != nil {
		return fmt.Errorf("find expired pending appointments: %w", err)
	}

	for _, appt := range expiredCandidates {
		_, err := s.repo.UpdateAppointmentStatus(ctx, appt.ID, StatusPending, StatusCancelled)
		if err != nil && !errors.Is(err, ErrAppointmentNotFound) {
			log.Printf("failed to expire appointment %s: %v", appt.ID, err)
			continue
		}
		s.logEvent(ctx, appt.ID, EventAppointmentExpired, map[string]any{
			"reason": "worker",
		})
	}

	return nil
}

// Get retrieves a fully hydrated appointment by ID.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*AppointmentDetail, error) {
	detail, err := s.repo.GetAppointmentDetail(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get appointment: %w", err)
	}
	return detail, nil
}

// ListByPatient retrieves appointments for a specific patient.
func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]AppointmentDetail, error) {
	limit, offset = clampPage(limit, offset)
	appointments, err := s.repo.ListDetailsByPatient(ctx, patientID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list appointments by patient: %w", err)
	}
	return appointments, nil
}

// ListByDoctor retrieves appointments for a specific doctor.
func (s *Service) ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]AppointmentDetail, error) {
	limit, offset = clampPage(limit, offset)
	appointments, err := s.repo.ListDetailsByDoctor(ctx, doctorID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list appointments by doctor: %w", err)
	}
	return appointments, nil
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 20 // default
	}
	if limit > 100 {
		limit = 100 // max
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func (s *Service) logEvent(ctx context.Context, appointmentID uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("failed to marshal event payload for %s: %v", eventType, err)
		data = nil
	}

	apptID := appointmentID

	ev := EventLog{
		EventType:     eventType,
		AppointmentID: &apptID,
		Payload:       data,
		CreatedAt:     s.now(),
	}

	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		log.Printf("failed to insert event log %s for appointment %s: %v", eventType, appointmentID, err)
	}
}

// notifyFor hydrates names for an appointment and dispatches a notification.
func (s *Service) notifyFor(ctx context.Context, appt *Appointment, kind notify.Kind) {
	patient, err := s.repo.GetPatientByID(ctx, appt.PatientID)
	if err != nil {
		log.Printf("skipping %s notification for %s: %v", kind, appt.ID, err)
		return
	}
	doctor, err := s.repo.GetDoctorByID(ctx, appt.DoctorID)
	if err != nil {
		log.Printf("skipping %s notification for %s: %v", kind, appt.ID, err)
		return
	}

	s.dispatch(notify.Message{
		Kind:          kind,
		AppointmentID: appt.ID,
		PatientName:   patient.Name,
		PatientEmail:  emailOf(patient),
		DoctorName:    doctor.Name,
		StartAt:       appt.StartAt,
	})
}

// dispatch is fire and forget: delivery failures never fail the booking.
func (s *Service) dispatch(msg notify.Message) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := s.notifier.Send(ctx, msg); err != nil {
			log.Printf("notification %s for appointment %s failed: %v", msg.Kind, msg.AppointmentID, err)
		}
	}()
}

func emailOf(p *Patient) string {
	if p.Email == nil {
		return ""
	}
	return *p.Email
}
