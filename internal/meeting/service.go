package meeting

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/carelink/telehealth-scheduling/internal/appointment"
	"github.com/carelink/telehealth-scheduling/internal/storage"
)

var (
	ErrMeetingNotAvailable = errors.New("meeting cannot be started yet")
	ErrSessionEnded        = errors.New("meeting session has ended")
	ErrRecordingNotAllowed = errors.New("recording is restricted to the doctor role")
	ErrUnknownEvent        = errors.New("unknown meeting event")
)

// Appointments is the slice of the appointment service the meeting lifecycle
// needs: the start-permission gate, the completion transition, and recording
// attachment.
type Appointments interface {
	MeetingWindow(ctx context.Context, id uuid.UUID) (*appointment.MeetingWindow, error)
	Complete(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error)
	AttachMeetingLink(ctx context.Context, id uuid.UUID, link string) error
	AttachRecording(ctx context.Context, id uuid.UUID, url string) error
}

type Service struct {
	repo  Repository
	appts Appointments
	store storage.RecordingStore
	now   func() time.Time
}

func NewService(repo Repository, appts Appointments, store storage.RecordingStore) *Service {
	return &Service{
		repo:  repo,
		appts: appts,
		store: store,
		now:   time.Now,
	}
}

// Start opens a meeting session for a confirmed appointment, provided the
// availability policy permits starting now. A previous ended session does not
// block starting a fresh one.
func (s *Service) Start(ctx context.Context, appointmentID uuid.UUID) (*Session, error) {
	window, err := s.appts.MeetingWindow(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if !window.Availability.CanStartNow {
		return nil, fmt.Errorf("%w: %d minutes until start", ErrMeetingNotAvailable, window.Availability.MinutesUntilStart)
	}

	existing, err := s.repo.GetSessionByAppointment(ctx, appointmentID)
	if err != nil && !errors.Is(err, ErrSessionNotFound) {
		return nil, fmt.Errorf("load existing session: %w", err)
	}
	if existing != nil && existing.Status != StatusEnded {
		return existing, nil
	}

	session := &Session{
		ID:            uuid.New(),
		AppointmentID: appointmentID,
		Status:        StatusWaiting,
		CaptureMode:   CaptureNone,
	}
	if err := s.repo.CreateSession(ctx, session); err != nil {
		return nil, err
	}

	// The widget connects here; a stale link from a previous session would
	// point at an ended room, so each new session rewrites it.
	link := fmt.Sprintf("/meetings/%s/ws", session.ID)
	if err := s.appts.AttachMeetingLink(ctx, appointmentID, link); err != nil {
		log.Printf("session %s created but meeting link not attached: %v", session.ID, err)
	}

	return session, nil
}

// Handle applies one widget callback to a session. Join events move the
// session to active; the session ends when the doctor leaves, when both
// parties have left, or on an explicit close. Events against an ended
// session are rejected; recording loss is logged, never fatal.
func (s *Service) Handle(ctx context.Context, sessionID uuid.UUID, ev Event) (*Session, error) {
	session, err := s.repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status == StatusEnded {
		return nil, ErrSessionEnded
	}

	now := s.now()

	switch ev.Type {
	case EventJoined:
		switch ev.Role {
		case RoleDoctor:
			session.DoctorJoinedAt = &now
		case RolePatient:
			session.PatientJoinedAt = &now
		default:
			return nil, fmt.Errorf("%w: role %q", ErrUnknownEvent, ev.Role)
		}
		if session.StartedAt == nil {
			session.StartedAt = &now
		}
		session.Status = StatusActive

	case EventLeft:
		switch ev.Role {
		case RoleDoctor:
			session.DoctorLeftAt = &now
		case RolePatient:
			session.PatientLeftAt = &now
		default:
			return nil, fmt.Errorf("%w: role %q", ErrUnknownEvent, ev.Role)
		}
		if ev.Role == RoleDoctor || (session.DoctorLeftAt != nil && session.PatientLeftAt != nil) {
			s.end(ctx, session, now)
		}

	case EventClosed:
		s.end(ctx, session, now)

	case EventRecordingStatus:
		if ev.Capture == CaptureLocalOnly && session.CaptureMode == CaptureComposite {
			log.Printf("session %s fell back to local-only capture", session.ID)
		}
		session.CaptureMode = ev.Capture

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, ev.Type)
	}

	if err := s.repo.UpdateSession(ctx, session); err != nil {
		return nil, err
	}

	return session, nil
}

// end marks the session terminal and completes the appointment. Completion
// failures (for example the appointment was cancelled mid-call) are logged
// and do not undo the session state.
func (s *Service) end(ctx context.Context, session *Session, now time.Time) {
	session.Status = StatusEnded
	session.EndedAt = &now

	if _, err := s.appts.Complete(ctx, session.AppointmentID); err != nil {
		log.Printf("could not complete appointment %s after meeting end: %v", session.AppointmentID, err)
	}
}

// Get returns a session by ID.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Session, error) {
	return s.repo.GetSession(ctx, id)
}

// UploadRecording streams the captured artifact to the recording store and
// attaches the resulting URL to both the session and its appointment. Only
// the doctor's client records. An upload failure is returned to the caller
// but changes nothing about the session: the encounter stands with or
// without its recording.
func (s *Service) UploadRecording(ctx context.Context, sessionID uuid.UUID, role Role, r io.Reader, size int64) (string, error) {
	if role != RoleDoctor {
		return "", ErrRecordingNotAllowed
	}
	if s.store == nil {
		return "", errors.New("no recording store configured")
	}

	session, err := s.repo.GetSession(ctx, sessionID)
	if err != nil {
		return "", err
	}

	name := fmt.Sprintf("%s-%s", session.AppointmentID, session.ID)
	var lastLogged int64
	url, err := s.store.Save(ctx, name, r, size, func(uploaded, total int64) {
		// Progress is chatty; log roughly every megabyte.
		if uploaded-lastLogged >= 1<<20 || uploaded == total {
			log.Printf("recording upload %s: %d/%d bytes", name, uploaded, total)
			lastLogged = uploaded
		}
	})
	if err != nil {
		return "", fmt.Errorf("save recording: %w", err)
	}

	session.RecordingURL = &url
	if err := s.repo.UpdateSession(ctx, session); err != nil {
		log.Printf("recording uploaded but session %s not updated: %v", session.ID, err)
	}
	if err := s.appts.AttachRecording(ctx, session.AppointmentID, url); err != nil {
		log.Printf("recording uploaded but appointment %s not updated: %v", session.AppointmentID, err)
	}

	return url, nil
}
