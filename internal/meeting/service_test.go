package meeting

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/carelink/telehealth-scheduling/internal/appointment"
	"github.com/carelink/telehealth-scheduling/internal/schedule"
	"github.com/carelink/telehealth-scheduling/internal/storage"
)

type memSessionRepo struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*Session
}

func newMemSessionRepo() *memSessionRepo {
	return &memSessionRepo{sessions: make(map[uuid.UUID]*Session)}
}

func (m *memSessionRepo) CreateSession(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.sessions[s.ID] = &cp
	return nil
}

func (m *memSessionRepo) GetSession(_ context.Context, id uuid.UUID) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memSessionRepo) GetSessionByAppointment(_ context.Context, appointmentID uuid.UUID) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest *Session
	for _, s := range m.sessions {
		if s.AppointmentID != appointmentID {
			continue
		}
		if latest == nil || s.CreatedAt.After(latest.CreatedAt) {
			latest = s
		}
	}
	if latest == nil {
		return nil, ErrSessionNotFound
	}
	cp := *latest
	return &cp, nil
}

func (m *memSessionRepo) UpdateSession(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[s.ID]; !ok {
		return ErrSessionNotFound
	}
	cp := *s
	m.sessions[s.ID] = &cp
	return nil
}

// fakeAppointments gates meeting start on a switchable availability flag and
// records completion, link-attachment, and recording-attachment calls.
type fakeAppointments struct {
	mu           sync.Mutex
	canStart     bool
	minutesLeft  int
	completed    []uuid.UUID
	links        map[uuid.UUID]string
	recordings   map[uuid.UUID]string
	completeErr  error
	availability error
}

func newFakeAppointments() *fakeAppointments {
	return &fakeAppointments{
		canStart:   true,
		links:      make(map[uuid.UUID]string),
		recordings: make(map[uuid.UUID]string),
	}
}

func (f *fakeAppointments) MeetingWindow(_ context.Context, id uuid.UUID) (*appointment.MeetingWindow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.availability != nil {
		return nil, f.availability
	}
	return &appointment.MeetingWindow{
		Appointment: appointment.Appointment{ID: id, Status: appointment.StatusConfirmed},
		Availability: schedule.Availability{
			CanStartNow:       f.canStart,
			MinutesUntilStart: f.minutesLeft,
		},
	}, nil
}

func (f *fakeAppointments) Complete(_ context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.completeErr != nil {
		return nil, f.completeErr
	}
	f.completed = append(f.completed, id)
	return &appointment.Appointment{ID: id, Status: appointment.StatusCompleted}, nil
}

func (f *fakeAppointments) AttachMeetingLink(_ context.Context, id uuid.UUID, link string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.links[id] = link
	return nil
}

func (f *fakeAppointments) AttachRecording(_ context.Context, id uuid.UUID, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recordings[id] = url
	return nil
}

type staticStore struct {
	url string
	err error
}

func (s *staticStore) Save(_ context.Context, _ string, _ io.Reader, _ int64, _ storage.ProgressFunc) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.url, nil
}

func testMeetingService() (*Service, *memSessionRepo, *fakeAppointments) {
	repo := newMemSessionRepo()
	appts := newFakeAppointments()
	svc := NewService(repo, appts, nil)
	svc.now = func() time.Time {
		return time.Date(2026, time.March, 9, 14, 0, 0, 0, time.UTC)
	}
	return svc, repo, appts
}

func TestStartCreatesWaitingSession(t *testing.T) {
	svc, _, appts := testMeetingService()

	apptID := uuid.New()
	session, err := svc.Start(context.Background(), apptID)
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if session.Status != StatusWaiting {
		t.Errorf("status = %s, want waiting", session.Status)
	}
	if session.AppointmentID != apptID {
		t.Errorf("appointment id mismatch")
	}

	want := "/meetings/" + session.ID.String() + "/ws"
	if got := appts.links[apptID]; got != want {
		t.Errorf("meeting link = %q, want %q", got, want)
	}
}

func TestStartRefusedBeforeWindow(t *testing.T) {
	svc, _, appts := testMeetingService()
	appts.canStart = false
	appts.minutesLeft = 25

	_, err := svc.Start(context.Background(), uuid.New())
	if !errors.Is(err, ErrMeetingNotAvailable) {
		t.Fatalf("err = %v, want ErrMeetingNotAvailable", err)
	}
}

func TestStartReturnsLiveSession(t *testing.T) {
	svc, _, _ := testMeetingService()
	ctx := context.Background()
	apptID := uuid.New()

	first, err := svc.Start(ctx, apptID)
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	second, err := svc.Start(ctx, apptID)
	if err != nil {
		t.Fatalf("second start failed: %v", err)
	}
	if first.ID != second.ID {
		t.Error("second start should return the live session, not create a new one")
	}
}

func TestLifecycleJoinThenLeave(t *testing.T) {
	svc, _, appts := testMeetingService()
	ctx := context.Background()

	session, _ := svc.Start(ctx, uuid.New())

	s, err := svc.Handle(ctx, session.ID, Event{Type: EventJoined, Role: RolePatient})
	if err != nil {
		t.Fatalf("patient join failed: %v", err)
	}
	if s.Status != StatusActive {
		t.Errorf("status after first join = %s, want active", s.Status)
	}
	if s.StartedAt == nil || s.PatientJoinedAt == nil {
		t.Error("join should stamp started_at and patient_joined_at")
	}

	s, err = svc.Handle(ctx, session.ID, Event{Type: EventJoined, Role: RoleDoctor})
	if err != nil {
		t.Fatalf("doctor join failed: %v", err)
	}
	if s.DoctorJoinedAt == nil {
		t.Error("doctor join should stamp doctor_joined_at")
	}

	// Patient dropping does not end the call.
	s, err = svc.Handle(ctx, session.ID, Event{Type: EventLeft, Role: RolePatient})
	if err != nil {
		t.Fatalf("patient leave failed: %v", err)
	}
	if s.Status != StatusActive {
		t.Errorf("status after patient leave = %s, want active", s.Status)
	}

	// Doctor leaving ends it and completes the appointment.
	s, err = svc.Handle(ctx, session.ID, Event{Type: EventLeft, Role: RoleDoctor})
	if err != nil {
		t.Fatalf("doctor leave failed: %v", err)
	}
	if s.Status != StatusEnded {
		t.Errorf("status after doctor leave = %s, want ended", s.Status)
	}
	if s.EndedAt == nil {
		t.Error("ended session should have ended_at")
	}
	if len(appts.completed) != 1 {
		t.Errorf("completed appointments = %d, want 1", len(appts.completed))
	}
}

func TestEndedIsTerminal(t *testing.T) {
	svc, _, appts := testMeetingService()
	ctx := context.Background()

	session, _ := svc.Start(ctx, uuid.New())
	if _, err := svc.Handle(ctx, session.ID, Event{Type: EventClosed}); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	_, err := svc.Handle(ctx, session.ID, Event{Type: EventJoined, Role: RoleDoctor})
	if !errors.Is(err, ErrSessionEnded) {
		t.Errorf("join after end: err = %v, want ErrSessionEnded", err)
	}

	// A fresh start after the terminal state creates a new session.
	fresh, err := svc.Start(ctx, session.AppointmentID)
	if err != nil {
		t.Fatalf("restart failed: %v", err)
	}
	if fresh.ID == session.ID {
		t.Error("restart should mint a new session")
	}

	// The join link now points at the fresh session.
	want := "/meetings/" + fresh.ID.String() + "/ws"
	if got := appts.links[session.AppointmentID]; got != want {
		t.Errorf("meeting link = %q, want %q", got, want)
	}
}

func TestRecordingStatusFallback(t *testing.T) {
	svc, _, _ := testMeetingService()
	ctx := context.Background()

	session, _ := svc.Start(ctx, uuid.New())

	s, err := svc.Handle(ctx, session.ID, Event{Type: EventRecordingStatus, Capture: CaptureComposite})
	if err != nil {
		t.Fatalf("recording status failed: %v", err)
	}
	if s.CaptureMode != CaptureComposite {
		t.Errorf("capture mode = %s, want composite", s.CaptureMode)
	}

	// Fallback to local-only capture is recorded, never fatal.
	s, err = svc.Handle(ctx, session.ID, Event{Type: EventRecordingStatus, Capture: CaptureLocalOnly})
	if err != nil {
		t.Fatalf("fallback status failed: %v", err)
	}
	if s.CaptureMode != CaptureLocalOnly {
		t.Errorf("capture mode = %s, want local-only", s.CaptureMode)
	}
}

func TestCompleteFailureDoesNotUndoSessionEnd(t *testing.T) {
	svc, repo, appts := testMeetingService()
	appts.completeErr = appointment.ErrInvalidStatusTransition
	ctx := context.Background()

	session, _ := svc.Start(ctx, uuid.New())
	s, err := svc.Handle(ctx, session.ID, Event{Type: EventClosed})
	if err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if s.Status != StatusEnded {
		t.Errorf("status = %s, want ended despite completion failure", s.Status)
	}

	stored, _ := repo.GetSession(ctx, session.ID)
	if stored.Status != StatusEnded {
		t.Error("persisted session should be ended")
	}
}

func TestUploadRecordingDoctorOnly(t *testing.T) {
	svc, _, _ := testMeetingService()
	ctx := context.Background()

	session, _ := svc.Start(ctx, uuid.New())

	_, err := svc.UploadRecording(ctx, session.ID, RolePatient, strings.NewReader("blob"), 4)
	if !errors.Is(err, ErrRecordingNotAllowed) {
		t.Errorf("patient upload: err = %v, want ErrRecordingNotAllowed", err)
	}
}

func TestUploadRecordingAttachesURL(t *testing.T) {
	repo := newMemSessionRepo()
	appts := newFakeAppointments()
	store := &staticStore{url: "https://files.example.com/rec/1"}
	svc := NewService(repo, appts, store)
	ctx := context.Background()

	session, err := svc.Start(ctx, uuid.New())
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}

	url, err := svc.UploadRecording(ctx, session.ID, RoleDoctor, strings.NewReader("blob"), 4)
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}
	if url != store.url {
		t.Errorf("url = %q, want %q", url, store.url)
	}

	stored, _ := repo.GetSession(ctx, session.ID)
	if stored.RecordingURL == nil || *stored.RecordingURL != store.url {
		t.Error("session should carry the recording url")
	}
	if got := appts.recordings[session.AppointmentID]; got != store.url {
		t.Errorf("appointment recording url = %q, want %q", got, store.url)
	}
}

func TestUploadRecordingFailureLeavesSessionIntact(t *testing.T) {
	repo := newMemSessionRepo()
	appts := newFakeAppointments()
	store := &staticStore{err: storage.ErrUploadRejected}
	svc := NewService(repo, appts, store)
	ctx := context.Background()

	session, _ := svc.Start(ctx, uuid.New())

	_, err := svc.UploadRecording(ctx, session.ID, RoleDoctor, strings.NewReader("blob"), 4)
	if !errors.Is(err, storage.ErrUploadRejected) {
		t.Fatalf("err = %v, want ErrUploadRejected", err)
	}

	stored, _ := repo.GetSession(ctx, session.ID)
	if stored.RecordingURL != nil {
		t.Error("failed upload must not attach a recording url")
	}
	if stored.Status != StatusWaiting {
		t.Errorf("session status = %s, want unchanged waiting", stored.Status)
	}
}
