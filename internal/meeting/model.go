package meeting

import (
	"time"

	"github.com/google/uuid"
)

type SessionStatus string

const (
	StatusWaiting SessionStatus = "waiting"
	StatusActive  SessionStatus = "active"
	StatusEnded   SessionStatus = "ended"
)

type Role string

const (
	RoleDoctor  Role = "doctor"
	RolePatient Role = "patient"
)

// CaptureMode records which recording strategy the doctor's client ended up
// using. Composite captures the whole call; local-only is the fallback that
// captures just the doctor's camera and microphone, so the two produce
// materially different artifacts. The mode is persisted so the difference is
// visible after the fact.
type CaptureMode string

const (
	CaptureNone      CaptureMode = "none"
	CaptureComposite CaptureMode = "composite"
	CaptureLocalOnly CaptureMode = "local-only"
)

// Session is one online consultation run. A session is created when the
// meeting is started and moves waiting -> active -> ended; ended is terminal,
// a re-run needs a new session.
type Session struct {
	ID            uuid.UUID
	AppointmentID uuid.UUID
	Status        SessionStatus

	DoctorJoinedAt  *time.Time
	PatientJoinedAt *time.Time
	DoctorLeftAt    *time.Time
	PatientLeftAt   *time.Time

	StartedAt *time.Time
	EndedAt   *time.Time

	CaptureMode  CaptureMode
	RecordingURL *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

type EventType string

const (
	EventJoined          EventType = "joined"
	EventLeft            EventType = "left"
	EventClosed          EventType = "closed"
	EventRecordingStatus EventType = "recording_status"
)

// Event is one lifecycle callback from the embedded video widget. The widget
// owns the transport; this service only reacts to what it reports.
type Event struct {
	Type    EventType
	Role    Role
	Capture CaptureMode // set on recording_status events
}
