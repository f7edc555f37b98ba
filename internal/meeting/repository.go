package meeting

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrSessionNotFound = errors.New("meeting session not found")

// Repository persists meeting sessions.
type Repository interface {
	CreateSession(ctx context.Context, s *Session) error
	GetSession(ctx context.Context, id uuid.UUID) (*Session, error)
	GetSessionByAppointment(ctx context.Context, appointmentID uuid.UUID) (*Session, error)

	// UpdateSession writes back all mutable fields of an existing session.
	UpdateSession(ctx context.Context, s *Session) error
}
