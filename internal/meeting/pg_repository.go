package meeting

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const sessionCols = `id, appointment_id, status, doctor_joined_at, patient_joined_at, doctor_left_at, patient_left_at, started_at, ended_at, capture_mode, recording_url, created_at, updated_at`

func scanSession(row pgx.Row) (*Session, error) {
	var s Session

	err := row.Scan(
		&s.ID,
		&s.AppointmentID,
		&s.Status,
		&s.DoctorJoinedAt,
		&s.PatientJoinedAt,
		&s.DoctorLeftAt,
		&s.PatientLeftAt,
		&s.StartedAt,
		&s.EndedAt,
		&s.CaptureMode,
		&s.RecordingURL,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	return &s, nil
}

func (r *PgRepository) CreateSession(ctx context.Context, s *Session) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO meeting_sessions (id, appointment_id, status, capture_mode, created_at, updated_at)
		VALUES ($1, $2, $3, $4, now(), now())
	`, s.ID, s.AppointmentID, s.Status, s.CaptureMode)
	if err != nil {
		return fmt.Errorf("insert meeting session: %w", err)
	}
	return nil
}

func (r *PgRepository) GetSession(ctx context.Context, id uuid.UUID) (*Session, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+sessionCols+`
		FROM meeting_sessions
		WHERE id = $1
	`, id)
	return scanSession(row)
}

func (r *PgRepository) GetSessionByAppointment(ctx context.Context, appointmentID uuid.UUID) (*Session, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+sessionCols+`
		FROM meeting_sessions
		WHERE appointment_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`, appointmentID)
	return scanSession(row)
}

func (r *PgRepository) UpdateSession(ctx context.Context, s *Session) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE meeting_sessions
		SET status = $2,
		    doctor_joined_at = $3,
		    patient_joined_at = $4,
		    doctor_left_at = $5,
		    patient_left_at = $6,
		    started_at = $7,
		    ended_at = $8,
		    capture_mode = $9,
		    recording_url = $10,
		    updated_at = now()
		WHERE id = $1
	`, s.ID, s.Status, s.DoctorJoinedAt, s.PatientJoinedAt, s.DoctorLeftAt, s.PatientLeftAt,
		s.StartedAt, s.EndedAt, s.CaptureMode, s.RecordingURL)
	if err != nil {
		return fmt.Errorf("update meeting session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSessionNotFound
	}
	return nil
}
