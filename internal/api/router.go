package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/carelink/telehealth-scheduling/internal/appointment"
	"github.com/carelink/telehealth-scheduling/internal/meeting"
)

type RouterConfig struct {
	Appointments *appointment.Service
	Meetings     *meeting.Service
	PgPool       *pgxpool.Pool
	Redis        *redis.Client
	Env          string
	Version      string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Apply middleware
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware)

	// Health endpoints
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	// Day schedule
	r.Get("/slots", daySlotsHandler(cfg.Appointments))

	// Appointment endpoints
	r.Post("/appointments", bookAppointmentHandler(cfg.Appointments))
	r.Get("/appointments", listAppointmentsHandler(cfg.Appointments))
	r.Get("/appointments/{id}", getAppointmentHandler(cfg.Appointments))
	r.Post("/appointments/{id}/confirm", confirmAppointmentHandler(cfg.Appointments))
	r.Post("/appointments/{id}/cancel", cancelAppointmentHandler(cfg.Appointments))

	// Meeting lifecycle
	r.Get("/appointments/{id}/meeting", meetingWindowHandler(cfg.Appointments))
	r.Post("/appointments/{id}/meeting/start", startMeetingHandler(cfg.Meetings))
	r.Get("/meetings", meetingWindowsHandler(cfg.Appointments))
	r.Get("/meetings/{id}", getMeetingHandler(cfg.Meetings))
	r.Post("/meetings/{id}/events", meetingEventHandler(cfg.Meetings))
	r.Get("/meetings/{id}/ws", meetingSocketHandler(cfg.Meetings))
	r.Post("/meetings/{id}/recording", uploadRecordingHandler(cfg.Meetings))

	return r
}
