package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/carelink/telehealth-scheduling/internal/appointment"
	"github.com/carelink/telehealth-scheduling/internal/meeting"
	"github.com/carelink/telehealth-scheduling/internal/storage"
)

func meetingWindowHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(w, r, "id")
		if !ok {
			return
		}

		window, err := svc.MeetingWindow(r.Context(), id)
		if err != nil {
			handleTransitionError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toWindowResponse(window))
	}
}

// meetingWindowsHandler lists start permissions for all of a doctor's
// confirmed appointments on one day, for the doctor's dashboard.
func meetingWindowsHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		doctorID, err := uuid.Parse(q.Get("doctor_id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
			return
		}

		day, err := time.ParseInLocation("2006-01-02", q.Get("date"), time.Local)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
			return
		}

		windows, err := svc.MeetingWindows(r.Context(), doctorID, day)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		out := make([]MeetingWindowResponse, 0, len(windows))
		for i := range windows {
			out = append(out, toWindowResponse(&windows[i]))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func startMeetingHandler(svc *meeting.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(w, r, "id")
		if !ok {
			return
		}

		session, err := svc.Start(r.Context(), id)
		if err != nil {
			handleMeetingError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toSessionResponse(session))
	}
}

func meetingEventHandler(svc *meeting.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(w, r, "id")
		if !ok {
			return
		}

		ev, ok := decodeMeetingEvent(w, r)
		if !ok {
			return
		}

		session, err := svc.Handle(r.Context(), id, ev)
		if err != nil {
			handleMeetingError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toSessionResponse(session))
	}
}

func getMeetingHandler(svc *meeting.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(w, r, "id")
		if !ok {
			return
		}

		session, err := svc.Get(r.Context(), id)
		if err != nil {
			handleMeetingError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toSessionResponse(session))
	}
}

// uploadRecordingHandler streams the request body straight to the recording
// store. An upload failure is reported to the caller but the session keeps
// whatever state it is in: recording loss never blocks the encounter.
func uploadRecordingHandler(svc *meeting.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(w, r, "id")
		if !ok {
			return
		}

		role := meeting.Role(r.URL.Query().Get("role"))
		if role == "" {
			role = meeting.RoleDoctor
		}

		url, err := svc.UploadRecording(r.Context(), id, role, r.Body, r.ContentLength)
		if err != nil {
			handleMeetingError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, RecordingUploadResponse{URL: url})
	}
}

func handleMeetingError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, meeting.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "session_not_found", err.Error())
	case errors.Is(err, appointment.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, appointment.ErrInvalidStatusTransition):
		writeError(w, http.StatusConflict, "appointment_not_confirmed", err.Error())
	case errors.Is(err, meeting.ErrMeetingNotAvailable):
		writeError(w, http.StatusConflict, "meeting_not_available", err.Error())
	case errors.Is(err, meeting.ErrSessionEnded):
		writeError(w, http.StatusConflict, "session_ended", err.Error())
	case errors.Is(err, meeting.ErrRecordingNotAllowed):
		writeError(w, http.StatusForbidden, "recording_not_allowed", err.Error())
	case errors.Is(err, meeting.ErrUnknownEvent):
		writeError(w, http.StatusBadRequest, "unknown_event", err.Error())
	case errors.Is(err, storage.ErrUploadRejected):
		writeError(w, http.StatusBadGateway, "upload_rejected", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
