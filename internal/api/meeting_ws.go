package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/carelink/telehealth-scheduling/internal/meeting"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The video widget is embedded on a different origin than the API.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// meetingSocketHandler accepts the widget's event stream over a websocket.
// Each inbound message is one lifecycle event; the updated session state is
// echoed back after every apply. The socket closes once the session ends.
func meetingSocketHandler(svc *meeting.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(w, r, "id")
		if !ok {
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("meeting socket upgrade: %v", err)
			return
		}
		defer conn.Close()

		for {
			var req MeetingEventRequest
			if err := conn.ReadJSON(&req); err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					log.Printf("meeting socket read for session %s: %v", id, err)
				}
				return
			}

			ev, err := toMeetingEvent(req)
			if err != nil {
				_ = conn.WriteJSON(ErrorResponse{Error: "unknown_event", Details: err.Error()})
				continue
			}

			session, err := svc.Handle(r.Context(), id, ev)
			if err != nil {
				_ = conn.WriteJSON(ErrorResponse{Error: "event_rejected", Details: err.Error()})
				if errors.Is(err, meeting.ErrSessionEnded) || errors.Is(err, meeting.ErrSessionNotFound) {
					return
				}
				continue
			}

			if err := conn.WriteJSON(toSessionResponse(session)); err != nil {
				log.Printf("meeting socket write for session %s: %v", id, err)
				return
			}

			if session.Status == meeting.StatusEnded {
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session ended"))
				return
			}
		}
	}
}

func decodeMeetingEvent(w http.ResponseWriter, r *http.Request) (meeting.Event, bool) {
	var req MeetingEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return meeting.Event{}, false
	}

	ev, err := toMeetingEvent(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unknown_event", err.Error())
		return meeting.Event{}, false
	}

	return ev, true
}

func toMeetingEvent(req MeetingEventRequest) (meeting.Event, error) {
	ev := meeting.Event{
		Type:    meeting.EventType(req.Type),
		Role:    meeting.Role(req.Role),
		Capture: meeting.CaptureMode(req.Capture),
	}

	switch ev.Type {
	case meeting.EventJoined, meeting.EventLeft:
		if ev.Role != meeting.RoleDoctor && ev.Role != meeting.RolePatient {
			return meeting.Event{}, errors.New("role must be doctor or patient")
		}
	case meeting.EventClosed:
	case meeting.EventRecordingStatus:
		if ev.Capture != meeting.CaptureComposite && ev.Capture != meeting.CaptureLocalOnly && ev.Capture != meeting.CaptureNone {
			return meeting.Event{}, errors.New("capture must be composite, local-only or none")
		}
	default:
		return meeting.Event{}, errors.New("type must be joined, left, closed or recording_status")
	}

	return ev, nil
}
