package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/studyloop/studyloop/internal/observe"
	"github.com/studyloop/studyloop/internal/transcript"
)

type sessionCreateResponse struct {
	SessionID string `json:"session_id"`
}

// handleSessionCreate serves POST /api/sessions.
func (s *Server) handleSessionCreate(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.Create(context.WithoutCancel(r.Context()))
	observe.Logger(r.Context()).Info("session created", "session_id", sess.ID())
	writeJSON(w, http.StatusCreated, sessionCreateResponse{SessionID: sess.ID()})
}

// handleSessionEnd serves DELETE /api/sessions/{id}.
func (s *Server) handleSessionEnd(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !s.sessions.End(id) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	observe.Logger(r.Context()).Info("session ended", "session_id", id)
	w.WriteHeader(http.StatusNoContent)
}

type sessionNotesResponse struct {
	SessionID string            `json:"session_id"`
	Turns     []transcript.Turn `json:"turns"`
}

// handleSessionNotes serves GET /api/sessions/{id}/notes with the enriched
// turn records accumulated so far.
func (s *Server) handleSessionNotes(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	sess := s.sessions.Get(id)
	if sess == nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, sessionNotesResponse{SessionID: id, Turns: sess.Turns()})
}

// wsEvent is one transcript event received over the events WebSocket.
type wsEvent struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

// handleSessionEvents serves GET /api/sessions/{id}/events: a WebSocket over
// which the avatar front-end streams speaker-tagged transcript events into
// the session pipeline. Events with an unknown speaker tag are skipped, not
// fatal to the connection.
func (s *Server) handleSessionEvents(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	sess := s.sessions.Get(id)
	if sess == nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		observe.Logger(r.Context()).Warn("websocket accept failed", "session_id", id, "err", err)
		return
	}
	defer conn.CloseNow()

	log := observe.Logger(r.Context()).With("session_id", id)
	log.Info("event stream opened")

	for {
		var ev wsEvent
		if err := wsjson.Read(r.Context(), conn, &ev); err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway || errors.Is(err, context.Canceled) {
				log.Info("event stream closed")
			} else {
				log.Warn("event stream read failed", "err", err)
			}
			return
		}

		speaker := transcript.Speaker(ev.Speaker)
		if !speaker.IsValid() {
			log.Warn("skipping event with unknown speaker", "speaker", ev.Speaker)
			continue
		}
		sess.HandleEvent(transcript.Event{Speaker: speaker, Text: ev.Text})
	}
}
