package httpadapter

import (
	"encoding/json"
	"net/http"

	"kyc-verification/internal/core/domain"
	"kyc-verification/internal/core/usecase"
	"kyc-verification/internal/imaging"
)

func (rt *Router) registerSessionRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/sessions", rt.createSession)
	mux.HandleFunc("GET /v1/sessions/{id}", rt.getSession)
	mux.HandleFunc("DELETE /v1/sessions/{id}", rt.deleteSession)
	mux.HandleFunc("POST /v1/sessions/{id}/begin", rt.beginSession)
	mux.HandleFunc("POST /v1/sessions/{id}/frames", rt.pushFrame)
	mux.HandleFunc("POST /v1/sessions/{id}/capture", rt.captureDocument)
	mux.HandleFunc("POST /v1/sessions/{id}/advance", rt.advanceSession)
	mux.HandleFunc("POST /v1/sessions/{id}/retake", rt.retakeSession)
	mux.HandleFunc("POST /v1/sessions/{id}/selfie", rt.captureSelfie)
	mux.HandleFunc("POST /v1/sessions/{id}/finalize", rt.finalizeSession)
	mux.HandleFunc("POST /v1/sessions/{id}/restart", rt.restartSession)
	mux.HandleFunc("POST /v1/sessions/{id}/transcript", rt.updateTranscript)
}

type sessionView struct {
	ID         string                      `json:"id"`
	State      usecase.FlowState           `json:"state"`
	Record     map[domain.FieldName]string `json:"record"`
	VoiceField string                      `json:"voice_field,omitempty"`
	Facing     string                      `json:"facing,omitempty"`
}

func viewOf(session *usecase.Session) sessionView {
	view := sessionView{
		ID:     session.ID,
		State:  session.Flow.State(),
		Record: session.Record.Snapshot(),
	}
	if field, ok := session.Voice.Active(); ok {
		view.VoiceField = string(field)
	}
	if facing, streaming := session.Camera.Facing(); streaming {
		view.Facing = string(facing)
	}
	return view
}

func (rt *Router) createSession(w http.ResponseWriter, _ *http.Request) {
	session := rt.sessions.Create()
	writeJSON(w, http.StatusCreated, viewOf(session))
}

func (rt *Router) session(w http.ResponseWriter, r *http.Request) (*usecase.Session, bool) {
	session, err := rt.sessions.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return nil, false
	}
	return session, true
}

func (rt *Router) getSession(w http.ResponseWriter, r *http.Request) {
	session, ok := rt.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, viewOf(session))
}

func (rt *Router) deleteSession(w http.ResponseWriter, r *http.Request) {
	if err := rt.sessions.Remove(r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"removed": true})
}

func (rt *Router) beginSession(w http.ResponseWriter, r *http.Request) {
	session, ok := rt.session(w, r)
	if !ok {
		return
	}
	if err := session.Flow.Begin(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(session))
}

// pushFrame feeds one still into the session camera. The frame sits in
// the capture slot until a capture or selfie call consumes it.
func (rt *Router) pushFrame(w http.ResponseWriter, r *http.Request) {
	session, ok := rt.session(w, r)
	if !ok {
		return
	}
	var req struct {
		Image string `json:"image"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	_, raw, err := imaging.DecodeBase64Image(req.Image)
	if raw == nil {
		writeError(w, domain.WrapError(domain.ErrMissingInput, "frames", err))
		return
	}
	if err := session.Camera.Push(raw); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"queued": true})
}

func (rt *Router) captureDocument(w http.ResponseWriter, r *http.Request) {
	session, ok := rt.session(w, r)
	if !ok {
		return
	}
	outcome, err := session.Flow.CaptureDocument(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session": viewOf(session),
		"outcome": outcome,
	})
}

func (rt *Router) advanceSession(w http.ResponseWriter, r *http.Request) {
	session, ok := rt.session(w, r)
	if !ok {
		return
	}
	if err := session.Flow.Advance(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(session))
}

func (rt *Router) retakeSession(w http.ResponseWriter, r *http.Request) {
	session, ok := rt.session(w, r)
	if !ok {
		return
	}
	if err := session.Flow.Retake(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(session))
}

func (rt *Router) captureSelfie(w http.ResponseWriter, r *http.Request) {
	session, ok := rt.session(w, r)
	if !ok {
		return
	}
	outcome, err := session.Flow.CaptureSelfie(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session":     viewOf(session),
		"face_status": outcome.FaceStatus,
	})
}

func (rt *Router) finalizeSession(w http.ResponseWriter, r *http.Request) {
	session, ok := rt.session(w, r)
	if !ok {
		return
	}
	reportOut, err := session.Flow.Finalize(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session": viewOf(session),
		"report":  reportOut,
	})
}

func (rt *Router) restartSession(w http.ResponseWriter, r *http.Request) {
	session, ok := rt.session(w, r)
	if !ok {
		return
	}
	session.Flow.Restart()
	writeJSON(w, http.StatusOK, viewOf(session))
}

// updateTranscript routes one speech-to-text update into the session's
// voice extractor.
func (rt *Router) updateTranscript(w http.ResponseWriter, r *http.Request) {
	session, ok := rt.session(w, r)
	if !ok {
		return
	}
	var req struct {
		Final   string `json:"final"`
		Interim string `json:"interim"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	session.Voice.Update(req.Final, req.Interim)
	writeJSON(w, http.StatusOK, viewOf(session))
}
