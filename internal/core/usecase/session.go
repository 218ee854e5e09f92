package usecase

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"kyc-verification/internal/config"
	"kyc-verification/internal/core/domain"
	"kyc-verification/internal/core/ports"
	"kyc-verification/internal/observability/metrics"
)

// FrameSink is the session camera as seen from the wire: a capture
// device that also accepts pushed stills.
type FrameSink interface {
	ports.CaptureDevice
	Push(raw []byte) error
	Facing() (ports.FacingMode, bool)
}

// Session owns the per-client onboarding state: the spoken record, the
// capture flow and the voice extractor all share one lifetime.
type Session struct {
	ID        string
	CreatedAt time.Time
	Record    *domain.OnboardingRecord
	Flow      *FlowController
	Voice     *VoiceExtractor
	Camera    FrameSink
}

// SessionDeps carries the shared collaborators every session is built
// from. NewCamera is called once per session so each flow exclusively
// owns its device.
type SessionDeps struct {
	NewCamera  func() FrameSink
	Quality    ports.QualityAnalyzer
	Recognizer ports.DocumentRecognizer
	Faces      ports.FaceDetector
	Verifier   ports.KYCVerifier
	Audit      ports.AuditLog
	Speaker    ports.Speaker
	Policy     config.Policy
	VoiceWait  time.Duration
	Logger     *slog.Logger
	Metrics    *metrics.Metrics
}

// SessionRegistry hands out and tracks live sessions.
type SessionRegistry struct {
	deps SessionDeps

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewSessionRegistry(deps SessionDeps) *SessionRegistry {
	return &SessionRegistry{
		deps:     deps,
		sessions: make(map[string]*Session),
	}
}

// Create builds a fresh session with its own record, camera, flow and
// voice extractor, and starts listening for the first field.
func (r *SessionRegistry) Create() *Session {
	record := domain.NewOnboardingRecord()
	cam := r.deps.NewCamera()

	session := &Session{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Record:    record,
		Camera:    cam,
	}
	session.Flow = NewFlowController(FlowDeps{
		Camera:     cam,
		Quality:    r.deps.Quality,
		Recognizer: r.deps.Recognizer,
		Faces:      r.deps.Faces,
		Verifier:   r.deps.Verifier,
		Audit:      r.deps.Audit,
		Record:     record,
		Policy:     r.deps.Policy,
		Logger:     r.deps.Logger,
		Metrics:    r.deps.Metrics,
	})
	session.Voice = NewVoiceExtractor(record, r.deps.Speaker, r.deps.VoiceWait, r.deps.Logger, r.deps.Metrics)
	session.Voice.Start()

	r.mu.Lock()
	r.sessions[session.ID] = session
	r.mu.Unlock()

	if r.deps.Logger != nil {
		r.deps.Logger.Info("session_created", "session_id", session.ID)
	}
	return session
}

func (r *SessionRegistry) Get(id string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrSessionNotFound, "sessions.get", fmt.Errorf("id %q", id))
	}
	return session, nil
}

// Remove tears a session down: voice timers are cancelled and the camera
// is released before the session is forgotten.
func (r *SessionRegistry) Remove(id string) error {
	r.mu.Lock()
	session, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if !ok {
		return domain.WrapError(domain.ErrSessionNotFound, "sessions.remove", fmt.Errorf("id %q", id))
	}
	session.Voice.Stop()
	session.Flow.Restart()
	if r.deps.Logger != nil {
		r.deps.Logger.Info("session_removed", "session_id", id)
	}
	return nil
}

// Close tears down every live session.
func (r *SessionRegistry) Close() {
	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, session := range r.sessions {
		sessions = append(sessions, session)
	}
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()

	for _, session := range sessions {
		session.Voice.Stop()
		session.Flow.Restart()
	}
}
