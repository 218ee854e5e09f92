package usecase

import (
	"testing"
	"time"

	"kyc-verification/internal/config"
	"kyc-verification/internal/core/domain"
	"kyc-verification/internal/core/ports"
	"kyc-verification/internal/infrastructure/audit"
)

type sinkFake struct {
	cameraFake
}

func (s *sinkFake) Push(_ []byte) error { return nil }

func (s *sinkFake) Facing() (ports.FacingMode, bool) {
	return ports.FacingEnvironment, s.streaming
}

func newRegistry() *SessionRegistry {
	return NewSessionRegistry(SessionDeps{
		NewCamera:  func() FrameSink { return &sinkFake{} },
		Quality:    &qualityFake{result: acceptableQuality()},
		Recognizer: &recognizerFake{},
		Verifier:   &verifierFake{},
		Audit:      audit.NewMemoryLog(),
		Speaker:    &speakerFake{},
		Policy:     config.DefaultPolicy(),
		VoiceWait:  time.Minute,
	})
}

func TestRegistryCreateAndGet(t *testing.T) {
	registry := newRegistry()
	t.Cleanup(registry.Close)

	session := registry.Create()
	if session.ID == "" {
		t.Fatal("session id not assigned")
	}
	if active, ok := session.Voice.Active(); !ok || active != domain.FieldName_ {
		t.Errorf("voice cursor = %v %v, want listening for name", active, ok)
	}

	got, err := registry.Get(session.ID)
	if err != nil || got != session {
		t.Fatalf("Get = %v, %v", got, err)
	}
}

func TestRegistryGetUnknownSession(t *testing.T) {
	registry := newRegistry()
	if _, err := registry.Get("nope"); !domain.IsKind(err, domain.ErrSessionNotFound) {
		t.Fatalf("error = %v, want session not found", err)
	}
}

func TestRegistryRemoveTearsDown(t *testing.T) {
	registry := newRegistry()
	session := registry.Create()

	if err := registry.Remove(session.ID); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := registry.Get(session.ID); !domain.IsKind(err, domain.ErrSessionNotFound) {
		t.Error("removed session still retrievable")
	}
	if err := registry.Remove(session.ID); !domain.IsKind(err, domain.ErrSessionNotFound) {
		t.Errorf("second remove = %v, want session not found", err)
	}
	if session.Flow.State() != StateStart {
		t.Error("teardown must reset the flow and release the camera")
	}
}

func TestRegistrySessionsAreIndependent(t *testing.T) {
	registry := newRegistry()
	t.Cleanup(registry.Close)

	first := registry.Create()
	second := registry.Create()
	if first.ID == second.ID {
		t.Fatal("ids must be unique")
	}

	first.Record.Set(domain.FieldName_, "Asha Rao")
	if second.Record.Filled(domain.FieldName_) {
		t.Error("records must not be shared between sessions")
	}
}
