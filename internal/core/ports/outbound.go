package ports

import (
	"context"
	"image"

	"kyc-verification/internal/core/domain"
)

type FacingMode string

const (
	FacingUser        FacingMode = "user"
	FacingEnvironment FacingMode = "environment"
)

// CaptureDevice abstracts the camera. CaptureFrame returns nil without an
// error when no stream is active.
type CaptureDevice interface {
	Start(ctx context.Context, facing FacingMode) error
	Stop()
	CaptureFrame(ctx context.Context) (*domain.Frame, error)
}

// QualityAnalyzer scores one frame for blur and exposure.
type QualityAnalyzer interface {
	Analyze(img image.Image) domain.QualityResult
}

// OCREngine runs text recognition over an encoded image, reporting
// fractional progress in [0,1] while running.
type OCREngine interface {
	Recognize(ctx context.Context, imageData []byte, language string, onProgress func(float64)) (domain.OCRText, error)
}

// DocumentRecognizer turns a captured frame into structured fields.
type DocumentRecognizer interface {
	Recognize(ctx context.Context, imageData []byte, onProgress func(float64)) (domain.DocumentExtraction, error)
}

// VisionService is the remote AI extraction/comparison backend. Responses
// are untrusted and defensively parsed by the adapter.
type VisionService interface {
	ExtractDocument(ctx context.Context, imageData []byte) (domain.DocumentExtraction, error)
	CompareFaces(ctx context.Context, selfieData, documentData []byte) (domain.FaceMatchResult, error)
}

// FaceDetector is an optional platform capability. Callers probe for it
// and treat absence as "skipped", never as failure.
type FaceDetector interface {
	DetectFace(ctx context.Context, imageData []byte) (bool, error)
}

// Speaker voices a prompt. Stop cancels any playback in progress so the
// system never transcribes its own prompts.
type Speaker interface {
	Speak(ctx context.Context, text string) error
	Stop()
}

// AuditLog is the append-only trail of verification events.
type AuditLog interface {
	Append(ctx context.Context, step domain.AuditStep, status domain.AuditStatus, details map[string]any) (domain.AuditEntry, error)
	List(ctx context.Context) ([]domain.AuditEntry, error)
}

// AuditQueue fans audit entries out to interested consumers. Publishing is
// best-effort from the caller's perspective.
type AuditQueue interface {
	PublishAuditEntry(ctx context.Context, entry domain.AuditEntry) error
	SubscribeAuditEntries(ctx context.Context, handler func(context.Context, domain.AuditEntry) error) error
}
