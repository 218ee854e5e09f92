package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"kyc-verification/internal/config"
	"kyc-verification/internal/core/domain"
	"kyc-verification/internal/core/ports"
	"kyc-verification/internal/observability/metrics"
)

// FlowState is one step of the capture sequence.
type FlowState string

const (
	StateStart    FlowState = "start"
	StateDocument FlowState = "document"
	StateOCR      FlowState = "ocr"
	StatePAN      FlowState = "pan"
	StatePANOCR   FlowState = "pan_ocr"
	StateSelfie   FlowState = "selfie"
	StateResult   FlowState = "result"
)

// MatchStatus is the recognition outcome for one captured document.
type MatchStatus string

const (
	MatchSuccess MatchStatus = "success"
	MatchPartial MatchStatus = "partial"
	MatchNone    MatchStatus = "none"
)

// FaceStatus is the selfie-stage face presence outcome. Absence of the
// detection capability maps to skipped, never to failure.
type FaceStatus string

const (
	FaceDetected    FaceStatus = "detected"
	FaceNotDetected FaceStatus = "not_detected"
	FaceSkipped     FaceStatus = "skipped"
)

// CaptureOutcome reports one document-capture attempt: the quality gate
// verdict and, when the gate passed, the recognition result.
type CaptureOutcome struct {
	Quality    domain.QualityResult
	Accepted   bool
	Extraction *domain.DocumentExtraction
	Match      MatchStatus
}

// SelfieOutcome reports the selfie stage.
type SelfieOutcome struct {
	FaceStatus FaceStatus
}

// FlowController sequences one verification session through capture,
// recognition, selfie and finalization. Transitions are strictly
// sequential per session; audit logging is best-effort throughout.
type FlowController struct {
	camera     ports.CaptureDevice
	quality    ports.QualityAnalyzer
	recognizer ports.DocumentRecognizer
	faces      ports.FaceDetector
	verifier   ports.KYCVerifier
	audit      ports.AuditLog
	record     *domain.OnboardingRecord
	policy     config.Policy
	logger     *slog.Logger
	metrics    *metrics.Metrics

	mu          sync.Mutex
	state       FlowState
	docFrame    *domain.Frame
	docResult   *domain.DocumentExtraction
	docMatch    MatchStatus
	panFrame    *domain.Frame
	panResult   *domain.DocumentExtraction
	panMatch    MatchStatus
	selfieFrame *domain.Frame
	faceStatus  FaceStatus
	report      *domain.VerificationReport
}

// FlowDeps carries the controller's collaborators. FaceDetector and
// Verifier may be nil; the controller degrades to skipped detection and
// the local approval rule.
type FlowDeps struct {
	Camera     ports.CaptureDevice
	Quality    ports.QualityAnalyzer
	Recognizer ports.DocumentRecognizer
	Faces      ports.FaceDetector
	Verifier   ports.KYCVerifier
	Audit      ports.AuditLog
	Record     *domain.OnboardingRecord
	Policy     config.Policy
	Logger     *slog.Logger
	Metrics    *metrics.Metrics
}

func NewFlowController(deps FlowDeps) *FlowController {
	return &FlowController{
		camera:     deps.Camera,
		quality:    deps.Quality,
		recognizer: deps.Recognizer,
		faces:      deps.Faces,
		verifier:   deps.Verifier,
		audit:      deps.Audit,
		record:     deps.Record,
		policy:     deps.Policy,
		logger:     deps.Logger,
		metrics:    deps.Metrics,
		state:      StateStart,
	}
}

func (c *FlowController) State() FlowState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Begin starts rear-facing capture for the first document. A camera
// failure surfaces to the caller and leaves the state untouched.
func (c *FlowController) Begin(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateStart {
		return c.transitionError("begin")
	}
	if err := c.camera.Start(ctx, ports.FacingEnvironment); err != nil {
		return domain.WrapError(domain.ErrDeviceUnavailable, "flow.begin", err)
	}
	c.state = StateDocument
	return nil
}

// CaptureDocument runs one capture attempt in the document or pan state.
// A quality rejection keeps the state in place and emits a retry audit
// entry; an accepted frame stops the feed, gets recognized and moves the
// flow to the matching validation state.
func (c *FlowController) CaptureDocument(ctx context.Context) (*CaptureOutcome, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateDocument && c.state != StatePAN {
		return nil, c.transitionError("capture document")
	}

	frame, err := c.camera.CaptureFrame(ctx)
	if err != nil {
		return nil, domain.WrapError(domain.ErrDeviceUnavailable, "flow.capture", err)
	}
	if frame == nil {
		return nil, domain.WrapError(domain.ErrDeviceUnavailable, "flow.capture", errors.New("no active stream"))
	}

	quality := c.quality.Analyze(frame.Image)
	if !quality.Acceptable {
		if c.metrics != nil {
			c.metrics.ObserveQualityReject(string(quality.Issue))
		}
		c.recordAudit(ctx, domain.StepDocumentCapture, domain.AuditRetry, map[string]any{
			"issue":      string(quality.Issue),
			"sharpness":  quality.Sharpness,
			"brightness": quality.Brightness,
			"stage":      string(c.state),
		})
		return &CaptureOutcome{Quality: quality}, nil
	}

	c.camera.Stop()
	c.recordAudit(ctx, domain.StepDocumentCapture, domain.AuditSuccess, map[string]any{
		"sharpness":  quality.Sharpness,
		"brightness": quality.Brightness,
		"stage":      string(c.state),
	})

	firstDocument := c.state == StateDocument
	if firstDocument {
		c.docFrame = frame
		c.state = StateOCR
	} else {
		c.panFrame = frame
		c.state = StatePANOCR
	}

	extraction, match := c.recognize(ctx, frame)
	if firstDocument {
		c.docResult = extraction
		c.docMatch = match
	} else {
		c.panResult = extraction
		c.panMatch = match
	}

	return &CaptureOutcome{
		Quality:    quality,
		Accepted:   true,
		Extraction: extraction,
		Match:      match,
	}, nil
}

func (c *FlowController) recognize(ctx context.Context, frame *domain.Frame) (*domain.DocumentExtraction, MatchStatus) {
	extraction, err := c.recognizer.Recognize(ctx, frame.Data, nil)
	if err != nil {
		if c.logger != nil {
			c.logger.WarnContext(ctx, "recognition_failed", "error", err)
		}
		c.recordAudit(ctx, domain.StepOCRValidation, domain.AuditFailure, map[string]any{
			"error": err.Error(),
		})
		return &extraction, MatchNone
	}

	match := c.matchStatus(extraction)
	status := domain.AuditSuccess
	if match == MatchNone {
		status = domain.AuditFailure
	}
	c.recordAudit(ctx, domain.StepOCRValidation, status, map[string]any{
		"doc_type":   string(extraction.DocType),
		"match":      string(match),
		"confidence": extraction.Confidence,
	})
	return &extraction, match
}

// matchStatus applies the capture-time match policy. The permissive
// default treats any classified document as a success; StrictIDMatch
// additionally compares the extracted identifier against the spoken
// onboarding value.
func (c *FlowController) matchStatus(extraction domain.DocumentExtraction) MatchStatus {
	if extraction.DocType == domain.DocTypeUnknown {
		return MatchNone
	}
	if !c.policy.StrictIDMatch {
		return MatchSuccess
	}

	var declared string
	if c.record != nil {
		switch extraction.DocType {
		case domain.DocTypeAadhaar:
			declared = c.record.Get(domain.FieldAadhaar)
		case domain.DocTypePAN:
			declared = c.record.Get(domain.FieldPAN)
		}
	}
	extracted := squeezeID(extraction.IDNumber)
	spoken := squeezeID(declared)
	if extracted == "" || spoken == "" || spoken == squeezeID(domain.NotRecognized) {
		return MatchPartial
	}
	if extracted == spoken || strings.HasPrefix(extracted, spoken) || strings.HasPrefix(spoken, extracted) {
		return MatchSuccess
	}
	return MatchNone
}

// Retake discards the stored frame and recognition result and reopens
// the camera for the same document.
func (c *FlowController) Retake(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var back FlowState
	switch c.state {
	case StateOCR, StateDocument:
		back = StateDocument
		c.docFrame, c.docResult, c.docMatch = nil, nil, ""
	case StatePANOCR, StatePAN:
		back = StatePAN
		c.panFrame, c.panResult, c.panMatch = nil, nil, ""
	default:
		return c.transitionError("retake")
	}
	if err := c.camera.Start(ctx, ports.FacingEnvironment); err != nil {
		return domain.WrapError(domain.ErrDeviceUnavailable, "flow.retake", err)
	}
	c.state = back
	return nil
}

// Advance moves past a validation state. It is allowed only when the
// recognition outcome was success or partial; otherwise the caller must
// retake.
func (c *FlowController) Advance(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateOCR:
		if !allowsAdvance(c.docMatch) {
			return domain.WrapError(domain.ErrInvalidTransition, "flow.advance",
				fmt.Errorf("document match is %q, retake required", c.docMatch))
		}
		if err := c.camera.Start(ctx, ports.FacingEnvironment); err != nil {
			return domain.WrapError(domain.ErrDeviceUnavailable, "flow.advance", err)
		}
		c.state = StatePAN
		return nil
	case StatePANOCR:
		if !allowsAdvance(c.panMatch) {
			return domain.WrapError(domain.ErrInvalidTransition, "flow.advance",
				fmt.Errorf("document match is %q, retake required", c.panMatch))
		}
		if err := c.camera.Start(ctx, ports.FacingUser); err != nil {
			return domain.WrapError(domain.ErrDeviceUnavailable, "flow.advance", err)
		}
		c.state = StateSelfie
		return nil
	default:
		return c.transitionError("advance")
	}
}

func allowsAdvance(match MatchStatus) bool {
	return match == MatchSuccess || match == MatchPartial
}

// CaptureSelfie grabs a front-facing frame and probes the optional face
// detection capability.
func (c *FlowController) CaptureSelfie(ctx context.Context) (*SelfieOutcome, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateSelfie {
		return nil, c.transitionError("capture selfie")
	}

	frame, err := c.camera.CaptureFrame(ctx)
	if err != nil {
		return nil, domain.WrapError(domain.ErrDeviceUnavailable, "flow.selfie", err)
	}
	if frame == nil {
		return nil, domain.WrapError(domain.ErrDeviceUnavailable, "flow.selfie", errors.New("no active stream"))
	}
	c.camera.Stop()
	c.selfieFrame = frame
	c.faceStatus = c.detectFace(ctx, frame)

	c.recordAudit(ctx, domain.StepSelfieCapture, domain.AuditSuccess, map[string]any{
		"face_status": string(c.faceStatus),
	})
	return &SelfieOutcome{FaceStatus: c.faceStatus}, nil
}

func (c *FlowController) detectFace(ctx context.Context, frame *domain.Frame) FaceStatus {
	if c.faces == nil {
		return FaceSkipped
	}
	found, err := c.faces.DetectFace(ctx, frame.Data)
	if err != nil {
		if c.logger != nil {
			c.logger.WarnContext(ctx, "face_detection_unavailable", "error", err)
		}
		return FaceSkipped
	}
	if found {
		return FaceDetected
	}
	return FaceNotDetected
}

// Finalize invokes the server-side pipeline when all inputs are present
// and adopts its decision; a pipeline failure or incomplete inputs fall
// back to the local approval rule. The returned report is kept for later
// Result calls.
func (c *FlowController) Finalize(ctx context.Context) (domain.VerificationReport, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateSelfie {
		return domain.VerificationReport{}, c.transitionError("finalize")
	}
	if c.selfieFrame == nil {
		return domain.VerificationReport{}, domain.WrapError(domain.ErrMissingInput, "flow.finalize", errors.New("no selfie captured"))
	}

	report, fromPipeline := c.tryPipeline(ctx)
	if !fromPipeline {
		report = c.localDecision()
	}

	status := domain.AuditFailure
	if report.Approved {
		status = domain.AuditSuccess
	}
	c.recordAudit(ctx, domain.StepFinalResult, status, map[string]any{
		"approved":      report.Approved,
		"from_pipeline": fromPipeline,
		"aadhaar_valid": report.Summary.AadhaarValid,
		"pan_valid":     report.Summary.PANValid,
		"names_match":   report.Summary.NamesMatch,
		"face_verified": report.Summary.FaceMatches,
	})

	c.report = &report
	c.state = StateResult
	return report, nil
}

func (c *FlowController) tryPipeline(ctx context.Context) (domain.VerificationReport, bool) {
	if c.verifier == nil || c.docFrame == nil || c.panFrame == nil || c.selfieFrame == nil {
		return domain.VerificationReport{}, false
	}

	input := domain.VerifyInput{
		AadhaarImage: c.docFrame.Data,
		PANImage:     c.panFrame.Data,
		SelfieImage:  c.selfieFrame.Data,
	}
	if c.record != nil {
		input.DeclaredName = c.record.Get(domain.FieldName_)
		input.DeclaredDOB = c.record.Get(domain.FieldDOB)
	}

	report, err := c.verifier.Verify(ctx, input)
	if err != nil {
		if c.logger != nil {
			c.logger.WarnContext(ctx, "pipeline_unreachable_using_local_rule", "error", err)
		}
		return domain.VerificationReport{}, false
	}
	return report, true
}

// localDecision is the offline fallback: both documents matched and the
// face step did not positively fail.
func (c *FlowController) localDecision() domain.VerificationReport {
	faceOK := c.faceStatus == FaceDetected || c.faceStatus == FaceSkipped
	approved := allowsAdvance(c.docMatch) && allowsAdvance(c.panMatch) && faceOK

	report := domain.VerificationReport{
		Approved: approved,
		FaceMatch: domain.FaceMatchResult{
			Verified: faceOK,
			Reason:   "local fallback, face status " + string(c.faceStatus),
		},
		Summary: domain.ReportSummary{
			AadhaarValid: allowsAdvance(c.docMatch),
			PANValid:     allowsAdvance(c.panMatch),
			NamesMatch:   true,
			FaceMatches:  faceOK,
		},
	}
	if c.docResult != nil {
		report.Aadhaar = domain.DocumentCheck{DocumentExtraction: *c.docResult, Valid: allowsAdvance(c.docMatch)}
	}
	if c.panResult != nil {
		report.PAN = domain.DocumentCheck{DocumentExtraction: *c.panResult, Valid: allowsAdvance(c.panMatch)}
	}
	report.NameCrossCheck.Match = true
	return report
}

// Result returns the finalized report.
func (c *FlowController) Result() (domain.VerificationReport, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.report == nil {
		return domain.VerificationReport{}, false
	}
	return *c.report, true
}

// Restart discards all captured material and returns to the initial
// state, releasing the camera.
func (c *FlowController) Restart() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.camera.Stop()
	c.state = StateStart
	c.docFrame, c.docResult, c.docMatch = nil, nil, ""
	c.panFrame, c.panResult, c.panMatch = nil, nil, ""
	c.selfieFrame = nil
	c.faceStatus = ""
	c.report = nil
}

func (c *FlowController) recordAudit(ctx context.Context, step domain.AuditStep, status domain.AuditStatus, details map[string]any) {
	if c.audit == nil {
		return
	}
	_, _ = c.audit.Append(ctx, step, status, details)
}

func (c *FlowController) transitionError(action string) error {
	return domain.WrapError(domain.ErrInvalidTransition, "flow",
		fmt.Errorf("cannot %s in state %q", action, c.state))
}

func squeezeID(value string) string {
	return strings.ToUpper(strings.NewReplacer(" ", "", "-", "").Replace(strings.TrimSpace(value)))
}
