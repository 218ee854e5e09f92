package domain

import "time"

type AuditStep string

const (
	StepDocumentCapture AuditStep = "document_capture"
	StepOCRValidation   AuditStep = "ocr_validation"
	StepSelfieCapture   AuditStep = "selfie_capture"
	StepFinalResult     AuditStep = "final_result"
)

type AuditStatus string

const (
	AuditSuccess AuditStatus = "success"
	AuditFailure AuditStatus = "failure"
	AuditRetry   AuditStatus = "retry"
)

// AuditEntry is one immutable record of a verification-flow event. The id
// and timestamp are assigned at append time; ordering by append sequence
// is the audit order of record.
type AuditEntry struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Step      AuditStep      `json:"step"`
	Status    AuditStatus    `json:"status"`
	Details   map[string]any `json:"details,omitempty"`
}
