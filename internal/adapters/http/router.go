// Package httpadapter exposes the verification service over HTTP.
package httpadapter

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"kyc-verification/internal/config"
	"kyc-verification/internal/core/domain"
	"kyc-verification/internal/core/ports"
	"kyc-verification/internal/core/usecase"
	"kyc-verification/internal/imaging"
	"kyc-verification/internal/infrastructure/extractor/pdftext"
	"kyc-verification/internal/infrastructure/report"
	"kyc-verification/internal/observability/metrics"
	"kyc-verification/internal/recognizer"
)

const (
	maxInFlightRequests = 64
	backpressureWait    = 2 * time.Second
)

type Router struct {
	cfg        config.Config
	verifier   ports.KYCVerifier
	vision     ports.VisionService
	recognizer ports.DocumentRecognizer
	audit      ports.AuditLog
	sessions   *usecase.SessionRegistry
	metrics    *metrics.Metrics
}

func NewRouter(
	cfg config.Config,
	verifier ports.KYCVerifier,
	vision ports.VisionService,
	docRecognizer ports.DocumentRecognizer,
	auditLog ports.AuditLog,
	sessions *usecase.SessionRegistry,
	m *metrics.Metrics,
) *Router {
	return &Router{
		cfg:        cfg,
		verifier:   verifier,
		vision:     vision,
		recognizer: docRecognizer,
		audit:      auditLog,
		sessions:   sessions,
		metrics:    m,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)

	mux.HandleFunc("POST /v1/kyc/verify-document", rt.verifyDocument)
	mux.HandleFunc("POST /v1/kyc/verify-face", rt.verifyFace)
	mux.HandleFunc("POST /v1/kyc/full-verify", rt.fullVerify)

	mux.HandleFunc("POST /v1/audit", rt.appendAudit)
	mux.HandleFunc("GET /v1/audit", rt.listAudit)
	mux.HandleFunc("GET /v1/audit/report.xlsx", rt.auditReport)

	rt.registerSessionRoutes(mux)

	var handler http.Handler = mux
	handler = backpressureMiddleware(handler, maxInFlightRequests, backpressureWait)
	handler = rateLimitMiddleware(handler, rt.cfg.RateLimitRPS, rt.cfg.RateLimitBurst)
	handler = metricsMiddleware(rt.metrics, handler)
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// verifyDocument extracts fields from a single uploaded document. Scanned
// e-documents arrive as PDFs with an embedded text layer; those bypass
// OCR entirely.
func (rt *Router) verifyDocument(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Image string `json:"image"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	_, raw, err := imaging.DecodeBase64Image(req.Image)
	if raw == nil {
		writeError(w, domain.WrapError(domain.ErrMissingInput, "verify-document", err))
		return
	}

	if pdftext.IsPDF(raw) {
		text, err := pdftext.Extract(raw)
		if err != nil {
			writeError(w, domain.WrapError(domain.ErrInvalidInput, "verify-document", err))
			return
		}
		writeJSON(w, http.StatusOK, recognizer.RecognizeText(text, 100))
		return
	}

	extraction, err := rt.recognizer.Recognize(r.Context(), raw, nil)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, extraction)
}

func (rt *Router) verifyFace(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Selfie   string `json:"selfie"`
		Document string `json:"document"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	_, selfie, err := imaging.DecodeBase64Image(req.Selfie)
	if err != nil {
		writeError(w, domain.WrapError(domain.ErrMissingInput, "verify-face", err))
		return
	}
	_, document, err := imaging.DecodeBase64Image(req.Document)
	if err != nil {
		writeError(w, domain.WrapError(domain.ErrMissingInput, "verify-face", err))
		return
	}

	result, err := rt.vision.CompareFaces(r.Context(), imaging.OptimizeForUpload(selfie), imaging.OptimizeForUpload(document))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) fullVerify(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AadhaarImage string `json:"aadhaar_image"`
		PANImage     string `json:"pan_image"`
		SelfieImage  string `json:"selfie_image"`
		Name         string `json:"name"`
		DOB          string `json:"dob"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	input := domain.VerifyInput{DeclaredName: req.Name, DeclaredDOB: req.DOB}
	for _, field := range []struct {
		name    string
		encoded string
		target  *[]byte
	}{
		{"aadhaar_image", req.AadhaarImage, &input.AadhaarImage},
		{"pan_image", req.PANImage, &input.PANImage},
		{"selfie_image", req.SelfieImage, &input.SelfieImage},
	} {
		// Absent images stay nil so the pipeline reports which one is
		// missing; malformed payloads are rejected here.
		if strings.TrimSpace(field.encoded) == "" {
			continue
		}
		_, raw, err := imaging.DecodeBase64Image(field.encoded)
		if raw == nil {
			writeError(w, domain.WrapError(domain.ErrInvalidInput, "full-verify", fmt.Errorf("%s: %w", field.name, err)))
			return
		}
		*field.target = raw
	}

	reportOut, err := rt.verifier.Verify(r.Context(), input)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reportOut)
}

func (rt *Router) appendAudit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Step    string         `json:"step"`
		Status  string         `json:"status"`
		Details map[string]any `json:"details"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.Step == "" || req.Status == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "step and status are required"})
		return
	}

	entry, err := rt.audit.Append(r.Context(), domain.AuditStep(req.Step), domain.AuditStatus(req.Status), req.Details)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "entry_id": entry.ID})
}

func (rt *Router) listAudit(w http.ResponseWriter, r *http.Request) {
	entries, err := rt.audit.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries, "count": len(entries)})
}

func (rt *Router) auditReport(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="kyc-audit.xlsx"`)
	if err := report.WriteAuditXLSX(r.Context(), rt.audit, w); err != nil {
		writeError(w, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
