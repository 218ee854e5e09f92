package httpadapter

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"kyc-verification/internal/config"
	"kyc-verification/internal/core/domain"
	"kyc-verification/internal/core/usecase"
	"kyc-verification/internal/infrastructure/audit"
	"kyc-verification/internal/infrastructure/camera"
)

type verifierFake struct {
	report domain.VerificationReport
	err    error
}

func (f *verifierFake) Verify(_ context.Context, input domain.VerifyInput) (domain.VerificationReport, error) {
	if len(input.AadhaarImage) == 0 || len(input.PANImage) == 0 || len(input.SelfieImage) == 0 {
		return domain.VerificationReport{}, domain.WrapError(domain.ErrMissingInput, "verify", errors.New("image required"))
	}
	return f.report, f.err
}

type visionFake struct {
	extraction domain.DocumentExtraction
	face       domain.FaceMatchResult
	err        error
}

func (f *visionFake) ExtractDocument(context.Context, []byte) (domain.DocumentExtraction, error) {
	return f.extraction, f.err
}

func (f *visionFake) CompareFaces(context.Context, []byte, []byte) (domain.FaceMatchResult, error) {
	return f.face, f.err
}

type recognizerFake struct {
	extraction domain.DocumentExtraction
	err        error
}

func (f *recognizerFake) Recognize(context.Context, []byte, func(float64)) (domain.DocumentExtraction, error) {
	return f.extraction, f.err
}

type qualityFake struct{ result domain.QualityResult }

func (f *qualityFake) Analyze(image.Image) domain.QualityResult { return f.result }

type speakerFake struct{}

func (speakerFake) Speak(context.Context, string) error { return nil }
func (speakerFake) Stop()                               {}

type routerFixture struct {
	router   *Router
	handler  http.Handler
	log      *audit.MemoryLog
	sessions *usecase.SessionRegistry
}

func newFixture(cfg config.Config) *routerFixture {
	log := audit.NewMemoryLog()
	sessions := usecase.NewSessionRegistry(usecase.SessionDeps{
		NewCamera:  func() usecase.FrameSink { return camera.NewFrameQueue() },
		Quality:    &qualityFake{result: domain.QualityResult{Acceptable: true, Sharpness: 100, Brightness: 120, Issue: domain.IssueNone}},
		Recognizer: &recognizerFake{extraction: domain.DocumentExtraction{DocType: domain.DocTypeAadhaar, IDNumber: "1234 5678 9012"}},
		Verifier:   &verifierFake{report: domain.VerificationReport{Approved: true}},
		Audit:      log,
		Speaker:    speakerFake{},
		Policy:     config.DefaultPolicy(),
		VoiceWait:  time.Minute,
	})
	router := NewRouter(
		cfg,
		&verifierFake{report: domain.VerificationReport{Approved: true}},
		&visionFake{face: domain.FaceMatchResult{Verified: true, Confidence: 90}},
		&recognizerFake{extraction: domain.DocumentExtraction{DocType: domain.DocTypeAadhaar, IDNumber: "1234 5678 9012"}},
		log,
		sessions,
		nil,
	)
	return &routerFixture{router: router, handler: router.Handler(), log: log, sessions: sessions}
}

func pngBase64(t *testing.T) string {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 8, 8))); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func postJSON(t *testing.T, handler http.Handler, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	return res
}

func TestHealthz(t *testing.T) {
	fx := newFixture(config.Config{})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	res := httptest.NewRecorder()
	fx.handler.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("status = %d", res.Code)
	}
	if res.Header().Get("X-Request-Id") == "" {
		t.Error("request id header missing")
	}
}

func TestVerifyDocumentReturnsExtraction(t *testing.T) {
	fx := newFixture(config.Config{})
	res := postJSON(t, fx.handler, "/v1/kyc/verify-document", map[string]string{"image": pngBase64(t)})
	if res.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", res.Code, res.Body.String())
	}
	var extraction domain.DocumentExtraction
	if err := json.Unmarshal(res.Body.Bytes(), &extraction); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if extraction.DocType != domain.DocTypeAadhaar {
		t.Errorf("doc type = %v", extraction.DocType)
	}
}

func TestVerifyDocumentRejectsMissingImage(t *testing.T) {
	fx := newFixture(config.Config{})
	res := postJSON(t, fx.handler, "/v1/kyc/verify-document", map[string]string{"image": ""})
	if res.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", res.Code)
	}
}

func TestVerifyDocumentPDFPath(t *testing.T) {
	fx := newFixture(config.Config{})
	// Not a real PDF body, so extraction fails with invalid input rather
	// than falling through to the image recognizer.
	fake := base64.StdEncoding.EncodeToString([]byte("%PDF-1.4 garbage"))
	res := postJSON(t, fx.handler, "/v1/kyc/verify-document", map[string]string{"image": fake})
	if res.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for a corrupt pdf", res.Code)
	}
}

func TestVerifyFace(t *testing.T) {
	fx := newFixture(config.Config{})
	res := postJSON(t, fx.handler, "/v1/kyc/verify-face", map[string]string{
		"selfie":   pngBase64(t),
		"document": pngBase64(t),
	})
	if res.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", res.Code, res.Body.String())
	}
	var result domain.FaceMatchResult
	if err := json.Unmarshal(res.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !result.Verified || result.Confidence != 90 {
		t.Errorf("result = %+v", result)
	}
}

func TestFullVerifyMapsMissingInputTo400(t *testing.T) {
	fx := newFixture(config.Config{})
	res := postJSON(t, fx.handler, "/v1/kyc/full-verify", map[string]string{
		"aadhaar_image": pngBase64(t),
	})
	if res.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", res.Code)
	}
}

func TestFullVerifyRejectsMalformedBase64(t *testing.T) {
	fx := newFixture(config.Config{})
	res := postJSON(t, fx.handler, "/v1/kyc/full-verify", map[string]string{
		"aadhaar_image": "%%% not base64 %%%",
		"pan_image":     pngBase64(t),
		"selfie_image":  pngBase64(t),
	})
	if res.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", res.Code)
	}
	if body := res.Body.String(); !strings.Contains(body, "aadhaar_image") {
		t.Errorf("error should name the bad field, got %s", body)
	}
}

func TestFullVerifyHappyPath(t *testing.T) {
	fx := newFixture(config.Config{})
	res := postJSON(t, fx.handler, "/v1/kyc/full-verify", map[string]string{
		"aadhaar_image": pngBase64(t),
		"pan_image":     pngBase64(t),
		"selfie_image":  pngBase64(t),
		"name":          "Asha Rao",
	})
	if res.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", res.Code, res.Body.String())
	}
	var report domain.VerificationReport
	if err := json.Unmarshal(res.Body.Bytes(), &report); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !report.Approved {
		t.Error("expected approval from the pipeline fake")
	}
}

func TestAuditAppendAndList(t *testing.T) {
	fx := newFixture(config.Config{})

	res := postJSON(t, fx.handler, "/v1/audit", map[string]any{
		"step":    "document_capture",
		"status":  "success",
		"details": map[string]any{"sharpness": 80},
	})
	if res.Code != http.StatusOK {
		t.Fatalf("append status = %d", res.Code)
	}
	var appendResp struct {
		Success bool   `json:"success"`
		EntryID string `json:"entry_id"`
	}
	if err := json.Unmarshal(res.Body.Bytes(), &appendResp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !appendResp.Success || appendResp.EntryID == "" {
		t.Fatalf("append response = %+v", appendResp)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/audit", nil)
	listRes := httptest.NewRecorder()
	fx.handler.ServeHTTP(listRes, req)
	if listRes.Code != http.StatusOK {
		t.Fatalf("list status = %d", listRes.Code)
	}
	var listResp struct {
		Entries []domain.AuditEntry `json:"entries"`
		Count   int                 `json:"count"`
	}
	if err := json.Unmarshal(listRes.Body.Bytes(), &listResp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if listResp.Count != 1 || listResp.Entries[0].ID != appendResp.EntryID {
		t.Errorf("list = %+v", listResp)
	}
}

func TestAuditAppendValidation(t *testing.T) {
	fx := newFixture(config.Config{})
	res := postJSON(t, fx.handler, "/v1/audit", map[string]any{"details": map[string]any{}})
	if res.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", res.Code)
	}
}

func TestAuditReportContentType(t *testing.T) {
	fx := newFixture(config.Config{})
	req := httptest.NewRequest(http.MethodGet, "/v1/audit/report.xlsx", nil)
	res := httptest.NewRecorder()
	fx.handler.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("status = %d", res.Code)
	}
	if got := res.Header().Get("Content-Type"); got != "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet" {
		t.Errorf("content type = %q", got)
	}
	if res.Body.Len() == 0 {
		t.Error("empty workbook body")
	}
}

func TestUnknownSessionMapsTo404(t *testing.T) {
	fx := newFixture(config.Config{})
	res := postJSON(t, fx.handler, "/v1/sessions/nope/begin", map[string]string{})
	if res.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", res.Code)
	}
}

func TestRateLimitMiddlewareReturns429(t *testing.T) {
	fx := newFixture(config.Config{RateLimitRPS: 1, RateLimitBurst: 1})

	req1 := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	res1 := httptest.NewRecorder()
	fx.handler.ServeHTTP(res1, req1)
	if res1.Code != http.StatusOK {
		t.Fatalf("first request expected 200, got %d", res1.Code)
	}

	req2 := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	res2 := httptest.NewRecorder()
	fx.handler.ServeHTTP(res2, req2)
	if res2.Code != http.StatusTooManyRequests {
		t.Fatalf("second request expected 429, got %d", res2.Code)
	}
	if res2.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header for 429 response")
	}
}

func TestBackpressureMiddlewareReturns503WhenSaturated(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan int, 1)

	base := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started <- struct{}{}
		<-release
		w.WriteHeader(http.StatusNoContent)
	})
	handler := backpressureMiddleware(base, 1, 20*time.Millisecond)

	go func() {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, req)
		done <- res.Code
	}()

	<-started
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusServiceUnavailable {
		t.Fatalf("saturated request expected 503, got %d", res.Code)
	}

	close(release)
	if code := <-done; code != http.StatusNoContent {
		t.Fatalf("held request expected 204, got %d", code)
	}
}
