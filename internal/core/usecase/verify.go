package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"golang.org/x/sync/errgroup"

	"kyc-verification/internal/config"
	"kyc-verification/internal/core/domain"
	"kyc-verification/internal/core/ports"
	"kyc-verification/internal/observability/metrics"
)

var (
	panFormatPattern = regexp.MustCompile(`^[A-Z]{5}[0-9]{4}[A-Z]$`)
	nonDigitPattern  = regexp.MustCompile(`\D`)
)

// VerifyPipeline is the server-side decision engine: extract both
// documents, compare the selfie against the Aadhaar photo, cross-check
// names, and fold the four signals into one explainable decision.
type VerifyPipeline struct {
	vision  ports.VisionService
	policy  config.Policy
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewVerifyPipeline(vision ports.VisionService, policy config.Policy, logger *slog.Logger, m *metrics.Metrics) *VerifyPipeline {
	return &VerifyPipeline{vision: vision, policy: policy, logger: logger, metrics: m}
}

func (p *VerifyPipeline) Verify(ctx context.Context, input domain.VerifyInput) (domain.VerificationReport, error) {
	if err := checkInput(input); err != nil {
		return domain.VerificationReport{}, err
	}

	aadhaar, pan, err := p.extractBoth(ctx, input)
	if err != nil {
		return domain.VerificationReport{}, err
	}

	aadhaar.IDNumber = FormatAadhaarNumber(aadhaar.IDNumber)
	pan.IDNumber = NormalizePAN(pan.IDNumber)

	// The face comparison needs the reference document, so it runs only
	// after both extractions complete.
	faceMatch := p.compareFaces(ctx, input.SelfieImage, input.AadhaarImage)

	aadhaarCheck := domain.DocumentCheck{
		DocumentExtraction: aadhaar,
		Valid:              aadhaarValid(aadhaar),
	}
	panCheck := domain.DocumentCheck{
		DocumentExtraction: pan,
		Valid:              p.panValid(pan),
	}
	crossCheck := p.crossCheckNames(aadhaar.Name, pan.Name, input.DeclaredName)

	approved := aadhaarCheck.Valid && panCheck.Valid && crossCheck.Match && faceMatch.Verified
	report := domain.VerificationReport{
		Approved:       approved,
		Aadhaar:        aadhaarCheck,
		PAN:            panCheck,
		NameCrossCheck: crossCheck,
		FaceMatch:      faceMatch,
		Summary: domain.ReportSummary{
			AadhaarValid: aadhaarCheck.Valid,
			PANValid:     panCheck.Valid,
			NamesMatch:   crossCheck.Match,
			FaceMatches:  faceMatch.Verified,
		},
	}

	if p.metrics != nil {
		p.metrics.ObserveVerification(approved)
	}
	if p.logger != nil {
		p.logger.InfoContext(ctx, "verification_decision",
			"approved", approved,
			"aadhaar_valid", aadhaarCheck.Valid,
			"pan_valid", panCheck.Valid,
			"names_match", crossCheck.Match,
			"face_verified", faceMatch.Verified,
		)
	}
	return report, nil
}

func checkInput(input domain.VerifyInput) error {
	switch {
	case len(input.AadhaarImage) == 0:
		return domain.WrapError(domain.ErrMissingInput, "verify", errors.New("aadhaar image is required"))
	case len(input.PANImage) == 0:
		return domain.WrapError(domain.ErrMissingInput, "verify", errors.New("pan image is required"))
	case len(input.SelfieImage) == 0:
		return domain.WrapError(domain.ErrMissingInput, "verify", errors.New("selfie image is required"))
	}
	return nil
}

// extractBoth runs the two document extractions concurrently.
func (p *VerifyPipeline) extractBoth(ctx context.Context, input domain.VerifyInput) (domain.DocumentExtraction, domain.DocumentExtraction, error) {
	var aadhaar, pan domain.DocumentExtraction

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		extraction, err := p.vision.ExtractDocument(groupCtx, input.AadhaarImage)
		if err != nil {
			return fmt.Errorf("extract aadhaar document: %w", err)
		}
		aadhaar = extraction
		return nil
	})
	group.Go(func() error {
		extraction, err := p.vision.ExtractDocument(groupCtx, input.PANImage)
		if err != nil {
			return fmt.Errorf("extract pan document: %w", err)
		}
		pan = extraction
		return nil
	})
	if err := group.Wait(); err != nil {
		return domain.DocumentExtraction{}, domain.DocumentExtraction{}, err
	}
	return aadhaar, pan, nil
}

// compareFaces never fails the pipeline: a dead comparison backend
// degrades to a permissive pass with the skip recorded in the reason.
func (p *VerifyPipeline) compareFaces(ctx context.Context, selfie, document []byte) domain.FaceMatchResult {
	result, err := p.vision.CompareFaces(ctx, selfie, document)
	if err != nil {
		if p.logger != nil {
			p.logger.WarnContext(ctx, "face_comparison_skipped", "error", err)
		}
		return domain.FaceMatchResult{
			Verified:   true,
			Confidence: p.policy.FaceMatchFallbackConfidence,
			Reason:     "comparison unavailable, check skipped",
		}
	}
	return result
}

func aadhaarValid(extraction domain.DocumentExtraction) bool {
	digits := nonDigitPattern.ReplaceAllString(extraction.IDNumber, "")
	return extraction.DocType == domain.DocTypeAadhaar && len(digits) == 12
}

// panValid is deliberately lenient by default: any classified document
// passes. StrictPANFormat narrows it to the ABCDE1234F shape.
func (p *VerifyPipeline) panValid(extraction domain.DocumentExtraction) bool {
	normalized := NormalizePAN(extraction.IDNumber)
	if p.policy.StrictPANFormat {
		return panFormatPattern.MatchString(normalized)
	}
	if extraction.DocType != domain.DocTypeUnknown {
		return true
	}
	return normalized != "" && panFormatPattern.MatchString(normalized)
}

func (p *VerifyPipeline) crossCheckNames(aadhaarName, panName, declaredName string) domain.NameCrossCheck {
	check := domain.NameCrossCheck{
		AadhaarName: strings.TrimSpace(aadhaarName),
		PANName:     strings.TrimSpace(panName),
	}

	switch {
	case check.AadhaarName != "" && check.PANName != "":
		check.SimilarityPct = NameSimilarity(check.AadhaarName, check.PANName)
		check.Match = check.SimilarityPct >= p.policy.NameSimilarityThreshold
	case check.AadhaarName != "" && strings.TrimSpace(declaredName) != "":
		check.SimilarityPct = NameSimilarity(check.AadhaarName, declaredName)
		check.Match = check.SimilarityPct >= p.policy.NameSimilarityThreshold
	case check.PANName != "" && strings.TrimSpace(declaredName) != "":
		check.SimilarityPct = NameSimilarity(check.PANName, declaredName)
		check.Match = check.SimilarityPct >= p.policy.NameSimilarityThreshold
	default:
		// No comparison is possible; the cross-check is not a blocking
		// condition.
		check.Match = true
	}
	return check
}

// FormatAadhaarNumber strips non-digits and regroups an exact 12-digit
// number as three space-separated groups of four. Anything else is
// returned as its bare digit run.
func FormatAadhaarNumber(raw string) string {
	digits := nonDigitPattern.ReplaceAllString(raw, "")
	if len(digits) != 12 {
		return digits
	}
	return digits[0:4] + " " + digits[4:8] + " " + digits[8:12]
}

// NormalizePAN uppercases and strips separators.
func NormalizePAN(raw string) string {
	cleaned := strings.NewReplacer(" ", "", "-", "").Replace(raw)
	return strings.ToUpper(strings.TrimSpace(cleaned))
}
