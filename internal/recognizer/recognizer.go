// Package recognizer classifies captured identity documents and extracts
// their structured fields from OCR text.
package recognizer

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"kyc-verification/internal/core/domain"
	"kyc-verification/internal/core/ports"
)

var (
	panNumberPattern     = regexp.MustCompile(`(?i)[A-Z]{5}[0-9]{4}[A-Z]`)
	aadhaarGroupPattern  = regexp.MustCompile(`\d{4}\s?\d{4}\s?\d{4}`)
	aadhaarDigitsPattern = regexp.MustCompile(`\d{12}`)
	alphabeticLine       = regexp.MustCompile(`^[A-Za-z][A-Za-z .]+$`)
)

// PAN indicators are checked before Aadhaar indicators.
var panPhrases = []string{"income tax", "permanent account", "govt. of india"}

var aadhaarPhrases = []string{"uidai", "unique identification", "enrolment"}

// Aadhaar cards carry a lot of boilerplate around the holder's name.
var aadhaarBoilerplate = []string{
	"government", "india", "male", "female", "enrolment",
	"authority", "unique", "identification", "uidai",
}

// Recognizer runs OCR over a frame and derives the document type, the
// identifier and a best-effort name. Absence of a field is not an error.
type Recognizer struct {
	ocr      ports.OCREngine
	language string
}

func New(ocr ports.OCREngine, language string) *Recognizer {
	return &Recognizer{ocr: ocr, language: language}
}

func (r *Recognizer) Recognize(ctx context.Context, imageData []byte, onProgress func(float64)) (domain.DocumentExtraction, error) {
	text, err := r.ocr.Recognize(ctx, imageData, r.language, onProgress)
	if err != nil {
		return domain.DocumentExtraction{DocType: domain.DocTypeUnknown}, fmt.Errorf("ocr recognize: %w", err)
	}
	return RecognizeText(text.Text, text.Confidence), nil
}

// RecognizeText runs classification and field extraction directly over
// already-recognized text. Used for frames after OCR and for embedded-text
// documents (e-Aadhaar PDFs) that never pass through OCR.
func RecognizeText(rawText string, confidence int) domain.DocumentExtraction {
	extraction := domain.DocumentExtraction{
		RawText:    rawText,
		DocType:    classify(rawText),
		Confidence: clampConfidence(confidence),
	}

	switch extraction.DocType {
	case domain.DocTypePAN:
		extraction.IDNumber = extractPANNumber(rawText)
		extraction.Name = extractPANName(rawText)
	case domain.DocTypeAadhaar:
		extraction.IDNumber = extractAadhaarNumber(rawText)
		extraction.Name = extractAadhaarName(rawText)
	}
	return extraction
}

func classify(text string) domain.DocType {
	lower := strings.ToLower(text)

	for _, phrase := range panPhrases {
		if strings.Contains(lower, phrase) {
			return domain.DocTypePAN
		}
	}
	if panNumberPattern.MatchString(text) {
		return domain.DocTypePAN
	}

	for _, phrase := range aadhaarPhrases {
		if strings.Contains(lower, phrase) {
			return domain.DocTypeAadhaar
		}
	}
	if aadhaarGroupPattern.MatchString(text) {
		return domain.DocTypeAadhaar
	}

	return domain.DocTypeUnknown
}

func extractPANNumber(text string) string {
	return strings.ToUpper(panNumberPattern.FindString(text))
}

// extractAadhaarNumber returns the first 12-digit run found anywhere in
// the text, spacing stripped. Either exactly 12 digits or empty.
func extractAadhaarNumber(text string) string {
	stripped := strings.NewReplacer(" ", "", " ", "", "-", "").Replace(text)
	return aadhaarDigitsPattern.FindString(stripped)
}

// extractPANName looks for a "name" label and takes the following line if
// it is purely alphabetic.
func extractPANName(text string) string {
	lines := splitLines(text)
	for i, line := range lines {
		if !strings.Contains(strings.ToLower(line), "name") {
			continue
		}
		if i+1 < len(lines) && alphabeticLine.MatchString(lines[i+1]) {
			return lines[i+1]
		}
	}
	return ""
}

// extractAadhaarName takes the first purely alphabetic line that is not
// issuing-authority boilerplate.
func extractAadhaarName(text string) string {
	for _, line := range splitLines(text) {
		if !alphabeticLine.MatchString(line) {
			continue
		}
		if containsBoilerplate(line) {
			continue
		}
		return line
	}
	return ""
}

func containsBoilerplate(line string) bool {
	lower := strings.ToLower(line)
	for _, word := range aadhaarBoilerplate {
		if strings.Contains(lower, word) {
			return true
		}
	}
	return false
}

func splitLines(text string) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func clampConfidence(confidence int) int {
	if confidence < 0 {
		return 0
	}
	if confidence > 100 {
		return 100
	}
	return confidence
}
