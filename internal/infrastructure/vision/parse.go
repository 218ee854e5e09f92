package vision

import (
	"encoding/json"
	"strings"

	"kyc-verification/internal/core/domain"
)

// documentPayload is the wire shape the model is asked to produce. Every
// field is optional; the parser fills in what it can.
type documentPayload struct {
	DocType       string `json:"doc_type"`
	Name          string `json:"name"`
	AadhaarNumber string `json:"aadhaar_number"`
	PANNumber     string `json:"pan_number"`
	FatherName    string `json:"father_name"`
	DOB           string `json:"dob"`
	Gender        string `json:"gender"`
	Address       string `json:"address"`
	Pincode       string `json:"pincode"`
}

type facePayload struct {
	Verified   bool   `json:"verified"`
	Confidence int    `json:"confidence"`
	Reason     string `json:"reason"`
}

// parseDocument turns an untrusted model response into an extraction.
// Parse chain: strip fences, strict parse, first balanced object
// substring, else an unknown-typed default. Never errors.
func parseDocument(raw string) domain.DocumentExtraction {
	var payload documentPayload
	if !decodeLenient(raw, &payload) {
		return domain.DocumentExtraction{DocType: domain.DocTypeUnknown}
	}

	docType := domain.DocTypeUnknown
	switch strings.ToLower(strings.TrimSpace(payload.DocType)) {
	case "aadhaar":
		docType = domain.DocTypeAadhaar
	case "pan":
		docType = domain.DocTypePAN
	}

	idNumber := payload.AadhaarNumber
	if docType == domain.DocTypePAN {
		idNumber = payload.PANNumber
	}

	return domain.DocumentExtraction{
		DocType:    docType,
		IDNumber:   strings.TrimSpace(idNumber),
		Name:       strings.TrimSpace(payload.Name),
		FatherName: strings.TrimSpace(payload.FatherName),
		DOB:        strings.TrimSpace(payload.DOB),
		Gender:     strings.ToLower(strings.TrimSpace(payload.Gender)),
		Address:    strings.TrimSpace(payload.Address),
		Pincode:    strings.TrimSpace(payload.Pincode),
	}
}

func parseFaceMatch(raw string) domain.FaceMatchResult {
	var payload facePayload
	if !decodeLenient(raw, &payload) {
		return domain.FaceMatchResult{
			Verified: false,
			Reason:   "unparseable comparison response",
		}
	}

	confidence := payload.Confidence
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 99 {
		confidence = 99
	}
	return domain.FaceMatchResult{
		Verified:   payload.Verified,
		Confidence: confidence,
		Reason:     strings.TrimSpace(payload.Reason),
		Model:      "vision",
	}
}

func decodeLenient(raw string, out any) bool {
	cleaned := stripFences(raw)
	if json.Unmarshal([]byte(cleaned), out) == nil {
		return true
	}
	if obj := firstJSONObject(cleaned); obj != "" {
		return json.Unmarshal([]byte(obj), out) == nil
	}
	return false
}

// stripFences removes the markdown code fences models sometimes wrap
// around JSON.
func stripFences(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

// firstJSONObject extracts the first balanced top-level object substring,
// respecting strings and escapes.
func firstJSONObject(raw string) string {
	start := strings.IndexByte(raw, '{')
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(raw); i++ {
		ch := raw[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return raw[start : i+1]
			}
		}
	}
	return ""
}
