package domain

type DocType string

const (
	DocTypeAadhaar DocType = "aadhaar"
	DocTypePAN     DocType = "pan"
	DocTypeUnknown DocType = "unknown"
)

type QualityIssue string

const (
	IssueNone   QualityIssue = "none"
	IssueBlur   QualityIssue = "blur"
	IssueDark   QualityIssue = "dark"
	IssueBright QualityIssue = "bright"
)

// QualityResult is the per-frame acceptability verdict of the quality gate.
// Acceptable is true iff Issue == IssueNone.
type QualityResult struct {
	Acceptable bool         `json:"acceptable"`
	Sharpness  float64      `json:"sharpness_score"`
	Brightness float64      `json:"brightness_score"`
	Issue      QualityIssue `json:"issue"`
}

// DocumentExtraction holds the structured fields read off one captured
// document. Missing fields stay empty; absence is never an error here.
type DocumentExtraction struct {
	RawText    string  `json:"raw_text,omitempty"`
	DocType    DocType `json:"doc_type"`
	IDNumber   string  `json:"id_number,omitempty"`
	Name       string  `json:"name,omitempty"`
	FatherName string  `json:"father_name,omitempty"`
	DOB        string  `json:"dob,omitempty"`
	Gender     string  `json:"gender,omitempty"`
	Address    string  `json:"address,omitempty"`
	Pincode    string  `json:"pincode,omitempty"`
	Confidence int     `json:"confidence"`
}

type FaceMatchResult struct {
	Verified   bool    `json:"verified"`
	Confidence int     `json:"confidence"`
	Reason     string  `json:"reason,omitempty"`
	Model      string  `json:"model,omitempty"`
	Distance   float64 `json:"distance,omitempty"`
	Threshold  float64 `json:"threshold,omitempty"`
}

// DocumentCheck is one document's extraction plus its format verdict.
type DocumentCheck struct {
	DocumentExtraction
	Valid bool `json:"valid"`
}

type NameCrossCheck struct {
	Match         bool   `json:"match"`
	SimilarityPct int    `json:"similarity_pct"`
	AadhaarName   string `json:"aadhaar_name,omitempty"`
	PANName       string `json:"pan_name,omitempty"`
}

// VerificationReport is the full-pipeline decision with every contributing
// signal, so a rejection is always explainable. Built once per attempt,
// never mutated.
type VerificationReport struct {
	Approved       bool            `json:"approved"`
	Aadhaar        DocumentCheck   `json:"aadhaar"`
	PAN            DocumentCheck   `json:"pan"`
	NameCrossCheck NameCrossCheck  `json:"name_cross_check"`
	FaceMatch      FaceMatchResult `json:"face_match"`
	Summary        ReportSummary   `json:"summary"`
}

type ReportSummary struct {
	AadhaarValid bool `json:"aadhaar_valid"`
	PANValid     bool `json:"pan_valid"`
	NamesMatch   bool `json:"names_match"`
	FaceMatches  bool `json:"face_matches"`
}
