package domain

import "image"

// Frame is one captured still: the encoded bytes as they travel to the
// OCR/vision services plus the decoded pixels for local analysis.
type Frame struct {
	Data  []byte
	Image image.Image
}

// OCRText is the raw output of an OCR engine run.
type OCRText struct {
	Text       string
	Confidence int
}

// VerifyInput carries everything the server-side pipeline needs for one
// decision. Images are encoded JPEG/PNG bytes.
type VerifyInput struct {
	AadhaarImage []byte
	PANImage     []byte
	SelfieImage  []byte
	DeclaredName string
	DeclaredDOB  string
}
