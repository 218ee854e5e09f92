package vision

import (
	"context"
	"errors"

	"kyc-verification/internal/imaging"
)

const facePresencePrompt = `You are an expert at analyzing photos for identity verification.
Look at the image and determine whether it contains a clearly visible human face.

Return ONLY a JSON object in this exact format:
{"face_present": true or false, "reason": "short explanation"}`

type facePresencePayload struct {
	FacePresent bool   `json:"face_present"`
	Reason      string `json:"reason"`
}

// DetectFace reports whether the image contains a visible face. It backs
// the optional selfie-stage capability; callers treat an error as the
// capability being unavailable, not as a failed check.
func (c *Client) DetectFace(ctx context.Context, imageData []byte) (bool, error) {
	raw, err := c.complete(ctx, "detect_face", facePresencePrompt, imaging.OptimizeForUpload(imageData))
	if err != nil {
		return false, err
	}

	var payload facePresencePayload
	if !decodeLenient(raw, &payload) {
		return false, errors.New("unparseable face presence response")
	}
	return payload.FacePresent, nil
}
