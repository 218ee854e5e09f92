package ports

import (
	"context"

	"kyc-verification/internal/core/domain"
)

// KYCVerifier is the inbound contract for the server-side decision engine.
type KYCVerifier interface {
	Verify(ctx context.Context, input domain.VerifyInput) (domain.VerificationReport, error)
}

// TranscriptSink consumes speech-to-text updates for one session. Final
// and interim text are independently routed through the same matcher.
type TranscriptSink interface {
	Update(finalText, interimText string)
}
