// Package speech carries voice prompts toward the client. Synthesis and
// playback happen on the device; the server side records what should be
// spoken and exposes it through the structured log.
package speech

import (
	"context"
	"log/slog"
	"sync"

	"kyc-verification/internal/core/ports"
)

// PromptLog is a Speaker that journals prompts instead of synthesizing
// audio. Stop marks any in-flight prompt as superseded so late log lines
// can be correlated.
type PromptLog struct {
	logger *slog.Logger

	mu      sync.Mutex
	current string
}

var _ ports.Speaker = (*PromptLog)(nil)

func NewPromptLog(logger *slog.Logger) *PromptLog {
	return &PromptLog{logger: logger}
}

func (p *PromptLog) Speak(ctx context.Context, text string) error {
	p.mu.Lock()
	p.current = text
	p.mu.Unlock()
	if p.logger != nil {
		p.logger.InfoContext(ctx, "voice_prompt", "text", text)
	}
	return nil
}

func (p *PromptLog) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = ""
}

// Current returns the last prompt queued for playback, if any.
func (p *PromptLog) Current() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current, p.current != ""
}
