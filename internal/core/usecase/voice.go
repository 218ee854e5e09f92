package usecase

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"

	"kyc-verification/internal/core/domain"
	"kyc-verification/internal/core/ports"
	"kyc-verification/internal/observability/metrics"
)

// fieldPatterns are ordered most to least specific: explicit lead-in
// phrases (English, romanized Hindi, romanized Telugu) first, then
// permissive free-text fallbacks. The first pattern with a captured
// group that survives the validity gate wins.
var fieldPatterns = map[domain.FieldName][]*regexp.Regexp{
	domain.FieldName_: {
		regexp.MustCompile(`(?i)(?:my name is|i am called|i am|this is)\s+([A-Za-z][A-Za-z .]{2,40})`),
		regexp.MustCompile(`(?i)(?:mera naam|naam hai|naam)\s+([A-Za-z][A-Za-z .]{2,40})`),
		regexp.MustCompile(`(?i)(?:naa peru|na peru|peru)\s+([A-Za-z][A-Za-z .]{2,40})`),
		regexp.MustCompile(`^([A-Za-z]+(?:\s+[A-Za-z]+){1,3})$`),
	},
	domain.FieldDOB: {
		regexp.MustCompile(`(?i)(?:date of birth is|my dob is|dob is|born on|i was born)\s+([0-9A-Za-z ,/.-]{6,30})`),
		regexp.MustCompile(`(?i)(?:janam tithi|janm tithi|paida hua)\s+([0-9A-Za-z ,/.-]{6,30})`),
		regexp.MustCompile(`(?i)(?:puttina tedi|janma dinam)\s+([0-9A-Za-z ,/.-]{6,30})`),
		regexp.MustCompile(`(\d{1,2}[\s/.-]\d{1,2}[\s/.-]\d{2,4})`),
		regexp.MustCompile(`(?i)(\d{1,2}(?:st|nd|rd|th)?\s+[A-Za-z]+\s+\d{4})`),
	},
	domain.FieldPAN: {
		regexp.MustCompile(`(?i)(?:pan number is|pan card number is|my pan is|pan is)\s+([A-Za-z0-9 -]{10,20})`),
		regexp.MustCompile(`(?i)(?:pan nambar|pan sankhya)\s+([A-Za-z0-9 -]{10,20})`),
		regexp.MustCompile(`(?i)\b([A-Za-z]{5}\s?-?\s?[0-9]{4}\s?-?\s?[A-Za-z])\b`),
	},
	domain.FieldAadhaar: {
		regexp.MustCompile(`(?i)(?:aadhaar number is|aadhar number is|my aadhaar is|aadhaar is|aadhar is)\s+([0-9 -]{12,25})`),
		regexp.MustCompile(`(?i)(?:aadhaar nambar|aadhar sankhya)\s+([0-9 -]{12,25})`),
		regexp.MustCompile(`(\d{4}[\s-]?\d{4}[\s-]?\d{4})`),
	},
}

var fieldPrompts = map[domain.FieldName]string{
	domain.FieldName_:   "Please tell me your full name.",
	domain.FieldDOB:     "Please tell me your date of birth.",
	domain.FieldPAN:     "Please read out your PAN number.",
	domain.FieldAadhaar: "Please read out your twelve digit Aadhaar number.",
}

// VoiceExtractor routes speech transcripts into an OnboardingRecord,
// one active field at a time. Final and interim transcripts go through
// the same matcher under one dedupe guard; a per-field timer force-fills
// the sentinel so the flow can never stall on an unrecognized utterance.
type VoiceExtractor struct {
	record  *domain.OnboardingRecord
	speaker ports.Speaker
	timeout time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu            sync.Mutex
	active        domain.FieldName
	hasActive     bool
	seen          map[string]struct{}
	consumedFinal string
	timer         *time.Timer
	generation    int
	stopped       bool
}

var _ ports.TranscriptSink = (*VoiceExtractor)(nil)

func NewVoiceExtractor(record *domain.OnboardingRecord, speaker ports.Speaker, timeout time.Duration, logger *slog.Logger, m *metrics.Metrics) *VoiceExtractor {
	if timeout <= 0 {
		timeout = 12 * time.Second
	}
	return &VoiceExtractor{
		record:  record,
		speaker: speaker,
		timeout: timeout,
		logger:  logger,
		metrics: m,
		seen:    make(map[string]struct{}),
	}
}

// Start points the cursor at the first unfilled field and prompts for it.
func (e *VoiceExtractor) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		return
	}
	e.advanceLocked()
}

// Update implements ports.TranscriptSink. Interim text enables a fast
// match on clearly keyword'd utterances; final text is the authoritative
// re-check.
func (e *VoiceExtractor) Update(finalText, interimText string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		return
	}
	e.processLocked(e.trimConsumed(finalText), true)
	e.processLocked(interimText, false)
}

// Active returns the field currently being listened for.
func (e *VoiceExtractor) Active() (domain.FieldName, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active, e.hasActive
}

// Stop cancels the pending timer and silences the speaker. After Stop no
// timer may mutate the record.
func (e *VoiceExtractor) Stop() {
	e.mu.Lock()
	e.stopped = true
	e.generation++
	e.cancelTimerLocked()
	e.mu.Unlock()
	if e.speaker != nil {
		e.speaker.Stop()
	}
}

// trimConsumed strips the transcript prefix consumed by the last
// accepted match, so following speech starts a fresh match window.
func (e *VoiceExtractor) trimConsumed(finalText string) string {
	if e.consumedFinal != "" && strings.HasPrefix(finalText, e.consumedFinal) {
		return finalText[len(e.consumedFinal):]
	}
	return finalText
}

func (e *VoiceExtractor) processLocked(text string, isFinal bool) {
	normalized := strings.Join(strings.Fields(text), " ")
	if normalized == "" {
		return
	}
	if _, dup := e.seen[normalized]; dup {
		return
	}
	e.seen[normalized] = struct{}{}

	if !e.hasActive || e.record.Filled(e.active) {
		e.advanceLocked()
		return
	}

	value, ok := matchField(e.active, normalized)
	if !ok {
		return
	}
	if !e.record.Set(e.active, value) {
		return
	}
	if e.logger != nil {
		e.logger.Info("voice_field_filled", "field", string(e.active), "final", isFinal)
	}
	if e.metrics != nil {
		e.metrics.ObserveVoiceExtraction(string(e.active), "matched")
	}
	// Accepted: reset the match window and move on.
	if isFinal {
		e.consumedFinal += text
	}
	e.seen = make(map[string]struct{})
	e.cancelTimerLocked()
	e.advanceLocked()
}

// advanceLocked moves the cursor to the next unfilled field, prompting
// for it and arming its timeout. A complete record clears the cursor.
func (e *VoiceExtractor) advanceLocked() {
	next, ok := e.record.NextUnfilled()
	if !ok {
		e.hasActive = false
		e.active = ""
		e.cancelTimerLocked()
		return
	}
	if e.hasActive && e.active == next {
		return
	}
	e.active = next
	e.hasActive = true
	e.armTimerLocked()
	e.promptLocked(next)
}

func (e *VoiceExtractor) armTimerLocked() {
	e.cancelTimerLocked()
	e.generation++
	generation := e.generation
	e.timer = time.AfterFunc(e.timeout, func() { e.expire(generation) })
}

func (e *VoiceExtractor) cancelTimerLocked() {
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
}

// expire force-fills the active field with the sentinel. The generation
// guard keeps a stale timer from mutating a superseded field.
func (e *VoiceExtractor) expire(generation int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped || generation != e.generation || !e.hasActive {
		return
	}
	if e.record.Set(e.active, domain.NotRecognized) {
		if e.logger != nil {
			e.logger.Warn("voice_field_timeout", "field", string(e.active))
		}
		if e.metrics != nil {
			e.metrics.ObserveVoiceExtraction(string(e.active), "timeout")
		}
	}
	e.seen = make(map[string]struct{})
	e.advanceLocked()
}

// promptLocked speaks the prompt for a field off the lock path. The
// speaker is stopped first so the system never transcribes itself.
func (e *VoiceExtractor) promptLocked(field domain.FieldName) {
	if e.speaker == nil {
		return
	}
	prompt := fieldPrompts[field]
	go func() {
		e.speaker.Stop()
		if err := e.speaker.Speak(context.Background(), prompt); err != nil && e.logger != nil {
			e.logger.Warn("voice_prompt_failed", "field", string(field), "error", err)
		}
	}()
}

// matchField tries each of the field's patterns in order and applies the
// per-field validity gate. Rejected candidates fall through to the next
// pattern.
func matchField(field domain.FieldName, text string) (string, bool) {
	for _, pattern := range fieldPatterns[field] {
		groups := pattern.FindStringSubmatch(text)
		if len(groups) < 2 {
			continue
		}
		if value, ok := normalizeField(field, groups[1]); ok {
			return value, true
		}
	}
	return "", false
}

func normalizeField(field domain.FieldName, raw string) (string, bool) {
	candidate := strings.TrimSpace(raw)
	switch field {
	case domain.FieldPAN:
		normalized := NormalizePAN(candidate)
		if len(normalized) != 10 {
			return "", false
		}
		return normalized, true
	case domain.FieldAadhaar:
		digits := nonDigitPattern.ReplaceAllString(candidate, "")
		if len(digits) != 12 {
			return "", false
		}
		return FormatAadhaarNumber(digits), true
	case domain.FieldName_:
		if len(candidate) < 3 {
			return "", false
		}
		return titleCase(candidate), true
	case domain.FieldDOB:
		return candidate, candidate != ""
	}
	return "", false
}

func titleCase(value string) string {
	words := strings.Fields(strings.ToLower(value))
	for i, word := range words {
		words[i] = strings.ToUpper(word[:1]) + word[1:]
	}
	return strings.Join(words, " ")
}
