package domain

import "sync"

// FieldName identifies one onboarding field collected by voice.
type FieldName string

const (
	FieldName_   FieldName = "name"
	FieldDOB     FieldName = "dob"
	FieldPAN     FieldName = "pan"
	FieldAadhaar FieldName = "aadhaar"
)

// FieldOrder is the canonical collection order.
var FieldOrder = []FieldName{FieldName_, FieldDOB, FieldPAN, FieldAadhaar}

// NotRecognized is the sentinel written when a field times out without a
// usable utterance.
const NotRecognized = "Not Recognized"

// OnboardingRecord maps field names to spoken values for one session.
// A non-empty value counts as filled and is never auto-overwritten. The
// record is shared between the voice extractor's timer goroutine and the
// request path, so access is synchronized internally.
type OnboardingRecord struct {
	mu     sync.RWMutex
	values map[FieldName]string
}

func NewOnboardingRecord() *OnboardingRecord {
	values := make(map[FieldName]string, len(FieldOrder))
	for _, field := range FieldOrder {
		values[field] = ""
	}
	return &OnboardingRecord{values: values}
}

func (r *OnboardingRecord) Get(field FieldName) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.values[field]
}

// Set writes a value only if the field is still empty. It reports whether
// the write happened.
func (r *OnboardingRecord) Set(field FieldName, value string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.values[field] != "" || value == "" {
		return false
	}
	r.values[field] = value
	return true
}

func (r *OnboardingRecord) Filled(field FieldName) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.values[field] != ""
}

// NextUnfilled returns the first unfilled field in canonical order, or
// false when the record is complete.
func (r *OnboardingRecord) NextUnfilled() (FieldName, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, field := range FieldOrder {
		if r.values[field] == "" {
			return field, true
		}
	}
	return "", false
}

func (r *OnboardingRecord) Complete() bool {
	_, ok := r.NextUnfilled()
	return !ok
}

// Snapshot returns a copy of the current values.
func (r *OnboardingRecord) Snapshot() map[FieldName]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[FieldName]string, len(r.values))
	for field, value := range r.values {
		out[field] = value
	}
	return out
}
