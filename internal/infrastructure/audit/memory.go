// Package audit holds the append-only trail of verification events.
package audit

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"kyc-verification/internal/core/domain"
)

// MemoryLog is the process-local log of record. Entries are immutable
// once appended; append order is the audit order. Not durable across
// restarts, by design a diagnostic trail rather than a system of record.
type MemoryLog struct {
	mu      sync.Mutex
	entries []domain.AuditEntry
}

func NewMemoryLog() *MemoryLog {
	return &MemoryLog{}
}

func (l *MemoryLog) Append(_ context.Context, step domain.AuditStep, status domain.AuditStatus, details map[string]any) (domain.AuditEntry, error) {
	entry := domain.AuditEntry{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Step:      step,
		Status:    status,
		Details:   copyDetails(details),
	}

	l.mu.Lock()
	l.entries = append(l.entries, entry)
	l.mu.Unlock()
	return entry, nil
}

// List returns a copy of the log in append order.
func (l *MemoryLog) List(_ context.Context) ([]domain.AuditEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]domain.AuditEntry, len(l.entries))
	copy(out, l.entries)
	return out, nil
}

func copyDetails(details map[string]any) map[string]any {
	if details == nil {
		return nil
	}
	out := make(map[string]any, len(details))
	for k, v := range details {
		out[k] = v
	}
	return out
}
