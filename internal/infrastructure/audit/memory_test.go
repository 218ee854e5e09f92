package audit

import (
	"context"
	"sync"
	"testing"

	"kyc-verification/internal/core/domain"
)

func TestAppendAssignsIDAndTimestamp(t *testing.T) {
	log := NewMemoryLog()
	entry, err := log.Append(context.Background(), domain.StepDocumentCapture, domain.AuditSuccess, map[string]any{"sharpness": 120.5})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if entry.ID == "" {
		t.Fatal("entry id not assigned")
	}
	if entry.Timestamp.IsZero() {
		t.Fatal("timestamp not assigned")
	}
}

func TestListPreservesAppendOrder(t *testing.T) {
	log := NewMemoryLog()
	ctx := context.Background()

	steps := []domain.AuditStep{
		domain.StepDocumentCapture,
		domain.StepOCRValidation,
		domain.StepSelfieCapture,
		domain.StepFinalResult,
	}
	for _, step := range steps {
		if _, err := log.Append(ctx, step, domain.AuditSuccess, nil); err != nil {
			t.Fatal(err)
		}
	}

	entries, err := log.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != len(steps) {
		t.Fatalf("len = %d, want %d", len(entries), len(steps))
	}
	for i, step := range steps {
		if entries[i].Step != step {
			t.Fatalf("entries[%d].Step = %q, want %q", i, entries[i].Step, step)
		}
	}
}

func TestListReturnsCopy(t *testing.T) {
	log := NewMemoryLog()
	ctx := context.Background()
	if _, err := log.Append(ctx, domain.StepFinalResult, domain.AuditSuccess, nil); err != nil {
		t.Fatal(err)
	}

	first, _ := log.List(ctx)
	first[0].Status = domain.AuditFailure

	second, _ := log.List(ctx)
	if second[0].Status != domain.AuditSuccess {
		t.Fatal("List must return a copy, not the backing slice")
	}
}

func TestDetailsAreCopied(t *testing.T) {
	log := NewMemoryLog()
	details := map[string]any{"match": "success"}
	entry, _ := log.Append(context.Background(), domain.StepOCRValidation, domain.AuditSuccess, details)

	details["match"] = "mutated"
	if entry.Details["match"] != "success" {
		t.Fatal("entry details must be isolated from the caller's map")
	}
}

func TestConcurrentAppendsAllLand(t *testing.T) {
	log := NewMemoryLog()
	ctx := context.Background()

	const writers = 16
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = log.Append(ctx, domain.StepDocumentCapture, domain.AuditRetry, nil)
		}()
	}
	wg.Wait()

	entries, _ := log.List(ctx)
	if len(entries) != writers {
		t.Fatalf("len = %d, want %d", len(entries), writers)
	}
	seen := map[string]bool{}
	for _, entry := range entries {
		if seen[entry.ID] {
			t.Fatalf("duplicate entry id %q", entry.ID)
		}
		seen[entry.ID] = true
	}
}
