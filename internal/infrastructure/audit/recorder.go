package audit

import (
	"context"
	"log/slog"

	"kyc-verification/internal/core/domain"
	"kyc-verification/internal/core/ports"
	"kyc-verification/internal/observability/metrics"
)

// Recorder appends to the log, mirrors each entry to the structured
// logger, and fans it out to an optional queue. Everything past the
// in-memory append is best-effort: a recorder failure never reaches the
// verification flow.
type Recorder struct {
	log     ports.AuditLog
	queue   ports.AuditQueue
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewRecorder(log ports.AuditLog, queue ports.AuditQueue, logger *slog.Logger, m *metrics.Metrics) *Recorder {
	return &Recorder{log: log, queue: queue, logger: logger, metrics: m}
}

func (r *Recorder) Append(ctx context.Context, step domain.AuditStep, status domain.AuditStatus, details map[string]any) (domain.AuditEntry, error) {
	entry, err := r.log.Append(ctx, step, status, details)
	if err != nil {
		if r.logger != nil {
			r.logger.Warn("audit_append_failed", "step", step, "status", status, "error", err)
		}
		return domain.AuditEntry{}, err
	}

	if r.logger != nil {
		r.logger.InfoContext(ctx, "audit_entry",
			"entry_id", entry.ID,
			"step", entry.Step,
			"status", entry.Status,
			"log_type", "audit",
		)
	}
	if r.metrics != nil {
		r.metrics.ObserveAuditEntry(string(entry.Step), string(entry.Status))
	}
	if r.queue != nil {
		if err := r.queue.PublishAuditEntry(ctx, entry); err != nil && r.logger != nil {
			// Fan-out is diagnostic, not transactional.
			r.logger.Warn("audit_publish_failed", "entry_id", entry.ID, "error", err)
		}
	}
	return entry, nil
}

func (r *Recorder) List(ctx context.Context) ([]domain.AuditEntry, error) {
	return r.log.List(ctx)
}

// Record is the fire-and-forget form used inside the capture flow, where
// audit logging must never block or fail the transition.
func (r *Recorder) Record(ctx context.Context, step domain.AuditStep, status domain.AuditStatus, details map[string]any) {
	_, _ = r.Append(ctx, step, status, details)
}
