package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"kyc-verification/internal/core/domain"
)

// AuditRepository mirrors audit entries into Postgres for operators who
// want a durable trail. The in-process log remains the log of record.
type AuditRepository struct {
	db *sql.DB
}

func NewAuditRepository(db *sql.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *AuditRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026090101)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS audit_entries (
	id TEXT PRIMARY KEY,
	created_at TIMESTAMPTZ NOT NULL,
	step TEXT NOT NULL,
	status TEXT NOT NULL,
	details JSONB NOT NULL DEFAULT '{}'::jsonb,
	seq BIGINT GENERATED ALWAYS AS IDENTITY
);

CREATE INDEX IF NOT EXISTS idx_audit_entries_seq ON audit_entries(seq);
CREATE INDEX IF NOT EXISTS idx_audit_entries_step ON audit_entries(step);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

// Insert stores one entry. Replayed entries (same id) are ignored so the
// at-least-once queue delivery stays idempotent.
func (r *AuditRepository) Insert(ctx context.Context, entry domain.AuditEntry) error {
	details, err := json.Marshal(entry.Details)
	if err != nil {
		return fmt.Errorf("marshal details: %w", err)
	}

	const query = `
INSERT INTO audit_entries (id, created_at, step, status, details)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query,
		entry.ID, entry.Timestamp, string(entry.Step), string(entry.Status), details,
	); err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// List returns all mirrored entries in arrival order.
func (r *AuditRepository) List(ctx context.Context) ([]domain.AuditEntry, error) {
	const query = `
SELECT id, created_at, step, status, details
FROM audit_entries
ORDER BY seq ASC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.AuditEntry
	for rows.Next() {
		var (
			entry   domain.AuditEntry
			step    string
			status  string
			details []byte
		)
		if err := rows.Scan(&entry.ID, &entry.Timestamp, &step, &status, &details); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		entry.Step = domain.AuditStep(step)
		entry.Status = domain.AuditStatus(status)
		if len(details) > 0 {
			if err := json.Unmarshal(details, &entry.Details); err != nil {
				return nil, fmt.Errorf("unmarshal details: %w", err)
			}
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", err)
	}
	return entries, nil
}
