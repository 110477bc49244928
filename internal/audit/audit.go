// Package audit records the terminal outcome of every invocation to
// Postgres for operators. It never gates dispatch: a write failure is
// logged by the caller and otherwise ignored.
package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"modelmesh/internal/protocol"
)

// Log is a Postgres-backed coordinator.AuditLog.
type Log struct {
	pool *pgxpool.Pool
}

// New connects to dsn and ensures the audit table exists.
func New(ctx context.Context, dsn string) (*Log, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("audit: connect: %w", err)
	}
	l := &Log{pool: pool}
	if err := l.initSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return l, nil
}

func (l *Log) initSchema(ctx context.Context) error {
	_, err := l.pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS invocation_audit (
  task_id TEXT PRIMARY KEY,
  kind TEXT NOT NULL,
  name TEXT NOT NULL,
  outcome TEXT NOT NULL,
  detail TEXT NOT NULL DEFAULT '',
  started_at TIMESTAMPTZ NOT NULL,
  finished_at TIMESTAMPTZ NOT NULL
);
`)
	if err != nil {
		return fmt.Errorf("audit: init schema: %w", err)
	}
	return nil
}

// Record inserts one row per completed/failed/timed-out invocation.
// Duplicate task_ids (e.g. a retried terminal delivery) are ignored rather
// than erroring, since the pending table's at-most-once terminal delivery
// can still race a coordinator restart.
func (l *Log) Record(ctx context.Context, req protocol.InvokeRequest, kind, name string, resp protocol.InvokeResponse) error {
	outcome, detail := outcomeOf(resp)
	now := time.Now()
	_, err := l.pool.Exec(ctx, `
INSERT INTO invocation_audit (task_id, kind, name, outcome, detail, started_at, finished_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (task_id) DO NOTHING
`, req.TaskID, kind, name, outcome, detail, now, now)
	if err != nil {
		return fmt.Errorf("audit: record %s: %w", req.TaskID, err)
	}
	return nil
}

func outcomeOf(resp protocol.InvokeResponse) (outcome, detail string) {
	switch resp.Kind {
	case protocol.ResponseFinish:
		return "finished", ""
	case protocol.ResponseFailure:
		if resp.Error != nil {
			return "failed", resp.Error.Message
		}
		return "failed", ""
	default:
		return "unknown", ""
	}
}

// Close releases the connection pool.
func (l *Log) Close() {
	l.pool.Close()
}
