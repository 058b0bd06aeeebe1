// Package ledger records render job submissions and outcomes in PostgreSQL.
// Writes are best-effort audit rows: a failed insert is logged and never
// fails the job, and the pipeline never reads the ledger back — jobs are not
// resumable across process restarts.
package ledger

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"clipforge/internal/pkg/logger"
)

type Ledger struct {
	pool *pgxpool.Pool
	log  *logger.Logger
}

// New creates a ledger. A nil pool yields a no-op ledger.
func New(pool *pgxpool.Pool, log *logger.Logger) *Ledger {
	if log == nil {
		log = logger.NewDefault()
	}
	return &Ledger{pool: pool, log: log.WithComponent("ledger")}
}

// Init creates the audit table if it does not exist.
func (l *Ledger) Init(ctx context.Context) error {
	if l == nil || l.pool == nil {
		return nil
	}
	_, err := l.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS render_jobs (
			id           TEXT PRIMARY KEY,
			output_name  TEXT,
			source_bytes BIGINT,
			status       TEXT NOT NULL,
			output_path  TEXT,
			error_text   TEXT,
			received_at  TIMESTAMPTZ NOT NULL,
			finished_at  TIMESTAMPTZ
		)`)
	return err
}

func (l *Ledger) JobReceived(ctx context.Context, jobID, outputName string, sourceBytes int) {
	if l == nil || l.pool == nil {
		return
	}
	_, err := l.pool.Exec(ctx,
		`INSERT INTO render_jobs (id, output_name, source_bytes, status, received_at)
		 VALUES ($1,$2,$3,'RUNNING',$4)`,
		jobID, outputName, sourceBytes, time.Now().UTC(),
	)
	if err != nil {
		l.log.Warn("ledger insert failed", "job_id", jobID, "error", err.Error())
	}
}

func (l *Ledger) JobDone(ctx context.Context, jobID, outputPath string) {
	if l == nil || l.pool == nil {
		return
	}
	_, err := l.pool.Exec(ctx,
		`UPDATE render_jobs SET status='DONE', output_path=$2, finished_at=$3 WHERE id=$1`,
		jobID, outputPath, time.Now().UTC(),
	)
	if err != nil {
		l.log.Warn("ledger update failed", "job_id", jobID, "error", err.Error())
	}
}

func (l *Ledger) JobFailed(ctx context.Context, jobID string, cause error) {
	if l == nil || l.pool == nil {
		return
	}
	msg := ""
	if cause != nil {
		msg = cause.Error()
		if len(msg) > 2000 {
			msg = msg[:2000]
		}
	}
	_, err := l.pool.Exec(ctx,
		`UPDATE render_jobs SET status='FAILED', error_text=$2, finished_at=$3 WHERE id=$1`,
		jobID, msg, time.Now().UTC(),
	)
	if err != nil {
		l.log.Warn("ledger update failed", "job_id", jobID, "error", err.Error())
	}
}
