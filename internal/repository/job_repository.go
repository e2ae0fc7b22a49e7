package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/ctlmanager/ctlmanager/internal/audit"
	"github.com/ctlmanager/ctlmanager/internal/database"
	"github.com/ctlmanager/ctlmanager/internal/model"
)

// JobRepository handles job persistence
type JobRepository struct {
	db       *database.Postgres
	auditLog AuditSink
}

// NewJobRepository creates a new JobRepository. A nil audit sink disables
// audit capture.
func NewJobRepository(db *database.Postgres, auditLog AuditSink) *JobRepository {
	if auditLog == nil {
		auditLog = nopAuditSink{}
	}
	return &JobRepository{db: db, auditLog: auditLog}
}

// List returns jobs joined with their group, newest first. The LEFT JOIN
// keeps jobs visible even when their group no longer exists. When search is
// non-empty it filters across job name, group code, group name and service
// name.
func (r *JobRepository) List(ctx context.Context, search string, limit int) ([]model.JobInfo, error) {
	query := `
		SELECT j.id, j.type, j.job_name, j.group_code,
		       COALESCE(g.group_name, '') AS group_name,
		       COALESCE(g.service_name, '') AS service_name,
		       j.severity, j.created_at
		FROM jobs AS j
		LEFT JOIN groups AS g ON g.group_code = j.group_code
	`
	var args []any
	if search != "" {
		query += `
		WHERE j.job_name ILIKE $1
		   OR j.group_code ILIKE $1
		   OR g.group_name ILIKE $1
		   OR g.service_name ILIKE $1
		ORDER BY j.created_at DESC
		LIMIT $2`
		args = []any{"%" + search + "%", limit}
	} else {
		query += `
		ORDER BY j.created_at DESC
		LIMIT $1`
		args = []any{limit}
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []model.JobInfo
	for rows.Next() {
		var j model.JobInfo
		err := rows.Scan(&j.ID, &j.Type, &j.JobName, &j.GroupCode,
			&j.GroupName, &j.ServiceName, &j.Severity, &j.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate jobs: %w", err)
	}
	return jobs, nil
}

// Add inserts a new job and its audit entry in one transaction, returning
// the generated id.
func (r *JobRepository) Add(ctx context.Context, actor *string, job *model.Job) (int64, error) {
	query := `
		INSERT INTO jobs (type, job_name, group_code, severity)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	var id int64
	err := r.db.WithinTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, query, job.Type, job.JobName, job.GroupCode, job.Severity).
			Scan(&id, &job.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to create job: %w", err)
		}
		job.ID = id

		entry := audit.NewInsertEntry(actor, model.AuditEntityJobs, strconv.FormatInt(id, 10), job.Snapshot())
		return r.auditLog.InsertTx(ctx, tx, entry)
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// Update modifies a job's fields, reading the prior row back in the same
// transaction for the audit diff. An update changing nothing observable
// writes neither the row nor an audit entry.
func (r *JobRepository) Update(ctx context.Context, actor *string, job *model.Job) error {
	selectQuery := `
		SELECT type, job_name, group_code, severity
		FROM jobs
		WHERE id = $1
		FOR UPDATE
	`
	updateQuery := `
		UPDATE jobs
		SET type = $1, job_name = $2, group_code = $3, severity = $4
		WHERE id = $5
	`

	return r.db.WithinTx(ctx, func(tx *sql.Tx) error {
		var existing model.Job
		existing.ID = job.ID
		err := tx.QueryRowContext(ctx, selectQuery, job.ID).
			Scan(&existing.Type, &existing.JobName, &existing.GroupCode, &existing.Severity)
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to read job: %w", err)
		}

		entityID := strconv.FormatInt(job.ID, 10)
		entry := audit.NewUpdateEntry(actor, model.AuditEntityJobs, entityID, existing.Snapshot(), job.Snapshot())
		if entry == nil {
			return nil
		}

		if _, err := tx.ExecContext(ctx, updateQuery, job.Type, job.JobName, job.GroupCode, job.Severity, job.ID); err != nil {
			return fmt.Errorf("failed to update job: %w", err)
		}

		return r.auditLog.InsertTx(ctx, tx, entry)
	})
}
