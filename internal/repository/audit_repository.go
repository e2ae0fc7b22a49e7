package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/ctlmanager/ctlmanager/internal/database"
	"github.com/ctlmanager/ctlmanager/internal/model"
)

// AuditSink receives audit entries inside the caller's transaction, so the
// primary write and its audit record commit or roll back together.
type AuditSink interface {
	InsertTx(ctx context.Context, tx *sql.Tx, entry *model.AuditEntry) error
}

// nopAuditSink discards entries. Repositories constructed without an audit
// log fall back to it.
type nopAuditSink struct{}

func (nopAuditSink) InsertTx(ctx context.Context, tx *sql.Tx, entry *model.AuditEntry) error {
	return nil
}

// AuditRepository handles audit log persistence
type AuditRepository struct {
	db *database.Postgres
}

// NewAuditRepository creates a new AuditRepository
func NewAuditRepository(db *database.Postgres) *AuditRepository {
	return &AuditRepository{db: db}
}

// InsertTx appends an audit entry within an open transaction
func (r *AuditRepository) InsertTx(ctx context.Context, tx *sql.Tx, entry *model.AuditEntry) error {
	oldJSON, err := marshalSnapshot(entry.OldValues)
	if err != nil {
		return fmt.Errorf("failed to encode old values: %w", err)
	}
	newJSON, err := marshalSnapshot(entry.NewValues)
	if err != nil {
		return fmt.Errorf("failed to encode new values: %w", err)
	}

	query := `
		INSERT INTO audit_log (id, actor_username, action, entity_name, entity_id,
		    summary, old_values, new_values, source_host, source_ip, correlation_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err = tx.ExecContext(ctx, query,
		entry.ID,
		entry.ActorUsername,
		entry.Action,
		entry.EntityName,
		entry.EntityID,
		entry.Summary,
		oldJSON,
		newJSON,
		entry.SourceHost,
		entry.SourceIP,
		entry.CorrelationID,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert audit entry: %w", err)
	}
	return nil
}

// List returns the most recent audit entries, newest first
func (r *AuditRepository) List(ctx context.Context, limit int) ([]model.AuditEntry, error) {
	query := `
		SELECT id, actor_username, action, entity_name, entity_id,
		       summary, old_values, new_values, source_host, source_ip, correlation_id, created_at
		FROM audit_log
		ORDER BY created_at DESC
		LIMIT $1
	`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []model.AuditEntry
	for rows.Next() {
		var e model.AuditEntry
		var oldJSON, newJSON []byte
		err := rows.Scan(
			&e.ID,
			&e.ActorUsername,
			&e.Action,
			&e.EntityName,
			&e.EntityID,
			&e.Summary,
			&oldJSON,
			&newJSON,
			&e.SourceHost,
			&e.SourceIP,
			&e.CorrelationID,
			&e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		if e.OldValues, err = unmarshalSnapshot(oldJSON); err != nil {
			return nil, fmt.Errorf("failed to decode old values: %w", err)
		}
		if e.NewValues, err = unmarshalSnapshot(newJSON); err != nil {
			return nil, fmt.Errorf("failed to decode new values: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate audit entries: %w", err)
	}
	return entries, nil
}

func marshalSnapshot(values map[string]any) ([]byte, error) {
	if values == nil {
		return nil, nil
	}
	return json.Marshal(values)
}

func unmarshalSnapshot(data []byte) (map[string]any, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var values map[string]any
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, err
	}
	return values, nil
}
