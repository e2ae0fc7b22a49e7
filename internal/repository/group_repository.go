package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ctlmanager/ctlmanager/internal/audit"
	"github.com/ctlmanager/ctlmanager/internal/database"
	"github.com/ctlmanager/ctlmanager/internal/model"
)

// GroupRepository handles service group persistence
type GroupRepository struct {
	db       *database.Postgres
	auditLog AuditSink
}

// NewGroupRepository creates a new GroupRepository. A nil audit sink
// disables audit capture.
func NewGroupRepository(db *database.Postgres, auditLog AuditSink) *GroupRepository {
	if auditLog == nil {
		auditLog = nopAuditSink{}
	}
	return &GroupRepository{db: db, auditLog: auditLog}
}

// List returns groups ordered by code
func (r *GroupRepository) List(ctx context.Context, limit int) ([]model.Group, error) {
	query := `
		SELECT group_code, group_name, service_name
		FROM groups
		ORDER BY group_code ASC
		LIMIT $1
	`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	defer rows.Close()

	var groups []model.Group
	for rows.Next() {
		var g model.Group
		if err := rows.Scan(&g.GroupCode, &g.GroupName, &g.ServiceName); err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate groups: %w", err)
	}
	return groups, nil
}

// GetByCode retrieves a group by its code
func (r *GroupRepository) GetByCode(ctx context.Context, code string) (*model.Group, error) {
	query := `SELECT group_code, group_name, service_name FROM groups WHERE group_code = $1`
	var g model.Group
	err := r.db.QueryRowContext(ctx, query, code).Scan(&g.GroupCode, &g.GroupName, &g.ServiceName)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	return &g, nil
}

// Add inserts a new group and its audit entry in one transaction
func (r *GroupRepository) Add(ctx context.Context, actor *string, group *model.Group) error {
	query := `
		INSERT INTO groups (group_code, group_name, service_name)
		VALUES ($1, $2, $3)
	`
	return r.db.WithinTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, query, group.GroupCode, group.GroupName, group.ServiceName)
		if err != nil {
			if isUniqueViolation(err) {
				return ErrDuplicate
			}
			return fmt.Errorf("failed to create group: %w", err)
		}

		entry := audit.NewInsertEntry(actor, model.AuditEntityGroups, group.GroupCode, group.Snapshot())
		return r.auditLog.InsertTx(ctx, tx, entry)
	})
}

// Update modifies a group's name and service name, auditing the diff in the
// same transaction. A no-op update writes nothing.
func (r *GroupRepository) Update(ctx context.Context, actor *string, group *model.Group) error {
	selectQuery := `
		SELECT group_name, service_name
		FROM groups
		WHERE group_code = $1
		FOR UPDATE
	`
	updateQuery := `
		UPDATE groups
		SET group_name = $1, service_name = $2
		WHERE group_code = $3
	`

	return r.db.WithinTx(ctx, func(tx *sql.Tx) error {
		existing := model.Group{GroupCode: group.GroupCode}
		err := tx.QueryRowContext(ctx, selectQuery, group.GroupCode).
			Scan(&existing.GroupName, &existing.ServiceName)
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to read group: %w", err)
		}

		entry := audit.NewUpdateEntry(actor, model.AuditEntityGroups, group.GroupCode, existing.Snapshot(), group.Snapshot())
		if entry == nil {
			return nil
		}

		if _, err := tx.ExecContext(ctx, updateQuery, group.GroupName, group.ServiceName, group.GroupCode); err != nil {
			return fmt.Errorf("failed to update group: %w", err)
		}

		return r.auditLog.InsertTx(ctx, tx, entry)
	})
}
