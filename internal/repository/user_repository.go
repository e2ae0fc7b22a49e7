package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ctlmanager/ctlmanager/internal/audit"
	"github.com/ctlmanager/ctlmanager/internal/config"
	"github.com/ctlmanager/ctlmanager/internal/database"
	"github.com/ctlmanager/ctlmanager/internal/model"
)

// UserRepository handles credential record persistence. Table and column
// names come from the schema mapping configuration so the tool can run
// against a pre-existing users table.
type UserRepository struct {
	db       *database.Postgres
	auditLog AuditSink
	schema   config.SchemaConfig
	tags     model.AlgorithmTags
}

// NewUserRepository creates a new UserRepository. A nil audit sink disables
// audit capture. tags carries the deployment's algorithm identifiers so
// rows tagged with non-canonical strings still resolve.
func NewUserRepository(db *database.Postgres, auditLog AuditSink, schema config.SchemaConfig, tags model.AlgorithmTags) *UserRepository {
	if auditLog == nil {
		auditLog = nopAuditSink{}
	}
	return &UserRepository{db: db, auditLog: auditLog, schema: schema, tags: tags}
}

// GetByUsername retrieves a credential record by username. The stored
// algorithm tag is resolved into a HashAlgorithm at scan time.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	query := fmt.Sprintf(`
		SELECT %s, %s, %s, %s, %s, %s, %s, %s
		FROM %s
		WHERE %s = $1
	`,
		r.schema.ColUsername, r.schema.ColDisplayName, r.schema.ColEmail,
		r.schema.ColPassword, r.schema.ColAlgo, r.schema.ColRole,
		r.schema.ColActive, r.schema.ColMustChange,
		r.schema.UsersTable, r.schema.ColUsername,
	)
	return scanUser(r.db.QueryRowContext(ctx, query, username), r.tags)
}

// ExistsByUsername checks if a user with the given username exists
func (r *UserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	query := fmt.Sprintf(`SELECT EXISTS(SELECT 1 FROM %s WHERE %s = $1)`,
		r.schema.UsersTable, r.schema.ColUsername)
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, username).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check username existence: %w", err)
	}
	return exists, nil
}

// Create inserts a new credential record and its audit entry in one
// transaction. A unique-constraint violation maps to ErrDuplicate.
func (r *UserRepository) Create(ctx context.Context, actor *string, user *model.User) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s, %s, %s, %s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		r.schema.UsersTable,
		r.schema.ColUsername, r.schema.ColDisplayName, r.schema.ColEmail,
		r.schema.ColPassword, r.schema.ColAlgo, r.schema.ColRole,
		r.schema.ColActive, r.schema.ColMustChange,
	)

	return r.db.WithinTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, query,
			user.Username,
			user.DisplayName,
			user.Email,
			user.PasswordHash,
			string(user.PasswordAlgo),
			string(user.Role),
			user.IsActive,
			user.MustChangePassword,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return ErrDuplicate
			}
			return fmt.Errorf("failed to create user: %w", err)
		}

		entry := audit.NewInsertEntry(actor, model.AuditEntityUsers, user.Username, user.Snapshot())
		return r.auditLog.InsertTx(ctx, tx, entry)
	})
}

// UpdatePassword atomically replaces the password hash, its algorithm tag
// and the must-change flag. Password writes are not audit-tracked: their
// only observable change is hash material, which never enters a snapshot.
func (r *UserRepository) UpdatePassword(ctx context.Context, username, hash string, algo model.HashAlgorithm, mustChange bool) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET %s = $1, %s = $2, %s = $3
		WHERE %s = $4
	`,
		r.schema.UsersTable,
		r.schema.ColPassword, r.schema.ColAlgo, r.schema.ColMustChange,
		r.schema.ColUsername,
	)
	result, err := r.db.ExecContext(ctx, query, hash, string(algo), mustChange, username)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateProfile updates display name, email, role and active flag, leaving
// password fields untouched. The prior row is read back in the same
// transaction for the audit diff; an update changing nothing observable
// writes no audit entry.
func (r *UserRepository) UpdateProfile(ctx context.Context, actor *string, username, displayName string, email *string, role model.Role, isActive bool) error {
	selectQuery := fmt.Sprintf(`
		SELECT %s, %s, %s, %s, %s, %s, %s, %s
		FROM %s
		WHERE %s = $1
		FOR UPDATE
	`,
		r.schema.ColUsername, r.schema.ColDisplayName, r.schema.ColEmail,
		r.schema.ColPassword, r.schema.ColAlgo, r.schema.ColRole,
		r.schema.ColActive, r.schema.ColMustChange,
		r.schema.UsersTable, r.schema.ColUsername,
	)
	updateQuery := fmt.Sprintf(`
		UPDATE %s
		SET %s = $1, %s = $2, %s = $3, %s = $4
		WHERE %s = $5
	`,
		r.schema.UsersTable,
		r.schema.ColDisplayName, r.schema.ColEmail, r.schema.ColRole, r.schema.ColActive,
		r.schema.ColUsername,
	)

	return r.db.WithinTx(ctx, func(tx *sql.Tx) error {
		existing, err := scanUser(tx.QueryRowContext(ctx, selectQuery, username), r.tags)
		if err != nil {
			return err
		}

		updated := *existing
		updated.DisplayName = displayName
		updated.Email = email
		updated.Role = role
		updated.IsActive = isActive

		entry := audit.NewUpdateEntry(actor, model.AuditEntityUsers, username, existing.Snapshot(), updated.Snapshot())
		if entry == nil {
			// Nothing observable changed
			return nil
		}

		if _, err := tx.ExecContext(ctx, updateQuery, displayName, email, string(role), isActive, username); err != nil {
			return fmt.Errorf("failed to update user: %w", err)
		}

		return r.auditLog.InsertTx(ctx, tx, entry)
	})
}

// List returns credential records ordered by username
func (r *UserRepository) List(ctx context.Context, limit int) ([]model.User, error) {
	query := fmt.Sprintf(`
		SELECT %s, %s, %s, %s, %s, %s, %s, %s
		FROM %s
		ORDER BY %s ASC
		LIMIT $1
	`,
		r.schema.ColUsername, r.schema.ColDisplayName, r.schema.ColEmail,
		r.schema.ColPassword, r.schema.ColAlgo, r.schema.ColRole,
		r.schema.ColActive, r.schema.ColMustChange,
		r.schema.UsersTable, r.schema.ColUsername,
	)
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUserRow(rows, r.tags)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}
	return users, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row *sql.Row, tags model.AlgorithmTags) (*model.User, error) {
	u, err := scanUserFrom(row, tags)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return u, err
}

func scanUserRow(rows *sql.Rows, tags model.AlgorithmTags) (*model.User, error) {
	return scanUserFrom(rows, tags)
}

func scanUserFrom(row rowScanner, tags model.AlgorithmTags) (*model.User, error) {
	var (
		u       model.User
		email   sql.NullString
		hash    sql.NullString
		algoTag sql.NullString
		role    sql.NullString
	)
	err := row.Scan(
		&u.Username,
		&u.DisplayName,
		&email,
		&hash,
		&algoTag,
		&role,
		&u.IsActive,
		&u.MustChangePassword,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	if email.Valid {
		u.Email = &email.String
	}
	u.PasswordHash = hash.String
	u.PasswordAlgo = tags.Resolve(algoTag.String, hash.String)
	u.Role, _ = model.ParseRole(role.String)
	return &u, nil
}
