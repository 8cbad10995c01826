// Package audit provides the append-only PostgreSQL audit log.
package audit

import (
	"context"
	"fmt"

	"github.com/moodlens/moodlens/internal/dbx"
	"github.com/moodlens/moodlens/internal/server/models"
)

// PostgresRepository implements the audit sink over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Append(ctx context.Context, entry *models.AuditEntry) error {
	query := `
		INSERT INTO audit_log (id, user_id, credential_id, action, resource, source_addr, status_code, created_at)
		VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, query,
		entry.ID, entry.UserID, entry.CredentialID, entry.Action,
		entry.Resource, entry.SourceAddr, entry.StatusCode, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
