// Package credentials provides the PostgreSQL-backed store for access
// credentials. Secrets are stored as bcrypt hashes only and rows are
// soft-deactivated, never deleted.
package credentials

import (
	"context"
	"fmt"

	"github.com/moodlens/moodlens/internal/common"
	"github.com/moodlens/moodlens/internal/dbx"
	"github.com/moodlens/moodlens/internal/server/models"
)

// PostgresRepository implements credential storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) ListActive(ctx context.Context) ([]*models.AccessCredential, error) {
	query := `
		SELECT id, secret_hash, label, active, rate_per_minute, expires_at, last_used_at, created_at
		FROM access_credentials
		WHERE active = true
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.AccessCredential
	for rows.Next() {
		var item models.AccessCredential
		if err := rows.Scan(
			&item.ID, &item.SecretHash, &item.Label, &item.Active,
			&item.RatePerMinute, &item.ExpiresAt, &item.LastUsedAt, &item.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) TouchLastUsed(ctx context.Context, id string) error {
	query := `UPDATE access_credentials SET last_used_at = now() WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Create(ctx context.Context, cred *models.AccessCredential) (*models.AccessCredential, error) {
	query := `
		INSERT INTO access_credentials (secret_hash, label, rate_per_minute, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		cred.SecretHash, cred.Label, cred.RatePerMinute, cred.ExpiresAt).
		Scan(&cred.ID, &cred.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	cred.Active = true
	return cred, nil
}

// Deactivate revokes a credential. The row stays for audit purposes.
func (r *PostgresRepository) Deactivate(ctx context.Context, id string) error {
	query := `UPDATE access_credentials SET active = false WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
