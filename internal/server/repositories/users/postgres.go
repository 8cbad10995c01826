// Package users provides the PostgreSQL-backed repository for end users,
// keyed by the one-way hash of their platform identity.
package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/moodlens/moodlens/internal/common"
	"github.com/moodlens/moodlens/internal/dbx"
	"github.com/moodlens/moodlens/internal/server/models"
)

// PostgresRepository implements user storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) FindByIDHash(ctx context.Context, idHash string) (*models.User, error) {
	query := `
		SELECT id, id_hash, created_at, last_seen_at, active FROM users
		WHERE id_hash = $1
	`
	user := &models.User{}
	err := r.db.QueryRowContext(ctx, query, idHash).
		Scan(&user.ID, &user.IDHash, &user.CreatedAt, &user.LastSeenAt, &user.Active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}

// FindOrCreate inserts the user on first contact. The upsert keeps
// concurrent first-contact requests from failing on the id_hash unique
// constraint; the loser of the race just bumps last_seen_at.
func (r *PostgresRepository) FindOrCreate(ctx context.Context, idHash string) (*models.User, error) {
	query := `
		INSERT INTO users (id_hash)
		VALUES ($1)
		ON CONFLICT (id_hash)
		DO UPDATE SET last_seen_at = now()
		RETURNING id, id_hash, created_at, last_seen_at, active
	`
	user := &models.User{}
	err := r.db.QueryRowContext(ctx, query, idHash).
		Scan(&user.ID, &user.IDHash, &user.CreatedAt, &user.LastSeenAt, &user.Active)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}

func (r *PostgresRepository) TouchLastSeen(ctx context.Context, id string) error {
	query := `UPDATE users SET last_seen_at = now() WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// Deactivate soft-deletes a user. Rows are never physically removed.
func (r *PostgresRepository) Deactivate(ctx context.Context, id string) error {
	query := `UPDATE users SET active = false WHERE id = $1`
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
