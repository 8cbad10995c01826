// Package records provides the PostgreSQL-backed store for analysis
// records. Text is stored encrypted; aggregation queries read only label,
// confidence and timestamp columns plus the ciphertext they never decrypt.
package records

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/moodlens/moodlens/internal/dbx"
	"github.com/moodlens/moodlens/internal/server/models"
)

// PostgresRepository implements record storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Save(ctx context.Context, record *models.AnalysisRecord) error {
	metadata, err := json.Marshal(record.Metadata)
	if err != nil {
		return fmt.Errorf("metadata encode error: %w", err)
	}

	query := `
		INSERT INTO analysis_records
			(id, user_id, ciphertext, nonce, emotion, sentiment, confidence, model_tag, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err = r.db.ExecContext(ctx, query,
		record.ID, record.UserID, record.Ciphertext, record.Nonce,
		record.Emotion, record.Sentiment, record.Confidence, record.ModelTag,
		metadata, record.CreatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) QueryByUserAndRange(ctx context.Context, userID string, start, end time.Time) ([]*models.AnalysisRecord, error) {
	query := `
		SELECT id, user_id, ciphertext, nonce, emotion, sentiment, confidence, model_tag, metadata, created_at
		FROM analysis_records
		WHERE user_id = $1 AND created_at >= $2 AND created_at < $3
		ORDER BY created_at
	`
	rows, err := r.db.QueryContext(ctx, query, userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.AnalysisRecord
	for rows.Next() {
		var item models.AnalysisRecord
		var metadata []byte
		if err := rows.Scan(
			&item.ID, &item.UserID, &item.Ciphertext, &item.Nonce,
			&item.Emotion, &item.Sentiment, &item.Confidence, &item.ModelTag,
			&metadata, &item.CreatedAt,
		); err != nil {
			return nil, err
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &item.Metadata); err != nil {
				return nil, fmt.Errorf("metadata decode error: %w", err)
			}
		}
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
