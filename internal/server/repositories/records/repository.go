package records

import (
	"context"
	"time"

	"github.com/moodlens/moodlens/internal/server/models"
)

type Repository interface {
	// Save persists one immutable analysis record. Records are written
	// exactly once per cache-miss analysis and never updated.
	Save(ctx context.Context, record *models.AnalysisRecord) error
	// QueryByUserAndRange returns the user's records with
	// start <= created_at < end, oldest first.
	QueryByUserAndRange(ctx context.Context, userID string, start, end time.Time) ([]*models.AnalysisRecord, error)
}
