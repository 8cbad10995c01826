package audit

import (
	"context"

	"github.com/moodlens/moodlens/internal/server/models"
)

// Repository is the append-only audit sink. Entries are immutable once
// written.
type Repository interface {
	Append(ctx context.Context, entry *models.AuditEntry) error
}
