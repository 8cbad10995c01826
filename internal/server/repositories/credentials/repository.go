package credentials

import (
	"context"

	"github.com/moodlens/moodlens/internal/server/models"
)

type Repository interface {
	// ListActive returns every active credential, including ones whose
	// expiry has passed; expiry is checked by the caller at verification
	// time so a row flip is never needed for a credential to die.
	ListActive(ctx context.Context) ([]*models.AccessCredential, error)
	// TouchLastUsed is best-effort bookkeeping; failures must not fail the
	// request that triggered it.
	TouchLastUsed(ctx context.Context, id string) error
	Create(ctx context.Context, cred *models.AccessCredential) (*models.AccessCredential, error)
	Deactivate(ctx context.Context, id string) error
}
