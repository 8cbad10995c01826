package users

import (
	"context"

	"github.com/moodlens/moodlens/internal/server/models"
)

type Repository interface {
	FindByIDHash(ctx context.Context, idHash string) (*models.User, error)
	// FindOrCreate returns the user for idHash, creating it on first
	// contact. Existing users get their last-seen timestamp bumped.
	FindOrCreate(ctx context.Context, idHash string) (*models.User, error)
	TouchLastSeen(ctx context.Context, id string) error
	Deactivate(ctx context.Context, id string) error
}
