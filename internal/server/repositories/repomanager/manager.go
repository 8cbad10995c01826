package repomanager

import (
	"context"
	"database/sql"

	"github.com/moodlens/moodlens/internal/dbx"
	"github.com/moodlens/moodlens/internal/server/repositories/audit"
	"github.com/moodlens/moodlens/internal/server/repositories/credentials"
	"github.com/moodlens/moodlens/internal/server/repositories/records"
	"github.com/moodlens/moodlens/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Records(db dbx.DBTX) records.Repository
	Credentials(db dbx.DBTX) credentials.Repository
	Audit(db dbx.DBTX) audit.Repository
}
