package services

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/moodlens/moodlens/internal/common"
	"github.com/moodlens/moodlens/internal/dbx"
	"github.com/moodlens/moodlens/internal/logging"
	"github.com/moodlens/moodlens/internal/server/classify"
	"github.com/moodlens/moodlens/internal/server/models"
	"github.com/moodlens/moodlens/internal/server/repositories/audit"
	"github.com/moodlens/moodlens/internal/server/repositories/credentials"
	"github.com/moodlens/moodlens/internal/server/repositories/records"
	"github.com/moodlens/moodlens/internal/server/repositories/users"
)

// --- shared fakes ---

type fakeUsersRepo struct {
	mu    sync.Mutex
	byID  map[string]*models.User
	byHsh map[string]*models.User
	next  int

	findErr error
}

func newFakeUsersRepo() *fakeUsersRepo {
	return &fakeUsersRepo{byID: map[string]*models.User{}, byHsh: map[string]*models.User{}}
}

func (f *fakeUsersRepo) FindByIDHash(ctx context.Context, idHash string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	u, ok := f.byHsh[idHash]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return u, nil
}

func (f *fakeUsersRepo) FindOrCreate(ctx context.Context, idHash string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.byHsh[idHash]; ok {
		u.LastSeenAt = time.Now()
		return u, nil
	}
	f.next++
	u := &models.User{
		ID:         "user-" + idHash[:8],
		IDHash:     idHash,
		CreatedAt:  time.Now(),
		LastSeenAt: time.Now(),
		Active:     true,
	}
	f.byID[u.ID] = u
	f.byHsh[idHash] = u
	return u, nil
}

func (f *fakeUsersRepo) TouchLastSeen(ctx context.Context, id string) error { return nil }
func (f *fakeUsersRepo) Deactivate(ctx context.Context, id string) error    { return nil }

type fakeRecordsRepo struct {
	mu      sync.Mutex
	saved   []*models.AnalysisRecord
	saveErr error
	queried []*models.AnalysisRecord
	qErr    error
}

func (f *fakeRecordsRepo) Save(ctx context.Context, record *models.AnalysisRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, record)
	return nil
}

func (f *fakeRecordsRepo) QueryByUserAndRange(ctx context.Context, userID string, start, end time.Time) ([]*models.AnalysisRecord, error) {
	if f.qErr != nil {
		return nil, f.qErr
	}
	return f.queried, nil
}

func (f *fakeRecordsRepo) savedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.saved)
}

type fakeCredentialsRepo struct {
	mu      sync.Mutex
	active  []*models.AccessCredential
	listErr error
	touched []string
}

func (f *fakeCredentialsRepo) ListActive(ctx context.Context) ([]*models.AccessCredential, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.active, nil
}

func (f *fakeCredentialsRepo) TouchLastUsed(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.touched = append(f.touched, id)
	return nil
}

func (f *fakeCredentialsRepo) touchedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.touched)
}

func (f *fakeCredentialsRepo) Create(ctx context.Context, cred *models.AccessCredential) (*models.AccessCredential, error) {
	return cred, nil
}
func (f *fakeCredentialsRepo) Deactivate(ctx context.Context, id string) error { return nil }

type fakeAuditRepo struct {
	mu      sync.Mutex
	entries []*models.AuditEntry
}

func (f *fakeAuditRepo) Append(ctx context.Context, entry *models.AuditEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeAuditRepo) last() *models.AuditEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.entries) == 0 {
		return nil
	}
	return f.entries[len(f.entries)-1]
}

type fakeRepoManager struct {
	u *fakeUsersRepo
	r *fakeRecordsRepo
	c *fakeCredentialsRepo
	a *fakeAuditRepo
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{
		u: newFakeUsersRepo(),
		r: &fakeRecordsRepo{},
		c: &fakeCredentialsRepo{},
		a: &fakeAuditRepo{},
	}
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error      { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) users.Repository               { return m.u }
func (m *fakeRepoManager) Records(db dbx.DBTX) records.Repository           { return m.r }
func (m *fakeRepoManager) Credentials(db dbx.DBTX) credentials.Repository   { return m.c }
func (m *fakeRepoManager) Audit(db dbx.DBTX) audit.Repository               { return m.a }

type fakeClassifier struct {
	mu    sync.Mutex
	label string
	conf  float64
	err   error
	calls int
}

func (f *fakeClassifier) Classify(ctx context.Context, text string) (classify.Result, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return classify.Result{}, err
	}
	if f.err != nil {
		return classify.Result{}, f.err
	}
	return classify.Result{Label: f.label, Confidence: f.conf}, nil
}

func (f *fakeClassifier) ModelTag() string { return "fake-model" }

func (f *fakeClassifier) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// failingCache errors on every operation, standing in for a cache outage.
type failingCache struct{}

func (failingCache) Get(ctx context.Context, key string) ([]byte, error) {
	return nil, errors.New("cache down")
}
func (failingCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return errors.New("cache down")
}
func (failingCache) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	return 0, errors.New("cache down")
}
func (failingCache) TTL(ctx context.Context, key string) (time.Duration, error) {
	return 0, errors.New("cache down")
}

func discardLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}
