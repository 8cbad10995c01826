package services

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/moodlens/moodlens/internal/common"
	"github.com/moodlens/moodlens/internal/logging"
	"github.com/moodlens/moodlens/internal/server/cache"
	"github.com/moodlens/moodlens/internal/server/models"
	"github.com/moodlens/moodlens/internal/server/repositories/repomanager"
	"golang.org/x/crypto/bcrypt"
)

// rateWindow is the fixed rate-limit bucket size.
const rateWindow = time.Minute

// touchTimeout bounds the fire-and-forget last-used update.
const touchTimeout = 5 * time.Second

// AccessService is the gate in front of every inbound request: it verifies
// the presented secret against the stored credential hashes, enforces the
// per-credential rate limit, and appends an audit entry for every outcome.
//
// Verification cost is O(active credentials) bcrypt comparisons. That is
// the intended design for the small credential sets the provisioning tool
// creates; no index over secrets exists or should be invented.
type AccessService struct {
	db     *sql.DB
	repos  repomanager.RepositoryManager
	cache  cache.Cache
	logger logging.Logger

	// now is a seam for clock-sensitive tests.
	now func() time.Time
}

// NewAccessService constructs an AccessService from its collaborators.
func NewAccessService(db *sql.DB, repos repomanager.RepositoryManager, c cache.Cache, logger logging.Logger) *AccessService {
	return &AccessService{
		db:     db,
		repos:  repos,
		cache:  c,
		logger: logger.With("module", "access"),
		now:    time.Now,
	}
}

// Authorize validates the presented secret and enforces the matched
// credential's rate limit. Every authentication failure returns the same
// common.ErrorUnauthorized: unknown, expired and wrong-secret credentials
// are indistinguishable to the caller. Exceeding the rate limit returns a
// *common.RateLimitError carrying the retry hint.
func (s *AccessService) Authorize(ctx context.Context, presentedSecret, sourceAddr, resource string) (*models.AccessCredential, error) {
	if presentedSecret == "" {
		s.audit(ctx, "", sourceAddr, resource, http.StatusUnauthorized)
		return nil, common.ErrorUnauthorized
	}

	creds, err := s.repos.Credentials(s.db).ListActive(ctx)
	if err != nil {
		s.logger.Error(ctx, "credential listing failed", "error", err.Error())
		return nil, common.ErrorInternal
	}

	now := s.now()
	var matched *models.AccessCredential
	for _, cred := range creds {
		if cred.Expired(now) {
			continue
		}
		if bcrypt.CompareHashAndPassword([]byte(cred.SecretHash), []byte(presentedSecret)) == nil {
			matched = cred
			break
		}
	}
	if matched == nil {
		s.audit(ctx, "", sourceAddr, resource, http.StatusUnauthorized)
		return nil, common.ErrorUnauthorized
	}

	if err := s.checkRateLimit(ctx, matched, now); err != nil {
		s.audit(ctx, matched.ID, sourceAddr, resource, http.StatusTooManyRequests)
		return nil, err
	}

	go s.touchLastUsed(matched.ID)

	s.audit(ctx, matched.ID, sourceAddr, resource, http.StatusOK)
	return matched, nil
}

// checkRateLimit increments the credential's counter for the current
// 60-second bucket. The increment happens before the comparison, so a
// rejected request still counts against the window ("fail closed" past the
// limit). A counter-store outage fails open: the cache is not a
// correctness dependency.
func (s *AccessService) checkRateLimit(ctx context.Context, cred *models.AccessCredential, now time.Time) error {
	key := fmt.Sprintf("rate:%s:%d", cred.ID, now.Unix()/60)
	count, err := s.cache.Incr(ctx, key, rateWindow)
	if err != nil {
		s.logger.Warn(ctx, "rate counter unavailable, allowing request", "error", err.Error())
		return nil
	}
	if count > int64(cred.RatePerMinute) {
		return &common.RateLimitError{
			Limit:         cred.RatePerMinute,
			RetryAfterSec: int(60 - now.Unix()%60),
		}
	}
	return nil
}

// touchLastUsed updates the credential's last-used timestamp on a
// background context. Failure only gets logged; the request that
// triggered it has already been answered.
func (s *AccessService) touchLastUsed(credID string) {
	ctx, cancel := context.WithTimeout(context.Background(), touchTimeout)
	defer cancel()
	if err := s.repos.Credentials(s.db).TouchLastUsed(ctx, credID); err != nil {
		s.logger.Warn(ctx, "last-used update failed", "credential_id", credID, "error", err.Error())
	}
}

// audit appends an auth-outcome entry. Best-effort: the gate never fails a
// request because the audit write did.
func (s *AccessService) audit(ctx context.Context, credID, sourceAddr, resource string, status int) {
	entry := &models.AuditEntry{
		ID:           uuid.NewString(),
		CredentialID: credID,
		Action:       "authorize",
		Resource:     resource,
		SourceAddr:   sourceAddr,
		StatusCode:   status,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.repos.Audit(s.db).Append(ctx, entry); err != nil {
		s.logger.Error(ctx, "audit append failed", "error", err.Error())
	}
}
