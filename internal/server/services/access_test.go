package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/moodlens/moodlens/internal/common"
	"github.com/moodlens/moodlens/internal/server/cache"
	"github.com/moodlens/moodlens/internal/server/models"
	"github.com/stretchr/testify/assert"
	"golang.org/x/crypto/bcrypt"
)

func hashSecret(t *testing.T, secret string) string {
	t.Helper()
	// MinCost keeps the linear-scan tests fast; production provisioning
	// uses the default cost.
	h, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt.GenerateFromPassword error: %v", err)
	}
	return string(h)
}

func testCredential(t *testing.T, id, secret string, ratePerMinute int) *models.AccessCredential {
	t.Helper()
	return &models.AccessCredential{
		ID:            id,
		SecretHash:    hashSecret(t, secret),
		Label:         "test " + id,
		Active:        true,
		RatePerMinute: ratePerMinute,
		CreatedAt:     time.Now().UTC(),
	}
}

func newAccessService(t *testing.T, rm *fakeRepoManager, c cache.Cache) *AccessService {
	t.Helper()
	db, _ := newSQLMockDB(t)
	t.Cleanup(func() { db.Close() })
	return NewAccessService(db, rm, c, discardLogger())
}

func TestAuthorize_ValidSecret(t *testing.T) {
	rm := newFakeRepoManager()
	rm.c.active = []*models.AccessCredential{testCredential(t, "cred-1", "s3cret", 30)}
	svc := newAccessService(t, rm, cache.NewMemory())

	cred, err := svc.Authorize(context.Background(), "s3cret", "10.0.0.1", "/api/v1/analyze")
	if err != nil {
		t.Fatalf("Authorize error: %v", err)
	}
	if cred.ID != "cred-1" {
		t.Fatalf("matched wrong credential: %s", cred.ID)
	}

	entry := rm.a.last()
	if entry == nil || entry.StatusCode != http.StatusOK || entry.CredentialID != "cred-1" {
		t.Fatalf("unexpected audit entry: %+v", entry)
	}
}

// Unknown, wrong and expired secrets all surface as the same error; the
// response must not reveal which check failed.
func TestAuthorize_FailuresAreUniform(t *testing.T) {
	past := time.Now().Add(-time.Hour)
	expired := testCredential(t, "cred-old", "old-secret", 30)
	expired.ExpiresAt = &past

	rm := newFakeRepoManager()
	rm.c.active = []*models.AccessCredential{
		testCredential(t, "cred-1", "s3cret", 30),
		expired,
	}
	svc := newAccessService(t, rm, cache.NewMemory())

	cases := []struct {
		name   string
		secret string
	}{
		{"empty secret", ""},
		{"wrong secret", "not-the-secret"},
		{"expired credential", "old-secret"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Authorize(context.Background(), tc.secret, "10.0.0.1", "/api/v1/analyze")
			if !errors.Is(err, common.ErrorUnauthorized) {
				t.Fatalf("expected ErrorUnauthorized, got %v", err)
			}
			entry := rm.a.last()
			if entry == nil || entry.StatusCode != http.StatusUnauthorized {
				t.Fatalf("unexpected audit entry: %+v", entry)
			}
			if entry.CredentialID != "" {
				t.Fatalf("failed auth must not attribute a credential, got %q", entry.CredentialID)
			}
		})
	}
}

func TestAuthorize_RateLimitEnforced(t *testing.T) {
	current := time.Date(2026, 3, 10, 12, 0, 15, 0, time.UTC)
	clock := func() time.Time { return current }

	rm := newFakeRepoManager()
	rm.c.active = []*models.AccessCredential{testCredential(t, "cred-1", "s3cret", 3)}
	svc := newAccessService(t, rm, cache.NewMemoryWithClock(clock))
	svc.now = clock

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := svc.Authorize(ctx, "s3cret", "10.0.0.1", "/api/v1/analyze"); err != nil {
			t.Fatalf("request %d within limit rejected: %v", i+1, err)
		}
	}

	_, err := svc.Authorize(ctx, "s3cret", "10.0.0.1", "/api/v1/analyze")
	var rle *common.RateLimitError
	if !errors.As(err, &rle) {
		t.Fatalf("expected *RateLimitError, got %v", err)
	}
	if rle.Limit != 3 {
		t.Fatalf("unexpected limit in error: %d", rle.Limit)
	}
	if rle.RetryAfterSec != 45 {
		t.Fatalf("expected retry hint 45s at :15 into the window, got %d", rle.RetryAfterSec)
	}
	if entry := rm.a.last(); entry == nil || entry.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("unexpected audit entry: %+v", entry)
	}

	// Next minute bucket: the counter starts over.
	current = current.Add(time.Minute)
	if _, err := svc.Authorize(ctx, "s3cret", "10.0.0.1", "/api/v1/analyze"); err != nil {
		t.Fatalf("request in fresh window rejected: %v", err)
	}
}

// Rejected requests still consume the window; hammering past the limit
// does not earn extra capacity.
func TestAuthorize_RejectedRequestsStillCount(t *testing.T) {
	current := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return current }

	rm := newFakeRepoManager()
	rm.c.active = []*models.AccessCredential{testCredential(t, "cred-1", "s3cret", 1)}
	svc := newAccessService(t, rm, cache.NewMemoryWithClock(clock))
	svc.now = clock

	ctx := context.Background()
	if _, err := svc.Authorize(ctx, "s3cret", "10.0.0.1", "/api/v1/analyze"); err != nil {
		t.Fatalf("first request rejected: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := svc.Authorize(ctx, "s3cret", "10.0.0.1", "/api/v1/analyze"); err == nil {
			t.Fatalf("over-limit request %d allowed", i+1)
		}
	}
}

func TestAuthorize_CounterOutageFailsOpen(t *testing.T) {
	rm := newFakeRepoManager()
	rm.c.active = []*models.AccessCredential{testCredential(t, "cred-1", "s3cret", 1)}
	svc := newAccessService(t, rm, failingCache{})

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if _, err := svc.Authorize(ctx, "s3cret", "10.0.0.1", "/api/v1/analyze"); err != nil {
			t.Fatalf("request %d rejected during counter outage: %v", i+1, err)
		}
	}
}

func TestAuthorize_ListingFailure(t *testing.T) {
	rm := newFakeRepoManager()
	rm.c.listErr = fmt.Errorf("connection refused")
	svc := newAccessService(t, rm, cache.NewMemory())

	_, err := svc.Authorize(context.Background(), "s3cret", "10.0.0.1", "/api/v1/analyze")
	if !errors.Is(err, common.ErrorInternal) {
		t.Fatalf("expected ErrorInternal, got %v", err)
	}
}

func TestAuthorize_TouchesLastUsedAsync(t *testing.T) {
	rm := newFakeRepoManager()
	rm.c.active = []*models.AccessCredential{testCredential(t, "cred-1", "s3cret", 30)}
	svc := newAccessService(t, rm, cache.NewMemory())

	if _, err := svc.Authorize(context.Background(), "s3cret", "10.0.0.1", "/api/v1/analyze"); err != nil {
		t.Fatalf("Authorize error: %v", err)
	}

	assert.Eventually(t, func() bool {
		return rm.c.touchedCount() == 1
	}, time.Second, 10*time.Millisecond, "last-used timestamp was never touched")
}
