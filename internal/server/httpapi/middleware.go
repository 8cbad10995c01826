package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/moodlens/moodlens/internal/common"
	"github.com/moodlens/moodlens/internal/logging"
	"github.com/moodlens/moodlens/internal/server/auth"
	"github.com/moodlens/moodlens/internal/server/models"
)

type contextKey string

const credentialKey contextKey = "credential"

// CredentialFromContext returns the credential the gate attached to an
// authorized request.
func CredentialFromContext(ctx context.Context) (*models.AccessCredential, bool) {
	cred, ok := ctx.Value(credentialKey).(*models.AccessCredential)
	return cred, ok
}

// credentialGate authenticates every request with the X-API-Key secret and
// enforces the matched credential's rate limit. Rejections are generic: an
// unknown, expired or wrong secret all read the same from outside.
type credentialGate struct {
	access Gatekeeper
	logger logging.Logger
}

func (g *credentialGate) Name() string { return "gate" }

func (g *credentialGate) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		secret := r.Header.Get(common.APIKeyHeaderName)

		cred, err := g.access.Authorize(r.Context(), secret, r.RemoteAddr, r.URL.Path)
		if err != nil {
			var rle *common.RateLimitError
			switch {
			case errors.As(err, &rle):
				w.Header().Set("Retry-After", strconv.Itoa(rle.RetryAfterSec))
				writeError(w, http.StatusTooManyRequests)
			case errors.Is(err, common.ErrorUnauthorized):
				writeError(w, http.StatusUnauthorized)
			default:
				g.logger.Error(r.Context(), "authorization failed", "error", err.Error())
				writeError(w, http.StatusInternalServerError)
			}
			return
		}

		ctx := context.WithValue(r.Context(), credentialKey, cred)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// auditTrail appends one entry per authorized request: method, path,
// source, final status, the gating credential, and the user reference from
// a bearer token when one is presented. Best-effort; the response has
// already been written when the append runs.
type auditTrail struct {
	sink      AuditSink
	secretKey []byte
	logger    logging.Logger
	now       func() time.Time
}

func (a *auditTrail) Name() string { return "audit" }

func (a *auditTrail) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		entry := &models.AuditEntry{
			ID:         uuid.NewString(),
			UserID:     a.bearerUser(r),
			Action:     r.Method,
			Resource:   r.URL.Path,
			SourceAddr: r.RemoteAddr,
			StatusCode: rec.status,
			CreatedAt:  a.now().UTC(),
		}
		if cred, ok := CredentialFromContext(r.Context()); ok {
			entry.CredentialID = cred.ID
		}
		if err := a.sink.Append(r.Context(), entry); err != nil {
			a.logger.Error(r.Context(), "audit append failed", "error", err.Error())
		}
	})
}

// bearerUser extracts the user reference from an Authorization header.
// Requests without a valid token are still audited, just unattributed.
func (a *auditTrail) bearerUser(r *http.Request) string {
	header := r.Header.Get("Authorization")
	tok, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return ""
	}
	userID, err := auth.GetUserIDFromToken(tok, a.secretKey)
	if err != nil {
		return ""
	}
	return userID
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
