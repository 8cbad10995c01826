// Package httpapi exposes the analysis, report and token operations over
// REST. The request pipeline is composed from named stages at startup, so
// the wrapping order is visible in one place instead of being implied by
// handler registration.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/moodlens/moodlens/internal/logging"
	"github.com/moodlens/moodlens/internal/server/models"
	"github.com/moodlens/moodlens/internal/server/services"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Analyzer runs the classification pipeline for one text.
type Analyzer interface {
	Analyze(ctx context.Context, platformID, text string) (*services.AnalysisResult, error)
}

// Reporter aggregates one user's calendar month.
type Reporter interface {
	MonthlyStats(ctx context.Context, platformID, month string) (*services.MonthlyStats, error)
}

// Gatekeeper authenticates a presented secret and enforces its rate limit.
type Gatekeeper interface {
	Authorize(ctx context.Context, presentedSecret, sourceAddr, resource string) (*models.AccessCredential, error)
}

// AuditSink receives one entry per authorized request.
type AuditSink interface {
	Append(ctx context.Context, entry *models.AuditEntry) error
}

// Server holds the handler dependencies and builds the router.
type Server struct {
	analysis Analyzer
	stats    Reporter
	access   Gatekeeper
	auditLog AuditSink
	logger   logging.Logger

	secretKey     []byte
	tokenValidity time.Duration

	now func() time.Time
}

// NewServer constructs a Server from its collaborators.
func NewServer(analysis Analyzer, stats Reporter, access Gatekeeper, auditLog AuditSink,
	secretKey []byte, tokenValidity time.Duration, logger logging.Logger) *Server {
	return &Server{
		analysis:      analysis,
		stats:         stats,
		access:        access,
		auditLog:      auditLog,
		logger:        logger.With("module", "httpapi"),
		secretKey:     secretKey,
		tokenValidity: tokenValidity,
		now:           time.Now,
	}
}

// Router wires the endpoints. Guarded routes run the metrics, credential
// gate and audit trail stages, in that order; the trail sits inside the
// gate because the gate already audits its own rejections.
func (s *Server) Router() *mux.Router {
	meter := &requestMetrics{}
	gate := &credentialGate{access: s.access, logger: s.logger}
	trail := &auditTrail{sink: s.auditLog, secretKey: s.secretKey, logger: s.logger, now: s.now}

	guarded := func(h http.HandlerFunc) http.Handler {
		return chain(h, meter, gate, trail)
	}

	r := mux.NewRouter()
	r.Handle("/api/v1/analyze", guarded(s.handleAnalyze)).Methods(http.MethodPost)
	r.Handle("/api/v1/reports/monthly", guarded(s.handleMonthlyReport)).Methods(http.MethodGet)
	r.Handle("/api/v1/token", guarded(s.handleToken)).Methods(http.MethodPost)

	r.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	return r
}
