package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/moodlens/moodlens/internal/common"
	"github.com/moodlens/moodlens/internal/server/auth"
)

type analyzeRequest struct {
	UserID string `json:"user_id"`
	Text   string `json:"text"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest)
		return
	}

	result, err := s.analysis.Analyze(r.Context(), req.UserID, req.Text)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrorValidation):
			writeError(w, http.StatusBadRequest)
		case errors.Is(err, common.ErrorClassificationUnavailable):
			writeError(w, http.StatusServiceUnavailable)
		default:
			s.logger.Error(r.Context(), "analyze failed", "error", err.Error())
			writeError(w, http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleMonthlyReport(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	month := r.URL.Query().Get("month")
	if userID == "" {
		writeError(w, http.StatusBadRequest)
		return
	}

	stats, err := s.stats.MonthlyStats(r.Context(), userID, month)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrorValidation):
			writeError(w, http.StatusBadRequest)
		case errors.Is(err, common.ErrorNotFound):
			writeError(w, http.StatusNotFound)
		default:
			s.logger.Error(r.Context(), "monthly report failed", "error", err.Error())
			writeError(w, http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

type tokenRequest struct {
	UserID string `json:"user_id"`
}

type tokenResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"`
}

// handleToken mints a short-lived report token. The token carries the
// hashed platform identity, same as storage; raw identifiers never enter
// a signed artifact.
func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		writeError(w, http.StatusBadRequest)
		return
	}

	tok, err := auth.GenerateToken(common.HashIdentity(req.UserID), s.secretKey, s.tokenValidity)
	if err != nil {
		s.logger.Error(r.Context(), "token generation failed", "error", err.Error())
		writeError(w, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{
		Token:     tok,
		ExpiresIn: int(s.tokenValidity.Seconds()),
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
