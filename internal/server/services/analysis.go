// Package services contains server-side business logic. This file implements
// AnalysisService, the cache-aside orchestrator: it fans out the two
// classification calls, persists the encrypted result, and serves repeat
// requests from cache.
package services

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/moodlens/moodlens/internal/common"
	"github.com/moodlens/moodlens/internal/cryptox"
	"github.com/moodlens/moodlens/internal/dbx"
	"github.com/moodlens/moodlens/internal/logging"
	"github.com/moodlens/moodlens/internal/server/cache"
	"github.com/moodlens/moodlens/internal/server/classify"
	"github.com/moodlens/moodlens/internal/server/models"
	"github.com/moodlens/moodlens/internal/server/repositories/repomanager"
)

const (
	// analysisCacheTTL bounds how long an identical request is answered
	// from cache without touching the classification service.
	analysisCacheTTL = time.Hour

	// classifyTimeout bounds each of the two classification calls
	// independently.
	classifyTimeout = 10 * time.Second
)

// AnalysisResult is what callers get back from Analyze. The same value is
// serialized into the cache.
type AnalysisResult struct {
	Emotion    string  `json:"emotion"`
	Sentiment  string  `json:"sentiment"`
	Confidence float64 `json:"confidence"`
	ModelTag   string  `json:"model_tag"`
}

// AnalysisService implements the analysis pipeline:
// validate -> cache lookup -> fan-out classification -> encrypt -> persist
// -> cache write. The cache is best-effort throughout; a cache outage
// degrades to "always miss" and never fails a call.
type AnalysisService struct {
	db        *sql.DB
	repos     repomanager.RepositoryManager
	cache     cache.Cache
	emotion   classify.Classifier
	sentiment classify.Classifier
	cipher    *cryptox.FieldCipher
	logger    logging.Logger

	// now is a seam for clock-sensitive tests.
	now func() time.Time
}

// NewAnalysisService constructs an AnalysisService from its collaborators.
func NewAnalysisService(
	db *sql.DB,
	repos repomanager.RepositoryManager,
	c cache.Cache,
	emotion, sentiment classify.Classifier,
	cipher *cryptox.FieldCipher,
	logger logging.Logger,
) *AnalysisService {
	return &AnalysisService{
		db:        db,
		repos:     repos,
		cache:     c,
		emotion:   emotion,
		sentiment: sentiment,
		cipher:    cipher,
		logger:    logger.With("module", "analysis"),
		now:       time.Now,
	}
}

// analysisCacheKey derives the deterministic cache key for one
// (user, normalized text) pair. Neither the identity hash nor the text
// appears in the key itself.
func analysisCacheKey(idHash, text string) string {
	sum := sha256.Sum256([]byte(idHash + ":" + text))
	return "analysis:" + hex.EncodeToString(sum[:])
}

// Analyze classifies text along both dimensions for the given platform
// identity. Repeat requests within the cache TTL return the cached result
// and write nothing. On a miss the operation is all-or-nothing: if either
// classification call fails, no record is persisted and no cache key is
// set.
func (s *AnalysisService) Analyze(ctx context.Context, platformID, text string) (*AnalysisResult, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || len(trimmed) > common.MaxTextLength {
		return nil, common.ErrorValidation
	}
	if platformID == "" {
		return nil, common.ErrorValidation
	}

	idHash := common.HashIdentity(platformID)
	key := analysisCacheKey(idHash, trimmed)

	if data, err := s.cache.Get(ctx, key); err == nil {
		var cached AnalysisResult
		if err := json.Unmarshal(data, &cached); err == nil {
			return &cached, nil
		}
		s.logger.Warn(ctx, "discarding undecodable cache entry", "key", key)
	} else if !errors.Is(err, common.ErrorNotFound) {
		s.logger.Warn(ctx, "cache read failed, treating as miss", "error", err.Error())
	}

	user, err := s.repos.Users(s.db).FindOrCreate(ctx, idHash)
	if err != nil {
		s.logger.Error(ctx, "user lookup failed", "error", err.Error())
		return nil, common.ErrorInternal
	}

	emotionRes, sentimentRes, err := s.classifyBoth(ctx, trimmed)
	if err != nil {
		s.logger.Error(ctx, "classification failed", "error", err.Error())
		return nil, common.ErrorClassificationUnavailable
	}

	ciphertext, nonce, err := s.cipher.EncryptText(trimmed)
	if err != nil {
		s.logger.Error(ctx, "encryption failed", "error", err.Error())
		return nil, common.ErrorInternal
	}

	record := &models.AnalysisRecord{
		ID:         uuid.NewString(),
		UserID:     user.ID,
		Ciphertext: ciphertext,
		Nonce:      nonce,
		Emotion:    emotionRes.Label,
		Sentiment:  sentimentRes.Label,
		Confidence: emotionRes.Confidence,
		ModelTag:   s.emotion.ModelTag(),
		Metadata: map[string]string{
			"sentiment_confidence": strconv.FormatFloat(sentimentRes.Confidence, 'f', -1, 64),
		},
		CreatedAt: s.now().UTC(),
	}

	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repos.Records(tx).Save(ctx, record); err != nil {
			return err
		}
		return s.repos.Users(tx).TouchLastSeen(ctx, user.ID)
	}); err != nil {
		s.logger.Error(ctx, "record persistence failed", "error", err.Error())
		return nil, common.ErrorPersistenceFailed
	}

	result := &AnalysisResult{
		Emotion:    record.Emotion,
		Sentiment:  record.Sentiment,
		Confidence: record.Confidence,
		ModelTag:   record.ModelTag,
	}

	if data, err := json.Marshal(result); err == nil {
		if err := s.cache.Set(ctx, key, data, analysisCacheTTL); err != nil {
			s.logger.Warn(ctx, "cache write failed", "error", err.Error())
		}
	}

	return result, nil
}

// classifyBoth runs the two classification calls concurrently and joins on
// both. A failure or timeout on either call cancels the sibling; a
// half-classified result never leaves this function.
func (s *AnalysisService) classifyBoth(ctx context.Context, text string) (classify.Result, classify.Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type outcome struct {
		res classify.Result
		err error
	}

	var emotionOut, sentimentOut outcome
	var wg sync.WaitGroup

	run := func(c classify.Classifier, out *outcome) {
		defer wg.Done()
		callCtx, callCancel := context.WithTimeout(ctx, classifyTimeout)
		defer callCancel()
		out.res, out.err = c.Classify(callCtx, text)
		if out.err != nil {
			cancel()
		}
	}

	wg.Add(2)
	go run(s.emotion, &emotionOut)
	go run(s.sentiment, &sentimentOut)
	wg.Wait()

	if emotionOut.err != nil {
		return classify.Result{}, classify.Result{}, emotionOut.err
	}
	if sentimentOut.err != nil {
		return classify.Result{}, classify.Result{}, sentimentOut.err
	}
	return emotionOut.res, sentimentOut.res, nil
}
