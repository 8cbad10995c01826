package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/moodlens/moodlens/internal/common"
	"github.com/moodlens/moodlens/internal/logging"
	"github.com/moodlens/moodlens/internal/server/repositories/repomanager"
)

// EmotionStat is one emotion's share of a month.
type EmotionStat struct {
	Count         int     `json:"count"`
	Percentage    float64 `json:"percentage"`
	AvgConfidence float64 `json:"avg_confidence"`
}

// SentimentDist is the month's sentiment distribution in percent.
type SentimentDist struct {
	Positive float64 `json:"positive"`
	Negative float64 `json:"negative"`
	Neutral  float64 `json:"neutral"`
}

// Insight is one rule-based observation about the month.
type Insight struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// MonthlyStats is the aggregate for one user and calendar month.
type MonthlyStats struct {
	Period          string                 `json:"period"`
	TotalMessages   int                    `json:"total_messages"`
	ActiveDays      int                    `json:"active_days"`
	Emotions        map[string]EmotionStat `json:"emotions"`
	Sentiment       SentimentDist          `json:"sentiment"`
	DominantEmotion string                 `json:"dominant_emotion"`
	Insights        []Insight              `json:"insights"`
}

// StatsService derives monthly aggregates and insights from stored
// analysis records. It reads only label, confidence and timestamp
// metadata; stored ciphertext is never decrypted here.
type StatsService struct {
	db     *sql.DB
	repos  repomanager.RepositoryManager
	logger logging.Logger
}

// NewStatsService constructs a StatsService.
func NewStatsService(db *sql.DB, repos repomanager.RepositoryManager, logger logging.Logger) *StatsService {
	return &StatsService{db: db, repos: repos, logger: logger.With("module", "stats")}
}

// MonthlyStats aggregates the user's records for one "YYYY-MM" month. A
// month with zero records is common.ErrorNotFound, never a zero-valued
// aggregate: absence and emptiness stay distinguishable.
func (s *StatsService) MonthlyStats(ctx context.Context, platformID, month string) (*MonthlyStats, error) {
	start, err := time.ParseInLocation("2006-01", month, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("%w: month must be YYYY-MM", common.ErrorValidation)
	}
	end := start.AddDate(0, 1, 0)

	user, err := s.repos.Users(s.db).FindByIDHash(ctx, common.HashIdentity(platformID))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		s.logger.Error(ctx, "user lookup failed", "error", err.Error())
		return nil, common.ErrorInternal
	}

	records, err := s.repos.Records(s.db).QueryByUserAndRange(ctx, user.ID, start, end)
	if err != nil {
		s.logger.Error(ctx, "record query failed", "error", err.Error())
		return nil, common.ErrorInternal
	}
	if len(records) == 0 {
		return nil, common.ErrorNotFound
	}

	total := len(records)
	counts := make(map[string]int)
	confidenceSums := make(map[string]float64)
	sentiments := make(map[string]int)
	days := make(map[string]struct{})

	for _, rec := range records {
		counts[rec.Emotion]++
		confidenceSums[rec.Emotion] += rec.Confidence
		sentiments[rec.Sentiment]++
		days[rec.CreatedAt.UTC().Format("2006-01-02")] = struct{}{}
	}

	emotions := make(map[string]EmotionStat, len(counts))
	for label, count := range counts {
		emotions[label] = EmotionStat{
			Count:         count,
			Percentage:    round1(float64(count) / float64(total) * 100),
			AvgConfidence: round2(confidenceSums[label] / float64(count)),
		}
	}

	dist := SentimentDist{
		Positive: round1(float64(sentiments["positive"]) / float64(total) * 100),
		Negative: round1(float64(sentiments["negative"]) / float64(total) * 100),
		Neutral:  round1(float64(sentiments["neutral"]) / float64(total) * 100),
	}

	daysInMonth := end.AddDate(0, 0, -1).Day()

	stats := &MonthlyStats{
		Period:          month,
		TotalMessages:   total,
		ActiveDays:      len(days),
		Emotions:        emotions,
		Sentiment:       dist,
		DominantEmotion: dominantEmotion(counts),
		Insights:        generateInsights(counts, dist, len(days), daysInMonth),
	}
	return stats, nil
}

// dominantEmotion returns the most frequent label. Ties go to the
// lexicographically smallest label, which keeps the result deterministic.
func dominantEmotion(counts map[string]int) string {
	labels := make([]string, 0, len(counts))
	for label := range counts {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	best := ""
	bestCount := -1
	for _, label := range labels {
		if counts[label] > bestCount {
			best = label
			bestCount = counts[label]
		}
	}
	return best
}

// generateInsights evaluates the independent threshold rules in fixed
// priority order. Rules are non-exclusive; several insights may co-occur.
func generateInsights(counts map[string]int, dist SentimentDist, activeDays, daysInMonth int) []Insight {
	var insights []Insight

	switch {
	case dist.Positive >= 60:
		insights = append(insights, Insight{
			Code:    "positive_period",
			Message: fmt.Sprintf("A positive period: %.1f%% of your messages carried positive sentiment.", dist.Positive),
		})
	case dist.Negative >= 50:
		insights = append(insights, Insight{
			Code:    "difficult_period",
			Message: fmt.Sprintf("A difficult period: %.1f%% of your messages carried negative sentiment.", dist.Negative),
		})
	default:
		insights = append(insights, Insight{
			Code:    "balanced_period",
			Message: "A balanced period without a strong sentiment lean.",
		})
	}

	if daysInMonth > 0 && float64(activeDays)/float64(daysInMonth) >= 0.8 {
		insights = append(insights, Insight{
			Code:    "high_consistency",
			Message: fmt.Sprintf("High consistency: you checked in on %d of %d days.", activeDays, daysInMonth),
		})
	}

	if len(counts) >= 5 {
		insights = append(insights, Insight{
			Code:    "high_variety",
			Message: fmt.Sprintf("High emotional variety: %d distinct emotions this month.", len(counts)),
		})
	}

	return insights
}

func round1(x float64) float64 { return math.Round(x*10) / 10 }
func round2(x float64) float64 { return math.Round(x*100) / 100 }
