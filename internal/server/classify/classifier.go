// Package classify wraps the external classification service behind a
// per-dimension Classifier. The service is consumed as an opaque
// text-in/label-out call; no retry logic lives here.
package classify

import (
	"context"
	"strings"
)

// Label taxonomies. LabelUnknown marks model output that matched neither
// taxonomy; it is stored as-is and never invented by callers.
const LabelUnknown = "unknown"

var (
	EmotionLabels   = []string{"anger", "joy", "sadness", "fear", "love", "surprise", "neutral"}
	SentimentLabels = []string{"positive", "negative", "neutral"}
)

// Result is one classification outcome. Confidence is always in [0,1].
type Result struct {
	Label      string
	Confidence float64
}

// Classifier classifies a single text along one dimension. Implementations
// must respect ctx cancellation; the orchestrator bounds each call with its
// own timeout.
type Classifier interface {
	Classify(ctx context.Context, text string) (Result, error)
	ModelTag() string
}

// parseLabel normalizes raw model output and checks it against the allowed
// label set. LLM output tends to arrive with quotes, punctuation or extra
// words; only the first token counts.
func parseLabel(raw string, allowed []string) (string, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.Trim(s, "\"'.,!:;\n\r\t ")
	if i := strings.IndexAny(s, " \n\t"); i >= 0 {
		s = s[:i]
	}
	for _, label := range allowed {
		if s == label {
			return label, true
		}
	}
	return LabelUnknown, false
}
