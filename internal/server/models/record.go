package models

import "time"

// AnalysisRecord is the immutable result of one analysis. The submitted
// text is stored encrypted only; Ciphertext and Nonce round-trip to the
// original text under the configured field cipher.
type AnalysisRecord struct {
	ID         string
	UserID     string
	Ciphertext []byte
	Nonce      []byte
	Emotion    string
	Sentiment  string
	Confidence float64
	ModelTag   string
	Metadata   map[string]string
	CreatedAt  time.Time
}
