package classify

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
)

const (
	defaultModelName = "gemini-1.5-flash-latest"

	// The service does not report confidence for zero-shot labels; a fixed
	// high score is recorded, matching how the records were always scored.
	llmConfidence = 0.85

	emotionPrompt = "Analyze the emotion in this text. Respond with ONLY one word from: " +
		"anger, joy, sadness, fear, love, surprise, neutral\n\nText: %s\n\nEmotion:"
	sentimentPrompt = "Analyze the sentiment in this text. Respond with ONLY one word: " +
		"positive, negative, or neutral\n\nText: %s\n\nSentiment:"
)

// Gemini classifies text along one dimension via the Gemini API. Two
// instances are used per analysis, one per dimension.
type Gemini struct {
	model     *genai.GenerativeModel
	modelName string
	prompt    string
	labels    []string
}

func newGemini(client *genai.Client, modelName, prompt string, labels []string) *Gemini {
	model := client.GenerativeModel(modelName)

	temp := float32(0)
	maxTokens := int32(10)
	model.GenerationConfig = genai.GenerationConfig{
		Temperature:     &temp,
		MaxOutputTokens: &maxTokens,
	}

	return &Gemini{model: model, modelName: modelName, prompt: prompt, labels: labels}
}

// NewGeminiEmotion returns the emotion-dimension classifier.
func NewGeminiEmotion(client *genai.Client) *Gemini {
	return newGemini(client, defaultModelName, emotionPrompt, EmotionLabels)
}

// NewGeminiSentiment returns the sentiment-dimension classifier.
func NewGeminiSentiment(client *genai.Client) *Gemini {
	return newGemini(client, defaultModelName, sentimentPrompt, SentimentLabels)
}

func (g *Gemini) ModelTag() string {
	return g.modelName
}

func (g *Gemini) Classify(ctx context.Context, text string) (Result, error) {
	resp, err := g.model.GenerateContent(ctx, genai.Text(fmt.Sprintf(g.prompt, text)))
	if err != nil {
		return Result{}, fmt.Errorf("classification request failed: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return Result{}, fmt.Errorf("classification returned no candidates")
	}

	var out strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			out.WriteString(string(txt))
		}
	}

	label, ok := parseLabel(out.String(), g.labels)
	if !ok {
		return Result{Label: LabelUnknown, Confidence: 0}, nil
	}
	return Result{Label: label, Confidence: llmConfidence}, nil
}
