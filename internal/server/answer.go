package server

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

// answerer produces free-text replies for FAQ picks and ask-anything
// questions. With an API key it asks Gemini; without one, or when the model
// call fails, it falls back to canned answers.
type answerer struct {
	client *genai.Client
	model  string
	log    *zap.Logger
}

const answerPrompt = `You are Maya, a helpful real estate assistant for Vivid Realty, a Chennai-based developer.
Answer the user's question about our properties in 1-2 warm, professional sentences.
Question: %s`

// cannedAnswers covers the FAQ menu picks and serves as the offline fallback.
var cannedAnswers = map[string]string{
	"loan":          "We partner with all major banks for home loans at competitive rates, and our finance team will help you through the entire approval process. 💰",
	"amenities":     "Our projects include swimming pools, gyms, landscaped gardens, children's play areas, and 24/7 security. 🏊",
	"documentation": "All our properties come with clear titles and RERA registration, and our legal team assists with every document from booking to registration. 📄",
	"possession":    "Possession timelines vary by project, with most ready-to-move and under-construction options delivering within 12 to 24 months. 🔑",
}

const fallbackAnswer = "That's a great question! Our agent will get back to you with the details shortly. 💬"

func newAnswerer(ctx context.Context, apiKey, model string, logger *zap.Logger) *answerer {
	a := &answerer{model: model, log: logger}
	if apiKey == "" {
		return a
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		logger.Warn("gemini client unavailable, using canned answers", zap.Error(err))
		return a
	}
	a.client = client
	return a
}

// Answer replies to one question. question may be an FAQ menu value or free
// text.
func (a *answerer) Answer(ctx context.Context, question string) string {
	if canned, ok := cannedAnswers[strings.ToLower(strings.TrimSpace(question))]; ok {
		return canned
	}
	if a.client == nil {
		return fallbackAnswer
	}

	resp, err := a.client.Models.GenerateContent(ctx, a.model,
		genai.Text(fmt.Sprintf(answerPrompt, question)), nil)
	if err != nil {
		a.log.Warn("gemini answer failed", zap.Error(err))
		return fallbackAnswer
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return fallbackAnswer
	}
	return text
}
