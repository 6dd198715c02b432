package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"testcase-assistant/pkg/log"
)

// TextGenerator produces plain text for a prompt.
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// ErrEmptyResponse means the model answered without any text part.
var ErrEmptyResponse = errors.New("No response generated from Gemini API")

// ErrNoGeminiKey is returned by MissingKeyGenerator. Its wording classifies as
// an authentication failure.
var ErrNoGeminiKey = errors.New("API key not configured: set GOOGLE_GENERATIVE_AI_API_KEY")

// MissingKeyGenerator stands in for Gemini when no API key is configured.
type MissingKeyGenerator struct{}

func (MissingKeyGenerator) GenerateText(context.Context, string) (string, error) {
	return "", ErrNoGeminiKey
}

type GeminiService struct {
	client *genai.Client
	model  *genai.GenerativeModel
	name   string
}

func NewGeminiService(ctx context.Context, apiKey, modelName string, temperature float32) (*GeminiService, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(temperature)

	return &GeminiService{client: client, model: model, name: modelName}, nil
}

func (s *GeminiService) Close() {
	s.client.Close()
}

// GenerateText sends prompt as a single user turn and joins the text parts of
// every candidate.
func (s *GeminiService) GenerateText(ctx context.Context, prompt string) (string, error) {
	resp, err := s.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", err
	}

	for i, cand := range resp.Candidates {
		if cand.FinishReason != genai.FinishReasonStop {
			log.Warnw("Gemini candidate stopped early",
				"model", s.name,
				"candidate", i,
				"finishReason", cand.FinishReason.String(),
			)
		}
	}

	text := extractText(resp)
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

func extractText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var text strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				if t, ok := part.(genai.Text); ok {
					text.WriteString(string(t))
				}
			}
		}
	}
	return text.String()
}
