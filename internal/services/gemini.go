package services

import (
	"context"
	"fmt"
	"log/slog"

	"google.golang.org/genai"
)

const DefaultGeminiMaxTokens = 2048

// GeminiService implements ModelBackend for Google Gemini through the genai SDK
type GeminiService struct {
	client    *genai.Client
	modelName string
	logger    *slog.Logger
}

var _ ModelBackend = (*GeminiService)(nil)

// NewGeminiService creates a Gemini API client. An empty key is an error.
func NewGeminiService(ctx context.Context, apiKey string, modelName string, logger *slog.Logger) (*GeminiService, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if modelName == "" {
		modelName = "gemini-2.5-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &GeminiService{client: client, modelName: modelName, logger: logger}, nil
}

func (g *GeminiService) Name() string { return "gemini" }

func (g *GeminiService) Complete(ctx context.Context, mr ModelRequest) (string, error) {
	maxTokens := mr.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultGeminiMaxTokens
	}
	cfg := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(float32(mr.Temperature)),
		TopP:             genai.Ptr(float32(mr.TopP)),
		MaxOutputTokens:  int32(maxTokens),
		ResponseMIMEType: "application/json",
	}
	if mr.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(mr.System, genai.RoleUser)
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.modelName, genai.Text(mr.Prompt), cfg)
	if err != nil {
		return "", fmt.Errorf("gemini generate failed: %w", err)
	}

	text := resp.Text()
	if text == "" {
		g.logger.Debug("Gemini returned no text", "model", g.modelName)
		return msgNoResponse, nil
	}
	return text, nil
}
