package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	veniceBaseURL = "https://api.venice.ai/api/v1"

	DefaultVeniceMaxTokens = 1024
)

// VeniceService implements ModelBackend for Venice AI (OpenAI-style chat completions)
type VeniceService struct {
	apiKey     string
	modelName  string
	baseURL    string
	httpClient *http.Client
}

type veniceMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type VeniceResponseFormat struct {
	Type string `json:"type"`
}

type VeniceParameters struct {
	IncludeVeniceSystemPrompt bool   `json:"include_venice_system_prompt"`
	EnableWebSearch           string `json:"enable_web_search"`
}

// VeniceChatRequest represents the request structure for Venice AI chat completions
type VeniceChatRequest struct {
	Model            string                `json:"model"`
	Messages         []veniceMessage       `json:"messages"`
	Temperature      float64               `json:"temperature"`
	TopP             float64               `json:"top_p,omitempty"`
	MaxTokens        int                   `json:"max_tokens,omitempty"`
	Stream           bool                  `json:"stream"`
	ResponseFormat   *VeniceResponseFormat `json:"response_format,omitempty"`
	VeniceParameters VeniceParameters      `json:"venice_parameters"`
}

// VeniceChatChoice represents a single choice in the Venice AI response
type VeniceChatChoice struct {
	Index   int `json:"index"`
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	FinishReason string `json:"finish_reason"`
}

// VeniceChatResponse represents the response structure for Venice AI chat completions
type VeniceChatResponse struct {
	ID      string             `json:"id"`
	Object  string             `json:"object"`
	Created int64              `json:"created"`
	Model   string             `json:"model"`
	Choices []VeniceChatChoice `json:"choices"`
	Error   *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error,omitempty"`
}

var _ ModelBackend = (*VeniceService)(nil)

// NewVeniceService creates a new Venice AI service
func NewVeniceService(apiKey string, modelName string) *VeniceService {
	return &VeniceService{
		apiKey:    apiKey,
		modelName: modelName,
		baseURL:   veniceBaseURL,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

func (v *VeniceService) Name() string { return "venice" }

// Complete requests a JSON-object reply for the prompt
func (v *VeniceService) Complete(ctx context.Context, mr ModelRequest) (string, error) {
	maxTokens := mr.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultVeniceMaxTokens
	}
	messages := make([]veniceMessage, 0, 2)
	if mr.System != "" {
		messages = append(messages, veniceMessage{Role: "system", Content: mr.System})
	}
	messages = append(messages, veniceMessage{Role: "user", Content: mr.Prompt})

	veniceReq := VeniceChatRequest{
		Model:          v.modelName,
		Messages:       messages,
		Temperature:    mr.Temperature,
		TopP:           mr.TopP,
		MaxTokens:      maxTokens,
		Stream:         false,
		ResponseFormat: &VeniceResponseFormat{Type: "json_object"},
		VeniceParameters: VeniceParameters{
			IncludeVeniceSystemPrompt: false,
			EnableWebSearch:           "off",
		},
	}

	reqBody, err := json.Marshal(veniceReq)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", v.baseURL+"/chat/completions", bytes.NewBuffer(reqBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+v.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to make request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var veniceResp VeniceChatResponse
	if err := json.Unmarshal(body, &veniceResp); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	if veniceResp.Error != nil {
		return "", fmt.Errorf("API error: %s", veniceResp.Error.Message)
	}

	if len(veniceResp.Choices) == 0 {
		return msgNoResponse, nil
	}

	return veniceResp.Choices[0].Message.Content, nil
}
