package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewVeniceService(t *testing.T) {
	service := NewVeniceService("test-api-key", "test-model")

	if service.apiKey != "test-api-key" {
		t.Errorf("Expected apiKey test-api-key, got %s", service.apiKey)
	}
	if service.modelName != "test-model" {
		t.Errorf("Expected modelName test-model, got %s", service.modelName)
	}
	if service.httpClient == nil {
		t.Error("Expected httpClient to be initialized")
	}
}

func TestVeniceService_Complete(t *testing.T) {
	var got VeniceChatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("Expected path /chat/completions, got %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer key" {
			t.Errorf("Expected bearer auth, got %q", r.Header.Get("Authorization"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"choices":[{"index":0,"message":{"role":"assistant","content":"{\"response\":\"ok\"}"}}]}`))
	}))
	defer server.Close()

	service := NewVeniceService("key", "venice-model")
	service.baseURL = server.URL

	text, err := service.Complete(context.Background(), ModelRequest{System: "sys", Prompt: "hello", Temperature: 0.5, TopP: 0.9})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if text != `{"response":"ok"}` {
		t.Errorf("Unexpected text %q", text)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != "system" || got.Messages[1].Content != "hello" {
		t.Errorf("Unexpected messages %+v", got.Messages)
	}
	if got.Temperature != 0.5 || got.TopP != 0.9 || got.MaxTokens != DefaultVeniceMaxTokens {
		t.Errorf("Unexpected sampling %+v", got)
	}
	if got.ResponseFormat == nil || got.ResponseFormat.Type != "json_object" {
		t.Errorf("Expected json_object response format")
	}
	if got.VeniceParameters.EnableWebSearch != "off" {
		t.Errorf("Expected web search off")
	}
}

func TestVeniceService_NoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	service := NewVeniceService("key", "m")
	service.baseURL = server.URL

	text, err := service.Complete(context.Background(), ModelRequest{Prompt: "p"})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if text != msgNoResponse {
		t.Errorf("Expected %q, got %q", msgNoResponse, text)
	}
}

func TestVeniceService_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":{"message":"quota exceeded"}}`))
	}))
	defer server.Close()

	service := NewVeniceService("key", "m")
	service.baseURL = server.URL

	if _, err := service.Complete(context.Background(), ModelRequest{Prompt: "p"}); err == nil {
		t.Error("Expected API error")
	}
}
