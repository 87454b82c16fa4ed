package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/jwebster45206/persona-engine/pkg/chat"
)

func testConnection(client *http.Client, baseURL string) bool {
	resp, err := client.Get(baseURL + "/health")
	if err != nil {
		return false
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	return resp.StatusCode == http.StatusOK
}

// sendTurn runs one synchronous turn through POST /v1/chat.
func sendTurn(client *http.Client, baseURL string, req chat.TurnRequest) (*chat.TurnResponse, error) {
	jsonData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := client.Post(baseURL+"/v1/chat", "application/json", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := readBody(resp, http.StatusOK, "chat request failed")
	if err != nil {
		return nil, err
	}

	var turnResp chat.TurnResponse
	if err := json.Unmarshal(body, &turnResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &turnResp, nil
}

// getHistory loads a conversation and its turns.
func getHistory(client *http.Client, baseURL string, id uuid.UUID) (*chat.HistoryResponse, error) {
	resp, err := client.Get(fmt.Sprintf("%s/v1/conversations/%s", baseURL, id))
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := readBody(resp, http.StatusOK, "failed to load conversation")
	if err != nil {
		return nil, err
	}

	var history chat.HistoryResponse
	if err := json.Unmarshal(body, &history); err != nil {
		return nil, fmt.Errorf("failed to parse history response: %w", err)
	}
	return &history, nil
}

func readBody(resp *http.Response, want int, failure string) ([]byte, error) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != want {
		var errorResp chat.ErrorResponse
		if err := json.Unmarshal(body, &errorResp); err != nil || errorResp.Error == "" {
			return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
		}
		return nil, fmt.Errorf("%s: %s", failure, errorResp.Error)
	}
	return body, nil
}
